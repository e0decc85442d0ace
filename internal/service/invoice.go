package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
)

type InvoiceService struct {
	store repository.Store
	now   func() time.Time
}

func NewInvoiceService(store repository.Store) *InvoiceService {
	return &InvoiceService{store: store, now: utcNow}
}

// CreateInvoice validates params and stores a new DRAFT (or directly PENDING)
// invoice for an existing customer.
func (s *InvoiceService) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var created *domain.Invoice
	err := s.store.WithinTx(ctx, func(q repository.Querier) error {
		if err := requireCustomer(ctx, q, params.CustomerID); err != nil {
			return err
		}

		inv, err := q.CreateInvoice(ctx, params)
		if err != nil {
			return err
		}
		inv.Payments = []domain.Payment{}

		now := s.now()
		if err := recordEvent(ctx, q, domain.EventInvoiceCreated, inv, nil, now); err != nil {
			return err
		}
		if inv.Status == domain.InvoiceStatusPending {
			if err := recordEvent(ctx, q, domain.EventInvoicePosted, inv, nil, now); err != nil {
				return err
			}
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetInvoice returns the invoice with its payments ordered by paid_at.
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := loadPayments(ctx, s.store, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns matching invoices, newest issue date first, each with
// its payments.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if err := repository.AttachPayments(ctx, s.store, invoices); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	return invoices, nil
}

// ListCustomerInvoices lists one customer's invoices. An unknown customer
// simply has none.
func (s *InvoiceService) ListCustomerInvoices(ctx context.Context, customerID int64, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	filter.CustomerID = &customerID
	return s.ListInvoices(ctx, filter)
}

// UpdateDraft applies a partial update to a DRAFT invoice.
func (s *InvoiceService) UpdateDraft(ctx context.Context, id int64, patch domain.InvoicePatch) (*domain.Invoice, error) {
	var updated *domain.Invoice
	err := s.store.WithinTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvoiceStatusDraft {
			return fmt.Errorf("%w: only DRAFT invoices can be edited (current: %s)", domain.ErrNotDraft, inv.Status)
		}
		if patch.Empty() {
			updated = inv
			return loadPayments(ctx, q, updated)
		}

		if err := patch.Apply(inv); err != nil {
			return err
		}
		if patch.CustomerID != nil {
			if err := requireCustomer(ctx, q, inv.CustomerID); err != nil {
				return err
			}
		}

		inv, err = q.UpdateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.Payments = []domain.Payment{}
		if err := recordEvent(ctx, q, domain.EventInvoiceUpdated, inv, nil, s.now()); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PostInvoice issues a DRAFT invoice: DRAFT -> PENDING.
func (s *InvoiceService) PostInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusPending, domain.EventInvoicePosted, func(inv *domain.Invoice) error {
		if inv.Status != domain.InvoiceStatusDraft {
			return fmt.Errorf("%w: invoice must be DRAFT to post (current: %s)", domain.ErrInvalidTransition, inv.Status)
		}
		return nil
	})
}

// VoidInvoice cancels a PENDING invoice: PENDING -> VOID. Drafts are deleted
// instead of voided.
func (s *InvoiceService) VoidInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusVoid, domain.EventInvoiceVoided, func(inv *domain.Invoice) error {
		switch inv.Status {
		case domain.InvoiceStatusPending:
			return nil
		case domain.InvoiceStatusPaid:
			return fmt.Errorf("%w: cannot void a paid invoice", domain.ErrInvalidTransition)
		case domain.InvoiceStatusVoid:
			return fmt.Errorf("%w: invoice is already void", domain.ErrInvalidTransition)
		default:
			return fmt.Errorf("%w: draft invoices are deleted, not voided", domain.ErrInvalidTransition)
		}
	})
}

func (s *InvoiceService) transition(ctx context.Context, id int64, to domain.InvoiceStatus, evt domain.EventType, check func(inv *domain.Invoice) error) (*domain.Invoice, error) {
	var result *domain.Invoice
	err := s.store.WithinTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := check(inv); err != nil {
			return err
		}
		if !inv.CanTransition(to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, to)
		}

		if err := q.UpdateInvoiceStatus(ctx, inv.ID, to); err != nil {
			return err
		}
		inv.Status = to
		inv.UpdatedAt = s.now()

		if err := loadPayments(ctx, q, inv); err != nil {
			return err
		}
		if err := recordEvent(ctx, q, evt, inv, nil, inv.UpdatedAt); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDraft removes a DRAFT invoice.
func (s *InvoiceService) DeleteDraft(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvoiceStatusDraft {
			return fmt.Errorf("%w: only DRAFT invoices can be deleted (current: %s)", domain.ErrNotDraft, inv.Status)
		}
		if err := q.DeleteInvoice(ctx, id); err != nil {
			return err
		}
		inv.Payments = []domain.Payment{}
		return recordEvent(ctx, q, domain.EventInvoiceDeleted, inv, nil, s.now())
	})
}

// ListOverdue returns PENDING invoices whose due date is before asOf.
func (s *InvoiceService) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Invoice, error) {
	pending := domain.InvoiceStatusPending
	return s.ListInvoices(ctx, domain.InvoiceFilter{Status: &pending, DueBefore: &asOf})
}

// RecordOverdue writes an invoice.overdue event if the invoice is still
// PENDING and past due at asOf. It reports whether an event was written.
func (s *InvoiceService) RecordOverdue(ctx context.Context, id int64, asOf time.Time) (bool, error) {
	recorded := false
	err := s.store.WithinTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !inv.IsOverdue(asOf) {
			return nil
		}
		if err := loadPayments(ctx, q, inv); err != nil {
			return err
		}
		if err := recordEvent(ctx, q, domain.EventInvoiceOverdue, inv, nil, asOf); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// requireCustomer turns a missing customer into a field validation error.
func requireCustomer(ctx context.Context, q repository.Querier, id int64) error {
	if _, err := q.GetCustomer(ctx, id); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			verr := &domain.ValidationError{}
			verr.Add("customer_id", fmt.Sprintf("customer %d does not exist", id))
			return verr
		}
		return err
	}
	return nil
}
