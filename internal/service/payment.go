package service

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/shopspring/decimal"
)

type PaymentService struct {
	store repository.Store
	now   func() time.Time
}

func NewPaymentService(store repository.Store) *PaymentService {
	return &PaymentService{store: store, now: utcNow}
}

// RecordPayment atomically applies a payment to a PENDING invoice. The
// invoice row stays locked while the running total is checked, so concurrent
// payments can never push it past the invoice amount. The payment that
// completes the balance moves the invoice to PAID.
func (s *PaymentService) RecordPayment(ctx context.Context, invoiceID int64, params domain.PaymentParams) (*domain.Payment, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	paidAt := now
	if params.PaidAt != nil {
		paidAt = params.PaidAt.UTC()
	}

	var payment *domain.Payment
	err := s.store.WithinTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		switch inv.Status {
		case domain.InvoiceStatusPending:
		case domain.InvoiceStatusDraft:
			return fmt.Errorf("%w: drafts cannot accept payments before being posted", domain.ErrPaymentNotAllowed)
		default:
			return fmt.Errorf("%w: cannot record payment for invoice with status %s", domain.ErrPaymentNotAllowed, inv.Status)
		}

		paid, err := q.SumPayments(ctx, inv.ID)
		if err != nil {
			return err
		}
		remaining := inv.Amount.Sub(paid)
		if params.Amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: payment amount %s exceeds remaining balance %s",
				domain.ErrOverpayment, params.Amount.StringFixed(2), remaining.StringFixed(2))
		}

		p, err := q.CreatePayment(ctx, inv.ID, params.Amount, paidAt)
		if err != nil {
			return err
		}

		if err := loadPayments(ctx, q, inv); err != nil {
			return err
		}
		if err := recordEvent(ctx, q, domain.EventPaymentRecorded, inv, p, now); err != nil {
			return err
		}

		if paid.Add(params.Amount).GreaterThanOrEqual(inv.Amount) {
			if err := q.UpdateInvoiceStatus(ctx, inv.ID, domain.InvoiceStatusPaid); err != nil {
				return err
			}
			inv.Status = domain.InvoiceStatusPaid
			if err := recordEvent(ctx, q, domain.EventInvoicePaid, inv, p, now); err != nil {
				return err
			}
		}

		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// TotalPaid sums the payments recorded against an invoice.
func (s *PaymentService) TotalPaid(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	if _, err := s.store.GetInvoice(ctx, invoiceID); err != nil {
		return decimal.Zero, err
	}
	total, err := s.store.SumPayments(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total paid: %w", err)
	}
	return total, nil
}
