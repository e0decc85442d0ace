package repository

import (
	"context"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
)

// Querier is the set of storage operations available both on a store and
// inside one of its transactions.
//
// Lookups of a missing row return domain.ErrCustomerNotFound or
// domain.ErrInvoiceNotFound (possibly wrapped). Invoices are returned without
// payments; callers load them with ListPayments.
type Querier interface {
	CreateCustomer(ctx context.Context, name string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	// GetInvoiceForUpdate locks the invoice row until the transaction ends.
	GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error
	DeleteInvoice(ctx context.Context, id int64) error

	CreatePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Payment, error)
	// ListPayments returns payments of the given invoices ordered by paid_at, id.
	ListPayments(ctx context.Context, invoiceIDs []int64) ([]domain.Payment, error)
	SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error)

	InsertEvent(ctx context.Context, evt domain.Event) (*domain.Event, error)
	// ListUnpublishedEvents returns up to limit unpublished events with fewer
	// than maxAttempts failed deliveries, oldest first.
	ListUnpublishedEvents(ctx context.Context, limit, maxAttempts int) ([]domain.Event, error)
	MarkEventPublished(ctx context.Context, id int64, at time.Time) error
	MarkEventFailed(ctx context.Context, id int64, reason string) error
	DeletePublishedEvents(ctx context.Context, before time.Time) (int64, error)

	Seeder
}

// Seeder imports rows with fixed ids. Each Seed method reports false when a
// row with that id already exists and leaves it untouched.
type Seeder interface {
	SeedCustomer(ctx context.Context, c domain.Customer) (bool, error)
	SeedInvoice(ctx context.Context, inv domain.Invoice) (bool, error)
	SeedPayment(ctx context.Context, p domain.Payment) (bool, error)
	// SyncSequences moves id generators past the largest stored ids.
	SyncSequences(ctx context.Context) error
}

type Store interface {
	Querier
	// WithinTx runs fn in a transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
	Close()
}

// AttachPayments loads payments for invoices in one query and assigns them.
func AttachPayments(ctx context.Context, q Querier, invoices []domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]int64, len(invoices))
	index := make(map[int64]int, len(invoices))
	for i := range invoices {
		ids[i] = invoices[i].ID
		index[invoices[i].ID] = i
		invoices[i].Payments = []domain.Payment{}
	}

	payments, err := q.ListPayments(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if i, ok := index[p.InvoiceID]; ok {
			invoices[i].Payments = append(invoices[i].Payments, p)
		}
	}
	return nil
}
