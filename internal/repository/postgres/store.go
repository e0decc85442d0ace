package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/set-night/invoicedesk/internal/repository/sqlc"
	"github.com/shopspring/decimal"
)

// Store implements repository.Store on a pgx pool.
type Store struct {
	*Queries
	db      *pgxpool.Pool
	queries *sqlc.Queries
}

func NewStore(db *pgxpool.Pool) *Store {
	queries := sqlc.New(db)
	return &Store{
		Queries: &Queries{q: queries},
		db:      db,
		queries: queries,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Queries{q: s.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Queries adapts generated sqlc queries to repository.Querier.
type Queries struct {
	q *sqlc.Queries
}

var _ repository.Store = (*Store)(nil)

func (r *Queries) CreateCustomer(ctx context.Context, name string) (*domain.Customer, error) {
	row, err := r.q.CreateCustomer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return rowToCustomer(row), nil
}

func (r *Queries) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	row, err := r.q.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrCustomerNotFound, id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return rowToCustomer(row), nil
}

func (r *Queries) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.q.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	customers := make([]domain.Customer, len(rows))
	for i, row := range rows {
		customers[i] = *rowToCustomer(row)
	}
	return customers, nil
}

func (r *Queries) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	row, err := r.q.CreateInvoice(ctx, sqlc.CreateInvoiceParams{
		CustomerID: params.CustomerID,
		Amount:     params.Amount,
		Currency:   params.Currency,
		IssuedAt:   timeToPgTimestamptz(params.IssuedAt),
		DueAt:      timeToPgTimestamptz(params.DueAt),
		Status:     string(params.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return rowToInvoice(row), nil
}

func (r *Queries) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	row, err := r.q.GetInvoice(ctx, id)
	if err != nil {
		return nil, invoiceErr("get invoice", id, err)
	}
	return rowToInvoice(row), nil
}

func (r *Queries) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	row, err := r.q.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		return nil, invoiceErr("lock invoice", id, err)
	}
	return rowToInvoice(row), nil
}

func (r *Queries) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	arg := sqlc.ListInvoicesParams{
		CustomerID: filter.CustomerID,
		IssuedFrom: timePtrToPgTimestamptz(filter.From),
		IssuedTo:   timePtrToPgTimestamptz(filter.To),
		DueBefore:  timePtrToPgTimestamptz(filter.DueBefore),
	}
	if filter.Status != nil {
		status := string(*filter.Status)
		arg.Status = &status
	}

	rows, err := r.q.ListInvoices(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	invoices := make([]domain.Invoice, len(rows))
	for i, row := range rows {
		invoices[i] = *rowToInvoice(row)
	}
	return invoices, nil
}

func (r *Queries) UpdateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	row, err := r.q.UpdateInvoice(ctx, sqlc.UpdateInvoiceParams{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		Amount:     inv.Amount,
		Currency:   inv.Currency,
		IssuedAt:   timeToPgTimestamptz(inv.IssuedAt),
		DueAt:      timeToPgTimestamptz(inv.DueAt),
	})
	if err != nil {
		return nil, invoiceErr("update invoice", inv.ID, err)
	}
	return rowToInvoice(row), nil
}

func (r *Queries) UpdateInvoiceStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error {
	n, err := r.q.UpdateInvoiceStatus(ctx, sqlc.UpdateInvoiceStatusParams{ID: id, Status: string(status)})
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return nil
}

func (r *Queries) DeleteInvoice(ctx context.Context, id int64) error {
	n, err := r.q.DeleteInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return nil
}

func (r *Queries) CreatePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Payment, error) {
	row, err := r.q.CreatePayment(ctx, sqlc.CreatePaymentParams{
		InvoiceID: invoiceID,
		Amount:    amount,
		PaidAt:    timeToPgTimestamptz(paidAt),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return rowToPayment(row), nil
}

func (r *Queries) ListPayments(ctx context.Context, invoiceIDs []int64) ([]domain.Payment, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.ListPaymentsByInvoices(ctx, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	payments := make([]domain.Payment, len(rows))
	for i, row := range rows {
		payments[i] = *rowToPayment(row)
	}
	return payments, nil
}

func (r *Queries) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	total, err := r.q.SumPayments(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

func (r *Queries) InsertEvent(ctx context.Context, evt domain.Event) (*domain.Event, error) {
	row, err := r.q.InsertOutboxEvent(ctx, sqlc.InsertOutboxEventParams{
		EventType: string(evt.Type),
		InvoiceID: evt.InvoiceID,
		Payload:   evt.Payload,
		CreatedAt: timeToPgTimestamptz(evt.CreatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	return rowToEvent(row), nil
}

func (r *Queries) ListUnpublishedEvents(ctx context.Context, limit, maxAttempts int) ([]domain.Event, error) {
	rows, err := r.q.ListUnpublishedOutboxEvents(ctx, sqlc.ListUnpublishedOutboxEventsParams{
		Limit:    int32(limit),
		Attempts: int32(maxAttempts),
	})
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	events := make([]domain.Event, len(rows))
	for i, row := range rows {
		events[i] = *rowToEvent(row)
	}
	return events, nil
}

func (r *Queries) MarkEventPublished(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.q.MarkOutboxEventPublished(ctx, sqlc.MarkOutboxEventPublishedParams{
		ID:          id,
		PublishedAt: timeToPgTimestamptz(at),
	}); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func (r *Queries) MarkEventFailed(ctx context.Context, id int64, reason string) error {
	if _, err := r.q.MarkOutboxEventFailed(ctx, sqlc.MarkOutboxEventFailedParams{
		ID:        id,
		LastError: &reason,
	}); err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

func (r *Queries) DeletePublishedEvents(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.q.DeletePublishedOutboxEvents(ctx, timeToPgTimestamptz(before))
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	return n, nil
}

func (r *Queries) SeedCustomer(ctx context.Context, c domain.Customer) (bool, error) {
	n, err := r.q.SeedCustomer(ctx, sqlc.SeedCustomerParams{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: timeToPgTimestamptz(orNow(c.CreatedAt)),
	})
	if err != nil {
		return false, fmt.Errorf("seed customer %d: %w", c.ID, err)
	}
	return n > 0, nil
}

func (r *Queries) SeedInvoice(ctx context.Context, inv domain.Invoice) (bool, error) {
	n, err := r.q.SeedInvoice(ctx, sqlc.SeedInvoiceParams{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		Amount:     inv.Amount,
		Currency:   inv.Currency,
		IssuedAt:   timeToPgTimestamptz(inv.IssuedAt),
		DueAt:      timeToPgTimestamptz(inv.DueAt),
		Status:     string(inv.Status),
	})
	if err != nil {
		return false, fmt.Errorf("seed invoice %d: %w", inv.ID, err)
	}
	return n > 0, nil
}

func (r *Queries) SeedPayment(ctx context.Context, p domain.Payment) (bool, error) {
	n, err := r.q.SeedPayment(ctx, sqlc.SeedPaymentParams{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		PaidAt:    timeToPgTimestamptz(p.PaidAt),
	})
	if err != nil {
		return false, fmt.Errorf("seed payment %d: %w", p.ID, err)
	}
	return n > 0, nil
}

func (r *Queries) SyncSequences(ctx context.Context) error {
	if err := r.q.SyncSequences(ctx); err != nil {
		return fmt.Errorf("sync sequences: %w", err)
	}
	return nil
}

func invoiceErr(op string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
