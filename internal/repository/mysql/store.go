package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/shopspring/decimal"
)

const invoiceColumns = "id, customer_id, amount, currency, issued_at, due_at, status, created_at, updated_at"

const eventColumns = "id, event_type, invoice_id, payload, created_at, published_at, attempts, last_error"

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store on a MySQL database/sql handle.
type Store struct {
	*Queries
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	now := func() time.Time { return time.Now().UTC() }
	return &Store{
		Queries: &Queries{db: db, now: now},
		db:      db,
		now:     now,
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{db: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Queries runs statements against either the pool or a transaction.
type Queries struct {
	db  dbtx
	now func() time.Time
}

func (q *Queries) CreateCustomer(ctx context.Context, name string) (*domain.Customer, error) {
	createdAt := q.now()
	res, err := q.db.ExecContext(ctx, "INSERT INTO customers (name, created_at) VALUES (?, ?)", name, createdAt)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &domain.Customer{ID: id, Name: name, CreatedAt: createdAt}, nil
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := q.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM customers WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrCustomerNotFound, id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (q *Queries) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name, created_at FROM customers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (q *Queries) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO invoices (customer_id, amount, currency, issued_at, due_at, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		params.CustomerID, params.Amount, params.Currency, params.IssuedAt, params.DueAt, string(params.Status), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &domain.Invoice{
		ID:         id,
		CustomerID: params.CustomerID,
		Amount:     params.Amount,
		Currency:   params.Currency,
		IssuedAt:   params.IssuedAt,
		DueAt:      params.DueAt,
		Status:     params.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (q *Queries) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, invoiceErr("get invoice", id, err)
	}
	return inv, nil
}

func (q *Queries) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ? FOR UPDATE", id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, invoiceErr("lock invoice", id, err)
	}
	return inv, nil
}

func (q *Queries) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	query, args := buildListInvoices(filter)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func buildListInvoices(filter domain.InvoiceFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, *filter.CustomerID)
	}
	if filter.From != nil {
		where = append(where, "issued_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "issued_at <= ?")
		args = append(args, filter.To.UTC())
	}
	if filter.DueBefore != nil {
		where = append(where, "due_at < ?")
		args = append(args, filter.DueBefore.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + invoiceColumns + " FROM invoices")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY issued_at DESC, id DESC")
	return b.String(), args
}

func (q *Queries) UpdateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		"UPDATE invoices SET customer_id = ?, amount = ?, currency = ?, issued_at = ?, due_at = ?, updated_at = ? WHERE id = ?",
		inv.CustomerID, inv.Amount, inv.Currency, inv.IssuedAt, inv.DueAt, now, inv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	if err := requireRow(res, inv.ID); err != nil {
		return nil, err
	}
	updated := *inv
	updated.UpdatedAt = now
	return &updated, nil
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error {
	res, err := q.db.ExecContext(ctx, "UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?", string(status), q.now(), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return requireRow(res, id)
}

func (q *Queries) DeleteInvoice(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return requireRow(res, id)
}

func (q *Queries) CreatePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Payment, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO payments (invoice_id, amount, paid_at, created_at) VALUES (?, ?, ?, ?)",
		invoiceID, amount, paidAt, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &domain.Payment{ID: id, InvoiceID: invoiceID, Amount: amount, PaidAt: paidAt, CreatedAt: now}, nil
}

func (q *Queries) ListPayments(ctx context.Context, invoiceIDs []int64) ([]domain.Payment, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(invoiceIDs)), ", ")
	args := make([]any, len(invoiceIDs))
	for i, id := range invoiceIDs {
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT id, invoice_id, amount, paid_at, created_at FROM payments WHERE invoice_id IN ("+placeholders+") ORDER BY paid_at, id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ?", invoiceID).
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

func (q *Queries) InsertEvent(ctx context.Context, evt domain.Event) (*domain.Event, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO outbox_events (event_type, invoice_id, payload, created_at) VALUES (?, ?, ?, ?)",
		string(evt.Type), evt.InvoiceID, []byte(evt.Payload), evt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	evt.ID = id
	return &evt, nil
}

func (q *Queries) ListUnpublishedEvents(ctx context.Context, limit, maxAttempts int) ([]domain.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM outbox_events WHERE published_at IS NULL AND attempts < ? ORDER BY id LIMIT ?",
		maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			evt         domain.Event
			eventType   string
			payload     []byte
			publishedAt sql.NullTime
			lastError   sql.NullString
		)
		if err := rows.Scan(&evt.ID, &eventType, &evt.InvoiceID, &payload, &evt.CreatedAt, &publishedAt, &evt.Attempts, &lastError); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		evt.Type = domain.EventType(eventType)
		evt.Payload = payload
		if publishedAt.Valid {
			t := publishedAt.Time
			evt.PublishedAt = &t
		}
		evt.LastError = lastError.String
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (q *Queries) MarkEventPublished(ctx context.Context, id int64, at time.Time) error {
	if _, err := q.db.ExecContext(ctx, "UPDATE outbox_events SET published_at = ?, last_error = NULL WHERE id = ?", at, id); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func (q *Queries) MarkEventFailed(ctx context.Context, id int64, reason string) error {
	if _, err := q.db.ExecContext(ctx, "UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ?", reason, id); err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

func (q *Queries) DeletePublishedEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	return n, nil
}

func (q *Queries) SeedCustomer(ctx context.Context, c domain.Customer) (bool, error) {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = q.now()
	}
	res, err := q.db.ExecContext(ctx, "INSERT IGNORE INTO customers (id, name, created_at) VALUES (?, ?, ?)", c.ID, c.Name, createdAt)
	if err != nil {
		return false, fmt.Errorf("seed customer %d: %w", c.ID, err)
	}
	return inserted(res)
}

func (q *Queries) SeedInvoice(ctx context.Context, inv domain.Invoice) (bool, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx,
		"INSERT IGNORE INTO invoices (id, customer_id, amount, currency, issued_at, due_at, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		inv.ID, inv.CustomerID, inv.Amount, inv.Currency, inv.IssuedAt, inv.DueAt, string(inv.Status), now, now,
	)
	if err != nil {
		return false, fmt.Errorf("seed invoice %d: %w", inv.ID, err)
	}
	return inserted(res)
}

func (q *Queries) SeedPayment(ctx context.Context, p domain.Payment) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT IGNORE INTO payments (id, invoice_id, amount, paid_at, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.InvoiceID, p.Amount, p.PaidAt, q.now(),
	)
	if err != nil {
		return false, fmt.Errorf("seed payment %d: %w", p.ID, err)
	}
	return inserted(res)
}

// SyncSequences is a no-op: InnoDB moves AUTO_INCREMENT past explicitly
// inserted ids on its own.
func (q *Queries) SyncSequences(ctx context.Context) error {
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (*domain.Invoice, error) {
	var (
		inv    domain.Invoice
		status string
	)
	if err := row.Scan(
		&inv.ID,
		&inv.CustomerID,
		&inv.Amount,
		&inv.Currency,
		&inv.IssuedAt,
		&inv.DueAt,
		&status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return nil
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func invoiceErr(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
