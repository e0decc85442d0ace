package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	s.now = func() time.Time { return fixedNow }
	s.Queries.now = s.now
	return s, mock
}

func invoiceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "customer_id", "amount", "currency", "issued_at", "due_at", "status", "created_at", "updated_at"})
}

func TestCreateCustomer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customers (name, created_at) VALUES (?, ?)")).
		WithArgs("Acme Corp", fixedNow).
		WillReturnResult(sqlmock.NewResult(7, 1))

	c, err := s.CreateCustomer(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "Acme Corp", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCustomer_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at FROM customers WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	_, err := s.GetCustomer(context.Background(), 9)
	assert.True(t, errors.Is(err, domain.ErrCustomerNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoice_ScansRow(t *testing.T) {
	s, mock := newMockStore(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + invoiceColumns + " FROM invoices WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnRows(invoiceRows().AddRow(3, 1, "1500.00", "USD", issued, issued.AddDate(0, 0, 30), "PENDING", issued, issued))

	inv, err := s.GetInvoice(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "1500.00", inv.Amount.StringFixed(2))
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.DueAt.Equal(issued.AddDate(0, 0, 30)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_LocksAndCommits(t *testing.T) {
	s, mock := newMockStore(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE id = ? FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(invoiceRows().AddRow(3, 1, "100.00", "USD", issued, issued, "DRAFT", issued, issued))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?")).
		WithArgs("PENDING", fixedNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(context.Background(), 3)
		if err != nil {
			return err
		}
		return q.UpdateInvoiceStatus(context.Background(), inv.ID, domain.InvoiceStatusPending)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(q repository.Querier) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInvoiceStatus_MissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateInvoiceStatus(context.Background(), 42, domain.InvoiceStatusVoid)
	assert.True(t, errors.Is(err, domain.ErrInvoiceNotFound))
}

func TestBuildListInvoices(t *testing.T) {
	query, args := buildListInvoices(domain.InvoiceFilter{})
	assert.Equal(t, "SELECT "+invoiceColumns+" FROM invoices ORDER BY issued_at DESC, id DESC", query)
	assert.Empty(t, args)

	status := domain.InvoiceStatusPending
	customer := int64(4)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	query, args = buildListInvoices(domain.InvoiceFilter{Status: &status, CustomerID: &customer, From: &from, To: &to})

	assert.Contains(t, query, "WHERE status = ? AND customer_id = ? AND issued_at >= ? AND issued_at <= ?")
	assert.Equal(t, []any{"PENDING", int64(4), from, to}, args)
}

func TestListPayments_UsesPlaceholderPerID(t *testing.T) {
	s, mock := newMockStore(t)
	paid := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE invoice_id IN (?, ?) ORDER BY paid_at, id")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "amount", "paid_at", "created_at"}).
			AddRow(10, 1, "50.00", paid, paid).
			AddRow(11, 2, "25.50", paid, paid))

	payments, err := s.ListPayments(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "25.50", payments[1].Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPayments_EmptyIDsSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	payments, err := s.ListPayments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumPayments(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ?")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("750.25"))

	total, err := s.SumPayments(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "750.25", total.StringFixed(2))
}

func TestListUnpublishedEvents_NullColumns(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_events WHERE published_at IS NULL AND attempts < ? ORDER BY id LIMIT ?")).
		WithArgs(10, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "invoice_id", "payload", "created_at", "published_at", "attempts", "last_error"}).
			AddRow(1, "invoice.posted", 3, []byte(`{"invoice_id":3}`), fixedNow, nil, 0, nil).
			AddRow(2, "invoice.paid", 3, []byte(`{"invoice_id":3}`), fixedNow, nil, 2, "timeout"))

	events, err := s.ListUnpublishedEvents(context.Background(), 50, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventInvoicePosted, events[0].Type)
	assert.Nil(t, events[0].PublishedAt)
	assert.Equal(t, "", events[0].LastError)
	assert.Equal(t, 2, events[1].Attempts)
	assert.Equal(t, "timeout", events[1].LastError)
}

func TestSeedCustomer_SkipsExisting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO customers")).
		WithArgs(int64(1), "Acme", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.SeedCustomer(context.Background(), domain.Customer{ID: 1, Name: "Acme"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetInvoice_DriverError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM invoices").WillReturnError(sql.ErrConnDone)

	_, err := s.GetInvoice(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvoiceNotFound))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
}
