package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/set-night/invoicedesk/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoice(t *testing.T, s *memory.Store, issued time.Time) *domain.Invoice {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, "Acme")
	require.NoError(t, err)
	inv, err := s.CreateInvoice(ctx, domain.InvoiceParams{
		CustomerID: c.ID,
		Amount:     decimal.NewFromInt(100),
		Currency:   "USD",
		IssuedAt:   issued,
		DueAt:      issued.AddDate(0, 0, 30),
		Status:     domain.InvoiceStatusDraft,
	})
	require.NoError(t, err)
	return inv
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	inv := newInvoice(t, s, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(q repository.Querier) error {
		require.NoError(t, q.UpdateInvoiceStatus(ctx, inv.ID, domain.InvoiceStatusPending))
		_, err := q.CreatePayment(ctx, inv.ID, decimal.NewFromInt(10), time.Now())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusDraft, got.Status)

	total, err := s.SumPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestWithinTx_RollbackKeepsConcurrentWrites(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	created := make(chan *domain.Customer, 1)
	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(q repository.Querier) error {
		go func() {
			c, err := s.CreateCustomer(ctx, "Outside")
			assert.NoError(t, err)
			created <- c
		}()
		time.Sleep(20 * time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)

	c := <-created
	require.NotNil(t, c)
	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Outside", got.Name)

	next, err := s.CreateCustomer(ctx, "Next")
	require.NoError(t, err)
	assert.Greater(t, next.ID, c.ID)
}

func TestListInvoices_OrderAndFilter(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newInvoice(t, s, day)
	second := newInvoice(t, s, day.AddDate(0, 0, 5))
	third := newInvoice(t, s, day.AddDate(0, 0, 5))

	all, err := s.ListInvoices(ctx, domain.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	customer := first.CustomerID
	own, err := s.ListInvoices(ctx, domain.InvoiceFilter{CustomerID: &customer})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, first.ID, own[0].ID)
}

func TestDeleteInvoice_CascadesPayments(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	inv := newInvoice(t, s, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := s.CreatePayment(ctx, inv.ID, decimal.NewFromInt(5), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))

	payments, err := s.ListPayments(ctx, []int64{inv.ID})
	require.NoError(t, err)
	assert.Empty(t, payments)

	err = s.DeleteInvoice(ctx, inv.ID)
	assert.True(t, errors.Is(err, domain.ErrInvoiceNotFound))
}

func TestOutboxLifecycle(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.InsertEvent(ctx, domain.Event{Type: domain.EventInvoiceCreated, InvoiceID: int64(i + 1), Payload: []byte(`{}`)})
		require.NoError(t, err)
	}

	pending, err := s.ListUnpublishedEvents(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)

	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkEventPublished(ctx, 1, published))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.MarkEventFailed(ctx, 2, "down"))
	}

	pending, err = s.ListUnpublishedEvents(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].ID)

	n, err := s.DeletePublishedEvents(ctx, published.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, s.Events(), 2)
}

func TestSeedAndSyncSequences(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	ok, err := s.SeedCustomer(ctx, domain.Customer{ID: 10, Name: "Seeded"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SeedCustomer(ctx, domain.Customer{ID: 10, Name: "Duplicate"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SeedInvoice(ctx, domain.Invoice{ID: 1, CustomerID: 99})
	assert.True(t, errors.Is(err, domain.ErrCustomerNotFound))

	require.NoError(t, s.SyncSequences(ctx))
	c, err := s.CreateCustomer(ctx, "Next")
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.ID)
}
