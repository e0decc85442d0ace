package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	customers *CustomerService
	invoices  *InvoiceService
	payments  *PaymentService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return testNow }

	f := &fixture{
		store:     store,
		customers: NewCustomerService(store),
		invoices:  NewInvoiceService(store),
		payments:  NewPaymentService(store),
		reports:   NewReportService(store),
	}
	f.invoices.now = clock
	f.payments.now = clock
	return f
}

func (f *fixture) customer(t *testing.T, name string) *domain.Customer {
	t.Helper()
	c, err := f.customers.CreateCustomer(context.Background(), name)
	require.NoError(t, err)
	return c
}

func (f *fixture) invoice(t *testing.T, customerID int64, amount string, status domain.InvoiceStatus) *domain.Invoice {
	t.Helper()
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inv, err := f.invoices.CreateInvoice(context.Background(), domain.InvoiceParams{
		CustomerID: customerID,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "USD",
		IssuedAt:   issued,
		DueAt:      issued.AddDate(0, 0, 30),
		Status:     status,
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) pay(amount string) domain.PaymentParams {
	return domain.PaymentParams{Amount: decimal.RequireFromString(amount)}
}

func eventTypes(store *memory.Store) []domain.EventType {
	var types []domain.EventType
	for _, evt := range store.Events() {
		types = append(types, evt.Type)
	}
	return types
}

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t)

	c, err := f.customers.CreateCustomer(context.Background(), "  Acme Corp  ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", c.Name)

	_, err = f.customers.CreateCustomer(context.Background(), "")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	list, err := f.customers.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateInvoice_DefaultsToDraft(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Acme")

	inv := f.invoice(t, c.ID, "1500.00", "")
	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Empty(t, inv.Payments)
	assert.Equal(t, []domain.EventType{domain.EventInvoiceCreated}, eventTypes(f.store))
}

func TestCreateInvoice_Pending(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Acme")

	inv := f.invoice(t, c.ID, "10.00", domain.InvoiceStatusPending)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, []domain.EventType{domain.EventInvoiceCreated, domain.EventInvoicePosted}, eventTypes(f.store))
}

func TestCreateInvoice_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.invoices.CreateInvoice(context.Background(), domain.InvoiceParams{
		CustomerID: 99,
		Amount:     decimal.NewFromInt(10),
		Currency:   "USD",
		IssuedAt:   issued,
		DueAt:      issued,
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields["customer_id"], "99")
	assert.Empty(t, f.store.Events())
}

func TestPostInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", "")

	posted, err := f.invoices.PostInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, posted.Status)

	_, err = f.invoices.PostInvoice(ctx, inv.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "invoice must be DRAFT to post (current: PENDING)")

	_, err = f.invoices.PostInvoice(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestVoidInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "Acme")

	pending := f.invoice(t, c.ID, "100.00", domain.InvoiceStatusPending)
	voided, err := f.invoices.VoidInvoice(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusVoid, voided.Status)

	_, err = f.invoices.VoidInvoice(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "already void")

	paid := f.invoice(t, c.ID, "50.00", domain.InvoiceStatusPending)
	_, err = f.payments.RecordPayment(ctx, paid.ID, f.pay("50.00"))
	require.NoError(t, err)
	_, err = f.invoices.VoidInvoice(ctx, paid.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "cannot void a paid invoice")

	draft := f.invoice(t, c.ID, "50.00", "")
	_, err = f.invoices.VoidInvoice(ctx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "Acme")

	draft := f.invoice(t, c.ID, "100.00", "")
	require.NoError(t, f.invoices.DeleteDraft(ctx, draft.ID))
	_, err := f.invoices.GetInvoice(ctx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	pending := f.invoice(t, c.ID, "100.00", domain.InvoiceStatusPending)
	err = f.invoices.DeleteDraft(ctx, pending.ID)
	assert.ErrorIs(t, err, domain.ErrNotDraft)

	assert.ErrorIs(t, f.invoices.DeleteDraft(ctx, draft.ID), domain.ErrInvoiceNotFound)
	assert.Contains(t, eventTypes(f.store), domain.EventInvoiceDeleted)
}

func TestUpdateDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "Acme")
	other := f.customer(t, "Globex")
	draft := f.invoice(t, c.ID, "100.00", "")

	amount := decimal.RequireFromString("275.40")
	currency := "eur"
	updated, err := f.invoices.UpdateDraft(ctx, draft.ID, domain.InvoicePatch{
		CustomerID: &other.ID,
		Amount:     &amount,
		Currency:   &currency,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.CustomerID)
	assert.Equal(t, "275.40", updated.Amount.StringFixed(2))
	assert.Equal(t, "EUR", updated.Currency)

	missing := int64(999)
	_, err = f.invoices.UpdateDraft(ctx, draft.ID, domain.InvoicePatch{CustomerID: &missing})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))

	got, err := f.invoices.GetInvoice(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.CustomerID, "failed update leaves the draft unchanged")

	_, err = f.invoices.PostInvoice(ctx, draft.ID)
	require.NoError(t, err)
	_, err = f.invoices.UpdateDraft(ctx, draft.ID, domain.InvoicePatch{Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrNotDraft)
}

func TestRecordPayment_RejectsDraft(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", "")

	_, err := f.payments.RecordPayment(context.Background(), inv.ID, f.pay("10.00"))
	require.ErrorIs(t, err, domain.ErrPaymentNotAllowed)
	assert.Contains(t, err.Error(), "drafts cannot accept payments before being posted")
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "1500.00", domain.InvoiceStatusPending)

	p, err := f.payments.RecordPayment(ctx, inv.ID, f.pay("500.00"))
	require.NoError(t, err)
	assert.True(t, p.PaidAt.Equal(testNow), "paid_at defaults to now")

	got, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, got.Status)
	assert.Equal(t, "1000.00", got.BalanceDue().StringFixed(2))

	paidAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.payments.RecordPayment(ctx, inv.ID, domain.PaymentParams{
		Amount: decimal.RequireFromString("1000.00"),
		PaidAt: &paidAt,
	})
	require.NoError(t, err)

	got, err = f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
	require.Len(t, got.Payments, 2)
	assert.True(t, got.Payments[0].PaidAt.Equal(paidAt), "payments are ordered by paid_at")

	total, err := f.payments.TotalPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500.00", total.StringFixed(2))

	_, err = f.payments.RecordPayment(ctx, inv.ID, f.pay("1.00"))
	require.ErrorIs(t, err, domain.ErrPaymentNotAllowed)
	assert.Contains(t, err.Error(), "status PAID")

	assert.Equal(t, []domain.EventType{
		domain.EventInvoiceCreated,
		domain.EventInvoicePosted,
		domain.EventPaymentRecorded,
		domain.EventPaymentRecorded,
		domain.EventInvoicePaid,
	}, eventTypes(f.store))
}

func TestRecordPayment_Overpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "1000.00", domain.InvoiceStatusPending)

	_, err := f.payments.RecordPayment(ctx, inv.ID, f.pay("400.00"))
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(ctx, inv.ID, f.pay("600.01"))
	require.ErrorIs(t, err, domain.ErrOverpayment)
	assert.Contains(t, err.Error(), "payment amount 600.01 exceeds remaining balance 600.00")

	total, err := f.payments.TotalPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "400.00", total.StringFixed(2))
}

func TestRecordPayment_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", domain.InvoiceStatusPending)

	for _, amount := range []string{"0", "-5", "1.001"} {
		_, err := f.payments.RecordPayment(context.Background(), inv.ID, f.pay(amount))
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr), amount)
	}
}

func TestRecordPayment_VoidAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", domain.InvoiceStatusPending)
	_, err := f.invoices.VoidInvoice(ctx, inv.ID)
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(ctx, inv.ID, f.pay("10.00"))
	require.ErrorIs(t, err, domain.ErrPaymentNotAllowed)
	assert.Contains(t, err.Error(), "status VOID")

	_, err = f.payments.RecordPayment(ctx, 999, f.pay("10.00"))
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestRecordPayment_ConcurrentPaymentsNeverExceedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", domain.InvoiceStatusPending)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.payments.RecordPayment(ctx, inv.ID, f.pay("20.00")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	got, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
	assert.Equal(t, "100.00", got.AmountPaid().StringFixed(2))
}

func TestListInvoices_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.customer(t, "Acme")
	globex := f.customer(t, "Globex")

	f.invoice(t, acme.ID, "100.00", "")
	pending := f.invoice(t, acme.ID, "200.00", domain.InvoiceStatusPending)
	f.invoice(t, globex.ID, "300.00", domain.InvoiceStatusPending)

	status := domain.InvoiceStatusPending
	list, err := f.invoices.ListInvoices(ctx, domain.InvoiceFilter{Status: &status, CustomerID: &acme.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)

	list, err = f.invoices.ListCustomerInvoices(ctx, 12345, domain.InvoiceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, f.customer(t, "Acme").ID, "100.00", domain.InvoiceStatusPending)

	before := inv.DueAt.Add(-time.Hour)
	after := inv.DueAt.Add(time.Hour)

	list, err := f.invoices.ListOverdue(ctx, before)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.invoices.ListOverdue(ctx, after)
	require.NoError(t, err)
	require.Len(t, list, 1)

	ok, err := f.invoices.RecordOverdue(ctx, inv.ID, before)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.invoices.RecordOverdue(ctx, inv.ID, after)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, eventTypes(f.store), domain.EventInvoiceOverdue)
}

func TestReportSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "Acme")

	f.invoice(t, c.ID, "100.00", "")
	partial := f.invoice(t, c.ID, "300.00", domain.InvoiceStatusPending)
	_, err := f.payments.RecordPayment(ctx, partial.ID, f.pay("120.00"))
	require.NoError(t, err)

	asOf := partial.DueAt.Add(24 * time.Hour)
	summary, err := f.reports.Summary(ctx, asOf)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Invoices)
	require.Len(t, summary.Currencies, 1)
	usd := summary.Currencies[0]
	assert.Equal(t, "USD", usd.Currency)
	assert.Equal(t, domain.InvoiceStatusDraft, usd.ByStatus[0].Status)
	assert.Equal(t, 1, usd.ByStatus[0].Count)
	assert.Equal(t, 1, usd.ByStatus[1].Count)
	assert.Equal(t, "120.00", usd.Collected.StringFixed(2))
	assert.Equal(t, "180.00", usd.Outstanding.StringFixed(2))
	assert.Equal(t, 1, usd.OverdueCount)
	assert.Equal(t, "180.00", usd.Overdue.StringFixed(2))
}
