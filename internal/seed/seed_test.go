package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonSeed = `{
  "customers": [{"id": 1, "name": "Acme Corp"}, {"id": 2, "name": "Globex"}],
  "invoices": [
    {"id": 10, "customer_id": 1, "amount": 1500.00, "currency": "usd",
     "issued_at": "2024-01-01T00:00:00Z", "due_at": "2024-01-31T00:00:00Z", "status": "PENDING"},
    {"id": 11, "customer_id": 2, "amount": "99.90", "currency": "EUR",
     "issued_at": "2024-02-01", "due_at": "2024-02-15", "status": "DRAFT"}
  ],
  "payments": [
    {"id": 100, "invoice_id": 10, "amount": "500.00", "paid_at": "2024-01-10T12:00:00"}
  ]
}`

const yamlSeed = `
customers:
  - id: 1
    name: Acme Corp
invoices:
  - id: 10
    customer_id: 1
    amount: 250.50
    currency: USD
    issued_at: "2024-01-01"
    due_at: "2024-01-31"
    status: paid
payments:
  - id: 100
    invoice_id: 10
    amount: "250.50"
    paid_at: 2024-01-15T09:00:00Z
`

func TestParse_JSON(t *testing.T) {
	f, err := Parse([]byte(jsonSeed), ".json")
	require.NoError(t, err)
	require.Len(t, f.Invoices, 2)
	assert.Equal(t, "1500", f.Invoices[0].Amount.String())
	assert.Equal(t, "99.9", f.Invoices[1].Amount.String())
	assert.True(t, f.Invoices[1].IssuedAt.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.Payments[0].PaidAt.Equal(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)))
}

func TestParse_YAML(t *testing.T) {
	f, err := Parse([]byte(yamlSeed), ".yaml")
	require.NoError(t, err)
	require.Len(t, f.Invoices, 1)
	assert.Equal(t, "250.5", f.Invoices[0].Amount.String())
	assert.True(t, f.Payments[0].PaidAt.Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, f.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlSeed), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Customers, 1)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{{{`), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parsing bad.json")

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestApply_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := Parse([]byte(jsonSeed), ".json")
	require.NoError(t, err)

	res, err := Apply(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, Counts{Inserted: 2}, res.Customers)
	assert.Equal(t, Counts{Inserted: 2}, res.Invoices)
	assert.Equal(t, Counts{Inserted: 1}, res.Payments)

	inv, err := store.GetInvoice(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)

	res, err = Apply(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, Counts{Skipped: 2}, res.Customers)
	assert.Equal(t, Counts{Skipped: 1}, res.Payments)

	// New rows continue after the seeded ids.
	c, err := store.CreateCustomer(ctx, "Initech")
	require.NoError(t, err)
	assert.Greater(t, c.ID, int64(2))
}

func TestApply_RejectsInvalidRows(t *testing.T) {
	f := &File{Invoices: []Invoice{{ID: 1, CustomerID: 1, Currency: "US", Status: "LATE"}}}

	_, err := Apply(context.Background(), memory.NewStore(), f)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "invoices[0].amount")
	assert.Contains(t, verr.Fields, "invoices[0].currency")
	assert.Contains(t, verr.Fields, "invoices[0].status")
}

func TestApply_RollsBackOnMissingCustomer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := Parse([]byte(jsonSeed), ".json")
	require.NoError(t, err)
	f.Customers = f.Customers[:1]

	_, err = Apply(ctx, store, f)
	require.Error(t, err)

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)
}
