package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository/sqlc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamptzConversions(t *testing.T) {
	assert.True(t, pgTimestamptzToTime(pgtype.Timestamptz{}).IsZero())
	assert.Nil(t, pgTimestamptzToTimePtr(pgtype.Timestamptz{}))
	assert.False(t, timeToPgTimestamptz(time.Time{}).Valid)
	assert.False(t, timePtrToPgTimestamptz(nil).Valid)

	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	got := pgTimestamptzToTime(timeToPgTimestamptz(local))
	assert.True(t, got.Equal(local))
	assert.Equal(t, time.UTC, got.Location())
}

func TestRowToInvoice(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := rowToInvoice(sqlc.Invoice{
		ID:         3,
		CustomerID: 1,
		Amount:     decimal.RequireFromString("1500.00"),
		Currency:   "USD",
		IssuedAt:   timeToPgTimestamptz(issued),
		DueAt:      timeToPgTimestamptz(issued.AddDate(0, 0, 30)),
		Status:     "PENDING",
	})

	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "1500.00", inv.Amount.StringFixed(2))
	assert.True(t, inv.DueAt.Equal(issued.AddDate(0, 0, 30)))
}

func TestRowToEvent(t *testing.T) {
	reason := "broker down"
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	evt := rowToEvent(sqlc.OutboxEvent{
		ID:          5,
		EventType:   "invoice.paid",
		InvoiceID:   3,
		Payload:     []byte(`{"invoice_id":3}`),
		PublishedAt: timeToPgTimestamptz(published),
		Attempts:    2,
		LastError:   &reason,
	})

	assert.Equal(t, domain.EventInvoicePaid, evt.Type)
	require.NotNil(t, evt.PublishedAt)
	assert.True(t, evt.PublishedAt.Equal(published))
	assert.Equal(t, 2, evt.Attempts)
	assert.Equal(t, reason, evt.LastError)
}
