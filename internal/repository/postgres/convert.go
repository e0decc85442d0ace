package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository/sqlc"
)

// pgTimestamptzToTime converts pgtype.Timestamptz to time.Time in UTC.
func pgTimestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time.UTC()
	}
	return time.Time{}
}

// pgTimestamptzToTimePtr converts pgtype.Timestamptz to *time.Time.
func pgTimestamptzToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if ts.Valid {
		t := ts.Time.UTC()
		return &t
	}
	return nil
}

// timeToPgTimestamptz converts time.Time to pgtype.Timestamptz.
func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// timePtrToPgTimestamptz converts *time.Time to pgtype.Timestamptz.
func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func rowToCustomer(row sqlc.Customer) *domain.Customer {
	return &domain.Customer{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}

func rowToInvoice(row sqlc.Invoice) *domain.Invoice {
	return &domain.Invoice{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		IssuedAt:   pgTimestamptzToTime(row.IssuedAt),
		DueAt:      pgTimestamptzToTime(row.DueAt),
		Status:     domain.InvoiceStatus(row.Status),
		CreatedAt:  pgTimestamptzToTime(row.CreatedAt),
		UpdatedAt:  pgTimestamptzToTime(row.UpdatedAt),
	}
}

func rowToPayment(row sqlc.Payment) *domain.Payment {
	return &domain.Payment{
		ID:        row.ID,
		InvoiceID: row.InvoiceID,
		Amount:    row.Amount,
		PaidAt:    pgTimestamptzToTime(row.PaidAt),
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}

func rowToEvent(row sqlc.OutboxEvent) *domain.Event {
	evt := &domain.Event{
		ID:          row.ID,
		Type:        domain.EventType(row.EventType),
		InvoiceID:   row.InvoiceID,
		Payload:     row.Payload,
		CreatedAt:   pgTimestamptzToTime(row.CreatedAt),
		PublishedAt: pgTimestamptzToTimePtr(row.PublishedAt),
		Attempts:    int(row.Attempts),
	}
	if row.LastError != nil {
		evt.LastError = *row.LastError
	}
	return evt
}
