package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventInvoiceCreated  EventType = "invoice.created"
	EventInvoiceUpdated  EventType = "invoice.updated"
	EventInvoicePosted   EventType = "invoice.posted"
	EventInvoiceVoided   EventType = "invoice.voided"
	EventInvoiceDeleted  EventType = "invoice.deleted"
	EventInvoicePaid     EventType = "invoice.paid"
	EventInvoiceOverdue  EventType = "invoice.overdue"
	EventPaymentRecorded EventType = "payment.recorded"
)

// Event is an outbox row describing a change to an invoice.
type Event struct {
	ID          int64
	Type        EventType
	InvoiceID   int64
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
	LastError   string
}

// EventPayload is the JSON body stored with every invoice event.
type EventPayload struct {
	InvoiceID  int64          `json:"invoice_id"`
	CustomerID int64          `json:"customer_id"`
	Amount     string         `json:"amount"`
	Currency   string         `json:"currency"`
	Status     InvoiceStatus  `json:"status"`
	IssuedAt   time.Time      `json:"issued_at"`
	DueAt      time.Time      `json:"due_at"`
	AmountPaid string         `json:"amount_paid"`
	Payment    *PaymentRecord `json:"payment,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type PaymentRecord struct {
	ID     int64     `json:"id"`
	Amount string    `json:"amount"`
	PaidAt time.Time `json:"paid_at"`
}

// NewInvoiceEvent snapshots inv (and the payment that triggered the event,
// if any) into an unsaved outbox event.
func NewInvoiceEvent(typ EventType, inv *Invoice, payment *Payment, at time.Time) (Event, error) {
	payload := EventPayload{
		InvoiceID:  inv.ID,
		CustomerID: inv.CustomerID,
		Amount:     inv.Amount.StringFixed(2),
		Currency:   inv.Currency,
		Status:     inv.Status,
		IssuedAt:   inv.IssuedAt,
		DueAt:      inv.DueAt,
		AmountPaid: inv.AmountPaid().StringFixed(2),
		OccurredAt: at,
	}
	if payment != nil {
		payload.Payment = &PaymentRecord{
			ID:     payment.ID,
			Amount: payment.Amount.StringFixed(2),
			PaidAt: payment.PaidAt,
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		Type:      typ,
		InvoiceID: inv.ID,
		Payload:   raw,
		CreatedAt: at,
	}, nil
}

// DecodePayload parses the event's JSON payload.
func (e Event) DecodePayload() (EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return EventPayload{}, fmt.Errorf("decode event %d payload: %w", e.ID, err)
	}
	return p, nil
}
