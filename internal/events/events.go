// Package events delivers outbox events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
)

// Publisher delivers a single event. Implementations must be safe to call
// again with the same event: the outbox delivers at least once.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

type PublisherFunc func(ctx context.Context, evt domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, evt domain.Event) error {
	return f(ctx, evt)
}

// Envelope is the wire form of an event.
type Envelope struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	InvoiceID  int64           `json:"invoice_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(evt domain.Event) Envelope {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Envelope{
		ID:         evt.ID,
		Type:       string(evt.Type),
		InvoiceID:  evt.InvoiceID,
		OccurredAt: evt.CreatedAt.UTC(),
		Payload:    payload,
	}
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, evt domain.Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published",
		"event_id", evt.ID,
		"type", evt.Type,
		"invoice_id", evt.InvoiceID,
		"attempts", evt.Attempts,
	)
	return nil
}

func marshalEnvelope(evt domain.Event) ([]byte, error) {
	body, err := json.Marshal(NewEnvelope(evt))
	if err != nil {
		return nil, fmt.Errorf("marshal event %d: %w", evt.ID, err)
	}
	return body, nil
}
