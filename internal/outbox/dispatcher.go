// Package outbox relays events recorded alongside invoice changes to the
// configured publishers.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/set-night/invoicedesk/internal/events"
	"github.com/set-night/invoicedesk/internal/repository"
)

const maxErrorLen = 1000

type Dispatcher struct {
	Store        repository.Querier
	Publisher    events.Publisher
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int

	now func() time.Time
}

func NewDispatcher(store repository.Querier, publisher events.Publisher, pollInterval time.Duration, batchSize, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		Store:        store,
		Publisher:    publisher,
		PollInterval: pollInterval,
		BatchSize:    batchSize,
		MaxAttempts:  maxAttempts,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("outbox dispatcher started", "poll_interval", d.PollInterval, "batch_size", d.BatchSize)
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			// Drain backlogs without waiting a full interval per batch.
			for {
				n, err := d.DispatchOnce(ctx)
				if err != nil {
					slog.Error("outbox dispatch failed", "error", err)
					break
				}
				if n < d.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// DispatchOnce publishes one batch of pending events in id order and returns
// how many were handed to the publisher.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	batch, err := d.Store.ListUnpublishedEvents(ctx, d.BatchSize, d.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list unpublished events: %w", err)
	}

	for _, evt := range batch {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		if err := d.Publisher.Publish(ctx, evt); err != nil {
			if merr := d.Store.MarkEventFailed(ctx, evt.ID, failureReason(err)); merr != nil {
				return 0, fmt.Errorf("mark event %d failed: %w", evt.ID, merr)
			}

			attempts := evt.Attempts + 1
			if attempts >= d.MaxAttempts {
				slog.Error("outbox event abandoned",
					"event_id", evt.ID,
					"type", evt.Type,
					"attempts", attempts,
					"error", err,
				)
			} else {
				slog.Warn("outbox publish failed",
					"event_id", evt.ID,
					"type", evt.Type,
					"attempts", attempts,
					"error", err,
				)
			}
			continue
		}

		if err := d.Store.MarkEventPublished(ctx, evt.ID, d.now()); err != nil {
			return 0, fmt.Errorf("mark event %d published: %w", evt.ID, err)
		}
	}
	return len(batch), nil
}

// Prune deletes events published before now minus retention.
func (d *Dispatcher) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := d.Store.DeletePublishedEvents(ctx, d.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return n, nil
}

// failureReason returns err's text as valid UTF-8 of at most maxErrorLen
// bytes, cut on a rune boundary.
func failureReason(err error) string {
	reason := strings.ToValidUTF8(err.Error(), "\uFFFD")
	if len(reason) <= maxErrorLen {
		return reason
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
