package service

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
)

// recordEvent writes an outbox event in the caller's transaction.
func recordEvent(ctx context.Context, q repository.Querier, typ domain.EventType, inv *domain.Invoice, payment *domain.Payment, at time.Time) error {
	evt, err := domain.NewInvoiceEvent(typ, inv, payment, at)
	if err != nil {
		return err
	}
	if _, err := q.InsertEvent(ctx, evt); err != nil {
		return fmt.Errorf("record %s: %w", typ, err)
	}
	return nil
}

// loadPayments attaches payments to a single invoice.
func loadPayments(ctx context.Context, q repository.Querier, inv *domain.Invoice) error {
	list := []domain.Invoice{*inv}
	if err := repository.AttachPayments(ctx, q, list); err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	inv.Payments = list[0].Payments
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
