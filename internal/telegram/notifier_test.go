package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	errs []error
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	copied := *params
	f.sent = append(f.sent, &copied)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func invoiceEvent(t *testing.T, typ domain.EventType, payment *domain.Payment) domain.Event {
	t.Helper()
	inv := &domain.Invoice{
		ID:         12,
		CustomerID: 4,
		Amount:     decimal.RequireFromString("250.00"),
		Currency:   "USD",
		IssuedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueAt:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Status:     domain.InvoiceStatusPending,
	}
	if payment != nil {
		inv.Payments = []domain.Payment{*payment}
	}
	evt, err := domain.NewInvoiceEvent(typ, inv, payment, time.Date(2024, 2, 2, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return evt
}

func TestFormatEvent(t *testing.T) {
	payment := &domain.Payment{ID: 1, InvoiceID: 12, Amount: decimal.RequireFromString("100.00"), PaidAt: time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)}

	text, err := FormatEvent(invoiceEvent(t, domain.EventPaymentRecorded, payment))
	require.NoError(t, err)
	assert.Contains(t, text, "*Payment Recorded*")
	assert.Contains(t, text, "*Invoice:* `#12`")
	assert.Contains(t, text, "*Payment:* 100.00 USD")
	assert.Contains(t, text, "*Paid so far:* 100.00 USD")

	text, err = FormatEvent(invoiceEvent(t, domain.EventInvoiceOverdue, nil))
	require.NoError(t, err)
	assert.Contains(t, text, "*Due:* 2024-01-31")

	text, err = FormatEvent(invoiceEvent(t, domain.EventInvoiceCreated, nil))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNotifier_Publish(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, -100123, 7)

	require.NoError(t, n.Publish(context.Background(), invoiceEvent(t, domain.EventInvoicePaid, nil)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(-100123), sender.sent[0].ChatID)
	assert.Equal(t, 7, sender.sent[0].MessageThreadID)
	assert.Equal(t, models.ParseModeMarkdownV1, sender.sent[0].ParseMode)

	require.NoError(t, n.Publish(context.Background(), invoiceEvent(t, domain.EventInvoiceUpdated, nil)))
	assert.Len(t, sender.sent, 1, "ignored event types send nothing")
}

func TestNotifier_FallsBackToPlainText(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("can't parse entities")}}
	n := NewNotifier(sender, 1, 0)

	require.NoError(t, n.Publish(context.Background(), invoiceEvent(t, domain.EventInvoiceVoided, nil)))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.ParseMode(""), sender.sent[1].ParseMode)
}

func TestNotifier_ReturnsSendError(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("down"), errors.New("down")}}
	n := NewNotifier(sender, 1, 0)

	err := n.Publish(context.Background(), invoiceEvent(t, domain.EventInvoicePaid, nil))
	assert.ErrorContains(t, err, "invoice.paid")
}

func TestEscapeAndTruncate(t *testing.T) {
	assert.Equal(t, `a\_b\*c`, Escape("a_b*c"))

	long := "*bold " + strings.Repeat("x", 100)
	out := Truncate(long, 40)
	assert.LessOrEqual(t, len([]rune(out)), 40)
	assert.True(t, strings.HasSuffix(out, "(truncated)"))
	assert.Equal(t, 0, countUnescaped(strings.TrimSuffix(out, "\n\n... (truncated)"), "*")%2)

	assert.Equal(t, "short", Truncate("short", 40))
}
