package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/domain"
)

const sendTimeout = 10 * time.Second

// Notifier posts short summaries of notable invoice events to a Telegram
// chat (and forum topic, if set). It implements events.Publisher.
type Notifier struct {
	sender  MessageSender
	chatID  int64
	topicID int
}

func NewNotifier(sender MessageSender, chatID int64, topicID int) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, topicID: topicID}
}

// NewBotNotifier creates the bot client from cfg without calling getMe, so
// startup does not depend on Telegram being reachable.
func NewBotNotifier(cfg *config.Config) (*Notifier, error) {
	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewNotifier(b, cfg.NotifyChatID, cfg.NotifyTopicID), nil
}

func (n *Notifier) Publish(ctx context.Context, evt domain.Event) error {
	text, err := FormatEvent(evt)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	text = Truncate(text, config.MaxTelegramMessageLen)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := sendMarkdown(ctx, n.sender, n.chatID, n.topicID, text); err != nil {
		slog.Error("failed to send telegram notification", "type", evt.Type, "event_id", evt.ID, "error", err)
		return fmt.Errorf("notify %s for invoice %d: %w", evt.Type, evt.InvoiceID, err)
	}
	return nil
}

// FormatEvent renders the message for evt. Event types nobody needs to hear
// about render as "".
func FormatEvent(evt domain.Event) (string, error) {
	var title string
	switch evt.Type {
	case domain.EventInvoicePaid:
		title = "✅ *Invoice Paid*"
	case domain.EventInvoiceVoided:
		title = "🚫 *Invoice Voided*"
	case domain.EventInvoiceOverdue:
		title = "⏰ *Invoice Overdue*"
	case domain.EventPaymentRecorded:
		title = "💰 *Payment Recorded*"
	default:
		return "", nil
	}

	p, err := evt.DecodePayload()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n*Invoice:* `#%d`\n*Customer:* `#%d`\n*Amount:* %s %s",
		title, p.InvoiceID, p.CustomerID, p.Amount, Escape(p.Currency))

	switch evt.Type {
	case domain.EventPaymentRecorded:
		if p.Payment != nil {
			fmt.Fprintf(&b, "\n*Payment:* %s %s\n*Paid at:* %s",
				p.Payment.Amount, Escape(p.Currency), p.Payment.PaidAt.UTC().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "\n*Paid so far:* %s %s", p.AmountPaid, Escape(p.Currency))
	case domain.EventInvoiceOverdue:
		fmt.Fprintf(&b, "\n*Due:* %s\n*Paid so far:* %s %s",
			p.DueAt.UTC().Format(time.DateOnly), p.AmountPaid, Escape(p.Currency))
	case domain.EventInvoiceVoided:
		fmt.Fprintf(&b, "\n*Issued:* %s", p.IssuedAt.UTC().Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "\n*Time:* %s", p.OccurredAt.UTC().Format("2006-01-02 15:04:05"))
	return b.String(), nil
}
