package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// sendMarkdown sends a Markdown message, falling back to plain text if
// Telegram rejects the formatting.
func sendMarkdown(ctx context.Context, s MessageSender, chatID int64, topicID int, text string) error {
	params := &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: topicID,
	}

	_, err := s.SendMessage(ctx, params)
	if err == nil {
		return nil
	}

	slog.Warn("markdown send failed, falling back to plain text", "error", err)
	params.ParseMode = ""
	if _, err := s.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
