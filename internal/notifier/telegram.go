package notifier

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/jobspot/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

// Sender is the part of the Telegram bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends batches to every channel listed in the batch.
type TelegramNotifier struct {
	api    Sender
	logger *slog.Logger
}

// NewTelegramNotifier returns a notifier that delivers through api.
func NewTelegramNotifier(api Sender, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{api: api, logger: logger}
}

// Notify sends the batch to each channel. A failing channel is logged and
// does not stop delivery to the others; an error is returned only when
// every channel failed.
func (t *TelegramNotifier) Notify(ctx context.Context, b model.Batch) error {
	if len(b.Listings) == 0 {
		return nil
	}
	if len(b.Channels) == 0 {
		t.logger.Warn("no notification channels configured, dropping batch", "listings", len(b.Listings))
		return nil
	}

	texts := formatTelegram(b)
	failures := 0
	for _, chatID := range b.Channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.sendAll(chatID, texts); err != nil {
			t.logger.Error("telegram notification failed", "chat_id", chatID, "error", err)
			failures++
		}
	}

	if failures == len(b.Channels) {
		return fmt.Errorf("all %d telegram channels failed", failures)
	}
	t.logger.Info("telegram notifications complete", "sent", len(b.Channels)-failures, "failed", failures)
	return nil
}

func (t *TelegramNotifier) sendAll(chatID int64, texts []string) error {
	for _, text := range texts {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}
