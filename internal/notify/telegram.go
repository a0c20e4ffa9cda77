// Package notify sends operational alerts. The only channel is Telegram,
// disabled unless a bot token is configured.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// messageSender is the slice of the Telegram bot API the notifier uses.
type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramNotifier posts alerts to a Telegram chat.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	log    *logger.Logger
}

// NewTelegramNotifier creates a notifier from a bot token and target chat.
func NewTelegramNotifier(token string, chatID int64, log *logger.Logger) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{sender: bot, chatID: chatID, log: log}, nil
}

// newWithSender is used by tests to inject a fake bot.
func newWithSender(sender messageSender, chatID int64, log *logger.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID, log: log}
}

// NotifyStale reports a dataset whose updates have stopped landing.
func (n *TelegramNotifier) NotifyStale(ctx context.Context, dataset string, age time.Duration) error {
	text := fmt.Sprintf("⚠️ VirusRadar: dataset %q has not been updated for %s",
		dataset, age.Round(time.Hour))
	return n.send(ctx, text)
}

// NotifyUpdateFailure reports a failed dataset download.
func (n *TelegramNotifier) NotifyUpdateFailure(ctx context.Context, dataset string, cause error) error {
	text := fmt.Sprintf("❌ VirusRadar: update of dataset %q failed: %v", dataset, cause)
	return n.send(ctx, text)
}

// NotifyRecovery reports a dataset that updates successfully again.
func (n *TelegramNotifier) NotifyRecovery(ctx context.Context, dataset string) error {
	text := fmt.Sprintf("✅ VirusRadar: dataset %q is updating again", dataset)
	return n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	_, err := n.sender.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: n.chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.log.Debug("telegram alert sent",
		logger.Field{Key: "chat_id", Value: n.chatID},
		logger.Field{Key: "text", Value: text})
	return nil
}
