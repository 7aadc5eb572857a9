package notifications

import (
	"context"
	"log/slog"

	"stockbot/src/datamodels"
)

// Notifier delivers one formatted message. Send reports whether delivery succeeded.
type Notifier interface {
	GetName() string
	Send(ctx context.Context, text string) bool
}

// BuildNotifier returns a console notifier for dry runs and a Telegram notifier otherwise.
func BuildNotifier(config *datamodels.BotConfig, secrets *datamodels.Secrets) Notifier {
	if config.App.DryRun || secrets == nil || secrets.TelegramBotToken == "" {
		slog.Info("Using console notifier", "dry_run", config.App.DryRun)
		return NewConsoleNotifier(nil)
	}
	return NewTelegramNotifier(config.Telegram, secrets.TelegramBotToken, secrets.TelegramChatID)
}
