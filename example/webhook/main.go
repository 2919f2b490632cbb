// Command webhook runs a push-model update receiver: Telegram delivers
// updates to an HTTP endpoint and each one is logged.
//
// Configuration comes from the environment (a .env file is honored):
//
//	TGBOT_TOKEN           bot token (required)
//	TGBOT_WEBHOOK_ADDR    listen address (default :8080)
//	TGBOT_WEBHOOK_SECRET  optional X-Telegram-Bot-Api-Secret-Token value
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vldm/tgbot"
	"github.com/vldm/tgbot/methods"
	"github.com/vldm/tgbot/types"
)

func main() {
	godotenv.Load()

	logger := tgbot.NewLogger(slog.LevelDebug, "")

	api, err := tgbot.New(os.Getenv("TGBOT_TOKEN"), tgbot.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := tgbot.Execute[types.User](ctx, api, methods.GetMe{})
	if err != nil {
		logger.Error("getMe failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bot started", "username", me.Username, "id", me.ID)

	handler := tgbot.UpdateHandlerFunc(func(ctx context.Context, update types.Update) error {
		attrs := []any{"update_id", update.ID, "type", update.Type()}
		if chatID, ok := update.ChatID(); ok {
			attrs = append(attrs, "chat_id", chatID)
		}
		if from := update.From(); from != nil {
			attrs = append(attrs, "from_id", from.ID)
		}
		logger.Info("update received", attrs...)
		return nil
	})

	var whOpts []tgbot.WebhookOption
	secret := os.Getenv("TGBOT_WEBHOOK_SECRET")
	if secret != "" {
		whOpts = append(whOpts, tgbot.WithWebhookSecret(secret))
	}
	wh := tgbot.NewWebhookHandler(handler, logger, whOpts...)

	addr := os.Getenv("TGBOT_WEBHOOK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cfg := tgbot.WebhookConfig{
		Addr:   addr,
		Path:   "/",
		Secret: secret,
	}
	if err := tgbot.StartWebhookServer(ctx, cfg, wh, logger); err != nil {
		logger.Error("webhook server failed", "error", err)
		os.Exit(1)
	}
}
