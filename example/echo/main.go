// Command echo runs a long-polling bot that echoes every text message back
// to its chat.
//
// Configuration comes from the environment (a .env file is honored):
//
//	TGBOT_TOKEN  bot token (required)
//	TGBOT_PROXY  optional forward proxy, e.g. socks5://127.0.0.1:9050
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

	opts := []tgbot.Option{tgbot.WithLogger(logger)}
	if proxy := os.Getenv("TGBOT_PROXY"); proxy != "" {
		opts = append(opts, tgbot.WithProxy(proxy))
	}
	api, err := tgbot.New(os.Getenv("TGBOT_TOKEN"), opts...)
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
		msg, ok := update.Kind.(*types.MessageUpdate)
		if !ok || msg.Text == "" {
			return nil
		}
		// Send from a separate goroutine so a slow API round-trip never
		// stalls the dispatch sequence.
		go func() {
			_, err := tgbot.Execute[types.Message](ctx, api, methods.SendMessage{
				ChatID: msg.Chat.ID,
				Text:   msg.Text,
			})
			if err != nil {
				logger.Error("echo failed", "chat_id", msg.Chat.ID, "error", err)
			}
		}()
		return nil
	})

	poller := tgbot.NewLongPoller(api, handler)
	if err := poller.Start(ctx); err != nil {
		logger.Error("failed to start polling", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	poller.Stop()
}
