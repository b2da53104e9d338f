// Remindersweep runs one reminder delivery batch and exits. It is meant to be
// invoked from an external scheduler (cron, a Cloud Scheduler hit, a systemd
// timer) when the server runs with in-process sweeping disabled.
//
// Required environment variables:
//
//	TELEGRAM_BOT_TOKEN    - bot token (when SAGEBOT_CHANNEL=telegram, the default)
//	MATRIX_HOMESERVER     - homeserver URL (when SAGEBOT_CHANNEL=matrix)
//	MATRIX_USER_ID        - bot's Matrix ID (when SAGEBOT_CHANNEL=matrix)
//	MATRIX_ACCESS_TOKEN   - bot's Matrix access token (when SAGEBOT_CHANNEL=matrix)
//
// Optional environment variables:
//
//	SAGEBOT_DB_PATH       - path to the SQLite database (default: /data/sagebot.db)
//	SAGEBOT_CHANNEL       - chat transport: "telegram" (default) or "matrix"
//	SWEEP_BATCH_SIZE      - max reminders per run (default 100)
//	SWEEP_TIMEOUT         - overall run deadline (default "5m")
//	LOG_LEVEL             - "debug", "info", "warn", "error" (default: "info")
//	LOG_FORMAT            - "text" or "json" (default: "text")
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mlemos/sagebot/common/environment"
	"github.com/mlemos/sagebot/common/trace"
	"github.com/mlemos/sagebot/internal/sagebot/channel"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/reminders"
	"github.com/mlemos/sagebot/internal/sagebot/store"
)

func main() {
	_ = godotenv.Load()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	st, err := store.New(environment.StringOr("SAGEBOT_DB_PATH", "/data/sagebot.db"))
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var ch channel.Channel
	switch environment.StringOr("SAGEBOT_CHANNEL", "telegram") {
	case "matrix":
		ch, err = channel.NewMatrix(channel.MatrixConfig{
			Homeserver:  requireEnv("MATRIX_HOMESERVER"),
			UserID:      requireEnv("MATRIX_USER_ID"),
			AccessToken: requireEnv("MATRIX_ACCESS_TOKEN"),
		})
		if err != nil {
			slog.Error("failed to connect to matrix", "err", err)
			os.Exit(1)
		}
	default:
		ch = channel.NewTelegram(channel.TelegramConfig{
			Token: requireEnv("TELEGRAM_BOT_TOKEN"),
		})
	}

	sweeper := reminders.NewSweeper(st, ch, environment.IntOr("SWEEP_BATCH_SIZE", 100), nil)

	ctx, cancel := context.WithTimeout(context.Background(),
		environment.DurationOr("SWEEP_TIMEOUT", 5*time.Minute))
	defer cancel()
	ctx = trace.WithTraceID(ctx, trace.GenerateID())

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		slog.Error("reminder sweep failed", "err", err)
		os.Exit(1)
	}
	slog.Info("reminder sweep finished", "attempted", n)
}

func requireEnv(key string) string {
	v, err := environment.RequiredString(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	return v
}
