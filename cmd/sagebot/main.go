// Sagebot is the conversational bot server binary.
//
// All configuration is loaded from environment variables (a .env file in the
// working directory is read first if present). The server exposes the chat
// webhook, runs conversation turns through the planner, and optionally sweeps
// due reminders on a cron schedule.
//
// Required environment variables:
//
//	PLANNER_BASE_URL      - planner service base URL (e.g. "https://planner.internal")
//	TELEGRAM_BOT_TOKEN    - bot token (when SAGEBOT_CHANNEL=telegram, the default)
//	MATRIX_HOMESERVER     - homeserver URL (when SAGEBOT_CHANNEL=matrix)
//	MATRIX_USER_ID        - bot's Matrix ID (when SAGEBOT_CHANNEL=matrix)
//	MATRIX_ACCESS_TOKEN   - bot's Matrix access token (when SAGEBOT_CHANNEL=matrix)
//
// Optional environment variables:
//
//	SAGEBOT_LISTEN_ADDR   - HTTP listen address (default ":8080")
//	SAGEBOT_DB_PATH       - path to the SQLite database (default: /data/sagebot.db)
//	SAGEBOT_CHANNEL       - chat transport: "telegram" (default) or "matrix"
//	PLANNER_API_KEY       - bearer token for the planner service
//	PLANNER_TIMEOUT       - planner request timeout (default "30s")
//	WEATHER_API_KEY       - OpenWeatherMap API key
//	SEARCH_API_KEY        - Google Custom Search API key
//	SEARCH_ENGINE_ID      - Google Custom Search engine ID
//	TOPICS_FILE           - YAML file overriding the built-in topic keywords
//	SWEEP_SCHEDULE        - cron expression for the reminder sweep (default "* * * * *";
//	                        set to the empty string to disable and run remindersweep externally)
//	SWEEP_BATCH_SIZE      - max reminders per sweep (default 100)
//	LOG_LEVEL             - "debug", "info", "warn", "error" (default: "info")
//	LOG_FORMAT            - "text" or "json" (default: "text")
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mlemos/sagebot/common/environment"
	"github.com/mlemos/sagebot/internal/sagebot/app"
	"github.com/mlemos/sagebot/internal/sagebot/channel"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
	"github.com/mlemos/sagebot/internal/sagebot/tools"
)

func main() {
	_ = godotenv.Load()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	cfg := app.Config{
		ListenAddr: environment.StringOr("SAGEBOT_LISTEN_ADDR", ":8080"),
		DBPath:     environment.StringOr("SAGEBOT_DB_PATH", "/data/sagebot.db"),
		Channel:    environment.StringOr("SAGEBOT_CHANNEL", "telegram"),
		Planner: planner.HTTPConfig{
			BaseURL: requireEnv("PLANNER_BASE_URL"),
			APIKey:  os.Getenv("PLANNER_API_KEY"),
			Timeout: environment.DurationOr("PLANNER_TIMEOUT", 30*time.Second),
		},
		Weather: tools.WeatherConfig{
			APIKey: os.Getenv("WEATHER_API_KEY"),
		},
		Search: tools.SearchConfig{
			APIKey:   os.Getenv("SEARCH_API_KEY"),
			EngineID: os.Getenv("SEARCH_ENGINE_ID"),
		},
		TopicsFile:     os.Getenv("TOPICS_FILE"),
		SweepSchedule:  sweepSchedule(),
		SweepBatchSize: environment.IntOr("SWEEP_BATCH_SIZE", 100),
	}

	switch cfg.Channel {
	case "matrix":
		cfg.Matrix = channel.MatrixConfig{
			Homeserver:  requireEnv("MATRIX_HOMESERVER"),
			UserID:      requireEnv("MATRIX_USER_ID"),
			AccessToken: requireEnv("MATRIX_ACCESS_TOKEN"),
		}
	default:
		cfg.Telegram = channel.TelegramConfig{
			Token: requireEnv("TELEGRAM_BOT_TOKEN"),
		}
	}

	bot, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize sagebot", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		slog.Error("sagebot exited with error", "err", err)
		os.Exit(1)
	}
}

// sweepSchedule distinguishes "unset" (default sweep) from "set to empty"
// (sweeping disabled, cmd/remindersweep runs externally instead).
func sweepSchedule() string {
	if v, ok := environment.String("SWEEP_SCHEDULE"); ok {
		return v
	}
	return "* * * * *"
}

func requireEnv(key string) string {
	v, err := environment.RequiredString(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	return v
}
