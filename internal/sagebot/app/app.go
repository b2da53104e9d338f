// Package app assembles the bot from its parts and runs the HTTP server and
// the reminder scheduler until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/channel"
	"github.com/mlemos/sagebot/internal/sagebot/conversation"
	"github.com/mlemos/sagebot/internal/sagebot/engine"
	"github.com/mlemos/sagebot/internal/sagebot/gateway"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
	"github.com/mlemos/sagebot/internal/sagebot/reminders"
	"github.com/mlemos/sagebot/internal/sagebot/store"
	"github.com/mlemos/sagebot/internal/sagebot/tools"
)

// Config carries everything the bot needs to run. The cmd layer fills it from
// the environment.
type Config struct {
	ListenAddr string
	DBPath     string

	// Channel selects the chat transport: "telegram" or "matrix".
	Channel  string
	Telegram channel.TelegramConfig
	Matrix   channel.MatrixConfig

	Planner planner.HTTPConfig
	Weather tools.WeatherConfig
	Search  tools.SearchConfig

	// TopicsFile optionally overrides the built-in topic keyword table.
	TopicsFile string

	// SweepSchedule is a five-field cron expression for the reminder sweep;
	// empty disables in-process sweeping (run cmd/remindersweep instead).
	SweepSchedule  string
	SweepBatchSize int
}

// App is the assembled bot.
type App struct {
	cfg       Config
	store     *store.Store
	server    *http.Server
	scheduler *reminders.Scheduler
}

// New builds the full object graph: store, channel, tool registry, planner
// client, engine, HTTP router, and (when configured) the reminder scheduler.
func New(cfg Config) (*App, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ch, err := buildChannel(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	topics := conversation.DefaultTopics()
	if cfg.TopicsFile != "" {
		topics, err = conversation.LoadTopics(cfg.TopicsFile)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load topics: %w", err)
		}
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewWeatherTool(cfg.Weather))
	registry.Register(tools.NewSearchTool(cfg.Search))
	registry.Register(tools.NewReminderTool(st))

	eng := engine.New(
		st,
		planner.NewHTTP(cfg.Planner),
		registry,
		tools.NewDispatcher(registry),
		ch,
		topics,
		nil,
	)

	app := &App{
		cfg:   cfg,
		store: st,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      gateway.Router(eng),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}

	if cfg.SweepSchedule != "" {
		sweeper := reminders.NewSweeper(st, ch, cfg.SweepBatchSize, nil)
		app.scheduler = reminders.NewScheduler(sweeper, cfg.SweepSchedule)
	}

	return app, nil
}

func buildChannel(cfg Config) (channel.Channel, error) {
	switch cfg.Channel {
	case "", "telegram":
		return channel.NewTelegram(cfg.Telegram), nil
	case "matrix":
		return channel.NewMatrix(cfg.Matrix)
	default:
		return nil, fmt.Errorf("unknown channel %q", cfg.Channel)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start reminder scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return a.store.Close()
}
