package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/clinicfeedback/internal/api"
	"github.com/nikhilbhutani/clinicfeedback/internal/api/handlers"
	"github.com/nikhilbhutani/clinicfeedback/internal/assistant"
	"github.com/nikhilbhutani/clinicfeedback/internal/cache"
	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
	"github.com/nikhilbhutani/clinicfeedback/internal/insights"
	"github.com/nikhilbhutani/clinicfeedback/internal/llm"
	"github.com/nikhilbhutani/clinicfeedback/internal/queue"
	"github.com/nikhilbhutani/clinicfeedback/internal/reply"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("completion providers incomplete, AI features will fail", "error", err)
	}

	ctx := context.Background()

	gw, err := llm.NewGateway(ctx, cfg.LLM)
	if err != nil {
		slog.Error("failed to init llm gateway", "error", err)
		os.Exit(1)
	}
	base := llm.NewTextCompleter(gw, cfg.LLM)
	var insightsCompleter completion.Completer = base

	// Redis connection (optional)
	health := map[string]handlers.Pinger{}
	var refresher handlers.Refresher
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and queue", "error", err)
	} else {
		rc := cache.NewCache(rdb)
		health["redis"] = rc
		if cfg.Cache.Enabled {
			insightsCompleter = cache.NewCompleter(base, rc, cfg.Cache, base.Model(), cfg.Completion.Timeout)
		}

		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		refresher = qc
	}

	store := review.NewStore(review.Fixtures())
	ins := insights.NewService(store, insightsCompleter, cfg.Completion.Timeout)
	profile := clinic.NewProfile(clinic.Info{Name: cfg.Clinic.Name, Logo: cfg.Clinic.Logo})
	chat := assistant.NewChat(base, cfg.Completion, profile)
	defer chat.Close()
	drafter := reply.NewDrafter(store, base, cfg.Completion.Timeout)

	if cfg.Completion.AutoInsights {
		if _, err := ins.Generate(); err != nil {
			slog.Warn("auto insights not started", "error", err)
		}
	}

	router := api.NewRouter(cfg, api.Deps{
		Clinic:    profile,
		Reviews:   store,
		Insights:  ins,
		Assistant: chat,
		Drafter:   drafter,
		Models:    gw,
		Health:    health,
		Refresher: refresher,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router.Setup(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: event streams stay open for the life of the client.
		IdleTimeout: 120 * time.Second,
	}
	srv.RegisterOnShutdown(router.StopStreams)

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "provider", cfg.LLM.DefaultProvider, "model", base.Model())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
