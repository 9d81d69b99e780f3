package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/clinicfeedback/internal/cache"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
	"github.com/nikhilbhutani/clinicfeedback/internal/llm"
	"github.com/nikhilbhutani/clinicfeedback/internal/queue"
	"github.com/nikhilbhutani/clinicfeedback/internal/queue/workers"
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
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	gw, err := llm.NewGateway(ctx, cfg.LLM)
	if err != nil {
		slog.Error("failed to init llm gateway", "error", err)
		os.Exit(1)
	}
	base := llm.NewTextCompleter(gw, cfg.LLM)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	cached := cache.NewCompleter(base, cache.NewCache(rdb), cfg.Cache, base.Model(), cfg.Completion.Timeout)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()
	insightsWorker := workers.NewInsightsWorker(cached)
	registry.Register(queue.TypeInsightsRefresh, asynq.HandlerFunc(insightsWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 2, "model", base.Model())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
