package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemon/internal/batch"
	"telemon/internal/config"
	"telemon/internal/consumer"
	"telemon/internal/dedup"
	"telemon/internal/metrics"
	"telemon/internal/ratelimit"
	"telemon/internal/report"
	"telemon/internal/router"
	"telemon/internal/stats"
	"telemon/internal/store"
	"telemon/internal/telegram"
	"telemon/internal/webhook"
)

func main() {
	// Set up structured logging
	// Allow DEBUG level via environment variable for troubleshooting
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "DEBUG" || os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting alertd",
		"environment", cfg.Environment,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"batch_window_minutes", cfg.BatchWindowMinutes,
		"rate_limit_minutes", cfg.AlertRateLimitMinutes,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Shared state store: Redis when configured, otherwise the in-process
	// fallback. The fallback coordinates nothing across the fleet, which
	// is a documented degradation.
	var st store.Store
	var redisStore *store.RedisStore
	if cfg.RedisAddr != "" {
		pingCtx, pingCancel := context.WithTimeout(ctx, cfg.HealthRedisTimeout)
		redisStore, err = store.NewRedisStore(pingCtx, cfg.RedisAddr)
		pingCancel()
		if err != nil {
			slog.Warn("Redis unavailable, falling back to in-process state store",
				"addr", cfg.RedisAddr,
				"error", err,
			)
			st = store.NewLocalStore()
		} else {
			defer redisStore.Close()
			st = redisStore
			slog.Info("Connected to Redis state store", "addr", cfg.RedisAddr)
		}
	} else {
		slog.Warn("No Redis address configured, using in-process state store (no cross-process coordination)")
		st = store.NewLocalStore()
	}

	// Delivery sink.
	var sink router.Sink
	switch {
	case cfg.TelegramConfigured():
		sink = telegram.NewSink(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramThreadID, cfg.MaxMessageLength)
		slog.Info("Using Telegram delivery sink", "chat_id", cfg.TelegramChatID)
	case cfg.WebhookURL != "":
		sink = webhook.NewSink(cfg.WebhookURL)
		slog.Info("Using webhook delivery sink")
	default:
		slog.Error("No delivery sink configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID, or ALERT_WEBHOOK_URL")
		os.Exit(1)
	}

	collector := metrics.NewCollector(metrics.DefaultInstance(), st, cfg.RedisKeyPrefix)
	collector.Start(ctx)
	defer collector.Stop()

	r := router.NewWithMetrics(
		cfg,
		dedup.New(st, cfg.RedisKeyPrefix, cfg.DedupWindow()),
		ratelimit.New(st, cfg.RedisKeyPrefix, cfg.DedupWindow(), int64(cfg.RateLimitMaxPerWindow)),
		batch.New(st, cfg.RedisKeyPrefix, cfg.BatchWindow(), int64(cfg.BatchMaxAlerts), cfg.DefaultTTL()),
		sink,
		collector,
	)

	// Statistics sources for the daily report.
	var statsSource report.StatisticsSource
	if cfg.PostgresDSN != "" {
		pg, err := stats.NewPostgres(cfg.PostgresDSN)
		if err != nil {
			slog.Warn("Statistics database unavailable, daily report will omit statistics", "error", err)
		} else {
			defer pg.Close()
			statsSource = pg
		}
	}
	var queueSource report.QueueHealthSource
	if redisStore != nil {
		queueSource = stats.NewRedisQueue(redisStore.Client(), cfg.QueueKey, cfg.QueueLastJobKey)
	}

	reporter, err := report.NewScheduler(cfg, st, statsSource, queueSource, r)
	if err != nil {
		slog.Error("Failed to create daily report scheduler", "error", err)
		os.Exit(1)
	}
	go reporter.Run(ctx)

	// Periodic flush tick guarantees batch delivery even when no events
	// arrive to drive flush checks.
	go runFlushTicker(ctx, r)

	if cfg.KafkaBrokers == "" {
		slog.Info("No Kafka brokers configured, running timer-driven only")
		<-ctx.Done()
		slog.Info("alertd stopped")
		return
	}

	kafkaConsumer, err := consumer.NewConsumer(cfg.KafkaBrokers, cfg.EventsTopic, cfg.ConsumerGroupID)
	if err != nil {
		slog.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer kafkaConsumer.Close()

	if err := processEvents(ctx, kafkaConsumer, r); err != nil {
		slog.Error("Event processing failed", "error", err)
		os.Exit(1)
	}

	slog.Info("alertd stopped")
}

func runFlushTicker(ctx context.Context, r *router.Router) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.FlushDue(ctx)
		}
	}
}
