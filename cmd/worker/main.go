package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"noiseguard.app/engine/common/id"
	"noiseguard.app/engine/common/llm"
	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/common/otel"
	"noiseguard.app/engine/core/config"
	"noiseguard.app/engine/core/db"
	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/notifier"
	"noiseguard.app/engine/internal/queue"
	"noiseguard.app/engine/internal/store"
	"noiseguard.app/engine/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "noiseguard worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server so snowflake IDs never collide
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	alertHistory, knowledge, err := setupHistory(ctx, cfg.Typesense)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize typesense", "error", err)
		os.Exit(1)
	}

	stores := store.New(database)

	eng, err := setupEngine(cfg, stores, alertHistory, knowledge)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize actionability engine", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "engine initialized",
		"strategy", cfg.Engine.Strategy,
		"confidence_threshold", cfg.Engine.ConfidenceThreshold)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // Classify one alert at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, stores.Alerts, eng, notifier.NewLogNotifier(), worker.Config{
		MaxAttempts: 3,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer stops quickly; the worker may still be mid-classification
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func setupHistory(ctx context.Context, cfg config.TypesenseConfig) (*history.TypesenseStore, *history.TypesenseStore, error) {
	alertHistory, err := history.NewTypesense(history.Config{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		Collection: cfg.AlertCollection,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("alert history store: %w", err)
	}
	if err := alertHistory.EnsureCollection(ctx); err != nil {
		return nil, nil, fmt.Errorf("alert history collection: %w", err)
	}

	knowledge, err := history.NewTypesense(history.Config{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		Collection: cfg.KBCollection,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge store: %w", err)
	}
	if err := knowledge.EnsureCollection(ctx); err != nil {
		return nil, nil, fmt.Errorf("knowledge collection: %w", err)
	}

	return alertHistory, knowledge, nil
}

func setupEngine(cfg config.Config, stores *store.Store, alertHistory, knowledge history.Store) (*engine.Engine, error) {
	strategies := []engine.Strategy{
		engine.NewRuleScorer(),
		engine.NewClassifier(cfg.Engine.ModelPath),
	}

	if cfg.PredictorLLM.Enabled() {
		client, err := llm.New(llm.Config{
			Provider: cfg.PredictorLLM.Provider,
			APIKey:   cfg.PredictorLLM.APIKey,
			BaseURL:  cfg.PredictorLLM.BaseURL,
			Model:    cfg.PredictorLLM.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
		strategies = append(strategies, engine.NewLLMPredictor(client, alertHistory, knowledge))
	}

	aggregator := engine.NewAggregator(stores.Alerts, stores.Configurations)
	engineer := engine.NewEngineer(alertHistory)

	return engine.New(aggregator, engineer, cfg.Engine.Strategy, cfg.Engine.ConfidenceThreshold, strategies...)
}

const banner = `
███╗   ██╗ ██████╗ ██╗███████╗███████╗ ██████╗ ██╗   ██╗ █████╗ ██████╗ ██████╗
████╗  ██║██╔═══██╗██║██╔════╝██╔════╝██╔════╝ ██║   ██║██╔══██╗██╔══██╗██╔══██╗
██╔██╗ ██║██║   ██║██║███████╗█████╗  ██║  ███╗██║   ██║███████║██████╔╝██║  ██║
██║╚██╗██║██║   ██║██║╚════██║██╔══╝  ██║   ██║██║   ██║██╔══██║██╔══██╗██║  ██║
██║ ╚████║╚██████╔╝██║███████║███████╗╚██████╔╝╚██████╔╝██║  ██║██║  ██║██████╔╝
╚═╝  ╚═══╝ ╚═════╝ ╚═╝╚══════╝╚══════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
