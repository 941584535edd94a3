package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"noiseguard.app/engine/common/id"
	"noiseguard.app/engine/common/llm"
	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/common/otel"
	"noiseguard.app/engine/core/config"
	"noiseguard.app/engine/core/db"
	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/history"
	httprouter "noiseguard.app/engine/internal/http/router"
	"noiseguard.app/engine/internal/provider"
	"noiseguard.app/engine/internal/queue"
	"noiseguard.app/engine/internal/service"
	"noiseguard.app/engine/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "noiseguard server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
	slog.InfoContext(ctx, "typesense connected",
		"alert_collection", cfg.Typesense.AlertCollection,
		"kb_collection", cfg.Typesense.KBCollection)

	stores := store.New(database)

	registry := provider.NewRegistry(
		provider.NewDatadog(),
		provider.NewPagerDuty(),
	)

	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream)
	ingest := service.NewIngestService(registry, stores.Alerts, stores.Configurations, alertHistory, producer)

	eng, err := setupEngine(cfg, stores, alertHistory, knowledge)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize actionability engine", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "engine initialized",
		"strategy", cfg.Engine.Strategy,
		"confidence_threshold", cfg.Engine.ConfidenceThreshold)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Deps{
		Ingest:         ingest,
		Alerts:         stores.Alerts,
		Configurations: stores.Configurations,
		Engine:         eng,
		Recorder:       engine.NewRecorder(stores.Configurations),
		Aggregator:     engine.NewAggregator(stores.Alerts, stores.Configurations),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
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

// setupEngine registers every strategy the deployment can serve. The LLM
// strategy is only registered when a predictor API key is configured.
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

func setupRouter(cfg config.Config, deps httprouter.Deps) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → logs carry trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(gin.Recovery())

	httprouter.SetupRoutes(router, deps)

	return router
}

const banner = `
███╗   ██╗ ██████╗ ██╗███████╗███████╗ ██████╗ ██╗   ██╗ █████╗ ██████╗ ██████╗
████╗  ██║██╔═══██╗██║██╔════╝██╔════╝██╔════╝ ██║   ██║██╔══██╗██╔══██╗██╔══██╗
██╔██╗ ██║██║   ██║██║███████╗█████╗  ██║  ███╗██║   ██║███████║██████╔╝██║  ██║
██║╚██╗██║██║   ██║██║╚════██║██╔══╝  ██║   ██║██║   ██║██╔══██║██╔══██╗██║  ██║
██║ ╚████║╚██████╔╝██║███████║███████╗╚██████╔╝╚██████╔╝██║  ██║██║  ██║██████╔╝
╚═╝  ╚═══╝ ╚═════╝ ╚═╝╚══════╝╚══════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
