package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/careconnect/unisearch/internal/adapter"
	"github.com/careconnect/unisearch/internal/events"
	"github.com/careconnect/unisearch/internal/searcher/cache"
	"github.com/careconnect/unisearch/internal/searcher/engine"
	"github.com/careconnect/unisearch/internal/searcher/handler"
	"github.com/careconnect/unisearch/internal/searcher/scorer"
	"github.com/careconnect/unisearch/internal/service"
	"github.com/careconnect/unisearch/pkg/config"
	"github.com/careconnect/unisearch/pkg/health"
	"github.com/careconnect/unisearch/pkg/kafka"
	"github.com/careconnect/unisearch/pkg/logger"
	"github.com/careconnect/unisearch/pkg/metrics"
	"github.com/careconnect/unisearch/pkg/middleware"
	"github.com/careconnect/unisearch/pkg/postgres"
	pkgredis "github.com/careconnect/unisearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	slog.Info("datastore connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	docAdapter := adapter.New(cfg.Search.FetchTimeout, adapter.NewPostgresSources(pg.DB)...)

	weights := scorer.Weights{
		Title:   cfg.Search.TitleWeight,
		Body:    cfg.Search.BodyWeight,
		Default: 1.0,
	}
	eng := engine.New(weights, cfg.Search.MaxQueryLength)
	svc := service.New(docAdapter, eng, m)
	defer svc.Close()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	collector := events.NewCollector(
		kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents), 100, 0)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("event collector started", "topic", cfg.Kafka.Topics.SearchEvents)

	invalidator := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.EntityChanges,
		service.HandleEntityChange(svc, queryCache))
	go func() {
		if err := invalidator.Start(ctx); err != nil {
			slog.Error("entity change consumer error", "error", err)
		}
	}()
	slog.Info("index invalidator started", "topic", cfg.Kafka.Topics.EntityChanges)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pg.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d snapshots published", svc.SnapshotCount()),
		}
	})

	h := handler.New(svc, eng, queryCache, collector, m,
		cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/index/build", h.Build)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
