package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/schemaflow/schemaflow/pkg/api"
	"github.com/schemaflow/schemaflow/pkg/config"
	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/observability"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("schemaflow: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	httpLogger := logrus.New()
	httpLogger.SetFormatter(&logrus.JSONFormatter{})

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	ctx := context.Background()

	// Migration target database, also used for history persistence.
	db, err := storage.NewConnector(cfg.Database).Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Infof("Connected to %s database", cfg.Database.Dialect)

	historyStore, err := storage.NewSQLHistoryStore(db, cfg.Database.Dialect)
	if err != nil {
		return err
	}

	var history storage.HistoryStore = historyStore
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		cache, err := storage.NewRedisHistoryCache(historyStore,
			cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to set up history cache: %w", err)
		}
		defer cache.Close()
		if metrics != nil {
			cache.SetObservers(metrics.CacheHitsTotal.Inc, metrics.CacheMissesTotal.Inc)
		}
		history = cache
		redisClient = cache.Client()
		logger.Infof("History cache enabled at %s", cfg.Cache.RedisAddr)
	}

	service, err := evolution.NewService(evolution.Options{
		History: history,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	checker := observability.NewHealthChecker(db, redisClient)
	server := api.NewServer(service, db, httpLogger, metrics, checker)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Separate listener for probes and metrics scraping.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	var g errgroup.Group
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.Wait)

	return g.Wait()
}
