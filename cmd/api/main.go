package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/events"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logger"
	"docvault/internal/otel"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// @title docvault API
// @version 1.0
// @BasePath /
func main() {
	// .env is auto-loaded if present
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		fatal(log, "tracing_init_failed", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		fatal(log, "db_connect_failed", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		fatal(log, "migration_failed", err)
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		fatal(log, "storage_init_failed", err)
	}

	var blobCache cache.BlobCache = cache.Noop{}
	var cacheHealth cache.Pinger
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// The cache is an optimisation; run without it.
			log.Warn("cache_disabled", err, map[string]any{"redis_addr": cfg.Redis.Addr})
		} else {
			defer client.Close()
			redisCache := cache.NewRedis(client, time.Duration(cfg.Redis.TTLSec)*time.Second, cfg.Redis.MaxBlobBytes)
			blobCache, cacheHealth = redisCache, redisCache
			log.Info("cache_enabled", map[string]any{"redis_addr": cfg.Redis.Addr})
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQP.URL != "" {
		p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			fatal(log, "events_init_failed", err)
		}
		defer p.Close()
		publisher = p
		log.Info("events_enabled", map[string]any{"exchange": cfg.AMQP.Exchange})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		fatal(log, "metrics_init_failed", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(log, "metrics_init_failed", err)
	}

	docSvc := service.NewDocumentService(
		objStore,
		postgres.NewDocumentPostgres(db),
		postgres.NewHistoryPostgres(db),
		service.Options{
			Cache:              blobCache,
			Events:             publisher,
			Metrics:            metrics,
			Logger:             log,
			HistoryGracePeriod: cfg.Versioning.HistoryGracePeriod(),
		},
	)
	retry := service.RetryPolicy{
		MaxAttempts:     cfg.Versioning.EditMaxAttempts,
		InitialInterval: cfg.Versioning.RetryInitialInterval(),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(app, db, cacheHealth, docSvc, retry)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error("server_shutdown_failed", err, nil)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server_starting", map[string]any{"addr": addr})
	if err := app.Listen(addr); err != nil {
		fatal(log, "server_failed", err)
	}
	log.Info("server_stopped", nil)
}

func fatal(log *logger.Logger, msg string, err error) {
	log.Error(msg, err, nil)
	os.Exit(1)
}
