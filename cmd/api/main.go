package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabrichouse/inventory-backend/api/routes"
	"github.com/fabrichouse/inventory-backend/internal/analytics"
	"github.com/fabrichouse/inventory-backend/internal/imagesearch"
	"github.com/fabrichouse/inventory-backend/internal/stock"
	"github.com/fabrichouse/inventory-backend/internal/tracking"
	"github.com/fabrichouse/inventory-backend/pkg/config"
	"github.com/fabrichouse/inventory-backend/pkg/db"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/metrics"
	"github.com/fabrichouse/inventory-backend/pkg/migrate"
	"github.com/fabrichouse/inventory-backend/pkg/redis"
	"github.com/fabrichouse/inventory-backend/pkg/storage"
	storagelocal "github.com/fabrichouse/inventory-backend/pkg/storage/local"
	storages3 "github.com/fabrichouse/inventory-backend/pkg/storage/s3"
	"github.com/fabrichouse/inventory-backend/pkg/vision"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Info(context.Background(), "redis not configured, analytics cache disabled")
	}

	var blobs storage.Store
	switch strings.ToLower(cfg.Storage.Provider) {
	case config.StorageProviderS3:
		blobs, err = storages3.New(context.Background(), cfg.Storage, cfg.AWS)
	default:
		blobs, err = storagelocal.New(cfg.Storage)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	visionClient := vision.New(context.Background(), cfg.AWS, cfg.Search, logg)

	promRegistry := prometheus.NewRegistry()
	searchMetrics := metrics.NewSearchMetrics(promRegistry)

	trackingService, err := tracking.NewService(tracking.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	stockRepo := stock.NewRepository(dbClient.DB())
	stockService, err := stock.NewService(stockRepo, trackingService, blobs, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(stockRepo, trackingService, redisClient, cfg.Redis.SummaryCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	searchService, err := imagesearch.NewService(stockRepo, visionClient, blobs, cfg.Search, searchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create image search service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Provider,
		"vision":  visionClient.Available(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promRegistry,
			stockService,
			trackingService,
			analyticsService,
			searchService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
