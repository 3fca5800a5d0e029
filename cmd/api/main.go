package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/courierloop/courierloop-backend/api/routes"
	"github.com/courierloop/courierloop-backend/internal/conditions"
	"github.com/courierloop/courierloop-backend/internal/drivers"
	"github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/internal/refresh"
	"github.com/courierloop/courierloop-backend/internal/routing"
	"github.com/courierloop/courierloop-backend/internal/routing/mapdirections"
	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/db"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/metrics"
	"github.com/courierloop/courierloop-backend/pkg/migrate"
	"github.com/courierloop/courierloop-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	refreshMx := metrics.NewRefreshMetrics(registry)
	broadcastMx := metrics.NewBroadcastMetrics(registry)

	hub := realtime.NewHub(cfg.Broadcast, broadcastMx, logg)

	var provider routing.Provider
	if cfg.Routing.APIKey != "" {
		directions, err := mapdirections.NewClient(
			cfg.Routing.APIKey,
			mapdirections.WithBaseURL(cfg.Routing.BaseURL),
			mapdirections.WithProfile(cfg.Routing.Profile),
			mapdirections.WithHTTPClient(&http.Client{Timeout: cfg.Routing.RequestTimeout}),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create directions client", err)
			os.Exit(1)
		}
		provider = directions
	} else {
		logg.Warn(context.Background(), "routing api key not set, falling back to straight-line estimates")
	}

	conditionsService, err := conditions.NewService(redisClient, cfg.Conditions, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create conditions service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, cfg.Pricing, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	driversService, err := drivers.NewService(drivers.NewLocationRepository(dbClient.DB()), ordersRepo, hub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create drivers service", err)
		os.Exit(1)
	}

	refreshService, err := refresh.NewService(
		refresh.NewRouteRepository(dbClient.DB()),
		ordersRepo,
		conditionsService,
		provider,
		dbClient,
		hub,
		refreshMx,
		cfg.Routing,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			refreshService,
			driversService,
			conditionsService,
			ordersService,
			hub,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
