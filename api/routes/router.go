package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courierloop/courierloop-backend/api/controllers"
	"github.com/courierloop/courierloop-backend/api/middleware"
	"github.com/courierloop/courierloop-backend/internal/conditions"
	"github.com/courierloop/courierloop-backend/internal/drivers"
	"github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/internal/refresh"
	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/db"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	refreshService refresh.Service,
	driversService drivers.Service,
	conditionsService conditions.Service,
	ordersService orders.Service,
	hub *realtime.Hub,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP db.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	refreshPolicy := middleware.NewRateLimitPolicy(
		"route_refresh",
		cfg.RateLimit.RefreshWindow,
		cfg.RateLimit.RefreshIPLimit,
		cfg.RateLimit.RefreshActorLimit,
	)
	reportPolicy := middleware.NewRateLimitPolicy(
		"report_condition",
		cfg.RateLimit.ReportWindow,
		cfg.RateLimit.ReportIPLimit,
		cfg.RateLimit.ReportActorLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/route", func(r chi.Router) {
			limited := r.With(middleware.RateLimit(refreshPolicy, redisClient, logg))
			limited.Post("/optimize", controllers.RouteOptimize(refreshService, logg))
			limited.Post("/refresh", controllers.RouteRefresh(refreshService, logg))
			r.Get("/current/{driverID}", controllers.RouteCurrent(refreshService, logg))
			r.Post("/update-location", controllers.RouteUpdateLocation(driversService, logg))
			r.With(middleware.RateLimit(reportPolicy, redisClient, logg)).
				Post("/report-condition", controllers.RouteReportCondition(conditionsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/customer", controllers.CustomerOrders(ordersService, logg))
			r.Get("/driver/{driverID}", controllers.DriverOrders(ordersService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Get("/", controllers.AdminOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderID}/assign", controllers.OrderAssign(ordersService, logg))
		})

		r.Put("/delivery/update/{orderID}", controllers.DeliveryUpdate(ordersService, logg))
		r.Get("/realtime/subscribe", controllers.RealtimeSubscribe(hub, logg))
	})

	return r
}
