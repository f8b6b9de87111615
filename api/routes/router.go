package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabrichouse/inventory-backend/api/controllers"
	"github.com/fabrichouse/inventory-backend/api/middleware"
	"github.com/fabrichouse/inventory-backend/internal/analytics"
	"github.com/fabrichouse/inventory-backend/internal/imagesearch"
	stocksvc "github.com/fabrichouse/inventory-backend/internal/stock"
	"github.com/fabrichouse/inventory-backend/internal/tracking"
	"github.com/fabrichouse/inventory-backend/pkg/config"
	"github.com/fabrichouse/inventory-backend/pkg/db"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	stockService stocksvc.Service,
	trackingService tracking.Service,
	analyticsService analytics.Service,
	searchService imagesearch.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	// Local blob storage serves its uploads straight from disk. The S3
	// provider serves public object URLs instead.
	if strings.EqualFold(cfg.Storage.Provider, config.StorageProviderLocal) {
		prefix := strings.TrimSuffix(cfg.Storage.PublicBaseURL, "/")
		if strings.HasPrefix(prefix, "/") {
			fs := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.LocalDir)))
			r.Method(http.MethodGet, prefix+"/*", fs)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", controllers.StockList(stockService, logg))
			r.Post("/", controllers.StockCreate(stockService, logg))
			r.Get("/search", controllers.StockSearch(stockService, logg))
			r.Post("/search/by-image", controllers.StockSearchByPhoto(searchService, logg))
			r.Get("/low-stock", controllers.StockLow(stockService, logg))
			r.Get("/{stockId}", controllers.StockDetail(stockService, logg))
			r.Patch("/{stockId}", controllers.StockUpdate(stockService, logg))
			r.Delete("/{stockId}", controllers.StockDelete(stockService, logg))
			r.Post("/{stockId}/adjust", controllers.StockAdjust(stockService, logg))
			r.Post("/{stockId}/image", controllers.StockImageUpload(stockService, logg))
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/", controllers.TrackingAll(trackingService, logg))
			r.Get("/stats", controllers.TrackingStats(trackingService, logg))
			r.Get("/recent", controllers.TrackingRecent(trackingService, logg))
			r.Get("/range", controllers.TrackingByDateRange(trackingService, logg))
			r.Get("/stock/{stockCode}", controllers.TrackingByStock(trackingService, logg))
			r.Get("/actor/{actor}", controllers.TrackingByActor(trackingService, logg))
			r.Get("/action/{action}", controllers.TrackingByAction(trackingService, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/portfolio", controllers.PortfolioSummary(analyticsService, logg))
			r.Get("/alerts", controllers.StockAlerts(analyticsService, logg))
			r.Get("/stock/{stockId}", controllers.StockSummary(analyticsService, logg))
		})
	})

	return r
}
