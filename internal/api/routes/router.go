package routes

import (
	"net/http"

	"github.com/careref/backend/internal/api/handlers"
	"github.com/careref/backend/internal/api/middleware"
	"github.com/careref/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	datasetHandler   *handlers.DatasetHandler
	searchHandler    *handlers.SearchHandler
	promotionHandler *handlers.PromotionHandler
	analyticsHandler *handlers.AnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	datasetHandler *handlers.DatasetHandler,
	searchHandler *handlers.SearchHandler,
	promotionHandler *handlers.PromotionHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		datasetHandler:   datasetHandler,
		searchHandler:    searchHandler,
		promotionHandler: promotionHandler,
		analyticsHandler: analyticsHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Dataset cache endpoints
	r.mux.HandleFunc("GET /api/cache", r.datasetHandler.ListDatasets)
	r.mux.HandleFunc("GET /api/cache/{dataset}/status", r.datasetHandler.GetStatus)
	r.mux.HandleFunc("POST /api/cache/{dataset}/refresh", r.datasetHandler.ForceRefresh)
	r.mux.HandleFunc("GET /api/cache/{dataset}/items", r.datasetHandler.ListItems)

	// Knowledge base search
	r.mux.HandleFunc("GET /api/search", r.searchHandler.Search)

	// Promotion workflow
	r.mux.HandleFunc("POST /api/promotions", r.promotionHandler.CreateRequest)
	r.mux.HandleFunc("GET /api/promotions", r.promotionHandler.ListRequests)
	r.mux.HandleFunc("GET /api/promotions/{id}", r.promotionHandler.GetRequest)
	r.mux.HandleFunc("PATCH /api/promotions/{id}", r.promotionHandler.UpdateRequest)

	// Analytics
	r.mux.HandleFunc("GET /api/analytics/zero-result-queries", r.analyticsHandler.GetZeroResultQueries)

	// Apply middleware chain
	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	handler = middleware.CORSMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	return handler
}
