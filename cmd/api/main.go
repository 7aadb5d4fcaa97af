package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careref/backend/internal/adapters/cache"
	"github.com/careref/backend/internal/adapters/database"
	"github.com/careref/backend/internal/adapters/events"
	"github.com/careref/backend/internal/adapters/search"
	"github.com/careref/backend/internal/adapters/sources"
	"github.com/careref/backend/internal/api/handlers"
	"github.com/careref/backend/internal/api/middleware"
	"github.com/careref/backend/internal/api/routes"
	"github.com/careref/backend/internal/application/services"
	"github.com/careref/backend/internal/domain/providers"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	"github.com/careref/backend/internal/infrastructure/clients/redis"
	"github.com/careref/backend/internal/infrastructure/clients/typesense"
	"github.com/careref/backend/internal/infrastructure/observability"
	"github.com/careref/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - the application can work without shared caching
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		log.Println("Typesense client initialized successfully")
	}

	// Initialize adapters
	snapshotAdapter := database.NewSnapshotAdapter(pgClient)
	curatedAdapter := database.NewCuratedConditionAdapter(pgClient)
	referenceAdapter := database.NewReferenceConditionAdapter(pgClient)
	promotionAdapter := database.NewPromotionAdapter(pgClient)
	analyticsAdapter := database.NewSearchAnalyticsAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		log.Println("Using in-memory cache (Redis unavailable)")
	}

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	var suggestionProvider providers.SuggestionProvider
	if typesenseClient != nil {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := adapter.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		suggestionProvider = adapter
	}

	// Dataset sources
	var drugSource providers.SourceProvider
	switch cfg.Sources.DrugProvider {
	case "rxnav":
		drugSource = sources.NewDrugSource(cfg.Sources.DrugBaseURL)
	default:
		drugSource = sources.NewStaticDrugSource()
		log.Println("Using static drug source")
	}

	var diseaseSource providers.SourceProvider
	switch cfg.Sources.DiseaseProvider {
	case "clinicaltables":
		diseaseSource = sources.NewDiseaseSource(cfg.Sources.DiseaseBaseURL)
	default:
		diseaseSource = sources.NewStaticDiseaseSource()
		log.Println("Using static disease source")
	}

	// Initialize services
	adaptiveCache := services.NewAdaptiveCache(cfg.Cache, cfg.Breaker, metrics)

	refreshService := services.NewRefreshService(
		[]providers.SourceProvider{drugSource, diseaseSource},
		snapshotAdapter,
		eventBus,
		metrics,
		cfg.Refresh,
	)
	refreshService.Start(ctx)
	defer refreshService.Stop()

	promotionService := services.NewPromotionService(
		promotionAdapter,
		referenceAdapter,
		curatedAdapter,
		eventBus,
	)

	analyticsService := services.NewSearchAnalyticsService(analyticsAdapter)

	searchService := services.NewTieredSearchService(
		curatedAdapter,
		referenceAdapter,
		suggestionProvider,
		promotionService,
		analyticsService,
		adaptiveCache,
		metrics,
		cfg.Promotion,
	)

	// Initialize cache invalidation service
	if eventBus != nil {
		invalidationService := services.NewCacheInvalidationService(cacheProvider, adaptiveCache, eventBus)
		if err := invalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			defer invalidationService.Stop()
		}
	}

	// Initialize handlers
	datasetHandler := handlers.NewDatasetHandler(refreshService)
	searchHandler := handlers.NewSearchHandler(searchService)
	promotionHandler := handlers.NewPromotionHandler(promotionService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if redisClient != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		datasetHandler,
		searchHandler,
		promotionHandler,
		analyticsHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
