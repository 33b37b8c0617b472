package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/config"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/database"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/metrics"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/middleware"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/proxy"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/ratelimit"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/amadeus"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/events"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/exchangerate"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/openai"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/weather"
)

func main() {
	logger := log.New(os.Stdout, "[travel-backend] ", log.LstdFlags|log.Lshortfile)

	logger.Println("Starting travel-ai-mobile-backend...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Printf("Configuration loaded successfully")
	logger.Printf("Port: %s", cfg.Port)

	// Rate-limit store: shared Redis counters when configured, process
	// memory otherwise.
	var limiterStore ratelimit.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		limiterStore = ratelimit.NewRedisStore(rdb)
		logger.Printf("Rate limiting backed by Redis at %s", cfg.RedisAddr)
	} else {
		limiterStore = ratelimit.NewMemoryStore()
		logger.Println("Rate limiting backed by process memory")
	}

	// Optional sqlite request log.
	var recorder middleware.Recorder
	if cfg.RequestLogDB != "" {
		db, err := database.New(cfg.RequestLogDB)
		if err != nil {
			logger.Fatalf("Failed to initialize request log database: %v", err)
		}
		defer db.Close()
		dbRecorder := database.NewRecorder(db, logger)
		// Runs before the deferred db.Close, so pending records flush
		// into an open database.
		defer dbRecorder.Close()
		recorder = dbRecorder
		logger.Printf("Request log at %s", cfg.RequestLogDB)
	}

	stats := metrics.New()

	// Upstream clients share one pooled transport and the configured
	// per-request timeout.
	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout)
	chatClient := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.WithHTTPClient(httpClient))
	weatherClient := weather.NewClient(cfg.WeatherAPIKey, weather.WithHTTPClient(httpClient))
	eventsClient := events.NewClient(cfg.TicketmasterAPIKey, events.WithHTTPClient(httpClient))
	currencyClient := exchangerate.NewClient(cfg.ExchangeRateAPIKey, exchangerate.WithHTTPClient(httpClient))

	travelOpts := []amadeus.Option{amadeus.WithHTTPClient(httpClient)}
	if cfg.AmadeusTokenCache {
		travelOpts = append(travelOpts, amadeus.WithCachedTokens())
		logger.Println("Travel provider token caching enabled")
	}
	travelClient := amadeus.NewClient(cfg.AmadeusAPIKey, cfg.AmadeusAPISecret, travelOpts...)

	handler := proxy.NewHandler(chatClient, weatherClient, eventsClient, travelClient, currencyClient, logger)

	routes, err := proxy.ApplyOverrides(handler.Routes())
	if err != nil {
		logger.Fatalf("Failed to apply rate-limit overrides: %v", err)
	}

	corsMiddleware := middleware.NewCORSMiddleware(cfg.AllowedOrigins)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger, middleware.MultiRecorder(stats, recorder))
	recoverMiddleware := middleware.NewRecoverMiddleware(logger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiterStore, logger)

	mux := http.NewServeMux()
	proxy.Mount(mux, routes, rateLimitMiddleware)
	mux.Handle("GET /metrics", stats.Handler())

	chain := corsMiddleware.Handle(loggingMiddleware.LogRequest(recoverMiddleware.Recover(mux)))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("Server listening on http://0.0.0.0:%s", cfg.Port)
		logger.Println("Routes:")
		logger.Println("  GET  /          - Liveness")
		logger.Println("  GET  /health    - Health check")
		logger.Println("  GET  /metrics   - Request statistics")
		logger.Println("  POST /ask       - Chat completion")
		logger.Println("  GET  /weather   - Current weather by city")
		logger.Println("  GET  /events    - Events by city")
		logger.Println("  GET  /flights   - Flight offers")
		logger.Println("  GET  /hotels    - Hotels by city code or geocode")
		logger.Println("  GET  /cars      - Car rentals")
		logger.Println("  GET  /currency  - Exchange-rate table")
		logger.Println("Press Ctrl+C to stop...")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}
	logger.Println("Server stopped gracefully")
}
