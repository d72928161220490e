package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-locator/internal/app"
	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/handler"
	"github.com/fakhrymubarak/weather-locator/internal/location"
	"github.com/fakhrymubarak/weather-locator/internal/middleware"
	"github.com/fakhrymubarak/weather-locator/internal/redis"
	"github.com/fakhrymubarak/weather-locator/internal/repository"
	"github.com/fakhrymubarak/weather-locator/internal/service"
	"go.uber.org/zap"
)

// newSession builds the weather pipeline and resolves the device position.
// A location failure is logged and leaves the session without a position.
func newSession(ctx context.Context, client *http.Client, cache repository.Cache, logger *zap.SugaredLogger) (*app.Session, error) {
	repo := repository.NewWeatherRepository(repository.Options{
		HTTPClient: client,
		Cache:      cache,
		Logger:     logger,
	})
	session := app.NewSession(
		service.NewWeatherServiceFromConfig(repo),
		logger,
		app.WithSurfacedFetchErrors(config.GetSurfaceFetchErrors()),
	)

	provider, err := location.NewProvider(location.SettingsFromConfig(config.GetLocationConfig()), client)
	if err != nil {
		return nil, err
	}
	// Bootstrap logs a failed lookup; the session then runs without a position.
	_ = session.Bootstrap(ctx, provider)
	return session, nil
}

// newRouter registers the controls and wraps them in the middleware chain.
func newRouter(session handler.Session, limiter *middleware.RateLimiter, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	handler.NewWeatherHandler(session).Register(mux)
	return middleware.RequestID(logger)(limiter.Middleware(mux))
}

// weatherCache returns the Redis cache when enabled and reachable, nil otherwise.
func weatherCache(ctx context.Context, logger *zap.SugaredLogger) repository.Cache {
	if !config.IsCacheEnabled() {
		return nil
	}
	if err := redis.Ping(ctx); err != nil {
		logger.Warnw("Redis unavailable, weather cache disabled", "addr", config.GetRedisAddr(), "error", err)
		return nil
	}
	logger.Infow("Weather cache enabled", "addr", config.GetRedisAddr(), "ttl", config.GetCacheTTL())
	return redis.GetClient()
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: config.GetOpenWeatherTimeout()}

	session, err := newSession(ctx, client, weatherCache(ctx, logger), logger)
	if err != nil {
		logger.Fatalw("Failed to start", "error", err)
	}

	limiter := middleware.NewRateLimiterFromConfig()
	if err := limiter.StartCleanup(); err != nil {
		logger.Fatalw("Failed to schedule rate limiter cleanup", "error", err)
	}
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              ":" + config.GetServerPort(),
		Handler:           newRouter(session, limiter, logger),
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Weather locator server running", "port", config.GetServerPort())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Errorw("Server failed", "error", err)
	case <-ctx.Done():
		logger.Infow("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}
