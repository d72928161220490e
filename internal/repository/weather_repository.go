package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Custom error types
var (
	ErrExternalAPI       = errors.New("external API error")
	ErrMalformedResponse = errors.New("malformed weather response")
	ErrCircuitOpen       = errors.New("weather provider circuit open")

	// errCallerAborted marks failures caused by the caller's context, which
	// say nothing about the provider's health.
	errCallerAborted = errors.New("request aborted by caller")
)

// WeatherRepository defines the interface for current-conditions data access
type WeatherRepository interface {
	GetCurrentConditions(ctx context.Context, coords model.Coordinates, apiKey string) (*model.OpenWeatherMapResponse, error)
}

// Cache is the subset of the Redis client the repository needs.
type Cache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// Options configures a weather repository. Zero values fall back to config.
type Options struct {
	APIURL     string
	HTTPClient *http.Client
	// Cache is optional; nil disables caching.
	Cache    Cache
	CacheTTL time.Duration
	Breaker  config.CircuitBreakerConfig
	Logger   *zap.SugaredLogger
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	apiURL     string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.SugaredLogger
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(opts Options) WeatherRepository {
	if opts.APIURL == "" {
		opts.APIURL = config.GetOpenWeatherApiUrl()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: config.GetOpenWeatherTimeout()}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = config.GetCacheTTL()
	}
	if opts.Breaker.ConsecutiveFailures == 0 {
		opts.Breaker = config.GetCircuitBreakerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = config.GetLogger()
	}

	logger := opts.Logger
	threshold := opts.Breaker.ConsecutiveFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerAborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &weatherRepository{
		apiURL:     opts.APIURL,
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		breaker:    breaker,
		logger:     logger,
	}
}

// GetCurrentConditions retrieves current conditions, checking the cache first when one is configured.
func (r *weatherRepository) GetCurrentConditions(ctx context.Context, coords model.Coordinates, apiKey string) (*model.OpenWeatherMapResponse, error) {
	key := cacheKey(coords)
	if r.cache != nil {
		if cached, err := r.getFromCache(ctx, key); err == nil {
			r.logger.Debugw("Weather cache hit", "key", key)
			return cached, nil
		}
	}

	data, err := r.fetchFromExternalAPI(ctx, coords, apiKey)
	if err != nil {
		return nil, err
	}

	r.cacheWeather(ctx, key, data)
	return data, nil
}

// cacheKey rounds to 4 decimals (about 11m) so repeated requests from the same spot share an entry.
func cacheKey(coords model.Coordinates) string {
	return fmt.Sprintf("weather:%.4f,%.4f", coords.Latitude, coords.Longitude)
}

func (r *weatherRepository) getFromCache(ctx context.Context, key string) (*model.OpenWeatherMapResponse, error) {
	val, err := r.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var data model.OpenWeatherMapResponse
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// fetchFromExternalAPI issues exactly one GET to the current-conditions endpoint.
func (r *weatherRepository) fetchFromExternalAPI(ctx context.Context, coords model.Coordinates, apiKey string) (*model.OpenWeatherMapResponse, error) {
	endpoint, err := url.Parse(r.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid weather API url: %w", err)
	}
	params := endpoint.Query()
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("appid", apiKey)
	params.Set("units", "metric")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w: %w", ErrExternalAPI, errCallerAborted, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrExternalAPI, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("%w: status %d: %s", ErrExternalAPI, resp.StatusCode, string(body))
		}

		var data model.OpenWeatherMapResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if data.Main == nil || len(data.Weather) == 0 {
			return nil, fmt.Errorf("%w: missing main or weather block", ErrMalformedResponse)
		}
		return &data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	data, ok := result.(*model.OpenWeatherMapResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return data, nil
}

// cacheWeather stores the provider payload in the cache, if any.
func (r *weatherRepository) cacheWeather(ctx context.Context, key string, data *model.OpenWeatherMapResponse) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, b, r.cacheTTL).Err(); err != nil {
		r.logger.Debugw("Weather cache write failed", "key", key, "error", err)
	}
}
