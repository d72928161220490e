package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

const defaultOpenWeatherApiUrl = "https://api.openweathermap.org/data/2.5/weather"

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
		setDefaults()

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error reading test config file", "error", err)
			}
		}
	})
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("openweathermap.api_url", defaultOpenWeatherApiUrl)
	viper.SetDefault("openweathermap.timeout", "10s")
	viper.SetDefault("location.provider", "static")
	viper.SetDefault("location.allow", true)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("cache.expiration", "10m")
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func GetOpenWeatherApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.api_url")
}

// GetOpenWeatherMapAPIKey returns the provider credential. An empty value is
// valid and selects the missing-credential result instead of a network call.
func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	initConfig()
	return strings.TrimSpace(viper.GetString("openweathermap.api_key"))
}

// GetOpenWeatherTimeout returns the outbound request timeout. Zero disables it.
func GetOpenWeatherTimeout() time.Duration {
	initConfig()
	return parseDuration(viper.GetString("openweathermap.timeout"), 10*time.Second)
}

// CircuitBreakerConfig holds the gobreaker settings for the weather provider.
type CircuitBreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func GetCircuitBreakerConfig() CircuitBreakerConfig {
	initConfig()
	cfg := CircuitBreakerConfig{
		MaxRequests:         uint32(viper.GetUint("openweathermap.circuit_breaker.max_requests")),
		Interval:            parseDuration(viper.GetString("openweathermap.circuit_breaker.interval"), time.Minute),
		Timeout:             parseDuration(viper.GetString("openweathermap.circuit_breaker.timeout"), 30*time.Second),
		ConsecutiveFailures: uint32(viper.GetUint("openweathermap.circuit_breaker.consecutive_failures")),
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	return cfg
}

// LocationConfig is the raw location section; coordinates are nil when unset.
type LocationConfig struct {
	Provider  string
	Allow     bool
	Latitude  *float64
	Longitude *float64
	IPAPIURL  string
}

func GetLocationConfig() LocationConfig {
	initConfig()
	return LocationConfig{
		Provider:  viper.GetString("location.provider"),
		Allow:     viper.GetBool("location.allow"),
		Latitude:  optionalFloat(viper.GetString("location.latitude")),
		Longitude: optionalFloat(viper.GetString("location.longitude")),
		IPAPIURL:  viper.GetString("location.ipapi_url"),
	}
}

// GetSurfaceFetchErrors reports whether weather fetch failures should open the
// popup with an error description instead of being logged only.
func GetSurfaceFetchErrors() bool {
	initConfig()
	return viper.GetBool("presentation.surface_fetch_errors")
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func IsCacheEnabled() bool {
	initConfig()
	return viper.GetBool("cache.enabled")
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

func GetCacheExpiration() string {
	initConfig()
	return viper.GetString("cache.expiration")
}

// GetCacheTTL returns the cache expiration as a time.Duration, 10m if unset or invalid.
func GetCacheTTL() time.Duration {
	return parseDuration(GetCacheExpiration(), 10*time.Minute)
}

func GetServerTimeout(key string) string {
	initConfig()
	return viper.GetString("server." + key)
}

// GetServerTimeoutDuration parses a server timeout, falling back to def.
func GetServerTimeoutDuration(key string, def time.Duration) time.Duration {
	return parseDuration(GetServerTimeout(key), def)
}

func GetTestRedisMockPort() string {
	initConfig()
	return viper.GetString("test.redis_mock_port")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	return parseDuration(viper.GetString("rate_limiter.cleanup_timeout"), 3*time.Minute)
}

// GetTrustForwardedFor reports whether clients are keyed by X-Forwarded-For,
// which is only safe behind a proxy that sets it.
func GetTrustForwardedFor() bool {
	initConfig()
	return viper.GetBool("rate_limiter.trust_forwarded_for")
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetActionRateLimiterConfig returns the per-minute rate and burst applied to each control endpoint.
func GetActionRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.action.rate")
	if rate == 0 {
		rate = 4
	}
	burst = viper.GetInt("rate_limiter.action.burst")
	if burst == 0 {
		burst = 4
	}
	return
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func optionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		GetLogger().Warnw("Ignoring invalid coordinate in config", "value", s, "error", err)
		return nil
	}
	return &f
}
