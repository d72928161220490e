package integrationtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-locator/internal/app"
	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/handler"
	"github.com/fakhrymubarak/weather-locator/internal/location"
	"github.com/fakhrymubarak/weather-locator/internal/middleware"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/redis"
	"github.com/fakhrymubarak/weather-locator/internal/repository"
	"github.com/fakhrymubarak/weather-locator/internal/service"
	"go.uber.org/zap"
)

const testAPIKey = "test_api_key"

const testvilleBody = `{"name": "Testville", "main": {"temp": 21.5, "pressure": 1012, "humidity": 40}, "weather": [{"description": "clear sky"}]}`

func createMockRedisServer() *miniredis.Miniredis {
	m := miniredis.NewMiniRedis()
	if err := m.StartAddr(config.GetTestRedisMockPort()); err != nil {
		panic(err)
	}
	return m
}

// mockOWM is a stand-in for the OpenWeatherMap current-conditions endpoint.
type mockOWM struct {
	*httptest.Server
	calls  int32
	status int32
}

func newMockOWM() *mockOWM {
	m := &mockOWM{status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.calls, 1)
		if r.URL.Query().Get("appid") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		status := int(atomic.LoadInt32(&m.status))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"cod":"500","message":"internal error"}`))
			return
		}
		_, _ = w.Write([]byte(testvilleBody))
	}))
	return m
}

func (m *mockOWM) Calls() int32 {
	return atomic.LoadInt32(&m.calls)
}

func (m *mockOWM) SetStatus(status int) {
	atomic.StoreInt32(&m.status, int32(status))
}

type testApp struct {
	server  *httptest.Server
	session *app.Session
}

func (a *testApp) Close() {
	a.server.Close()
}

// setupIntegrationTestServer wires the full request path against the mock
// provider and the Redis cache. coords nil leaves the session without a position.
func setupIntegrationTestServer(owmURL, apiKey string, coords *model.Coordinates, opts ...app.Option) *testApp {
	logger := zap.NewNop().Sugar()

	repo := repository.NewWeatherRepository(repository.Options{
		APIURL:     owmURL,
		HTTPClient: &http.Client{Timeout: config.GetOpenWeatherTimeout()},
		Cache:      redis.GetClient(),
		Logger:     logger,
	})
	session := app.NewSession(service.NewWeatherService(repo, apiKey), logger, opts...)
	_ = session.Bootstrap(context.Background(), location.NewStaticProvider(true, coords))

	mux := http.NewServeMux()
	handler.NewWeatherHandler(session).Register(mux)

	limiter := middleware.NewRateLimiterFromConfig()
	return &testApp{
		server:  httptest.NewServer(middleware.RequestID(logger)(limiter.Middleware(mux))),
		session: session,
	}
}
