package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/middleware"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/repository"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const owmBody = `{"name": "Testville", "main": {"temp": 21.5, "pressure": 1012, "humidity": 40}, "weather": [{"description": "clear sky"}]}`

func setLocation(t *testing.T, lat, lon, apiKey string) {
	t.Helper()
	viper.Set("location.provider", "static")
	viper.Set("location.allow", true)
	viper.Set("location.latitude", lat)
	viper.Set("location.longitude", lon)
	viper.Set("openweathermap.api_key", apiKey)
	viper.Set("openweathermap.api_url", "http://owm.test/data/2.5/weather")
	config.ReloadConfigForTest()
	t.Cleanup(func() {
		viper.Set("location.latitude", "")
		viper.Set("location.longitude", "")
		viper.Set("openweathermap.api_key", "")
		config.ReloadConfigForTest()
	})
}

func newTestRouter(t *testing.T, client *http.Client) http.Handler {
	t.Helper()
	logger := zap.NewNop().Sugar()
	session, err := newSession(context.Background(), client, nil, logger)
	require.NoError(t, err)
	limiter := middleware.NewRateLimiter(600, 100, 600, 100, config.GetRateLimiterCleanupTimeout())
	return newRouter(session, limiter, logger)
}

func post(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, model.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var resp model.Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return rr, resp
}

func TestRouter_WeatherFlow(t *testing.T) {
	setLocation(t, "51.5", "-0.12", "test_api_key")

	var gotQuery string
	client := repository.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.RawQuery
		return repository.JSONResponse(http.StatusOK, owmBody), nil
	})
	h := newTestRouter(t, client)

	rr, resp := post(t, h, "/weather")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "Success", resp.Message)
	assert.Contains(t, gotQuery, "appid=test_api_key")
	assert.Contains(t, gotQuery, "units=metric")

	popup, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, popup["visible"])
	assert.Contains(t, popup["lines"], "Place: Testville")

	_, resp = post(t, h, "/weather/dismiss")
	popup = resp.Data.(map[string]interface{})
	assert.Equal(t, false, popup["visible"])
}

func TestRouter_MissingAPIKey(t *testing.T) {
	setLocation(t, "51.5", "-0.12", "")

	client := repository.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected without an API key")
		return repository.JSONResponse(http.StatusOK, owmBody), nil
	})
	h := newTestRouter(t, client)

	_, resp := post(t, h, "/weather")
	popup := resp.Data.(map[string]interface{})
	assert.Equal(t, true, popup["visible"])
	assert.Contains(t, popup["lines"], "Description: "+model.MissingAPIKeyMessage)
}

func TestRouter_NoLocation(t *testing.T) {
	setLocation(t, "", "", "test_api_key")

	client := repository.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected without a location")
		return repository.JSONResponse(http.StatusOK, owmBody), nil
	})
	h := newTestRouter(t, client)

	_, resp := post(t, h, "/weather")
	assert.Equal(t, "Location not available", resp.Message)

	req := httptest.NewRequest(http.MethodGet, "/map", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewSession_InvalidLocationSettings(t *testing.T) {
	viper.Set("location.provider", "gps")
	config.ReloadConfigForTest()
	t.Cleanup(func() {
		viper.Set("location.provider", "static")
		config.ReloadConfigForTest()
	})

	_, err := newSession(context.Background(), http.DefaultClient, nil, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid location settings"))
}

func TestWeatherCache_DisabledByDefault(t *testing.T) {
	assert.Nil(t, weatherCache(context.Background(), zap.NewNop().Sugar()))
}

func TestEnvironmentVariables(t *testing.T) {
	// Test default port behavior
	port := config.GetServerPort()
	if port != "8080" {
		t.Errorf("Expected default port 8080, got %s", port)
	}
}
