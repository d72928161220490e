package integrationtest

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-locator/internal/app"
	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/redis"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

type WeatherAPITestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	owm       *mockOWM
	here      model.Coordinates
}

type popupResponse struct {
	Data    model.PopupView `json:"data"`
	Error   *string         `json:"error"`
	Message string          `json:"message"`
}

func (suite *WeatherAPITestSuite) SetupSuite() {
	suite.miniRedis = createMockRedisServer()
	viper.Set("redis.addr", suite.miniRedis.Addr())
	config.ReloadConfigForTest()
	redis.ResetClientForTest()

	suite.owm = newMockOWM()
	suite.here = model.NewCoordinates(51.5, -0.12)
}

func (suite *WeatherAPITestSuite) TearDownSuite() {
	if suite.owm != nil {
		suite.owm.Close()
	}
	redis.ResetClientForTest()
	if suite.miniRedis != nil {
		suite.miniRedis.Close()
	}
}

func (suite *WeatherAPITestSuite) SetupTest() {
	suite.miniRedis.FlushAll()
	suite.owm.SetStatus(http.StatusOK)
}

func TestWeatherAPITestSuite(t *testing.T) {
	suite.Run(t, new(WeatherAPITestSuite))
}

func (suite *WeatherAPITestSuite) do(a *testApp, method, path string) (*http.Response, popupResponse) {
	req, err := http.NewRequest(method, a.server.URL+path, nil)
	suite.Require().NoError(err)
	resp, err := a.server.Client().Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var body popupResponse
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (suite *WeatherAPITestSuite) TestWeatherEndpoint() {
	tests := []struct {
		name        string
		apiKey      string
		coords      *model.Coordinates
		owmStatus   int
		opts        []app.Option
		wantMessage string
		wantVisible bool
		wantLines   []string
		wantCalls   int32
	}{
		{
			name:        "Success - Provider answers",
			apiKey:      testAPIKey,
			coords:      &suite.here,
			owmStatus:   http.StatusOK,
			wantMessage: "Success",
			wantVisible: true,
			wantLines: []string{
				"Place: Testville",
				"Latitude: 51.5",
				"Longitude: -0.12",
				"Temperature: 21.5°C",
				"Pressure: 1012 hPa",
				"Humidity: 40%",
				"Description: clear sky",
			},
			wantCalls: 1,
		},
		{
			name:        "Success - Missing API key",
			apiKey:      "",
			coords:      &suite.here,
			owmStatus:   http.StatusOK,
			wantMessage: "Success",
			wantVisible: true,
			wantLines:   []string{"Description: " + model.MissingAPIKeyMessage},
			wantCalls:   0,
		},
		{
			name:        "Failed - Invalid API key",
			apiKey:      "invalid_key",
			coords:      &suite.here,
			owmStatus:   http.StatusOK,
			wantMessage: "Failed to fetch weather data",
			wantVisible: false,
			wantCalls:   1,
		},
		{
			name:        "Failed - Provider error",
			apiKey:      testAPIKey,
			coords:      &suite.here,
			owmStatus:   http.StatusInternalServerError,
			wantMessage: "Failed to fetch weather data",
			wantVisible: false,
			wantCalls:   1,
		},
		{
			name:        "Failed - Provider error surfaced",
			apiKey:      testAPIKey,
			coords:      &suite.here,
			owmStatus:   http.StatusInternalServerError,
			opts:        []app.Option{app.WithSurfacedFetchErrors(true)},
			wantMessage: "Failed to fetch weather data",
			wantVisible: true,
			wantLines:   []string{"Description: " + model.FetchFailedMessage},
			wantCalls:   1,
		},
		{
			name:        "Failed - No location",
			apiKey:      testAPIKey,
			coords:      nil,
			owmStatus:   http.StatusOK,
			wantMessage: "Location not available",
			wantVisible: false,
			wantCalls:   0,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.miniRedis.FlushAll()
			suite.owm.SetStatus(tt.owmStatus)
			before := suite.owm.Calls()

			a := setupIntegrationTestServer(suite.owm.URL, tt.apiKey, tt.coords, tt.opts...)
			defer a.Close()

			resp, body := suite.do(a, http.MethodPost, "/weather")
			suite.Equal(http.StatusOK, resp.StatusCode)
			suite.Equal(tt.wantMessage, body.Message)
			suite.Equal(tt.wantVisible, body.Data.Visible)
			if tt.wantLines != nil {
				suite.Equal(tt.wantLines, body.Data.Lines)
			}
			suite.Equal(tt.wantCalls, suite.owm.Calls()-before)
		})
	}
}

func (suite *WeatherAPITestSuite) TestWeatherIsCached() {
	a := setupIntegrationTestServer(suite.owm.URL, testAPIKey, &suite.here)
	defer a.Close()
	before := suite.owm.Calls()

	_, first := suite.do(a, http.MethodPost, "/weather")
	suite.Require().True(first.Data.Visible)
	suite.True(suite.miniRedis.Exists("weather:51.5000,-0.1200"))

	_, second := suite.do(a, http.MethodPost, "/weather")
	suite.Equal(first.Data.Lines, second.Data.Lines)
	suite.Equal(int32(1), suite.owm.Calls()-before)

	suite.miniRedis.FastForward(config.GetCacheTTL() + time.Second)
	suite.do(a, http.MethodPost, "/weather")
	suite.Equal(int32(2), suite.owm.Calls()-before)
}

func (suite *WeatherAPITestSuite) TestDismissFlow() {
	a := setupIntegrationTestServer(suite.owm.URL, testAPIKey, &suite.here)
	defer a.Close()

	_, body := suite.do(a, http.MethodGet, "/weather")
	suite.False(body.Data.Visible)

	_, body = suite.do(a, http.MethodPost, "/weather")
	suite.True(body.Data.Visible)

	_, body = suite.do(a, http.MethodPost, "/weather/dismiss")
	suite.False(body.Data.Visible)
	suite.Nil(body.Data.Result)

	// The result is kept and comes back on the next successful press.
	suite.Require().NotNil(a.session.Snapshot().Weather)

	_, body = suite.do(a, http.MethodGet, "/weather")
	suite.False(body.Data.Visible)
}

func (suite *WeatherAPITestSuite) TestMapEndpoint() {
	a := setupIntegrationTestServer(suite.owm.URL, testAPIKey, &suite.here)
	defer a.Close()

	resp, err := a.server.Client().Get(a.server.URL + "/map")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Data model.MapView `json:"data"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Equal(suite.here, body.Data.Marker.Coordinate)
	suite.Equal(model.MarkerTitle, body.Data.Marker.Title)
	suite.Equal(model.MapRegionDelta, body.Data.Region.LongitudeDelta)
}

func (suite *WeatherAPITestSuite) TestRateLimited() {
	a := setupIntegrationTestServer(suite.owm.URL, "", &suite.here)
	defer a.Close()

	_, burst := config.GetActionRateLimiterConfig()
	for i := 0; i < burst; i++ {
		resp, _ := suite.do(a, http.MethodPost, "/weather")
		suite.Equal(http.StatusOK, resp.StatusCode)
	}

	resp, body := suite.do(a, http.MethodPost, "/weather")
	suite.Equal(http.StatusTooManyRequests, resp.StatusCode)
	suite.Require().NotNil(body.Error)
	suite.Contains(*body.Error, "Rate limit exceeded")
}
