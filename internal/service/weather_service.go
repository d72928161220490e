package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/repository"
	"github.com/go-playground/validator/v10"
)

var ErrWeatherService = errors.New("weather service error")

var validate = validator.New()

type WeatherServiceInterface interface {
	FetchWeather(ctx context.Context, latitude, longitude float64) (*model.WeatherResult, error)
}

// WeatherService turns provider payloads into display-ready results.
type WeatherService struct {
	WeatherRepo repository.WeatherRepository
	APIKey      string
}

// NewWeatherService wires a service with the given repository and credential.
// An empty apiKey is allowed; FetchWeather then answers with the missing-key result.
func NewWeatherService(repo repository.WeatherRepository, apiKey string) *WeatherService {
	if repo == nil {
		repo = repository.NewWeatherRepository(repository.Options{})
	}
	return &WeatherService{
		WeatherRepo: repo,
		APIKey:      strings.TrimSpace(apiKey),
	}
}

// NewWeatherServiceFromConfig reads the credential from config.
func NewWeatherServiceFromConfig(repo repository.WeatherRepository) *WeatherService {
	return NewWeatherService(repo, config.GetOpenWeatherMapAPIKey())
}

// FetchWeather returns current conditions for the coordinates. Without a
// credential it returns a description-only result and makes no request.
func (s *WeatherService) FetchWeather(ctx context.Context, latitude, longitude float64) (*model.WeatherResult, error) {
	if s.APIKey == "" {
		return model.DescriptionOnly(model.MissingAPIKeyMessage), nil
	}

	coords := model.NewCoordinates(latitude, longitude)
	if err := validate.Struct(coords); err != nil {
		return nil, fmt.Errorf("%w: invalid coordinates: %v", ErrWeatherService, err)
	}

	data, err := s.WeatherRepo.GetCurrentConditions(ctx, coords, s.APIKey)
	if err != nil {
		return nil, err
	}
	if data == nil || data.Main == nil || len(data.Weather) == 0 {
		return nil, repository.ErrMalformedResponse
	}
	return toWeatherResult(data, latitude, longitude), nil
}

// toWeatherResult echoes the requested coordinates rather than the provider's.
func toWeatherResult(data *model.OpenWeatherMapResponse, latitude, longitude float64) *model.WeatherResult {
	place := data.Name
	temp := data.Main.Temp
	pressure := data.Main.Pressure
	humidity := data.Main.Humidity
	description := data.Weather[0].Description
	return &model.WeatherResult{
		Place:              &place,
		Latitude:           &latitude,
		Longitude:          &longitude,
		TemperatureCelsius: &temp,
		PressureHPa:        &pressure,
		HumidityPercent:    &humidity,
		Description:        &description,
	}
}
