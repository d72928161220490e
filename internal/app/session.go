package app

import (
	"context"
	"errors"
	"sync"

	"github.com/fakhrymubarak/weather-locator/internal/location"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/obs"
	"github.com/fakhrymubarak/weather-locator/internal/service"
	"github.com/fakhrymubarak/weather-locator/internal/state"
	"go.uber.org/zap"
)

var ErrLocationNotAvailable = errors.New("location not available")

// Session is the single owner of the application state. Writes are
// serialized through mu; readers get copies.
type Session struct {
	mu    sync.Mutex
	state state.AppState

	weather    service.WeatherServiceInterface
	logger     *zap.SugaredLogger
	locateOnce sync.Once

	// surfaceFetchErrors opens the popup with an error description when a
	// fetch fails instead of only logging it.
	surfaceFetchErrors bool
}

type Option func(*Session)

// WithSurfacedFetchErrors makes fetch failures visible in the popup.
func WithSurfacedFetchErrors(enabled bool) Option {
	return func(s *Session) {
		s.surfaceFetchErrors = enabled
	}
}

func NewSession(weather service.WeatherServiceInterface, logger *zap.SugaredLogger, opts ...Option) *Session {
	s := &Session{
		state:   state.Initial(),
		weather: weather,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap resolves the device position once. Later calls are no-ops.
// On failure the position stays unset and the error is returned for logging.
func (s *Session) Bootstrap(ctx context.Context, provider location.Provider) (err error) {
	ran := false
	s.locateOnce.Do(func() {
		ran = true
		defer obs.Time(ctx, s.logger, "location.locate")(&err)

		var coords model.Coordinates
		coords, err = location.Locate(ctx, provider)
		if err != nil {
			switch {
			case errors.Is(err, location.ErrPermissionDenied):
				s.logger.Warnw("Permission to access location was denied", "provider", provider.Name())
			default:
				s.logger.Errorw("Could not determine location", "provider", provider.Name(), "error", err)
			}
			return
		}

		s.mu.Lock()
		s.state = state.WithCoordinates(s.state, coords)
		s.mu.Unlock()
		s.logger.Infow("Location resolved", "provider", provider.Name(), "latitude", coords.Latitude, "longitude", coords.Longitude)
	})
	if !ran {
		return nil
	}
	return err
}

// RequestWeather is the weather button: fetch for the known position and
// show the result. Without a position it does nothing.
func (s *Session) RequestWeather(ctx context.Context) (err error) {
	s.mu.Lock()
	coords := s.state.Coordinates
	s.mu.Unlock()

	if coords == nil {
		s.logger.Infow("Location not available")
		return ErrLocationNotAvailable
	}

	defer obs.Time(ctx, s.logger, "weather.fetch")(&err)

	result, err := s.weather.FetchWeather(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		s.logger.Errorw("Error fetching weather data", "error", err)
		if s.surfaceFetchErrors {
			s.apply(func(st state.AppState) state.AppState {
				return state.ShowResult(st, model.DescriptionOnly(model.FetchFailedMessage))
			})
		}
		return err
	}

	s.apply(func(st state.AppState) state.AppState {
		return state.ShowResult(st, result)
	})
	return nil
}

// Dismiss closes the popup.
func (s *Session) Dismiss() {
	s.apply(state.Dismiss)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() state.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Copy()
}

func (s *Session) apply(update func(state.AppState) state.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = update(s.state)
}
