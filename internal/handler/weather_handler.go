package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fakhrymubarak/weather-locator/internal/app"
	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/fakhrymubarak/weather-locator/internal/state"
	"go.uber.org/zap"
)

// Session is what the handlers need from the application session.
type Session interface {
	RequestWeather(ctx context.Context) error
	Dismiss()
	Snapshot() state.AppState
}

type WeatherHandler struct {
	Session Session
	logger  *zap.SugaredLogger
}

func NewWeatherHandler(session Session) *WeatherHandler {
	return &WeatherHandler{
		Session: session,
		logger:  config.GetLogger(),
	}
}

// Register wires the control endpoints into mux.
func (h *WeatherHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/weather", h.HandleWeather)
	mux.HandleFunc("/weather/dismiss", h.HandleDismiss)
	mux.HandleFunc("/map", h.HandleMap)
	mux.HandleFunc("/health", h.HandleHealth)
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorw("could not encode json", "error", err)
	}
}

func (h *WeatherHandler) methodNotAllowed(w http.ResponseWriter, allow string) {
	errMsg := "Method not allowed"
	w.Header().Set("Allow", allow)
	h.writeJSONResponse(w, http.StatusMethodNotAllowed, model.Response{
		Error:   &errMsg,
		Message: "Error",
	})
}

// HandleWeather serves the popup on GET and runs the weather button on POST.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSONResponse(w, http.StatusOK, model.Response{
			Data:    h.Session.Snapshot().Popup(),
			Message: "Success",
		})
	case http.MethodPost:
		h.requestWeather(w, r)
	default:
		h.methodNotAllowed(w, http.MethodGet+", "+http.MethodPost)
	}
}

// requestWeather always answers 200 with the popup as it now stands; the
// message tells whether the press did anything.
func (h *WeatherHandler) requestWeather(w http.ResponseWriter, r *http.Request) {
	message := "Success"
	if err := h.Session.RequestWeather(r.Context()); err != nil {
		if errors.Is(err, app.ErrLocationNotAvailable) {
			message = "Location not available"
		} else {
			message = "Failed to fetch weather data"
		}
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    h.Session.Snapshot().Popup(),
		Message: message,
	})
}

// HandleDismiss closes the popup.
func (h *WeatherHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	h.Session.Dismiss()
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    h.Session.Snapshot().Popup(),
		Message: "Success",
	})
}

// HandleMap returns the map region and marker for the device position.
func (h *WeatherHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	view, ok := h.Session.Snapshot().MapView()
	if !ok {
		errMsg := "Location not available"
		h.writeJSONResponse(w, http.StatusNotFound, model.Response{
			Error:   &errMsg,
			Message: "Error",
		})
		return
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    view,
		Message: "Success",
	})
}

func (h *WeatherHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
