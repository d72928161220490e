// Package state holds the application state and the pure functions that move
// it between presentation states. Every function takes a value and returns a
// new one; nothing here mutates shared memory.
package state

import (
	"encoding/json"

	"github.com/fakhrymubarak/weather-locator/internal/model"
)

// Modal is the visibility of the weather popup.
type Modal int

const (
	Hidden Modal = iota
	Shown
)

func (m Modal) String() string {
	if m == Shown {
		return "shown"
	}
	return "hidden"
}

func (m Modal) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// AppState is everything the screen knows: where the device is, the last
// weather result and whether it is being shown.
type AppState struct {
	Coordinates *model.Coordinates   `json:"coordinates,omitempty"`
	Weather     *model.WeatherResult `json:"weather,omitempty"`
	Modal       Modal                `json:"modal"`
}

// Initial is the state at launch: no location, no result, popup hidden.
func Initial() AppState {
	return AppState{Modal: Hidden}
}

// WithCoordinates records the device position.
func WithCoordinates(s AppState, coords model.Coordinates) AppState {
	s.Coordinates = &coords
	return s
}

// ShowResult replaces the result and opens the popup.
func ShowResult(s AppState, result *model.WeatherResult) AppState {
	s.Weather = result.Clone()
	s.Modal = Shown
	return s
}

// Dismiss closes the popup. The result is kept but no longer displayed.
func Dismiss(s AppState) AppState {
	s.Modal = Hidden
	return s
}

// Copy returns a deep copy of s.
func (s AppState) Copy() AppState {
	out := AppState{Modal: s.Modal, Weather: s.Weather.Clone()}
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	return out
}

// Popup renders the popup. A result is only exposed while the popup is shown.
func (s AppState) Popup() model.PopupView {
	if s.Modal != Shown {
		return model.PopupView{Visible: false}
	}
	return model.PopupView{
		Visible: true,
		Result:  s.Weather.Clone(),
		Lines:   s.Weather.Lines(),
	}
}

// MapView centers the map on the device, if its position is known.
func (s AppState) MapView() (model.MapView, bool) {
	if s.Coordinates == nil {
		return model.MapView{}, false
	}
	c := *s.Coordinates
	return model.MapView{
		Region: model.MapRegion{
			Latitude:       c.Latitude,
			Longitude:      c.Longitude,
			LatitudeDelta:  model.MapRegionDelta,
			LongitudeDelta: model.MapRegionDelta,
		},
		Marker: model.MapMarker{
			Coordinate: c,
			Title:      model.MarkerTitle,
		},
	}, true
}
