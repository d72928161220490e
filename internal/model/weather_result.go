package model

import (
	"fmt"
	"strconv"
)

// MissingAPIKeyMessage is the description shown when no provider credential is configured.
const MissingAPIKeyMessage = "ERROR: API key is missing. Please provide a valid API key from openweathermap.org."

// FetchFailedMessage is the description shown for failed fetches when they are surfaced.
const FetchFailedMessage = "ERROR: Unable to fetch weather data. Please try again."

// WeatherResult is a display-ready snapshot of current conditions, or an
// error placeholder carrying only Description.
type WeatherResult struct {
	Place              *string  `json:"place,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	TemperatureCelsius *float64 `json:"temperatureCelsius,omitempty"`
	PressureHPa        *int     `json:"pressureHPa,omitempty"`
	HumidityPercent    *int     `json:"humidityPercent,omitempty"`
	Description        *string  `json:"description,omitempty"`
}

// DescriptionOnly builds a result whose only populated field is Description.
func DescriptionOnly(description string) *WeatherResult {
	return &WeatherResult{Description: &description}
}

// Lines renders the popup rows for the populated fields.
func (w *WeatherResult) Lines() []string {
	if w == nil {
		return []string{"No weather data available."}
	}
	lines := make([]string, 0, 7)
	if w.Place != nil {
		lines = append(lines, "Place: "+*w.Place)
	}
	if w.Latitude != nil {
		lines = append(lines, "Latitude: "+formatFloat(*w.Latitude))
	}
	if w.Longitude != nil {
		lines = append(lines, "Longitude: "+formatFloat(*w.Longitude))
	}
	if w.TemperatureCelsius != nil {
		lines = append(lines, fmt.Sprintf("Temperature: %s°C", formatFloat(*w.TemperatureCelsius)))
	}
	if w.PressureHPa != nil {
		lines = append(lines, fmt.Sprintf("Pressure: %d hPa", *w.PressureHPa))
	}
	if w.HumidityPercent != nil {
		lines = append(lines, fmt.Sprintf("Humidity: %d%%", *w.HumidityPercent))
	}
	if w.Description != nil {
		lines = append(lines, "Description: "+*w.Description)
	}
	return lines
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (w *WeatherResult) Clone() *WeatherResult {
	if w == nil {
		return nil
	}
	return &WeatherResult{
		Place:              clonePtr(w.Place),
		Latitude:           clonePtr(w.Latitude),
		Longitude:          clonePtr(w.Longitude),
		TemperatureCelsius: clonePtr(w.TemperatureCelsius),
		PressureHPa:        clonePtr(w.PressureHPa),
		HumidityPercent:    clonePtr(w.HumidityPercent),
		Description:        clonePtr(w.Description),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
