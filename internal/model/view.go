package model

// MapRegionDelta is the span of the initial map region around the device.
const MapRegionDelta = 0.005

// MarkerTitle labels the single marker placed on the device position.
const MarkerTitle = "Your Location"

type MapRegion struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

type MapMarker struct {
	Coordinate Coordinates `json:"coordinate"`
	Title      string      `json:"title"`
}

// MapView is what a map display needs to center on the device and mark it.
type MapView struct {
	Region MapRegion `json:"region"`
	Marker MapMarker `json:"marker"`
}

// PopupView is the weather popup as presented to the user.
type PopupView struct {
	Visible bool           `json:"visible"`
	Result  *WeatherResult `json:"result,omitempty"`
	Lines   []string       `json:"lines,omitempty"`
}
