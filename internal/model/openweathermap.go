package model

// OpenWeatherMapMain is the "main" block of a current-conditions payload.
type OpenWeatherMapMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
	SeaLevel  int     `json:"sea_level"`
	GrndLevel int     `json:"grnd_level"`
}

type OpenWeatherMapCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// OpenWeatherMapResponse is the subset of /data/2.5/weather we consume.
// Main is a pointer so that a payload without it can be told apart from zero readings.
type OpenWeatherMapResponse struct {
	Name    string                    `json:"name"`
	Main    *OpenWeatherMapMain       `json:"main"`
	Weather []OpenWeatherMapCondition `json:"weather"`
}
