package location

import (
	"fmt"
	"net/http"

	"github.com/fakhrymubarak/weather-locator/internal/config"
	"github.com/fakhrymubarak/weather-locator/internal/model"
)

// Settings selects and configures a Provider.
type Settings struct {
	Provider  string   `validate:"required,oneof=static ipapi"`
	Allow     bool
	Latitude  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `validate:"omitempty,gte=-180,lte=180"`
	IPAPIURL  string   `validate:"omitempty,url"`
}

// SettingsFromConfig maps the location config section.
func SettingsFromConfig(cfg config.LocationConfig) Settings {
	return Settings{
		Provider:  cfg.Provider,
		Allow:     cfg.Allow,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		IPAPIURL:  cfg.IPAPIURL,
	}
}

// NewProvider validates settings and builds the selected provider.
func NewProvider(s Settings, client *http.Client) (Provider, error) {
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid location settings: %w", err)
	}

	switch s.Provider {
	case "ipapi":
		return NewIPAPIProvider(s.Allow, s.IPAPIURL, client), nil
	default:
		var coords *model.Coordinates
		if s.Latitude != nil && s.Longitude != nil {
			c := model.NewCoordinates(*s.Latitude, *s.Longitude)
			coords = &c
		}
		return NewStaticProvider(s.Allow, coords), nil
	}
}
