package location

import (
	"context"

	"github.com/fakhrymubarak/weather-locator/internal/model"
)

// StaticProvider reports a fixed, configured position.
type StaticProvider struct {
	Allow       bool
	Coordinates *model.Coordinates
}

func NewStaticProvider(allow bool, coords *model.Coordinates) *StaticProvider {
	return &StaticProvider{Allow: allow, Coordinates: coords}
}

func (p *StaticProvider) Name() string {
	return "static"
}

func (p *StaticProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	return permission(p.Allow), nil
}

func (p *StaticProvider) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	if p.Coordinates == nil {
		return model.Coordinates{}, ErrLocationUnavailable
	}
	return *p.Coordinates, nil
}
