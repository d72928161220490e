package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/fakhrymubarak/weather-locator/internal/model"
	"github.com/go-playground/validator/v10"
)

var (
	ErrPermissionDenied    = errors.New("permission to access location was denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

var validate = validator.New()

// PermissionStatus is the outcome of a location permission request.
type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
)

// Provider supplies the device position after a permission grant.
type Provider interface {
	Name() string
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	CurrentCoordinates(ctx context.Context) (model.Coordinates, error)
}

// Locate asks for permission and, if granted, reads the current coordinates.
func Locate(ctx context.Context, p Provider) (model.Coordinates, error) {
	status, err := p.RequestPermission(ctx)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%s: request permission: %w", p.Name(), err)
	}
	if status != PermissionGranted {
		return model.Coordinates{}, ErrPermissionDenied
	}

	coords, err := p.CurrentCoordinates(ctx)
	if err != nil {
		if errors.Is(err, ErrLocationUnavailable) {
			return model.Coordinates{}, err
		}
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if err := validate.Struct(coords); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return coords, nil
}

func permission(allow bool) PermissionStatus {
	if allow {
		return PermissionGranted
	}
	return PermissionDenied
}
