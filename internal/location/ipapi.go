package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fakhrymubarak/weather-locator/internal/model"
)

// DefaultIPAPIURL resolves the caller's public IP to an approximate position.
const DefaultIPAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// IPAPIProvider locates the host by its public IP address.
type IPAPIProvider struct {
	Allow      bool
	url        string
	httpClient *http.Client
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func NewIPAPIProvider(allow bool, url string, client *http.Client) *IPAPIProvider {
	if url == "" {
		url = DefaultIPAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &IPAPIProvider{Allow: allow, url: url, httpClient: client}
}

func (p *IPAPIProvider) Name() string {
	return "ipapi"
}

func (p *IPAPIProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	return permission(p.Allow), nil
}

func (p *IPAPIProvider) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Coordinates{}, fmt.Errorf("%w: status %d", ErrLocationUnavailable, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: decode response: %v", ErrLocationUnavailable, err)
	}
	if body.Status != "success" {
		return model.Coordinates{}, fmt.Errorf("%w: %s", ErrLocationUnavailable, body.Message)
	}
	return model.NewCoordinates(body.Lat, body.Lon), nil
}
