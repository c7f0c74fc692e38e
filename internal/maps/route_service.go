package maps

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"googlemaps.github.io/maps"

	"tracker/internal/types"
)

// RouteService estimates driving distance with the Google Distance Matrix API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// DistanceKm returns the driving distance between two points in kilometres.
func (s *RouteService) DistanceKm(ctx context.Context, from, to types.Point) (decimal.Decimal, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(from)},
		Destinations: []string{latLng(to)},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return decimal.Zero, fmt.Errorf("maps api error: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return decimal.Zero, fmt.Errorf("no route found")
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return decimal.Zero, fmt.Errorf("no route found: %s", el.Status)
	}
	return decimal.New(int64(el.Distance.Meters), -3), nil
}

func latLng(p types.Point) string {
	return p.Lat.String() + "," + p.Lng.String()
}
