package location

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: 6.5244, lng1: 3.3792,
			lat2: 6.5244, lng2: 3.3792,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "Lagos mainland to Ikeja (~3.6km)",
			lat1: 6.5244, lng1: 3.3792,
			lat2: 6.5500, lng2: 3.4000,
			wantKm:    3.64,
			tolerance: 0.1,
		},
		{
			name: "New York to Los Angeles (~3944km)",
			lat1: 40.7128, lng1: -74.0060,
			lat2: 34.0522, lng2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("haversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := haversineKm(25.0, 121.0, 26.0, 122.0)
	d2 := haversineKm(26.0, 122.0, 25.0, 121.0)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestWaypoints_LagosRoute(t *testing.T) {
	pickup := types.PointFromFloat(6.5244, 3.3792)
	delivery := types.PointFromFloat(6.5500, 3.4000)

	points := Waypoints(pickup, delivery, 20)
	require.Len(t, points, 21)

	assert.True(t, points[0].Equal(pickup), "waypoint 0 = %v", points[0])
	assert.True(t, points[20].Equal(delivery), "waypoint 20 = %v", points[20])

	mid := points[10]
	assert.True(t, mid.Lat.Equal(decimal.RequireFromString("6.5372")), "mid lat = %s", mid.Lat)
	assert.True(t, mid.Lng.Equal(decimal.RequireFromString("3.3896")), "mid lng = %s", mid.Lng)

	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Lat.GreaterThan(points[i-1].Lat), "lat must increase at %d", i)
	}
}

func TestWaypoints_EvenSpacing(t *testing.T) {
	points := Waypoints(types.PointFromFloat(0, 0), types.PointFromFloat(1, -2), 4)
	want := []string{"0", "0.25", "0.5", "0.75", "1"}
	for i, p := range points {
		assert.Equal(t, want[i], p.Lat.String())
	}
	assert.Equal(t, "-0.5", points[1].Lng.String())
}

func TestWaypoints_DegenerateSteps(t *testing.T) {
	a, b := types.PointFromFloat(1, 1), types.PointFromFloat(2, 2)
	assert.Len(t, Waypoints(a, b, 0), 2)
}

func TestSortByDistance(t *testing.T) {
	type item struct {
		id   string
		dist float64
	}
	items := []item{{"c", 5}, {"a", 1}, {"b", 3}}
	SortByDistance(items, func(i item) float64 { return i.dist })
	assert.Equal(t, []item{{"a", 1}, {"b", 3}, {"c", 5}}, items)

	var empty []item
	SortByDistance(empty, func(i item) float64 { return i.dist })
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, ClampLimit(0))
	assert.Equal(t, DefaultHistoryLimit, ClampLimit(-5))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, 1000, ClampLimit(5000))
}
