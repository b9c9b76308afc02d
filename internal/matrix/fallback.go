package matrix

import (
	"fleet-route-planner/internal/domain"
	"math"
)

const (
	// DefaultSpeedKmh converts great-circle km into minutes when no road data exists.
	DefaultSpeedKmh = 50.0
	earthRadiusKm   = 6371.0
)

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// EstimateMinutes converts km into driving minutes at speedKmh.
func EstimateMinutes(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return km / speedKmh * 60
}

// Fallback builds a full great-circle matrix for points. The result is
// symmetric with a zero diagonal.
func Fallback(points []domain.Coordinates, speedKmh float64) *domain.Matrix {
	n := len(points)
	m := domain.NewMatrix(n)
	for i := range n {
		for j := i + 1; j < n; j++ {
			km := HaversineKm(points[i], points[j])
			mins := EstimateMinutes(km, speedKmh)
			m.Km[i][j], m.Km[j][i] = km, km
			m.Minutes[i][j], m.Minutes[j][i] = mins, mins
		}
	}
	return m
}
