package domain

import "math"

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// IsValid reports whether the coordinates are usable for routing.
// A (0, 0) pair is treated as "not geocoded".
func (c Coordinates) IsValid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	if c.Lat == 0 && c.Lon == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Rounded returns the coordinates rounded to the given number of decimal places.
// Five places is roughly one metre, which is what cache keys use.
func (c Coordinates) Rounded(places int) Coordinates {
	p := math.Pow(10, float64(places))
	return Coordinates{
		Lon: math.Round(c.Lon*p) / p,
		Lat: math.Round(c.Lat*p) / p,
	}
}
