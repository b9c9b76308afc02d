package matrix

import (
	"fleet-route-planner/internal/domain"
	"math"
	"testing"
	"time"
)

func TestCacheKeyIgnoresSubMetreNoise(t *testing.T) {
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	a := []domain.Coordinates{{Lon: 13.405, Lat: 52.52}, {Lon: 13.45, Lat: 52.5}}
	b := []domain.Coordinates{{Lon: 13.4050001, Lat: 52.5199999}, {Lon: 13.45, Lat: 52.5}}

	if CacheKey(1, date, a) != CacheKey(1, date, b) {
		t.Fatalf("keys differ for points equal at 5 decimals")
	}
	if CacheKey(1, date, a) == CacheKey(2, date, a) {
		t.Fatalf("owner must be part of the key")
	}
	if CacheKey(1, date, a) == CacheKey(1, date.AddDate(0, 0, 1), a) {
		t.Fatalf("date must be part of the key")
	}
	if CacheKey(1, date, a) == CacheKey(1, date, []domain.Coordinates{a[1], a[0]}) {
		t.Fatalf("point order must be part of the key")
	}
}

func TestFallbackSymmetricZeroDiagonal(t *testing.T) {
	pts := []domain.Coordinates{
		{Lon: 13.405, Lat: 52.52},
		{Lon: 11.576, Lat: 48.137},
		{Lon: 9.993, Lat: 53.551},
		{Lon: 13.405, Lat: 52.52},
	}

	m1 := Fallback(pts, DefaultSpeedKmh)
	m2 := Fallback(pts, DefaultSpeedKmh)

	if !m1.Symmetric() {
		t.Fatalf("fallback matrix not symmetric")
	}
	for i := range pts {
		if m1.Km[i][i] != 0 || m1.Minutes[i][i] != 0 {
			t.Fatalf("diagonal %d not zero", i)
		}
		for j := range pts {
			if m1.Km[i][j] != m2.Km[i][j] {
				t.Fatalf("fallback not deterministic at %d,%d", i, j)
			}
		}
	}

	// Berlin to Munich is roughly 504 km great-circle.
	if km := m1.Km[0][1]; math.Abs(km-504) > 5 {
		t.Fatalf("Berlin-Munich = %.1f km", km)
	}
	if got, want := m1.Minutes[0][1], m1.Km[0][1]/50*60; math.Abs(got-want) > 1e-9 {
		t.Fatalf("minutes = %v, want %v", got, want)
	}
}
