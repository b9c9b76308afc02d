package services

import (
	"fleet-route-planner/internal/domain"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPercentile(t *testing.T) {
	if got := Percentile(nil, 90); got != 0 {
		t.Fatalf("empty percentile = %v, want 0", got)
	}
	if got := Percentile([]float64{7}, 90); got != 7 {
		t.Fatalf("single percentile = %v, want 7", got)
	}
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	if got := Percentile(values, 90); !approx(got, 9.1) {
		t.Fatalf("p90 = %v, want 9.1", got)
	}
	if got := Percentile(values, 50); !approx(got, 5.5) {
		t.Fatalf("p50 = %v, want 5.5", got)
	}
	if values[0] != 10 {
		t.Fatalf("Percentile must not reorder its input")
	}
}

func TestNormalizeWeights(t *testing.T) {
	cfg := DefaultEngineConfig().Dominance

	if got := NormalizeWeights(Weights{}, false, cfg); got != (Weights{Time: 1}) {
		t.Fatalf("zero weights = %+v, want time only", got)
	}

	got := NormalizeWeights(Weights{Time: 30, Distance: 80, Cost: 50}, false, cfg)
	if got.Time != 0 || got.Distance != 0 || !approx(got.Cost, 0.25) {
		t.Fatalf("cost should replace time and distance, got %+v", got)
	}

	got = NormalizeWeights(Weights{Time: 95, Distance: 5}, false, cfg)
	if !approx(got.Time, 0.857375) || !approx(got.Distance, 0.000125) {
		t.Fatalf("dominant weights should use gamma 3, got %+v", got)
	}

	got = NormalizeWeights(Weights{Time: 50, Distance: 50, Overtime: -20}, true, cfg)
	if !approx(got.Time, 0.5) || !approx(got.Distance, 0.5) || got.Overtime != 0 {
		t.Fatalf("normalised weights = %+v, want 0.5/0.5", got)
	}
}

func TestComputeReferenceScalesUsesFloors(t *testing.T) {
	in := twoDriverInput(0)
	m := penaltyMatrix(5, 15, 10, 30)
	floors := ReferenceScales{DistanceKm: 60, Minutes: 5, Cost: 1}
	costs := domain.CostSettings{FuelCostPerKm: domain.MoneyFromFloat(1), PersonnelCostPerHour: domain.MoneyFromFloat(60)}

	got := ComputeReferenceScales(in, m, costs, floors)
	// One job: the nearest driver is 5 km / 10 min away, costing 5 + 10.
	if got.DistanceKm != 60 || got.Minutes != 10 || !approx(got.Cost, 15) {
		t.Fatalf("scales = %+v", got)
	}
}

func TestComputeReferenceScalesCostFollowsShortestLeg(t *testing.T) {
	in := twoDriverInput(0)
	// Driver 0 is nearer by km but slower; driver 1 is the cheaper trip.
	m := penaltyMatrix(5, 8, 60, 10)
	floors := ReferenceScales{DistanceKm: 1, Minutes: 1, Cost: 1}
	costs := domain.CostSettings{FuelCostPerKm: domain.MoneyFromFloat(1), PersonnelCostPerHour: domain.MoneyFromFloat(60)}

	got := ComputeReferenceScales(in, m, costs, floors)
	if got.DistanceKm != 5 || got.Minutes != 10 {
		t.Fatalf("scales = %+v, want 5 km and 10 min", got)
	}
	// 5 km + 60 min on driver 0's leg, not the 8 + 10 of driver 1.
	if !approx(got.Cost, 65) {
		t.Fatalf("cost scale = %v, want 65", got.Cost)
	}
}
