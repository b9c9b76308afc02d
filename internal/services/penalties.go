package services

import (
	"fleet-route-planner/internal/domain"
	"math"
)

// PenaltyConfig holds resolved penalty constants for one solve.
type PenaltyConfig struct {
	DueCap            float64
	DetourCap         float64
	DetourRefKm       float64
	LateRefMinutes    float64
	OnTimeFactor      float64
	DetourWeightFloor float64
}

// PenaltyInfo is the per-driver penalty data of one job. Slices are indexed
// by driver; ineligible drivers carry zeros and Eligible false.
type PenaltyInfo struct {
	Eligible  []bool
	BaseKm    []float64
	DetourKm  []float64
	Detour    []float64
	Due       []float64
	NearestKm float64
}

// SliderValue maps a 0-100 percent onto [minValue, base] below 50 and onto
// [base, 2*base] from 50 up.
func SliderValue(percent, minValue, base float64) float64 {
	percent = min(max(percent, 0), 100)
	if percent < 50 {
		return minValue + (base-minValue)*percent/50
	}
	return base + base*(percent-50)/50
}

// ResolvePenaltyConfig applies the request's sliders to the configured ranges.
func ResolvePenaltyConfig(knobs PenaltyKnobs, b PenaltyBounds) PenaltyConfig {
	resolve := func(knob *float64, r SliderRange) float64 {
		if knob == nil {
			return r.Base
		}
		return SliderValue(*knob, r.Min, r.Base)
	}
	return PenaltyConfig{
		DueCap:            resolve(knobs.DueCap, b.DueCap),
		DetourCap:         resolve(knobs.DetourCap, b.DetourCap),
		DetourRefKm:       resolve(knobs.DetourRefKm, b.DetourRefKm),
		LateRefMinutes:    resolve(knobs.LateRefMinutes, b.LateRefMinutes),
		OnTimeFactor:      b.OnTimeFactor,
		DetourWeightFloor: b.DetourWeightFloor,
	}
}

// ComputePenalties returns one PenaltyInfo per job, in job order.
//
// The detour penalty charges a driver for the km it is farther from the job
// than the nearest eligible driver. The due penalty charges drivers that
// cannot reach the job before the end of its due date by their lateness;
// when someone can, those on time pay only a small share of the urgency.
// When nobody can, every driver pays its lateness.
func ComputePenalties(in *VrpInput, m *domain.Matrix, w Weights, cfg PenaltyConfig) []PenaltyInfo {
	nd := len(in.Drivers)
	detourWeight := max(cfg.DetourWeightFloor, max(w.Distance, w.Cost))

	out := make([]PenaltyInfo, len(in.Jobs))
	for ji, pj := range in.Jobs {
		info := PenaltyInfo{
			Eligible:  make([]bool, nd),
			BaseKm:    make([]float64, nd),
			DetourKm:  make([]float64, nd),
			Detour:    make([]float64, nd),
			Due:       make([]float64, nd),
			NearestKm: math.Inf(1),
		}

		arrival := make([]int, nd)
		for d, pd := range in.Drivers {
			if !in.Eligible(d, ji) {
				continue
			}
			info.Eligible[d] = true

			base := math.Inf(1)
			for _, node := range pj.Nodes {
				base = min(base, m.Km[pd.Node][node])
			}
			info.BaseKm[d] = base
			info.NearestKm = min(info.NearestKm, base)
			arrival[d] = earliestArrival(in, m, pd, pj)
		}
		if math.IsInf(info.NearestKm, 1) {
			info.NearestKm = 0
		}

		dueEnd := pj.DueDayOffset*domain.MinutesPerDay + domain.MinutesPerDay
		anyOnTime := false
		for d := range in.Drivers {
			if info.Eligible[d] && arrival[d] <= dueEnd {
				anyOnTime = true
				break
			}
		}

		for d := range in.Drivers {
			if !info.Eligible[d] {
				continue
			}
			detour := max(0, info.BaseKm[d]-info.NearestKm)
			info.DetourKm[d] = detour
			if cfg.DetourRefKm > 0 {
				info.Detour[d] = clamp01(detour/cfg.DetourRefKm) * cfg.DetourCap * detourWeight
			}

			late := arrival[d] - dueEnd
			switch {
			case anyOnTime && late <= 0:
				info.Due[d] = pj.Urgency * cfg.OnTimeFactor * cfg.DueCap
			case cfg.LateRefMinutes > 0:
				info.Due[d] = clamp01(float64(max(late, 0))/cfg.LateRefMinutes) * cfg.DueCap
			}
		}

		out[ji] = info
	}
	return out
}

// earliestArrival is the first minute driver pd could start serving job pj,
// going straight from its start. Past every window it is the arrival itself.
func earliestArrival(in *VrpInput, m *domain.Matrix, pd PlanDriver, pj PlanJob) int {
	best := math.MaxInt
	fallback := math.MaxInt
	for _, node := range pj.Nodes {
		w := in.Nodes[node].Window
		arrive := pd.StartMinute() + roundMinutes(m.Minutes[pd.Node][node])
		fallback = min(fallback, arrive)
		if arrive > w.LatestStart(in.Nodes[node].ServiceMinutes) {
			continue
		}
		best = min(best, max(arrive, w.Start))
	}
	if best == math.MaxInt {
		return fallback
	}
	return best
}
