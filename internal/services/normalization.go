package services

import (
	"fleet-route-planner/internal/domain"
	"math"
	"slices"
)

// ComputeReferenceScales samples, for every job, the shortest distance and
// time from any eligible driver, plus the money cost of the shortest-distance
// leg, and takes the 90th percentile of those samples per dimension. Each
// scale is raised to its floor.
//
// Eligibility here ignores the request's matching flag: a job is measured
// against drivers qualified for its service type, or all drivers if none are.
func ComputeReferenceScales(
	in *VrpInput,
	m *domain.Matrix,
	costs domain.CostSettings,
	floors ReferenceScales,
) ReferenceScales {
	var kms, mins, money []float64

	for _, pj := range in.Jobs {
		drivers := qualifiedDrivers(in, pj.Job.ServiceTypeID)

		bestKm, bestMin, bestCost := math.Inf(1), math.Inf(1), math.Inf(1)
		for _, d := range drivers {
			from := in.Drivers[d].Node
			for _, to := range pj.Nodes {
				km, mn := m.Km[from][to], m.Minutes[from][to]
				if km < bestKm {
					bestKm = km
					bestCost = travelCost(costs, km, mn)
				}
				bestMin = min(bestMin, mn)
			}
		}
		if math.IsInf(bestKm, 1) {
			continue
		}
		kms = append(kms, bestKm)
		mins = append(mins, bestMin)
		money = append(money, bestCost)
	}

	return ReferenceScales{
		DistanceKm: max(Percentile(kms, 90), floors.DistanceKm),
		Minutes:    max(Percentile(mins, 90), floors.Minutes),
		Cost:       max(Percentile(money, 90), floors.Cost),
	}
}

func qualifiedDrivers(in *VrpInput, serviceTypeID int) []int {
	var out []int
	for i, d := range in.Drivers {
		if d.Driver.CanServe(serviceTypeID) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		for i := range in.Drivers {
			out = append(out, i)
		}
	}
	return out
}

// travelCost is the money spent on a leg, in currency units.
func travelCost(c domain.CostSettings, km, minutes float64) float64 {
	return km*c.FuelCostPerKm.Float64() + minutes/60*c.PersonnelCostPerHour.Float64()
}

// Percentile returns the p-th percentile of values, interpolating linearly
// between order statistics. It returns 0 for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = min(max(p, 0), 100)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// NormalizeWeights turns 0-100 request weights into solver weights.
//
// Negative weights count as zero. A positive cost weight replaces distance
// and time, since cost already prices both. With nothing weighted the
// planner minimises time. Remaining weights become (w/100)^gamma, with the
// steeper gamma when one objective dominates.
func NormalizeWeights(raw Weights, normalize bool, cfg DominanceConfig) Weights {
	w := Weights{
		Time:     max(raw.Time, 0),
		Distance: max(raw.Distance, 0),
		Date:     max(raw.Date, 0),
		Cost:     max(raw.Cost, 0),
		Overtime: max(raw.Overtime, 0),
	}
	if w.Cost > 0 {
		w.Distance, w.Time = 0, 0
	}

	vals := []*float64{&w.Time, &w.Distance, &w.Date, &w.Cost, &w.Overtime}
	var sum float64
	for _, v := range vals {
		sum += *v
	}
	if sum == 0 {
		return Weights{Time: 1}
	}

	gamma := cfg.DefaultGamma
	if dominated(vals, cfg) {
		gamma = cfg.DominantGamma
	}

	sum = 0
	for _, v := range vals {
		*v = math.Pow(*v/100, gamma)
		sum += *v
	}

	if normalize && sum > 0 {
		for _, v := range vals {
			*v /= sum
		}
	}
	return w
}

// dominated reports whether exactly one weight is at least DominantMin while
// all others are at most OthersMax.
func dominated(vals []*float64, cfg DominanceConfig) bool {
	dominant := -1
	for i, v := range vals {
		if *v >= cfg.DominantMin {
			if dominant >= 0 {
				return false
			}
			dominant = i
		}
	}
	if dominant < 0 {
		return false
	}
	for i, v := range vals {
		if i != dominant && *v > cfg.OthersMax {
			return false
		}
	}
	return true
}
