package services

import (
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
)

// Resource names registered on the routing model.
const (
	TimeResource  = "time"
	StopsResource = "stops"
)

// Upper bound for drop penalties, far below the solver's own sentinel costs.
const maxDropPenalty int64 = 1 << 44

type ModelOptions struct {
	MaxStopsPerDriver     int
	OvertimeBufferMinutes int
	// CostScale turns fractional objective values into integer solver costs.
	CostScale float64
	Costs     domain.CostSettings
}

// RoutingProblem is a built model ready to solve.
type RoutingProblem struct {
	Model       ports.RoutingModel
	DropPenalty int64
}

// BuildModel assembles the routing model for in.
//
// Vehicle v is in.Drivers[v]; its depot is the driver's start node. Arcs are
// priced by the weighted, normalised distance, time and money of the leg,
// plus the due and detour penalties of the job being entered. Service time
// is charged on the arc leaving a job.
func BuildModel(
	in *VrpInput,
	m *domain.Matrix,
	scales ReferenceScales,
	w Weights,
	penalties []PenaltyInfo,
	opts ModelOptions,
	newModel ports.RoutingModelFactory,
) (*RoutingProblem, error) {
	n := len(in.Nodes)
	if len(in.Drivers) == 0 || len(in.Jobs) == 0 {
		return nil, errors.New("build model: need at least one driver and one job")
	}
	if m.Size() != n {
		return nil, fmt.Errorf("build model: matrix size %d, want %d", m.Size(), n)
	}
	if len(penalties) != len(in.Jobs) {
		return nil, fmt.Errorf("build model: %d penalty rows for %d jobs", len(penalties), len(in.Jobs))
	}
	scale := opts.CostScale
	if scale <= 0 {
		scale = 1000
	}

	depots := make([]int, len(in.Drivers))
	for v, d := range in.Drivers {
		depots[v] = d.Node
	}
	model, err := newModel(n, depots)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	base := make([][]int64, n)
	transit := make([][]int64, n)
	var maxBase int64
	for i := range n {
		base[i] = make([]int64, n)
		transit[i] = make([]int64, n)
		for j := range n {
			if i == j {
				continue
			}
			km, mins := m.Km[i][j], m.Minutes[i][j]
			c := w.Distance*ratio(km, scales.DistanceKm) +
				w.Time*ratio(mins, scales.Minutes) +
				w.Cost*ratio(travelCost(opts.Costs, km, mins), scales.Cost)
			base[i][j] = int64(math.Round(c * scale))
			maxBase = max(maxBase, base[i][j])
			transit[i][j] = int64(roundMinutes(mins) + in.Nodes[i].ServiceMinutes)
		}
	}

	// jobPenalty[job][vehicle] is added to every arc entering the job.
	jobPenalty := make([][]int64, len(in.Jobs))
	var maxPenalty int64
	for ji, info := range penalties {
		jobPenalty[ji] = make([]int64, len(in.Drivers))
		for v := range in.Drivers {
			p := w.Date*info.Due[v] + info.Detour[v]
			jobPenalty[ji][v] = int64(math.Round(p * scale))
			maxPenalty = max(maxPenalty, jobPenalty[ji][v])
		}
	}

	model.RegisterCostCallback(func(v, from, to int) int64 {
		c := base[from][to]
		if j := in.Nodes[to].Job; j >= 0 {
			c += jobPenalty[j][v]
		}
		return c
	})

	horizon := int64(domain.MinutesPerDay)
	for _, d := range in.Drivers {
		horizon = max(horizon, int64(d.EndMinute+opts.OvertimeBufferMinutes))
	}
	model.AddTimeResource(TimeResource, func(from, to int) int64 { return transit[from][to] }, horizon, horizon, true)

	overtimeCost := perMinuteCost(w.Overtime, scales.Minutes, scale)
	for v, d := range in.Drivers {
		end := int64(d.EndMinute)
		hardEnd := end
		if w.Overtime > 0 {
			hardEnd += int64(opts.OvertimeBufferMinutes)
		}
		model.SetVehicleTimeBounds(v, int64(d.StartMinute()), end, hardEnd, overtimeCost)
	}
	slackCost := perMinuteCost(w.Time, scales.Minutes, scale)
	model.SetGlobalSlackCost(slackCost)

	for i, node := range in.Nodes {
		if node.Kind != NodeJobWindow {
			continue
		}
		model.SetNodeTimeWindow(i, int64(node.Window.Start), int64(node.Window.LatestStart(node.ServiceMinutes)))

		if in.RequireServiceTypeMatch {
			var allowed []int
			for v := range in.Drivers {
				if in.Eligible(v, node.Job) {
					allowed = append(allowed, v)
				}
			}
			model.RestrictVehiclesForNode(i, allowed)
		}
	}

	if opts.MaxStopsPerDriver > 0 {
		caps := make([]int64, len(in.Drivers))
		for v := range caps {
			caps[v] = int64(opts.MaxStopsPerDriver)
		}
		model.AddCapacityResource(StopsResource, func(node int) int64 {
			if in.Nodes[node].Kind == NodeJobWindow {
				return 1
			}
			return 0
		}, caps)
	}

	// A drop must cost more than any complete plan could: every job and
	// return arc at its maximum, all overtime and all waiting.
	arcs := int64(len(in.Jobs) + len(in.Drivers))
	bound := arcs*(maxBase+maxPenalty) +
		int64(len(in.Drivers))*horizon*(overtimeCost+slackCost)
	drop := min(2*bound+1, maxDropPenalty)

	for _, pj := range in.Jobs {
		model.AddDisjunction(pj.Nodes, drop)
	}

	return &RoutingProblem{Model: model, DropPenalty: drop}, nil
}

func ratio(v, ref float64) float64 {
	if ref <= 0 {
		return 0
	}
	return v / ref
}

func perMinuteCost(weight, refMinutes, scale float64) int64 {
	if weight <= 0 {
		return 0
	}
	return max(1, int64(math.Round(weight*ratio(1, refMinutes)*scale)))
}

func roundMinutes(m float64) int {
	return int(math.Round(m))
}
