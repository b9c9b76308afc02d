package services

import (
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
)

// MapSolution turns a solved assignment into one RoutePlan per driver with
// at least one stop, and returns the ids of jobs the solver left out.
func MapSolution(
	in *VrpInput,
	m *domain.Matrix,
	a ports.Assignment,
	costs domain.CostSettings,
) (routes []domain.RoutePlan, dropped []int) {
	for v, pd := range in.Drivers {
		plan := domain.RoutePlan{
			DriverID:    pd.Driver.ID,
			DriverName:  pd.Driver.Name,
			Date:        in.Date,
			StartMinute: int(a.Cumul(TimeResource, a.Start(v))),
		}

		prev := pd.Node
		for idx := a.Next(a.Start(v)); !a.IsEnd(idx); idx = a.Next(idx) {
			node := in.Nodes[a.NodeOf(idx)]
			pj := in.Jobs[node.Job]
			arrival := int(a.Cumul(TimeResource, idx))

			stop := domain.StopPlan{
				JobID:           pj.Job.ID,
				JobName:         pj.Job.Name,
				Sequence:        len(plan.Stops) + 1,
				Location:        node.Location,
				Window:          node.Window,
				ServiceMinutes:  node.ServiceMinutes,
				ArrivalMinute:   arrival,
				DepartureMinute: arrival + node.ServiceMinutes,
				TravelMinutes:   roundMinutes(m.Minutes[prev][idx]),
				TravelKm:        m.Km[prev][idx],
			}
			plan.Stops = append(plan.Stops, stop)
			plan.TotalTravelMinutes += stop.TravelMinutes
			plan.TotalServiceMinutes += stop.ServiceMinutes
			plan.TotalDistanceKm += stop.TravelKm
			prev = idx
		}

		if len(plan.Stops) == 0 {
			continue
		}

		plan.ReturnTravelMinutes = roundMinutes(m.Minutes[prev][pd.Node])
		plan.ReturnTravelKm = m.Km[prev][pd.Node]
		plan.TotalTravelMinutes += plan.ReturnTravelMinutes
		plan.TotalDistanceKm += plan.ReturnTravelKm
		plan.TotalMinutes = plan.TotalTravelMinutes + plan.TotalServiceMinutes
		plan.EndMinute = int(a.Cumul(TimeResource, a.End(v)))
		plan.EstimatedCost = costs.Estimate(plan.TotalDistanceKm, float64(plan.EndMinute-plan.StartMinute))

		if err := CheckRouteTotals(plan); err != nil {
			obs.Logger().Error().Err(err).Int("driver_id", plan.DriverID).Msg("inconsistent route totals")
		}
		routes = append(routes, plan)
	}

	for _, pj := range in.Jobs {
		visited := false
		for _, node := range pj.Nodes {
			if a.Next(node) != node {
				visited = true
				break
			}
		}
		if !visited {
			dropped = append(dropped, pj.Job.ID)
		}
	}

	return routes, dropped
}

// CheckRouteTotals verifies that a plan's totals agree with its legs.
func CheckRouteTotals(p domain.RoutePlan) error {
	travel, service := p.ReturnTravelMinutes, 0
	km := p.ReturnTravelKm
	for i, s := range p.Stops {
		if s.Sequence != i+1 {
			return fmt.Errorf("stop %d has sequence %d", i, s.Sequence)
		}
		if s.ArrivalMinute < s.Window.Start || s.DepartureMinute > s.Window.End {
			return fmt.Errorf("job %d served %s-%s outside window %s",
				s.JobID, domain.FormatMinute(s.ArrivalMinute), domain.FormatMinute(s.DepartureMinute), s.Window)
		}
		travel += s.TravelMinutes
		service += s.ServiceMinutes
		km += s.TravelKm
	}

	if travel != p.TotalTravelMinutes || service != p.TotalServiceMinutes {
		return fmt.Errorf("leg minutes %d+%d do not match totals %d+%d",
			travel, service, p.TotalTravelMinutes, p.TotalServiceMinutes)
	}
	if p.TotalMinutes != p.TotalTravelMinutes+p.TotalServiceMinutes {
		return fmt.Errorf("total minutes %d != travel %d + service %d",
			p.TotalMinutes, p.TotalTravelMinutes, p.TotalServiceMinutes)
	}
	if math.Abs(km-p.TotalDistanceKm) > 1e-6 {
		return fmt.Errorf("leg km %.3f do not match total %.3f", km, p.TotalDistanceKm)
	}
	if p.EndMinute-p.StartMinute < p.TotalMinutes {
		return fmt.Errorf("route spans %d minutes but needs %d", p.EndMinute-p.StartMinute, p.TotalMinutes)
	}
	return nil
}
