package solver

// evalRoute returns the cost of vehicle v serving nodes in order, or false if
// the route breaks a hard constraint.
func (m *RoutingModel) evalRoute(v int, nodes []int) (int64, bool) {
	for _, n := range nodes {
		if !m.canVisit(v, n) {
			return 0, false
		}
	}

	for _, c := range m.capacities {
		var load int64
		for _, n := range nodes {
			load += c.demand[n]
		}
		if load > c.capacities[v] {
			return 0, false
		}
	}

	depot := m.depots[v]
	var cost int64
	prev := depot
	for _, n := range nodes {
		cost += m.arcCost(v, prev, n)
		prev = n
	}
	cost += m.arcCost(v, prev, depot)

	if m.time != nil {
		end, wait, ok := m.schedule(v, nodes, nil)
		if !ok {
			return 0, false
		}
		b := m.bounds[v]
		if end > b.softEnd {
			cost += (end - b.softEnd) * b.overtimeCost
		}
		cost += wait * m.slackCost
	}

	return cost, true
}

// schedule starts every visit as early as possible. When cumuls is non-nil
// it must hold len(nodes)+2 values and receives the start cumul, the service
// start at each node and the return cumul.
func (m *RoutingModel) schedule(v int, nodes []int, cumuls []int64) (end, wait int64, ok bool) {
	tr := m.time
	b := m.bounds[v]
	depot := m.depots[v]

	t := b.start
	if !tr.fixedStart && len(nodes) > 0 {
		// Leave late enough to arrive exactly when the first window opens.
		if latest := tr.windows[nodes[0]].start - tr.transit(depot, nodes[0]); latest > t {
			t = latest
		}
	}
	if t > b.hardEnd || t > tr.capacityMax {
		return 0, 0, false
	}
	if cumuls != nil {
		cumuls[0] = t
	}

	prev := depot
	for i, n := range nodes {
		arrival := t + tr.transit(prev, n)
		w := tr.windows[n]
		if arrival < w.start {
			idle := w.start - arrival
			if idle > tr.slackMax {
				return 0, 0, false
			}
			wait += idle
			arrival = w.start
		}
		if arrival > w.end || arrival > tr.capacityMax {
			return 0, 0, false
		}
		if cumuls != nil {
			cumuls[i+1] = arrival
		}
		t = arrival
		prev = n
	}

	end = t + tr.transit(prev, depot)
	if end > b.hardEnd || end > tr.capacityMax {
		return 0, 0, false
	}
	if cumuls != nil {
		cumuls[len(nodes)+1] = end
	}
	return end, wait, true
}
