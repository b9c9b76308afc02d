package solver

import (
	"context"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
	"slices"
	"time"
)

// Cost charged while a mandatory node is unvisited. Large enough that any
// feasible insertion wins, small enough that sums cannot overflow.
const mandatoryPenalty int64 = 1 << 48

// Solve runs the search and returns the best assignment found. It returns
// ErrNoSolution when a mandatory node cannot be visited or a vehicle cannot
// even stay at its depot.
func (m *RoutingModel) Solve(ctx context.Context, params SearchParameters) (ports.Assignment, error) {
	a, err := m.solve(ctx, params)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (m *RoutingModel) solve(ctx context.Context, params SearchParameters) (*Assignment, error) {
	if m.status != StatusBuilt {
		return nil, ErrAlreadySolved
	}
	if err := m.finalize(); err != nil {
		m.status = StatusInfeasible
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		m.status = StatusInfeasible
		return nil, fmt.Errorf("solve: %w", err)
	}

	m.status = StatusSolving
	params = withDefaults(params)

	s := &search{
		m:          m,
		params:     params,
		ctx:        ctx,
		deadline:   time.Now().Add(params.TimeLimit),
		arcPenalty: make(map[[2]int]int64),
	}

	if !s.construct() {
		m.status = StatusInfeasible
		return nil, ErrNoSolution
	}
	s.improve()

	for g, grp := range m.groups {
		if grp.mandatory && !s.best.performed[g] {
			m.status = StatusInfeasible
			return nil, ErrNoSolution
		}
	}

	m.status = StatusSolved
	return m.newAssignment(s.best.routes, s.bestCost), nil
}

type solution struct {
	routes    [][]int
	cost      []int64
	aug       []int64
	performed []bool
}

func (s *solution) clone() *solution {
	out := &solution{
		routes:    make([][]int, len(s.routes)),
		cost:      slices.Clone(s.cost),
		aug:       slices.Clone(s.aug),
		performed: slices.Clone(s.performed),
	}
	for i, r := range s.routes {
		out.routes[i] = slices.Clone(r)
	}
	return out
}

type search struct {
	m          *RoutingModel
	params     SearchParameters
	ctx        context.Context
	deadline   time.Time
	solutions  int
	lambda     float64
	arcPenalty map[[2]int]int64

	cur      *solution
	best     *solution
	bestCost int64
}

func (s *search) stopped() bool {
	if s.solutions >= s.params.SolutionLimit {
		return true
	}
	if s.ctx.Err() != nil {
		return true
	}
	return time.Now().After(s.deadline)
}

func (s *search) groupPenalty(g int) int64 {
	if s.m.groups[g].mandatory {
		return mandatoryPenalty
	}
	return s.m.groups[g].penalty
}

// score evaluates a route under the true and the penalised (augmented) cost.
func (s *search) score(v int, nodes []int) (cost, aug int64, ok bool) {
	cost, ok = s.m.evalRoute(v, nodes)
	if !ok {
		return 0, 0, false
	}
	if s.lambda == 0 || len(s.arcPenalty) == 0 {
		return cost, cost, true
	}

	var pen int64
	prev := s.m.depots[v]
	for _, n := range nodes {
		pen += s.arcPenalty[[2]int{prev, n}]
		prev = n
	}
	pen += s.arcPenalty[[2]int{prev, s.m.depots[v]}]
	return cost, cost + int64(math.Round(s.lambda*float64(pen))), true
}

func (s *search) total(sol *solution) int64 {
	var t int64
	for _, c := range sol.cost {
		t += c
	}
	for g, done := range sol.performed {
		if !done {
			t += s.groupPenalty(g)
		}
	}
	return t
}

// commit installs a new version of route v.
func (s *search) commit(v int, nodes []int, cost, aug int64) {
	s.cur.routes[v] = nodes
	s.cur.cost[v] = cost
	s.cur.aug[v] = aug
}

func (s *search) accept() {
	s.solutions++
	if t := s.total(s.cur); t < s.bestCost {
		s.bestCost = t
		s.best = s.cur.clone()
	}
}

func (s *search) construct() bool {
	m := s.m
	nv := len(m.depots)
	s.cur = &solution{
		routes:    make([][]int, nv),
		cost:      make([]int64, nv),
		aug:       make([]int64, nv),
		performed: make([]bool, len(m.groups)),
	}
	for v := range nv {
		c, ok := m.evalRoute(v, nil)
		if !ok {
			return false
		}
		s.cur.cost[v], s.cur.aug[v] = c, c
	}

	if s.params.FirstSolution == PathCheapestArc {
		s.pathCheapestArc()
	}
	s.cheapestInsertion()

	s.best = s.cur.clone()
	s.bestCost = s.total(s.cur)
	return true
}

// pathCheapestArc grows each route from its start, always taking the
// cheapest arc to a feasible unvisited node.
func (s *search) pathCheapestArc() {
	m := s.m
	for v := range m.depots {
		route := s.cur.routes[v]
		for s.ctx.Err() == nil {
			last := m.depots[v]
			if len(route) > 0 {
				last = route[len(route)-1]
			}

			bestNode, bestArc := -1, int64(math.MaxInt64)
			var bestCost int64
			for g, grp := range m.groups {
				if s.cur.performed[g] {
					continue
				}
				for _, n := range grp.nodes {
					if !m.canVisit(v, n) {
						continue
					}
					arc := m.arcCost(v, last, n)
					if arc >= bestArc {
						continue
					}
					if c, ok := m.evalRoute(v, append(slices.Clone(route), n)); ok {
						bestNode, bestArc, bestCost = n, arc, c
					}
				}
			}
			if bestNode < 0 {
				break
			}
			route = append(route, bestNode)
			s.cur.performed[m.groupOf[bestNode]] = true
			s.commit(v, route, bestCost, bestCost)
		}
	}
}

// cheapestInsertion places every unvisited group, mandatory ones first, at
// its cheapest feasible position.
func (s *search) cheapestInsertion() {
	order := make([]int, 0, len(s.m.groups))
	for g, grp := range s.m.groups {
		if grp.mandatory && !s.cur.performed[g] {
			order = append(order, g)
		}
	}
	for g, grp := range s.m.groups {
		if !grp.mandatory && !s.cur.performed[g] {
			order = append(order, g)
		}
	}

	for _, g := range order {
		if s.ctx.Err() != nil {
			return
		}
		v, nodes, cost, aug, ok := s.bestInsertion(g)
		if !ok {
			continue
		}
		if !s.m.groups[g].mandatory && cost-s.cur.cost[v] >= s.groupPenalty(g) {
			continue
		}
		s.cur.performed[g] = true
		s.commit(v, nodes, cost, aug)
	}
}

// bestInsertion finds the cheapest (augmented) way to visit group g.
func (s *search) bestInsertion(g int) (vehicle int, nodes []int, cost, aug int64, ok bool) {
	m := s.m
	bestDelta := int64(math.MaxInt64)
	for _, n := range m.groups[g].nodes {
		for v, route := range s.cur.routes {
			if !m.canVisit(v, n) {
				continue
			}
			for pos := 0; pos <= len(route); pos++ {
				cand := slices.Insert(slices.Clone(route), pos, n)
				c, a, feasible := s.score(v, cand)
				if !feasible {
					continue
				}
				if delta := a - s.cur.aug[v]; delta < bestDelta {
					bestDelta = delta
					vehicle, nodes, cost, aug, ok = v, cand, c, a, true
				}
			}
		}
	}
	return vehicle, nodes, cost, aug, ok
}

func (s *search) improve() {
	s.descend()
	if s.params.Metaheuristic != GuidedLocalSearch {
		return
	}

	stall := 0
	for !s.stopped() {
		if !s.penalize() {
			return
		}
		before := s.bestCost
		s.descend()
		if s.bestCost < before {
			stall = 0
			continue
		}
		stall++
		if stall >= s.params.StallLimit {
			return
		}
	}
}

// descend applies improving moves until none is left or the search stops.
func (s *search) descend() {
	for !s.stopped() {
		if s.insertUnperformed() || s.relocate() || s.exchange() ||
			s.twoOpt() || s.swapAlternative() || s.dropNode() {
			s.accept()
			continue
		}
		return
	}
}

func (s *search) insertUnperformed() bool {
	for g := range s.m.groups {
		if s.cur.performed[g] {
			continue
		}
		if s.stopped() {
			return false
		}
		v, nodes, cost, aug, ok := s.bestInsertion(g)
		if !ok || aug-s.cur.aug[v] >= s.groupPenalty(g) {
			continue
		}
		s.cur.performed[g] = true
		s.commit(v, nodes, cost, aug)
		return true
	}
	return false
}

// relocate moves one node to another position, on its own or another route.
func (s *search) relocate() bool {
	m := s.m
	for r1, route1 := range s.cur.routes {
		for i, n := range route1 {
			if s.stopped() {
				return false
			}
			without := slices.Delete(slices.Clone(route1), i, i+1)
			c1, a1, ok1 := s.score(r1, without)

			for r2, route2 := range s.cur.routes {
				if !m.canVisit(r2, n) {
					continue
				}
				if r2 == r1 {
					for pos := 0; pos <= len(without); pos++ {
						if pos == i {
							continue
						}
						cand := slices.Insert(slices.Clone(without), pos, n)
						if c, a, ok := s.score(r1, cand); ok && a < s.cur.aug[r1] {
							s.commit(r1, cand, c, a)
							return true
						}
					}
					continue
				}
				if !ok1 {
					continue
				}
				old := s.cur.aug[r1] + s.cur.aug[r2]
				for pos := 0; pos <= len(route2); pos++ {
					cand := slices.Insert(slices.Clone(route2), pos, n)
					if c2, a2, ok := s.score(r2, cand); ok && a1+a2 < old {
						s.commit(r1, without, c1, a1)
						s.commit(r2, cand, c2, a2)
						return true
					}
				}
			}
		}
	}
	return false
}

// exchange swaps two nodes, within a route or across two routes.
func (s *search) exchange() bool {
	m := s.m
	routes := s.cur.routes
	for r1 := range routes {
		for r2 := r1; r2 < len(routes); r2++ {
			for i, a := range routes[r1] {
				if s.stopped() {
					return false
				}
				start := 0
				if r1 == r2 {
					start = i + 1
				}
				for j := start; j < len(routes[r2]); j++ {
					b := routes[r2][j]
					if r1 == r2 {
						cand := slices.Clone(routes[r1])
						cand[i], cand[j] = b, a
						if c, ag, ok := s.score(r1, cand); ok && ag < s.cur.aug[r1] {
							s.commit(r1, cand, c, ag)
							return true
						}
						continue
					}
					if !m.canVisit(r1, b) || !m.canVisit(r2, a) {
						continue
					}
					cand1 := slices.Clone(routes[r1])
					cand1[i] = b
					cand2 := slices.Clone(routes[r2])
					cand2[j] = a
					c1, a1, ok1 := s.score(r1, cand1)
					if !ok1 {
						continue
					}
					c2, a2, ok2 := s.score(r2, cand2)
					if ok2 && a1+a2 < s.cur.aug[r1]+s.cur.aug[r2] {
						s.commit(r1, cand1, c1, a1)
						s.commit(r2, cand2, c2, a2)
						return true
					}
				}
			}
		}
	}
	return false
}

// twoOpt reverses a segment of one route.
func (s *search) twoOpt() bool {
	for v, route := range s.cur.routes {
		for i := 0; i < len(route)-1; i++ {
			if s.stopped() {
				return false
			}
			for j := i + 1; j < len(route); j++ {
				cand := slices.Clone(route)
				slices.Reverse(cand[i : j+1])
				if c, a, ok := s.score(v, cand); ok && a < s.cur.aug[v] {
					s.commit(v, cand, c, a)
					return true
				}
			}
		}
	}
	return false
}

// swapAlternative replaces a visited node by another node of its disjunction,
// e.g. the afternoon window of the same job.
func (s *search) swapAlternative() bool {
	m := s.m
	for v, route := range s.cur.routes {
		for i, n := range route {
			grp := m.groups[m.groupOf[n]]
			if len(grp.nodes) < 2 {
				continue
			}
			if s.stopped() {
				return false
			}
			for _, alt := range grp.nodes {
				if alt == n || !m.canVisit(v, alt) {
					continue
				}
				cand := slices.Clone(route)
				cand[i] = alt
				if c, a, ok := s.score(v, cand); ok && a < s.cur.aug[v] {
					s.commit(v, cand, c, a)
					return true
				}
			}
		}
	}
	return false
}

// dropNode leaves an optional node unvisited when its penalty is cheaper.
func (s *search) dropNode() bool {
	m := s.m
	for v, route := range s.cur.routes {
		for i, n := range route {
			g := m.groupOf[n]
			if m.groups[g].mandatory {
				continue
			}
			without := slices.Delete(slices.Clone(route), i, i+1)
			c, a, ok := s.score(v, without)
			if ok && a+s.groupPenalty(g) < s.cur.aug[v] {
				s.cur.performed[g] = false
				s.commit(v, without, c, a)
				return true
			}
		}
	}
	return false
}

// penalize raises the penalty of the arcs with the highest utility in the
// current local minimum. It reports false when no arc carries any cost.
func (s *search) penalize() bool {
	m := s.m
	type arc struct {
		key  [2]int
		cost int64
	}

	var arcs []arc
	var sum int64
	for v, route := range s.cur.routes {
		if len(route) == 0 {
			continue
		}
		prev := m.depots[v]
		for _, n := range append(slices.Clone(route), m.depots[v]) {
			c := m.arcCost(v, prev, n)
			arcs = append(arcs, arc{key: [2]int{prev, n}, cost: c})
			sum += c
			prev = n
		}
	}
	if len(arcs) == 0 || sum <= 0 {
		return false
	}

	if s.lambda == 0 {
		s.lambda = s.params.GLSLambda * float64(sum) / float64(len(arcs))
		if s.lambda <= 0 {
			return false
		}
	}

	var maxUtil float64
	for _, a := range arcs {
		if u := float64(a.cost) / float64(1+s.arcPenalty[a.key]); u > maxUtil {
			maxUtil = u
		}
	}
	if maxUtil <= 0 {
		return false
	}
	for _, a := range arcs {
		if float64(a.cost)/float64(1+s.arcPenalty[a.key]) >= maxUtil {
			s.arcPenalty[a.key]++
		}
	}

	for v, route := range s.cur.routes {
		_, a, _ := s.score(v, route)
		s.cur.aug[v] = a
	}
	return true
}
