// Package solver is a small vehicle-routing engine: a routing model with a
// time resource, disjunctions, vehicle restrictions and capacities, solved by
// a first-solution heuristic followed by local search.
//
// Cancellation is coarse-grained: the search polls its context and deadline
// between moves, so a single move evaluation always runs to completion.
package solver

import (
	"errors"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
)

type Status = ports.ModelStatus

const (
	StatusBuilt      = ports.ModelBuilt
	StatusSolving    = ports.ModelSolving
	StatusSolved     = ports.ModelSolved
	StatusInfeasible = ports.ModelInfeasible
)

var (
	// ErrNoSolution means no assignment satisfies the hard constraints.
	ErrNoSolution    = errors.New("solver: no solution found")
	ErrAlreadySolved = errors.New("solver: model already solved")
)

type (
	TransitFunc = ports.TransitFunc
	ArcCostFunc = ports.ArcCostFunc
	DemandFunc  = ports.DemandFunc
)

var _ ports.RoutingModel = (*RoutingModel)(nil)

type window struct{ start, end int64 }

type timeResource struct {
	name        string
	transit     TransitFunc
	slackMax    int64
	capacityMax int64
	fixedStart  bool
	windows     []window
}

type vehicleBounds struct {
	start        int64
	hardEnd      int64
	softEnd      int64
	overtimeCost int64
}

type capacityResource struct {
	name       string
	demand     []int64
	capacities []int64
}

type disjunction struct {
	nodes     []int
	penalty   int64
	mandatory bool
}

// RoutingModel describes one routing problem. Node indices run from 0 to
// NumNodes()-1; each vehicle starts and ends at its depot node.
//
// Setters record the first misuse and Solve reports it.
type RoutingModel struct {
	numNodes     int
	depots       []int
	depotVehicle []int

	arcCost    ArcCostFunc
	time       *timeResource
	bounds     []vehicleBounds
	slackCost  int64
	groups     []disjunction
	groupOf    []int
	allowed    [][]bool
	capacities []capacityResource

	status Status
	err    error
}

// New satisfies ports.RoutingModelFactory.
func New(numNodes int, depots []int) (ports.RoutingModel, error) {
	m, err := NewRoutingModel(numNodes, depots)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewRoutingModel creates a model with one vehicle per entry of depots.
func NewRoutingModel(numNodes int, depots []int) (*RoutingModel, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("new routing model: numNodes must be positive, got %d", numNodes)
	}
	if len(depots) == 0 {
		return nil, errors.New("new routing model: at least one vehicle is required")
	}

	depotVehicle := make([]int, numNodes)
	for i := range depotVehicle {
		depotVehicle[i] = -1
	}
	for v, d := range depots {
		if d < 0 || d >= numNodes {
			return nil, fmt.Errorf("new routing model: depot %d of vehicle %d out of range", d, v)
		}
		if depotVehicle[d] >= 0 {
			return nil, fmt.Errorf("new routing model: node %d is the depot of vehicles %d and %d", d, depotVehicle[d], v)
		}
		depotVehicle[d] = v
	}

	groupOf := make([]int, numNodes)
	for i := range groupOf {
		groupOf[i] = -1
	}

	bounds := make([]vehicleBounds, len(depots))
	for v := range bounds {
		bounds[v] = vehicleBounds{hardEnd: math.MaxInt64 / 4, softEnd: math.MaxInt64 / 4}
	}

	return &RoutingModel{
		numNodes:     numNodes,
		depots:       append([]int(nil), depots...),
		depotVehicle: depotVehicle,
		bounds:       bounds,
		groupOf:      groupOf,
		allowed:      make([][]bool, numNodes),
	}, nil
}

func (m *RoutingModel) NumNodes() int    { return m.numNodes }
func (m *RoutingModel) NumVehicles() int { return len(m.depots) }
func (m *RoutingModel) Status() Status   { return m.status }

func (m *RoutingModel) fail(format string, args ...any) {
	if m.err == nil {
		m.err = fmt.Errorf(format, args...)
	}
}

func (m *RoutingModel) validNode(op string, node int) bool {
	if node < 0 || node >= m.numNodes {
		m.fail("%s: node %d out of range", op, node)
		return false
	}
	return true
}

func (m *RoutingModel) validVehicle(op string, v int) bool {
	if v < 0 || v >= len(m.depots) {
		m.fail("%s: vehicle %d out of range", op, v)
		return false
	}
	return true
}

// RegisterCostCallback sets the arc cost minimised by the search.
func (m *RoutingModel) RegisterCostCallback(fn ArcCostFunc) {
	m.arcCost = fn
}

// AddTimeResource adds the cumulative time resource. transit(i, j) is the
// time from starting service at i to arriving at j. Waiting at a node may not
// exceed slackMax and no cumulative value may exceed capacityMax. With
// fixedStart every vehicle's cumul at its start equals its start bound.
func (m *RoutingModel) AddTimeResource(name string, transit TransitFunc, slackMax, capacityMax int64, fixedStart bool) {
	if m.time != nil {
		m.fail("add time resource %q: model already has %q", name, m.time.name)
		return
	}
	if transit == nil {
		m.fail("add time resource %q: nil transit", name)
		return
	}

	windows := make([]window, m.numNodes)
	for i := range windows {
		windows[i] = window{start: 0, end: capacityMax}
	}
	m.time = &timeResource{
		name:        name,
		transit:     transit,
		slackMax:    slackMax,
		capacityMax: capacityMax,
		fixedStart:  fixedStart,
		windows:     windows,
	}
	for v := range m.bounds {
		m.bounds[v].hardEnd = capacityMax
		m.bounds[v].softEnd = capacityMax
	}
}

// SetVehicleTimeBounds fixes when vehicle v starts and bounds when it must be
// back. Returning after softEnd costs overtimeCost per unit; hardEnd may not be
// exceeded.
func (m *RoutingModel) SetVehicleTimeBounds(v int, start, softEnd, hardEnd, overtimeCost int64) {
	if m.time == nil {
		m.fail("set vehicle time bounds: no time resource")
		return
	}
	if !m.validVehicle("set vehicle time bounds", v) {
		return
	}
	if softEnd > hardEnd {
		softEnd = hardEnd
	}
	m.bounds[v] = vehicleBounds{start: start, hardEnd: hardEnd, softEnd: softEnd, overtimeCost: overtimeCost}
}

// SetNodeTimeWindow bounds the cumul (service start) at node.
func (m *RoutingModel) SetNodeTimeWindow(node int, start, end int64) {
	if m.time == nil {
		m.fail("set node time window: no time resource")
		return
	}
	if !m.validNode("set node time window", node) {
		return
	}
	m.time.windows[node] = window{start: start, end: end}
}

// SetGlobalSlackCost charges coef per unit of waiting on every route.
func (m *RoutingModel) SetGlobalSlackCost(coef int64) {
	m.slackCost = coef
}

// AddDisjunction lets the search visit at most one node of the group, or none
// at the given penalty.
func (m *RoutingModel) AddDisjunction(nodes []int, penalty int64) {
	if len(nodes) == 0 {
		m.fail("add disjunction: empty node group")
		return
	}
	g := len(m.groups)
	for _, n := range nodes {
		if !m.validNode("add disjunction", n) {
			return
		}
		if m.depotVehicle[n] >= 0 {
			m.fail("add disjunction: node %d is a depot", n)
			return
		}
		if m.groupOf[n] >= 0 {
			m.fail("add disjunction: node %d already in a disjunction", n)
			return
		}
	}
	for _, n := range nodes {
		m.groupOf[n] = g
	}
	m.groups = append(m.groups, disjunction{nodes: append([]int(nil), nodes...), penalty: penalty})
}

// RestrictVehiclesForNode limits which vehicles may visit node.
func (m *RoutingModel) RestrictVehiclesForNode(node int, vehicles []int) {
	if !m.validNode("restrict vehicles", node) {
		return
	}
	allowed := make([]bool, len(m.depots))
	for _, v := range vehicles {
		if !m.validVehicle("restrict vehicles", v) {
			return
		}
		allowed[v] = true
	}
	m.allowed[node] = allowed
}

// AddCapacityResource limits the summed demand on each vehicle's route.
func (m *RoutingModel) AddCapacityResource(name string, demand DemandFunc, capacities []int64) {
	if len(capacities) != len(m.depots) {
		m.fail("add capacity %q: %d capacities for %d vehicles", name, len(capacities), len(m.depots))
		return
	}
	d := make([]int64, m.numNodes)
	for i := range d {
		d[i] = demand(i)
	}
	m.capacities = append(m.capacities, capacityResource{
		name:       name,
		demand:     d,
		capacities: append([]int64(nil), capacities...),
	})
}

func (m *RoutingModel) canVisit(v, node int) bool {
	if m.allowed[node] == nil {
		return true
	}
	return m.allowed[node][v]
}

// finalize closes the model: every non-depot node outside a disjunction
// becomes a mandatory single-node group.
func (m *RoutingModel) finalize() error {
	if m.err != nil {
		return m.err
	}
	if m.arcCost == nil {
		return errors.New("solver: no cost callback registered")
	}
	for n := range m.numNodes {
		if m.depotVehicle[n] >= 0 || m.groupOf[n] >= 0 {
			continue
		}
		m.groupOf[n] = len(m.groups)
		m.groups = append(m.groups, disjunction{nodes: []int{n}, mandatory: true})
	}
	return nil
}
