package ports

import (
	"context"
	"fmt"
	"time"
)

// Callbacks a routing backend evaluates while searching.
type (
	ArcCostFunc func(vehicle, from, to int) int64
	TransitFunc func(from, to int) int64
	DemandFunc  func(node int) int64
)

// ModelStatus moves Built -> Solving -> Solved or Infeasible.
type ModelStatus int

const (
	ModelBuilt ModelStatus = iota
	ModelSolving
	ModelSolved
	ModelInfeasible
)

func (s ModelStatus) String() string {
	switch s {
	case ModelBuilt:
		return "built"
	case ModelSolving:
		return "solving"
	case ModelSolved:
		return "solved"
	case ModelInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type FirstSolutionStrategy string

const (
	// PathCheapestArc extends each route from its start with the cheapest feasible arc.
	PathCheapestArc FirstSolutionStrategy = "PATH_CHEAPEST_ARC"
	// CheapestInsertion inserts every group at its cheapest feasible position.
	CheapestInsertion FirstSolutionStrategy = "CHEAPEST_INSERTION"
)

type Metaheuristic string

const (
	GuidedLocalSearch Metaheuristic = "GUIDED_LOCAL_SEARCH"
	// GreedyDescent stops at the first local minimum.
	GreedyDescent Metaheuristic = "GREEDY_DESCENT"
)

// SearchParameters bound and steer one Solve call.
type SearchParameters struct {
	TimeLimit     time.Duration         `yaml:"time_limit"`
	SolutionLimit int                   `yaml:"solution_limit"`
	FirstSolution FirstSolutionStrategy `yaml:"first_solution"`
	Metaheuristic Metaheuristic         `yaml:"metaheuristic"`
	// GLSLambda scales arc penalties relative to the average arc cost.
	GLSLambda float64 `yaml:"gls_lambda"`
	// StallLimit ends guided local search after this many penalty rounds
	// without a new best solution.
	StallLimit int `yaml:"stall_limit"`
}

// Assignment is a solved routing model. Indices below the node count are
// nodes; End(v) indices lie above them. An unvisited node is its own Next.
type Assignment interface {
	NumVehicles() int
	Start(vehicle int) int
	End(vehicle int) int
	IsEnd(idx int) bool
	Next(idx int) int
	NodeOf(idx int) int
	Vehicle(idx int) int
	Cumul(resource string, idx int) int64
	Route(vehicle int) []int
	Objective() int64
}

// Contract for a constrained vehicle-routing backend. Each vehicle starts and
// ends at its own depot node.
type RoutingModel interface {
	RegisterCostCallback(fn ArcCostFunc)
	AddTimeResource(name string, transit TransitFunc, slackMax, capacityMax int64, fixedStart bool)
	SetVehicleTimeBounds(vehicle int, start, softEnd, hardEnd, overtimeCost int64)
	SetNodeTimeWindow(node int, start, end int64)
	SetGlobalSlackCost(coef int64)
	AddDisjunction(nodes []int, penalty int64)
	RestrictVehiclesForNode(node int, vehicles []int)
	AddCapacityResource(name string, demand DemandFunc, capacities []int64)
	Solve(ctx context.Context, params SearchParameters) (Assignment, error)
	Status() ModelStatus
}

// RoutingModelFactory creates an empty model for numNodes nodes and one
// vehicle per depot.
type RoutingModelFactory func(numNodes int, depots []int) (RoutingModel, error)
