package solver

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fast = SearchParameters{TimeLimit: 200 * time.Millisecond}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// lineModel places nodes on a line; travel time is the distance and arc cost
// ten times the distance.
func lineModel(t *testing.T, xs []int64, depots []int) *RoutingModel {
	t.Helper()
	m, err := NewRoutingModel(len(xs), depots)
	if err != nil {
		t.Fatalf("NewRoutingModel: %v", err)
	}
	m.RegisterCostCallback(func(_, from, to int) int64 { return 10 * abs(xs[from]-xs[to]) })
	m.AddTimeResource("time", func(from, to int) int64 { return abs(xs[from] - xs[to]) }, 1000, 10_000, true)
	return m
}

func TestSolveVisitsAllNodes(t *testing.T) {
	m := lineModel(t, []int64{0, 1, 2, 3}, []int{0})
	for n := 1; n <= 3; n++ {
		m.AddDisjunction([]int{n}, 10_000)
	}

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if m.Status() != StatusSolved {
		t.Fatalf("status = %v", m.Status())
	}
	if got := len(a.Route(0)); got != 3 {
		t.Fatalf("route has %d nodes, want 3", got)
	}
	if a.Objective() != 60 {
		t.Fatalf("objective = %d, want 60", a.Objective())
	}
	if !a.IsEnd(a.Next(a.Route(0)[2])) {
		t.Fatalf("last node should lead to the end index")
	}
}

func TestSolveRespectsTimeWindows(t *testing.T) {
	m := lineModel(t, []int64{0, 1, 2, 3}, []int{0})
	m.SetVehicleTimeBounds(0, 0, 10_000, 10_000, 0)
	m.SetNodeTimeWindow(3, 0, 3)
	m.SetNodeTimeWindow(1, 5, 100)
	for n := 1; n <= 3; n++ {
		m.AddDisjunction([]int{n}, 10_000)
	}

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	route := a.Route(0)
	if len(route) != 3 || route[0] != 3 || route[2] != 1 {
		t.Fatalf("route = %v, want [3 2 1]", route)
	}
	if got := a.Cumul("time", 3); got != 3 {
		t.Fatalf("cumul at 3 = %d, want 3", got)
	}
	if got := a.Cumul("time", 1); got != 5 {
		t.Fatalf("cumul at 1 = %d, want 5", got)
	}
	if got := a.Cumul("time", a.End(0)); got != 6 {
		t.Fatalf("return cumul = %d, want 6", got)
	}
}

func TestSolveDropsUnreachableNode(t *testing.T) {
	m := lineModel(t, []int64{0, 1, 2, 3}, []int{0})
	m.SetNodeTimeWindow(2, 0, 1)
	for n := 1; n <= 3; n++ {
		m.AddDisjunction([]int{n}, 1000)
	}

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Next(2) != 2 || a.Vehicle(2) != -1 {
		t.Fatalf("node 2 should be unperformed, next=%d vehicle=%d", a.Next(2), a.Vehicle(2))
	}
	if a.Objective() != 1060 {
		t.Fatalf("objective = %d, want 1060", a.Objective())
	}
}

func TestSolveVehicleRestriction(t *testing.T) {
	m := lineModel(t, []int64{0, 0, 1, 2}, []int{0, 1})
	m.RestrictVehiclesForNode(2, []int{1})
	m.RestrictVehiclesForNode(3, []int{1})
	m.AddDisjunction([]int{2}, 1000)
	m.AddDisjunction([]int{3}, 1000)

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Vehicle(2) != 1 || a.Vehicle(3) != 1 {
		t.Fatalf("restricted nodes on vehicles %d/%d, want 1", a.Vehicle(2), a.Vehicle(3))
	}
	if len(a.Route(0)) != 0 {
		t.Fatalf("vehicle 0 should stay home, got %v", a.Route(0))
	}
	if a.Next(a.Start(0)) != a.End(0) {
		t.Fatalf("empty vehicle should go straight to its end")
	}
}

func TestSolveCapacity(t *testing.T) {
	m := lineModel(t, []int64{0, 0, 1, 2, 3}, []int{0, 1})
	m.AddCapacityResource("stops", func(n int) int64 {
		if n < 2 {
			return 0
		}
		return 1
	}, []int64{1, 1})
	for n := 2; n <= 4; n++ {
		m.AddDisjunction([]int{n}, 1000)
	}

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	visited := 0
	for v := range a.NumVehicles() {
		if len(a.Route(v)) > 1 {
			t.Fatalf("vehicle %d exceeds capacity: %v", v, a.Route(v))
		}
		if got := a.Cumul("stops", a.End(v)); got != int64(len(a.Route(v))) {
			t.Fatalf("stops cumul at end = %d, want %d", got, len(a.Route(v)))
		}
		visited += len(a.Route(v))
	}
	if visited != 2 {
		t.Fatalf("visited %d nodes, want 2", visited)
	}
	if a.Next(4) != 4 {
		t.Fatalf("the farthest node should be the one dropped")
	}
}

func TestSolvePicksOneAlternative(t *testing.T) {
	m := lineModel(t, []int64{0, 5, 1}, []int{0})
	m.AddDisjunction([]int{1, 2}, 1000)

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Vehicle(2) != 0 || a.Next(1) != 1 {
		t.Fatalf("expected the nearer alternative only, route=%v", a.Route(0))
	}
}

func TestSolveSoftOvertime(t *testing.T) {
	m := lineModel(t, []int64{0, 3}, []int{0})
	m.SetVehicleTimeBounds(0, 0, 4, 100, 7)

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Objective() != 60+2*7 {
		t.Fatalf("objective = %d, want 74", a.Objective())
	}
}

func TestSolveHardEndDropsNode(t *testing.T) {
	m := lineModel(t, []int64{0, 3}, []int{0})
	m.SetVehicleTimeBounds(0, 0, 5, 5, 0)
	m.AddDisjunction([]int{1}, 500)

	a, err := m.Solve(context.Background(), fast)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if a.Next(1) != 1 || a.Objective() != 500 {
		t.Fatalf("node should be dropped, next=%d objective=%d", a.Next(1), a.Objective())
	}
}

func TestSolveMandatoryInfeasible(t *testing.T) {
	m := lineModel(t, []int64{0, 1}, []int{0})
	m.SetNodeTimeWindow(1, 0, 0)

	_, err := m.Solve(context.Background(), fast)
	if !errors.Is(err, ErrNoSolution) {
		t.Fatalf("err = %v, want ErrNoSolution", err)
	}
	if m.Status() != StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", m.Status())
	}
}

func TestSolveTwice(t *testing.T) {
	m := lineModel(t, []int64{0, 1}, []int{0})
	if _, err := m.Solve(context.Background(), fast); err != nil {
		t.Fatalf("first Solve: %v", err)
	}
	if _, err := m.Solve(context.Background(), fast); !errors.Is(err, ErrAlreadySolved) {
		t.Fatalf("err = %v, want ErrAlreadySolved", err)
	}
}

func TestSolveCancelledContext(t *testing.T) {
	m := lineModel(t, []int64{0, 1}, []int{0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Solve(ctx, fast); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSolveReportsMisuse(t *testing.T) {
	m := lineModel(t, []int64{0, 1}, []int{0})
	m.AddDisjunction([]int{0}, 10)

	if _, err := m.Solve(context.Background(), fast); err == nil {
		t.Fatalf("expected error for a depot in a disjunction")
	}
}

func TestNewRoutingModelValidation(t *testing.T) {
	if _, err := NewRoutingModel(0, []int{0}); err == nil {
		t.Errorf("expected error for empty model")
	}
	if _, err := NewRoutingModel(3, nil); err == nil {
		t.Errorf("expected error without vehicles")
	}
	if _, err := NewRoutingModel(3, []int{1, 1}); err == nil {
		t.Errorf("expected error for shared depot")
	}
}
