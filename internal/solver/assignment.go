package solver

import "fleet-route-planner/internal/ports"

var _ ports.Assignment = (*Assignment)(nil)

// Assignment is a solved model. Indices below NumNodes() are nodes; vehicle
// v ends at index NumNodes()+v. A node that is not visited is its own Next.
type Assignment struct {
	numNodes  int
	depots    []int
	next      []int
	vehicle   []int
	cumuls    map[string][]int64
	objective int64
}

func (a *Assignment) NumVehicles() int { return len(a.depots) }
func (a *Assignment) Start(v int) int  { return a.depots[v] }
func (a *Assignment) End(v int) int    { return a.numNodes + v }
func (a *Assignment) IsEnd(idx int) bool {
	return idx >= a.numNodes
}

// Next returns the index that follows idx. End indices return themselves.
func (a *Assignment) Next(idx int) int { return a.next[idx] }

// NodeOf maps an index to its node; an end index maps to its vehicle's depot.
func (a *Assignment) NodeOf(idx int) int {
	if a.IsEnd(idx) {
		return a.depots[idx-a.numNodes]
	}
	return idx
}

// Vehicle returns the vehicle visiting idx, or -1.
func (a *Assignment) Vehicle(idx int) int { return a.vehicle[idx] }

// Cumul returns the value of the named resource at idx. For the time
// resource this is the service start; for capacities it is the load before
// the node's own demand.
func (a *Assignment) Cumul(name string, idx int) int64 {
	c, ok := a.cumuls[name]
	if !ok {
		return 0
	}
	return c[idx]
}

func (a *Assignment) Objective() int64 { return a.objective }

// Route lists the nodes vehicle v visits, without its start and end.
func (a *Assignment) Route(v int) []int {
	var out []int
	for idx := a.Next(a.Start(v)); !a.IsEnd(idx); idx = a.Next(idx) {
		out = append(out, idx)
	}
	return out
}

func (m *RoutingModel) newAssignment(routes [][]int, objective int64) *Assignment {
	size := m.numNodes + len(m.depots)
	a := &Assignment{
		numNodes:  m.numNodes,
		depots:    m.depots,
		next:      make([]int, size),
		vehicle:   make([]int, size),
		cumuls:    make(map[string][]int64),
		objective: objective,
	}
	for i := range size {
		a.next[i] = i
		a.vehicle[i] = -1
	}

	var timeCumul []int64
	if m.time != nil {
		timeCumul = make([]int64, size)
		a.cumuls[m.time.name] = timeCumul
	}
	loads := make([][]int64, len(m.capacities))
	for k, c := range m.capacities {
		loads[k] = make([]int64, size)
		a.cumuls[c.name] = loads[k]
	}

	for v, nodes := range routes {
		start, end := a.Start(v), a.End(v)
		path := make([]int, 0, len(nodes)+2)
		path = append(path, start)
		path = append(path, nodes...)
		path = append(path, end)

		for i := 0; i+1 < len(path); i++ {
			a.next[path[i]] = path[i+1]
		}
		for _, idx := range path {
			a.vehicle[idx] = v
		}

		if timeCumul != nil {
			values := make([]int64, len(nodes)+2)
			m.schedule(v, nodes, values)
			for i, idx := range path {
				timeCumul[idx] = values[i]
			}
		}
		for k, c := range m.capacities {
			var load int64
			for i, idx := range path {
				loads[k][idx] = load
				if i < len(path)-1 {
					load += c.demand[a.NodeOf(idx)]
				}
			}
		}
	}
	return a
}
