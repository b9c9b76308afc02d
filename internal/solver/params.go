package solver

import (
	"fleet-route-planner/internal/ports"
	"time"
)

type (
	SearchParameters      = ports.SearchParameters
	FirstSolutionStrategy = ports.FirstSolutionStrategy
	Metaheuristic         = ports.Metaheuristic
)

const (
	PathCheapestArc   = ports.PathCheapestArc
	CheapestInsertion = ports.CheapestInsertion
	GuidedLocalSearch = ports.GuidedLocalSearch
	GreedyDescent     = ports.GreedyDescent
)

func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		TimeLimit:     3 * time.Second,
		SolutionLimit: 5000,
		FirstSolution: PathCheapestArc,
		Metaheuristic: GuidedLocalSearch,
		GLSLambda:     0.1,
		StallLimit:    100,
	}
}

func withDefaults(p SearchParameters) SearchParameters {
	d := DefaultSearchParameters()
	if p.TimeLimit <= 0 {
		p.TimeLimit = d.TimeLimit
	}
	if p.SolutionLimit <= 0 {
		p.SolutionLimit = d.SolutionLimit
	}
	if p.FirstSolution == "" {
		p.FirstSolution = d.FirstSolution
	}
	if p.Metaheuristic == "" {
		p.Metaheuristic = d.Metaheuristic
	}
	if p.GLSLambda <= 0 {
		p.GLSLambda = d.GLSLambda
	}
	if p.StallLimit <= 0 {
		p.StallLimit = d.StallLimit
	}
	return p
}
