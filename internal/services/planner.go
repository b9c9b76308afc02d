package services

import (
	"context"
	"errors"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/matrix"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/ports"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MatrixProvider returns the travel matrix for a point set.
type MatrixProvider interface {
	GetMatrix(ctx context.Context, key string, points []domain.Coordinates) (*matrix.MatrixResult, error)
}

// Planner solves one day for one owner: input, matrix, weights, penalties,
// model, search and mapping, in that order.
//
// A Planner holds no per-request state and is safe for concurrent use.
type Planner struct {
	repo     ports.PlanningRepository
	matrices MatrixProvider
	newModel ports.RoutingModelFactory
	cfg      EngineConfig
}

func NewPlanner(
	repo ports.PlanningRepository,
	matrices MatrixProvider,
	newModel ports.RoutingModelFactory,
	cfg EngineConfig,
) *Planner {
	return &Planner{repo: repo, matrices: matrices, newModel: newModel, cfg: cfg}
}

// SolveDay plans req.Date for req.OwnerID.
//
// Zero drivers or zero jobs yield an empty result, and a model the search
// cannot solve yields an infeasible result with every job unassigned; neither
// is an error. Errors are returned for invalid requests, repository failures,
// a missing owner (domain.ErrOwnerNotFound) and cancellation.
func (p *Planner) SolveDay(ctx context.Context, req SolveRequest) (_ *domain.SolveResult, err error) {
	defer obs.Time(ctx, "services.SolveDay")(&err)
	started := time.Now()

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	in, skipped, excluded, err := BuildInput(ctx, p.repo, req)
	if err != nil {
		return nil, fmt.Errorf("solve day: %w", err)
	}

	res := &domain.SolveResult{
		SolveID:        uuid.NewString(),
		OwnerID:        req.OwnerID,
		Date:           in.Date,
		SkippedDrivers: skipped,
		ExcludedJobIDs: excluded,
	}
	log := obs.FromContext(ctx).With().Str("solve_id", res.SolveID).Int("owner_id", req.OwnerID).Logger()

	defer func() {
		if err != nil {
			return
		}
		obs.SolveDuration.WithLabelValues(res.Status).Observe(time.Since(started).Seconds())
		obs.SolvedJobs.WithLabelValues("excluded").Add(float64(len(res.ExcludedJobIDs)))
		obs.SolvedJobs.WithLabelValues("dropped").Add(float64(len(res.DroppedJobIDs)))
		assigned := 0
		for _, r := range res.Routes {
			assigned += len(r.Stops)
		}
		obs.SolvedJobs.WithLabelValues("assigned").Add(float64(assigned))
	}()

	if len(in.Drivers) == 0 || len(in.Jobs) == 0 {
		res.Status = domain.SolveStatusEmpty
		res.UnassignedJobIDs = unassigned(excluded, nil)
		log.Info().Int("drivers", len(in.Drivers)).Int("jobs", len(in.Jobs)).Msg("nothing to plan")
		return res, nil
	}

	mres, err := p.matrices.GetMatrix(ctx, matrix.CacheKey(req.OwnerID, in.Date, in.Points()), in.Points())
	if err != nil {
		return nil, fmt.Errorf("solve day: %w", err)
	}
	res.Degraded = mres.Degraded
	mx := mres.Matrix

	costs := in.Owner.Costs
	if req.Costs != nil {
		costs = *req.Costs
	}

	scales := ComputeReferenceScales(in, mx, costs, p.cfg.ReferenceFloors)
	weights := NormalizeWeights(req.Weights, req.NormalizeWeights, p.cfg.Dominance)
	penalties := ComputePenalties(in, mx, weights, ResolvePenaltyConfig(req.Knobs, p.cfg.Penalty))

	problem, err := BuildModel(in, mx, scales, weights, penalties, ModelOptions{
		MaxStopsPerDriver:     req.MaxStopsPerDriver,
		OvertimeBufferMinutes: p.cfg.OvertimeBufferMinutes,
		CostScale:             p.cfg.CostScale,
		Costs:                 costs,
	}, p.newModel)
	if err != nil {
		return nil, fmt.Errorf("solve day: %w", err)
	}

	params := p.cfg.Search
	if req.TimeLimit > 0 {
		params.TimeLimit = req.TimeLimit
	}

	assignment, err := problem.Model.Solve(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("solve day: %w", err)
		}
		log.Info().Err(err).Int("jobs", len(in.Jobs)).Msg("no feasible plan")
		res.Status = domain.SolveStatusInfeasible
		res.DroppedJobIDs = candidateIDs(in)
		res.UnassignedJobIDs = unassigned(excluded, res.DroppedJobIDs)
		return res, nil
	}

	routes, dropped := MapSolution(in, mx, assignment, costs)
	res.Status = domain.SolveStatusSolved
	res.Routes = routes
	res.DroppedJobIDs = dropped
	res.UnassignedJobIDs = unassigned(excluded, dropped)
	res.Objective = assignment.Objective()

	log.Info().
		Int("routes", len(routes)).
		Int("dropped", len(dropped)).
		Int("excluded", len(excluded)).
		Int64("objective", res.Objective).
		Bool("degraded", res.Degraded).
		Msg("day planned")

	return res, nil
}

// ValidateRequest rejects requests no plan can be built for. Out-of-range
// weights are not errors; they are clamped later.
func ValidateRequest(req SolveRequest) error {
	if req.OwnerID <= 0 {
		return &domain.ValidationError{Field: "ownerId", Reason: "must be positive"}
	}
	if req.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Reason: "required"}
	}
	if req.MaxStopsPerDriver < 0 {
		return &domain.ValidationError{Field: "maxStopsPerDriver", Reason: "must not be negative"}
	}
	w := req.Weights
	for name, v := range map[string]float64{
		"weights.time": w.Time, "weights.distance": w.Distance, "weights.date": w.Date,
		"weights.cost": w.Cost, "weights.overtime": w.Overtime,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &domain.ValidationError{Field: name, Reason: "must be a finite number"}
		}
	}
	if req.Costs != nil && (req.Costs.FuelCostPerKm < 0 || req.Costs.PersonnelCostPerHour < 0) {
		return &domain.ValidationError{Field: "costs", Reason: "must not be negative"}
	}
	return nil
}

func candidateIDs(in *VrpInput) []int {
	ids := make([]int, 0, len(in.Jobs))
	for _, pj := range in.Jobs {
		ids = append(ids, pj.Job.ID)
	}
	return ids
}

func unassigned(excluded, dropped []int) []int {
	out := make([]int, 0, len(excluded)+len(dropped))
	out = append(out, excluded...)
	out = append(out, dropped...)
	slices.Sort(out)
	return slices.Compact(out)
}
