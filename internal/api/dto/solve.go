package dto

import (
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/services"
	"fmt"
	"time"
)

type WeightsRequest struct {
	Time     float64 `json:"time"`
	Distance float64 `json:"distance"`
	Date     float64 `json:"date"`
	Cost     float64 `json:"cost"`
	Overtime float64 `json:"overtime"`
}

type CostSettingsRequest struct {
	FuelCostPerKm        float64 `json:"fuelCostPerKm" validate:"gte=0"`
	PersonnelCostPerHour float64 `json:"personnelCostPerHour" validate:"gte=0"`
	CurrencyCode         string  `json:"currencyCode" validate:"omitempty,len=3"`
}

// KnobsRequest are 0-100 sliders; omitted knobs keep their base value.
type KnobsRequest struct {
	DueCap         *float64 `json:"dueCap" validate:"omitempty,gte=0,lte=100"`
	DetourCap      *float64 `json:"detourCap" validate:"omitempty,gte=0,lte=100"`
	DetourRefKm    *float64 `json:"detourRefKm" validate:"omitempty,gte=0,lte=100"`
	LateRefMinutes *float64 `json:"lateRefMinutes" validate:"omitempty,gte=0,lte=100"`
}

type SolveRequest struct {
	Date                    string               `json:"date" validate:"required,datetime=2006-01-02"`
	OwnerID                 int                  `json:"ownerId" validate:"required,gt=0"`
	JobIDs                  []int                `json:"jobIds" validate:"omitempty,dive,gt=0"`
	MaxStopsPerDriver       int                  `json:"maxStopsPerDriver" validate:"gte=0"`
	Weights                 WeightsRequest       `json:"weights"`
	Costs                   *CostSettingsRequest `json:"costs"`
	RequireServiceTypeMatch bool                 `json:"requireServiceTypeMatch"`
	NormalizeWeights        bool                 `json:"normalizeWeights"`
	Knobs                   *KnobsRequest        `json:"knobs"`
	TimeLimitSeconds        float64              `json:"timeLimitSeconds" validate:"gte=0,lte=300"`
}

// ToService converts a validated request into the planner's request.
func (r SolveRequest) ToService() (services.SolveRequest, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return services.SolveRequest{}, fmt.Errorf("parse date: %w", err)
	}

	out := services.SolveRequest{
		Date:              date,
		OwnerID:           r.OwnerID,
		JobIDs:            r.JobIDs,
		MaxStopsPerDriver: r.MaxStopsPerDriver,
		Weights: services.Weights{
			Time:     r.Weights.Time,
			Distance: r.Weights.Distance,
			Date:     r.Weights.Date,
			Cost:     r.Weights.Cost,
			Overtime: r.Weights.Overtime,
		},
		RequireServiceTypeMatch: r.RequireServiceTypeMatch,
		NormalizeWeights:        r.NormalizeWeights,
		TimeLimit:               time.Duration(r.TimeLimitSeconds * float64(time.Second)),
	}
	if r.Costs != nil {
		out.Costs = &domain.CostSettings{
			FuelCostPerKm:        domain.MoneyFromFloat(r.Costs.FuelCostPerKm),
			PersonnelCostPerHour: domain.MoneyFromFloat(r.Costs.PersonnelCostPerHour),
			CurrencyCode:         r.Costs.CurrencyCode,
		}
	}
	if r.Knobs != nil {
		out.Knobs = services.PenaltyKnobs{
			DueCap:         r.Knobs.DueCap,
			DetourCap:      r.Knobs.DetourCap,
			DetourRefKm:    r.Knobs.DetourRefKm,
			LateRefMinutes: r.Knobs.LateRefMinutes,
		}
	}
	return out, nil
}

type WindowResponse struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

type StopResponse struct {
	JobID           int            `json:"jobId"`
	JobName         string         `json:"jobName"`
	Sequence        int            `json:"sequence"`
	Lon             float64        `json:"lon"`
	Lat             float64        `json:"lat"`
	Window          WindowResponse `json:"window"`
	ServiceMinutes  int            `json:"serviceMinutes"`
	ArrivalMinute   int            `json:"arrivalMinute"`
	DepartureMinute int            `json:"departureMinute"`
	ArrivalTime     string         `json:"arrivalTime"`
	TravelMinutes   int            `json:"travelMinutes"`
	TravelKm        float64        `json:"travelKm"`
}

type RouteResponse struct {
	DriverID            int            `json:"driverId"`
	DriverName          string         `json:"driverName"`
	Date                string         `json:"date"`
	StartMinute         int            `json:"startMinute"`
	EndMinute           int            `json:"endMinute"`
	Stops               []StopResponse `json:"stops"`
	ReturnTravelMinutes int            `json:"returnTravelMinutes"`
	ReturnTravelKm      float64        `json:"returnTravelKm"`
	TotalDistanceKm     float64        `json:"totalDistanceKm"`
	TotalMinutes        int            `json:"totalMinutes"`
	TotalServiceMinutes int            `json:"totalServiceMinutes"`
	TotalTravelMinutes  int            `json:"totalTravelMinutes"`
	EstimatedCost       string         `json:"estimatedCost"`
}

type SolveResponse struct {
	SolveID          string          `json:"solveId"`
	OwnerID          int             `json:"ownerId"`
	Date             string          `json:"date"`
	Status           string          `json:"status"`
	Routes           []RouteResponse `json:"routes"`
	SkippedDrivers   []string        `json:"skippedDrivers"`
	UnassignedJobIDs []int           `json:"unassignedJobIds"`
	ExcludedJobIDs   []int           `json:"excludedJobIds"`
	DroppedJobIDs    []int           `json:"droppedJobIds"`
	Objective        int64           `json:"objective"`
	Degraded         bool            `json:"degraded"`
}

// FromResult renders a solve result. Empty lists are encoded as [] rather
// than null.
func FromResult(res *domain.SolveResult) SolveResponse {
	out := SolveResponse{
		SolveID:          res.SolveID,
		OwnerID:          res.OwnerID,
		Date:             res.Date.Format(time.DateOnly),
		Status:           res.Status,
		Routes:           make([]RouteResponse, 0, len(res.Routes)),
		SkippedDrivers:   nonNil(res.SkippedDrivers),
		UnassignedJobIDs: nonNil(res.UnassignedJobIDs),
		ExcludedJobIDs:   nonNil(res.ExcludedJobIDs),
		DroppedJobIDs:    nonNil(res.DroppedJobIDs),
		Objective:        res.Objective,
		Degraded:         res.Degraded,
	}

	for _, r := range res.Routes {
		stops := make([]StopResponse, 0, len(r.Stops))
		for _, s := range r.Stops {
			stops = append(stops, StopResponse{
				JobID:           s.JobID,
				JobName:         s.JobName,
				Sequence:        s.Sequence,
				Lon:             s.Location.Lon,
				Lat:             s.Location.Lat,
				Window:          WindowResponse{Start: s.Window.Start, End: s.Window.End, Label: s.Window.String()},
				ServiceMinutes:  s.ServiceMinutes,
				ArrivalMinute:   s.ArrivalMinute,
				DepartureMinute: s.DepartureMinute,
				ArrivalTime:     domain.FormatMinute(s.ArrivalMinute),
				TravelMinutes:   s.TravelMinutes,
				TravelKm:        s.TravelKm,
			})
		}
		out.Routes = append(out.Routes, RouteResponse{
			DriverID:            r.DriverID,
			DriverName:          r.DriverName,
			Date:                r.Date.Format(time.DateOnly),
			StartMinute:         r.StartMinute,
			EndMinute:           r.EndMinute,
			Stops:               stops,
			ReturnTravelMinutes: r.ReturnTravelMinutes,
			ReturnTravelKm:      r.ReturnTravelKm,
			TotalDistanceKm:     r.TotalDistanceKm,
			TotalMinutes:        r.TotalMinutes,
			TotalServiceMinutes: r.TotalServiceMinutes,
			TotalTravelMinutes:  r.TotalTravelMinutes,
			EstimatedCost:       r.EstimatedCost.String(),
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
