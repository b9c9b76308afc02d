package services

import (
	"fleet-route-planner/internal/domain"
	"testing"
)

// twoDriverInput has drivers at nodes 0 and 1, both starting at 08:00, and
// one job at node 2 open 09:00-16:40.
func twoDriverInput(dueDayOffset int) *VrpInput {
	d0 := &domain.Driver{ID: 1, Name: "near"}
	d1 := &domain.Driver{ID: 2, Name: "far"}
	job := &domain.Job{ID: 100, ServiceMinutes: 0}
	win := domain.TimeWindow{Start: 540, End: 1000}
	return &VrpInput{
		Date: planDate,
		Drivers: []PlanDriver{
			{Driver: d0, Availability: domain.Availability{DriverID: 1, StartMinute: 480, EndMinute: 960}, EndMinute: 960, Node: 0},
			{Driver: d1, Availability: domain.Availability{DriverID: 2, StartMinute: 480, EndMinute: 960}, EndMinute: 960, Node: 1},
		},
		Jobs: []PlanJob{{Job: job, Windows: []domain.TimeWindow{win}, Urgency: 0.5, DueDayOffset: dueDayOffset, Nodes: []int{2}}},
		Nodes: []Node{
			{Kind: NodeDriverStart, Driver: 0, Job: -1},
			{Kind: NodeDriverStart, Driver: 1, Job: -1},
			{Kind: NodeJobWindow, Driver: -1, Job: 0, Window: win},
		},
		JobNodes: map[int][]int{100: {2}},
	}
}

// penaltyMatrix places the job km0/min0 from driver 0 and km1/min1 from driver 1.
func penaltyMatrix(km0, km1, min0, min1 float64) *domain.Matrix {
	m := domain.NewMatrix(3)
	m.Km[0][2], m.Km[2][0] = km0, km0
	m.Km[1][2], m.Km[2][1] = km1, km1
	m.Minutes[0][2], m.Minutes[2][0] = min0, min0
	m.Minutes[1][2], m.Minutes[2][1] = min1, min1
	return m
}

func testPenaltyConfig() PenaltyConfig {
	return ResolvePenaltyConfig(PenaltyKnobs{}, DefaultEngineConfig().Penalty)
}

func TestSliderValue(t *testing.T) {
	cases := []struct{ percent, want float64 }{
		{0, 0.1},
		{25, 0.55},
		{50, 1},
		{75, 1.5},
		{100, 2},
		{-10, 0.1},
		{150, 2},
	}
	for _, c := range cases {
		if got := SliderValue(c.percent, 0.1, 1); !approx(got, c.want) {
			t.Fatalf("SliderValue(%v) = %v, want %v", c.percent, got, c.want)
		}
	}
}

func TestResolvePenaltyConfig(t *testing.T) {
	hundred := 100.0
	cfg := ResolvePenaltyConfig(PenaltyKnobs{DetourRefKm: &hundred}, DefaultEngineConfig().Penalty)
	if cfg.DueCap != 1 || cfg.DetourCap != 0.5 || cfg.DetourRefKm != 40 || cfg.LateRefMinutes != 240 {
		t.Fatalf("resolved = %+v", cfg)
	}
}

func TestComputePenaltiesOnTime(t *testing.T) {
	in := twoDriverInput(0)
	m := penaltyMatrix(5, 15, 10, 30)

	info := ComputePenalties(in, m, Weights{Distance: 0.5}, testPenaltyConfig())[0]

	if info.NearestKm != 5 || info.DetourKm[0] != 0 || info.DetourKm[1] != 10 {
		t.Fatalf("unexpected detours: %+v", info)
	}
	if info.Detour[0] != 0 || !approx(info.Detour[1], 0.125) {
		t.Fatalf("detour penalties = %v, want [0 0.125]", info.Detour)
	}
	for d, due := range info.Due {
		if !approx(due, 0.1) {
			t.Fatalf("driver %d due = %v, want urgency share 0.1", d, due)
		}
	}
}

func TestComputePenaltiesLateDriver(t *testing.T) {
	in := twoDriverInput(0)
	// Driver 1 reaches the job at 08:00 + 1000 min, 40 minutes past the due day.
	m := penaltyMatrix(5, 15, 10, 1000)

	info := ComputePenalties(in, m, Weights{}, testPenaltyConfig())[0]

	if !approx(info.Due[0], 0.1) {
		t.Fatalf("on-time driver due = %v, want 0.1", info.Due[0])
	}
	if !approx(info.Due[1], 40.0/240) {
		t.Fatalf("late driver due = %v, want %v", info.Due[1], 40.0/240)
	}
	// The detour weight never drops below the floor.
	if !approx(info.Detour[1], 0.5*0.5*0.2) {
		t.Fatalf("detour = %v, want floor-weighted 0.05", info.Detour[1])
	}
}

func TestComputePenaltiesNobodyOnTime(t *testing.T) {
	in := twoDriverInput(-1)
	m := penaltyMatrix(5, 15, 10, 30)

	info := ComputePenalties(in, m, Weights{}, testPenaltyConfig())[0]
	// Due yesterday: both arrive at 09:00, 540 minutes late, capped at DueCap.
	if info.Due[0] != 1 || info.Due[1] != 1 {
		t.Fatalf("due = %v, want both capped at 1", info.Due)
	}
}

func TestComputePenaltiesSkipsIneligible(t *testing.T) {
	in := twoDriverInput(0)
	in.RequireServiceTypeMatch = true
	in.Jobs[0].Job.ServiceTypeID = 7
	in.Drivers[1].Driver.ServiceTypes = []int{7}
	m := penaltyMatrix(5, 15, 10, 30)

	info := ComputePenalties(in, m, Weights{Distance: 1}, testPenaltyConfig())[0]
	if info.Eligible[0] || !info.Eligible[1] {
		t.Fatalf("eligibility = %v, want [false true]", info.Eligible)
	}
	if info.NearestKm != 15 || info.Detour[1] != 0 || info.Due[0] != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestEarliestArrivalRoundsLikeTheModel(t *testing.T) {
	in := twoDriverInput(0)
	// 520.4 minutes is a 520 minute transit in the model: arriving at 16:40
	// still meets the window's latest start.
	m := penaltyMatrix(5, 5, 520.4, 600)

	if got := earliestArrival(in, m, in.Drivers[0], in.Jobs[0]); got != 1000 {
		t.Fatalf("earliestArrival = %d, want 1000", got)
	}
	if got := earliestArrival(in, m, in.Drivers[1], in.Jobs[0]); got != 1080 {
		t.Fatalf("late driver earliestArrival = %d, want 1080", got)
	}
}
