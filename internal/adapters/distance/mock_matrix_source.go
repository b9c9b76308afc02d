package distance

import (
	"context"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/ports"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockMatrixSource answers from a fixed pair list. Pairs it does not know
// come back as nil cells, which the matrix provider estimates.
type MockMatrixSource struct {
	m map[[2]domain.Coordinates]MockPair
}

func NewMockMatrixSource(pairs []MockPair) *MockMatrixSource {
	m := make(map[[2]domain.Coordinates]MockPair, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinates{p.From.Rounded(5), p.To.Rounded(5)}] = p
	}
	return &MockMatrixSource{m: m}
}

func (s *MockMatrixSource) Table(ctx context.Context, points []domain.Coordinates) (*ports.TravelTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(points)
	t := &ports.TravelTable{
		DistancesMeters:  make([][]*float64, n),
		DurationsSeconds: make([][]*float64, n),
	}
	for i := range n {
		t.DistancesMeters[i] = make([]*float64, n)
		t.DurationsSeconds[i] = make([]*float64, n)
		for j := range n {
			if i == j {
				zero := 0.0
				t.DistancesMeters[i][j], t.DurationsSeconds[i][j] = &zero, &zero
				continue
			}
			p, ok := s.m[[2]domain.Coordinates{points[i].Rounded(5), points[j].Rounded(5)}]
			if !ok {
				continue
			}
			meters, seconds := p.Meters, p.Seconds
			t.DistancesMeters[i][j], t.DurationsSeconds[i][j] = &meters, &seconds
		}
	}
	return t, nil
}
