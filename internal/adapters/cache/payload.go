package cache

import (
	"encoding/json"
	"errors"
	"fleet-route-planner/internal/domain"
	"fmt"
)

// matrixPayload is the stored form of a matrix, shared by every backend.
type matrixPayload struct {
	Minutes [][]float64 `json:"minutes"`
	Km      [][]float64 `json:"km"`
}

func encodeMatrix(m *domain.Matrix) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode matrix: nil matrix")
	}
	b, err := json.Marshal(matrixPayload{Minutes: m.Minutes, Km: m.Km})
	if err != nil {
		return nil, fmt.Errorf("encode matrix: %w", err)
	}
	return b, nil
}

func decodeMatrix(b []byte) (*domain.Matrix, error) {
	var p matrixPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode matrix: %w", err)
	}
	if len(p.Minutes) != len(p.Km) {
		return nil, fmt.Errorf("decode matrix: %d minute rows, %d km rows", len(p.Minutes), len(p.Km))
	}
	for i := range p.Minutes {
		if len(p.Minutes[i]) != len(p.Minutes) || len(p.Km[i]) != len(p.Minutes) {
			return nil, fmt.Errorf("decode matrix: row %d is not square", i)
		}
	}
	return &domain.Matrix{Minutes: p.Minutes, Km: p.Km}, nil
}
