package domain

// Matrix holds travel minutes and distance in km between node indices.
// Both tables have the same square shape and a zero diagonal.
type Matrix struct {
	Minutes [][]float64
	Km      [][]float64
}

func NewMatrix(n int) *Matrix {
	m := &Matrix{
		Minutes: make([][]float64, n),
		Km:      make([][]float64, n),
	}
	for i := range n {
		m.Minutes[i] = make([]float64, n)
		m.Km[i] = make([]float64, n)
	}
	return m
}

func (m *Matrix) Size() int { return len(m.Minutes) }

// Symmetric reports whether both tables equal their transpose.
func (m *Matrix) Symmetric() bool {
	n := m.Size()
	for i := range n {
		for j := i + 1; j < n; j++ {
			if m.Minutes[i][j] != m.Minutes[j][i] || m.Km[i][j] != m.Km[j][i] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy so cached matrices are never shared mutably.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Size())
	for i := range m.Minutes {
		copy(out.Minutes[i], m.Minutes[i])
		copy(out.Km[i], m.Km[i])
	}
	return out
}
