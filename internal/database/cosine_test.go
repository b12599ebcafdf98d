package database

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"scaled copy", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 2},
		{"both zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 2},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 2},
		{"empty", nil, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineDistance_Range(t *testing.T) {
	vectors := [][]float32{
		{0.5, -0.3, 0.8},
		{-1, 1, -1},
		{0.001, 0.002, 0.003},
		{100, -200, 300},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			d := CosineDistance(a, b)
			if d < 0 || d > 2 {
				t.Errorf("CosineDistance(%v, %v) = %v, outside [0, 2]", a, b, d)
			}
		}
	}
}

func TestCosineDistance_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{-0.1, 0.4, 0.8, -0.5}
	if CosineDistance(a, b) != CosineDistance(b, a) {
		t.Error("cosine distance must be symmetric")
	}
}
