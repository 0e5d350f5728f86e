package grs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		conserved float64
		total     float64
		want      float64
	}{
		{name: "partial coverage", conserved: 40, total: 100, want: 40},
		{name: "full coverage", conserved: 100, total: 100, want: 100},
		{name: "no coverage", conserved: 0, total: 100, want: 0},
		{name: "overlap artifact capped", conserved: 120, total: 100, want: 100},
		{name: "zero total", conserved: 50, total: 0, want: 0},
		{name: "negative total", conserved: 50, total: -1, want: 0},
		{name: "fractional", conserved: 1, total: 3, want: 100.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.conserved, tt.total), 1e-9)
		})
	}
}
