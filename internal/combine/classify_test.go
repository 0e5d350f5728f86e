package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{score: 0, want: ClassHighPriority},
		{score: 24.999, want: ClassHighPriority},
		{score: 25, want: ClassMediumPriority},
		{score: 49.999, want: ClassMediumPriority},
		{score: 50, want: ClassLowPriority},
		{score: 74.999, want: ClassLowPriority},
		{score: 75, want: ClassSufficientlyConserved},
		{score: 100, want: ClassSufficientlyConserved},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}
