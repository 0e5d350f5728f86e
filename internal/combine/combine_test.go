package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptrust/gapanalysis-cli/internal/diag"
	"github.com/croptrust/gapanalysis-cli/internal/model"
)

func f(v float64) *float64 { return &v }

func row(species string, score *float64) model.FCSRow {
	return model.FCSRow{Species: species, Score: score}
}

func TestCombine_MinMaxMean(t *testing.T) {
	c := diag.NewCollector()

	out := Combine(
		[]model.FCSRow{row("Cucurbita digitata", f(40))},
		[]model.FCSRow{row("Cucurbita digitata", f(60))},
		c,
	)

	require.Len(t, out, 1)
	fa := out[0]
	assert.InDelta(t, 40, *fa.FCScMin, 1e-9)
	assert.InDelta(t, 60, *fa.FCScMax, 1e-9)
	assert.InDelta(t, 50, *fa.FCScMean, 1e-9)
	assert.Equal(t, ClassMediumPriority, fa.MinClass)
	assert.Equal(t, ClassLowPriority, fa.MaxClass)
	assert.Equal(t, ClassLowPriority, fa.MeanClass)
	assert.False(t, fa.Undefined)
	assert.Zero(t, c.Len())
}

func TestCombine_LeftJoinPreservesExSituRows(t *testing.T) {
	c := diag.NewCollector()

	out := Combine(
		[]model.FCSRow{
			row("Zea mays", f(10)),
			row("Cucurbita digitata", f(40)),
		},
		[]model.FCSRow{
			row("Cucurbita digitata", f(60)),
			row("Oryza sativa", f(90)), // no ex-situ row, dropped
		},
		c,
	)

	require.Len(t, out, 2)
	assert.Equal(t, "Zea mays", out[0].Species, "output follows ex-situ input order")
	assert.Equal(t, "Cucurbita digitata", out[1].Species)

	// Unmatched ex-situ species collapses to its own score.
	assert.InDelta(t, 10, *out[0].FCScMin, 1e-9)
	assert.InDelta(t, 10, *out[0].FCScMax, 1e-9)
	assert.InDelta(t, 10, *out[0].FCScMean, 1e-9)
	assert.Nil(t, out[0].FCSin)
}

func TestCombine_BothMissingUndefined(t *testing.T) {
	c := diag.NewCollector()

	out := Combine(
		[]model.FCSRow{row("Cucurbita digitata", nil)},
		nil,
		c,
	)

	require.Len(t, out, 1)
	assert.True(t, out[0].Undefined)
	assert.Nil(t, out[0].FCScMin)
	assert.Nil(t, out[0].FCScMax)
	assert.Nil(t, out[0].FCScMean)
	assert.Empty(t, out[0].MinClass)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, diag.CodeUndefinedCombination, c.Items()[0].Code)
}

func TestCombine_DuplicatesFirstWins(t *testing.T) {
	c := diag.NewCollector()

	out := Combine(
		[]model.FCSRow{
			row("Cucurbita digitata", f(40)),
			row("cucurbita digitata", f(99)),
		},
		[]model.FCSRow{
			row("Cucurbita digitata", f(60)),
			row("Cucurbita  digitata", f(1)),
		},
		c,
	)

	require.Len(t, out, 1)
	assert.InDelta(t, 40, *out[0].FCSex, 1e-9)
	assert.InDelta(t, 60, *out[0].FCSin, 1e-9)

	require.Equal(t, 2, c.Len())
	for _, item := range c.Items() {
		assert.Equal(t, diag.CodeDuplicateSpecies, item.Code)
	}
}

func TestCombine_NormalizedJoinKeys(t *testing.T) {
	c := diag.NewCollector()

	out := Combine(
		[]model.FCSRow{row("  Cucurbita   DIGITATA ", f(40))},
		[]model.FCSRow{row("cucurbita digitata", f(60))},
		c,
	)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].FCSin)
	assert.InDelta(t, 60, *out[0].FCSin, 1e-9)
	// The original spelling survives normalization.
	assert.Equal(t, "  Cucurbita   DIGITATA ", out[0].Species)
}

func TestCombine_MinMeanMaxOrdering(t *testing.T) {
	c := diag.NewCollector()

	pairs := [][2]*float64{
		{f(0), f(100)},
		{f(33.3), f(33.3)},
		{f(75), nil},
		{nil, f(12.5)},
	}
	for _, p := range pairs {
		out := Combine(
			[]model.FCSRow{row("X", p[0])},
			[]model.FCSRow{row("X", p[1])},
			c,
		)
		require.Len(t, out, 1)
		fa := out[0]
		require.NotNil(t, fa.FCScMin)
		assert.LessOrEqual(t, *fa.FCScMin, *fa.FCScMean)
		assert.LessOrEqual(t, *fa.FCScMean, *fa.FCScMax)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{a: "Cucurbita digitata", b: "cucurbita digitata"},
		{a: " Cucurbita\tdigitata ", b: "Cucurbita digitata"},
		{a: "Manihot e\u0301sculenta", b: "Manihot \u00e9sculenta"}, // combining accent vs precomposed
	}
	for _, tt := range tests {
		assert.Equal(t, normalizeKey(tt.a), normalizeKey(tt.b), "%q vs %q", tt.a, tt.b)
	}

	assert.NotEqual(t, normalizeKey("Zea mays"), normalizeKey("Zea mais"))
}
