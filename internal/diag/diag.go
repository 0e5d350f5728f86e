// Package diag collects structured per-species diagnostics emitted during
// analysis. Degenerate inputs resolve to safe defaults with a recorded
// warning instead of aborting the batch, so callers get the full picture
// alongside the results rather than interleaved console output.
package diag

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Code identifies a diagnostic condition.
type Code string

const (
	// CodeNoQualifyingOccurrences: no germplasm-backed, georeferenced
	// records for the species; score defaults to 0.
	CodeNoQualifyingOccurrences Code = "no_qualifying_occurrences"
	// CodeZeroRangeArea: the distribution raster has no presence cells;
	// score defaults to 0 instead of propagating NaN.
	CodeZeroRangeArea Code = "zero_range_area"
	// CodeAssumedCRS: the raster carried no CRS; WGS84 was assumed.
	CodeAssumedCRS Code = "assumed_crs"
	// CodeUndefinedCombination: both ex-situ and in-situ scores are
	// missing, so min/max/mean have no defined value.
	CodeUndefinedCombination Code = "undefined_combination"
	// CodeDuplicateSpecies: a species key appeared more than once in an
	// input score table; the first row wins.
	CodeDuplicateSpecies Code = "duplicate_species"
)

// Diagnostic is one recorded warning.
type Diagnostic struct {
	Species string `json:"species" yaml:"species"`
	Code    Code   `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Collector accumulates diagnostics. Safe for concurrent use so parallel
// per-species workers can share one instance.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a diagnostic and logs it as a warning.
func (c *Collector) Add(species string, code Code, format string, args ...any) {
	d := Diagnostic{
		Species: species,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}

	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()

	zap.L().Warn(d.Message,
		zap.String("species", species),
		zap.String("code", string(code)),
	)
}

// Items returns a copy of the recorded diagnostics in insertion order.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
