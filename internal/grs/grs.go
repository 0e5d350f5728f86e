// Package grs computes the ex-situ geographic representativeness score:
// the share of a species' predicted range that lies within a buffer
// distance of its germplasm-backed occurrence points.
package grs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/croptrust/gapanalysis-cli/internal/buffer"
	"github.com/croptrust/gapanalysis-cli/internal/diag"
	"github.com/croptrust/gapanalysis-cli/internal/model"
	"github.com/croptrust/gapanalysis-cli/internal/occurrence"
	"github.com/croptrust/gapanalysis-cli/internal/overlay"
	"github.com/croptrust/gapanalysis-cli/internal/raster"
)

// DefaultBufferMeters is the standard 50 km collecting radius.
const DefaultBufferMeters = 50_000

// Params configures the analyzer.
type Params struct {
	BufferMeters   float64
	CircleSegments int
	PresenceValue  float64 // distribution raster presence sentinel, normally 1
	GapMaps        bool
	Concurrency    int
}

// Input carries the per-run data. Species defines output row order, and
// Rasters is positionally aligned with it; the pairing is re-keyed by
// species name up front and mismatches are rejected before any analysis.
type Input struct {
	Species     []string
	Rasters     []*raster.Raster
	Occurrences []model.Occurrence
}

// Result is the outcome of one analysis run. Scores appear in input
// species order. GapMaps is populated only when requested.
type Result struct {
	Scores      []model.ScoreRow
	GapMaps     map[string]*raster.Raster
	Diagnostics []diag.Diagnostic
}

// Analyzer runs the buffer-overlay-score pipeline for a batch of species.
type Analyzer struct {
	params Params
}

// NewAnalyzer validates the parameters and returns an Analyzer.
func NewAnalyzer(p Params) (*Analyzer, error) {
	if p.BufferMeters <= 0 {
		return nil, eris.Errorf("grs: buffer distance must be positive, got %v", p.BufferMeters)
	}
	if p.CircleSegments <= 0 {
		p.CircleSegments = buffer.DefaultSegments
	}
	if p.PresenceValue == 0 {
		p.PresenceValue = 1
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}
	return &Analyzer{params: p}, nil
}

// Run computes one score row per input species. Species are analyzed
// independently and in parallel; each species' intermediate rasters are
// scoped to its own iteration. Degenerate per-species inputs resolve to a
// zero score with a diagnostic, never an aborted batch.
func (a *Analyzer) Run(ctx context.Context, in Input) (*Result, error) {
	assoc, err := associate(in.Species, in.Rasters)
	if err != nil {
		return nil, err
	}

	grouped := occurrence.BySpecies(in.Occurrences)
	if err := checkCoverage(in.Species, assoc, grouped); err != nil {
		return nil, err
	}

	collector := diag.NewCollector()
	scores := make([]model.ScoreRow, len(in.Species))
	gapMaps := make([]*raster.Raster, len(in.Species))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.params.Concurrency)

	for i, sp := range in.Species {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, gap, err := a.analyzeSpecies(sp, grouped[sp], assoc[sp], collector)
			if err != nil {
				return err
			}
			scores[i] = row
			gapMaps[i] = gap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Scores: scores, Diagnostics: collector.Items()}
	if a.params.GapMaps {
		res.GapMaps = make(map[string]*raster.Raster, len(in.Species))
		for i, sp := range in.Species {
			if gapMaps[i] != nil {
				res.GapMaps[sp] = gapMaps[i]
			}
		}
	}
	return res, nil
}

// analyzeSpecies computes the score for one species. The returned gap map
// is nil unless gap maps were requested.
func (a *Analyzer) analyzeSpecies(species string, occs []model.Occurrence, dist *raster.Raster, collector *diag.Collector) (model.ScoreRow, *raster.Raster, error) {
	if dist.CRS == "" {
		collector.Add(species, diag.CodeAssumedCRS,
			"distribution raster for %s has no CRS; assuming WGS84 geographic", species)
	}

	coords := occurrence.QualifyingCoords(occs)
	if len(coords) == 0 {
		collector.Add(species, diag.CodeNoQualifyingOccurrences,
			"no georeferenced germplasm occurrences for %s; GRSex set to 0", species)
	}

	var coverage = buffer.Builder{
		RadiusMeters: a.params.BufferMeters,
		Segments:     a.params.CircleSegments,
	}.Build(coords)

	res, err := overlay.Overlay(coverage, dist, a.params.PresenceValue)
	if err != nil {
		return model.ScoreRow{}, nil, eris.Wrapf(err, "grs: overlay %s", species)
	}

	if res.RangeAreaM2 == 0 {
		collector.Add(species, diag.CodeZeroRangeArea,
			"distribution raster for %s has no presence cells; GRSex set to 0", species)
	}

	score := Score(res.ConservedAreaM2, res.RangeAreaM2)
	zap.L().Debug("species scored",
		zap.String("species", species),
		zap.Int("qualifying_points", len(coords)),
		zap.Float64("conserved_m2", res.ConservedAreaM2),
		zap.Float64("range_m2", res.RangeAreaM2),
		zap.Float64("grs_ex", score),
	)

	var gap *raster.Raster
	if a.params.GapMaps {
		gap, err = overlay.GapMap(res.RangeMask, res.BufferMask)
		if err != nil {
			return model.ScoreRow{}, nil, eris.Wrapf(err, "grs: gap map %s", species)
		}
	}

	return model.ScoreRow{Species: species, GRSex: score}, gap, nil
}

// associate re-keys the positional species/raster lists into an explicit
// species→raster map, rejecting length mismatches, duplicate species,
// missing rasters, and projected grids up front. Buffers are built in
// geographic lon/lat coordinates, so a raster in a projected CRS would
// never intersect them and every score would silently come out zero.
func associate(species []string, rasters []*raster.Raster) (map[string]*raster.Raster, error) {
	if len(species) != len(rasters) {
		return nil, eris.Errorf("grs: %d species but %d rasters; lists must align one-to-one",
			len(species), len(rasters))
	}
	assoc := make(map[string]*raster.Raster, len(species))
	for i, sp := range species {
		if _, ok := assoc[sp]; ok {
			return nil, eris.Errorf("grs: duplicate species %q in species list", sp)
		}
		if rasters[i] == nil {
			return nil, eris.Errorf("grs: no distribution raster for species %q", sp)
		}
		if !rasters[i].Geographic() {
			return nil, eris.Errorf("grs: distribution raster for %q uses a projected CRS; reproject it to geographic lon/lat (WGS84) before analysis", sp)
		}
		assoc[sp] = rasters[i]
	}
	return assoc, nil
}

// checkCoverage enforces the caller contract: every species in the list
// must have occurrence rows, and every species in the occurrence table
// must have a raster. Either mismatch is a configuration error, distinct
// from the recoverable zero-qualifying-occurrence case.
func checkCoverage(species []string, assoc map[string]*raster.Raster, grouped map[string][]model.Occurrence) error {
	for _, sp := range species {
		if len(grouped[sp]) == 0 {
			return eris.Errorf("grs: species %q has a distribution raster but no occurrence data", sp)
		}
	}
	for sp := range grouped {
		if _, ok := assoc[sp]; !ok {
			return eris.Errorf("grs: occurrence data present for %q but no distribution raster", sp)
		}
	}
	return nil
}
