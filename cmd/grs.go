package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/croptrust/gapanalysis-cli/internal/buffer"
	"github.com/croptrust/gapanalysis-cli/internal/grs"
	"github.com/croptrust/gapanalysis-cli/internal/model"
	"github.com/croptrust/gapanalysis-cli/internal/occurrence"
	"github.com/croptrust/gapanalysis-cli/internal/raster"
	"github.com/croptrust/gapanalysis-cli/internal/tabular"
)

var grsFlags struct {
	occurrences string
	rasterDir   string
	outDir      string
	buffer      float64
	segments    int
	gapMaps     bool
	coverageShp bool
}

var grsCmd = &cobra.Command{
	Use:   "grs",
	Short: "Score ex-situ geographic representativeness per species",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("analysis"); err != nil {
			return err
		}

		occs, err := readOccurrences(grsFlags.occurrences)
		if err != nil {
			return err
		}

		species, rasters, err := loadRasterDir(grsFlags.rasterDir)
		if err != nil {
			return err
		}

		bufferMeters := grsFlags.buffer
		if bufferMeters == 0 {
			bufferMeters = cfg.Analysis.BufferMeters
		}
		segments := grsFlags.segments
		if segments == 0 {
			segments = cfg.Analysis.CircleSegments
		}

		analyzer, err := grs.NewAnalyzer(grs.Params{
			BufferMeters:   bufferMeters,
			CircleSegments: segments,
			PresenceValue:  cfg.Analysis.PresenceValue,
			GapMaps:        grsFlags.gapMaps || cfg.Analysis.GapMaps,
			Concurrency:    cfg.Analysis.Concurrency,
		})
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		params := model.RunParams{
			Kind:         model.RunKindGRS,
			BufferMeters: bufferMeters,
			GapMaps:      grsFlags.gapMaps || cfg.Analysis.GapMaps,
			SpeciesCount: len(species),
			Occurrences:  grsFlags.occurrences,
			RasterDir:    grsFlags.rasterDir,
		}
		run, err := st.CreateRun(ctx, params)
		if err != nil {
			return err
		}

		res, err := analyzer.Run(ctx, grs.Input{
			Species:     species,
			Rasters:     rasters,
			Occurrences: occs,
		})
		if err != nil {
			_ = st.FinishRun(ctx, run.ID, model.RunStatusFailed, err.Error())
			return err
		}

		outputs, err := writeGRSOutputs(run.ID, params, res, occs, bufferMeters, segments)
		if err != nil {
			_ = st.FinishRun(ctx, run.ID, model.RunStatusFailed, err.Error())
			return err
		}

		if err := st.SaveScores(ctx, run.ID, res.Scores); err != nil {
			_ = st.FinishRun(ctx, run.ID, model.RunStatusFailed, err.Error())
			return err
		}
		if err := st.FinishRun(ctx, run.ID, model.RunStatusComplete, ""); err != nil {
			return err
		}

		zap.L().Info("grs run complete",
			zap.String("run_id", run.ID),
			zap.Int("species", len(species)),
			zap.Int("diagnostics", len(res.Diagnostics)),
			zap.Strings("outputs", outputs),
		)
		return nil
	},
}

// readOccurrences dispatches on file extension: CSV or point shapefile.
func readOccurrences(path string) ([]model.Occurrence, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return occurrence.ReadShapefile(path)
	default:
		return occurrence.ReadCSV(path)
	}
}

// loadRasterDir reads every .asc grid in the directory. The species name is
// the file basename with underscores restored to spaces, matching the
// binomials in the occurrence table. Order is alphabetical for stable output.
func loadRasterDir(dir string) ([]string, []*raster.Raster, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.asc"))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "glob rasters in %s", dir)
	}
	if len(paths) == 0 {
		return nil, nil, eris.Errorf("no .asc rasters found in %s", dir)
	}
	sort.Strings(paths)

	species := make([]string, 0, len(paths))
	rasters := make([]*raster.Raster, 0, len(paths))
	for _, p := range paths {
		r, err := raster.ReadASCIIGrid(p)
		if err != nil {
			return nil, nil, err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		species = append(species, strings.ReplaceAll(name, "_", " "))
		rasters = append(rasters, r)
	}
	return species, rasters, nil
}

func speciesFileName(species string) string {
	return strings.ReplaceAll(species, " ", "_")
}

// writeGRSOutputs writes the scores CSV, optional gap maps and coverage
// shapefile, and the run manifest. Returns the written paths.
func writeGRSOutputs(runID string, params model.RunParams, res *grs.Result, occs []model.Occurrence, bufferMeters float64, segments int) ([]string, error) {
	if err := os.MkdirAll(grsFlags.outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create output directory")
	}

	var outputs []string

	scoresPath := filepath.Join(grsFlags.outDir, "grs_scores.csv")
	if err := tabular.WriteScores(scoresPath, res.Scores); err != nil {
		return nil, err
	}
	outputs = append(outputs, scoresPath)

	for sp, gap := range res.GapMaps {
		gapPath := filepath.Join(grsFlags.outDir, speciesFileName(sp)+"_gap.asc")
		if err := raster.WriteASCIIGrid(gapPath, gap); err != nil {
			return nil, err
		}
		outputs = append(outputs, gapPath)
	}

	if grsFlags.coverageShp {
		shpPath := filepath.Join(grsFlags.outDir, "buffer_coverage.shp")
		if err := writeCoverageShapefile(shpPath, res.Scores, occs, bufferMeters, segments); err != nil {
			return nil, err
		}
		outputs = append(outputs, shpPath)
	}

	manifestPath := filepath.Join(grsFlags.outDir, "run_manifest.yaml")
	err := tabular.WriteManifest(manifestPath, tabular.Manifest{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		Params:      params,
		Outputs:     outputs,
		Diagnostics: res.Diagnostics,
	})
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, manifestPath)

	return outputs, nil
}

// writeCoverageShapefile rebuilds each species' buffer polygons and writes
// them as one polygon layer, one record per scored species.
func writeCoverageShapefile(path string, scores []model.ScoreRow, occs []model.Occurrence, bufferMeters float64, segments int) error {
	grouped := occurrence.BySpecies(occs)
	builder := buffer.Builder{RadiusMeters: bufferMeters, Segments: segments}

	items := make([]buffer.SpeciesCoverage, 0, len(scores))
	for _, row := range scores {
		coverage := builder.Build(occurrence.QualifyingCoords(grouped[row.Species]))
		if coverage == nil {
			continue
		}
		items = append(items, buffer.SpeciesCoverage{Species: row.Species, Coverage: coverage})
	}
	return buffer.WriteShapefile(path, items)
}

func init() {
	grsCmd.Flags().StringVar(&grsFlags.occurrences, "occurrences", "", "occurrence table (.csv or .shp)")
	grsCmd.Flags().StringVar(&grsFlags.rasterDir, "rasters", "", "directory of per-species distribution rasters (.asc)")
	grsCmd.Flags().StringVar(&grsFlags.outDir, "out", "grs_out", "output directory")
	grsCmd.Flags().Float64Var(&grsFlags.buffer, "buffer", 0, "buffer radius in meters (default from config)")
	grsCmd.Flags().IntVar(&grsFlags.segments, "segments", 0, "buffer circle segments (default from config)")
	grsCmd.Flags().BoolVar(&grsFlags.gapMaps, "gap-maps", false, "write per-species gap map rasters")
	grsCmd.Flags().BoolVar(&grsFlags.coverageShp, "coverage-shapefile", false, "write the buffer coverage polygons as a shapefile")
	_ = grsCmd.MarkFlagRequired("occurrences")
	_ = grsCmd.MarkFlagRequired("rasters")
	rootCmd.AddCommand(grsCmd)
}
