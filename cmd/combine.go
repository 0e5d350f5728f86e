package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/croptrust/gapanalysis-cli/internal/combine"
	"github.com/croptrust/gapanalysis-cli/internal/diag"
	"github.com/croptrust/gapanalysis-cli/internal/model"
	"github.com/croptrust/gapanalysis-cli/internal/tabular"
)

var combineFlags struct {
	exsitu       string
	insitu       string
	exsituColumn string
	insituColumn string
	outDir       string
}

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine ex-situ and in-situ scores into final conservation priorities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("analysis"); err != nil {
			return err
		}

		exsitu, insitu, err := readScoreTables(
			combineFlags.exsitu, combineFlags.exsituColumn,
			combineFlags.insitu, combineFlags.insituColumn,
		)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		params := model.RunParams{
			Kind:         model.RunKindCombine,
			SpeciesCount: len(exsitu),
			ExSituTable:  combineFlags.exsitu,
			InSituTable:  combineFlags.insitu,
		}
		run, err := st.CreateRun(ctx, params)
		if err != nil {
			return err
		}

		collector := diag.NewCollector()
		assessments := combine.Combine(exsitu, insitu, collector)

		outputs, err := writeCombineOutputs(run.ID, params, assessments, collector.Items())
		if err != nil {
			_ = st.FinishRun(ctx, run.ID, model.RunStatusFailed, err.Error())
			return err
		}

		if err := st.SaveAssessments(ctx, run.ID, assessments); err != nil {
			_ = st.FinishRun(ctx, run.ID, model.RunStatusFailed, err.Error())
			return err
		}
		if err := st.FinishRun(ctx, run.ID, model.RunStatusComplete, ""); err != nil {
			return err
		}

		zap.L().Info("combine run complete",
			zap.String("run_id", run.ID),
			zap.Int("species", len(assessments)),
			zap.Int("diagnostics", collector.Len()),
			zap.Strings("outputs", outputs),
		)
		return nil
	},
}

// readScoreTables loads both score tables. Each side names its own score
// column, matching the usual interchange layout where the ex-situ table
// carries fcs_ex and the in-situ table carries fcs_in.
func readScoreTables(exPath, exColumn, inPath, inColumn string) (exsitu, insitu []model.FCSRow, err error) {
	exsitu, err = tabular.ReadFCS(exPath, exColumn)
	if err != nil {
		return nil, nil, err
	}
	insitu, err = tabular.ReadFCS(inPath, inColumn)
	if err != nil {
		return nil, nil, err
	}
	return exsitu, insitu, nil
}

func writeCombineOutputs(runID string, params model.RunParams, rows []model.FinalAssessment, diags []diag.Diagnostic) ([]string, error) {
	if err := os.MkdirAll(combineFlags.outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create output directory")
	}

	var outputs []string

	assessPath := filepath.Join(combineFlags.outDir, "fcs_combined.csv")
	if err := tabular.WriteAssessments(assessPath, rows); err != nil {
		return nil, err
	}
	outputs = append(outputs, assessPath)

	manifestPath := filepath.Join(combineFlags.outDir, "run_manifest.yaml")
	err := tabular.WriteManifest(manifestPath, tabular.Manifest{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		Params:      params,
		Outputs:     outputs,
		Diagnostics: diags,
	})
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, manifestPath)

	return outputs, nil
}

func init() {
	combineCmd.Flags().StringVar(&combineFlags.exsitu, "exsitu", "", "ex-situ score table (.csv or .xlsx)")
	combineCmd.Flags().StringVar(&combineFlags.insitu, "insitu", "", "in-situ score table (.csv or .xlsx)")
	combineCmd.Flags().StringVar(&combineFlags.exsituColumn, "exsitu-column", "fcs_ex", "score column in the ex-situ table")
	combineCmd.Flags().StringVar(&combineFlags.insituColumn, "insitu-column", "fcs_in", "score column in the in-situ table")
	combineCmd.Flags().StringVar(&combineFlags.outDir, "out", "combine_out", "output directory")
	_ = combineCmd.MarkFlagRequired("exsitu")
	_ = combineCmd.MarkFlagRequired("insitu")
	rootCmd.AddCommand(combineCmd)
}
