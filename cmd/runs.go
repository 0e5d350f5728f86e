package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/croptrust/gapanalysis-cli/internal/model"
	"github.com/croptrust/gapanalysis-cli/internal/store"
)

var runsFlags struct {
	status string
	kind   string
	limit  int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsFlags.status),
			Kind:   model.RunKind(runsFlags.kind),
			Limit:  runsFlags.limit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSPECIES\tCREATED\tERROR")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.Params.Kind, r.Status, r.Params.SpeciesCount,
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.Error)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsFlags.status, "status", "", "filter by status (queued|running|complete|failed)")
	runsCmd.Flags().StringVar(&runsFlags.kind, "kind", "", "filter by kind (grs|combine)")
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
