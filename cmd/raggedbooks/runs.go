package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"raggedbooks/internal/storage"
)

func runsCMD(cfgPath func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			runs, err := a.library.Runs(ctx, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of runs to show (default 20)")
	return cmd
}

func printRuns(w io.Writer, runs []storage.ImportRun) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No import runs")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTARGET\tSTARTED\tTOOK\tIMPORTED\tSKIPPED\tFAILED\tERROR")
	for _, r := range runs {
		took := "running"
		if !r.FinishedAt.IsZero() {
			took = formatDuration(r.FinishedAt.Sub(r.StartedAt))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Kind, r.Target, r.StartedAt.Local().Format("2006-01-02 15:04"), took,
			r.Imported, r.Skipped, r.Failed, r.Error)
	}
	return tw.Flush()
}
