package runs

import (
	"fmt"
	"text/tabwriter"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/report"
	"nathanbeddoewebdev/shots/internal/runlog"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Long: `List recent runs stored locally, newest first.

Examples:
  shots runs list
  shots runs list --limit 50
  shots runs list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of runs to display")
	cli.AddOutputFlag(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	output, err := cli.Output(cmd)
	if err != nil {
		return err
	}

	repo, err := runlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.List(limit)
	if err != nil {
		return err
	}

	if output == "json" {
		if runs == nil {
			runs = []runlog.Run{}
		}
		return report.PrintJSON(cmd.OutOrStdout(), runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tOPERATION\tPROVIDER\tSELECTION\tDONE\tSKIPPED\tFAILED\tDURATION")
	fmt.Fprintln(w, "-------\t---\t---------\t--------\t---------\t----\t-------\t------\t--------")
	for _, run := range runs {
		op := run.Operation
		if run.DryRun {
			op += " (dry run)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(run.RunID),
			op,
			run.Provider,
			run.Criterion,
			run.Done,
			run.Skipped,
			run.Failed,
			formatDuration(run),
		)
	}
	w.Flush()
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatDuration(run runlog.Run) string {
	d := run.FinishedAt.Sub(run.StartedAt)
	if d < 0 {
		return "-"
	}
	if d.Seconds() < 1 {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d.Minutes() < 1 {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d.Hours() < 1 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
