package actions

import (
	"fmt"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/report"

	"github.com/spf13/cobra"
)

// ListCommand returns the "actions list" command.
func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List open restarts",
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("all", false, "Show all recent records, not just open ones")
	cmd.Flags().Int("limit", 20, "Number of records shown with --all")
	cli.AddOutputFlag(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	showAll, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	output, err := cli.Output(cmd)
	if err != nil {
		return err
	}

	repo, err := actionstore.Open()
	if err != nil {
		return fmt.Errorf("opening restart journal: %w", err)
	}
	defer repo.Close()

	var records []actionstore.ActionRecord
	if showAll {
		records, err = repo.ListRecent(limit)
	} else {
		records, err = repo.ListOpen()
	}
	if err != nil {
		return err
	}

	if output == "json" {
		if records == nil {
			records = []actionstore.ActionRecord{}
		}
		return report.PrintJSON(cmd.OutOrStdout(), records)
	}

	if len(records) == 0 {
		if showAll {
			fmt.Fprintln(cmd.OutOrStdout(), "No recent restart records.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No open restarts.")
		}
		return nil
	}

	printRecords(cmd, records)

	if !showAll {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nUse 'shots actions resume' to start these instances.\n")
	}
	return nil
}

func printRecords(cmd *cobra.Command, records []actionstore.ActionRecord) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPROVIDER\tINSTANCE\tNAME\tCOMMAND\tSTATUS\tAGE\n")

	for _, r := range records {
		status := r.Status
		if r.Status == actionstore.StatusError && r.ErrorMessage != "" {
			status = fmt.Sprintf("error: %s", truncate(r.ErrorMessage, 40))
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Provider, r.InstanceID, r.InstanceName, r.Command, status,
			formatAge(time.Since(r.CreatedAt).Truncate(time.Second)))
	}

	w.Flush()
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
