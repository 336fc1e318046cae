package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/shots/internal/orchestrator"
)

// PrintSummary prints one row per instance followed by the outcome counts.
func PrintSummary(w io.Writer, r *orchestrator.Report) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s: %s%s via %s, selection %s", r.RunID, r.Operation, mode, r.Provider, r.Criterion)
	if r.Threshold != "" {
		fmt.Fprintf(w, ", max age %s", r.Threshold)
	}
	fmt.Fprintln(w)

	if len(r.Results) == 0 {
		fmt.Fprintln(w, "No instances matched.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tNAME\tPRIOR\tFINAL\tOUTCOME\tSNAPSHOTS\tREASON")
	for _, res := range r.Results {
		snaps := res.Snapshots
		if res.Outcome == orchestrator.OutcomePlanned {
			snaps = res.Planned
		}
		reason := res.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			res.InstanceID,
			orDash(res.InstanceName),
			orDash(string(res.PriorState)),
			orDash(string(res.FinalState)),
			res.Outcome,
			joinOrDash(snaps),
			reason,
		)
	}
	tw.Flush()

	c := r.Counts
	fmt.Fprintf(w, "\n%d done, %d skipped, %d failed", c.Done, c.Skipped, c.Failed)
	if c.Planned > 0 {
		fmt.Fprintf(w, ", %d planned", c.Planned)
	}
	fmt.Fprintf(w, " in %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

// PrintJSON encodes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
