package cli

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/shots/internal/selector"

	"github.com/spf13/cobra"
)

// Safety holds the flags that guard destructive operations.
type Safety struct {
	DryRun bool
	Yes    bool
	Force  bool
}

// AddSafetyFlags adds --dry-run, --yes and --force to cmd and its children.
func AddSafetyFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Allow targeting every instance when no universe or ID is given")
}

// SafetyOptions reads the safety flags.
func SafetyOptions(cmd *cobra.Command) Safety {
	dry, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	force, _ := cmd.Flags().GetBool("force")
	return Safety{DryRun: dry, Yes: yes, Force: force}
}

// AddSelectionFlags adds --universe and --id to cmd and its children.
func AddSelectionFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("universe", "", "Only act on instances whose universe tag has this value")
	cmd.PersistentFlags().StringSlice("id", nil, "Only act on these instance IDs (repeatable or comma-separated)")
}

// Criterion reads the selection flags.
func Criterion(cmd *cobra.Command) selector.Criterion {
	universe, _ := cmd.Flags().GetString("universe")
	ids, _ := cmd.Flags().GetStringSlice("id")

	var cleaned []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return selector.Criterion{Universe: strings.TrimSpace(universe), InstanceIDs: cleaned}
}

// AddOutputFlag adds -o/--output accepting "table" or "json".
func AddOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")
}

// Output reads and validates the output flag.
func Output(cmd *cobra.Command) (string, error) {
	out, _ := cmd.Flags().GetString("output")
	out = strings.ToLower(strings.TrimSpace(out))
	switch out {
	case "", "table":
		return "table", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", out)
	}
}
