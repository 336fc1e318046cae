package runs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/runlog"

	"github.com/spf13/cobra"
)

func PruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a duration",
		Long: `Delete runs older than a duration, along with settled restart records
of the same age. Open restart records are never pruned.

Examples:
  shots runs prune --older-than 30d
  shots runs prune --older-than 720h`,
		Args:         cobra.NoArgs,
		RunE:         runPrune,
		SilenceUsage: true,
	}

	cmd.Flags().String("older-than", "720h", "Remove runs older than this duration (e.g. 30d, 72h)")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	olderThanRaw, _ := cmd.Flags().GetString("older-than")
	olderThanRaw = strings.TrimSpace(olderThanRaw)
	if olderThanRaw == "" {
		return fmt.Errorf("--older-than is required")
	}

	olderThan, err := parseDuration(olderThanRaw)
	if err != nil {
		return err
	}

	repo, err := runlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	removed, err := repo.Prune(olderThan)
	if err != nil {
		return err
	}

	journal, err := actionstore.Open()
	if err != nil {
		return err
	}
	defer journal.Close()

	settled, err := journal.DeleteOlderThan(olderThan)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s) and %d settled restart record(s).\n", removed, settled)
	return nil
}

func parseDuration(input string) (time.Duration, error) {
	if before, ok := strings.CutSuffix(input, "d"); ok {
		days, err := strconv.Atoi(before)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}
