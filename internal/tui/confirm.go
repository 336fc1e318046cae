// Package tui holds the interactive prompts of the shots CLI.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/shots/internal/domain"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
)

// ErrAborted is returned when the user declines or cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// maxListed bounds the number of instances shown in the confirmation note.
const maxListed = 10

// ConfirmFleet asks the user to confirm an operation that targets every
// instance the provider knows about. It lists the fleet behind a spinner
// so the prompt can say how many instances are affected.
func ConfirmFleet(ctx context.Context, provider domain.Provider, operation string) error {
	accessible := os.Getenv("ACCESSIBLE") != ""

	var instances []domain.Instance
	err := spinner.New().
		Title("Listing instances...").
		Accessible(accessible).
		Output(os.Stderr).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			var err error
			instances, err = provider.ListInstances(ctx, domain.InstanceFilter{})
			return err
		}).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return ErrAborted
		}
		return err
	}

	confirm := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(fmt.Sprintf("No universe or instance IDs given: %s will target the whole fleet", operation)).
				Description(FleetSummary(instances)),
			huh.NewConfirm().
				Title(fmt.Sprintf("%s all %d instance(s)?", capitalize(operation), len(instances))).
				Affirmative("Yes, continue").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithAccessible(accessible).WithOutput(os.Stderr)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	if !confirm {
		return ErrAborted
	}
	return nil
}

// ConfirmDestroy asks the user to confirm a permanent operation on the
// instances described by target.
func ConfirmDestroy(ctx context.Context, operation, target string) error {
	confirm := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s %s?", capitalize(operation), target)).
				Description("This cannot be undone. Existing snapshots are kept.").
				Affirmative("Yes, " + operation).
				Negative("Cancel").
				Value(&confirm),
		),
	).WithAccessible(os.Getenv("ACCESSIBLE") != "").WithOutput(os.Stderr)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	if !confirm {
		return ErrAborted
	}
	return nil
}

// FleetSummary renders a short list of instances for a confirmation note.
func FleetSummary(instances []domain.Instance) string {
	if len(instances) == 0 {
		return "No instances found."
	}

	var b strings.Builder
	for i, inst := range instances {
		if i == maxListed {
			fmt.Fprintf(&b, "… and %d more\n", len(instances)-maxListed)
			break
		}
		name := inst.Name
		if name == "" {
			name = inst.ID
		}
		fmt.Fprintf(&b, "%s (%s, %s)\n", name, inst.ID, inst.State)
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
