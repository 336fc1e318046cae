// Package report renders orchestrator events and reports for people: one
// styled line per event while a run is in progress, then a summary table
// or the whole report as JSON.
package report

import (
	"fmt"
	"io"
	"sync"

	"nathanbeddoewebdev/shots/internal/orchestrator"
	"nathanbeddoewebdev/shots/internal/tui/styles"
)

// Console writes one line per event. Safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewConsole returns a Console writing to w. Transition events are only
// printed when verbose is set.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

// Emit implements orchestrator.Observer.
func (c *Console) Emit(e orchestrator.Event) {
	line := c.format(e)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func (c *Console) format(e orchestrator.Event) string {
	prefix := styles.MutedText.Render(e.Time.Format("15:04:05")) + " " + styles.AccentText.Render(instanceLabel(e))

	switch e.Kind {
	case orchestrator.EventTransition:
		if !c.verbose {
			return ""
		}
		return fmt.Sprintf("%s %s → %s", prefix, styles.StatusStyle(string(e.From)).Render(string(e.From)), styles.StatusStyle(string(e.To)).Render(string(e.To)))
	case orchestrator.EventSnapshotRequested:
		return fmt.Sprintf("%s snapshot %s requested for %s", prefix, styles.AccentText.Render(e.SnapshotID), e.VolumeID)
	case orchestrator.EventSkip:
		return fmt.Sprintf("%s %s %s", prefix, styles.WarningText.Render("skip"), e.Message)
	case orchestrator.EventError:
		return fmt.Sprintf("%s %s %s", prefix, styles.ErrorText.Render("error"), e.Error)
	case orchestrator.EventFinished:
		line := fmt.Sprintf("%s %s", prefix, styles.StatusIndicator(string(e.Outcome)))
		if e.Message != "" {
			line += " " + styles.MutedText.Render(e.Message)
		}
		return line
	default:
		return ""
	}
}

func instanceLabel(e orchestrator.Event) string {
	if e.InstanceName != "" && e.InstanceName != e.InstanceID {
		return fmt.Sprintf("%s (%s)", e.InstanceName, e.InstanceID)
	}
	return e.InstanceID
}
