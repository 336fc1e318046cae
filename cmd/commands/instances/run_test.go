package instances

import (
	"context"
	"errors"
	"testing"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/selector"
	"nathanbeddoewebdev/shots/internal/tui"
)

func stubPrompt(t *testing.T, interactive bool, answer error) *int {
	t.Helper()
	prevInteractive, prevConfirm := isInteractive, confirmFleet
	t.Cleanup(func() { isInteractive, confirmFleet = prevInteractive, prevConfirm })

	calls := 0
	isInteractive = func() bool { return interactive }
	confirmFleet = func(context.Context, domain.Provider, string) error {
		calls++
		return answer
	}
	return &calls
}

func TestAllowFleet(t *testing.T) {
	fleet := selector.Criterion{}
	teamX := selector.Criterion{Universe: "teamX"}

	tests := []struct {
		name        string
		criterion   selector.Criterion
		safety      cli.Safety
		interactive bool
		answer      error
		want        bool
		wantPrompt  int
		wantErr     bool
	}{
		{name: "selection never needs override", criterion: teamX, interactive: true, want: false},
		{name: "force", criterion: fleet, safety: cli.Safety{Force: true}, interactive: true, want: true},
		{name: "dry run", criterion: fleet, safety: cli.Safety{DryRun: true}, want: true},
		{name: "non-interactive refuses", criterion: fleet, want: false},
		{name: "yes skips prompt and refuses", criterion: fleet, safety: cli.Safety{Yes: true}, interactive: true, want: false},
		{name: "confirmed", criterion: fleet, interactive: true, want: true, wantPrompt: 1},
		{name: "declined", criterion: fleet, interactive: true, answer: tui.ErrAborted, wantPrompt: 1, wantErr: true},
		{name: "prompt error", criterion: fleet, interactive: true, answer: errors.New("tty gone"), wantPrompt: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubPrompt(t, tt.interactive, tt.answer)

			got, err := allowFleet(context.Background(), providers.NewFakeProvider(), "snapshot", tt.criterion, tt.safety)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("allowFleet = %v, want %v", got, tt.want)
			}
			if *calls != tt.wantPrompt {
				t.Errorf("prompted %d times, want %d", *calls, tt.wantPrompt)
			}
		})
	}
}

func TestAllowFleet_DeclinedMessage(t *testing.T) {
	stubPrompt(t, true, tui.ErrAborted)

	_, err := allowFleet(context.Background(), providers.NewFakeProvider(), "stop", selector.Criterion{}, cli.Safety{})
	if err == nil || err.Error() != "stop cancelled" {
		t.Fatalf("err = %v, want %q", err, "stop cancelled")
	}
}
