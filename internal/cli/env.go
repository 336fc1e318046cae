// Package cli holds what the shots commands share: the resolved settings,
// the logger, provider resolution and the safety flags.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/config"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/logging"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/services/action"
	"nathanbeddoewebdev/shots/internal/services/auth"
	"nathanbeddoewebdev/shots/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// StoreFactory builds the credential store. Tests replace it.
var StoreFactory = func() auth.Store { return auth.DefaultStore() }

// Env is the per-command environment.
type Env struct {
	Settings *config.Settings
	Log      *zap.Logger
	Store    auth.Store
}

// Load resolves settings and builds the logger. The --log-level flag,
// when given, overrides the configured level. Logs go to the command's
// stderr.
func Load(cmd *cobra.Command) (*Env, error) {
	settings, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		settings.LogLevel = f.Value.String()
	}

	log, err := logging.New(settings.LogLevel, settings.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &Env{Settings: settings, Log: log, Store: StoreFactory()}, nil
}

// ProviderName returns --provider, falling back to the configured default.
func (e *Env) ProviderName(cmd *cobra.Command) (string, error) {
	if f := cmd.Flags().Lookup("provider"); f != nil && f.Value.String() != "" {
		return util.NormalizeKey(f.Value.String()), nil
	}
	if e.Settings.DefaultProvider != "" {
		return util.NormalizeKey(e.Settings.DefaultProvider), nil
	}
	return "", fmt.Errorf("no provider specified: use --provider flag or set a default with 'shots config set default-provider <name>'")
}

// Provider builds the provider named by --provider or the configured default.
func (e *Env) Provider(cmd *cobra.Command) (domain.Provider, string, error) {
	name, err := e.ProviderName(cmd)
	if err != nil {
		return nil, "", err
	}
	p, err := providers.Get(name, e.Store)
	if err != nil {
		return nil, "", err
	}
	return p, name, nil
}

// Waiter returns an action waiter configured from the settings.
func (e *Env) Waiter(p domain.Provider) *action.Waiter {
	w := action.NewWaiter(p, e.Log)
	w.PollInterval = e.Settings.PollInterval
	w.Timeout = e.Settings.WaitTimeout
	return w
}

// Journal opens the restart journal for provider. When the local database
// is unavailable it logs a warning and returns a service that persists
// nothing.
func (e *Env) Journal(p domain.Provider, providerName string, w *action.Waiter) *action.Service {
	var repo actionstore.ActionRepository
	if r, err := actionstore.Open(); err != nil {
		e.Log.Warn("restart journal unavailable; continuing without it", zap.Error(err))
	} else {
		repo = r
	}
	return action.NewService(p, providerName, repo, w, e.Log)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
