package auth

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication for providers",
		Long: `Manage authentication for providers.

Use this command group to store API tokens in the local keychain. A
SHOTS_<PROVIDER>_TOKEN environment variable takes precedence over a
stored token.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(StatusCommand())

	return cmd
}
