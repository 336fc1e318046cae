package auth

import (
	"errors"
	"fmt"
	"os"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/services/auth"
	"nathanbeddoewebdev/shots/internal/tui/styles"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status for providers",
		Long: `Show which providers have an API token available, either from the
environment or the local keychain.

Example:
  shots auth status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cli.StoreFactory()
			names := providers.List()

			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No providers registered.")
				return nil
			}

			for _, provider := range names {
				_, err := store.GetToken(provider)
				switch {
				case err == nil:
					source := "keychain"
					if os.Getenv(auth.EnvVar(provider)) != "" {
						source = auth.EnvVar(provider)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", provider, styles.SuccessText.Render("logged in"), source)
				case errors.Is(err, auth.ErrTokenNotFound):
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", provider, styles.WarningText.Render("not logged in"))
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%v)\n", provider, styles.ErrorText.Render("error"), err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
