package auth

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/util"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// readPassword reads a token without echo. Replaced in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Store an API token for a provider",
		Long: `Store an API token for a provider using the local keychain.

Example:
  shots auth login hetzner
  shots auth login hetzner --token "$HCLOUD_TOKEN"`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := util.NormalizeKey(args[0])
			if provider == "" {
				return fmt.Errorf("provider is required")
			}
			if !isRegistered(provider) {
				return fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(providers.List(), ", "))
			}

			token, err := cmd.Flags().GetString("token")
			if err != nil {
				return err
			}

			token = strings.TrimSpace(token)
			if token == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API token: ")
				bytes, err := readPassword()
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				token = strings.TrimSpace(string(bytes))
			}

			if token == "" {
				return fmt.Errorf("token cannot be empty")
			}

			store := cli.StoreFactory()
			if err := store.SetToken(provider, token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved token for provider %s\n", provider)
			return nil
		},
	}

	cmd.Flags().String("token", "", "API token (optional, overrides prompt)")

	return cmd
}

func isRegistered(name string) bool {
	for _, p := range providers.List() {
		if p == name {
			return true
		}
	}
	return false
}
