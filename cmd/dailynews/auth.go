package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"dailynews/pkg/auth"
	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the remote browser token",
	Long: `Manage the token used to connect to a hosted browser (browser.control_url).

The token is kept in the system keychain when one is available, otherwise
in an encrypted file in the config directory (passphrase from
DAILYNEWS_PASSPHRASE or a generated key file). The DAILYNEWS_BROWSER_TOKEN
environment variable is used when nothing is stored.`,
}

var setTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the remote browser token",
	Long:  `Prompt for the token without echo, or read one line from stdin when it is not a terminal.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Browser token: ")
		token, err := readSecret()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if token == "" {
			return errors.New("token is empty")
		}
		if err := auth.NewManager().Store(&auth.Credential{Name: auth.BrowserToken, Secret: token}); err != nil {
			return err
		}
		ui.PrintSuccess("Token stored: " + auth.Mask(token))
		return nil
	},
}

var clearTokenCmd = &cobra.Command{
	Use:   "clear-token",
	Short: "Remove the stored remote browser token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.NewManager().Delete(auth.BrowserToken); err != nil {
			if errors.Is(err, auth.ErrCredentialsNotFound) {
				ui.PrintWarning("No stored token")
				return nil
			}
			return err
		}
		ui.PrintSuccess("Token removed")
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := auth.NewManager().BrowserTokenOrEmpty()
		if token == "" {
			ui.PrintWarning("No browser token configured")
			return nil
		}
		ui.PrintInfo("Browser token", auth.Mask(token))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setTokenCmd)
	authCmd.AddCommand(clearTokenCmd)
	authCmd.AddCommand(tokenStatusCmd)
}

// readSecret reads a secret from stdin without echoing
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
