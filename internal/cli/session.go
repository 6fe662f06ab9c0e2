package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var tokenFile string
	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Sign in with an access token",
		Long: "Login saves a signed access token and pulls the account. The token subject\n" +
			"names the account. Read the token from --token-file to keep it out of shell history.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			switch {
			case len(args) == 1:
				raw = args[0]
			case tokenFile != "":
				data, err := os.ReadFile(tokenFile)
				if err != nil {
					return fmt.Errorf("read token file: %w", err)
				}
				raw = strings.TrimSpace(string(data))
			default:
				return usageError("give a token or --token-file")
			}

			return withApp(cmd, false, func(a *app) error {
				// A changed user triggers a pull in the background.
				if err := a.session.Login(raw); err != nil {
					return fmt.Errorf("login: %w", err)
				}
				user := a.session.CurrentUserID()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Signed in as %s\n", user)
				if a.remote == nil {
					fmt.Fprintln(out, "No remote configured; changes stay on this device")
					return nil
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), a.settings.exitWait)
				defer cancel()
				if err := a.sched.Wait(ctx); err != nil {
					fmt.Fprintln(out, "Sync still running; it will resume on the next command")
					return nil
				}
				if serr := a.sched.LastError(); serr != nil {
					fmt.Fprintf(out, "Not synced yet: %v\n", serr)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "read the token from this file")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; local data is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				if err := a.session.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
