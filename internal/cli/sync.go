package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/syncer"
)

type syncOutput struct {
	syncer.Status
	Remote    bool   `json:"remote"`
	LastError string `json:"lastError,omitempty"`
}

func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push or pull the account by hand",
		Long: "Mutating commands push on their own. Use sync to retry after a failure or\n" +
			"to fetch changes made on another device.",
	}

	syncCmd.AddCommand(
		&cobra.Command{
			Use:   "push",
			Short: "Push local documents now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, false, func(a *app) error {
					a.sched.PushNow(cmd.Context())
					return printSync(cmd.OutOrStdout(), a)
				})
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Pull the account, merge the catalog, then push",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, false, func(a *app) error {
					a.sched.Pull(cmd.Context())
					return printSync(cmd.OutOrStdout(), a)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the sync state of this run",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, false, func(a *app) error {
					return printSync(cmd.OutOrStdout(), a)
				})
			},
		},
	)
	return syncCmd
}

func printSync(w io.Writer, a *app) error {
	st := a.sched.Status()
	res := syncOutput{Status: st, Remote: a.remote != nil}
	if st.LastError != nil {
		res.LastError = st.LastError.Error()
	}
	if flags.jsonMode {
		return printJSON(w, res)
	}

	switch {
	case !res.Remote:
		fmt.Fprintln(w, "No remote configured; changes stay on this device")
	case st.UserID == "":
		fmt.Fprintln(w, "Not signed in; nothing to sync")
	case res.LastError != "":
		fmt.Fprintf(w, "Sync failed: %s\n", res.LastError)
	case st.Pushes > 0:
		fmt.Fprintf(w, "Synced %s at %s\n", st.UserID, st.LastSync.Format("15:04:05"))
	default:
		fmt.Fprintf(w, "Signed in as %s\n", st.UserID)
	}
	return nil
}
