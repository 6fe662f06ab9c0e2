// Package cli implements the tally command-line interface: a thin consumer
// that reads ledger state and invokes workspace operations.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/paths"
	"github.com/mesh-intelligence/tally/internal/session"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	offline   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "tally" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tally",
		Short: "An offline-first register for market stalls",
		Long: "Tally records sales, gifts and cash floats for short sales events.\n" +
			"Everything works offline; when signed in, changes are pushed to your account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.offline, "offline", false, "do not contact the remote this run")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newStatusCmd(),
		newStartCmd(),
		newEventCmd(),
		newFloatCmd(),
		newSellCmd(),
		newGiftCmd(),
		newSaleCmd(),
		newCloseCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newWalletCmd(),
		newProductCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newSyncCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitCode(err))
}

// exitCode maps validation failures to a user error and everything else to
// a system error.
func exitCode(err error) int {
	for _, userErr := range []error{
		types.ErrNotFound,
		types.ErrInvalidID,
		types.ErrInvalidAmount,
		types.ErrInvalidPayment,
		types.ErrInvalidName,
		types.ErrInvalidPrice,
		types.ErrTooManyTags,
		types.ErrInvalidTag,
		types.ErrInvalidGift,
		types.ErrLastWallet,
		types.ErrInvalidMove,
		session.ErrInvalidToken,
		session.ErrExpiredToken,
		session.ErrMissingUserID,
		errUsage,
	} {
		if errors.Is(err, userErr) {
			return exitUserError
		}
	}
	return exitSysError
}

// errUsage marks bad arguments detected by a command itself.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
