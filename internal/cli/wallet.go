package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWalletCmd() *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage wallets",
		Long:  "Wallets are the payee buckets sharing a table. Their order decides attribution ties.",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List wallets in attribution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				wallets := a.ws.Wallets()
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), wallets)
				}
				floats := a.ws.Ledger().CashFloatByWallet
				for i, w := range wallets {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %-20s %s  float %d\n", i+1, w.ID, w.Name, floats[w.ID])
				}
				return nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a wallet at the end of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				w, err := a.ws.AddWallet(args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), w)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added wallet %s (%s)\n", w.ID, w.Name)
				return nil
			})
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				return a.ws.RenameWallet(args[0], args[1])
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a wallet",
		Long:  "Delete removes a wallet from the list. Products and sales keep its id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				return a.ws.DeleteWallet(args[0])
			})
		},
	}

	moveCmd := &cobra.Command{
		Use:       "move <id> up|down",
		Short:     "Move a wallet one place",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir int
			switch args[1] {
			case "up":
				dir = -1
			case "down":
				dir = 1
			default:
				return usageError("direction must be up or down, got %q", args[1])
			}
			return withApp(cmd, true, func(a *app) error {
				return a.ws.MoveWallet(args[0], dir)
			})
		},
	}

	walletCmd.AddCommand(listCmd, addCmd, renameCmd, deleteCmd, moveCmd)
	return walletCmd
}
