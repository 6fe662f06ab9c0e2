package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// productFlags are shared by product add and product edit.
type productFlags struct {
	name   string
	price  string
	wallet string
	tags   []string
	image  string
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.price, "price", "", "price in yen")
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "wallet credited for this product")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable, at most three)")
	cmd.Flags().StringVar(&f.image, "image", "", "image reference")
}

// apply copies the flags that were set onto p.
func (f *productFlags) apply(cmd *cobra.Command, p types.Product) types.Product {
	if cmd.Flags().Changed("name") {
		p.Name = f.name
	}
	if cmd.Flags().Changed("price") {
		p.Price = ledger.Round(ledger.ParseAmount(f.price))
	}
	if cmd.Flags().Changed("wallet") {
		p.WalletID = f.wallet
	}
	if cmd.Flags().Changed("tag") {
		p.Tags = f.tags
	}
	if cmd.Flags().Changed("image") {
		p.ImageRef = f.image
	}
	return p
}

func newProductCmd() *cobra.Command {
	productCmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
	}

	var tagFilter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				products := make([]types.Product, 0)
				for _, p := range a.ws.Products() {
					if tagFilter == "" || p.HasTag(tagFilter) {
						products = append(products, p)
					}
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), products)
				}
				wallets := a.ws.Wallets()
				for _, p := range products {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %8d  %-12s %s\n",
						p.ID, p.Name, p.Price, types.WalletLabel(wallets, p.WalletID), strings.Join(p.Tags, ","))
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&tagFilter, "tag", "", "only products with this tag")

	var addFlags productFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				p := addFlags.apply(cmd, types.Product{})
				if p.WalletID == "" {
					if wallets := a.ws.Wallets(); len(wallets) > 0 {
						p.WalletID = wallets[0].ID
					}
				}
				saved, err := a.ws.SaveProduct(p)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), saved)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added product %s (%s)\n", saved.ID, saved.Name)
				return nil
			})
		},
	}
	addFlags.register(addCmd)

	var editFlags productFlags
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				p, ok := types.FindProduct(a.ws.Products(), args[0])
				if !ok {
					return fmt.Errorf("product %q: %w", args[0], types.ErrNotFound)
				}
				saved, err := a.ws.SaveProduct(editFlags.apply(cmd, p))
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), saved)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated product %s\n", saved.ID)
				return nil
			})
		},
	}
	editFlags.register(editCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				return a.ws.DeleteProduct(args[0])
			})
		},
	}

	productCmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd)
	return productCmd
}
