package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/pkg/types"
)

type sellOutput struct {
	Sales  []types.Sale `json:"sales"`
	Wallet string       `json:"wallet"`
	Change *int64       `json:"change,omitempty"`
}

func newSellCmd() *cobra.Command {
	var (
		amount   string
		payment  string
		received string
		walletID string
	)

	cmd := &cobra.Command{
		Use:   "sell [product-id...]",
		Short: "Record a sale",
		Long: "Sell records one sale per product, each credited to the product's wallet.\n" +
			"Without products it records a single sale of --amount credited to --wallet\n" +
			"(default: the first wallet). Repeat a product id to sell several.",
		Example: "  tally sell prod_a prod_a prod_b --payment cash --received 5000\n" +
			"  tally sell --amount 1200 --payment cashless --wallet wallet_2",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !types.ValidPayment(payment) {
				return usageError("payment must be %s or %s", types.PaymentCash, types.PaymentCashless)
			}
			if len(args) == 0 && amount == "" {
				return usageError("give product ids or --amount")
			}
			if len(args) > 0 && amount != "" {
				return usageError("--amount only applies to a sale without products")
			}

			return withApp(cmd, true, func(a *app) error {
				wallets := a.ws.Wallets()
				if walletID != "" {
					if _, ok := types.FindWallet(wallets, walletID); !ok {
						return fmt.Errorf("wallet %q: %w", walletID, types.ErrNotFound)
					}
				}

				var cart ledger.Cart
				products := a.ws.Products()
				for _, id := range args {
					p, ok := types.FindProduct(products, id)
					if !ok {
						return fmt.Errorf("product %q: %w", id, types.ErrNotFound)
					}
					cart.Add(p)
				}

				selected := walletID
				if cart.Empty() {
					cart.SetManual(ledger.ParseAmount(amount))
					if selected == "" && len(wallets) > 0 {
						selected = wallets[0].ID
					}
				} else if walletID != "" {
					cart.Override(walletID)
				}

				final := cart.Final()
				active := cart.ActiveWallet(wallets, selected)
				pay := ledger.Payment{Method: payment, Received: decimal.Zero}
				if received != "" {
					pay.Received = ledger.ParseAmount(received)
				}
				change, hasChange := ledger.Change(payment, pay.Received, final)

				sales, err := a.ws.Checkout(&cart, pay, selected)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if flags.jsonMode {
					res := sellOutput{Sales: sales, Wallet: active}
					if hasChange {
						res.Change = &change
					}
					return printJSON(out, res)
				}

				var total int64
				for _, s := range sales {
					total += s.Amount
					label := s.ProductID
					if p, ok := types.FindProduct(products, s.ProductID); ok {
						label = p.Name
					}
					if label == "" {
						label = "(manual)"
					}
					fmt.Fprintf(out, "%-24s %8d  %s\n", label, s.Amount, types.WalletLabel(wallets, s.WalletID))
				}
				fmt.Fprintf(out, "Total %d %s, drawer %s\n", total, payment, types.WalletLabel(wallets, active))
				if hasChange {
					if change < 0 {
						fmt.Fprintf(out, "Insufficient: %d short\n", -change)
					} else {
						fmt.Fprintf(out, "Change: %d\n", change)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount for a sale without products")
	cmd.Flags().StringVar(&payment, "payment", types.PaymentCash, "cash or cashless")
	cmd.Flags().StringVar(&received, "received", "", "cash handed over by the customer")
	cmd.Flags().StringVar(&walletID, "wallet", "", "wallet to credit (overrides the auto wallet)")
	return cmd
}
