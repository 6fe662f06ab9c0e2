// Package report renders events for people: a CSV export for spreadsheets
// and a plain-text settlement summary. Both are pure projections of a
// ledger; nothing here writes documents.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// bom makes spreadsheet apps read the file as UTF-8.
const bom = "\ufeff"

const timeLayout = "2006-01-02 15:04"

// Options controls CSV rendering.
type Options struct {
	// Location renders timestamps; nil means time.Local.
	Location *time.Location

	// BOM prefixes the output with a UTF-8 byte order mark.
	BOM bool
}

// WriteCSV writes the sales, per-wallet summary, per-product totals and
// gifts of one event as consecutive CSV sections separated by blank rows.
// Sales are listed oldest first. Products no longer in the catalog are left
// out of the product section; wallets that no longer exist show their id.
func WriteCSV(w io.Writer, event types.EventLedger, wallets []types.Wallet, products []types.Product, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	if opts.BOM {
		if _, err := io.WriteString(w, bom); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"[Sales]"},
		{"Time", "Product", "Wallet", "Payment", "Amount"},
	}
	for i := len(event.Sales) - 1; i >= 0; i-- {
		s := event.Sales[i]
		name := ""
		if s.ProductID != "" {
			if p, ok := types.FindProduct(products, s.ProductID); ok {
				name = p.Name
			}
		}
		rows = append(rows, []string{
			formatTime(s.At, loc),
			name,
			types.WalletLabel(wallets, s.WalletID),
			paymentLabel(s.Payment),
			itoa(s.Amount),
		})
	}

	settlement := ledger.Summarize(event.Sales, wallets)
	rows = append(rows,
		[]string{},
		[]string{"[Wallet summary]"},
		[]string{"Wallet", "Total", "Cash", "Cashless", "Float", "Theoretical cash"},
	)
	for _, wallet := range wallets {
		t := settlement.ByWallet[wallet.ID]
		rows = append(rows, []string{
			wallet.Name,
			itoa(t.Total),
			itoa(t.Cash),
			itoa(t.Total - t.Cash),
			itoa(event.Float(wallet.ID)),
			itoa(settlement.Theoretical(event.CashFloatByWallet, wallet.ID)),
		})
	}

	rows = append(rows,
		[]string{},
		[]string{"[Products]"},
		[]string{"Product", "Sales", "Total", "Wallet"},
	)
	for _, pt := range productTotals(event.Sales, products) {
		rows = append(rows, []string{
			pt.product.Name,
			strconv.Itoa(pt.count),
			itoa(pt.total),
			types.WalletLabel(wallets, pt.product.WalletID),
		})
	}

	rows = append(rows,
		[]string{},
		[]string{"[Gifts]"},
		[]string{"Time", "From", "Content", "Thanked"},
	)
	for _, g := range event.Gifts {
		thanked := "no"
		if g.Thanked {
			thanked = "yes"
		}
		rows = append(rows, []string{formatTime(g.At, loc), g.FromName, g.Content, thanked})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// FileName suggests a file name for an event export.
func FileName(event types.EventLedger) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(event.EventName))
	if name == "" {
		name = "event"
	}
	return event.EventDate + "_" + name + ".csv"
}

type productTotal struct {
	product types.Product
	count   int
	total   int64
}

// productTotals groups product sales in order of first appearance.
func productTotals(sales []types.Sale, products []types.Product) []productTotal {
	var out []productTotal
	index := make(map[string]int)
	for _, s := range sales {
		if s.ProductID == "" {
			continue
		}
		p, ok := types.FindProduct(products, s.ProductID)
		if !ok {
			continue
		}
		i, seen := index[s.ProductID]
		if !seen {
			i = len(out)
			index[s.ProductID] = i
			out = append(out, productTotal{product: p})
		}
		out[i].count++
		out[i].total += s.Amount
	}
	return out
}

func paymentLabel(p string) string {
	switch p {
	case types.PaymentCash:
		return "Cash"
	case types.PaymentCashless:
		return "Cashless"
	}
	return p
}

func formatTime(ts types.Timestamp, loc *time.Location) string {
	return ts.Time().In(loc).Format(timeLayout)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
