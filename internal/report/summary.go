package report

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// WriteSummary writes a settlement summary of one event. counted holds the
// cash counted per wallet drawer; wallets with a count get a variance line.
func WriteSummary(w io.Writer, event types.EventLedger, wallets []types.Wallet, counted map[string]int64) error {
	p := message.NewPrinter(language.Japanese)
	s := ledger.Summarize(event.Sales, wallets)

	name := event.EventName
	if name == "" {
		name = "(unnamed event)"
	}
	if _, err := p.Fprintf(w, "%s  %s  [%s]\n", name, event.EventDate, event.State()); err != nil {
		return err
	}
	p.Fprintf(w, "Sales: %d  Total: %s\n", len(event.Sales), yen(p, s.Total))
	p.Fprintf(w, "Cash: %s  Cashless: %s\n", yen(p, s.CashTotal), yen(p, s.CashlessTotal))

	for _, wallet := range wallets {
		t := s.ByWallet[wallet.ID]
		p.Fprintf(w, "\n%s\n", wallet.Name)
		p.Fprintf(w, "  total %s  cash %s  float %s  expected cash %s\n",
			yen(p, t.Total), yen(p, t.Cash), yen(p, event.Float(wallet.ID)),
			yen(p, s.Theoretical(event.CashFloatByWallet, wallet.ID)))

		c, ok := counted[wallet.ID]
		if !ok {
			continue
		}
		r := ledger.Reconcile(s, event.CashFloatByWallet, wallet.ID, c)
		sign := ""
		if r.Variance > 0 {
			sign = "+"
		}
		p.Fprintf(w, "  counted %s  variance %s%s (%s)\n", yen(p, r.Counted), sign, yen(p, r.Variance), r.Outcome)
	}

	if len(event.Gifts) > 0 {
		thanked := 0
		for _, g := range event.Gifts {
			if g.Thanked {
				thanked++
			}
		}
		p.Fprintf(w, "\nGifts: %d (%d thanked)\n", len(event.Gifts), thanked)
	}
	return nil
}

// yen formats an amount with digit grouping, sign before the currency mark.
func yen(p *message.Printer, n int64) string {
	if n < 0 {
		return p.Sprintf("-¥%d", -n)
	}
	return p.Sprintf("¥%d", n)
}
