package ledger

import (
	"github.com/mesh-intelligence/tally/pkg/types"
)

// WalletTotals are the sales credited to one wallet.
type WalletTotals struct {
	Total int64 `json:"total"`
	Cash  int64 `json:"cash"`
}

// Settlement is the frozen summary taken when an event is closed.
type Settlement struct {
	Total         int64                   `json:"total"`
	CashTotal     int64                   `json:"cashTotal"`
	CashlessTotal int64                   `json:"cashlessTotal"`
	ByWallet      map[string]WalletTotals `json:"byWallet"`
}

// Summarize totals sales overall and per wallet. Every listed wallet gets
// an entry, zero if unused. Sales credited to wallets no longer listed get
// their own entry; sales with no wallet count only toward the overall
// totals.
func Summarize(sales []types.Sale, wallets []types.Wallet) Settlement {
	s := Settlement{ByWallet: make(map[string]WalletTotals, len(wallets))}
	for _, w := range wallets {
		s.ByWallet[w.ID] = WalletTotals{}
	}

	for _, sale := range sales {
		s.Total += sale.Amount
		if sale.IsCash() {
			s.CashTotal += sale.Amount
		}
		if sale.WalletID == "" {
			continue
		}
		wt := s.ByWallet[sale.WalletID]
		wt.Total += sale.Amount
		if sale.IsCash() {
			wt.Cash += sale.Amount
		}
		s.ByWallet[sale.WalletID] = wt
	}
	s.CashlessTotal = s.Total - s.CashTotal
	return s
}

// Theoretical is the cash a wallet drawer should hold: its float plus its
// cash sales.
func (s Settlement) Theoretical(floats map[string]int64, walletID string) int64 {
	return floats[walletID] + s.ByWallet[walletID].Cash
}

// Outcome classifies a counted drawer against its theoretical cash.
type Outcome int

// Reconciliation outcomes. Only an exact match is OutcomeExact; there is no
// tolerance.
const (
	OutcomeExact Outcome = iota
	OutcomeSurplus
	OutcomeShortfall
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSurplus:
		return "surplus"
	case OutcomeShortfall:
		return "shortfall"
	default:
		return "exact"
	}
}

// MarshalText renders the outcome name in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Reconciliation compares the counted cash of one wallet drawer.
type Reconciliation struct {
	WalletID    string  `json:"walletId"`
	Float       int64   `json:"float"`
	CashSales   int64   `json:"cashSales"`
	Theoretical int64   `json:"theoretical"`
	Counted     int64   `json:"counted"`
	Variance    int64   `json:"variance"`
	Outcome     Outcome `json:"outcome"`
}

// Reconcile compares counted cash with the theoretical cash of walletID.
// Variance is counted minus theoretical.
func Reconcile(s Settlement, floats map[string]int64, walletID string, counted int64) Reconciliation {
	r := Reconciliation{
		WalletID:    walletID,
		Float:       floats[walletID],
		CashSales:   s.ByWallet[walletID].Cash,
		Theoretical: s.Theoretical(floats, walletID),
		Counted:     counted,
	}
	r.Variance = r.Counted - r.Theoretical
	switch {
	case r.Variance > 0:
		r.Outcome = OutcomeSurplus
	case r.Variance < 0:
		r.Outcome = OutcomeShortfall
	default:
		r.Outcome = OutcomeExact
	}
	return r
}
