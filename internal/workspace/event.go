package workspace

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// StartEvent opens the active ledger. Starting an open ledger changes
// nothing.
func (w *Workspace) StartEvent() error {
	now := w.opts.Clock()
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.WithLedger(a.EventLedger.Start(now)), nil
	})
}

// SetEventInfo sets the name and date of the active event.
func (w *Workspace) SetEventInfo(name, date string) error {
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.WithLedger(a.EventLedger.WithInfo(strings.TrimSpace(name), date)), nil
	})
}

// SetFloat sets the starting cash of a wallet drawer.
func (w *Workspace) SetFloat(walletID string, amount float64) error {
	if walletID == "" {
		return types.ErrInvalidID
	}
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.WithLedger(a.EventLedger.WithFloat(walletID, amount)), nil
	})
}

// Checkout records the cart as sales on the active ledger and clears it
// once they are saved. On error the cart is unchanged. selected is the wallet chosen when nothing in the cart decides.
func (w *Workspace) Checkout(cart *ledger.Cart, pay ledger.Payment, selected string) ([]types.Sale, error) {
	now := w.opts.Clock()

	var sales []types.Sale
	err := w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		// The caller's cart is cleared only once the sales are saved.
		var err error
		sales, err = cart.Clone().Checkout(pay, w.wallets, selected, now)
		if err != nil {
			return a, err
		}
		return a.WithLedger(a.EventLedger.WithSales(sales...)), nil
	})
	if err != nil {
		return nil, err
	}
	cart.Clear()
	w.logger.Debug("checkout", zap.Int("sales", len(sales)))
	return sales, nil
}

// AddGift records a gift on the active ledger.
func (w *Workspace) AddGift(fromName, content, imageRef string) (types.Gift, error) {
	g := types.Gift{
		ID:       newID(),
		At:       types.TimestampOf(w.opts.Clock()),
		FromName: strings.TrimSpace(fromName),
		Content:  strings.TrimSpace(content),
		ImageRef: imageRef,
	}
	if err := g.Validate(); err != nil {
		return types.Gift{}, err
	}
	err := w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.WithLedger(a.EventLedger.WithGift(g)), nil
	})
	if err != nil {
		return types.Gift{}, err
	}
	return g, nil
}

// ToggleThanked flips the thanked flag of a gift. eventID is an archive id
// or types.ActiveEventID.
func (w *Workspace) ToggleThanked(eventID, giftID string) error {
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.ToggleThanked(eventID, giftID)
	})
}

// DeleteSale removes a sale from the addressed event.
func (w *Workspace) DeleteSale(eventID, saleID string) error {
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.DeleteSale(eventID, saleID)
	})
}

// DeleteGift removes a gift from the addressed event.
func (w *Workspace) DeleteGift(eventID, giftID string) error {
	return w.UpdateAccount(func(a types.AccountDocument) (types.AccountDocument, error) {
		return a.DeleteGift(eventID, giftID)
	})
}

// Closing is the result of CloseEvent: the archived event and the
// settlement computed from its sales.
type Closing struct {
	Event           types.ArchivedEvent     `json:"event"`
	Settlement      ledger.Settlement       `json:"settlement"`
	Reconciliations []ledger.Reconciliation `json:"reconciliations,omitempty"`
}

// CloseEvent settles the active ledger, archives it and pushes at once,
// bypassing the debounce. counted holds the cash counted per wallet drawer;
// wallets without a count are not reconciled.
func (w *Workspace) CloseEvent(ctx context.Context, counted map[string]int64) (Closing, error) {
	now := w.opts.Clock()

	var closing Closing
	w.mu.Lock()
	wallets := w.wallets
	settlement := ledger.Summarize(w.account.Sales, wallets)
	floats := w.account.CashFloatByWallet
	for _, wallet := range wallets {
		if c, ok := counted[wallet.ID]; ok {
			closing.Reconciliations = append(closing.Reconciliations, ledger.Reconcile(settlement, floats, wallet.ID, c))
		}
	}
	next := w.account.Archive(now)
	err := w.saveAccountLocked(next)
	w.mu.Unlock()
	if err != nil {
		return Closing{}, err
	}

	closing.Event = next.ArchivedEvents[len(next.ArchivedEvents)-1]
	closing.Settlement = settlement
	w.logger.Info("event closed",
		zap.String("event_id", closing.Event.ID),
		zap.Int("sales", len(closing.Event.Sales)),
		zap.Int64("total", settlement.Total))

	w.pushNow(ctx)
	return closing, nil
}
