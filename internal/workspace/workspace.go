// Package workspace keeps the three documents of a local install in memory
// and applies the register's operations to them. Every mutation builds a
// complete new document, saves it through the local store and asks the sync
// scheduler for a debounced push.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// ErrNotSaved is returned when the local store discarded a mutated document.
// The in-memory copy is left unchanged.
var ErrNotSaved = errors.New("document was not saved")

// Syncer is the part of the sync scheduler the workspace drives.
type Syncer interface {
	ScheduleDebounced()
	PushNow(ctx context.Context)
}

// Options configures a Workspace.
type Options struct {
	// Tags is the product tag set. Nil selects types.DefaultTags.
	Tags   []string
	Logger *zap.Logger
	Clock  func() time.Time
}

// Workspace is the in-memory cache of the account, wallet and product
// documents.
type Workspace struct {
	store  types.LocalStore
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	syncer   Syncer
	account  types.AccountDocument
	wallets  []types.Wallet
	products []types.Product
}

// Open loads the documents from store. Missing or unreadable documents start
// from their defaults; an empty wallet list is seeded with
// types.DefaultWallets.
func Open(store types.LocalStore, opts Options) *Workspace {
	if opts.Tags == nil {
		opts.Tags = slices.Clone(types.DefaultTags)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	w := &Workspace{
		store:  store,
		opts:   opts,
		logger: opts.Logger.Named("workspace"),
	}
	w.mu.Lock()
	w.loadLocked()
	w.mu.Unlock()
	return w
}

// SetSyncer attaches the scheduler. Until one is set mutations are local
// only.
func (w *Workspace) SetSyncer(s Syncer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncer = s
}

// Reload re-reads every document from the local store. The scheduler calls
// it after a pull replaced them.
func (w *Workspace) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadLocked()
	return nil
}

// Persist writes the in-memory documents to the local store. The scheduler
// calls it before every push.
func (w *Workspace) Persist() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	docs := map[types.DocKind]any{
		types.DocEventLedger: w.account,
		types.DocWallets:     w.wallets,
		types.DocProducts:    w.products,
	}
	for _, kind := range types.DocKinds {
		if w.store.Save(kind, docs[kind]) != types.SaveStored {
			return fmt.Errorf("persist %s: %w", kind, ErrNotSaved)
		}
	}
	return nil
}

func (w *Workspace) loadLocked() {
	now := w.opts.Clock()

	account, err := types.DecodeAccount(w.store.Load(types.DocEventLedger), now)
	if err != nil {
		w.logger.Warn("starting from an empty ledger", zap.Error(err))
	}
	w.account = account

	w.wallets = nil
	if raw := w.store.Load(types.DocWallets); raw != nil {
		if err := json.Unmarshal(raw, &w.wallets); err != nil {
			w.logger.Warn("ignoring unreadable wallets", zap.Error(err))
			w.wallets = nil
		}
	}
	if len(w.wallets) == 0 {
		w.wallets = types.DefaultWallets()
		if w.store.Save(types.DocWallets, w.wallets) != types.SaveStored {
			w.logger.Debug("default wallets not saved")
		}
	}

	w.products = []types.Product{}
	if raw := w.store.Load(types.DocProducts); raw != nil {
		if err := json.Unmarshal(raw, &w.products); err != nil || w.products == nil {
			if err != nil {
				w.logger.Warn("ignoring unreadable catalog", zap.Error(err))
			}
			w.products = []types.Product{}
		}
	}
}

// Account returns a copy of the account document.
func (w *Workspace) Account() types.AccountDocument {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account.Clone()
}

// Ledger returns a copy of the active ledger.
func (w *Workspace) Ledger() types.EventLedger {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account.EventLedger.Clone()
}

// Wallets returns a copy of the wallet list.
func (w *Workspace) Wallets() []types.Wallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.wallets)
}

// Products returns a copy of the catalog.
func (w *Workspace) Products() []types.Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]types.Product, len(w.products))
	for i, p := range w.products {
		p.Tags = slices.Clone(p.Tags)
		out[i] = p
	}
	return out
}

// Tags returns the product tag set.
func (w *Workspace) Tags() []string {
	return slices.Clone(w.opts.Tags)
}

// UpdateAccount replaces the account with the result of fn. An error from fn
// leaves everything unchanged. fn runs with the workspace locked and must not
// call back into it.
func (w *Workspace) UpdateAccount(fn func(types.AccountDocument) (types.AccountDocument, error)) error {
	w.mu.Lock()
	next, err := fn(w.account.Clone())
	if err == nil {
		err = w.saveAccountLocked(next)
	}
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.scheduleDebounced()
	return nil
}

// SetWallets replaces the wallet list.
func (w *Workspace) SetWallets(wallets []types.Wallet) error {
	w.mu.Lock()
	err := w.saveWalletsLocked(slices.Clone(wallets))
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.scheduleDebounced()
	return nil
}

// SetProducts replaces the catalog.
func (w *Workspace) SetProducts(products []types.Product) error {
	w.mu.Lock()
	err := w.saveProductsLocked(slices.Clone(products))
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.scheduleDebounced()
	return nil
}

func (w *Workspace) saveAccountLocked(next types.AccountDocument) error {
	if w.store.Save(types.DocEventLedger, next) != types.SaveStored {
		return fmt.Errorf("save %s: %w", types.DocEventLedger, ErrNotSaved)
	}
	w.account = next
	return nil
}

func (w *Workspace) saveWalletsLocked(next []types.Wallet) error {
	if next == nil {
		next = []types.Wallet{}
	}
	if w.store.Save(types.DocWallets, next) != types.SaveStored {
		return fmt.Errorf("save %s: %w", types.DocWallets, ErrNotSaved)
	}
	w.wallets = next
	return nil
}

func (w *Workspace) saveProductsLocked(next []types.Product) error {
	if next == nil {
		next = []types.Product{}
	}
	if w.store.Save(types.DocProducts, next) != types.SaveStored {
		return fmt.Errorf("save %s: %w", types.DocProducts, ErrNotSaved)
	}
	w.products = next
	return nil
}

func (w *Workspace) scheduleDebounced() {
	w.mu.Lock()
	s := w.syncer
	w.mu.Unlock()
	if s != nil {
		s.ScheduleDebounced()
	}
}

func (w *Workspace) pushNow(ctx context.Context) {
	w.mu.Lock()
	s := w.syncer
	w.mu.Unlock()
	if s != nil {
		s.PushNow(ctx)
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
