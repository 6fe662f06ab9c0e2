package workspace

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// AddWallet appends a wallet named name. Its id is "wallet_" followed by the
// current unix milliseconds, bumped past any id already in use.
func (w *Workspace) AddWallet(name string) (types.Wallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Wallet{}, types.ErrInvalidName
	}

	w.mu.Lock()
	ms := w.opts.Clock().UnixMilli()
	id := fmt.Sprintf("wallet_%d", ms)
	for {
		if _, taken := types.FindWallet(w.wallets, id); !taken {
			break
		}
		ms++
		id = fmt.Sprintf("wallet_%d", ms)
	}
	wallet := types.Wallet{ID: id, Name: name}
	err := w.saveWalletsLocked(append(slices.Clone(w.wallets), wallet))
	w.mu.Unlock()
	if err != nil {
		return types.Wallet{}, err
	}
	w.scheduleDebounced()
	return wallet, nil
}

// RenameWallet changes a wallet's display name.
func (w *Workspace) RenameWallet(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.ErrInvalidName
	}
	return w.updateWallets(func(wallets []types.Wallet) ([]types.Wallet, error) {
		idx := walletIndex(wallets, id)
		if idx < 0 {
			return nil, fmt.Errorf("wallet %q: %w", id, types.ErrNotFound)
		}
		wallets[idx].Name = name
		return wallets, nil
	})
}

// DeleteWallet removes a wallet. The last wallet cannot be deleted. Products
// and sales that name the wallet keep the id.
func (w *Workspace) DeleteWallet(id string) error {
	return w.updateWallets(func(wallets []types.Wallet) ([]types.Wallet, error) {
		if len(wallets) <= 1 {
			return nil, types.ErrLastWallet
		}
		idx := walletIndex(wallets, id)
		if idx < 0 {
			return nil, fmt.Errorf("wallet %q: %w", id, types.ErrNotFound)
		}
		return slices.Delete(wallets, idx, idx+1), nil
	})
}

// MoveWallet swaps a wallet with its neighbour; dir is -1 for up and +1 for
// down. Wallet order decides attribution ties.
func (w *Workspace) MoveWallet(id string, dir int) error {
	if dir != -1 && dir != 1 {
		return types.ErrInvalidMove
	}
	return w.updateWallets(func(wallets []types.Wallet) ([]types.Wallet, error) {
		idx := walletIndex(wallets, id)
		if idx < 0 {
			return nil, fmt.Errorf("wallet %q: %w", id, types.ErrNotFound)
		}
		target := idx + dir
		if target < 0 || target >= len(wallets) {
			return nil, types.ErrInvalidMove
		}
		wallets[idx], wallets[target] = wallets[target], wallets[idx]
		return wallets, nil
	})
}

func (w *Workspace) updateWallets(fn func([]types.Wallet) ([]types.Wallet, error)) error {
	w.mu.Lock()
	next, err := fn(slices.Clone(w.wallets))
	if err == nil {
		err = w.saveWalletsLocked(next)
	}
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.scheduleDebounced()
	return nil
}

func walletIndex(wallets []types.Wallet, id string) int {
	return slices.IndexFunc(wallets, func(w types.Wallet) bool { return w.ID == id })
}

// SaveProduct validates p against the tag set and stores it. An empty id
// adds a new product with a generated id; otherwise the product with that id
// is replaced in place.
func (w *Workspace) SaveProduct(p types.Product) (types.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Tags = slices.Clone(p.Tags)
	if err := p.Validate(w.opts.Tags); err != nil {
		return types.Product{}, err
	}

	w.mu.Lock()
	next := slices.Clone(w.products)
	if p.ID == "" {
		p.ID = newID()
		next = append(next, p)
	} else {
		idx := slices.IndexFunc(next, func(q types.Product) bool { return q.ID == p.ID })
		if idx < 0 {
			w.mu.Unlock()
			return types.Product{}, fmt.Errorf("product %q: %w", p.ID, types.ErrNotFound)
		}
		next[idx] = p
	}
	err := w.saveProductsLocked(next)
	w.mu.Unlock()
	if err != nil {
		return types.Product{}, err
	}
	w.scheduleDebounced()
	return p, nil
}

// DeleteProduct removes a product from the catalog. Past sales keep its id.
func (w *Workspace) DeleteProduct(id string) error {
	w.mu.Lock()
	idx := slices.IndexFunc(w.products, func(p types.Product) bool { return p.ID == id })
	if idx < 0 {
		w.mu.Unlock()
		return fmt.Errorf("product %q: %w", id, types.ErrNotFound)
	}
	err := w.saveProductsLocked(slices.Delete(slices.Clone(w.products), idx, idx+1))
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.scheduleDebounced()
	return nil
}
