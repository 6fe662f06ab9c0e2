package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/tally/internal/remote"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// pulled holds the decoded remote documents. A nil field means the remote
// does not have that document.
type pulled struct {
	account  *types.AccountDocument
	wallets  []types.Wallet
	products []types.Product
}

// pull fetches the three remote documents and applies them locally. The
// remote ledger and wallets replace the local ones whole; products are
// merged and the merged catalog is written to both sides. Documents the
// remote does not have leave the local copy alone. Nothing is applied unless
// every fetched document decodes.
func (s *Scheduler) pull(ctx context.Context, userID string) *SyncError {
	fetched, serr := s.fetchAll(ctx, userID)
	if serr != nil {
		return serr
	}
	docs, serr := decodeFetched(fetched, s.opts.Clock())
	if serr != nil {
		return serr
	}

	applyErr := s.apply(ctx, userID, docs)

	// The store may hold some pulled documents even when apply failed, so
	// the in-memory copies are always refreshed.
	if s.opts.Reload != nil {
		if err := s.opts.Reload(); err != nil && applyErr == nil {
			applyErr = &SyncError{Kind: KindLocal, Err: err}
		}
	}
	if applyErr != nil {
		return applyErr
	}
	s.logger.Info("pulled", zap.String("user_id", userID))
	return nil
}

func decodeFetched(fetched map[types.DocKind]json.RawMessage, now time.Time) (pulled, *SyncError) {
	var docs pulled
	if raw := fetched[types.DocEventLedger]; raw != nil {
		account, err := types.DecodeAccount(raw, now)
		if err != nil {
			return pulled{}, &SyncError{Kind: KindDecode, Table: types.DocEventLedger, Err: err}
		}
		docs.account = &account
	}
	if raw := fetched[types.DocWallets]; raw != nil {
		wallets := []types.Wallet{}
		if err := json.Unmarshal(raw, &wallets); err != nil {
			return pulled{}, &SyncError{Kind: KindDecode, Table: types.DocWallets, Err: err}
		}
		if wallets == nil {
			wallets = []types.Wallet{}
		}
		docs.wallets = wallets
	}
	if raw := fetched[types.DocProducts]; raw != nil {
		products := []types.Product{}
		if err := json.Unmarshal(raw, &products); err != nil {
			return pulled{}, &SyncError{Kind: KindDecode, Table: types.DocProducts, Err: err}
		}
		if products == nil {
			products = []types.Product{}
		}
		docs.products = products
	}
	return docs, nil
}

func (s *Scheduler) apply(ctx context.Context, userID string, docs pulled) *SyncError {
	if docs.account != nil {
		if s.store.Save(types.DocEventLedger, *docs.account) != types.SaveStored {
			return &SyncError{Kind: KindLocal, Table: types.DocEventLedger, Err: ErrDiscarded}
		}
	}
	if docs.wallets != nil {
		if s.store.Save(types.DocWallets, docs.wallets) != types.SaveStored {
			return &SyncError{Kind: KindLocal, Table: types.DocWallets, Err: ErrDiscarded}
		}
	}
	if docs.products == nil {
		return nil
	}

	var localProducts []types.Product
	if local := s.store.Load(types.DocProducts); local != nil {
		if err := json.Unmarshal(local, &localProducts); err != nil {
			s.logger.Warn("ignoring unreadable local catalog", zap.Error(err))
			localProducts = nil
		}
	}
	merged := MergeProducts(docs.products, localProducts)
	if s.store.Save(types.DocProducts, merged) != types.SaveStored {
		return &SyncError{Kind: KindLocal, Table: types.DocProducts, Err: ErrDiscarded}
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return &SyncError{Kind: KindLocal, Table: types.DocProducts, Err: err}
	}
	if err := s.remote.Upsert(ctx, types.DocProducts, userID, payload); err != nil {
		return &SyncError{Kind: KindPush, Table: types.DocProducts, Err: err}
	}
	s.logger.Debug("merged catalog",
		zap.Int("remote", len(docs.products)),
		zap.Int("local", len(localProducts)),
		zap.Int("merged", len(merged)))
	return nil
}

// fetchAll fetches the three documents concurrently. Missing documents map
// to nil.
func (s *Scheduler) fetchAll(ctx context.Context, userID string) (map[types.DocKind]json.RawMessage, *SyncError) {
	results := make([]json.RawMessage, len(types.DocKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range types.DocKinds {
		g.Go(func() error {
			raw, err := s.remote.FetchOne(gctx, kind, userID)
			if errors.Is(err, remote.ErrNotFound) {
				return nil
			}
			if err != nil {
				return &SyncError{Kind: KindPull, Table: kind, Err: err}
			}
			results[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asSyncError(KindPull, "", err)
	}

	fetched := make(map[types.DocKind]json.RawMessage, len(types.DocKinds))
	for i, kind := range types.DocKinds {
		fetched[kind] = results[i]
	}
	return fetched, nil
}
