package types

import (
	"context"
	"encoding/json"
	"errors"
)

// DocKind names one of the three persisted documents. The same names are
// used for the remote tables.
type DocKind string

// Document kinds.
const (
	DocEventLedger DocKind = "event_ledger"
	DocWallets     DocKind = "wallets"
	DocProducts    DocKind = "products"
)

// DocKinds lists every document kind in persistence order.
var DocKinds = []DocKind{
	DocEventLedger,
	DocWallets,
	DocProducts,
}

// Valid reports whether k is one of the standard document kinds.
func (k DocKind) Valid() bool {
	for _, known := range DocKinds {
		if k == known {
			return true
		}
	}
	return false
}

// SchemaVersion is the version stamped on every locally stored document.
// Documents written under another version are treated as missing.
const SchemaVersion = 1

// SaveResult reports the outcome of LocalStore.Save.
type SaveResult int

// Save outcomes.
const (
	SaveDiscarded SaveResult = iota
	SaveStored
)

func (r SaveResult) String() string {
	if r == SaveStored {
		return "stored"
	}
	return "discarded"
}

// LocalStore persists the three documents of a local install. Load and Save
// never return errors: a failed read looks like a missing document and a
// payload that cannot be represented is dropped, leaving the previous value
// in place.
type LocalStore interface {
	// Attach connects the store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach flushes pending document files and releases the backend.
	// Idempotent: multiple calls succeed.
	Detach() error

	// Load returns the stored document of the given kind, or nil when it is
	// missing, was written under another schema version, or cannot be read.
	Load(kind DocKind) json.RawMessage

	// Save sanitizes doc and stores it. Returns SaveDiscarded when the store
	// is detached, the kind is unknown or the sanitized root is not
	// representable as JSON.
	Save(kind DocKind, doc any) SaveResult
}

// Future is implemented by values standing for a result that is not yet
// available. Save omits them rather than persisting a placeholder.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("local store is detached")
	ErrAlreadyAttached = errors.New("local store is already attached")
)

// Ledger operation errors. Operations returning one of these leave every
// document unchanged.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrInvalidID      = errors.New("invalid entity ID")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidPayment = errors.New("unknown payment method")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrTooManyTags    = errors.New("a product carries at most three tags")
	ErrInvalidTag     = errors.New("unknown or duplicate tag")
	ErrInvalidGift    = errors.New("gift needs a sender or a content")
	ErrLastWallet     = errors.New("cannot delete the last wallet")
	ErrInvalidMove    = errors.New("wallet cannot move past the end of the list")
)
