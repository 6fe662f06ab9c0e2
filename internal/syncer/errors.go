package syncer

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// Kind classifies a sync failure.
type Kind string

// Failure kinds.
const (
	KindOffline Kind = "offline"
	KindLocal   Kind = "local"
	KindPush    Kind = "push"
	KindPull    Kind = "pull"
	KindDecode  Kind = "decode"
)

// ErrOffline is recorded when a sync is attempted while offline.
var ErrOffline = errors.New("network is offline")

// ErrDiscarded is recorded when the local store drops a pulled document.
var ErrDiscarded = errors.New("local store discarded the document")

// SyncError records why the last sync attempt failed. Sync triggers never
// return it; it is read back through Scheduler.LastError.
type SyncError struct {
	Kind  Kind
	Table types.DocKind
	Err   error
}

func (e *SyncError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("sync %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("sync %s %s: %v", e.Kind, e.Table, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// asSyncError wraps err as kind unless it already is a SyncError.
func asSyncError(kind Kind, table types.DocKind, err error) *SyncError {
	var se *SyncError
	if errors.As(err, &se) {
		return se
	}
	return &SyncError{Kind: kind, Table: table, Err: err}
}
