package remote

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// MemoryStore keeps rows in process. Used for dry runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Row
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]Row),
		now:  time.Now,
	}
}

func memoryKey(table types.DocKind, userID string) string {
	return string(table) + "/" + userID
}

// Upsert stores a copy of payload.
func (s *MemoryStore) Upsert(ctx context.Context, table types.DocKind, userID string, payload json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkArgs(table, userID); err != nil {
		return err
	}
	if err := checkPayload(payload); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[memoryKey(table, userID)] = Row{
		UserID:    userID,
		Data:      slices.Clone(payload),
		UpdatedAt: s.now(),
	}
	return nil
}

// FetchOne returns a copy of the stored payload.
func (s *MemoryStore) FetchOne(ctx context.Context, table types.DocKind, userID string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkArgs(table, userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[memoryKey(table, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(row.Data), nil
}

// Row returns the stored row, for inspection.
func (s *MemoryStore) Row(table types.DocKind, userID string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[memoryKey(table, userID)]
	return row, ok
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
