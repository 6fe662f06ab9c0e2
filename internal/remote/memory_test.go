package remote

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.FetchOne(ctx, types.DocWallets, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := json.RawMessage(`[{"id":"wallet_1","name":"Me"}]`)
	require.NoError(t, s.Upsert(ctx, types.DocWallets, "u1", payload))

	got, err := s.FetchOne(ctx, types.DocWallets, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	_, err = s.FetchOne(ctx, types.DocWallets, "u2")
	assert.ErrorIs(t, err, ErrNotFound, "rows are per user")
	_, err = s.FetchOne(ctx, types.DocProducts, "u1")
	assert.ErrorIs(t, err, ErrNotFound, "rows are per table")

	row, ok := s.Row(types.DocWallets, "u1")
	require.True(t, ok)
	assert.Equal(t, "u1", row.UserID)
	assert.False(t, row.UpdatedAt.IsZero())
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	payload := json.RawMessage(`{"a":1}`)
	require.NoError(t, s.Upsert(ctx, types.DocEventLedger, "u1", payload))
	payload[5] = '2'

	got, err := s.FetchOne(ctx, types.DocEventLedger, "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestMemoryStore_RejectsBadArgs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Upsert(ctx, types.DocKind("receipts"), "u1", json.RawMessage(`{}`)), ErrUnknownTable)
	assert.ErrorIs(t, s.Upsert(ctx, types.DocWallets, " ", json.RawMessage(`{}`)), ErrEmptyUser)
	assert.ErrorIs(t, s.Upsert(ctx, types.DocWallets, "u1", nil), ErrEmptyPayload)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Upsert(cancelled, types.DocWallets, "u1", json.RawMessage(`{}`)), context.Canceled)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr error
	}{
		{name: "empty driver", cfg: Config{}, wantNil: true},
		{name: "none", cfg: Config{Driver: DriverNone}, wantNil: true},
		{name: "memory", cfg: Config{Driver: DriverMemory}},
		{name: "rest", cfg: Config{Driver: DriverREST, URL: "http://localhost:54321"}},
		{name: "rest without url", cfg: Config{Driver: DriverREST}, wantNil: true, wantErr: ErrMissingURL},
		{name: "unknown", cfg: Config{Driver: "carrier-pigeon"}, wantNil: true, wantErr: ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg, nil, zap.NewNop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, store)
			} else {
				assert.NotNil(t, store)
			}
		})
	}
}
