package remote

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tally/pkg/types"
)

func TestRedisStore_Key(t *testing.T) {
	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer s.Close()

	assert.Equal(t, "tally:wallets:u1", s.key(types.DocWallets, "u1"))

	custom := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "shop:")
	defer custom.Close()
	assert.Equal(t, "shop:event_ledger:u1", custom.key(types.DocEventLedger, "u1"))
}

// TestRedisStore_RoundTrip needs a live server: set TALLY_TEST_REDIS_ADDR.
func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("TALLY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TALLY_TEST_REDIS_ADDR not set")
	}

	s, err := NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "tally-test:"})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	t.Cleanup(func() {
		s.client.Del(ctx, s.key(types.DocWallets, "u1"))
	})

	_, err = s.FetchOne(ctx, types.DocWallets, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := json.RawMessage(`[{"id":"wallet_1","name":"Me"}]`)
	require.NoError(t, s.Upsert(ctx, types.DocWallets, "u1", payload))

	got, err := s.FetchOne(ctx, types.DocWallets, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	updated, err := s.client.HGet(ctx, s.key(types.DocWallets, "u1"), "updated_at").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, updated)
}
