package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tally/pkg/types"
)

func attachBackend(t *testing.T, dir string, cfg types.SQLiteConfig) *Backend {
	t.Helper()
	b := NewBackend()
	err := b.Attach(types.Config{
		Backend:      types.BackendSQLite,
		DataDir:      dir,
		SQLiteConfig: cfg,
	})
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b.Detach()

	if _, err := os.Stat(filepath.Join(tmpDir, DatabaseFile)); os.IsNotExist(err) {
		t.Error("tally.db not created")
	}

	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir})
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}

func TestBackend_Detach(t *testing.T) {
	b := attachBackend(t, t.TempDir(), types.SQLiteConfig{})
	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, types.DefaultWallets()))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	assert.Nil(t, b.Load(types.DocWallets))
	assert.Equal(t, types.SaveDiscarded, b.Save(types.DocWallets, types.DefaultWallets()))
}

func TestBackend_LoadMissing(t *testing.T) {
	b := attachBackend(t, t.TempDir(), types.SQLiteConfig{})
	defer b.Detach()

	for _, kind := range types.DocKinds {
		assert.Nil(t, b.Load(kind), kind)
	}
	assert.Nil(t, b.Load(types.DocKind("receipts")))
}

func TestBackend_SaveAndLoad(t *testing.T) {
	b := attachBackend(t, t.TempDir(), types.SQLiteConfig{})
	defer b.Detach()

	products := []types.Product{
		{ID: "p1", Name: "Tote", Price: 1200, WalletID: "wallet_1", Tags: []string{"bag"}},
	}
	require.Equal(t, types.SaveStored, b.Save(types.DocProducts, products))

	var got []types.Product
	require.NoError(t, json.Unmarshal(b.Load(types.DocProducts), &got))
	assert.Equal(t, products, got)
}

func TestBackend_SaveUnknownKind(t *testing.T) {
	b := attachBackend(t, t.TempDir(), types.SQLiteConfig{})
	defer b.Detach()

	assert.Equal(t, types.SaveDiscarded, b.Save(types.DocKind("receipts"), []int{1}))
}

func TestBackend_DiscardKeepsPreviousValue(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b.Detach()

	wallets := types.DefaultWallets()
	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, wallets))
	before := b.Load(types.DocWallets)
	fileBefore, err := os.ReadFile(filepath.Join(tmpDir, "wallets.json"))
	require.NoError(t, err)

	type node struct {
		Name string `json:"name"`
		Next *node  `json:"next"`
	}
	loop := &node{Name: "a"}
	loop.Next = loop

	tests := []struct {
		name string
		doc  any
	}{
		{"nil root", nil},
		{"nil pointer root", (*types.AccountDocument)(nil)},
		{"cycle", loop},
		{"func root", func() {}},
		{"invalid raw json", json.RawMessage(`{"broken"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, types.SaveDiscarded, b.Save(types.DocWallets, tt.doc))
			assert.JSONEq(t, string(before), string(b.Load(types.DocWallets)))

			fileAfter, err := os.ReadFile(filepath.Join(tmpDir, "wallets.json"))
			require.NoError(t, err)
			assert.Equal(t, fileBefore, fileAfter)
		})
	}
}

func TestBackend_SurvivesReattach(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{})

	account := types.NewAccount(testNow)
	account.EventLedger = account.Start(testNow).WithInfo("Spring market", "2026-05-03")
	require.Equal(t, types.SaveStored, b.Save(types.DocEventLedger, account))
	require.NoError(t, b.Detach())

	b2 := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b2.Detach()

	got, err := types.DecodeAccount(b2.Load(types.DocEventLedger), testNow)
	require.NoError(t, err)
	assert.Equal(t, "Spring market", got.EventName)
	assert.True(t, got.IsOpen())
}

func TestBackend_DocumentFileFormat(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b.Detach()

	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, types.DefaultWallets()))

	data, err := os.ReadFile(filepath.Join(tmpDir, "wallets.json"))
	require.NoError(t, err)

	var doc documentJSON
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "wallets", doc.Kind)
	assert.Equal(t, types.SchemaVersion, doc.SchemaVersion)
	assert.NotEmpty(t, doc.UpdatedAt)
	assert.JSONEq(t,
		`[{"id":"wallet_1","name":"Me"},{"id":"wallet_2","name":"Partner"},{"id":"wallet_3","name":"Consignment"}]`,
		string(doc.Payload))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestBackend_SchemaVersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	stale := `{"kind":"products","schema_version":0,"updated_at":"2025-01-01T00:00:00Z","payload":[{"id":"p1"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "products.json"), []byte(stale), 0644))

	b := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b.Detach()

	assert.Nil(t, b.Load(types.DocProducts))
}

func TestBackend_MalformedFileIsSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "products.json"), []byte("{not json"), 0644))
	good := `{"kind":"wallets","schema_version":1,"updated_at":"2026-01-01T00:00:00Z","payload":[{"id":"w","name":"Solo"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "wallets.json"), []byte(good), 0644))

	b := attachBackend(t, tmpDir, types.SQLiteConfig{})
	defer b.Detach()

	assert.Nil(t, b.Load(types.DocProducts))
	assert.JSONEq(t, `[{"id":"w","name":"Solo"}]`, string(b.Load(types.DocWallets)))
}

func TestBackend_OnCloseDefersFiles(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{SyncStrategy: types.SyncOnClose})

	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, types.DefaultWallets()))
	assert.NotNil(t, b.Load(types.DocWallets), "visible through SQLite before flush")
	assert.Equal(t, 1, b.PendingWrites())

	_, err := os.Stat(filepath.Join(tmpDir, "wallets.json"))
	assert.True(t, os.IsNotExist(err), "file written before Detach")

	require.NoError(t, b.Detach())
	_, err = os.Stat(filepath.Join(tmpDir, "wallets.json"))
	assert.NoError(t, err)
}

func TestBackend_BatchFlushesAtSize(t *testing.T) {
	tmpDir := t.TempDir()
	b := attachBackend(t, tmpDir, types.SQLiteConfig{
		SyncStrategy:  types.SyncBatch,
		BatchSize:     2,
		BatchInterval: 3600,
	})
	defer b.Detach()

	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, types.DefaultWallets()))
	assert.Equal(t, 1, b.PendingWrites())

	renamed := types.DefaultWallets()
	renamed[0].Name = "Alice"
	require.Equal(t, types.SaveStored, b.Save(types.DocWallets, renamed))
	assert.Equal(t, 0, b.PendingWrites())

	data, err := os.ReadFile(filepath.Join(tmpDir, "wallets.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alice")
}
