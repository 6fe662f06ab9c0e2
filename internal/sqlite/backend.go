// Package sqlite implements the local document store. SQLite is the query
// engine; one JSON file per document kind is the source of truth and is
// loaded into SQLite on Attach.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// DatabaseFile is the SQLite file created inside DataDir.
const DatabaseFile = "tally.db"

// Backend implements types.LocalStore.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
	now      func() time.Time

	syncStrategy  string         // effective sync strategy: immediate, on_close, batch
	batchSize     int            // number of saves before a batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // document files waiting to be written
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite is a deferred document file write, used by the on_close and
// batch strategies. Writes run in queue order so the last save wins.
type pendingWrite struct {
	kind    types.DocKind
	persist func() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for discarded writes and flush failures.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the clock used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach creates DataDir if needed, rebuilds the SQLite database and loads
// the document files into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	// The database is a cache of the document files; start fresh.
	dbPath := filepath.Join(dataDir, DatabaseFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := loadDocumentFiles(db, dataDir, b.logger); err != nil {
		db.Close()
		return fmt.Errorf("load documents: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config

	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pendingWrites = nil

	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	return nil
}

// Detach flushes pending document files and closes the SQLite connection.
// After Detach, Load returns nil and Save discards. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	flushErr := b.flushPendingWritesLocked()

	if b.db != nil {
		if err := b.db.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
		b.db = nil
	}
	b.attached = false

	if flushErr != nil {
		return fmt.Errorf("detach: %w", flushErr)
	}
	return nil
}

// Load returns the stored payload for kind, or nil when it is missing,
// stamped with another schema version, or unreadable.
func (b *Backend) Load(kind types.DocKind) json.RawMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached || !kind.Valid() {
		return nil
	}

	var (
		version   int
		payload   string
		updatedAt string
	)
	err := b.db.QueryRow(selectDocument, string(kind)).Scan(&version, &payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		b.logger.Warn("reading document failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	if version != types.SchemaVersion {
		b.logger.Debug("ignoring document with foreign schema version",
			zap.String("kind", string(kind)), zap.Int("version", version))
		return nil
	}
	if !json.Valid([]byte(payload)) {
		return nil
	}
	return json.RawMessage(payload)
}

// Save sanitizes doc and stores it under kind. Returns SaveDiscarded, with
// the previous value retained, when the backend is detached, kind is
// unknown, the sanitized value is not storable or the write fails.
func (b *Backend) Save(kind types.DocKind, doc any) (result types.SaveResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("save panicked", zap.String("kind", string(kind)), zap.Any("panic", r))
			result = types.SaveDiscarded
		}
	}()

	if !b.attached || !kind.Valid() {
		return types.SaveDiscarded
	}

	payload, ok := sanitize(doc)
	if !ok {
		b.logger.Debug("discarding unrepresentable document", zap.String("kind", string(kind)))
		return types.SaveDiscarded
	}

	record := newDocumentJSON(kind, payload, b.now())
	path := filepath.Join(b.config.DataDir, documentFileName(kind))
	persist := func() error {
		return writeDocumentFile(path, record)
	}

	tx, err := b.db.Begin()
	if err != nil {
		b.logger.Warn("beginning save failed", zap.String("kind", string(kind)), zap.Error(err))
		return types.SaveDiscarded
	}
	defer tx.Rollback()

	if _, err := tx.Exec(upsertDocument, string(kind), record.SchemaVersion, string(payload), record.UpdatedAt); err != nil {
		b.logger.Warn("storing document failed", zap.String("kind", string(kind)), zap.Error(err))
		return types.SaveDiscarded
	}

	if b.shouldPersistImmediately() {
		if err := persist(); err != nil {
			b.logger.Warn("writing document file failed", zap.String("kind", string(kind)), zap.Error(err))
			return types.SaveDiscarded
		}
	}

	if err := tx.Commit(); err != nil {
		b.logger.Warn("committing document failed", zap.String("kind", string(kind)), zap.Error(err))
		return types.SaveDiscarded
	}

	if !b.shouldPersistImmediately() {
		b.queueWrite(kind, persist)
	}
	return types.SaveStored
}

// shouldPersistImmediately returns true if document files are written on
// every Save.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// queueWrite adds a file write to the pending queue. The caller must hold
// b.mu.
func (b *Backend) queueWrite(kind types.DocKind, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		kind:    kind,
		persist: persist,
	})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		if err := b.flushPendingWritesBatchLocked(); err != nil {
			b.logger.Warn("batch flush failed", zap.Error(err))
		}
	}
}

// flushPendingWritesLocked writes all pending document files.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes pending writes in order. A failed
// write stays queued with everything after it.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	for i, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			b.pendingWrites = b.pendingWrites[i:]
			return fmt.Errorf("flush %s: %w", pw.kind, err)
		}
	}
	b.pendingWrites = nil
	return nil
}

// startBatchTimer starts the batch interval timer for periodic flushes.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		if err := b.flushPendingWritesLocked(); err != nil {
			b.logger.Warn("interval flush failed", zap.Error(err))
		}

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}

// PendingWrites reports how many document files are waiting to be written.
func (b *Backend) PendingWrites() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

var _ types.LocalStore = (*Backend)(nil)
