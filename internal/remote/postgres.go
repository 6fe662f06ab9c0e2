package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// PostgresStore keeps each table as user_id / data (jsonb) / updated_at.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenPostgres connects with lib/pq. The connection is established lazily.
func OpenPostgres(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return NewPostgresStore(db, logger), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		db:     db,
		logger: logger.Named("remote.postgres"),
		now:    time.Now,
	}
}

func createTableSQL(table types.DocKind) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    user_id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(string(table)))
}

func upsertSQL(table types.DocKind) string {
	return fmt.Sprintf(`INSERT INTO %s (user_id, data, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(string(table)))
}

func selectSQL(table types.DocKind) string {
	return fmt.Sprintf(`SELECT data FROM %s WHERE user_id = $1`, pq.QuoteIdentifier(string(table)))
}

// EnsureSchema creates the three tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, table := range types.DocKinds {
		if _, err := s.db.ExecContext(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
	}
	return nil
}

// Upsert inserts or replaces the user's row.
func (s *PostgresStore) Upsert(ctx context.Context, table types.DocKind, userID string, payload json.RawMessage) error {
	if err := checkArgs(table, userID); err != nil {
		return err
	}
	if err := checkPayload(payload); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL(table), userID, string(payload), s.now().UTC()); err != nil {
		return fmt.Errorf("remote upsert %s: %w", table, err)
	}
	return nil
}

// FetchOne selects the user's payload.
func (s *PostgresStore) FetchOne(ctx context.Context, table types.DocKind, userID string) (json.RawMessage, error) {
	if err := checkArgs(table, userID); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, selectSQL(table), userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remote fetch %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
