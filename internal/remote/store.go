// Package remote talks to the account document store. Each table
// (event_ledger, wallets, products) holds one row per user: the user id, an
// opaque JSON payload and the time it was last written.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// Store is a remote document store keyed by table and user id.
type Store interface {
	// Upsert replaces the user's row in table with payload.
	Upsert(ctx context.Context, table types.DocKind, userID string, payload json.RawMessage) error

	// FetchOne returns the payload of the user's row in table, or
	// ErrNotFound when the row does not exist.
	FetchOne(ctx context.Context, table types.DocKind, userID string) (json.RawMessage, error)

	// Close releases connections held by the store.
	Close() error
}

// Row is the stored shape of one document.
type Row struct {
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var (
	ErrNotFound      = errors.New("remote document not found")
	ErrUnknownTable  = errors.New("unknown remote table")
	ErrEmptyUser     = errors.New("user id is required")
	ErrEmptyPayload  = errors.New("payload is empty")
	ErrUnknownDriver = errors.New("unknown remote driver")
)

// Drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config selects and configures a driver.
type Config struct {
	Driver string

	// rest
	URL        string
	APIKey     string
	Timeout    time.Duration
	RetryCount int

	// postgres
	DSN string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// Open builds the store named by cfg.Driver. The none driver returns a nil
// Store: the caller runs without a remote. token supplies the session access
// token for drivers that authenticate per request.
func Open(cfg Config, token func() string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverREST:
		store, err := NewRESTStore(RESTConfig{
			BaseURL:    cfg.URL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
			Token:      token,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := OpenPostgres(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverRedis:
		store, err := NewRedisStore(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func checkArgs(table types.DocKind, userID string) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUser
	}
	return nil
}

func checkPayload(payload json.RawMessage) error {
	if len(payload) == 0 || !json.Valid(payload) {
		return ErrEmptyPayload
	}
	return nil
}
