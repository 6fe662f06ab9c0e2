package sqlite

import (
	"encoding/json"
	"time"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// documentJSON is the on-disk shape of <kind>.json.
type documentJSON struct {
	Kind          string          `json:"kind"`
	SchemaVersion int             `json:"schema_version"`
	UpdatedAt     string          `json:"updated_at"`
	Payload       json.RawMessage `json:"payload"`
}

// newDocumentJSON stamps payload with the current schema version.
func newDocumentJSON(kind types.DocKind, payload json.RawMessage, now time.Time) documentJSON {
	return documentJSON{
		Kind:          string(kind),
		SchemaVersion: types.SchemaVersion,
		UpdatedAt:     now.UTC().Format(time.RFC3339Nano),
		Payload:       payload,
	}
}

// documentFileName returns the file name holding documents of kind.
func documentFileName(kind types.DocKind) string {
	return string(kind) + ".json"
}
