package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/pkg/types"
)

// loadDocumentFiles reads every <kind>.json in dataDir into the documents
// table inside a single transaction. Missing files are skipped; malformed
// files are logged and skipped so one bad file never blocks the others.
func loadDocumentFiles(db *sql.DB, dataDir string, logger *zap.Logger) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertDocument)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, kind := range types.DocKinds {
		path := filepath.Join(dataDir, documentFileName(kind))
		doc, err := readDocumentFile(path)
		if err != nil {
			logger.Warn("skipping unreadable document file",
				zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		if doc == nil {
			continue
		}
		if doc.Kind != "" && doc.Kind != string(kind) {
			logger.Warn("skipping document file with mismatched kind",
				zap.String("kind", string(kind)), zap.String("found", doc.Kind))
			continue
		}
		if _, err := stmt.Exec(string(kind), doc.SchemaVersion, string(doc.Payload), doc.UpdatedAt); err != nil {
			return fmt.Errorf("loading %s: %w", kind, err)
		}
	}

	return tx.Commit()
}
