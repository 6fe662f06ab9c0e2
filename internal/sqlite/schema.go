package sqlite

// Schema DDL for the document store. The database is rebuilt from the
// document files on every Attach, so there are no migrations.
const (
	createDocuments = `CREATE TABLE documents (
    kind TEXT PRIMARY KEY,
    schema_version INTEGER NOT NULL,
    payload TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	upsertDocument = `INSERT INTO documents (kind, schema_version, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(kind) DO UPDATE SET
    schema_version = excluded.schema_version,
    payload = excluded.payload,
    updated_at = excluded.updated_at;`

	selectDocument = `SELECT schema_version, payload, updated_at FROM documents WHERE kind = ?`
)

// schemaStatements is executed in order on Attach.
var schemaStatements = []string{
	createDocuments,
}
