package prefs

// Schema defines the SQLite schema for the persisted scalar store. Every
// value is a single scalar addressed by (namespace, key); the store is never
// iterated by the state machine, only read and written key by key.
const Schema = `
CREATE TABLE IF NOT EXISTS prefs (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// Namespace names. NamespacePowerwash survives a factory reset; everything
// else lives in NamespaceMain.
const (
	NamespaceMain      = "main"
	NamespacePowerwash = "powerwash"
)

// SchemaVersion is written under NamespaceMain at open. Opening a store
// written by a newer binary fails instead of misreading its keys.
const SchemaVersion = 1

const schemaVersionKey = "schema-version"
