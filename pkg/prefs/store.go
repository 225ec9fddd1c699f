// Package prefs implements the persisted scalar store backing the update
// attempt state machine: durable key/value scalars split into a normal and a
// powerwash-safe namespace. Each write is a single synchronous statement, so
// a crash between two writes can leave some fields updated and others stale;
// callers are expected to tolerate that on load.
package prefs

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fleetota/fleetota/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed scalar store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and verifies its schema
// version.
func Open(path string) (*Store, error) {
	slog.Info("prefs_open", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		slog.Error("prefs_open_failed", "path", path, "error", err)
		return nil, errors.Wrap(err, "failed to open prefs store")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("prefs_schema_failed", "path", path, "error", err)
		return nil, errors.Wrap(err, "failed to create prefs schema")
	}

	s := &Store{db: db}
	if err := s.checkSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("prefs_ready", "path", path)
	return s, nil
}

func (s *Store) checkSchemaVersion() error {
	main := s.Namespace(NamespaceMain)
	v, ok, err := main.Int64(schemaVersionKey)
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	if ok && v > SchemaVersion {
		return fmt.Errorf("prefs schema version %d is newer than supported version %d", v, SchemaVersion)
	}
	if !ok || v < SchemaVersion {
		if err := main.SetInt64(schemaVersionKey, SchemaVersion); err != nil {
			return errors.Wrap(err, "failed to write schema version")
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns a view of the store scoped to one namespace.
func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

// Wipe deletes every key in the given namespace. Wiping NamespaceMain
// rewrites the schema version afterwards so the store stays openable.
func (s *Store) Wipe(namespace string) error {
	slog.Info("prefs_wipe", "namespace", namespace)
	if _, err := s.db.Exec(`DELETE FROM prefs WHERE namespace = ?`, namespace); err != nil {
		return errors.Wrapf(err, "failed to wipe namespace %q", namespace)
	}
	if namespace == NamespaceMain {
		return s.Namespace(NamespaceMain).SetInt64(schemaVersionKey, SchemaVersion)
	}
	return nil
}

// Namespace is a scoped view of a Store. All accessors address scalars by
// key within the namespace.
type Namespace struct {
	store *Store
	name  string
}

func (n *Namespace) set(key, value string) error {
	query := `
		INSERT INTO prefs (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value
	`
	if _, err := n.store.db.Exec(query, n.name, key, value); err != nil {
		return errors.Wrapf(err, "failed to set %s/%s", n.name, key)
	}
	return nil
}

func (n *Namespace) get(key string) (string, bool, error) {
	var value string
	err := n.store.db.QueryRow(
		`SELECT value FROM prefs WHERE namespace = ? AND key = ?`,
		n.name, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get %s/%s", n.name, key)
	}
	return value, true, nil
}

// SetInt64 stores an int64 scalar.
func (n *Namespace) SetInt64(key string, value int64) error {
	return n.set(key, strconv.FormatInt(value, 10))
}

// Int64 reads an int64 scalar. ok is false when the key is absent.
func (n *Namespace) Int64(key string) (value int64, ok bool, err error) {
	raw, ok, err := n.get(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "malformed int64 at %s/%s", n.name, key)
	}
	return v, true, nil
}

// SetString stores a string scalar.
func (n *Namespace) SetString(key, value string) error {
	return n.set(key, value)
}

// String reads a string scalar. ok is false when the key is absent.
func (n *Namespace) String(key string) (value string, ok bool, err error) {
	return n.get(key)
}

// Delete removes a key. Deleting an absent key is not an error.
func (n *Namespace) Delete(key string) error {
	if _, err := n.store.db.Exec(
		`DELETE FROM prefs WHERE namespace = ? AND key = ?`, n.name, key); err != nil {
		return errors.Wrapf(err, "failed to delete %s/%s", n.name, key)
	}
	return nil
}

// Exists reports whether a key is present.
func (n *Namespace) Exists(key string) (bool, error) {
	_, ok, err := n.get(key)
	return ok, err
}
