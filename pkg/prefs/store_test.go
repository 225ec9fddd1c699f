package prefs

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestInt64RoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	main := store.Namespace(NamespaceMain)

	if _, ok, err := main.Int64("missing"); err != nil || ok {
		t.Fatalf("Int64(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := main.SetInt64("counter", 42); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	v, ok, err := main.Int64("counter")
	if err != nil || !ok || v != 42 {
		t.Fatalf("Int64(counter) = %d, ok=%v, err=%v, want 42", v, ok, err)
	}

	// Upsert overwrites.
	if err := main.SetInt64("counter", -7); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if v, _, _ := main.Int64("counter"); v != -7 {
		t.Fatalf("Int64(counter) = %d after overwrite, want -7", v)
	}
}

func TestStringRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	main := store.Namespace(NamespaceMain)

	if err := main.SetString("signature", "NumURLs = 2\n"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	v, ok, err := main.String("signature")
	if err != nil || !ok || v != "NumURLs = 2\n" {
		t.Fatalf("String(signature) = %q, ok=%v, err=%v", v, ok, err)
	}
}

func TestDeleteAndExists(t *testing.T) {
	store, _ := openTestStore(t)
	main := store.Namespace(NamespaceMain)

	if err := main.SetInt64("counter", 1); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if exists, err := main.Exists("counter"); err != nil || !exists {
		t.Fatalf("Exists(counter) = %v, %v, want true", exists, err)
	}

	if err := main.Delete("counter"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if exists, _ := main.Exists("counter"); exists {
		t.Fatal("key still exists after Delete")
	}

	// Deleting an absent key is not an error.
	if err := main.Delete("counter"); err != nil {
		t.Fatalf("Delete(absent): %v", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	store, _ := openTestStore(t)
	main := store.Namespace(NamespaceMain)
	powerwash := store.Namespace(NamespacePowerwash)

	if err := main.SetInt64("key", 1); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if err := powerwash.SetInt64("key", 2); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}

	if v, _, _ := main.Int64("key"); v != 1 {
		t.Errorf("main key = %d, want 1", v)
	}
	if v, _, _ := powerwash.Int64("key"); v != 2 {
		t.Errorf("powerwash key = %d, want 2", v)
	}
}

func TestWipeMainPreservesPowerwash(t *testing.T) {
	store, path := openTestStore(t)
	main := store.Namespace(NamespaceMain)
	powerwash := store.Namespace(NamespacePowerwash)

	if err := main.SetInt64("counter", 5); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if err := powerwash.SetString("rollback-version", "13729.0.0"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := store.Wipe(NamespaceMain); err != nil {
		t.Fatalf("Wipe: %v", err)
	}

	if exists, _ := main.Exists("counter"); exists {
		t.Error("main key survived the wipe")
	}
	if v, ok, _ := powerwash.String("rollback-version"); !ok || v != "13729.0.0" {
		t.Errorf("powerwash key = %q, ok=%v, want it to survive the wipe", v, ok)
	}

	// The wiped store must stay openable: the schema version is rewritten.
	store.Close()
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen after wipe: %v", err)
	}
	reopened.Close()
}

func TestValuesSurviveReopen(t *testing.T) {
	store, path := openTestStore(t)
	if err := store.Namespace(NamespaceMain).SetInt64("counter", 9); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if v, ok, _ := reopened.Namespace(NamespaceMain).Int64("counter"); !ok || v != 9 {
		t.Errorf("counter = %d, ok=%v after reopen, want 9", v, ok)
	}
}

func TestNewerSchemaVersionRejected(t *testing.T) {
	store, path := openTestStore(t)
	if err := store.Namespace(NamespaceMain).SetInt64(schemaVersionKey, SchemaVersion+1); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	store.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected Open to reject a store written by a newer version")
	}
}
