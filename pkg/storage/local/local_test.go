package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fabrichouse/inventory-backend/pkg/config"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(config.StorageConfig{
		LocalDir:      t.TempDir(),
		PublicBaseURL: "/uploads",
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutFetchDeleteRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	url, err := store.Put(ctx, []byte("blob-bytes"), "stock", "fh001.png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/uploads/stock/fh001.png" {
		t.Fatalf("unexpected url: %s", url)
	}

	data, err := store.Fetch(ctx, url)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "blob-bytes" {
		t.Fatalf("unexpected blob content: %q", data)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Fetch(ctx, url); err == nil {
		t.Fatal("expected fetch after delete to fail")
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store := newStore(t)
	if err := store.Delete(context.Background(), "/uploads/stock/gone.png"); err != nil {
		t.Fatalf("deleting a missing blob should not error: %v", err)
	}
}

func TestResolveRejectsForeignURL(t *testing.T) {
	store := newStore(t)
	if _, err := store.Fetch(context.Background(), "https://elsewhere/x.png"); err == nil {
		t.Fatal("expected error for foreign url")
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := newStore(t)

	outside := filepath.Join(store.baseDir, "..", "secret.txt")
	if err := os.WriteFile(outside, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	defer os.Remove(outside)

	if _, err := store.Fetch(context.Background(), "/uploads/../secret.txt"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}
