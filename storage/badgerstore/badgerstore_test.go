package badgerstore

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/dossier/storage"
)

func newMemoryStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := Open("", opts...)
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBasicOperations(t *testing.T) {
	store := newMemoryStore(t)

	if err := store.Set("a", "1"); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	if err := store.Set("b", "2"); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}

	value, ok := store.Get("a")
	if !ok || value != "1" {
		t.Fatalf("Expected a=1, got %q (ok=%v)", value, ok)
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatal("Expected missing key to be absent")
	}

	if store.Len() != 2 {
		t.Fatalf("Expected 2 keys, got %d", store.Len())
	}
	if store.Key(0) != "a" || store.Key(1) != "b" {
		t.Fatalf("Unexpected key order: %q, %q", store.Key(0), store.Key(1))
	}

	store.Delete("a")
	if _, ok := store.Get("a"); ok {
		t.Fatal("Expected a to be deleted")
	}
}

func TestCapacityRejection(t *testing.T) {
	store := newMemoryStore(t, WithCapacity(24))

	if err := store.Set("k", "0123456789"); err != nil {
		t.Fatalf("Failed to set within capacity: %v", err)
	}

	err := store.Set("k", strings.Repeat("x", 64))
	if !errors.Is(err, storage.ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}

	value, ok := store.Get("k")
	if !ok || value != "0123456789" {
		t.Fatalf("Expected previous value to survive, got %q (ok=%v)", value, ok)
	}
}

func TestWatchSeesWrites(t *testing.T) {
	store := newMemoryStore(t)
	events := store.Watch()

	if err := store.Set("dossier.store", "v1"); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("Watch channel closed unexpectedly")
			}
			if ev.Key == "dossier.store" && ev.NewValue == "v1" {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for change event")
		}
	}
}
