package storage

import (
	"errors"
	"fmt"
	"log/slog"
)

// probeKey is the disposable key used by availability probes.
const probeKey = "dossier.probe"

// Adapter provides guarded access to a BlobStore. It classifies write
// failures into the storage error taxonomy and offers an availability
// probe so callers can short-circuit with a clear failure instead of
// surfacing a backend error from deep inside a mutation.
type Adapter struct {
	store  BlobStore
	logger *slog.Logger
}

// NewAdapter wraps a BlobStore.
func NewAdapter(store BlobStore) *Adapter {
	return &Adapter{
		store:  store,
		logger: slog.Default(),
	}
}

// Store returns the underlying BlobStore.
func (a *Adapter) Store() BlobStore {
	return a.store
}

// Read returns the text held under key, and whether the key exists.
func (a *Adapter) Read(key string) (string, bool) {
	return a.store.Get(key)
}

// Write stores value under key. A rejection for size is returned as
// ErrCapacityExceeded; every other backend failure is folded into
// ErrUnavailable. The previous value survives any failed write.
func (a *Adapter) Write(key, value string) error {
	err := a.store.Set(key, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCapacityExceeded) {
		a.logger.Warn("write rejected for size", "key", key, "bytes", len(value))
		return err
	}
	a.logger.Error("storage medium write failed", "key", key, "err", err)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Remove deletes key from the store.
func (a *Adapter) Remove(key string) {
	a.store.Delete(key)
}

// Exists reports whether key is present.
func (a *Adapter) Exists(key string) bool {
	_, ok := a.store.Get(key)
	return ok
}

// SizeOf returns the bytes occupied by key and its value, or 0 when the
// key is absent.
func (a *Adapter) SizeOf(key string) int64 {
	value, ok := a.store.Get(key)
	if !ok {
		return 0
	}
	return int64(len(key) + len(value))
}

// Available probes the medium with a disposable write/remove pair.
func (a *Adapter) Available() bool {
	if err := a.store.Set(probeKey, "probe"); err != nil {
		return false
	}
	a.store.Delete(probeKey)
	return true
}
