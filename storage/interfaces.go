package storage

// BlobStore is the raw persistence medium: a synchronous, string-keyed,
// size-limited key/value store. Implementations must be safe for
// concurrent use.
type BlobStore interface {
	// Get returns the value held under key, and whether the key exists.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any previous value in full.
	// Returns ErrCapacityExceeded (possibly wrapped) when the medium
	// rejects the write for size; the previous value remains intact.
	// Any other error means the medium is unavailable.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string)

	// Clear removes every key in the store.
	Clear()

	// Len returns the number of keys currently held.
	Len() int

	// Key returns the i-th key in the store's iteration order, or ""
	// when i is out of range.
	Key(i int) string

	// Close releases the backend and its resources.
	Close() error
}

// Event is the medium's native change signal: the raw key with its old and
// new values. It carries no structured diff; observers must re-read and
// re-derive what changed. Backends that cannot recover the old value leave
// OldValue empty.
type Event struct {
	Key      string
	OldValue string
	NewValue string
}

// Watcher is implemented by backends that can surface changes made by
// other execution contexts sharing the same medium. The channel is closed
// when the backend closes.
type Watcher interface {
	Watch() <-chan Event
}
