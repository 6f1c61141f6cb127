package dossier

import (
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Origin tells a listener whether a change came from this store handle or
// from another execution context sharing the medium.
type Origin int

const (
	// OriginLocal is a mutation made through this store handle.
	OriginLocal Origin = iota
	// OriginRemote is a change observed on the medium from elsewhere.
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "remote"
}

// Change describes a store change. It carries no structured diff;
// listeners re-read the store and re-derive what changed.
type Change struct {
	Origin Origin
	Key    string
}

// Notifier fans store changes out to subscribed callbacks. Local changes
// are dispatched synchronously after the mutating call persists; remote
// changes are dispatched on a bounded worker pool with no ordering
// guarantee relative to the originating context.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
	pool   *ants.Pool
	logger *slog.Logger
}

func newNotifier(poolSize int, logger *slog.Logger) (*Notifier, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		subs:   make(map[int]func(Change)),
		pool:   pool,
		logger: logger,
	}, nil
}

// Subscribe registers a callback and returns its unsubscribe function.
func (n *Notifier) Subscribe(fn func(Change)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// notifyLocal invokes every callback synchronously in the caller's
// goroutine.
func (n *Notifier) notifyLocal(key string) {
	for _, fn := range n.snapshot() {
		fn(Change{Origin: OriginLocal, Key: key})
	}
}

// notifyRemote dispatches every callback on the worker pool.
func (n *Notifier) notifyRemote(key string) {
	for _, fn := range n.snapshot() {
		if err := n.pool.Submit(func() {
			fn(Change{Origin: OriginRemote, Key: key})
		}); err != nil {
			n.logger.Warn("dropped remote change notification", "key", key, "err", err)
		}
	}
}

func (n *Notifier) snapshot() []func(Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	return fns
}

// Release shuts the worker pool down. Pending remote dispatches may be
// dropped.
func (n *Notifier) Release() {
	n.pool.Release()
}
