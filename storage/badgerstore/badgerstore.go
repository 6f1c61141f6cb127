// Package badgerstore provides a BlobStore backed by BadgerDB. The
// database's own subscription stream serves as the medium's native change
// signal for peers sharing this process's DB handle.
package badgerstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/dgraph-io/badger/v4/pb"

	"github.com/poiesic/dossier/storage"
)

const eventBuffer = 16

// Store is a BadgerDB-backed, capacity-capped key/value store.
type Store struct {
	db       *badger.DB
	capacity int64
	logger   *slog.Logger

	mu        sync.Mutex
	watchers  []chan storage.Event
	subCancel context.CancelFunc
	subDone   chan struct{}
	closed    bool
}

var _ storage.BlobStore = (*Store)(nil)
var _ storage.Watcher = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the capacity cap in bytes.
// Default is storage.DefaultCapacityBytes.
func WithCapacity(capacity int64) Option {
	return func(s *Store) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// Open opens a BadgerDB database at the specified path, creating the
// directory if it doesn't exist. An empty path opens an in-memory
// database, which tests use.
func Open(filePath string, opts ...Option) (*Store, error) {
	var badgerOpts badger.Options

	if filePath == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		badgerOpts = badger.DefaultOptions(filePath)
	}

	badgerOpts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	badgerOpts.Compression = options.None

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:       db,
		capacity: storage.DefaultCapacityBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the value held under key.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores value under key, rejecting the write whole when it would push
// tracked usage past the capacity cap.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	old, exists := s.Get(key)
	used := s.used()
	newUsed := used + int64(len(value)) - int64(len(old))
	if !exists {
		newUsed += int64(len(key))
	}
	if newUsed > s.capacity {
		return fmt.Errorf("%w: %d of %d bytes in use", storage.ErrCapacityExceeded, used, s.capacity)
	}

	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(key), []byte(value))
	})
}

// Delete removes key.
func (s *Store) Delete(key string) {
	err := s.db.Update(func(tx *badger.Txn) error {
		return tx.Delete([]byte(key))
	})
	if err != nil {
		s.logger.Warn("failed to delete key", "key", key, "err", err)
	}
}

// Clear removes every key.
func (s *Store) Clear() {
	if err := s.db.DropAll(); err != nil {
		s.logger.Warn("failed to clear store", "err", err)
	}
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	return len(s.keys())
}

// Key returns the i-th key in lexical order.
func (s *Store) Key(i int) string {
	keys := s.keys()
	if i < 0 || i >= len(keys) {
		return ""
	}
	return keys[i]
}

// Watch subscribes (once) to the database's change stream and returns a
// channel of events. Badger reports only the new value for each key.
func (s *Store) Watch() <-chan storage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan storage.Event, eventBuffer)
	s.watchers = append(s.watchers, ch)

	if s.subCancel == nil && !s.closed {
		ctx, cancel := context.WithCancel(context.Background())
		s.subCancel = cancel
		s.subDone = make(chan struct{})
		go s.subscribe(ctx)
	}
	return ch
}

// Close stops the subscription and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.subCancel
	done := s.subDone
	for _, ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.db.Close()
}

func (s *Store) subscribe(ctx context.Context) {
	defer close(s.subDone)

	err := s.db.Subscribe(ctx, func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			s.emit(storage.Event{Key: string(kv.Key), NewValue: string(kv.Value)})
		}
		return nil
	}, []pb.Match{{Prefix: nil}})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("change subscription ended", "err", err)
	}
}

func (s *Store) emit(ev storage.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Store) keys() []string {
	var keys []string
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, string(iter.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil
	}
	slices.Sort(keys)
	return keys
}

// used sums key and value sizes across the whole store.
func (s *Store) used() int64 {
	var used int64
	err := s.db.View(func(tx *badger.Txn) error {
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			used += int64(len(item.Key()))
			err := item.Value(func(val []byte) error {
				used += int64(len(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0
	}
	return used
}
