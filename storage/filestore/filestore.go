// Package filestore provides a BlobStore backed by a directory, one file
// per key. Foreign-process writes to the same directory surface as change
// events through an fsnotify watch on the root.
package filestore

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/poiesic/dossier/storage"
)

const (
	blobExt     = ".blob"
	eventBuffer = 16
)

// Store is a directory-backed, capacity-capped key/value store.
type Store struct {
	root     string
	capacity int64
	logger   *slog.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watchers []chan storage.Event
	closed   bool
}

var _ storage.BlobStore = (*Store)(nil)
var _ storage.Watcher = (*Store)(nil)

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

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens a store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Store{
		root:     dir,
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
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set stores value under key. The file is written to a temporary name and
// renamed into place, so a failed write never leaves a partial value. The
// write is rejected whole when it would push directory usage past the cap.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	old, _ := s.Get(key)
	used := s.usedLocked()
	newUsed := used + int64(len(key)) + int64(len(value)) - int64(len(old))
	if old != "" || s.exists(key) {
		newUsed -= int64(len(key))
	}
	if newUsed > s.capacity {
		return fmt.Errorf("%w: %d of %d bytes in use", storage.ErrCapacityExceeded, used, s.capacity)
	}

	target := s.pathFor(key)
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) {
	if err := os.Remove(s.pathFor(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete blob file", "key", key, "err", err)
	}
}

// Clear removes every key.
func (s *Store) Clear() {
	for _, key := range s.listKeys() {
		s.Delete(key)
	}
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	return len(s.listKeys())
}

// Key returns the i-th key in lexical order.
func (s *Store) Key(i int) string {
	keys := s.listKeys()
	if i < 0 || i >= len(keys) {
		return ""
	}
	return keys[i]
}

// Watch starts (once) an fsnotify watch on the root directory and returns
// a channel of change events. Old values cannot be recovered from the
// filesystem, so events carry only key and new value.
func (s *Store) Watch() <-chan storage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan storage.Event, eventBuffer)
	s.watchers = append(s.watchers, ch)

	if s.watcher == nil && !s.closed {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.logger.Error("failed to create directory watcher", "dir", s.root, "err", err)
			return ch
		}
		if err := w.Add(s.root); err != nil {
			s.logger.Error("failed to watch directory", "dir", s.root, "err", err)
			w.Close()
			return ch
		}
		s.watcher = w
		go s.watchLoop(w)
	}
	return ch
}

// Close stops the watcher and closes every watch channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
		s.watcher = nil
	} else {
		// No watch loop to close the channels for us.
		for _, ch := range s.watchers {
			close(ch)
		}
		s.watchers = nil
	}
	return err
}

func (s *Store) watchLoop(w *fsnotify.Watcher) {
	defer func() {
		s.mu.Lock()
		for _, ch := range s.watchers {
			close(ch)
		}
		s.watchers = nil
		s.mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			key, ok := keyFor(filepath.Base(event.Name))
			if !ok {
				continue
			}
			value, _ := s.Get(key)
			s.emit(storage.Event{Key: key, NewValue: value})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("directory watch error", "dir", s.root, "err", err)
		}
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

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.root, url.QueryEscape(key)+blobExt)
}

func (s *Store) exists(key string) bool {
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

func (s *Store) listKeys() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := keyFor(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (s *Store) usedLocked() int64 {
	var used int64
	for _, key := range s.listKeys() {
		value, ok := s.Get(key)
		if !ok {
			continue
		}
		used += int64(len(key) + len(value))
	}
	return used
}

func keyFor(filename string) (string, bool) {
	name, ok := strings.CutSuffix(filename, blobExt)
	if !ok {
		return "", false
	}
	key, err := url.QueryUnescape(name)
	if err != nil {
		return "", false
	}
	return key, true
}
