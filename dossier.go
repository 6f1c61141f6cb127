// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package dossier

import (
	"log/slog"
	"runtime"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
)

// Store is the explicit handle to one logical record store: the aggregate
// repository, quota estimator, and change notifier over a single blob
// medium. Lifecycle is under caller control; there is no ambient global.
type Store struct {
	blobStore storage.BlobStore
	adapter   *storage.Adapter
	repo      *Repository
	estimator *storage.Estimator
	notifier  *Notifier
	logger    *slog.Logger
	watchDone chan struct{}
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	key      string
	capacity int64
	poolSize int
	logger   *slog.Logger
}

// WithKey sets the blob-store key holding the repository.
// Default is DefaultKey.
func WithKey(key string) StoreOption {
	return func(o *storeOptions) {
		if key != "" {
			o.key = key
		}
	}
}

// WithCapacity sets the estimator's capacity ceiling in bytes.
// Default is storage.DefaultCapacityBytes.
func WithCapacity(capacity int64) StoreOption {
	return func(o *storeOptions) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithPoolSize sets the worker pool size for dispatching remote change
// notifications. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) StoreOption {
	return func(o *storeOptions) {
		if size >= 1 {
			o.poolSize = size
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a store over the given medium. If the medium implements
// storage.Watcher, changes made by other execution contexts are surfaced
// to subscribers as remote change notifications.
func New(blobStore storage.BlobStore, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		key:      DefaultKey,
		capacity: storage.DefaultCapacityBytes,
		poolSize: max(runtime.NumCPU()/2, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	notifier, err := newNotifier(options.poolSize, options.logger)
	if err != nil {
		return nil, err
	}

	adapter := storage.NewAdapter(blobStore)
	s := &Store{
		blobStore: blobStore,
		adapter:   adapter,
		repo:      newRepository(adapter, options.key, notifier, options.logger),
		estimator: storage.NewEstimator(blobStore, options.capacity),
		notifier:  notifier,
		logger:    options.logger,
	}

	if watcher, ok := blobStore.(storage.Watcher); ok {
		s.watchDone = make(chan struct{})
		go s.watch(watcher.Watch(), options.key)
	}
	return s, nil
}

// watch forwards foreign-context changes of the repository key to
// subscribers. Events for other keys in the shared medium are not ours.
func (s *Store) watch(events <-chan storage.Event, key string) {
	defer close(s.watchDone)
	for event := range events {
		if event.Key != key {
			continue
		}
		s.notifier.notifyRemote(event.Key)
	}
}

// Close releases the notifier pool and closes the underlying medium.
func (s *Store) Close() error {
	err := s.blobStore.Close()
	if s.watchDone != nil {
		<-s.watchDone
	}
	s.notifier.Release()
	if err != nil {
		s.logger.Error("error closing storage medium", "err", err)
	}
	return err
}

// Initialize creates an empty repository if none exists. Idempotent.
func (s *Store) Initialize() error {
	return s.repo.Initialize()
}

// CreateSubject creates a subject, or returns the existing one unchanged.
func (s *Store) CreateSubject(subjectID string) (*core.Subject, error) {
	return s.repo.CreateSubject(subjectID)
}

// GetSubject returns a subject, or nil when absent.
func (s *Store) GetSubject(subjectID string) (*core.Subject, error) {
	return s.repo.GetSubject(subjectID)
}

// ListSubjects returns every subject, sorted by ID.
func (s *Store) ListSubjects() ([]*core.Subject, error) {
	return s.repo.ListSubjects()
}

// AddRecords appends a batch of records to a subject in one atomic write.
func (s *Store) AddRecords(subjectID string, records []*core.Record) error {
	return s.repo.AddRecords(subjectID, records)
}

// GetRecords returns a subject's records, optionally limited to one date.
func (s *Store) GetRecords(subjectID, date string) ([]*core.Record, error) {
	return s.repo.GetRecords(subjectID, date)
}

// DeleteRecord removes one record. Returns false when absent.
func (s *Store) DeleteRecord(subjectID, recordID string) (bool, error) {
	return s.repo.DeleteRecord(subjectID, recordID)
}

// DeleteSubject removes a subject entirely. Returns false when absent.
func (s *Store) DeleteSubject(subjectID string) (bool, error) {
	return s.repo.DeleteSubject(subjectID)
}

// RecomputeMetadata recounts all counters from the leaves up.
func (s *Store) RecomputeMetadata() error {
	return s.repo.RecomputeMetadata()
}

// Metadata returns the root rollup, or nil when uninitialized.
func (s *Store) Metadata() (*core.Metadata, error) {
	return s.repo.Metadata()
}

// Export serializes the full repository to text.
func (s *Store) Export() (string, error) {
	return s.repo.Export()
}

// Import replaces the repository with a parsed, validated snapshot.
func (s *Store) Import(text string) error {
	return s.repo.Import(text)
}

// Subscribe registers a change callback and returns its unsubscribe
// function. Local changes are delivered synchronously after the mutating
// call; remote ones arrive asynchronously with no ordering guarantee.
func (s *Store) Subscribe(fn func(Change)) func() {
	return s.notifier.Subscribe(fn)
}

// Estimator returns the advisory quota estimator for the medium.
func (s *Store) Estimator() *storage.Estimator {
	return s.estimator
}
