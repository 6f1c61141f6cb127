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


// Package storage provides the storage abstraction layer for dossier.
//
// This package defines the contract for the underlying persistence medium:
// a size-limited, string-keyed key/value store in the mold of browser
// localStorage. Backends (in-memory, directory, BadgerDB) implement the
// BlobStore interface and may optionally implement Watcher to surface the
// medium's native change signal.
//
// # Medium semantics
//
// The medium is shared: other execution contexts may hold keys in the same
// store, and its capacity covers all of them. Writes are all-or-nothing at
// the key granularity; a write rejected for size leaves the previous value
// intact and is reported as ErrCapacityExceeded, a named recoverable
// condition distinct from the medium being unavailable.
//
// # Layering
//
//   - BlobStore / Watcher: raw medium contract implemented by backends
//   - Adapter: guarded access with an availability probe and error
//     classification; callers never see a backend-specific failure
//   - Estimator: advisory capacity accounting; it never blocks a write,
//     only the medium's own rejection is authoritative
//   - MarshalSnapshot / UnmarshalSnapshot: the single JSON wire format of
//     the persisted repository blob
//
// # Usage
//
// Open a backend and wrap it:
//
//	store, err := badgerstore.Open("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	adapter := storage.NewAdapter(store)
//
// Use in tests with in-memory storage:
//
//	store := memstore.New()
//	adapter := storage.NewAdapter(store)
package storage
