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


// Package dossier is a client-resident record store: a hierarchy of
// subject → date → record entries with derived aggregate counters,
// persisted as a single serialized blob inside a capacity-constrained
// key/value medium.
//
// The repository maintains nested counts and sizes incrementally across
// create/add/delete operations, persists each mutation atomically against
// a medium that can reject writes for size, and supports whole-store
// export/import plus change notification across execution contexts
// sharing the same medium.
//
// # Usage
//
// Open a store over any storage.BlobStore backend:
//
//	store, err := dossier.New(memstore.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	err = store.AddRecords("P001", []*core.Record{{
//	    ID:        core.NewRecordID(),
//	    Date:      "2024-01-15",
//	    SizeBytes: 1000,
//	}})
//
// # Concurrency
//
// Within one process every operation is a synchronous read-modify-write
// over the single blob key. Across independent contexts sharing the same
// medium there is no mutual exclusion: interleaved read/mutate/write
// sequences resolve last-write-wins at blob granularity. This is a
// documented limitation of the medium, not hidden by this package; an
// optimistic version stamp in the metadata is the natural extension point
// for callers that need conflict detection.
package dossier
