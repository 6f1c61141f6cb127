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


package storage

import "errors"

var (
	// ErrUnavailable indicates the storage medium cannot be probed or
	// written at all. Recoverable by retrying later.
	ErrUnavailable = errors.New("storage medium unavailable")

	// ErrCapacityExceeded indicates a write was rejected for size.
	// Recoverable by the caller freeing space and retrying.
	ErrCapacityExceeded = errors.New("storage capacity exceeded")

	// ErrCorruptSnapshot indicates the stored blob fails to parse.
	// Distinct from absent: absent means uninitialized, corrupt means
	// initialized but unreadable.
	ErrCorruptSnapshot = errors.New("stored snapshot is corrupt")

	// ErrNotInitialized indicates no repository blob exists yet.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrStorageClosed indicates the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")
)
