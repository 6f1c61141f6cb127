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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyRecordID indicates the record ID field is empty.
	ErrEmptyRecordID = errors.New("record id cannot be empty")

	// ErrEmptySubjectID indicates the subject ID field is empty.
	ErrEmptySubjectID = errors.New("subject id cannot be empty")

	// ErrInvalidDate indicates a date is not a YYYY-MM-DD calendar day.
	ErrInvalidDate = errors.New("date must be a YYYY-MM-DD calendar day")

	// ErrNegativeSize indicates a record size is negative.
	ErrNegativeSize = errors.New("size cannot be negative")

	// ErrDuplicateRecordID indicates a record ID already exists in the store.
	ErrDuplicateRecordID = errors.New("duplicate record id")

	// ErrInvalidSnapshot indicates a snapshot failed shape validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrMissingSubjects indicates the snapshot has no subjects map.
	ErrMissingSubjects = errors.New("snapshot is missing subjects")

	// ErrMissingMetadata indicates the snapshot has no metadata.
	ErrMissingMetadata = errors.New("snapshot is missing metadata")
)
