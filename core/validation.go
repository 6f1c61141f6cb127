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

import (
	"fmt"
	"time"
)

// dateLayout is the calendar-day key format used by DateGroups.
const dateLayout = "2006-01-02"

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Date must be a YYYY-MM-DD calendar day
//   - SizeBytes must not be negative
//
// NOT validated (populated by the repository on insertion):
//   - SubjectID (set from the target subject)
//   - Sequence and StoredName (assigned when zero/empty)
//   - UploadedAt (defaulted to the insertion time)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordID)
	}

	if !IsValidDate(record.Date) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrInvalidDate, record.Date)
	}

	if record.SizeBytes < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrNegativeSize)
	}

	return nil
}

// ValidateSnapshot validates the minimal required shape of a snapshot:
// the subjects map and the metadata rollup must both be present. This is
// the gate import runs before committing foreign data; it deliberately
// does not check counter consistency, which import repairs by recomputing.
func ValidateSnapshot(snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidSnapshot)
	}

	if snapshot.Subjects == nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrMissingSubjects)
	}

	if snapshot.Metadata == nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrMissingMetadata)
	}

	for id, subject := range snapshot.Subjects {
		if subject == nil {
			return fmt.Errorf("%w: subject %q is nil", ErrInvalidSnapshot, id)
		}
	}

	return nil
}

// IsValidDate reports whether date is a well-formed YYYY-MM-DD calendar day.
func IsValidDate(date string) bool {
	_, err := time.Parse(dateLayout, date)
	return err == nil
}
