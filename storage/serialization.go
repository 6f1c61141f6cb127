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

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/dossier/core"
)

// MarshalSnapshot serializes a snapshot to the JSON wire form. This is the
// only encoding ever written to the medium; foreign contexts and exported
// files read the same shape.
func MarshalSnapshot(snapshot *core.Snapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalSnapshot deserializes a snapshot from its JSON wire form.
// A parse failure is reported as ErrCorruptSnapshot so callers can tell
// "initialized but unreadable" apart from "absent".
func UnmarshalSnapshot(text string) (*core.Snapshot, error) {
	var snapshot core.Snapshot
	if err := json.Unmarshal([]byte(text), &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snapshot, nil
}
