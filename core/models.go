package core

import (
	"encoding/binary"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Record is a single stored item for a subject, with its binary payload
// encoded as text. The json tags define the persisted wire shape and must
// not change: the serialized snapshot is shared with other execution
// contexts and with exported files.
type Record struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subjectId"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	Kind         string    `json:"kind"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Date         string    `json:"date"` // calendar day, YYYY-MM-DD
	Sequence     int       `json:"sequence"`
	Payload      string    `json:"payload"` // content encoded as base64 text
}

// DateGroup holds the records of one subject sharing one calendar day.
// A group exists only while it holds at least one record.
type DateGroup struct {
	Date    string    `json:"date"`
	Records []*Record `json:"records"`
}

// Subject is the top-level grouping entity for records.
// TotalRecords and TotalSizeBytes are maintained incrementally by the
// repository and must equal the sums over DateGroups at all times.
type Subject struct {
	ID             string                `json:"id"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	TotalRecords   int                   `json:"totalRecords"`
	TotalSizeBytes int64                 `json:"totalSizeBytes"`
	DateGroups     map[string]*DateGroup `json:"dateGroups"`
}

// Metadata is the cached rollup of the whole store, recomputable from
// scratch by walking every subject.
type Metadata struct {
	SubjectCount   int       `json:"subjectCount"`
	RecordCount    int       `json:"recordCount"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Snapshot is the persisted root: all subjects plus the metadata rollup.
// It is serialized as a single JSON blob.
type Snapshot struct {
	Subjects map[string]*Subject `json:"subjects"`
	Metadata *Metadata           `json:"metadata"`
}

// NewSnapshot returns an empty snapshot with zeroed metadata.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Subjects: make(map[string]*Subject),
		Metadata: &Metadata{},
	}
}

// NewSubject returns a subject with no records, created at now.
func NewSubject(id string, now time.Time) *Subject {
	return &Subject{
		ID:         id,
		CreatedAt:  now,
		UpdatedAt:  now,
		DateGroups: make(map[string]*DateGroup),
	}
}

// Records returns the subject's records across all date groups, insertion
// order within each group, groups ordered by date.
func (s *Subject) Records() []*Record {
	dates := make([]string, 0, len(s.DateGroups))
	for date := range s.DateGroups {
		dates = append(dates, date)
	}
	slices.Sort(dates)

	var records []*Record
	for _, date := range dates {
		records = append(records, s.DateGroups[date].Records...)
	}
	return records
}

// StoredName derives the deterministic stored name for a record from its
// subject, calendar day, and zero-padded sequence. The extension of the
// original name is preserved.
func StoredName(subjectID, date string, sequence int, originalName string) string {
	return fmt.Sprintf("%s_%s_%03d%s", subjectID, date, sequence, path.Ext(originalName))
}

// NewRecordID returns a random globally unique record ID.
func NewRecordID() string {
	return uuid.NewString()
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b
// hashing. Identical content produces identical IDs, which lets callers
// deduplicate uploads before insertion.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return fmt.Sprintf("%016x", binary.LittleEndian.Uint64(sum))
}
