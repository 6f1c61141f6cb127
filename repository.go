package dossier

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
)

// DefaultKey is the blob-store key holding the serialized repository.
const DefaultKey = "dossier.store"

// Repository owns the subject → date → record graph and all mutation
// operations. Every operation reads the current snapshot through the
// adapter, mutates an in-memory copy, and writes the whole snapshot back;
// a failed write leaves the previous blob untouched, so each mutation
// (including a whole AddRecords batch) is all-or-nothing.
type Repository struct {
	adapter  *storage.Adapter
	key      string
	notifier *Notifier
	logger   *slog.Logger
}

func newRepository(adapter *storage.Adapter, key string, notifier *Notifier, logger *slog.Logger) *Repository {
	return &Repository{
		adapter:  adapter,
		key:      key,
		notifier: notifier,
		logger:   logger,
	}
}

// Initialize creates and persists an empty repository if none exists.
// Idempotent: succeeds silently when already initialized. Returns
// storage.ErrUnavailable when the medium fails the availability probe.
func (r *Repository) Initialize() error {
	if !r.adapter.Available() {
		return fmt.Errorf("%w: availability probe failed", storage.ErrUnavailable)
	}
	if r.adapter.Exists(r.key) {
		return nil
	}
	return r.persist(core.NewSnapshot())
}

// CreateSubject creates a subject, or returns the existing one unchanged.
// Auto-recovers from an uninitialized store by initializing and retrying
// once.
func (r *Repository) CreateSubject(subjectID string) (*core.Subject, error) {
	if subjectID == "" {
		return nil, core.ErrEmptySubjectID
	}

	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		if err := r.Initialize(); err != nil {
			return nil, err
		}
		snapshot, err = r.load()
	}
	if err != nil {
		return nil, err
	}

	if subject, ok := snapshot.Subjects[subjectID]; ok {
		return subject, nil
	}

	now := time.Now().UTC()
	subject := core.NewSubject(subjectID, now)
	snapshot.Subjects[subjectID] = subject
	snapshot.Metadata.SubjectCount++
	snapshot.Metadata.LastUpdated = now

	if err := r.persist(snapshot); err != nil {
		return nil, err
	}
	r.logger.Info("created subject", "subject", subjectID)
	return subject, nil
}

// GetSubject returns a subject, or nil when absent or the store is
// uninitialized. Pure read.
func (r *Repository) GetSubject(subjectID string) (*core.Subject, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot.Subjects[subjectID], nil
}

// ListSubjects returns every subject, sorted by ID. Pure read.
func (r *Repository) ListSubjects() ([]*core.Subject, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	subjects := make([]*core.Subject, 0, len(snapshot.Subjects))
	for _, subject := range snapshot.Subjects {
		subjects = append(subjects, subject)
	}
	slices.SortFunc(subjects, func(a, b *core.Subject) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return subjects, nil
}

// AddRecords appends a batch of records to a subject, creating the subject
// and any date groups on demand. Record IDs are assigned when empty,
// sequences and stored names when unset. All counter deltas and the
// persist happen once for the whole batch: either every record's effect is
// stored, or none is.
func (r *Repository) AddRecords(subjectID string, records []*core.Record) error {
	if subjectID == "" {
		return core.ErrEmptySubjectID
	}
	if len(records) == 0 {
		return nil
	}

	snapshot, err := r.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	// Fill defaults and validate before touching any state.
	existing := make(map[string]bool)
	for _, subject := range snapshot.Subjects {
		for _, record := range subject.Records() {
			existing[record.ID] = true
		}
	}
	for _, record := range records {
		if record == nil {
			return fmt.Errorf("%w: record is nil", core.ErrInvalidRecord)
		}
		if record.ID == "" {
			record.ID = core.NewRecordID()
		}
		record.SubjectID = subjectID
		if record.UploadedAt.IsZero() {
			record.UploadedAt = now
		}
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		if existing[record.ID] {
			return fmt.Errorf("%w: %s", core.ErrDuplicateRecordID, record.ID)
		}
		existing[record.ID] = true
	}

	subject, ok := snapshot.Subjects[subjectID]
	if !ok {
		subject = core.NewSubject(subjectID, now)
		snapshot.Subjects[subjectID] = subject
		snapshot.Metadata.SubjectCount++
	}

	var addedCount int
	var addedBytes int64
	for _, record := range records {
		group, ok := subject.DateGroups[record.Date]
		if !ok {
			group = &core.DateGroup{Date: record.Date}
			subject.DateGroups[record.Date] = group
		}
		if record.Sequence == 0 {
			record.Sequence = len(group.Records) + 1
		}
		if record.StoredName == "" {
			record.StoredName = core.StoredName(subjectID, record.Date, record.Sequence, record.OriginalName)
		}
		group.Records = append(group.Records, record)
		addedCount++
		addedBytes += record.SizeBytes
	}

	subject.TotalRecords += addedCount
	subject.TotalSizeBytes += addedBytes
	subject.UpdatedAt = now
	snapshot.Metadata.RecordCount += addedCount
	snapshot.Metadata.TotalSizeBytes += addedBytes
	snapshot.Metadata.LastUpdated = now

	if err := r.persist(snapshot); err != nil {
		return err
	}
	r.logger.Info("added records", "subject", subjectID, "count", addedCount, "bytes", addedBytes)
	return nil
}

// GetRecords returns one date group's records when date is non-empty, else
// every record of the subject, insertion order within each group, groups
// ordered by date. Returns nil when the subject is absent. Pure read.
func (r *Repository) GetRecords(subjectID, date string) ([]*core.Record, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	subject, ok := snapshot.Subjects[subjectID]
	if !ok {
		return nil, nil
	}
	if date != "" {
		group, ok := subject.DateGroups[date]
		if !ok {
			return nil, nil
		}
		return slices.Clone(group.Records), nil
	}
	return subject.Records(), nil
}

// DeleteRecord removes one record, deleting its date group if emptied and
// decrementing subject and root counters by the record's size. Returns
// false when the subject or record is absent; that is a normal miss, not
// an error.
func (r *Repository) DeleteRecord(subjectID, recordID string) (bool, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	subject, ok := snapshot.Subjects[subjectID]
	if !ok {
		return false, nil
	}

	// Linear scan across date groups; per-subject record counts are small
	// by design.
	for date, group := range subject.DateGroups {
		for i, record := range group.Records {
			if record.ID != recordID {
				continue
			}

			group.Records = slices.Delete(group.Records, i, i+1)
			if len(group.Records) == 0 {
				delete(subject.DateGroups, date)
			}

			now := time.Now().UTC()
			subject.TotalRecords--
			subject.TotalSizeBytes -= record.SizeBytes
			subject.UpdatedAt = now
			snapshot.Metadata.RecordCount--
			snapshot.Metadata.TotalSizeBytes -= record.SizeBytes
			snapshot.Metadata.LastUpdated = now

			if err := r.persist(snapshot); err != nil {
				return false, err
			}
			r.logger.Info("deleted record", "subject", subjectID, "record", recordID)
			return true, nil
		}
	}
	return false, nil
}

// DeleteSubject removes a subject entirely, decrementing root metadata by
// the subject's own cached totals. Returns false when absent.
func (r *Repository) DeleteSubject(subjectID string) (bool, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	subject, ok := snapshot.Subjects[subjectID]
	if !ok {
		return false, nil
	}

	delete(snapshot.Subjects, subjectID)
	snapshot.Metadata.SubjectCount--
	snapshot.Metadata.RecordCount -= subject.TotalRecords
	snapshot.Metadata.TotalSizeBytes -= subject.TotalSizeBytes
	snapshot.Metadata.LastUpdated = time.Now().UTC()

	if err := r.persist(snapshot); err != nil {
		return false, err
	}
	r.logger.Info("deleted subject", "subject", subjectID,
		"records", subject.TotalRecords, "bytes", subject.TotalSizeBytes)
	return true, nil
}

// RecomputeMetadata recounts every counter from the leaves up and
// overwrites both subject-level and root-level totals. This is the one
// repair path for counter drift; every other operation maintains the
// counters incrementally.
func (r *Repository) RecomputeMetadata() error {
	snapshot, err := r.load()
	if err != nil {
		return err
	}
	recompute(snapshot, time.Now().UTC())
	return r.persist(snapshot)
}

// Metadata returns the root rollup, or nil when uninitialized. Pure read.
func (r *Repository) Metadata() (*core.Metadata, error) {
	snapshot, err := r.load()
	if errors.Is(err, storage.ErrNotInitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot.Metadata, nil
}

// load reads and parses the current snapshot. Absent and unparseable blobs
// are distinct conditions: the former is ErrNotInitialized, the latter
// ErrCorruptSnapshot.
func (r *Repository) load() (*core.Snapshot, error) {
	text, ok := r.adapter.Read(r.key)
	if !ok {
		return nil, storage.ErrNotInitialized
	}
	snapshot, err := storage.UnmarshalSnapshot(text)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptSnapshot, err)
	}
	return snapshot, nil
}

// persist writes the snapshot back through the adapter and fires the
// same-context change notification. Only serializer output ever reaches
// the blob key, so the key never holds an unparseable value.
func (r *Repository) persist(snapshot *core.Snapshot) error {
	text, err := storage.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := r.adapter.Write(r.key, text); err != nil {
		return err
	}
	r.notifier.notifyLocal(r.key)
	return nil
}

// recompute overwrites every counter in the snapshot from a leaves-up
// recount, dropping any date group that has drifted to empty.
func recompute(snapshot *core.Snapshot, now time.Time) {
	var recordCount int
	var totalBytes int64
	for _, subject := range snapshot.Subjects {
		var subjectRecords int
		var subjectBytes int64
		for date, group := range subject.DateGroups {
			if len(group.Records) == 0 {
				delete(subject.DateGroups, date)
				continue
			}
			subjectRecords += len(group.Records)
			for _, record := range group.Records {
				subjectBytes += record.SizeBytes
			}
		}
		subject.TotalRecords = subjectRecords
		subject.TotalSizeBytes = subjectBytes
		recordCount += subjectRecords
		totalBytes += subjectBytes
	}
	snapshot.Metadata.SubjectCount = len(snapshot.Subjects)
	snapshot.Metadata.RecordCount = recordCount
	snapshot.Metadata.TotalSizeBytes = totalBytes
	snapshot.Metadata.LastUpdated = now
}
