package dossier

import (
	"fmt"
	"time"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
)

// Export serializes the full repository to its transportable text form.
// Returns storage.ErrNotInitialized when there is nothing to export.
func (r *Repository) Export() (string, error) {
	snapshot, err := r.load()
	if err != nil {
		return "", err
	}
	return storage.MarshalSnapshot(snapshot)
}

// Import parses and validates text, then replaces the whole repository
// with it. The replace is all-or-nothing: a payload that fails parsing or
// shape validation leaves the existing repository untouched. Imported
// counters are not trusted; a full leaves-up recompute runs before the
// single persist, so provenance drift cannot compound.
func (r *Repository) Import(text string) error {
	snapshot, err := storage.UnmarshalSnapshot(text)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidSnapshot, err)
	}
	if err := core.ValidateSnapshot(snapshot); err != nil {
		return err
	}

	recompute(snapshot, time.Now().UTC())

	if err := r.persist(snapshot); err != nil {
		return err
	}
	r.logger.Info("imported snapshot",
		"subjects", snapshot.Metadata.SubjectCount,
		"records", snapshot.Metadata.RecordCount,
		"bytes", snapshot.Metadata.TotalSizeBytes)
	return nil
}

// ExportFilename returns the conventional name for an export artifact,
// embedding the calendar date.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("dossier-export-%s.json", now.Format("2006-01-02"))
}
