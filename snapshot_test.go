package dossier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
)

func TestExportImportRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddRecords("P001", []*core.Record{
		testRecord("f1", "2024-01-15", 1000),
		testRecord("f2", "2024-02-01", 2000),
	}))

	exported, err := store.Export()
	require.NoError(t, err)
	require.NotEmpty(t, exported)

	// Mutate, then restore from the export.
	deleted, err := store.DeleteSubject("P001")
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, store.Import(exported))

	subject, err := store.GetSubject("P001")
	require.NoError(t, err)
	require.NotNil(t, subject)
	assert.Equal(t, 2, subject.TotalRecords)
	assert.Equal(t, int64(3000), subject.TotalSizeBytes)

	meta, err := store.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 1, meta.SubjectCount)
	assert.Equal(t, 2, meta.RecordCount)
	checkInvariants(t, store)
}

func TestExportUninitialized(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Export()
	assert.True(t, errors.Is(err, storage.ErrNotInitialized), "got %v", err)
}

func TestImportRejectsBadPayloads(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddRecords("P001", []*core.Record{testRecord("f1", "2024-01-15", 100)}))

	before, err := store.Export()
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{"not json", "definitely not json"},
		{"missing subjects", `{"metadata":{}}`},
		{"missing metadata", `{"subjects":{}}`},
		{"wrong kinds", `{"subjects":[],"metadata":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Import(tt.text)
			assert.True(t, errors.Is(err, core.ErrInvalidSnapshot), "got %v", err)

			// The existing repository is left untouched.
			after, exportErr := store.Export()
			require.NoError(t, exportErr)
			assert.Equal(t, before, after)
		})
	}
}

func TestImportRecomputesUntrustedCounters(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize())

	// A payload with drifted counters: import must not trust them.
	drifted := `{
		"subjects": {
			"P001": {
				"id": "P001",
				"createdAt": "2024-01-01T00:00:00Z",
				"updatedAt": "2024-01-01T00:00:00Z",
				"totalRecords": 50,
				"totalSizeBytes": 999999,
				"dateGroups": {
					"2024-01-15": {
						"date": "2024-01-15",
						"records": [
							{"id": "f1", "subjectId": "P001", "originalName": "a.png",
							 "storedName": "P001_2024-01-15_001.png", "kind": "image",
							 "mimeType": "image/png", "sizeBytes": 1000,
							 "uploadedAt": "2024-01-15T10:00:00Z", "date": "2024-01-15",
							 "sequence": 1, "payload": ""}
						]
					},
					"2024-01-16": {"date": "2024-01-16", "records": []}
				}
			}
		},
		"metadata": {"subjectCount": 9, "recordCount": 50, "totalSizeBytes": 999999,
			"lastUpdated": "2024-01-01T00:00:00Z"}
	}`
	require.NoError(t, store.Import(drifted))

	subject, err := store.GetSubject("P001")
	require.NoError(t, err)
	require.NotNil(t, subject)
	assert.Equal(t, 1, subject.TotalRecords)
	assert.Equal(t, int64(1000), subject.TotalSizeBytes)
	// Drifted-empty groups are swept during the import recompute.
	assert.NotContains(t, subject.DateGroups, "2024-01-16")

	meta, err := store.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 1, meta.SubjectCount)
	assert.Equal(t, 1, meta.RecordCount)
	assert.Equal(t, int64(1000), meta.TotalSizeBytes)
	checkInvariants(t, store)
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "dossier-export-2024-03-09.json", ExportFilename(at))
}
