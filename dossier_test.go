package dossier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
	"github.com/poiesic/dossier/storage/filestore"
	"github.com/poiesic/dossier/storage/memstore"
)

func TestNewStoreDefaults(t *testing.T) {
	store, err := New(memstore.New())
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	assert.NotNil(t, store.Estimator())
	assert.Equal(t, storage.DefaultCapacityBytes, store.Estimator().CapacityBytes())
}

func TestStoreOptions(t *testing.T) {
	blobStore := memstore.New()
	store, err := New(blobStore,
		WithKey("custom.key"),
		WithCapacity(1024),
		WithPoolSize(2),
	)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Initialize())
	_, ok := blobStore.Get("custom.key")
	assert.True(t, ok)
	assert.Equal(t, int64(1024), store.Estimator().CapacityBytes())
}

func TestEstimatorSeesRepositoryBlob(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize())

	empty := store.Estimator().UsedBytes()
	require.Greater(t, empty, int64(0))

	require.NoError(t, store.AddRecords("P001", []*core.Record{{
		ID:        "f1",
		Date:      "2024-01-15",
		SizeBytes: 4,
		Payload:   "AAAA",
	}}))
	assert.Greater(t, store.Estimator().UsedBytes(), empty)
	assert.Equal(t, storage.BandNormal, store.Estimator().Band())
}

func TestStoreOverFilestore(t *testing.T) {
	blobStore, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	store, err := New(blobStore)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddRecords("P001", []*core.Record{
		{ID: "f1", Date: "2024-01-15", SizeBytes: 100},
	}))

	subject, err := store.GetSubject("P001")
	require.NoError(t, err)
	require.NotNil(t, subject)
	assert.Equal(t, 1, subject.TotalRecords)
}

func TestCloseIsSafe(t *testing.T) {
	store, err := New(memstore.New())
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
