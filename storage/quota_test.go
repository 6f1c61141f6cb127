package storage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/dossier/storage"
	"github.com/poiesic/dossier/storage/memstore"
)

func TestEstimatorUsage(t *testing.T) {
	store := memstore.New()
	defer store.Close()

	// 1+5 and 2+10 bytes of key+value.
	require.NoError(t, store.Set("a", "12345"))
	require.NoError(t, store.Set("bb", "1234567890"))

	est := storage.NewEstimator(store, 100)
	assert.Equal(t, int64(100), est.CapacityBytes())
	assert.Equal(t, int64(18), est.UsedBytes())
	assert.InDelta(t, 18.0, est.UsagePercent(), 0.001)
}

func TestEstimatorHasRoom(t *testing.T) {
	store := memstore.New()
	defer store.Close()
	require.NoError(t, store.Set("k", strings.Repeat("x", 49))) // 50 bytes used

	est := storage.NewEstimator(store, 100)

	// 40 bytes inflated by 1/0.95 is ~42.1, which fits in the 50 left.
	assert.True(t, est.HasRoom(40, 0.95))
	// 48 bytes inflated is ~50.5, which does not.
	assert.False(t, est.HasRoom(48, 0.95))
	// A full margin compares the raw size.
	assert.True(t, est.HasRoom(50, 1.0))
	assert.False(t, est.HasRoom(51, 1.0))
}

func TestEstimatorBands(t *testing.T) {
	store := memstore.New()
	defer store.Close()
	est := storage.NewEstimator(store, 100)

	fill := func(n int) {
		store.Clear()
		require.NoError(t, store.Set("k", strings.Repeat("x", n-1)))
	}

	fill(50)
	assert.Equal(t, storage.BandNormal, est.Band())

	fill(80)
	assert.Equal(t, storage.BandWarning, est.Band())

	fill(94)
	assert.Equal(t, storage.BandWarning, est.Band())

	fill(95)
	assert.Equal(t, storage.BandCritical, est.Band())

	assert.Equal(t, "normal", storage.BandNormal.String())
	assert.Equal(t, "warning", storage.BandWarning.String())
	assert.Equal(t, "critical", storage.BandCritical.String())
}

func TestEstimatorPercentClamped(t *testing.T) {
	store := memstore.New()
	defer store.Close()
	require.NoError(t, store.Set("k", strings.Repeat("x", 99)))

	// Capacity ceilings are advisory; usage above one clamps to 100.
	est := storage.NewEstimator(store, 50)
	assert.Equal(t, 100.0, est.UsagePercent())
	assert.Equal(t, storage.BandCritical, est.Band())
}
