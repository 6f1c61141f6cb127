package dossier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage/memstore"
)

func TestLocalNotificationsAreSynchronous(t *testing.T) {
	store, _ := newTestStore(t)

	var changes []Change
	unsubscribe := store.Subscribe(func(c Change) {
		if c.Origin == OriginLocal {
			changes = append(changes, c)
		}
	})
	defer unsubscribe()

	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddRecords("P001", []*core.Record{testRecord("f1", "2024-01-15", 10)}))

	// Listeners ran before the mutating calls returned.
	require.Len(t, changes, 2)
	assert.Equal(t, DefaultKey, changes[0].Key)
	assert.Equal(t, OriginLocal, changes[0].Origin)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store, _ := newTestStore(t)

	var count int
	unsubscribe := store.Subscribe(func(c Change) {
		if c.Origin == OriginLocal {
			count++
		}
	})

	require.NoError(t, store.Initialize())
	assert.Equal(t, 1, count)

	unsubscribe()
	_, err := store.CreateSubject("P001")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRemoteNotificationAcrossHandles(t *testing.T) {
	// Two store handles over one shared medium stand in for two execution
	// contexts. A mutation through one must reach the other's listeners.
	medium := memstore.New()

	writer, err := New(medium)
	require.NoError(t, err)

	reader, err := New(medium)
	require.NoError(t, err)
	defer reader.Close()
	defer writer.Close()

	remote := make(chan Change, 4)
	reader.Subscribe(func(c Change) {
		if c.Origin == OriginRemote {
			remote <- c
		}
	})

	require.NoError(t, writer.Initialize())
	require.NoError(t, writer.AddRecords("P001", []*core.Record{testRecord("f1", "2024-01-15", 10)}))

	select {
	case c := <-remote:
		assert.Equal(t, DefaultKey, c.Key)
		assert.Equal(t, OriginRemote, c.Origin)
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for remote change notification")
	}

	// The listener re-reads the shared medium to derive what changed.
	subject, err := reader.GetSubject("P001")
	require.NoError(t, err)
	require.NotNil(t, subject)
	assert.Equal(t, 1, subject.TotalRecords)
}

func TestRemoteIgnoresForeignKeys(t *testing.T) {
	medium := memstore.New()
	store, err := New(medium)
	require.NoError(t, err)
	defer store.Close()

	remote := make(chan Change, 4)
	store.Subscribe(func(c Change) { remote <- c })

	// Another application writing its own key in the shared medium.
	require.NoError(t, medium.Set("someone-elses-key", "value"))

	select {
	case c := <-remote:
		t.Fatalf("Unexpected notification for foreign key: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOriginString(t *testing.T) {
	assert.Equal(t, "local", OriginLocal.String())
	assert.Equal(t, "remote", OriginRemote.String())
}
