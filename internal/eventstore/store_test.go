package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendAndGetByRunID(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "run-1", "TestEvent", []byte(`{"a":1}`), map[string]string{"key": "value"}))
	require.NoError(t, store.Append(ctx, "run-2", "TestEvent", nil, nil))
	require.NoError(t, store.Append(ctx, "run-1", "Other", []byte(`{}`), nil))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "TestEvent", events[0].Type())
	assert.JSONEq(t, `{"a":1}`, string(events[0].Payload()))
	assert.Equal(t, "value", events[0].Metadata()["key"])
	assert.Equal(t, "Other", events[1].Type())
	assert.Nil(t, events[1].Metadata())
	assert.Less(t, events[0].ID(), events[1].ID())

	other, err := store.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.JSONEq(t, `{}`, string(other[0].Payload()))
}

func TestSQLiteStore_GetRange(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "run-1", "A", nil, nil))

	events, err := store.GetRange(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = store.GetRange(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := t.TempDir() + "/events.db"
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), "run-1", "A", nil, nil))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAppendEvent(t *testing.T) {
	store := newMemoryStore(t)
	e, err := NewRevalidated("rv-1", RevalidatedData{Slug: "/about", Source: SourceAPI, Removed: 2})
	require.NoError(t, err)
	require.NoError(t, AppendEvent(t.Context(), store, e))

	events, err := store.GetByRunID(t.Context(), "rv-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRevalidated, events[0].Type())
	assert.JSONEq(t, `{"all":false,"slug":"/about","source":"api","removed":2}`, string(events[0].Payload()))
}
