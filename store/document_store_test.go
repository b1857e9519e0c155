package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore()

	seq, err := ds.Put(ctx, model.Document{"_id": "1", "title": "fox"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	doc, err := ds.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "fox", doc["title"])

	doc["title"] = "mutated"
	again, _ := ds.Get(ctx, "1")
	assert.Equal(t, "fox", again["title"], "Get returns a copy")

	seq, err = ds.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)

	_, err = ds.Get(ctx, "1")
	assert.True(t, errors.Is(err, internalErrors.ErrDocumentNotFound))

	_, err = ds.Delete(ctx, "1")
	assert.True(t, errors.Is(err, internalErrors.ErrDocumentNotFound))
}

func TestPutAllRejectsMissingIDs(t *testing.T) {
	ds := NewDocumentStore()
	_, err := ds.PutAll(context.Background(), []model.Document{
		{"_id": "1"},
		{"title": "no id"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput))
	assert.Zero(t, ds.Count(), "nothing is written on validation failure")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore()
	_, err := ds.PutAll(ctx, []model.Document{{"_id": "c"}, {"_id": "a"}, {"_id": "b"}})
	require.NoError(t, err)

	docs, total, err := ds.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0]["_id"])

	docs, _, _ = ds.List(ctx, 0, -1)
	assert.Len(t, docs, 3)

	docs, _, _ = ds.List(ctx, 10, 5)
	assert.Empty(t, docs)
}

func TestChanges(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore()
	_, _ = ds.Put(ctx, model.Document{"_id": "1", "v": 1.0}) // seq 1
	_, _ = ds.Put(ctx, model.Document{"_id": "2"})           // seq 2
	_, _ = ds.Put(ctx, model.Document{"_id": "1", "v": 2.0}) // seq 3
	_, _ = ds.Delete(ctx, "2")                               // seq 4

	changes, next, err := ds.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2, "one entry per document at its latest sequence")
	assert.Equal(t, Change{Seq: 3, ID: "1", Doc: model.Document{"_id": "1", "v": 2.0}}, changes[0])
	assert.Equal(t, Change{Seq: 4, ID: "2", Deleted: true}, changes[1])
	assert.Equal(t, uint64(4), next)

	changes, next, err = ds.Changes(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, uint64(3), next, "a limited page resumes after its last change")

	changes, next, err = ds.Changes(ctx, next, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "2", changes[0].ID)

	changes, next, err = ds.Changes(ctx, next, 10)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, uint64(4), next)
}

func TestChangesAfterRecreate(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore()
	_, _ = ds.Put(ctx, model.Document{"_id": "1"})
	_, _ = ds.Delete(ctx, "1")
	_, _ = ds.Put(ctx, model.Document{"_id": "1", "back": true})

	changes, _, err := ds.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Deleted)
	assert.Equal(t, uint64(3), changes[0].Seq)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := NewDocumentStore()

	_, err := ds.Get(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = ds.Changes(ctx, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGobRoundTrip(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore()
	_, _ = ds.Put(ctx, model.Document{
		"_id":    "1",
		"tags":   []interface{}{"a", "b"},
		"mixed":  []interface{}{"a", 1.0},
		"nested": map[string]interface{}{"k": "v"},
	})
	_, _ = ds.Put(ctx, model.Document{"_id": "2"})
	_, _ = ds.Delete(ctx, "2")

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(ds))

	decoded := &DocumentStore{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	assert.Equal(t, uint64(3), decoded.UpdateSeq())
	doc, err := decoded.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, doc["tags"])
	assert.Equal(t, []interface{}{"a", 1.0}, doc["mixed"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, doc["nested"])

	changes, _, err := decoded.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.True(t, changes[1].Deleted)
}
