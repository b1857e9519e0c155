// Package store holds the host documents and the sequence-numbered changes
// feed that index refreshes consume.
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

func init() {
	// Register common types that might appear in model.Document (map[string]interface{})
	// This helps Gob know how to handle them when they are stored as interface{} values.
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
	// json.Unmarshal into map[string]interface{} often gives []interface{} for arrays;
	// all-string arrays are stored as []string.
	gob.Register([]string{})
	gob.Register(float64(0))
	gob.Register(false)
}

// Change is one entry of the changes feed: the latest state of a document
// as of sequence Seq.
type Change struct {
	Seq     uint64
	ID      string
	Deleted bool
	Doc     model.Document // nil when Deleted
}

// DocumentStore is an in-memory document database. Every write gets the next
// sequence number; the changes feed reports each document once, at its
// latest sequence.
type DocumentStore struct {
	Mu         sync.RWMutex
	Docs       map[string]model.Document // document id -> document
	Seqs       map[string]uint64         // document id -> sequence of its latest write
	Tombstones map[string]uint64         // deleted document id -> deletion sequence
	LastSeq    uint64
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		Docs:       make(map[string]model.Document),
		Seqs:       make(map[string]uint64),
		Tombstones: make(map[string]uint64),
	}
}

// Put inserts or replaces a document keyed by its "_id" and returns the
// sequence of the write.
func (ds *DocumentStore) Put(ctx context.Context, doc model.Document) (uint64, error) {
	return ds.PutAll(ctx, []model.Document{doc})
}

// PutAll writes documents in order. Nothing is written when any document
// lacks an id.
func (ds *DocumentStore) PutAll(ctx context.Context, docs []model.Document) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for i, doc := range docs {
		if _, ok := doc.GetDocumentID(); !ok {
			return 0, internalErrors.NewValidationError(model.IDField,
				fmt.Sprintf("document at index %d is missing a non-empty string '_id'", i))
		}
	}

	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	for _, doc := range docs {
		id, _ := doc.GetDocumentID()
		ds.LastSeq++
		ds.Docs[id] = doc.Clone()
		ds.Seqs[id] = ds.LastSeq
		delete(ds.Tombstones, id)
	}
	return ds.LastSeq, nil
}

// Get returns a copy of the document, or a DocumentNotFoundError.
func (ds *DocumentStore) Get(ctx context.Context, id string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()

	doc, ok := ds.Docs[id]
	if !ok {
		return nil, internalErrors.NewDocumentNotFoundError(id)
	}
	return doc.Clone(), nil
}

// Delete removes a document and records a tombstone in the changes feed.
func (ds *DocumentStore) Delete(ctx context.Context, id string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	if _, ok := ds.Docs[id]; !ok {
		return 0, internalErrors.NewDocumentNotFoundError(id)
	}
	ds.LastSeq++
	delete(ds.Docs, id)
	delete(ds.Seqs, id)
	ds.Tombstones[id] = ds.LastSeq
	return ds.LastSeq, nil
}

// List returns documents ordered by id, starting at offset, plus the total count.
// A negative limit returns everything after offset.
func (ds *DocumentStore) List(ctx context.Context, offset, limit int) ([]model.Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()

	ids := make([]string, 0, len(ds.Docs))
	for id := range ds.Docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < total {
		end = offset + limit
	}

	docs := make([]model.Document, 0, end-offset)
	for _, id := range ids[offset:end] {
		docs = append(docs, ds.Docs[id].Clone())
	}
	return docs, total, nil
}

// Count returns the number of stored documents.
func (ds *DocumentStore) Count() int {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	return len(ds.Docs)
}

// UpdateSeq returns the sequence of the latest write.
func (ds *DocumentStore) UpdateSeq() uint64 {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	return ds.LastSeq
}

// Changes returns up to limit changes with a sequence greater than since,
// in sequence order, and the sequence to resume from. A non-positive limit
// returns every pending change.
func (ds *DocumentStore) Changes(ctx context.Context, since uint64, limit int) ([]Change, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, since, err
	}
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()

	changes := make([]Change, 0)
	for id, seq := range ds.Seqs {
		if seq > since {
			changes = append(changes, Change{Seq: seq, ID: id, Doc: ds.Docs[id].Clone()})
		}
	}
	for id, seq := range ds.Tombstones {
		if seq > since {
			changes = append(changes, Change{Seq: seq, ID: id, Deleted: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Seq < changes[j].Seq })

	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
		return changes, changes[len(changes)-1].Seq, nil
	}

	next := since
	if ds.LastSeq > next {
		next = ds.LastSeq
	}
	return changes, next, nil
}

// gobDocumentStoreData is a helper struct for Gob encoding/decoding DocumentStore data.
// It excludes the mutex.
type gobDocumentStoreData struct {
	Docs       map[string]model.Document
	Seqs       map[string]uint64
	Tombstones map[string]uint64
	LastSeq    uint64
}

// GobEncode implements the gob.GobEncoder interface for DocumentStore.
func (ds *DocumentStore) GobEncode() ([]byte, error) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()

	storableDocs := make(map[string]model.Document, len(ds.Docs))
	for id, doc := range ds.Docs {
		storableDoc := make(model.Document, len(doc))
		for k, val := range doc {
			storableDoc[k] = storableValue(val)
		}
		storableDocs[id] = storableDoc
	}

	dataToEncode := gobDocumentStoreData{
		Docs:       storableDocs,
		Seqs:       ds.Seqs,
		Tombstones: ds.Tombstones,
		LastSeq:    ds.LastSeq,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode document store data: %w", err)
	}
	return buf.Bytes(), nil
}

// storableValue converts all-string []interface{} values to []string.
func storableValue(val interface{}) interface{} {
	interfaceSlice, ok := val.([]interface{})
	if !ok {
		return val
	}
	stringSlice := make([]string, 0, len(interfaceSlice))
	for _, item := range interfaceSlice {
		strItem, isString := item.(string)
		if !isString {
			return val // Store as is, relying on gob.Register
		}
		stringSlice = append(stringSlice, strItem)
	}
	return stringSlice
}

// GobDecode implements the gob.GobDecoder interface for DocumentStore.
func (ds *DocumentStore) GobDecode(data []byte) error {
	decodedData := gobDocumentStoreData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode document store data: %w", err)
	}

	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	ds.Docs = decodedData.Docs
	ds.Seqs = decodedData.Seqs
	ds.Tombstones = decodedData.Tombstones
	ds.LastSeq = decodedData.LastSeq

	// Ensure maps are initialized if they were nil after decoding
	if ds.Docs == nil {
		ds.Docs = make(map[string]model.Document)
	}
	if ds.Seqs == nil {
		ds.Seqs = make(map[string]uint64)
	}
	if ds.Tombstones == nil {
		ds.Tombstones = make(map[string]uint64)
	}
	return nil
}
