package index

import (
	"bytes"
	"encoding/gob"
	"slices"
	"sync"
)

// View holds the materialized rows of one index identity in memory, keyed
// by row key. Rows under a key stay ordered by document id.
type View struct {
	Mu         sync.RWMutex
	Rows       map[string][]Row    // row key -> rows
	DocKeys    map[string][]string // document id -> keys it emitted
	Checkpoint uint64              // last change sequence applied
}

// NewView returns an empty view.
func NewView() *View {
	return &View{
		Rows:    make(map[string][]Row),
		DocKeys: make(map[string][]string),
	}
}

// Apply replaces the rows of every document in batch and advances the
// checkpoint. Later entries for the same document win.
func (v *View) Apply(batch []DocRows, checkpoint uint64) {
	v.Mu.Lock()
	defer v.Mu.Unlock()

	for _, doc := range batch {
		v.removeDocLocked(doc.ID)
		if len(doc.Rows) == 0 {
			continue
		}

		keys := make([]string, 0, len(doc.Rows))
		touched := make(map[string]struct{}, len(doc.Rows))
		for _, row := range doc.Rows {
			v.Rows[row.Key] = append(v.Rows[row.Key], row)
			if _, ok := touched[row.Key]; !ok {
				touched[row.Key] = struct{}{}
				keys = append(keys, row.Key)
			}
		}
		for _, key := range keys {
			slices.SortStableFunc(v.Rows[key], RowsByKey)
		}
		v.DocKeys[doc.ID] = keys
	}

	if checkpoint > v.Checkpoint {
		v.Checkpoint = checkpoint
	}
}

func (v *View) removeDocLocked(docID string) {
	for _, key := range v.DocKeys[docID] {
		kept := v.Rows[key][:0]
		for _, row := range v.Rows[key] {
			if row.ID != docID {
				kept = append(kept, row)
			}
		}
		if len(kept) == 0 {
			delete(v.Rows, key)
		} else {
			v.Rows[key] = kept
		}
	}
	delete(v.DocKeys, docID)
}

// Query returns the rows stored under each key, in the order the keys are
// given. The returned rows are copies.
func (v *View) Query(keys []string) []Row {
	v.Mu.RLock()
	defer v.Mu.RUnlock()

	result := make([]Row, 0)
	for _, key := range keys {
		result = append(result, v.Rows[key]...)
	}
	return result
}

// CurrentCheckpoint returns the last applied change sequence.
func (v *View) CurrentCheckpoint() uint64 {
	v.Mu.RLock()
	defer v.Mu.RUnlock()
	return v.Checkpoint
}

// Stats returns the number of indexed documents and stored rows.
func (v *View) Stats() (docs int, rows int) {
	v.Mu.RLock()
	defer v.Mu.RUnlock()
	for _, list := range v.Rows {
		rows += len(list)
	}
	return len(v.DocKeys), rows
}

// gobViewData is a helper struct for Gob encoding/decoding View data.
// It excludes the mutex.
type gobViewData struct {
	Rows       map[string][]Row
	DocKeys    map[string][]string
	Checkpoint uint64
}

// GobEncode implements the gob.GobEncoder interface for View.
func (v *View) GobEncode() ([]byte, error) {
	v.Mu.RLock() // Ensure consistent data during encoding
	defer v.Mu.RUnlock()

	dataToEncode := gobViewData{
		Rows:       v.Rows,
		DocKeys:    v.DocKeys,
		Checkpoint: v.Checkpoint,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for View.
func (v *View) GobDecode(data []byte) error {
	decodedData := gobViewData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return err
	}

	v.Mu.Lock() // Ensure exclusive access during decoding
	defer v.Mu.Unlock()

	v.Rows = decodedData.Rows
	v.DocKeys = decodedData.DocKeys
	v.Checkpoint = decodedData.Checkpoint

	// Ensure maps are initialized if they were nil after decoding (e.g. from an empty view)
	if v.Rows == nil {
		v.Rows = make(map[string][]Row)
	}
	if v.DocKeys == nil {
		v.DocKeys = make(map[string][]string)
	}
	return nil
}
