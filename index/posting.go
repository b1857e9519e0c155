package index

import "strings"

// Key prefixes of the two row kinds. Posting keys sort before DocInfo keys.
const (
	PostingPrefix = "a"
	DocInfoPrefix = "b"
)

// NoField marks a posting of a single-field index, where the field is implied.
const NoField = -1

// PostingKey returns the row key under which term's postings are stored.
func PostingKey(term string) string {
	return PostingPrefix + term
}

// DocInfoKey returns the row key holding docID's norm vector.
func DocInfoKey(docID string) string {
	return DocInfoPrefix + docID
}

// Row is a single emitted index row. A posting row records one token
// occurrence: Key is "a"+term and Field the position of the field in the
// index's FieldBoost list (NoField when the index has a single field).
// A DocInfo row has Key "b"+docID and carries one norm per field.
type Row struct {
	Key   string
	ID    string    // source document id
	Field int       // postings only
	Norms []float64 // DocInfo only
}

// NewPosting builds a posting row for one occurrence of term in docID.
func NewPosting(term, docID string, field int) Row {
	return Row{Key: PostingKey(term), ID: docID, Field: field}
}

// NewDocInfo builds the DocInfo row of docID.
func NewDocInfo(docID string, norms []float64) Row {
	return Row{Key: DocInfoKey(docID), ID: docID, Field: NoField, Norms: norms}
}

// IsPosting reports whether r is a posting row.
func (r Row) IsPosting() bool {
	return strings.HasPrefix(r.Key, PostingPrefix)
}

// IsDocInfo reports whether r is a DocInfo row.
func (r Row) IsDocInfo() bool {
	return strings.HasPrefix(r.Key, DocInfoPrefix)
}

// Term returns the term of a posting row.
func (r Row) Term() string {
	return strings.TrimPrefix(r.Key, PostingPrefix)
}

// HasField reports whether the posting names its field explicitly.
func (r Row) HasField() bool {
	return r.Field != NoField
}

// DocRows groups every row emitted for one document. Applying a DocRows with
// no rows removes the document from the index.
type DocRows struct {
	ID   string
	Rows []Row
}

// RowsByKey orders rows the way a view returns them: by key, then by source
// document id, then by field.
func RowsByKey(a, b Row) int {
	if c := strings.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	if c := strings.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return a.Field - b.Field
}
