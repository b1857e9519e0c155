package services

import (
	"context"

	"github.com/gcbaptista/quicksearch/index"
	"github.com/gcbaptista/quicksearch/internal/filter"
	"github.com/gcbaptista/quicksearch/internal/jobs"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/store"
)

// Staleness modes accepted by SearchOptions.Stale.
const (
	StaleNone        = ""             // refresh the index before querying
	StaleOK          = "ok"           // query the index as it is
	StaleUpdateAfter = "update_after" // query, then refresh in the background
)

// Highlighting defaults.
const (
	DefaultHighlightPre  = "<strong>"
	DefaultHighlightPost = "</strong>"
)

// SearchOptions is a single search request. Fields and Language together
// with the filter source select the index; everything else shapes the query.
type SearchOptions struct {
	Query            string             `json:"query"`
	Fields           []model.FieldBoost `json:"fields"`
	Language         string             `json:"language,omitempty"`          // defaults to "en"
	MinimumMatch     *string            `json:"mm,omitempty"`                // e.g. "75%"; nil means every term must match
	Limit            *int               `json:"limit,omitempty"`             // nil or negative: no limit
	Skip             int                `json:"skip,omitempty"`              // rows to drop from the front
	IncludeDocs      bool               `json:"include_docs,omitempty"`      // attach full documents
	Highlighting     bool               `json:"highlighting,omitempty"`      // attach highlighted field text
	HighlightingPre  string             `json:"highlighting_pre,omitempty"`  // defaults to <strong>
	HighlightingPost string             `json:"highlighting_post,omitempty"` // defaults to </strong>
	Stale            string             `json:"stale,omitempty"`             // "", "ok" or "update_after"
	Destroy          bool               `json:"destroy,omitempty"`           // drop the index and return {ok:true}
	Build            bool               `json:"build,omitempty"`             // build the index now and return {ok:true}
	Filter           filter.Filter      `json:"-"`                           // restricts indexed documents
}

// IndexStore persists the rows of every index identity. Implementations must
// answer QueryPostings in the order of the requested keys, with rows under one
// key ordered by document id.
type IndexStore interface {
	// UpsertPostings replaces the rows of every document in batch and records
	// checkpoint as the last applied change sequence, atomically.
	UpsertPostings(ctx context.Context, identity string, batch []index.DocRows, checkpoint uint64) error
	QueryPostings(ctx context.Context, identity string, keys []string) ([]index.Row, error)
	Checkpoint(ctx context.Context, identity string) (uint64, error)
	Destroy(ctx context.Context, identity string) error
}

// DocumentReader fetches documents by id. Missing documents yield an error
// matching errors.ErrDocumentNotFound.
type DocumentReader interface {
	Get(ctx context.Context, id string) (model.Document, error)
}

// DocumentStore is the host document database an index is built from.
type DocumentStore interface {
	DocumentReader
	Changes(ctx context.Context, since uint64, limit int) ([]store.Change, uint64, error)
}

// Searcher runs searches.
type Searcher interface {
	Search(ctx context.Context, opts SearchOptions) (*model.SearchResponse, error)
}

// DocumentManager manages the documents of the host store.
type DocumentManager interface {
	PutDocuments(ctx context.Context, docs []model.Document) (uint64, error)
	GetDocument(ctx context.Context, id string) (model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]model.Document, int, error)
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(index string, status *model.JobStatus) []*model.Job
	JobMetrics() jobs.MetricsSnapshot
}

// IndexManager lists persisted indexes and maintains them in the background.
type IndexManager interface {
	Indexes(ctx context.Context) ([]model.IndexInfo, error)
	BuildAsync(opts SearchOptions) (string, error)
	DestroyAsync(identity string) (string, error)
}

// SearchEngine is everything the HTTP API needs.
type SearchEngine interface {
	Searcher
	DocumentManager
	IndexManager
	JobManager
}
