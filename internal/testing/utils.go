// Package testing provides utilities and helpers for testing the search engine.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/quicksearch/config"
	"github.com/gcbaptista/quicksearch/internal/engine"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// TestConfig returns a config whose data lives in a per-test temp dir.
func TestConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.IndexBackend = backend
	cfg.Storage.SQLitePath = ""
	config.ApplyDefaults(cfg)
	return cfg
}

// CreateTestEngine creates an engine over a temp dir with the in-memory
// index store. The engine is closed when the test ends.
func CreateTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(TestConfig(t, config.BackendMemory), nil)
	require.NoError(t, err, "Failed to create test engine")

	t.Cleanup(func() {
		_ = eng.Close()
	})
	return eng
}

// MovieFields is the field list the fixture documents are searched with.
func MovieFields() []model.FieldBoost {
	return model.FieldBoostsFromMap(map[string]float64{
		"title":       2,
		"content":     1,
		"description": 1,
	})
}

// AddTestDocuments stores a small set of movie documents.
func AddTestDocuments(t *testing.T, eng services.DocumentManager) []model.Document {
	t.Helper()
	docs := []model.Document{
		{
			"_id":         "doc1",
			"title":       "The Matrix",
			"content":     "A computer programmer discovers reality is a simulation",
			"description": "Sci-fi action movie about virtual reality",
			"category":    "movie",
			"year":        1999,
			"popularity":  9.5,
		},
		{
			"_id":         "doc2",
			"title":       "Inception",
			"content":     "A thief enters people's dreams to steal secrets",
			"description": "Mind-bending thriller about dream manipulation",
			"category":    "movie",
			"year":        2010,
			"popularity":  9.2,
		},
		{
			"_id":         "doc3",
			"title":       "Interstellar",
			"content":     "Astronauts travel through a wormhole to save humanity",
			"description": "Space epic about time dilation and love",
			"category":    "movie",
			"year":        2014,
			"popularity":  8.8,
		},
		{
			"_id":         "doc4",
			"title":       "Planet Earth",
			"content":     "The wildlife and wild places of our planet",
			"description": "Nature documentary series",
			"category":    "documentary",
			"year":        2006,
			"popularity":  9.4,
		},
	}

	_, err := eng.PutDocuments(context.Background(), docs)
	require.NoError(t, err, "Failed to add test documents")
	return docs
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it completes or times out
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				if opts.LogProgress {
					t.Logf("Job %s completed successfully in %v", jobID, job.CompletedAt.Sub(job.CreatedAt))
				}
				return job
			case model.JobStatusFailed, model.JobStatusCancelled:
				t.Fatalf("Job %s ended as %s: %s", jobID, job.Status, job.Error)
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	if expectedIndex != "" {
		assert.Equal(t, expectedIndex, job.Index, "Job index should match")
	}
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name          string
	Options       services.SearchOptions
	ExpectedIDs   []string // in rank order; nil skips the check
	ExpectedCount int
	ValidateFunc  func(t *testing.T, resp *model.SearchResponse)
}

// RunSearchTests runs a suite of search tests against a searcher
func RunSearchTests(t *testing.T, searcher services.Searcher, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			resp, err := searcher.Search(context.Background(), tt.Options)
			require.NoError(t, err, "Search should not fail")

			assert.Len(t, resp.Rows, tt.ExpectedCount, "Result count should match")
			if tt.ExpectedIDs != nil {
				ids := make([]string, len(resp.Rows))
				for i, row := range resp.Rows {
					ids[i] = row.ID
				}
				assert.Equal(t, tt.ExpectedIDs, ids, "Result order should match")
			}

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, resp)
			}
		})
	}
}
