package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/quicksearch/internal/analytics"
	"github.com/gcbaptista/quicksearch/internal/engine"
	testutil "github.com/gcbaptista/quicksearch/internal/testing"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	eng := testutil.CreateTestEngine(t)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	SetupRoutes(router, eng, analytics.NewService(eng, "", nil), nil)
	return router, eng
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSearch(t *testing.T, w *httptest.ResponseRecorder) model.SearchResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), w.Body.String())
	return apiErr
}

func rowIDs(resp model.SearchResponse) []string {
	ids := make([]string, len(resp.Rows))
	for i, row := range resp.Rows {
		ids[i] = row.ID
	}
	return ids
}

func TestHealthCheckHandler(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := performRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestPutDocumentsHandler(t *testing.T) {
	router, eng := setupTestRouter(t)

	t.Run("array of documents", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", []map[string]interface{}{
			{"_id": "a", "title": "alpha"},
			{"_id": " b ", "title": "beta"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(2), body["document_count"])
		assert.Equal(t, float64(2), body["update_seq"])

		// ids are trimmed
		w = performRequest(router, http.MethodGet, "/documents/b", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("single document", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", map[string]interface{}{"_id": "c", "title": "gamma"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("missing id", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", []map[string]interface{}{{"title": "no id"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decodeError(t, w)
		assert.Equal(t, ErrorCodeValidationFailed, apiErr.Code)
		require.Len(t, apiErr.Details, 1)
		assert.Equal(t, "documents[0]._id", apiErr.Details[0].Field)
	})

	t.Run("non-string id", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", map[string]interface{}{"_id": 7})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty array", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", "[]")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("scalar body", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", `"text"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeInvalidRequest, decodeError(t, w).Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/documents", `{"_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeInvalidJSON, decodeError(t, w).Code)
	})

	_, total, err := eng.ListDocuments(t.Context(), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestDocumentHandlers(t *testing.T) {
	router, eng := setupTestRouter(t)
	testutil.AddTestDocuments(t, eng)

	t.Run("get", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/documents/doc2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, "Inception", doc["title"])
	})

	t.Run("get missing", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/documents/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, ErrorCodeDocumentNotFound, decodeError(t, w).Code)
	})

	t.Run("list", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/documents?offset=1&limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Documents []map[string]interface{} `json:"documents"`
			Total     int                      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 4, body.Total)
		require.Len(t, body.Documents, 2)
		assert.Equal(t, "doc2", body.Documents[0]["_id"])
		assert.Equal(t, "doc3", body.Documents[1]["_id"])
	})

	t.Run("list with bad params", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/documents?limit=ten", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = performRequest(router, http.MethodGet, "/documents?offset=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := performRequest(router, http.MethodDelete, "/documents/doc4", nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = performRequest(router, http.MethodGet, "/documents/doc4", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = performRequest(router, http.MethodDelete, "/documents/doc4", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchHandler(t *testing.T) {
	router, eng := setupTestRouter(t)
	testutil.AddTestDocuments(t, eng)

	t.Run("fields as list", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "matrix",
			"fields": []string{"title", "content"},
		})
		resp := decodeSearch(t, w)
		assert.Equal(t, []string{"doc1"}, rowIDs(resp))
		assert.Greater(t, resp.Rows[0].Score, 0.0)
	})

	t.Run("query alias and boosts", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"query":  "reality",
			"fields": map[string]float64{"content": 1, "description": 3},
		})
		resp := decodeSearch(t, w)
		assert.Equal(t, []string{"doc1"}, rowIDs(resp))
	})

	t.Run("mm as number and string", func(t *testing.T) {
		all := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "matrix inception",
			"fields": []string{"title"},
			"mm":     "50%",
		})
		assert.ElementsMatch(t, []string{"doc1", "doc2"}, rowIDs(decodeSearch(t, all)))

		none := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "matrix inception",
			"fields": []string{"title"},
			"mm":     100,
		})
		assert.Empty(t, decodeSearch(t, none).Rows)
	})

	t.Run("include docs and highlighting", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":                 "wormhole",
			"fields":            []string{"content"},
			"include_docs":      true,
			"highlighting":      true,
			"highlighting_pre":  "[",
			"highlighting_post": "]",
		})
		resp := decodeSearch(t, w)
		require.Len(t, resp.Rows, 1)
		assert.Equal(t, "Interstellar", resp.Rows[0].Doc["title"])
		assert.Contains(t, resp.Rows[0].Highlighting["content"], "[wormhole]")
	})

	t.Run("limit and skip", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "matrix inception interstellar",
			"fields": []string{"title"},
			"mm":     "30%",
			"limit":  1,
			"skip":   1,
		})
		assert.Len(t, decodeSearch(t, w).Rows, 1)
	})

	t.Run("filter", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "simulation planet",
			"fields": []string{"content"},
			"mm":     "50%",
			"filter": map[string]interface{}{
				"filters": []map[string]interface{}{{"field": "category", "operator": "eq", "value": "documentary"}},
			},
		})
		assert.Equal(t, []string{"doc4"}, rowIDs(decodeSearch(t, w)))
	})

	t.Run("stop words only", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
			"q":      "the and of",
			"fields": []string{"title"},
		})
		assert.JSONEq(t, `{"rows":[]}`, w.Body.String())
	})

	t.Run("build and destroy answer ok", func(t *testing.T) {
		for _, flag := range []string{"build", "destroy"} {
			w := performRequest(router, http.MethodPost, "/_search", map[string]interface{}{
				"fields": []string{"title"},
				flag:     true,
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		cases := map[string]map[string]interface{}{
			"fields":        {"q": "matrix", "fields": "title"},
			"mm":            {"q": "matrix", "fields": []string{"title"}, "mm": true},
			"filter":        {"q": "matrix", "fields": []string{"title"}, "filter": map[string]interface{}{"operator": "XOR"}},
			"missing":       {"q": "matrix"},
			"stale":         {"q": "matrix", "fields": []string{"title"}, "stale": "later"},
			"language":      {"q": "matrix", "fields": []string{"title"}, "language": "xx"},
			"boost":         {"q": "matrix", "fields": map[string]float64{"title": -1}},
			"empty segment": {"q": "matrix", "fields": []string{"author."}},
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				w := performRequest(router, http.MethodPost, "/_search", body)
				assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			})
		}
	})
}

func TestIndexAndJobHandlers(t *testing.T) {
	router, eng := setupTestRouter(t)
	testutil.AddTestDocuments(t, eng)

	w := performRequest(router, http.MethodPost, "/_build", map[string]interface{}{
		"fields": []string{"title"},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	job := testutil.WaitForJobCompletion(t, eng, accepted.JobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeBuildIndex, "")

	w = performRequest(router, http.MethodGet, "/jobs/"+accepted.JobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched model.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, model.JobStatusCompleted, fetched.Status)

	w = performRequest(router, http.MethodGet, "/indexes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Indexes []model.IndexInfo `json:"indexes"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, job.Index, listed.Indexes[0].Identity)
	assert.False(t, listed.Indexes[0].Stale)

	w = performRequest(router, http.MethodGet, "/indexes/"+job.Index+"/jobs?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), accepted.JobID)

	w = performRequest(router, http.MethodDelete, "/indexes/"+job.Index, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	testutil.WaitForJobCompletion(t, eng, accepted.JobID, testutil.DefaultJobPollingOptions())

	w = performRequest(router, http.MethodGet, "/indexes", nil)
	assert.JSONEq(t, `{"indexes":[],"total":0}`, w.Body.String())

	w = performRequest(router, http.MethodDelete, "/indexes/not-an-index", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPost, "/_build", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeJobNotFound, decodeError(t, w).Code)

	w = performRequest(router, http.MethodGet, "/jobs/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var metrics struct {
		Metrics struct {
			Created   int64 `json:"jobs_created"`
			Completed int64 `json:"jobs_completed"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, int64(2), metrics.Metrics.Created)
	assert.Equal(t, int64(2), metrics.Metrics.Completed)
}

func TestClosedEngineUnavailable(t *testing.T) {
	router, eng := setupTestRouter(t)
	require.NoError(t, eng.Close())

	w := performRequest(router, http.MethodGet, "/documents/doc1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrorCodeUnavailable, decodeError(t, w).Code)
}

func TestMiddleware(t *testing.T) {
	t.Run("request size limit", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestSizeLimitMiddleware(16))
		SetupRoutes(router, testutil.CreateTestEngine(t), nil, nil)

		w := performRequest(router, http.MethodPut, "/documents",
			`{"_id":"a","title":"`+strings.Repeat("x", 64)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, ErrorCodeTooLarge, decodeError(t, w).Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		router, _ := setupTestRouter(t)
		req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
		req.Header.Set(requestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
		assert.Equal(t, "req-42", decodeError(t, w).RequestID)
	})

	t.Run("cors preflight", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSMiddleware())
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := performRequest(router, http.MethodOptions, "/health", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAnalyticsHandler(t *testing.T) {
	router, eng := setupTestRouter(t)
	testutil.AddTestDocuments(t, eng)

	for _, body := range []map[string]interface{}{
		{"q": "matrix", "fields": []string{"title"}},
		{"q": "matrix", "fields": []string{"title"}, "stale": "ok"},
		{"q": "inception", "fields": []string{"title"}, "filter": map[string]interface{}{"filters": []interface{}{}}},
		{"fields": []string{"title"}, "build": true},
	} {
		w := performRequest(router, http.MethodPost, "/_search", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := performRequest(router, http.MethodGet, "/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dashboard model.AnalyticsDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))

	assert.Equal(t, 3, dashboard.TotalSearches)
	assert.Equal(t, 4, dashboard.TotalDocuments)
	assert.Equal(t, 2, dashboard.ActiveIndexes)
	require.NotEmpty(t, dashboard.PopularSearches)
	assert.Equal(t, model.PopularSearch{Query: "matrix", SearchCount: 2}, dashboard.PopularSearches[0])
	assert.Equal(t, model.SearchTypeStats{Fresh: 1, StaleOK: 1, Filtered: 1}, dashboard.SearchTypes)
}

func TestAnalyticsDisabled(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testutil.CreateTestEngine(t), nil, nil)

	w := performRequest(router, http.MethodGet, "/analytics", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestEngineSearchSuite(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.AddTestDocuments(t, eng)

	movies := func(q string) services.SearchOptions {
		return services.SearchOptions{Query: q, Fields: testutil.MovieFields()}
	}
	withDocs := movies("wormhole")
	withDocs.IncludeDocs = true

	testutil.RunSearchTests(t, eng, []testutil.SearchTestCase{
		{Name: "title match", Options: movies("matrix"), ExpectedIDs: []string{"doc1"}, ExpectedCount: 1},
		{Name: "stemmed match", Options: movies("dreams"), ExpectedIDs: []string{"doc2"}, ExpectedCount: 1},
		{Name: "all terms required", Options: movies("virtual reality"), ExpectedIDs: []string{"doc1"}, ExpectedCount: 1},
		{Name: "no match", Options: movies("submarine"), ExpectedIDs: []string{}, ExpectedCount: 0},
		{
			Name:          "include docs",
			Options:       withDocs,
			ExpectedCount: 1,
			ValidateFunc: func(t *testing.T, resp *model.SearchResponse) {
				assert.Equal(t, "Interstellar", resp.Rows[0].Doc["title"])
			},
		},
	})
}
