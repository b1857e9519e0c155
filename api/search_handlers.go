package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/internal/filter"
	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// SearchRequest is the JSON body of /_search and /_build. Fields may be a
// list of names or a name→boost object; mm may be a string ("75%") or a
// number.
type SearchRequest struct {
	Q                string          `json:"q"`
	Query            string          `json:"query"`
	Fields           json.RawMessage `json:"fields"`
	Language         string          `json:"language"`
	MinimumMatch     json.RawMessage `json:"mm"`
	Limit            *int            `json:"limit"`
	Skip             int             `json:"skip"`
	IncludeDocs      bool            `json:"include_docs"`
	Highlighting     bool            `json:"highlighting"`
	HighlightingPre  string          `json:"highlighting_pre"`
	HighlightingPost string          `json:"highlighting_post"`
	Stale            string          `json:"stale"`
	Destroy          bool            `json:"destroy"`
	Build            bool            `json:"build"`
	Filter           json.RawMessage `json:"filter"`
}

// ToOptions converts the request into engine search options.
func (r *SearchRequest) ToOptions() (services.SearchOptions, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	opts := services.SearchOptions{
		Query:            r.Query,
		Language:         r.Language,
		Limit:            r.Limit,
		Skip:             r.Skip,
		IncludeDocs:      r.IncludeDocs,
		Highlighting:     r.Highlighting,
		HighlightingPre:  r.HighlightingPre,
		HighlightingPost: r.HighlightingPost,
		Stale:            r.Stale,
		Destroy:          r.Destroy,
		Build:            r.Build,
	}
	if opts.Query == "" {
		opts.Query = r.Q
	}

	fields, err := parseFields(r.Fields)
	if err != nil {
		result.AddError("fields", err.Error())
	}
	opts.Fields = fields

	mm, err := parseMinimumMatch(r.MinimumMatch)
	if err != nil {
		result.AddError("mm", err.Error())
	}
	opts.MinimumMatch = mm

	if !isNull(r.Filter) {
		expr, err := filter.Parse(r.Filter)
		if err != nil {
			result.AddError("filter", err.Error())
		} else {
			opts.Filter = expr
		}
	}

	return opts, result
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseFields(raw json.RawMessage) ([]model.FieldBoost, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return model.FieldBoostsFromList(list), nil
	}
	var boosts map[string]float64
	if err := json.Unmarshal(raw, &boosts); err == nil {
		return model.FieldBoostsFromMap(boosts), nil
	}
	return nil, fmt.Errorf("expected a list of field names or an object of field boosts")
}

func parseMinimumMatch(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		s = strconv.FormatFloat(f, 'f', -1, 64)
		return &s, nil
	}
	return nil, fmt.Errorf("expected a percentage string or a number")
}

// SearchHandler runs a search. Depending on the request it may also build
// or destroy the selected index instead.
func (api *API) SearchHandler(c *gin.Context) {
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	opts, result := req.ToOptions()
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	startTime := time.Now()
	resp, err := api.engine.Search(c.Request.Context(), opts)
	if err != nil {
		api.sendEngineError(c, "search", err)
		return
	}
	api.trackSearch(opts, resp, time.Since(startTime))
	api.logger.Debug("search served",
		zap.String("query", opts.Query), zap.Int("rows", len(resp.Rows)), zap.Bool("ok", resp.OK))
	c.JSON(http.StatusOK, resp)
}
