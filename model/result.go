package model

import "encoding/json"

// ScoredResult is one row of a search response.
type ScoredResult struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"`
	Doc          Document          `json:"doc,omitempty"`
	Highlighting map[string]string `json:"highlighting,omitempty"`
}

// SearchResponse is either a page of rows (queries) or an acknowledgement
// (destroy and build requests).
type SearchResponse struct {
	Rows []ScoredResult
	OK   bool
}

// MarshalJSON renders {"ok":true} for acknowledgements and {"rows":[...]}
// otherwise, never emitting a null rows array.
func (r SearchResponse) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(struct {
			OK bool `json:"ok"`
		}{OK: true})
	}
	rows := r.Rows
	if rows == nil {
		rows = []ScoredResult{}
	}
	return json.Marshal(struct {
		Rows []ScoredResult `json:"rows"`
	}{Rows: rows})
}

// UnmarshalJSON accepts both response shapes.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Rows []ScoredResult `json:"rows"`
		OK   bool           `json:"ok"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Rows = raw.Rows
	r.OK = raw.OK
	return nil
}
