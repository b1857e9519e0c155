package model

import "time"

// Search types recorded for analytics.
const (
	SearchTypeFresh       = "fresh"        // index refreshed before the query
	SearchTypeStaleOK     = "stale_ok"     // index queried as it was
	SearchTypeUpdateAfter = "update_after" // queried, then refreshed in the background
	SearchTypeFiltered    = "filtered"     // queried an index restricted by a filter
)

// SearchEvent represents a single search event for analytics tracking
type SearchEvent struct {
	Fields       string        `json:"fields"` // sorted field names, comma separated
	Query        string        `json:"query"`
	SearchType   string        `json:"search_type"`
	ResponseTime time.Duration `json:"response_time"`
	ResultCount  int           `json:"result_count"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularSearch represents aggregated data for popular search terms
type PopularSearch struct {
	Query       string `json:"query"`
	SearchCount int    `json:"search_count"`
}

// FieldUsage counts searches per field combination.
type FieldUsage struct {
	Fields      string `json:"fields"`
	SearchCount int    `json:"search_count"`
}

// ResponseTimeDistribution represents response time distribution buckets
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// SearchTypeStats represents statistics for different search types
type SearchTypeStats struct {
	Fresh       int `json:"fresh"`
	StaleOK     int `json:"stale_ok"`
	UpdateAfter int `json:"update_after"`
	Filtered    int `json:"filtered"`
}

// SearchPerformanceHourly represents hourly search performance data
type SearchPerformanceHourly struct {
	Hour            int   `json:"hour"`
	SearchCount     int   `json:"search_count"`
	AvgResponseTime int64 `json:"avg_response_time"` // in milliseconds
}

// AnalyticsDashboard represents the complete analytics dashboard data
type AnalyticsDashboard struct {
	// Summary metrics
	TotalSearches         int     `json:"total_searches"`
	SearchesChangePercent float64 `json:"searches_change_percent"`
	AvgResponseTime       int64   `json:"avg_response_time"` // in milliseconds
	ResponseTimeChange    string  `json:"response_time_change"`
	TotalDocuments        int     `json:"total_documents"`
	ActiveIndexes         int     `json:"active_indexes"`
	StaleIndexes          int     `json:"stale_indexes"`

	// Detailed analytics
	SearchPerformance24h     []SearchPerformanceHourly `json:"search_performance_24h"`
	PopularSearches          []PopularSearch           `json:"popular_searches"`
	FieldUsage               []FieldUsage              `json:"field_usage"`
	ResponseTimeDistribution ResponseTimeDistribution  `json:"response_time_distribution"`
	SearchTypes              SearchTypeStats           `json:"search_types"`
}
