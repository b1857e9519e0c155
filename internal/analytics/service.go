// Package analytics records search events and summarizes them for the
// dashboard endpoint.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/model"
)

const (
	// DataFile is the analytics file name inside the data dir.
	DataFile = "analytics.json"

	maxEventsToKeep = 10000
	popularLimit    = 5
)

// Inventory reports what the engine currently holds.
type Inventory interface {
	Indexes(ctx context.Context) ([]model.IndexInfo, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]model.Document, int, error)
}

// Service implements analytics tracking and reporting
type Service struct {
	mutex        sync.RWMutex
	events       []model.SearchEvent
	inventory    Inventory
	dataFilePath string
	now          func() time.Time
	logger       *zap.Logger
}

// NewService creates a new analytics service. Events are kept in memory and
// written to dataFilePath by Save; an empty path disables persistence.
func NewService(inventory Inventory, dataFilePath string, logger *zap.Logger) *Service {
	service := &Service{
		events:       make([]model.SearchEvent, 0),
		inventory:    inventory,
		dataFilePath: dataFilePath,
		now:          time.Now,
		logger:       logging.OrNop(logger),
	}

	if err := service.loadData(); err != nil {
		service.logger.Warn("failed to load analytics data, starting empty", zap.Error(err))
		service.events = make([]model.SearchEvent, 0)
	}

	return service
}

// TrackSearchEvent records a new search event
func (s *Service) TrackSearchEvent(event model.SearchEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData(ctx context.Context) (model.AnalyticsDashboard, error) {
	indexes, err := s.inventory.Indexes(ctx)
	if err != nil {
		return model.AnalyticsDashboard{}, fmt.Errorf("failed to list indexes: %w", err)
	}
	_, totalDocuments, err := s.inventory.ListDocuments(ctx, 0, 0)
	if err != nil {
		return model.AnalyticsDashboard{}, fmt.Errorf("failed to count documents: %w", err)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	last24hEvents := filterEventsByTimeRange(s.events, yesterday, now)
	prev24hEvents := filterEventsByTimeRange(s.events, yesterday.Add(-24*time.Hour), yesterday)
	lastWeekEvents := filterEventsByTimeRange(s.events, lastWeek, now)

	stale := 0
	for _, info := range indexes {
		if info.Stale {
			stale++
		}
	}

	return model.AnalyticsDashboard{
		TotalSearches:            len(last24hEvents),
		SearchesChangePercent:    calculateChangePercent(len(last24hEvents), len(prev24hEvents)),
		AvgResponseTime:          calculateAvgResponseTime(last24hEvents),
		ResponseTimeChange:       calculateResponseTimeChange(last24hEvents, prev24hEvents),
		TotalDocuments:           totalDocuments,
		ActiveIndexes:            len(indexes),
		StaleIndexes:             stale,
		SearchPerformance24h:     getHourlyPerformance(last24hEvents),
		PopularSearches:          getPopularSearches(lastWeekEvents),
		FieldUsage:               getFieldUsage(lastWeekEvents),
		ResponseTimeDistribution: getResponseTimeDistribution(last24hEvents),
		SearchTypes:              getSearchTypeStats(last24hEvents),
	}, nil
}

// filterEventsByTimeRange returns events in (start, end]
func filterEventsByTimeRange(events []model.SearchEvent, start, end time.Time) []model.SearchEvent {
	var filtered []model.SearchEvent
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change between current and previous values
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// calculateResponseTimeChange calculates response time change trend
func calculateResponseTimeChange(current, previous []model.SearchEvent) string {
	currentAvg := calculateAvgResponseTime(current)
	previousAvg := calculateAvgResponseTime(previous)

	if previousAvg == 0 {
		return "stable"
	}

	change := float64(currentAvg-previousAvg) / float64(previousAvg)
	if change > 0.1 {
		return "up"
	} else if change < -0.1 {
		return "down"
	}
	return "stable"
}

// getHourlyPerformance returns hourly search performance for the last 24 hours
func getHourlyPerformance(events []model.SearchEvent) []model.SearchPerformanceHourly {
	hourlyData := make(map[int][]model.SearchEvent)
	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.SearchPerformanceHourly, 0, 24)
	for hour := 0; hour < 24; hour++ {
		events := hourlyData[hour]
		performance = append(performance, model.SearchPerformanceHourly{
			Hour:            hour,
			SearchCount:     len(events),
			AvgResponseTime: calculateAvgResponseTime(events),
		})
	}
	return performance
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders counts descending, ties by key.
func sortedCounts(counts map[string]int) []keyCount {
	result := make([]keyCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, keyCount{key: key, count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].count != result[j].count {
			return result[i].count > result[j].count
		}
		return result[i].key < result[j].key
	})
	return result
}

// getPopularSearches returns the most popular search terms
func getPopularSearches(events []model.SearchEvent) []model.PopularSearch {
	queryCounts := make(map[string]int)
	for _, event := range events {
		if event.Query != "" {
			queryCounts[event.Query]++
		}
	}

	popular := make([]model.PopularSearch, 0, popularLimit)
	for i, qc := range sortedCounts(queryCounts) {
		if i >= popularLimit {
			break
		}
		popular = append(popular, model.PopularSearch{Query: qc.key, SearchCount: qc.count})
	}
	return popular
}

// getFieldUsage counts searches per field combination
func getFieldUsage(events []model.SearchEvent) []model.FieldUsage {
	fieldCounts := make(map[string]int)
	for _, event := range events {
		fieldCounts[event.Fields]++
	}

	usage := make([]model.FieldUsage, 0, len(fieldCounts))
	for _, fc := range sortedCounts(fieldCounts) {
		usage = append(usage, model.FieldUsage{Fields: fc.key, SearchCount: fc.count})
	}
	return usage
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100

	return dist
}

// getSearchTypeStats returns statistics for different search types
func getSearchTypeStats(events []model.SearchEvent) model.SearchTypeStats {
	stats := model.SearchTypeStats{}
	for _, event := range events {
		switch event.SearchType {
		case model.SearchTypeFresh:
			stats.Fresh++
		case model.SearchTypeStaleOK:
			stats.StaleOK++
		case model.SearchTypeUpdateAfter:
			stats.UpdateAfter++
		case model.SearchTypeFiltered:
			stats.Filtered++
		}
	}
	return stats
}

// loadData loads analytics data from file
func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.dataFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read analytics file: %w", err)
	}

	if err := json.Unmarshal(data, &s.events); err != nil {
		return fmt.Errorf("failed to unmarshal analytics data: %w", err)
	}
	return nil
}

// Save writes the recorded events to the data file.
func (s *Service) Save() error {
	if s.dataFilePath == "" {
		return nil
	}

	s.mutex.RLock()
	data, err := json.Marshal(s.events)
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.dataFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create analytics directory: %w", err)
	}
	if err := os.WriteFile(s.dataFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	return nil
}
