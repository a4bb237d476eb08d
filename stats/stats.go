// Package stats is the per-query counters shared by reference across every
// operator in a plan, mirroring original_source's QueryStatistics: time
// spent per stage, rows/columns read, cache hits/misses, and a message
// buffer for user-visible warnings.
package stats

import (
	"sync"
	"time"
)

// QueryStatistics accumulates counters for a single cursor's execution. It
// is safe for concurrent use because a cancellation check and an operator's
// own execute() may race across goroutines in future extensions, even
// though today's pull schedule is single-threaded.
type QueryStatistics struct {
	QueryID string

	mu sync.Mutex

	StartTime time.Time
	EndTime   time.Time

	TimeParsing     time.Duration
	TimeBinding     time.Duration
	TimePlanning    time.Duration
	TimeEvaluating  time.Duration
	TimeGrouping    time.Duration
	TimeDataRead    time.Duration

	RowsRead    int64
	ColumnsRead int64
	CacheHits   int64
	CacheMisses int64

	messages []string
}

func New(queryID string) *QueryStatistics {
	return &QueryStatistics{QueryID: queryID, StartTime: time.Now()}
}

func (s *QueryStatistics) AddMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *QueryStatistics) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *QueryStatistics) AddRowsRead(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RowsRead += n
}

func (s *QueryStatistics) AddColumnsRead(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ColumnsRead += n
}

func (s *QueryStatistics) AddCacheHit()  { s.mu.Lock(); s.CacheHits++; s.mu.Unlock() }
func (s *QueryStatistics) AddCacheMiss() { s.mu.Lock(); s.CacheMisses++; s.mu.Unlock() }

// AsMap renders the counters the way Cursor.stats exposes them.
func (s *QueryStatistics) AsMap() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return map[string]interface{}{
		"query_id":         s.QueryID,
		"time_parsing":     s.TimeParsing,
		"time_binding":     s.TimeBinding,
		"time_planning":    s.TimePlanning,
		"time_evaluating":  s.TimeEvaluating,
		"time_grouping":    s.TimeGrouping,
		"time_data_read":   s.TimeDataRead,
		"rows_read":        s.RowsRead,
		"columns_read":     s.ColumnsRead,
		"cache_hits":       s.CacheHits,
		"cache_misses":     s.CacheMisses,
		"elapsed":          end.Sub(s.StartTime),
	}
}

func (s *QueryStatistics) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = time.Now()
}
