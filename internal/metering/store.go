package metering

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/persist"
)

// Store keeps the most recent Capacity metrics, newest first. It is safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	metrics []Metric
	saver   persist.Saver

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty metrics store. A nil saver drops snapshots.
func NewStore(saver persist.Saver) *Store {
	if saver == nil {
		saver = persist.Discard
	}
	return &Store{
		saver: saver,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Restore replaces the contents with a persisted state, trimming it to
// Capacity.
func (s *Store) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = truncate(slices.Clone(st.Metrics))
}

// AddMetric stamps the metric with an id and the current time and puts it at
// the head of the list, dropping whatever falls beyond Capacity.
func (s *Store) AddMetric(in CreateMetricInput) Metric {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Metric{
		ID:        s.newID(),
		APIKeyID:  in.APIKeyID,
		Timestamp: s.now(),
		Cost:      in.Cost,
		Tokens:    in.Tokens,
		AgentID:   in.AgentID,
	}
	s.metrics = truncate(slices.Insert(s.metrics, 0, m))

	s.persistLocked()
	return m
}

// Clear removes every metric.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = nil
	s.persistLocked()
}

// Reset is an alias of Clear so every store offers the same reset verb.
func (s *Store) Reset() { s.Clear() }

// Metrics returns the retained metrics, newest first.
func (s *Store) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.metrics)
}

// Query returns the metrics matching q, newest first.
func (s *Store) Query(q UsageQuery) []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Metric
	for _, m := range s.metrics {
		if !q.matches(m) {
			continue
		}
		out = append(out, m)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

// Len returns the number of retained metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metrics)
}

func (s *Store) persistLocked() {
	s.saver.Save(persist.SlotMetrics, State{Metrics: slices.Clone(s.metrics)})
}

func (q UsageQuery) matches(m Metric) bool {
	if q.APIKeyID != "" && m.APIKeyID != q.APIKeyID {
		return false
	}
	if q.AgentID != "" && m.AgentID != q.AgentID {
		return false
	}
	if !q.From.IsZero() && m.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !m.Timestamp.Before(q.To) {
		return false
	}
	return true
}

func truncate(metrics []Metric) []Metric {
	if len(metrics) > Capacity {
		clear(metrics[Capacity:])
		metrics = metrics[:Capacity]
	}
	return metrics
}

// Summarize totals cost, tokens and request counts, overall and per API key.
// Keys are ordered by descending cost, then by id.
func Summarize(metrics []Metric) UsageSummary {
	sum := UsageSummary{TotalCost: decimal.Zero, ByKey: []KeyUsage{}}
	byKey := make(map[string]*KeyUsage)

	for _, m := range metrics {
		sum.TotalRequests++
		sum.TotalCost = sum.TotalCost.Add(m.Cost)
		sum.TotalTokens += m.Tokens

		ku, ok := byKey[m.APIKeyID]
		if !ok {
			ku = &KeyUsage{APIKeyID: m.APIKeyID, Cost: decimal.Zero}
			byKey[m.APIKeyID] = ku
		}
		ku.Requests++
		ku.Cost = ku.Cost.Add(m.Cost)
		ku.Tokens += m.Tokens
	}

	for _, ku := range byKey {
		sum.ByKey = append(sum.ByKey, *ku)
	}
	sort.Slice(sum.ByKey, func(i, j int) bool {
		if c := sum.ByKey[i].Cost.Cmp(sum.ByKey[j].Cost); c != 0 {
			return c > 0
		}
		return sum.ByKey[i].APIKeyID < sum.ByKey[j].APIKeyID
	})
	return sum
}
