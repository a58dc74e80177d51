package metering

import (
	"time"

	"github.com/shopspring/decimal"
)

// Capacity is the number of metrics retained. Older entries are dropped first.
const Capacity = 1000

// Metric is one recorded API usage event.
type Metric struct {
	ID        string          `json:"id"`
	APIKeyID  string          `json:"api_key_id"`
	Timestamp time.Time       `json:"timestamp"`
	Cost      decimal.Decimal `json:"cost"`
	Tokens    int64           `json:"tokens"`
	AgentID   string          `json:"agent_id,omitempty"`
}

// CreateMetricInput holds the caller-supplied fields of a metric. Key and
// agent ids are stored as given and never checked against other stores.
type CreateMetricInput struct {
	APIKeyID string          `json:"api_key_id"`
	Cost     decimal.Decimal `json:"cost"`
	Tokens   int64           `json:"tokens"`
	AgentID  string          `json:"agent_id,omitempty"`
}

// KeyUsage aggregates the metrics recorded against one API key.
type KeyUsage struct {
	APIKeyID string          `json:"api_key_id"`
	Requests int64           `json:"requests"`
	Cost     decimal.Decimal `json:"cost"`
	Tokens   int64           `json:"tokens"`
}

// UsageSummary holds aggregate metrics for a set of metrics.
type UsageSummary struct {
	TotalRequests int64           `json:"total_requests"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalTokens   int64           `json:"total_tokens"`
	ByKey         []KeyUsage      `json:"by_key"`
}

// UsageQuery filters metrics. Zero fields match everything.
type UsageQuery struct {
	APIKeyID string    `json:"api_key_id,omitempty"`
	AgentID  string    `json:"agent_id,omitempty"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Limit    int       `json:"limit"`
}

// State is the persisted state of the metrics store.
type State struct {
	Metrics []Metric `json:"metrics"`
}
