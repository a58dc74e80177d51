// Package usage records API usage events across the metrics and agent stores.
package usage

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/metering"
)

// Observer is told about every recorded event.
type Observer interface {
	ObserveUsage(cost decimal.Decimal, tokens int64)
	ObserveCreditWarning(apiKeyID string)
}

// Event is one API call to be recorded.
type Event struct {
	APIKeyID string          `json:"api_key_id"`
	Cost     decimal.Decimal `json:"cost"`
	Tokens   int64           `json:"tokens"`
	AgentID  string          `json:"agent_id,omitempty"`
}

// Result reports what each store recorded.
type Result struct {
	Metric   metering.Metric    `json:"metric"`
	Credit   agent.CreditUpdate `json:"credit"`
	Activity agent.Activity     `json:"activity"`
}

// Recorder writes usage into the metrics store and the agent store. Each
// store commits on its own; there is no rollback if a later step is never
// reached.
type Recorder struct {
	metrics  *metering.Store
	agents   *agent.Store
	observer Observer
}

// NewRecorder creates a Recorder over the two stores.
func NewRecorder(metrics *metering.Store, agents *agent.Store) *Recorder {
	return &Recorder{metrics: metrics, agents: agents}
}

// SetObserver installs an observer for recorded events.
func (r *Recorder) SetObserver(o Observer) {
	r.observer = o
}

// RecordAPIUsage appends a metric, charges the key and agent, and logs an
// api_call activity, in that order. Unknown key or agent ids are recorded in
// the metric and skipped by the agent store.
func (r *Recorder) RecordAPIUsage(ev Event) Result {
	var res Result

	res.Metric = r.metrics.AddMetric(metering.CreateMetricInput{
		APIKeyID: ev.APIKeyID,
		Cost:     ev.Cost,
		Tokens:   ev.Tokens,
		AgentID:  ev.AgentID,
	})

	res.Credit = r.agents.UpdateCreditUsage(ev.APIKeyID, ev.Cost, ev.AgentID)

	res.Activity = r.agents.AddActivity(agent.CreateActivityInput{
		Type:    agent.ActivityAPICall,
		Message: fmt.Sprintf("API call recorded: $%s / %d tokens", ev.Cost.StringFixed(2), ev.Tokens),
		AgentID: ev.AgentID,
		Metadata: map[string]any{
			"api_key_id": ev.APIKeyID,
			"cost":       ev.Cost.InexactFloat64(),
			"tokens":     float64(ev.Tokens),
		},
	})

	if !res.Credit.KeyFound {
		slog.Debug("usage recorded against unknown api key", "api_key_id", ev.APIKeyID)
	}
	if r.observer != nil {
		r.observer.ObserveUsage(ev.Cost, ev.Tokens)
		if res.Credit.Warning != nil {
			r.observer.ObserveCreditWarning(ev.APIKeyID)
		}
	}
	return res
}
