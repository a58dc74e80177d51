package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/metering"
	"github.com/alecgard/clawdeck/internal/usage"
)

var errTimeParam = errors.New("from and to must be RFC3339 or YYYY-MM-DD")

// usageHandler groups usage recording and API metric handlers.
type usageHandler struct {
	store    *metering.Store
	recorder *usage.Recorder
}

func newUsageHandler(store *metering.Store, recorder *usage.Recorder) *usageHandler {
	return &usageHandler{store: store, recorder: recorder}
}

// parseTimeParam parses a date query param in YYYY-MM-DD or RFC3339 format.
func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// buildUsageQuery constructs a UsageQuery from ?api_key_id, ?agent_id, ?from,
// ?to and ?limit.
func buildUsageQuery(r *http.Request) (metering.UsageQuery, error) {
	params := r.URL.Query()
	q := metering.UsageQuery{
		APIKeyID: params.Get("api_key_id"),
		AgentID:  params.Get("agent_id"),
	}

	from, err := parseTimeParam(params.Get("from"))
	if err != nil {
		return q, errTimeParam
	}
	to, err := parseTimeParam(params.Get("to"))
	if err != nil {
		return q, errTimeParam
	}
	q.From, q.To = from, to

	limit, err := parseLimit(r, 0)
	if err != nil {
		return q, err
	}
	q.Limit = limit
	return q, nil
}

func validateEvent(ev usage.Event) error {
	if ev.APIKeyID == "" {
		return errAPIKeyIDRequired
	}
	if err := agent.ValidateCost(ev.Cost); err != nil {
		return err
	}
	if ev.Tokens < 0 {
		return errTokensNegative
	}
	return nil
}

// RecordUsage handles POST /api/v1/usage.
func (h *usageHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var ev usage.Event
	if err := readJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := validateEvent(ev); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	res := h.recorder.RecordAPIUsage(ev)
	res.Credit.Key = res.Credit.Key.Masked()

	auditLog(r, "record", "usage", res.Metric.ID,
		"api_key_id", ev.APIKeyID,
		"cost", ev.Cost.String(),
		"tokens", ev.Tokens,
		"warning", res.Credit.Warning != nil,
	)

	writeJSON(w, http.StatusCreated, res)
}

// ListMetrics handles GET /api/v1/api-metrics. The response carries the
// matching metrics and their summary.
func (h *usageHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	q, err := buildUsageQuery(r)
	if err != nil {
		writeInputError(w, err)
		return
	}

	metrics := h.store.Query(q)
	if metrics == nil {
		metrics = []metering.Metric{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": metrics,
		"summary": metering.Summarize(metrics),
	})
}

// ClearMetrics handles DELETE /api/v1/api-metrics.
func (h *usageHandler) ClearMetrics(w http.ResponseWriter, r *http.Request) {
	cleared := h.store.Len()
	h.store.Clear()
	auditLog(r, "clear", "api_metrics", "", "cleared", cleared)

	w.WriteHeader(http.StatusNoContent)
}
