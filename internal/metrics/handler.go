package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the live metrics endpoint.
type Summary struct {
	Mode    string      `json:"mode"`
	HTTP    httpSummary `json:"http"`
	Usage   usageInfo   `json:"usage"`
	Persist persistInfo `json:"persist"`
	Store   storeInfo   `json:"store"`
	DB      dbInfo      `json:"db"`
	Server  serverInfo  `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"total_requests"`
	ErrorRate     float64 `json:"error_rate"`
	P50Latency    float64 `json:"p50_latency"`
	P95Latency    float64 `json:"p95_latency"`
	P99Latency    float64 `json:"p99_latency"`
	RateLimited   float64 `json:"rate_limited"`
}

type usageInfo struct {
	Events         float64 `json:"events"`
	Cost           float64 `json:"cost"`
	Tokens         float64 `json:"tokens"`
	CreditWarnings float64 `json:"credit_warnings"`
}

type persistInfo struct {
	TotalFlushes float64 `json:"total_flushes"`
	FlushErrors  float64 `json:"flush_errors"`
	SlotsWritten float64 `json:"slots_written"`
	P95Flush     float64 `json:"p95_flush"`
}

type storeInfo struct {
	Agents     float64 `json:"agents"`
	APIKeys    float64 `json:"api_keys"`
	Skills     float64 `json:"skills"`
	Activities float64 `json:"activities"`
	APIMetrics float64 `json:"api_metrics"`
	Executions float64 `json:"executions"`
}

type dbInfo struct {
	TotalConns    float64 `json:"total_conns"`
	IdleConns     float64 `json:"idle_conns"`
	AcquiredConns float64 `json:"acquired_conns"`
}

type serverInfo struct {
	StartTime     float64 `json:"start_time"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Handler returns an http.HandlerFunc that serves live metrics in JSON format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := m.Summarize()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// Summarize gathers the registry and condenses it into a Summary.
func (m *Metrics) Summarize() (Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Summary{}, err
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	start := gaugeValue(fam["clawdeck_server_start_time_seconds"])
	requests := fam["clawdeck_http_requests_total"]
	durations := fam["clawdeck_http_request_duration_seconds"]

	return Summary{
		Mode: "live",
		HTTP: httpSummary{
			TotalRequests: sumCounter(requests),
			ErrorRate:     computeErrorRate(requests),
			P50Latency:    histogramPercentile(durations, 0.50),
			P95Latency:    histogramPercentile(durations, 0.95),
			P99Latency:    histogramPercentile(durations, 0.99),
			RateLimited:   sumCounter(fam["clawdeck_rate_limited_total"]),
		},
		Usage: usageInfo{
			Events:         sumCounter(fam["clawdeck_usage_events_total"]),
			Cost:           sumCounter(fam["clawdeck_usage_cost_total"]),
			Tokens:         sumCounter(fam["clawdeck_usage_tokens_total"]),
			CreditWarnings: sumCounter(fam["clawdeck_credit_warnings_total"]),
		},
		Persist: persistInfo{
			TotalFlushes: sumCounter(fam["clawdeck_persist_flushes_total"]),
			FlushErrors:  counterWithLabel(fam["clawdeck_persist_flushes_total"], "status", "error"),
			SlotsWritten: sumCounter(fam["clawdeck_persist_slots_written_total"]),
			P95Flush:     histogramPercentile(fam["clawdeck_persist_flush_duration_seconds"], 0.95),
		},
		Store: storeInfo{
			Agents:     sumGauge(fam["clawdeck_agents"]),
			APIKeys:    sumGauge(fam["clawdeck_api_keys"]),
			Skills:     sumGauge(fam["clawdeck_skills_installed"]),
			Activities: gaugeValue(fam["clawdeck_activities"]),
			APIMetrics: gaugeValue(fam["clawdeck_api_metrics_retained"]),
			Executions: gaugeValue(fam["clawdeck_skill_executions_retained"]),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["clawdeck_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["clawdeck_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["clawdeck_db_pool_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     start,
			UptimeSeconds: float64(time.Now().Unix()) - start,
		},
	}, nil
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

func sumGauge(f *dto.MetricFamily) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetGauge().GetValue()
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	return ms[0].GetGauge().GetValue()
}

func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// computeErrorRate is the share of requests answered with a 4xx or 5xx code.
func computeErrorRate(f *dto.MetricFamily) float64 {
	var total, failed float64
	for _, m := range f.GetMetric() {
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				if code := lp.GetValue(); code != "" && code[0] >= '4' {
					failed += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return failed / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)

	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		if !math.IsInf(ub, 1) {
			buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
		}
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)
	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if float64(b.cumulativeCount) >= rank {
			inBucket := b.cumulativeCount - prevCount
			if inBucket == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(inBucket)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}

	// Rank falls in the +Inf bucket; report the largest finite bound.
	if len(buckets) > 0 {
		return buckets[len(buckets)-1].upperBound
	}
	return 0
}
