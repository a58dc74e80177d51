package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metric collectors for the clawdeck server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter

	// Usage recording.
	UsageEventsTotal    prometheus.Counter
	UsageCostTotal      prometheus.Counter
	UsageTokensTotal    prometheus.Counter
	CreditWarningsTotal prometheus.Counter

	// Persistence.
	PersistFlushesTotal  *prometheus.CounterVec
	PersistFlushDuration prometheus.Histogram
	PersistSlotsWritten  prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawdeck_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawdeck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPRequestSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawdeck_http_request_size_bytes",
			Help:    "HTTP request size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawdeck_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_rate_limited_total",
			Help: "Total number of API writes rejected by the rate limiter.",
		}),

		UsageEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_usage_events_total",
			Help: "Total number of API usage events recorded.",
		}),

		UsageCostTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_usage_cost_total",
			Help: "Total cost of recorded API usage in currency units.",
		}),

		UsageTokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_usage_tokens_total",
			Help: "Total tokens of recorded API usage.",
		}),

		CreditWarningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_credit_warnings_total",
			Help: "Total number of API keys that crossed the credit warning threshold.",
		}),

		PersistFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawdeck_persist_flushes_total",
			Help: "Total number of state snapshot flushes.",
		}, []string{"status"}),

		PersistFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clawdeck_persist_flush_duration_seconds",
			Help:    "Duration of state snapshot flushes in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		PersistSlotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clawdeck_persist_slots_written_total",
			Help: "Total number of slot snapshots handed to the storage backend.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clawdeck_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.RateLimitedTotal,
		m.UsageEventsTotal,
		m.UsageCostTotal,
		m.UsageTokensTotal,
		m.CreditWarningsTotal,
		m.PersistFlushesTotal,
		m.PersistFlushDuration,
		m.PersistSlotsWritten,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// DBPoolStatFunc reports connection pool statistics of the postgres backend.
type DBPoolStatFunc func() (total, idle, acquired int32)

// RegisterDBPoolCollector exposes the postgres pool sizes as gauges.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	gauge := func(name, help string, pick func(total, idle, acquired int32) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(pick(statFunc()))
		})
	}
	m.registry.MustRegister(
		gauge("clawdeck_db_pool_total_conns", "Total number of connections in the DB pool.",
			func(total, _, _ int32) int32 { return total }),
		gauge("clawdeck_db_pool_idle_conns", "Number of idle connections in the DB pool.",
			func(_, idle, _ int32) int32 { return idle }),
		gauge("clawdeck_db_pool_acquired_conns", "Number of acquired connections in the DB pool.",
			func(_, _, acquired int32) int32 { return acquired }),
	)
}

// RegisterStoreCollector registers gauges read from the stores on scrape.
func (m *Metrics) RegisterStoreCollector(statFunc StoreStatFunc) {
	m.registry.MustRegister(NewStoreCollector(statFunc))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, pattern string, status int, duration time.Duration, reqSize, respSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(duration.Seconds())
	if reqSize > 0 {
		m.HTTPRequestSize.WithLabelValues(method, pattern).Observe(float64(reqSize))
	}
	m.HTTPResponseSize.WithLabelValues(method, pattern).Observe(float64(respSize))
}

// ObserveUsage records one usage event.
func (m *Metrics) ObserveUsage(cost decimal.Decimal, tokens int64) {
	m.UsageEventsTotal.Inc()
	if cost.IsPositive() {
		m.UsageCostTotal.Add(cost.InexactFloat64())
	}
	if tokens > 0 {
		m.UsageTokensTotal.Add(float64(tokens))
	}
}

// ObserveRateLimited counts a write rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitedTotal.Inc()
}

// ObserveCreditWarning counts a key crossing the warning threshold.
func (m *Metrics) ObserveCreditWarning(string) {
	m.CreditWarningsTotal.Inc()
}

// ObserveFlush records the outcome of a persistence flush.
func (m *Metrics) ObserveFlush(slots int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PersistFlushesTotal.WithLabelValues(status).Inc()
	m.PersistFlushDuration.Observe(duration.Seconds())
	m.PersistSlotsWritten.Add(float64(slots))
}
