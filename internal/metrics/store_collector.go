package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreStats is a point-in-time count of store contents.
type StoreStats struct {
	AgentsByStatus map[string]int
	KeysByStatus   map[string]int
	SkillsEnabled  int
	SkillsDisabled int
	Activities     int
	APIMetrics     int
	Executions     int
}

// StoreStatFunc reads the current store counts.
type StoreStatFunc func() StoreStats

type storeCollector struct {
	statFunc StoreStatFunc

	agentsDesc     *prometheus.Desc
	keysDesc       *prometheus.Desc
	skillsDesc     *prometheus.Desc
	activitiesDesc *prometheus.Desc
	metricsDesc    *prometheus.Desc
	executionsDesc *prometheus.Desc
}

// NewStoreCollector creates a collector that exposes store sizes as gauges.
func NewStoreCollector(statFunc StoreStatFunc) prometheus.Collector {
	return &storeCollector{
		statFunc: statFunc,
		agentsDesc: prometheus.NewDesc(
			"clawdeck_agents",
			"Number of agents by status.",
			[]string{"status"}, nil,
		),
		keysDesc: prometheus.NewDesc(
			"clawdeck_api_keys",
			"Number of API keys by status.",
			[]string{"status"}, nil,
		),
		skillsDesc: prometheus.NewDesc(
			"clawdeck_skills_installed",
			"Number of installed skills by enabled state.",
			[]string{"enabled"}, nil,
		),
		activitiesDesc: prometheus.NewDesc(
			"clawdeck_activities",
			"Number of entries in the activity log.",
			nil, nil,
		),
		metricsDesc: prometheus.NewDesc(
			"clawdeck_api_metrics_retained",
			"Number of API usage metrics retained.",
			nil, nil,
		),
		executionsDesc: prometheus.NewDesc(
			"clawdeck_skill_executions_retained",
			"Number of skill executions retained.",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.agentsDesc
	ch <- c.keysDesc
	ch <- c.skillsDesc
	ch <- c.activitiesDesc
	ch <- c.metricsDesc
	ch <- c.executionsDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.statFunc()
	for status, n := range s.AgentsByStatus {
		ch <- prometheus.MustNewConstMetric(c.agentsDesc, prometheus.GaugeValue, float64(n), status)
	}
	for status, n := range s.KeysByStatus {
		ch <- prometheus.MustNewConstMetric(c.keysDesc, prometheus.GaugeValue, float64(n), status)
	}
	ch <- prometheus.MustNewConstMetric(c.skillsDesc, prometheus.GaugeValue, float64(s.SkillsEnabled), "true")
	ch <- prometheus.MustNewConstMetric(c.skillsDesc, prometheus.GaugeValue, float64(s.SkillsDisabled), "false")
	ch <- prometheus.MustNewConstMetric(c.activitiesDesc, prometheus.GaugeValue, float64(s.Activities))
	ch <- prometheus.MustNewConstMetric(c.metricsDesc, prometheus.GaugeValue, float64(s.APIMetrics))
	ch <- prometheus.MustNewConstMetric(c.executionsDesc, prometheus.GaugeValue, float64(s.Executions))
}
