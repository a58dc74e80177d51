package api

import (
	"net/http"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/metering"
	"github.com/alecgard/clawdeck/internal/skill"
)

// dashboardHandler assembles the overview page from all three stores. Each
// store is read on its own, so the figures are not a single atomic snapshot.
type dashboardHandler struct {
	agents  *agent.Store
	metrics *metering.Store
	skills  *skill.Store
}

func newDashboardHandler(agents *agent.Store, metrics *metering.Store, skills *skill.Store) *dashboardHandler {
	return &dashboardHandler{agents: agents, metrics: metrics, skills: skills}
}

type dashboardAgents struct {
	Total    int                  `json:"total"`
	ByStatus map[agent.Status]int `json:"by_status"`
	Running  []agentView          `json:"running"`
}

type dashboardKeys struct {
	Total            int          `json:"total"`
	Totals           agent.Totals `json:"totals"`
	ApproachingLimit []keyView    `json:"approaching_limit"`
}

type dashboardSkills struct {
	Installed  int `json:"installed"`
	Enabled    int `json:"enabled"`
	Executions int `json:"executions"`
}

type dashboard struct {
	Agents     dashboardAgents       `json:"agents"`
	Keys       dashboardKeys         `json:"keys"`
	Usage      metering.UsageSummary `json:"usage"`
	Skills     dashboardSkills       `json:"skills"`
	Activities []agent.Activity      `json:"activities"`
}

// GetDashboard handles GET /api/v1/dashboard.
func (h *dashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	agents := h.agents.Agents()
	keys := h.agents.APIKeys()
	skills := h.skills.Skills()

	d := dashboard{
		Agents: dashboardAgents{
			Total:    len(agents),
			ByStatus: agent.CountByStatus(agents),
			Running:  []agentView{},
		},
		Keys: dashboardKeys{
			Total:            len(keys),
			Totals:           agent.KeyTotals(keys),
			ApproachingLimit: []keyView{},
		},
		Usage:      metering.Summarize(h.metrics.Metrics()),
		Activities: h.agents.Activities(defaultActivityLimit),
	}

	for _, a := range agent.FilterByStatus(agents, agent.StatusRunning) {
		d.Agents.Running = append(d.Agents.Running, viewAgent(a))
	}
	for _, k := range keys {
		if agent.ApproachingLimit(k) {
			d.Keys.ApproachingLimit = append(d.Keys.ApproachingLimit, viewKey(k))
		}
	}

	d.Skills.Installed = len(skills)
	for _, sk := range skills {
		if sk.Enabled {
			d.Skills.Enabled++
		}
	}
	d.Skills.Executions = len(h.skills.Executions(0))

	if d.Activities == nil {
		d.Activities = []agent.Activity{}
	}
	writeJSON(w, http.StatusOK, d)
}
