package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/agent"
)

// defaultActivityLimit is how many entries the activity feed shows.
const defaultActivityLimit = 20

// agentsHandler groups agent and activity HTTP handlers.
type agentsHandler struct {
	store *agent.Store
}

func newAgentsHandler(store *agent.Store) *agentsHandler {
	return &agentsHandler{store: store}
}

// createAgentRequest is the JSON body for creating an agent. A missing config
// is filled from the preset for the agent's type.
type createAgentRequest struct {
	Name        string          `json:"name"`
	Status      agent.Status    `json:"status"`
	Type        agent.Type      `json:"type"`
	Progress    int             `json:"progress"`
	APIKeys     []string        `json:"api_keys"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Config      *agent.Config   `json:"config"`
}

// agentView adds derived fields to an agent.
type agentView struct {
	agent.Agent
	CreditPercent decimal.Decimal `json:"credit_percent"`
}

func viewAgent(a agent.Agent) agentView {
	return agentView{Agent: a, CreditPercent: agent.CreditPercent(a).Round(2)}
}

// ListAgents handles GET /api/v1/agents, optionally filtered by ?status=.
func (h *agentsHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.store.Agents()

	if s := r.URL.Query().Get("status"); s != "" {
		status := agent.Status(s)
		if !agent.ValidStatus(status) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", agent.ErrInvalidStatus.Error())
			return
		}
		agents = agent.FilterByStatus(agents, status)
	}

	views := make([]agentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, viewAgent(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": views})
}

// CreateAgent handles POST /api/v1/agents.
func (h *agentsHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	input := agent.CreateAgentInput{
		Name:        req.Name,
		Status:      req.Status,
		Type:        req.Type,
		Progress:    req.Progress,
		APIKeys:     req.APIKeys,
		CreditLimit: req.CreditLimit,
	}
	if req.Config != nil {
		input.Config = *req.Config
	} else {
		input.Config = agent.Preset(req.Type)
	}

	if err := agent.ValidateCreateAgent(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	a := h.store.AddAgent(input)
	auditLog(r, "create", "agent", a.ID, "name", a.Name, "type", a.Type)

	writeJSON(w, http.StatusCreated, viewAgent(a))
}

// GetAgent handles GET /api/v1/agents/{id}.
func (h *agentsHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.store.Agent(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "agent")
		return
	}
	writeJSON(w, http.StatusOK, viewAgent(a))
}

// UpdateAgent handles PUT /api/v1/agents/{id}.
func (h *agentsHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input agent.UpdateAgentInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := agent.ValidateUpdateAgent(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	a, ok := h.store.UpdateAgent(id, input)
	if !ok {
		writeNotFound(w, "agent")
		return
	}
	auditLog(r, "update", "agent", id)

	writeJSON(w, http.StatusOK, viewAgent(a))
}

// DeleteAgent handles DELETE /api/v1/agents/{id}.
func (h *agentsHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.DeleteAgent(id) {
		writeNotFound(w, "agent")
		return
	}
	auditLog(r, "delete", "agent", id)

	w.WriteHeader(http.StatusNoContent)
}

type setStatusRequest struct {
	Status agent.Status `json:"status"`
}

// SetStatus handles POST /api/v1/agents/{id}/status.
func (h *agentsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setStatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if !agent.ValidStatus(req.Status) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", agent.ErrInvalidStatus.Error())
		return
	}

	a, ok := h.store.SetStatus(id, req.Status)
	if !ok {
		writeNotFound(w, "agent")
		return
	}
	auditLog(r, "set_status", "agent", id, "status", req.Status)

	writeJSON(w, http.StatusOK, viewAgent(a))
}

// GetPreset handles GET /api/v1/presets/{type}.
func (h *agentsHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	t := agent.Type(chi.URLParam(r, "type"))
	if !agent.ValidType(t) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", agent.ErrInvalidType.Error())
		return
	}
	writeJSON(w, http.StatusOK, agent.Preset(t))
}

// ListActivities handles GET /api/v1/activities. The feed defaults to the 20
// newest entries.
func (h *agentsHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultActivityLimit)
	if err != nil {
		writeInputError(w, err)
		return
	}

	activities := h.store.Activities(limit)
	if activities == nil {
		activities = []agent.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

// CreateActivity handles POST /api/v1/activities.
func (h *agentsHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var input agent.CreateActivityInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := agent.ValidateCreateActivity(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	act := h.store.AddActivity(input)
	auditLog(r, "create", "activity", act.ID, "type", act.Type)

	writeJSON(w, http.StatusCreated, act)
}
