package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alecgard/clawdeck/internal/skill"
)

// skillsHandler groups marketplace, installed skill and execution handlers.
type skillsHandler struct {
	store *skill.Store
}

func newSkillsHandler(store *skill.Store) *skillsHandler {
	return &skillsHandler{store: store}
}

// listingView is a marketplace listing with its install state.
type listingView struct {
	skill.Listing
	Installed bool `json:"installed"`
}

// SearchMarketplace handles GET /api/v1/marketplace?q=&category=.
func (h *skillsHandler) SearchMarketplace(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	listings := skill.Search(skill.Catalog(), params.Get("q"), params.Get("category"))

	views := make([]listingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, listingView{Listing: l, Installed: h.store.IsInstalled(l.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": views})
}

// ListSkills handles GET /api/v1/skills.
func (h *skillsHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills := h.store.Skills()
	if skills == nil {
		skills = []skill.Skill{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": skills})
}

// InstallSkill handles POST /api/v1/skills/{id}/install. A fresh install
// answers 201; installing again answers 200 with the existing skill.
func (h *skillsHandler) InstallSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	listing, ok := skill.LookupListing(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", skill.ErrUnknownListing.Error())
		return
	}

	sk, installed, err := h.store.Install(r.Context(), listing)
	if err != nil {
		writeStoreError(w, "install skill", err)
		return
	}

	status := http.StatusOK
	if installed {
		status = http.StatusCreated
		auditLog(r, "install", "skill", id, "version", sk.Version, "path", sk.InstallPath)
	}
	writeJSON(w, status, sk)
}

// UninstallSkill handles DELETE /api/v1/skills/{id}.
func (h *skillsHandler) UninstallSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.store.Uninstall(r.Context(), id)
	if err != nil {
		writeStoreError(w, "uninstall skill", err)
		return
	}
	if !removed {
		writeNotFound(w, "skill")
		return
	}
	auditLog(r, "uninstall", "skill", id)

	w.WriteHeader(http.StatusNoContent)
}

// EnableSkill handles POST /api/v1/skills/{id}/enable.
func (h *skillsHandler) EnableSkill(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// DisableSkill handles POST /api/v1/skills/{id}/disable.
func (h *skillsHandler) DisableSkill(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *skillsHandler) toggle(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")

	action, set := "disable", h.store.Disable
	if enabled {
		action, set = "enable", h.store.Enable
	}
	if !set(id) {
		writeNotFound(w, "skill")
		return
	}
	auditLog(r, action, "skill", id)

	sk, _ := h.store.Skill(id)
	writeJSON(w, http.StatusOK, sk)
}

// UpdateSkill handles POST /api/v1/skills/{id}/update.
func (h *skillsHandler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sk, ok, err := h.store.Update(r.Context(), id)
	if err != nil {
		writeStoreError(w, "update skill", err)
		return
	}
	if !ok {
		writeNotFound(w, "skill")
		return
	}
	auditLog(r, "update", "skill", id, "version", sk.Version)

	writeJSON(w, http.StatusOK, sk)
}

// ConfigureSkill handles PUT /api/v1/skills/{id}/config. The body replaces
// the whole configuration mapping.
func (h *skillsHandler) ConfigureSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var config map[string]any
	if err := readJSON(r, &config); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if config == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", skill.ErrConfigRequired.Error())
		return
	}

	sk, ok := h.store.Configure(id, config)
	if !ok {
		writeNotFound(w, "skill")
		return
	}
	auditLog(r, "configure", "skill", id, "keys", len(config))

	writeJSON(w, http.StatusOK, sk)
}

type setEnvRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetEnvVar handles POST /api/v1/skills/{id}/env.
func (h *skillsHandler) SetEnvVar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setEnvRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := skill.ValidateEnvKey(req.Key); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	sk, ok := h.store.SetEnvVar(id, req.Key, req.Value)
	if !ok {
		writeNotFound(w, "skill")
		return
	}
	// Values are never logged.
	auditLog(r, "set_env", "skill", id, "key", req.Key)

	writeJSON(w, http.StatusOK, sk)
}

// ListExecutions handles GET /api/v1/executions, newest first.
func (h *skillsHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		writeInputError(w, err)
		return
	}

	executions := h.store.Executions(limit)
	if executions == nil {
		executions = []skill.Execution{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": executions})
}

// TrackExecution handles POST /api/v1/executions.
func (h *skillsHandler) TrackExecution(w http.ResponseWriter, r *http.Request) {
	var input skill.TrackExecutionInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := skill.ValidateTrackExecution(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	id := h.store.TrackExecution(input)
	auditLog(r, "create", "execution", id, "skill_id", input.SkillID)

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateExecution handles PUT /api/v1/executions/{id}.
func (h *skillsHandler) UpdateExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input skill.UpdateExecutionInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := skill.ValidateUpdateExecution(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	e, ok := h.store.UpdateExecution(id, input)
	if !ok {
		writeNotFound(w, "execution")
		return
	}
	auditLog(r, "update", "execution", id, "status", e.Status)

	writeJSON(w, http.StatusOK, e)
}

// writeStoreError reports an operation the store could not start, which only
// happens when the request context is already done.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	slog.Warn("skill operation aborted", "op", op, "error", err)
	writeError(w, http.StatusServiceUnavailable, "request_cancelled", "failed to "+op)
}
