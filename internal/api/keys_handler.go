package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/agent"
)

// keysHandler groups API key and credit limit handlers. Key material is
// masked in every response.
type keysHandler struct {
	store *agent.Store
}

func newKeysHandler(store *agent.Store) *keysHandler {
	return &keysHandler{store: store}
}

// keyView is the masked form of an API key with its usage derivations.
type keyView struct {
	agent.APIKey
	UsagePercent     decimal.Decimal `json:"usage_percent"`
	ApproachingLimit bool            `json:"approaching_limit"`
}

func viewKey(k agent.APIKey) keyView {
	return keyView{
		APIKey:           k.Masked(),
		UsagePercent:     agent.KeyUsagePercent(k).Round(2),
		ApproachingLimit: agent.ApproachingLimit(k),
	}
}

// ListKeys handles GET /api/v1/keys.
func (h *keysHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.store.APIKeys()

	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, viewKey(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":   views,
		"totals": agent.KeyTotals(keys),
	})
}

// CreateKey handles POST /api/v1/keys.
func (h *keysHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var input agent.CreateAPIKeyInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := agent.ValidateCreateAPIKey(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	k := h.store.AddAPIKey(input)
	auditLog(r, "create", "api_key", k.ID, "name", k.Name, "provider", k.Provider)

	writeJSON(w, http.StatusCreated, viewKey(k))
}

// UpdateKey handles PUT /api/v1/keys/{id}.
func (h *keysHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input agent.UpdateAPIKeyInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := agent.ValidateUpdateAPIKey(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	k, ok := h.store.UpdateAPIKey(id, input)
	if !ok {
		writeNotFound(w, "api key")
		return
	}
	auditLog(r, "update", "api_key", id)

	writeJSON(w, http.StatusOK, viewKey(k))
}

// DeleteKey handles DELETE /api/v1/keys/{id}.
func (h *keysHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.DeleteAPIKey(id) {
		writeNotFound(w, "api key")
		return
	}
	auditLog(r, "delete", "api_key", id)

	w.WriteHeader(http.StatusNoContent)
}

// ListCreditLimits handles GET /api/v1/credit-limits.
func (h *keysHandler) ListCreditLimits(w http.ResponseWriter, r *http.Request) {
	limits := h.store.CreditLimits()
	if limits == nil {
		limits = []agent.CreditLimit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"credit_limits": limits})
}

// CreateCreditLimit handles POST /api/v1/credit-limits.
func (h *keysHandler) CreateCreditLimit(w http.ResponseWriter, r *http.Request) {
	var input agent.CreateCreditLimitInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := agent.ValidateCreateCreditLimit(input); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	cl := h.store.AddCreditLimit(input)
	auditLog(r, "create", "credit_limit", cl.ID, "period", cl.Period)

	writeJSON(w, http.StatusCreated, cl)
}
