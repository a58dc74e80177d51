package api

import "net/http"

// manifest describes this server to dashboards that discover it through
// /.well-known/clawdeck.json.
type manifest struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Version        string            `json:"version"`
	APIBase        string            `json:"api_base"`
	StorageBackend string            `json:"storage_backend,omitempty"`
	Slots          []string          `json:"slots"`
	Endpoints      map[string]string `json:"endpoints"`
	Health         string            `json:"health"`
}

func newManifest(version, backend string, slots []string) manifest {
	if version == "" {
		version = "dev"
	}
	return manifest{
		Name:           "ClawDeck",
		Description:    "Agent dashboard state: agents, API keys, usage metrics and skills",
		Version:        version,
		APIBase:        "/api/v1",
		StorageBackend: backend,
		Slots:          slots,
		Endpoints: map[string]string{
			"dashboard":     "/api/v1/dashboard",
			"agents":        "/api/v1/agents",
			"activities":    "/api/v1/activities",
			"keys":          "/api/v1/keys",
			"credit_limits": "/api/v1/credit-limits",
			"usage":         "/api/v1/usage",
			"api_metrics":   "/api/v1/api-metrics",
			"marketplace":   "/api/v1/marketplace",
			"skills":        "/api/v1/skills",
			"executions":    "/api/v1/executions",
			"metrics":       "/metrics",
		},
		Health: "/health",
	}
}

// wellKnownHandler serves the manifest.
func wellKnownHandler(m manifest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m)
	}
}
