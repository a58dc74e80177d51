package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/metering"
	"github.com/alecgard/clawdeck/internal/skill"
	"github.com/alecgard/clawdeck/internal/usage"
)

type testServer struct {
	handler http.Handler
	agents  *agent.Store
	metrics *metering.Store
	skills  *skill.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	agents := agent.NewStore(nil, nil)
	metrics := metering.NewStore(nil)
	skills := skill.NewStore(nil, "/opt/skills")
	return &testServer{
		handler: NewRouter(RouterDeps{
			Agents:     agents,
			APIMetrics: metrics,
			Skills:     skills,
			Recorder:   usage.NewRecorder(metrics, agents),
		}),
		agents:  agents,
		metrics: metrics,
		skills:  skills,
	}
}

// do sends a request with an optional JSON body and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorEnvelope](t, rec).Error.Code
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

func TestCreateAgent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/agents", map[string]any{
		"name":         "Researcher",
		"type":         "research",
		"credit_limit": "50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[agent.Agent](t, rec)
	if got.ID == "" || got.Status != agent.StatusIdle {
		t.Errorf("unexpected agent: %+v", got)
	}
	want := agent.Preset(agent.TypeResearch)
	if got.Config.Temperature != want.Temperature || got.Config.MaxTokens != want.MaxTokens || !slices.Equal(got.Config.Tools, want.Tools) {
		t.Errorf("expected research preset config, got %+v", got.Config)
	}
	if len(s.agents.Agents()) != 1 {
		t.Errorf("expected agent stored, got %d", len(s.agents.Agents()))
	}
}

func TestCreateAgent_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"bad json", `{"name":`, http.StatusBadRequest, "invalid_body"},
		{"missing name", map[string]any{"type": "research"}, http.StatusUnprocessableEntity, "validation_error"},
		{"bad type", map[string]any{"name": "x", "type": "nope"}, http.StatusUnprocessableEntity, "validation_error"},
		{"negative limit", map[string]any{"name": "x", "type": "custom", "credit_limit": -1}, http.StatusUnprocessableEntity, "validation_error"},
		{"bad temperature", map[string]any{
			"name": "x", "type": "custom",
			"config": map[string]any{"model": "gpt-4", "temperature": 3, "max_tokens": 100},
		}, http.StatusUnprocessableEntity, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/api/v1/agents", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, code)
			}
			if n := len(s.agents.Agents()); n != 0 {
				t.Errorf("expected no agent stored, got %d", n)
			}
		})
	}
}

func TestAgentLifecycle(t *testing.T) {
	s := newTestServer(t)
	a := s.agents.AddAgent(agent.CreateAgentInput{Name: "Worker", Type: agent.TypeAnalysis, Config: agent.Preset(agent.TypeAnalysis)})
	path := "/api/v1/agents/" + a.ID

	rec := s.do(t, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, path, map[string]any{"name": "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[agent.Agent](t, rec); got.Name != "Renamed" {
		t.Errorf("expected name Renamed, got %q", got.Name)
	}

	rec = s.do(t, http.MethodPost, path+"/status", map[string]any{"status": "running"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if got := decode[agent.Agent](t, rec); got.Status != agent.StatusRunning || got.Progress != 10 {
		t.Errorf("expected running at 10%%, got %s at %d", got.Status, got.Progress)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/agents?status=running", nil)
	list := decode[struct {
		Agents []agent.Agent `json:"agents"`
	}](t, rec)
	if len(list.Agents) != 1 {
		t.Errorf("expected 1 running agent, got %d", len(list.Agents))
	}

	rec = s.do(t, http.MethodDelete, path, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, path, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestAgentUnknownID(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/agents/missing", nil},
		{http.MethodPut, "/api/v1/agents/missing", map[string]any{"name": "x"}},
		{http.MethodDelete, "/api/v1/agents/missing", nil},
		{http.MethodPost, "/api/v1/agents/missing/status", map[string]any{"status": "failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", rec.Code)
			}
		})
	}
	if n := len(s.agents.Activities(0)); n != 0 {
		t.Errorf("unknown ids must not log activities, got %d", n)
	}
}

func TestGetPreset(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/presets/generation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[agent.Config](t, rec); got.Model != agent.Preset(agent.TypeGeneration).Model {
		t.Errorf("unexpected preset: %+v", got)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/presets/unknown", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown type, got %d", rec.Code)
	}
}

func TestActivities(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 25; i++ {
		s.agents.AddActivity(agent.CreateActivityInput{Type: agent.ActivityAPICall, Message: fmt.Sprintf("call %d", i)})
	}

	rec := s.do(t, http.MethodGet, "/api/v1/activities", nil)
	feed := decode[struct {
		Activities []agent.Activity `json:"activities"`
	}](t, rec)
	if len(feed.Activities) != defaultActivityLimit {
		t.Fatalf("expected %d activities, got %d", defaultActivityLimit, len(feed.Activities))
	}
	if feed.Activities[0].Message != "call 24" {
		t.Errorf("expected newest first, got %q", feed.Activities[0].Message)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/activities?limit=0", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for limit=0, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/activities", map[string]any{"type": "error", "message": "boom"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/activities", map[string]any{"type": "bogus", "message": "x"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad type, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Keys and credit limits
// ---------------------------------------------------------------------------

func TestKeysAreMasked(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/keys", map[string]any{
		"name":          "Primary",
		"key":           "sk-abcdefghijklmnop1234",
		"provider":      "openai",
		"monthly_limit": "100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "abcdefghijklmnop") {
		t.Errorf("response leaked key material: %s", rec.Body.String())
	}
	created := decode[agent.APIKey](t, rec)
	if !strings.HasSuffix(created.Key, "1234") {
		t.Errorf("expected masked key to keep last four characters, got %q", created.Key)
	}

	stored, ok := s.agents.APIKey(created.ID)
	if !ok || stored.Key != "sk-abcdefghijklmnop1234" {
		t.Errorf("store must keep the full key, got %q", stored.Key)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/keys", nil)
	if strings.Contains(rec.Body.String(), "abcdefghijklmnop") {
		t.Errorf("list leaked key material: %s", rec.Body.String())
	}
}

func TestKeyUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	k := s.agents.AddAPIKey(agent.CreateAPIKeyInput{Name: "k", Key: "sk-1234567890", Provider: agent.ProviderAnthropic, MonthlyLimit: decimal.NewFromInt(10)})

	rec := s.do(t, http.MethodPut, "/api/v1/keys/"+k.ID, map[string]any{"status": "inactive"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got, _ := s.agents.APIKey(k.ID); got.Status != agent.KeyInactive {
		t.Errorf("expected inactive, got %s", got.Status)
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/keys/"+k.ID, map[string]any{"provider": "nope"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad provider, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/v1/keys/"+k.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/v1/keys/"+k.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestCreditLimits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/credit-limits", map[string]any{
		"agent_id":               "a1",
		"limit":                  "25.50",
		"period":                 "weekly",
		"notification_threshold": 0.8,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/credit-limits", map[string]any{"limit": 1, "period": "weekly"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without target, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/credit-limits", nil)
	list := decode[struct {
		CreditLimits []agent.CreditLimit `json:"credit_limits"`
	}](t, rec)
	if len(list.CreditLimits) != 1 || !list.CreditLimits[0].Limit.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("unexpected credit limits: %+v", list.CreditLimits)
	}
}

// ---------------------------------------------------------------------------
// Usage and API metrics
// ---------------------------------------------------------------------------

func TestRecordUsage(t *testing.T) {
	s := newTestServer(t)
	k := s.agents.AddAPIKey(agent.CreateAPIKeyInput{Name: "k", Key: "sk-secret-material-9999", Provider: agent.ProviderOpenAI, MonthlyLimit: decimal.NewFromInt(100)})
	a := s.agents.AddAgent(agent.CreateAgentInput{Name: "a", Type: agent.TypeCustom, Config: agent.Preset(agent.TypeCustom)})

	rec := s.do(t, http.MethodPost, "/api/v1/usage", map[string]any{
		"api_key_id": k.ID,
		"cost":       "85",
		"tokens":     1200,
		"agent_id":   a.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "secret-material") {
		t.Errorf("usage response leaked key material")
	}

	res := decode[usage.Result](t, rec)
	if res.Credit.Warning == nil {
		t.Error("expected a credit warning when crossing 80%")
	}
	if s.metrics.Len() != 1 {
		t.Errorf("expected 1 metric, got %d", s.metrics.Len())
	}
	if got, _ := s.agents.Agent(a.ID); !got.CreditsUsed.Equal(decimal.NewFromInt(85)) {
		t.Errorf("expected agent charged 85, got %s", got.CreditsUsed)
	}
}

func TestRecordUsage_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing key", map[string]any{"cost": 1, "tokens": 1}},
		{"negative cost", map[string]any{"api_key_id": "k", "cost": -1, "tokens": 1}},
		{"negative tokens", map[string]any{"api_key_id": "k", "cost": 1, "tokens": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/api/v1/usage", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d", rec.Code)
			}
			if s.metrics.Len() != 0 {
				t.Error("rejected usage must not be recorded")
			}
		})
	}
}

func TestAPIMetricsQueryAndClear(t *testing.T) {
	s := newTestServer(t)
	s.metrics.AddMetric(metering.CreateMetricInput{APIKeyID: "k1", Cost: decimal.NewFromInt(2), Tokens: 10})
	s.metrics.AddMetric(metering.CreateMetricInput{APIKeyID: "k2", Cost: decimal.NewFromInt(3), Tokens: 20})
	s.metrics.AddMetric(metering.CreateMetricInput{APIKeyID: "k1", Cost: decimal.NewFromInt(4), Tokens: 30})

	rec := s.do(t, http.MethodGet, "/api/v1/api-metrics?api_key_id=k1", nil)
	body := decode[struct {
		Metrics []metering.Metric     `json:"metrics"`
		Summary metering.UsageSummary `json:"summary"`
	}](t, rec)
	if len(body.Metrics) != 2 {
		t.Fatalf("expected 2 metrics for k1, got %d", len(body.Metrics))
	}
	if !body.Summary.TotalCost.Equal(decimal.NewFromInt(6)) || body.Summary.TotalTokens != 40 {
		t.Errorf("unexpected summary: %+v", body.Summary)
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/api-metrics?from=yesterday", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad from, got %d", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, "/api/v1/api-metrics", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if s.metrics.Len() != 0 {
		t.Errorf("expected metrics cleared, got %d", s.metrics.Len())
	}
}

// ---------------------------------------------------------------------------
// Skills
// ---------------------------------------------------------------------------

func TestMarketplaceSearch(t *testing.T) {
	s := newTestServer(t)
	id := skill.Catalog()[0].ID
	if _, _, err := s.skills.Install(t.Context(), skill.Catalog()[0]); err != nil {
		t.Fatal(err)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/marketplace?category=all", nil)
	body := decode[struct {
		Listings []listingView `json:"listings"`
	}](t, rec)
	if len(body.Listings) != len(skill.Catalog()) {
		t.Fatalf("expected whole catalog, got %d", len(body.Listings))
	}
	for _, l := range body.Listings {
		if l.Installed != (l.ID == id) {
			t.Errorf("listing %s: installed = %v", l.ID, l.Installed)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/v1/marketplace?q=zzzz-no-match", nil)
	body = decode[struct {
		Listings []listingView `json:"listings"`
	}](t, rec)
	if len(body.Listings) != 0 {
		t.Errorf("expected no listings, got %d", len(body.Listings))
	}
}

func TestInstallSkillIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	id := skill.Catalog()[1].ID
	path := "/api/v1/skills/" + id + "/install"

	rec := s.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first install: expected 201, got %d", rec.Code)
	}
	first := decode[skill.Skill](t, rec)
	if first.InstallPath != "/opt/skills/"+id+"/" {
		t.Errorf("unexpected install path %q", first.InstallPath)
	}

	rec = s.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second install: expected 200, got %d", rec.Code)
	}
	if n := len(s.skills.Skills()); n != 1 {
		t.Errorf("expected one installed skill, got %d", n)
	}

	if rec := s.do(t, http.MethodPost, "/api/v1/skills/not-in-catalog/install", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown listing, got %d", rec.Code)
	}
}

func TestSkillOperations(t *testing.T) {
	s := newTestServer(t)
	listing := skill.Catalog()[2]
	if _, _, err := s.skills.Install(t.Context(), listing); err != nil {
		t.Fatal(err)
	}
	base := "/api/v1/skills/" + listing.ID

	if rec := s.do(t, http.MethodPost, base+"/disable", nil); rec.Code != http.StatusOK {
		t.Fatalf("disable: expected 200, got %d", rec.Code)
	}
	if sk, _ := s.skills.Skill(listing.ID); sk.Enabled {
		t.Error("expected skill disabled")
	}
	if rec := s.do(t, http.MethodPost, base+"/enable", nil); rec.Code != http.StatusOK {
		t.Fatalf("enable: expected 200, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, base+"/update", nil)
	if got := decode[skill.Skill](t, rec); got.Version != listing.Version+"-updated" {
		t.Errorf("expected updated version, got %q", got.Version)
	}

	rec = s.do(t, http.MethodPut, base+"/config", map[string]any{"depth": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("config: expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, base+"/config", "null"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("config null: expected 422, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/env", map[string]any{"key": "TOKEN", "value": "abc"})
	if got := decode[skill.Skill](t, rec); len(got.EnvVars) != 1 || got.EnvVars[0] != "TOKEN=abc" {
		t.Errorf("unexpected env vars %v", got.EnvVars)
	}
	if rec := s.do(t, http.MethodPost, base+"/env", map[string]any{"key": "A=B", "value": "x"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad env key: expected 422, got %d", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("uninstall: expected 204, got %d", rec.Code)
	}
	for _, p := range []string{"/enable", "/disable", "/update"} {
		if rec := s.do(t, http.MethodPost, base+p, nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s after uninstall: expected 404, got %d", p, rec.Code)
		}
	}
}

func TestExecutions(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/executions", map[string]any{
		"skill_id": "web-search",
		"input":    map[string]any{"q": "go"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id := decode[map[string]string](t, rec)["id"]

	rec = s.do(t, http.MethodPut, "/api/v1/executions/"+id, map[string]any{
		"status":       "completed",
		"completed_at": "2025-01-02T03:04:05Z",
		"credits_used": "0.25",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[skill.Execution](t, rec)
	if got.Status != skill.ExecutionCompleted || got.CompletedAt == nil {
		t.Errorf("unexpected execution: %+v", got)
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/executions/missing", map[string]any{"status": "failed"}); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/executions", map[string]any{"status": "pending"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without skill_id, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/executions?limit=5", nil)
	list := decode[struct {
		Executions []skill.Execution `json:"executions"`
	}](t, rec)
	if len(list.Executions) != 1 {
		t.Errorf("expected 1 execution, got %d", len(list.Executions))
	}
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	k := s.agents.AddAPIKey(agent.CreateAPIKeyInput{Name: "k", Key: "sk-dashboard-key-0001", Provider: agent.ProviderOpenAI, MonthlyLimit: decimal.NewFromInt(10)})
	a := s.agents.AddAgent(agent.CreateAgentInput{Name: "a", Type: agent.TypeCustom, Config: agent.Preset(agent.TypeCustom)})
	s.agents.SetStatus(a.ID, agent.StatusRunning)
	usage.NewRecorder(s.metrics, s.agents).RecordAPIUsage(usage.Event{APIKeyID: k.ID, Cost: decimal.NewFromInt(9), Tokens: 100})

	rec := s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "dashboard-key") {
		t.Error("dashboard leaked key material")
	}

	d := decode[dashboard](t, rec)
	if d.Agents.Total != 1 || len(d.Agents.Running) != 1 {
		t.Errorf("unexpected agent section: %+v", d.Agents)
	}
	if len(d.Keys.ApproachingLimit) != 1 {
		t.Errorf("expected key approaching limit, got %d", len(d.Keys.ApproachingLimit))
	}
	if d.Usage.TotalRequests != 1 || d.Usage.TotalTokens != 100 {
		t.Errorf("unexpected usage: %+v", d.Usage)
	}
	if len(d.Activities) == 0 {
		t.Error("expected activities in dashboard")
	}
}
