package skill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type recordingSaver struct {
	mu    sync.Mutex
	saves []State
}

func (r *recordingSaver) Save(slot string, state any) {
	if slot != "openclaw-skills-storage" {
		panic("unexpected slot " + slot)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, state.(State))
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingSaver) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

func newTestStore(saver *recordingSaver) *Store {
	s := NewStore(saver, "")
	base := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("exec-%d", n)
	}
	return s
}

func mustListing(t *testing.T, id string) Listing {
	t.Helper()
	l, ok := LookupListing(id)
	if !ok {
		t.Fatalf("listing %q not in catalog", id)
	}
	return l
}

func TestInstall(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	ctx := context.Background()

	sk, installed, err := s.Install(ctx, mustListing(t, "telegram-bot"))
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !installed {
		t.Fatal("expected a fresh install")
	}
	if !sk.Installed || !sk.Enabled {
		t.Errorf("installed=%v enabled=%v", sk.Installed, sk.Enabled)
	}
	if sk.InstallPath != "~/.openclaw/skills/telegram-bot/" {
		t.Errorf("install path = %q", sk.InstallPath)
	}
	if sk.Version != "2.1.0" || sk.Repository != "clawhub/telegram-bot" || sk.Category != CategoryCommunication {
		t.Errorf("listing fields not copied: %+v", sk)
	}
	if len(sk.Dependencies) != 0 || len(sk.EnvVars) != 0 {
		t.Errorf("expected empty dependencies and env vars: %+v", sk)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	saver := &recordingSaver{}
	s := newTestStore(saver)
	ctx := context.Background()
	l := mustListing(t, "code-executor")

	first, _, _ := s.Install(ctx, l)
	second, installed, err := s.Install(ctx, l)
	if err != nil {
		t.Fatalf("second install: %v", err)
	}
	if installed {
		t.Error("second install reported a fresh install")
	}
	if !second.LastUpdated.Equal(first.LastUpdated) {
		t.Errorf("last_updated changed: %v -> %v", first.LastUpdated, second.LastUpdated)
	}
	if got := len(s.Skills()); got != 1 {
		t.Errorf("got %d skills, want 1", got)
	}
	if saver.count() != 1 {
		t.Errorf("got %d snapshots, want 1", saver.count())
	}
}

func TestInstallCancelled(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.Install(ctx, mustListing(t, "find-skills")); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if s.IsInstalled("find-skills") {
		t.Error("cancelled install left a skill behind")
	}
}

func TestInstallRoot(t *testing.T) {
	s := NewStore(nil, "/opt/skills/")
	if got := s.InstallPath("find-skills"); got != "/opt/skills/find-skills/" {
		t.Errorf("install path = %q", got)
	}
}

func TestUninstall(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	ctx := context.Background()
	s.Install(ctx, mustListing(t, "find-skills"))

	ok, err := s.Uninstall(ctx, "find-skills")
	if err != nil || !ok {
		t.Fatalf("uninstall = %v, %v", ok, err)
	}
	if s.IsInstalled("find-skills") {
		t.Error("skill still installed")
	}
	if ok, _ := s.Uninstall(ctx, "find-skills"); ok {
		t.Error("second uninstall matched")
	}
}

func TestEnableDisable(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	s.Install(context.Background(), mustListing(t, "ai-web-automation"))

	if !s.Disable("ai-web-automation") {
		t.Fatal("disable did not match")
	}
	if sk, _ := s.Skill("ai-web-automation"); sk.Enabled {
		t.Error("still enabled")
	}
	if !s.Enable("ai-web-automation") {
		t.Fatal("enable did not match")
	}
	if sk, _ := s.Skill("ai-web-automation"); !sk.Enabled {
		t.Error("still disabled")
	}
}

func TestUnknownSkillIsNoOp(t *testing.T) {
	saver := &recordingSaver{}
	s := newTestStore(saver)
	s.Install(context.Background(), mustListing(t, "telegram-bot"))
	before := s.Snapshot()
	saves := saver.count()

	if s.Enable("missing") || s.Disable("missing") {
		t.Error("enable/disable matched a missing id")
	}
	if _, ok, _ := s.Update(context.Background(), "missing"); ok {
		t.Error("update matched a missing id")
	}
	if _, ok := s.Configure("missing", map[string]any{"a": 1.0}); ok {
		t.Error("configure matched a missing id")
	}
	if _, ok := s.SetEnvVar("missing", "K", "V"); ok {
		t.Error("set env var matched a missing id")
	}
	if _, ok := s.UpdateExecution("missing", UpdateExecutionInput{}); ok {
		t.Error("update execution matched a missing id")
	}

	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("state changed after no-op calls")
	}
	if saver.count() != saves {
		t.Errorf("no-op calls persisted %d snapshots", saver.count()-saves)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	ctx := context.Background()
	installed, _, _ := s.Install(ctx, mustListing(t, "code-executor"))

	sk, ok, err := s.Update(ctx, "code-executor")
	if err != nil || !ok {
		t.Fatalf("update = %v, %v", ok, err)
	}
	if sk.Version != "1.7.0-updated" {
		t.Errorf("version = %q", sk.Version)
	}
	if !sk.LastUpdated.After(installed.LastUpdated) {
		t.Error("last_updated not refreshed")
	}

	sk, _, _ = s.Update(ctx, "code-executor")
	if sk.Version != "1.7.0-updated-updated" {
		t.Errorf("version after second update = %q", sk.Version)
	}
}

func TestConfigureAndEnvVars(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	s.Install(context.Background(), mustListing(t, "desearch-web-search"))

	cfg := map[string]any{"engine": "google", "max_results": 10.0}
	sk, ok := s.Configure("desearch-web-search", cfg)
	if !ok {
		t.Fatal("configure did not match")
	}
	cfg["engine"] = "mutated"
	if sk.ConfigSchema["engine"] != "google" {
		t.Errorf("config aliased caller map: %v", sk.ConfigSchema)
	}

	s.SetEnvVar("desearch-web-search", "API_KEY", "one")
	sk, _ = s.SetEnvVar("desearch-web-search", "API_KEY", "two")
	want := []string{"API_KEY=one", "API_KEY=two"}
	if !reflect.DeepEqual(sk.EnvVars, want) {
		t.Errorf("env vars = %v, want %v", sk.EnvVars, want)
	}
}

func TestTrackExecutionKeepsMostRecentHundred(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	var ids []string
	for i := 0; i < 150; i++ {
		ids = append(ids, s.TrackExecution(TrackExecutionInput{SkillID: "code-executor"}))
	}

	got := s.Executions(0)
	if len(got) != HistoryCapacity {
		t.Fatalf("got %d executions, want %d", len(got), HistoryCapacity)
	}
	for i, e := range got {
		if want := ids[149-i]; e.ID != want {
			t.Fatalf("position %d holds %s, want %s", i, e.ID, want)
		}
	}
	if got[0].Status != ExecutionPending {
		t.Errorf("default status = %q", got[0].Status)
	}
}

func TestUpdateExecution(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	id := s.TrackExecution(TrackExecutionInput{SkillID: "code-executor", AgentID: "a1", Status: ExecutionRunning, Input: json.RawMessage(`{"code":"print(1)"}`)})

	done := ExecutionCompleted
	at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	credits := decimal.RequireFromString("0.05")
	output := json.RawMessage(`"1"`)
	e, ok := s.UpdateExecution(id, UpdateExecutionInput{
		Status:      &done,
		CompletedAt: &at,
		Output:      &output,
		CreditsUsed: &credits,
	})
	if !ok {
		t.Fatal("update did not match")
	}
	if e.Status != ExecutionCompleted || e.CompletedAt == nil || !e.CompletedAt.Equal(at) {
		t.Errorf("unexpected execution %+v", e)
	}
	if string(e.Output) != `"1"` || string(e.Input) != `{"code":"print(1)"}` {
		t.Errorf("input %s output %s", e.Input, e.Output)
	}
	if !e.CreditsUsed.Equal(credits) {
		t.Errorf("credits = %s", e.CreditsUsed)
	}
}

func TestUpdateExecutionNullOutputKeepsValue(t *testing.T) {
	s := newTestStore(&recordingSaver{})
	id := s.TrackExecution(TrackExecutionInput{SkillID: "code-executor", Output: json.RawMessage(`{"lines":3}`)})

	var in UpdateExecutionInput
	if err := json.Unmarshal([]byte(`{"status":"completed","output":null}`), &in); err != nil {
		t.Fatal(err)
	}
	e, ok := s.UpdateExecution(id, in)
	if !ok {
		t.Fatal("update did not match")
	}
	if e.Status != ExecutionCompleted {
		t.Errorf("status = %q", e.Status)
	}
	if string(e.Output) != `{"lines":3}` {
		t.Errorf("output = %s, want it unchanged", e.Output)
	}
}

func TestInstalledSkillShapeSurvivesRestore(t *testing.T) {
	saver := &recordingSaver{}
	s := newTestStore(saver)
	fresh, _, err := s.Install(t.Context(), Catalog()[0])
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(saver.last())
	if err != nil {
		t.Fatal(err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	restored := NewStore(nil, "")
	restored.Restore(st)

	got, ok := restored.Skill(fresh.ID)
	if !ok {
		t.Fatal("skill missing after restore")
	}
	if got.EnvVars == nil || got.Dependencies == nil {
		t.Errorf("env_vars %#v dependencies %#v, want empty lists", got.EnvVars, got.Dependencies)
	}
	freshJSON, _ := json.Marshal(fresh)
	gotJSON, _ := json.Marshal(got)
	if !strings.Contains(string(gotJSON), `"env_vars":[]`) || !strings.Contains(string(freshJSON), `"env_vars":[]`) {
		t.Errorf("env_vars missing from encoded skill:\nfresh    %s\nrestored %s", freshJSON, gotJSON)
	}
}

func TestRestore(t *testing.T) {
	s := NewStore(nil, "")
	s.Restore(State{
		Skills:     []Skill{{ID: "telegram-bot", Installed: true}},
		Executions: make([]Execution, 130),
	})
	if !s.IsInstalled("telegram-bot") {
		t.Error("restored skill missing")
	}
	if got := len(s.Executions(0)); got != HistoryCapacity {
		t.Errorf("got %d executions, want %d", got, HistoryCapacity)
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateEnvKey("A=B"); !errors.Is(err, ErrEnvKeyInvalid) {
		t.Errorf("got %v", err)
	}
	if err := ValidateEnvKey("TOKEN"); err != nil {
		t.Errorf("got %v", err)
	}
	if err := ValidateTrackExecution(TrackExecutionInput{}); !errors.Is(err, ErrSkillIDRequired) {
		t.Errorf("got %v", err)
	}
	bad := ExecutionStatus("queued")
	if err := ValidateUpdateExecution(UpdateExecutionInput{Status: &bad}); !errors.Is(err, ErrInvalidExecutionState) {
		t.Errorf("got %v", err)
	}
}
