package skill

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alecgard/clawdeck/internal/persist"
)

// HistoryCapacity is the number of executions retained, newest first.
const HistoryCapacity = 100

// DefaultInstallRoot is where skills are installed when no root is configured.
const DefaultInstallRoot = "~/.openclaw/skills"

// Validation errors returned for caller-supplied skill fields.
var (
	ErrUnknownListing        = errors.New("no marketplace listing with that id")
	ErrEnvKeyInvalid         = errors.New("env var key must be non-empty and must not contain '='")
	ErrSkillIDRequired       = errors.New("skill_id is required")
	ErrInvalidExecutionState = errors.New("status must be one of: pending, running, completed, failed")
	ErrConfigRequired        = errors.New("config is required")
)

// Store owns installed skills and the execution history. It is safe for
// concurrent use.
type Store struct {
	mu          sync.Mutex
	skills      []Skill
	executions  []Execution
	saver       persist.Saver
	installRoot string

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty skill store that installs under installRoot. A
// nil saver drops snapshots.
func NewStore(saver persist.Saver, installRoot string) *Store {
	if saver == nil {
		saver = persist.Discard
	}
	if installRoot == "" {
		installRoot = DefaultInstallRoot
	}
	return &Store{
		saver:       saver,
		installRoot: installRoot,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Restore replaces the contents with a persisted state, trimming the
// execution history to HistoryCapacity.
func (s *Store) Restore(st State) {
	st = st.clone()
	for i := range st.Skills {
		if st.Skills[i].Dependencies == nil {
			st.Skills[i].Dependencies = []string{}
		}
		if st.Skills[i].EnvVars == nil {
			st.Skills[i].EnvVars = []string{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = st.Skills
	s.executions = truncate(st.Executions)
}

// Reset removes every installed skill and execution.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = nil
	s.executions = nil
	s.persistLocked()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Skills: s.skills, Executions: s.executions}.clone()
}

func (s *Store) persistLocked() {
	s.saver.Save(persist.SlotSkills, State{Skills: s.skills, Executions: s.executions}.clone())
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.skills, func(sk Skill) bool { return sk.ID == id })
}

// InstallPath returns where a skill with the given id is installed.
func (s *Store) InstallPath(id string) string {
	return strings.TrimSuffix(s.installRoot, "/") + "/" + path.Clean(id) + "/"
}

// Install adds an enabled skill built from the listing. Installing an id
// that is already present changes nothing and returns the existing record
// with installed set to false. Only a cancelled context makes it fail.
func (s *Store) Install(ctx context.Context, l Listing) (sk Skill, installed bool, err error) {
	if err := ctx.Err(); err != nil {
		return Skill{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(l.ID); i >= 0 {
		return s.skills[i].clone(), false, nil
	}

	sk = Skill{
		ID:           l.ID,
		Name:         l.Name,
		Description:  l.Description,
		Category:     l.Category,
		Author:       l.Author,
		Version:      l.Version,
		Installed:    true,
		Enabled:      true,
		InstallPath:  s.InstallPath(l.ID),
		Dependencies: []string{},
		EnvVars:      []string{},
		LastUpdated:  s.now(),
		Repository:   l.Repository,
	}
	s.skills = append(s.skills, sk)

	s.persistLocked()
	return sk.clone(), true, nil
}

// Uninstall removes the skill. It reports false when id is unknown.
func (s *Store) Uninstall(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.skills = slices.Delete(s.skills, i, i+1)

	s.persistLocked()
	return true, nil
}

// Enable turns the skill on. It reports false when id is unknown.
func (s *Store) Enable(id string) bool {
	return s.setEnabled(id, true)
}

// Disable turns the skill off. It reports false when id is unknown.
func (s *Store) Disable(id string) bool {
	return s.setEnabled(id, false)
}

func (s *Store) setEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.skills[i].Enabled = enabled

	s.persistLocked()
	return true
}

// Update marks the skill as updated: the version gains an "-updated" suffix
// and LastUpdated moves to now. Nothing is fetched.
func (s *Store) Update(ctx context.Context, id string) (Skill, bool, error) {
	if err := ctx.Err(); err != nil {
		return Skill{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Skill{}, false, nil
	}
	sk := &s.skills[i]
	sk.Version += "-updated"
	sk.LastUpdated = s.now()

	s.persistLocked()
	return sk.clone(), true, nil
}

// Configure replaces the skill's configuration mapping.
func (s *Store) Configure(id string, config map[string]any) (Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Skill{}, false
	}
	s.skills[i].ConfigSchema = cloneConfig(config)

	s.persistLocked()
	return s.skills[i].clone(), true
}

// SetEnvVar appends KEY=VALUE to the skill's environment. An existing entry
// for the same key is kept, so the list may hold duplicates.
func (s *Store) SetEnvVar(id, key, value string) (Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Skill{}, false
	}
	s.skills[i].EnvVars = append(s.skills[i].EnvVars, key+"="+value)

	s.persistLocked()
	return s.skills[i].clone(), true
}

// Skill returns the installed skill with the given id.
func (s *Store) Skill(id string) (Skill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Skill{}, false
	}
	return s.skills[i].clone(), true
}

// Skills returns the installed skills in installation order.
func (s *Store) Skills() []Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.skills, Skill.clone)
}

// IsInstalled reports whether a skill with the given id is installed.
func (s *Store) IsInstalled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// TrackExecution records a new execution started now and returns its id.
// The history keeps the HistoryCapacity most recent entries.
func (s *Store) TrackExecution(in TrackExecutionInput) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Execution{
		ID:          s.newID(),
		SkillID:     in.SkillID,
		AgentID:     in.AgentID,
		Status:      in.Status,
		StartedAt:   s.now(),
		Input:       slices.Clone(in.Input),
		Output:      slices.Clone(in.Output),
		Error:       in.Error,
		CreditsUsed: in.CreditsUsed,
	}
	if e.Status == "" {
		e.Status = ExecutionPending
	}
	s.executions = truncate(slices.Insert(s.executions, 0, e))

	s.persistLocked()
	return e.ID
}

// UpdateExecution merges the non-nil fields of in into the execution.
func (s *Store) UpdateExecution(id string, in UpdateExecutionInput) (Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.executions, func(e Execution) bool { return e.ID == id })
	if i < 0 {
		return Execution{}, false
	}
	e := &s.executions[i]

	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		e.CompletedAt = &t
	}
	if in.Output != nil {
		e.Output = slices.Clone(*in.Output)
	}
	if in.Error != nil {
		e.Error = *in.Error
	}
	if in.CreditsUsed != nil {
		e.CreditsUsed = *in.CreditsUsed
	}

	s.persistLocked()
	return e.clone(), true
}

// Executions returns the newest executions first. A limit of zero or less
// returns the whole history.
func (s *Store) Executions(limit int) []Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.executions
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return cloneAll(entries, Execution.clone)
}

// ValidateTrackExecution checks the fields of a new execution.
func ValidateTrackExecution(in TrackExecutionInput) error {
	if in.SkillID == "" {
		return ErrSkillIDRequired
	}
	if in.Status != "" && !validExecutionStatus(in.Status) {
		return ErrInvalidExecutionState
	}
	return nil
}

// ValidateUpdateExecution checks only the fields present in the update.
func ValidateUpdateExecution(in UpdateExecutionInput) error {
	if in.Status != nil && !validExecutionStatus(*in.Status) {
		return ErrInvalidExecutionState
	}
	return nil
}

// ValidateEnvKey rejects keys that cannot form a KEY=VALUE pair.
func ValidateEnvKey(key string) error {
	if key == "" || strings.Contains(key, "=") {
		return ErrEnvKeyInvalid
	}
	return nil
}

func validExecutionStatus(st ExecutionStatus) bool {
	switch st {
	case ExecutionPending, ExecutionRunning, ExecutionCompleted, ExecutionFailed:
		return true
	}
	return false
}

func truncate(executions []Execution) []Execution {
	if len(executions) > HistoryCapacity {
		clear(executions[HistoryCapacity:])
		executions = executions[:HistoryCapacity]
	}
	return executions
}

func cloneAll[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

// cloneConfig copies a configuration mapping through JSON so nested maps
// and slices are not shared with the caller.
func cloneConfig(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func (sk Skill) clone() Skill {
	sk.Dependencies = slices.Clone(sk.Dependencies)
	sk.EnvVars = slices.Clone(sk.EnvVars)
	sk.ConfigSchema = cloneConfig(sk.ConfigSchema)
	if sk.Stars != nil {
		stars := *sk.Stars
		sk.Stars = &stars
	}
	return sk
}

func (e Execution) clone() Execution {
	e.Input = slices.Clone(e.Input)
	e.Output = slices.Clone(e.Output)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		e.CompletedAt = &t
	}
	return e
}

func (st State) clone() State {
	return State{
		Skills:     cloneAll(st.Skills, Skill.clone),
		Executions: cloneAll(st.Executions, Execution.clone),
	}
}
