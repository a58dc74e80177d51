package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alecgard/clawdeck/internal/crypto"
	"github.com/alecgard/clawdeck/internal/persist"
)

// warningRatio is the share of a key's monthly limit at which a single
// credit_warning activity is emitted.
var warningRatio = decimal.NewFromFloat(0.8)

var hundred = decimal.NewFromInt(100)

// Sealer encrypts API key material before it leaves the process. Decrypt
// wraps crypto.ErrNotSealed for values that were never sealed.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Store owns agents, the activity log, API keys and credit limits. Every
// method holds the store lock for its whole mutation and hands the resulting
// state to the Saver. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	state  State
	saver  persist.Saver
	sealer Sealer

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty agent store. A nil saver drops snapshots; a nil
// sealer persists key material as-is.
func NewStore(saver persist.Saver, sealer Sealer) *Store {
	if saver == nil {
		saver = persist.Discard
	}
	return &Store{
		saver:  saver,
		sealer: sealer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Restore replaces the store contents with a previously persisted state,
// unsealing API key material. Keys stored before sealing was enabled are
// kept as they are and sealed in a fresh snapshot straight away. A key that
// is sealed but does not open fails the restore and leaves the store
// untouched.
func (s *Store) Restore(st State) error {
	st = st.clone()
	var unsealed []string
	if s.sealer != nil {
		for i := range st.APIKeys {
			plain, err := s.sealer.Decrypt(st.APIKeys[i].Key)
			switch {
			case errors.Is(err, crypto.ErrNotSealed):
				unsealed = append(unsealed, st.APIKeys[i].ID)
				continue
			case err != nil:
				return fmt.Errorf("unsealing api key %s: %w", st.APIKeys[i].ID, err)
			}
			st.APIKeys[i].Key = plain
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	if len(unsealed) > 0 {
		slog.Warn("sealing api keys stored in plaintext", "api_key_ids", unsealed)
		s.persistLocked()
	}
	return nil
}

// Reset empties every collection. It is the only way activities are removed.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.persistLocked()
}

// Snapshot returns a deep copy of the current state with key material in
// plaintext.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// persistLocked hands a sealed copy of the state to the saver. Sealing
// failures drop the snapshot so plaintext never reaches storage.
func (s *Store) persistLocked() {
	st := s.state.clone()
	if s.sealer != nil {
		for i := range st.APIKeys {
			sealed, err := s.sealer.Encrypt(st.APIKeys[i].Key)
			if err != nil {
				slog.Error("failed to seal api key, snapshot skipped", "api_key_id", st.APIKeys[i].ID, "error", err)
				return
			}
			st.APIKeys[i].Key = sealed
		}
	}
	s.saver.Save(persist.SlotAgents, st)
}

func (s *Store) prependActivityLocked(in CreateActivityInput) Activity {
	a := Activity{
		ID:        s.newID(),
		Type:      in.Type,
		Message:   in.Message,
		Timestamp: s.now(),
		AgentID:   in.AgentID,
		Metadata:  cloneMetadata(in.Metadata),
	}
	s.state.Activities = slices.Insert(s.state.Activities, 0, a)
	return a
}

func (s *Store) agentIndexLocked(id string) int {
	return slices.IndexFunc(s.state.Agents, func(a Agent) bool { return a.ID == id })
}

func (s *Store) keyIndexLocked(id string) int {
	return slices.IndexFunc(s.state.APIKeys, func(k APIKey) bool { return k.ID == id })
}

// AddAgent creates an agent with a fresh id, zero credits used and both
// timestamps set to now, then logs an agent_start activity.
func (s *Store) AddAgent(in CreateAgentInput) Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := Agent{
		ID:          s.newID(),
		Name:        in.Name,
		Status:      in.Status,
		Type:        in.Type,
		Progress:    clampProgress(in.Progress),
		CreatedAt:   now,
		LastActive:  now,
		APIKeys:     slices.Clone(in.APIKeys),
		CreditLimit: in.CreditLimit,
		CreditsUsed: decimal.Zero,
		Config:      in.Config.clone(),
	}
	if a.Status == "" {
		a.Status = StatusIdle
	}
	s.state.Agents = append(s.state.Agents, a)

	s.prependActivityLocked(CreateActivityInput{
		Type:    ActivityAgentStart,
		Message: fmt.Sprintf("Agent %q created", a.Name),
		AgentID: a.ID,
	})
	s.persistLocked()
	return a.clone()
}

// UpdateAgent merges the non-nil fields of in into the agent and refreshes
// LastActive. It reports false and changes nothing when id is unknown.
func (s *Store) UpdateAgent(id string, in UpdateAgentInput) (Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.agentIndexLocked(id)
	if i < 0 {
		return Agent{}, false
	}
	a := &s.state.Agents[i]

	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.Progress != nil {
		a.Progress = clampProgress(*in.Progress)
	}
	if in.APIKeys != nil {
		a.APIKeys = slices.Clone(*in.APIKeys)
	}
	if in.CreditLimit != nil {
		a.CreditLimit = *in.CreditLimit
	}
	if in.Config != nil {
		a.Config = in.Config.clone()
	}
	a.LastActive = s.now()

	s.persistLocked()
	return a.clone(), true
}

// SetStatus moves an agent to status and logs the transition. Running bumps
// progress by 10 up to 95; completed sets it to 100.
func (s *Store) SetStatus(id string, status Status) (Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.agentIndexLocked(id)
	if i < 0 {
		return Agent{}, false
	}
	a := &s.state.Agents[i]

	a.Status = status
	switch status {
	case StatusRunning:
		a.Progress = min(a.Progress+10, 95)
	case StatusCompleted:
		a.Progress = 100
	}
	a.LastActive = s.now()

	activityType := ActivityAgentStart
	if status == StatusFailed {
		activityType = ActivityError
	}
	s.prependActivityLocked(CreateActivityInput{
		Type:    activityType,
		Message: fmt.Sprintf("Agent %q set to %s", a.Name, status),
		AgentID: a.ID,
	})

	s.persistLocked()
	return a.clone(), true
}

// DeleteAgent removes the agent and logs an agent_complete activity for it.
// It reports false and changes nothing when id is unknown.
func (s *Store) DeleteAgent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.agentIndexLocked(id)
	if i < 0 {
		return false
	}
	s.state.Agents = slices.Delete(s.state.Agents, i, i+1)

	s.prependActivityLocked(CreateActivityInput{
		Type:    ActivityAgentComplete,
		Message: "Agent removed from system",
		AgentID: id,
	})
	s.persistLocked()
	return true
}

// Agent returns a copy of the agent with the given id.
func (s *Store) Agent(id string) (Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.agentIndexLocked(id)
	if i < 0 {
		return Agent{}, false
	}
	return s.state.Agents[i].clone(), true
}

// Agents returns all agents in insertion order.
func (s *Store) Agents() []Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.state.Agents, Agent.clone)
}

// AddActivity assigns an id and the current time and puts the entry at the
// head of the log.
func (s *Store) AddActivity(in CreateActivityInput) Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.prependActivityLocked(in)
	s.persistLocked()
	return a.clone()
}

// Activities returns the newest entries first. A limit of zero or less
// returns the whole log.
func (s *Store) Activities(limit int) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.state.Activities
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return cloneAll(entries, Activity.clone)
}

// AddAPIKey registers a key as active with nothing used yet.
func (s *Store) AddAPIKey(in CreateAPIKeyInput) APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := APIKey{
		ID:           s.newID(),
		Name:         in.Name,
		Key:          in.Key,
		Provider:     in.Provider,
		MonthlyLimit: in.MonthlyLimit,
		Used:         decimal.Zero,
		Status:       KeyActive,
		LastUsed:     s.now(),
	}
	s.state.APIKeys = append(s.state.APIKeys, k)

	s.persistLocked()
	return k
}

// UpdateAPIKey merges the non-nil fields of in. Status is taken as given and
// not rederived from usage.
func (s *Store) UpdateAPIKey(id string, in UpdateAPIKeyInput) (APIKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.keyIndexLocked(id)
	if i < 0 {
		return APIKey{}, false
	}
	k := &s.state.APIKeys[i]

	if in.Name != nil {
		k.Name = *in.Name
	}
	if in.Key != nil {
		k.Key = *in.Key
	}
	if in.Provider != nil {
		k.Provider = *in.Provider
	}
	if in.MonthlyLimit != nil {
		k.MonthlyLimit = *in.MonthlyLimit
	}
	if in.Status != nil {
		k.Status = *in.Status
	}

	s.persistLocked()
	return *k, true
}

// DeleteAPIKey removes the key. Agents that reference it keep the id.
func (s *Store) DeleteAPIKey(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.keyIndexLocked(id)
	if i < 0 {
		return false
	}
	s.state.APIKeys = slices.Delete(s.state.APIKeys, i, i+1)

	s.persistLocked()
	return true
}

// APIKey returns the key with the given id.
func (s *Store) APIKey(id string) (APIKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.keyIndexLocked(id)
	if i < 0 {
		return APIKey{}, false
	}
	return s.state.APIKeys[i], true
}

// APIKeys returns all keys in insertion order.
func (s *Store) APIKeys() []APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.APIKeys)
}

// AddCreditLimit stores a credit limit. Limits are listed but not enforced.
func (s *Store) AddCreditLimit(in CreateCreditLimitInput) CreditLimit {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl := CreditLimit{
		ID:                    s.newID(),
		AgentID:               in.AgentID,
		APIKeyID:              in.APIKeyID,
		Limit:                 in.Limit,
		Period:                in.Period,
		NotificationThreshold: in.NotificationThreshold,
	}
	s.state.CreditLimits = append(s.state.CreditLimits, cl)

	s.persistLocked()
	return cl
}

// CreditLimits returns all credit limits in insertion order.
func (s *Store) CreditLimits() []CreditLimit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.CreditLimits)
}

// UpdateCreditUsage charges cost to the key and, when agentID is non-empty,
// to that agent. The key becomes exceeded once used reaches its monthly
// limit. The call that first takes used from below 80% of the limit to 80%
// or more logs exactly one credit_warning activity. Unknown ids are skipped.
func (s *Store) UpdateCreditUsage(apiKeyID string, cost decimal.Decimal, agentID string) CreditUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res CreditUpdate

	if i := s.keyIndexLocked(apiKeyID); i >= 0 {
		k := &s.state.APIKeys[i]
		newUsed := k.Used.Add(cost)
		threshold := k.MonthlyLimit.Mul(warningRatio)

		if newUsed.GreaterThanOrEqual(threshold) && k.Used.LessThan(threshold) {
			w := s.prependActivityLocked(CreateActivityInput{
				Type:    ActivityCreditWarning,
				Message: fmt.Sprintf("API key %q has used %s%% of monthly limit", k.Name, percentOf(newUsed, k.MonthlyLimit).Round(0).String()),
				AgentID: agentID,
				Metadata: map[string]any{
					"api_key_id": apiKeyID,
					"usage":      newUsed.InexactFloat64(),
					"limit":      k.MonthlyLimit.InexactFloat64(),
				},
			})
			res.Warning = &w
		}

		k.Used = newUsed
		k.Status = deriveKeyStatus(newUsed, k.MonthlyLimit)
		k.LastUsed = s.now()

		res.KeyFound = true
		res.Key = *k
	}

	if agentID != "" {
		if i := s.agentIndexLocked(agentID); i >= 0 {
			a := &s.state.Agents[i]
			a.CreditsUsed = a.CreditsUsed.Add(cost)
			res.AgentFound = true
		}
	}

	if res.KeyFound || res.AgentFound {
		s.persistLocked()
	}
	return res
}

func deriveKeyStatus(used, limit decimal.Decimal) KeyStatus {
	if used.GreaterThanOrEqual(limit) {
		return KeyExceeded
	}
	return KeyActive
}

// percentOf returns part/whole*100, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func clampProgress(p int) int {
	return max(0, min(p, 100))
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

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c Config) clone() Config {
	c.Tools = slices.Clone(c.Tools)
	return c
}

func (a Agent) clone() Agent {
	a.APIKeys = slices.Clone(a.APIKeys)
	a.Config = a.Config.clone()
	return a
}

func (a Activity) clone() Activity {
	a.Metadata = cloneMetadata(a.Metadata)
	return a
}

func (st State) clone() State {
	return State{
		Agents:       cloneAll(st.Agents, Agent.clone),
		Activities:   cloneAll(st.Activities, Activity.clone),
		APIKeys:      slices.Clone(st.APIKeys),
		CreditLimits: slices.Clone(st.CreditLimits),
	}
}
