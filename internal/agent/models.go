package agent

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an agent. Any status may follow any other.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Type classifies what an agent is used for.
type Type string

const (
	TypeResearch   Type = "research"
	TypeAnalysis   Type = "analysis"
	TypeGeneration Type = "generation"
	TypeMonitoring Type = "monitoring"
	TypeCustom     Type = "custom"
)

// Config holds the model settings an agent runs with.
type Config struct {
	Model        string   `json:"model"`
	Temperature  float64  `json:"temperature"`
	MaxTokens    int      `json:"max_tokens"`
	Instructions string   `json:"instructions"`
	Tools        []string `json:"tools"`
}

// Agent is a simulated workflow unit tracked by status, progress and spend.
type Agent struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      Status          `json:"status"`
	Type        Type            `json:"type"`
	Progress    int             `json:"progress"`
	CreatedAt   time.Time       `json:"created_at"`
	LastActive  time.Time       `json:"last_active"`
	APIKeys     []string        `json:"api_keys"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreditsUsed decimal.Decimal `json:"credits_used"`
	Config      Config          `json:"config"`
}

// CreateAgentInput holds the caller-supplied fields of a new agent. The store
// assigns the id and timestamps and starts CreditsUsed at zero.
type CreateAgentInput struct {
	Name        string          `json:"name"`
	Status      Status          `json:"status"`
	Type        Type            `json:"type"`
	Progress    int             `json:"progress"`
	APIKeys     []string        `json:"api_keys"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Config      Config          `json:"config"`
}

// UpdateAgentInput holds optional fields for a partial agent update.
// CreditsUsed is not updatable here; it only moves through usage recording.
type UpdateAgentInput struct {
	Name        *string          `json:"name,omitempty"`
	Status      *Status          `json:"status,omitempty"`
	Type        *Type            `json:"type,omitempty"`
	Progress    *int             `json:"progress,omitempty"`
	APIKeys     *[]string        `json:"api_keys,omitempty"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
	Config      *Config          `json:"config,omitempty"`
}

// Provider names the vendor an API key belongs to.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGoogle      Provider = "google"
	ProviderAzure       Provider = "azure"
	ProviderAWS         Provider = "aws"
	ProviderHuggingFace Provider = "huggingface"
	ProviderMicrosoft   Provider = "microsoft"
	ProviderCustom      Provider = "custom"
)

// KeyStatus is derived from usage: exceeded once used reaches the monthly limit.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyInactive KeyStatus = "inactive"
	KeyExceeded KeyStatus = "exceeded"
)

// APIKey is a provider credential with a monthly spending limit.
type APIKey struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Key          string          `json:"key"`
	Provider     Provider        `json:"provider"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	Used         decimal.Decimal `json:"used"`
	Status       KeyStatus       `json:"status"`
	LastUsed     time.Time       `json:"last_used"`
}

// CreateAPIKeyInput holds the fields required to register an API key.
type CreateAPIKeyInput struct {
	Name         string          `json:"name"`
	Key          string          `json:"key"`
	Provider     Provider        `json:"provider"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// UpdateAPIKeyInput holds optional fields for a partial key update. Used is
// not updatable; it only grows through UpdateCreditUsage.
type UpdateAPIKeyInput struct {
	Name         *string          `json:"name,omitempty"`
	Key          *string          `json:"key,omitempty"`
	Provider     *Provider        `json:"provider,omitempty"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
	Status       *KeyStatus       `json:"status,omitempty"`
}

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityAgentStart    ActivityType = "agent_start"
	ActivityAgentComplete ActivityType = "agent_complete"
	ActivityAPICall       ActivityType = "api_call"
	ActivityCreditWarning ActivityType = "credit_warning"
	ActivityError         ActivityType = "error"
)

// Activity is an append-only audit entry. The log is kept newest-first.
type Activity struct {
	ID        string         `json:"id"`
	Type      ActivityType   `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	AgentID   string         `json:"agent_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateActivityInput holds the fields of a new activity entry.
type CreateActivityInput struct {
	Type     ActivityType   `json:"type"`
	Message  string         `json:"message"`
	AgentID  string         `json:"agent_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Period is the window a credit limit applies to.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// CreditLimit is a named limit bound to an agent and/or API key. It is stored
// and listed but no operation enforces it.
type CreditLimit struct {
	ID                    string          `json:"id"`
	AgentID               string          `json:"agent_id,omitempty"`
	APIKeyID              string          `json:"api_key_id,omitempty"`
	Limit                 decimal.Decimal `json:"limit"`
	Period                Period          `json:"period"`
	NotificationThreshold float64         `json:"notification_threshold"`
}

// CreateCreditLimitInput holds the fields required to create a credit limit.
type CreateCreditLimitInput struct {
	AgentID               string          `json:"agent_id,omitempty"`
	APIKeyID              string          `json:"api_key_id,omitempty"`
	Limit                 decimal.Decimal `json:"limit"`
	Period                Period          `json:"period"`
	NotificationThreshold float64         `json:"notification_threshold"`
}

// CreditUpdate reports what UpdateCreditUsage changed.
type CreditUpdate struct {
	KeyFound   bool      `json:"key_found"`
	AgentFound bool      `json:"agent_found"`
	Key        APIKey    `json:"key"`
	Warning    *Activity `json:"warning,omitempty"`
}

// State is the whole persisted state of the agent store.
type State struct {
	Agents       []Agent       `json:"agents"`
	Activities   []Activity    `json:"activities"`
	APIKeys      []APIKey      `json:"api_keys"`
	CreditLimits []CreditLimit `json:"credit_limits"`
}
