package skill

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups skills in the marketplace.
type Category string

const (
	CategorySearch        Category = "search"
	CategoryAutomation    Category = "automation"
	CategoryBrowser       Category = "browser"
	CategoryCommunication Category = "communication"
	CategoryContent       Category = "content"
	CategoryDevelopment   Category = "development"
	CategoryData          Category = "data"
	CategorySystem        Category = "system"
	CategorySocial        Category = "social"
	CategoryCustom        Category = "custom"
)

// Skill is an installed capability module. Its id is the id of the listing
// it was installed from.
type Skill struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Category     Category       `json:"category"`
	Author       string         `json:"author"`
	Version      string         `json:"version"`
	Installed    bool           `json:"installed"`
	Enabled      bool           `json:"enabled"`
	InstallPath  string         `json:"install_path"`
	Dependencies []string       `json:"dependencies"`
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
	EnvVars      []string       `json:"env_vars"`
	LastUpdated  time.Time      `json:"last_updated"`
	Repository   string         `json:"repository"`
	Stars        *int           `json:"stars,omitempty"`
}

// Listing is an immutable marketplace catalog entry.
type Listing struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       Category `json:"category"`
	Author         string   `json:"author"`
	Version        string   `json:"version"`
	Downloads      int64    `json:"downloads"`
	Rating         float64  `json:"rating"`
	Repository     string   `json:"repository"`
	InstallCommand string   `json:"install_command"`
}

// ExecutionStatus is the state of a skill execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Execution records one run of a skill. Input and output are opaque JSON.
type Execution struct {
	ID          string          `json:"id"`
	SkillID     string          `json:"skill_id"`
	AgentID     string          `json:"agent_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreditsUsed decimal.Decimal `json:"credits_used"`
}

// TrackExecutionInput holds the fields of a new execution record.
type TrackExecutionInput struct {
	SkillID     string          `json:"skill_id"`
	AgentID     string          `json:"agent_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreditsUsed decimal.Decimal `json:"credits_used"`
}

// UpdateExecutionInput holds optional fields for a partial execution update.
// A JSON null leaves the field unchanged, the same as leaving it out.
type UpdateExecutionInput struct {
	Status      *ExecutionStatus `json:"status,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Output      *json.RawMessage `json:"output,omitempty"`
	Error       *string          `json:"error,omitempty"`
	CreditsUsed *decimal.Decimal `json:"credits_used,omitempty"`
}

// State is the persisted state of the skill store. The marketplace catalog
// is fixed and not part of it.
type State struct {
	Skills     []Skill     `json:"skills"`
	Executions []Execution `json:"executions"`
}
