package agent

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Validation errors returned for caller-supplied agent, key and limit fields.
var (
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidStatus      = errors.New("status must be one of: idle, running, completed, failed")
	ErrInvalidType        = errors.New("type must be one of: research, analysis, generation, monitoring, custom")
	ErrInvalidProvider    = errors.New("provider must be one of: openai, anthropic, google, azure, aws, huggingface, microsoft, custom")
	ErrInvalidKeyStatus   = errors.New("status must be one of: active, inactive, exceeded")
	ErrInvalidPeriod      = errors.New("period must be one of: daily, weekly, monthly")
	ErrInvalidActivity    = errors.New("type must be one of: agent_start, agent_complete, api_call, credit_warning, error")
	ErrTemperatureRange   = errors.New("temperature must be between 0 and 2")
	ErrMaxTokensRange     = errors.New("max_tokens must be between 1 and 32000")
	ErrNegativeAmount     = errors.New("amounts must not be negative")
	ErrThresholdRange     = errors.New("notification_threshold must be between 0 and 1")
	ErrKeyRequired        = errors.New("key is required")
	ErrMessageRequired    = errors.New("message is required")
	ErrLimitTargetMissing = errors.New("agent_id or api_key_id is required")
)

const maxTokensCeiling = 32000

var validStatuses = map[Status]bool{
	StatusIdle: true, StatusRunning: true, StatusCompleted: true, StatusFailed: true,
}

var validTypes = map[Type]bool{
	TypeResearch: true, TypeAnalysis: true, TypeGeneration: true, TypeMonitoring: true, TypeCustom: true,
}

var validProviders = map[Provider]bool{
	ProviderOpenAI: true, ProviderAnthropic: true, ProviderGoogle: true, ProviderAzure: true,
	ProviderAWS: true, ProviderHuggingFace: true, ProviderMicrosoft: true, ProviderCustom: true,
}

var validKeyStatuses = map[KeyStatus]bool{
	KeyActive: true, KeyInactive: true, KeyExceeded: true,
}

var validPeriods = map[Period]bool{
	PeriodDaily: true, PeriodWeekly: true, PeriodMonthly: true,
}

var validActivityTypes = map[ActivityType]bool{
	ActivityAgentStart: true, ActivityAgentComplete: true, ActivityAPICall: true,
	ActivityCreditWarning: true, ActivityError: true,
}

// ValidStatus reports whether s is a known agent status.
func ValidStatus(s Status) bool { return validStatuses[s] }

// ValidType reports whether t is a known agent type.
func ValidType(t Type) bool { return validTypes[t] }

// ValidateCreateAgent checks the fields of a new agent.
func ValidateCreateAgent(in CreateAgentInput) error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Status != "" && !validStatuses[in.Status] {
		return ErrInvalidStatus
	}
	if !validTypes[in.Type] {
		return ErrInvalidType
	}
	if in.CreditLimit.IsNegative() {
		return ErrNegativeAmount
	}
	return validateConfig(in.Config)
}

// ValidateUpdateAgent checks only the fields present in the update.
func ValidateUpdateAgent(in UpdateAgentInput) error {
	if in.Name != nil && *in.Name == "" {
		return ErrNameRequired
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		return ErrInvalidStatus
	}
	if in.Type != nil && !validTypes[*in.Type] {
		return ErrInvalidType
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return ErrNegativeAmount
	}
	if in.Config != nil {
		return validateConfig(*in.Config)
	}
	return nil
}

func validateConfig(c Config) error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return ErrTemperatureRange
	}
	if c.MaxTokens < 1 || c.MaxTokens > maxTokensCeiling {
		return ErrMaxTokensRange
	}
	return nil
}

// ValidateCreateAPIKey checks the fields of a new API key.
func ValidateCreateAPIKey(in CreateAPIKeyInput) error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Key == "" {
		return ErrKeyRequired
	}
	if !validProviders[in.Provider] {
		return ErrInvalidProvider
	}
	if in.MonthlyLimit.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// ValidateUpdateAPIKey checks only the fields present in the update.
func ValidateUpdateAPIKey(in UpdateAPIKeyInput) error {
	if in.Name != nil && *in.Name == "" {
		return ErrNameRequired
	}
	if in.Key != nil && *in.Key == "" {
		return ErrKeyRequired
	}
	if in.Provider != nil && !validProviders[*in.Provider] {
		return ErrInvalidProvider
	}
	if in.MonthlyLimit != nil && in.MonthlyLimit.IsNegative() {
		return ErrNegativeAmount
	}
	if in.Status != nil && !validKeyStatuses[*in.Status] {
		return ErrInvalidKeyStatus
	}
	return nil
}

// ValidateCreateCreditLimit checks the fields of a new credit limit.
func ValidateCreateCreditLimit(in CreateCreditLimitInput) error {
	if in.AgentID == "" && in.APIKeyID == "" {
		return ErrLimitTargetMissing
	}
	if in.Limit.IsNegative() {
		return ErrNegativeAmount
	}
	if !validPeriods[in.Period] {
		return ErrInvalidPeriod
	}
	if in.NotificationThreshold < 0 || in.NotificationThreshold > 1 {
		return ErrThresholdRange
	}
	return nil
}

// ValidateCreateActivity checks the fields of a caller-supplied activity.
func ValidateCreateActivity(in CreateActivityInput) error {
	if !validActivityTypes[in.Type] {
		return ErrInvalidActivity
	}
	if in.Message == "" {
		return ErrMessageRequired
	}
	return nil
}

// ValidateCost rejects negative usage charges.
func ValidateCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
