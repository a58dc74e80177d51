package agent

import "slices"

var basePreset = Config{
	Model:       "gpt-4",
	Temperature: 0.7,
	MaxTokens:   2000,
	Tools:       []string{},
}

var presets = map[Type]Config{
	TypeResearch: {
		Model:        "gpt-4",
		Temperature:  0.3,
		MaxTokens:    3000,
		Instructions: "Find reliable sources, summarize findings, and provide citations.",
		Tools:        []string{"web_search", "retrieval"},
	},
	TypeAnalysis: {
		Model:        "gpt-4",
		Temperature:  0.2,
		MaxTokens:    2500,
		Instructions: "Analyze supplied data and produce concise structured insights.",
		Tools:        []string{"code_interpreter", "file_search"},
	},
	TypeGeneration: {
		Model:        "gpt-4",
		Temperature:  0.8,
		MaxTokens:    2000,
		Instructions: "Create high-quality content aligned to requested tone and format.",
		Tools:        []string{"retrieval"},
	},
}

// Preset returns the starting configuration for an agent of type t. Types
// without a dedicated preset get the base configuration.
func Preset(t Type) Config {
	cfg, ok := presets[t]
	if !ok {
		cfg = basePreset
	}
	cfg.Tools = slices.Clone(cfg.Tools)
	return cfg
}
