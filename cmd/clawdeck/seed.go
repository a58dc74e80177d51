package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/config"
)

var seedReset bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo API keys and agents",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "clear every store before seeding")
	rootCmd.AddCommand(seedCmd)
}

var demoKeys = []agent.CreateAPIKeyInput{
	{
		Name:         "OpenAI Production",
		Key:          "sk-demo-openai-0000000000000001",
		Provider:     agent.ProviderOpenAI,
		MonthlyLimit: decimal.NewFromInt(500),
	},
	{
		Name:         "Anthropic Research",
		Key:          "sk-ant-REDACTED",
		Provider:     agent.ProviderAnthropic,
		MonthlyLimit: decimal.NewFromInt(250),
	},
}

var demoAgents = []struct {
	name        string
	typ         agent.Type
	creditLimit int64
	keyIndex    int
}{
	{"Market Researcher", agent.TypeResearch, 100, 1},
	{"Sales Analyst", agent.TypeAnalysis, 75, 0},
	{"Copywriter", agent.TypeGeneration, 50, 0},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if seedReset {
		st.agents.Reset()
		st.metrics.Reset()
		st.skills.Reset()
		slog.Info("stores reset")
	}

	// Check if seed has already run.
	if len(st.agents.Agents()) > 0 || len(st.agents.APIKeys()) > 0 {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	keys := make([]agent.APIKey, 0, len(demoKeys))
	for _, in := range demoKeys {
		k := st.agents.AddAPIKey(in)
		slog.Info("created api key", "name", k.Name, "id", k.ID)
		keys = append(keys, k)
	}

	for _, d := range demoAgents {
		a := st.agents.AddAgent(agent.CreateAgentInput{
			Name:        d.name,
			Type:        d.typ,
			APIKeys:     []string{keys[d.keyIndex].ID},
			CreditLimit: decimal.NewFromInt(d.creditLimit),
			Config:      agent.Preset(d.typ),
		})
		slog.Info("created agent", "name", a.Name, "id", a.ID, "type", a.Type)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n=== Demo Data Seeded ===\n")
	fmt.Fprintf(out, "Storage:   %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "API keys:  %d\n", len(keys))
	fmt.Fprintf(out, "Agents:    %d\n", len(demoAgents))
	fmt.Fprintf(out, "\nTry it:\n")
	fmt.Fprintf(out, "  clawdeck record --key %s --cost 1.25 --tokens 900\n", keys[0].ID)
	fmt.Fprintf(out, "  curl http://%s/api/v1/dashboard\n", cfg.Addr())

	return nil
}
