package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/config"
	"github.com/alecgard/clawdeck/internal/usage"
)

var recordFlags struct {
	key    string
	cost   string
	tokens int64
	agent  string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one API usage event against the persisted stores",
	RunE:  runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordFlags.key, "key", "", "api key id (required)")
	f.StringVar(&recordFlags.cost, "cost", "0", "cost of the call in dollars")
	f.Int64Var(&recordFlags.tokens, "tokens", 0, "tokens consumed")
	f.StringVar(&recordFlags.agent, "agent", "", "agent id to charge")
	_ = recordCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cost, err := decimal.NewFromString(recordFlags.cost)
	if err != nil {
		return fmt.Errorf("parsing --cost: %w", err)
	}
	if err := agent.ValidateCost(cost); err != nil {
		return err
	}
	if recordFlags.tokens < 0 {
		return errors.New("--tokens must not be negative")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	res := st.recorder.RecordAPIUsage(usage.Event{
		APIKeyID: recordFlags.key,
		Cost:     cost,
		Tokens:   recordFlags.tokens,
		AgentID:  recordFlags.agent,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "recorded metric %s\n", res.Metric.ID)
	if !res.Credit.KeyFound {
		fmt.Fprintf(out, "warning: no api key with id %s; metric kept, no key charged\n", recordFlags.key)
	} else {
		fmt.Fprintf(out, "key %s: %s of %s used (%s%%), status %s\n",
			res.Credit.Key.Name,
			res.Credit.Key.Used.StringFixed(2),
			res.Credit.Key.MonthlyLimit.StringFixed(2),
			agent.KeyUsagePercent(res.Credit.Key).StringFixed(1),
			res.Credit.Key.Status,
		)
	}
	if res.Credit.Warning != nil {
		fmt.Fprintln(out, res.Credit.Warning.Message)
	}
	return nil
}
