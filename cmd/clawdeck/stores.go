package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/config"
	"github.com/alecgard/clawdeck/internal/crypto"
	"github.com/alecgard/clawdeck/internal/metering"
	"github.com/alecgard/clawdeck/internal/persist"
	"github.com/alecgard/clawdeck/internal/skill"
	"github.com/alecgard/clawdeck/internal/usage"
)

// stores is the set of store instances owned by one command invocation.
type stores struct {
	backend  persist.Backend
	flusher  *persist.Flusher
	agents   *agent.Store
	metrics  *metering.Store
	skills   *skill.Store
	recorder *usage.Recorder
}

// openStores connects the configured backend and restores every store from
// its slot. A slot that is missing or does not decode leaves its store empty.
// Agent state whose key material does not unseal under the configured key is
// an error.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("loading encryption key: %w", err)
	}

	backend, err := persist.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	flusher := persist.NewFlusher(backend, cfg.Storage.FlushInterval)

	var sealer agent.Sealer
	if cipher != nil {
		sealer = cipher
	}

	s := &stores{
		backend: backend,
		flusher: flusher,
		agents:  agent.NewStore(flusher, sealer),
		metrics: metering.NewStore(flusher),
		skills:  skill.NewStore(flusher, config.ExpandHome(cfg.Skills.InstallRoot)),
	}
	s.recorder = usage.NewRecorder(s.metrics, s.agents)

	if st, ok := persist.Load[agent.State](ctx, backend, persist.SlotAgents); ok {
		if err := s.agents.Restore(st); err != nil {
			// Never start empty here: the next write would replace the slot.
			_ = backend.Close()
			return nil, fmt.Errorf("restoring %s (check encryption.key): %w", persist.SlotAgents, err)
		}
	}
	if st, ok := persist.Load[metering.State](ctx, backend, persist.SlotMetrics); ok {
		s.metrics.Restore(st)
	}
	if st, ok := persist.Load[skill.State](ctx, backend, persist.SlotSkills); ok {
		s.skills.Restore(st)
	}

	slog.Info("state restored",
		"backend", cfg.Storage.Backend,
		"agents", len(s.agents.Agents()),
		"api_keys", len(s.agents.APIKeys()),
		"api_metrics", s.metrics.Len(),
		"skills", len(s.skills.Skills()),
	)
	return s, nil
}

// close writes any pending snapshots and releases the backend.
func (s *stores) close() {
	s.flusher.Stop()
	if err := s.backend.Close(); err != nil {
		slog.Error("failed to close storage backend", "error", err)
	}
}
