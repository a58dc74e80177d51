package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/api"
	"github.com/alecgard/clawdeck/internal/config"
	"github.com/alecgard/clawdeck/internal/metrics"
	"github.com/alecgard/clawdeck/internal/persist"
	"github.com/alecgard/clawdeck/internal/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ClawDeck API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	m := metrics.New()
	st.flusher.SetObserver(m)
	st.recorder.SetObserver(m)
	m.RegisterStoreCollector(storeStats(st))
	if pg, ok := st.backend.(*persist.PostgresBackend); ok {
		m.RegisterDBPoolCollector(pg.PoolStat)
	}

	go st.flusher.Start(ctx)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Writes > 0 {
		limiter = ratelimit.New(cfg.RateLimit.Writes, cfg.RateLimit.Window)
	}

	router := api.NewRouter(api.RouterDeps{
		Agents:         st.agents,
		APIMetrics:     st.metrics,
		Skills:         st.skills,
		Recorder:       st.recorder,
		Metrics:        m,
		WriteLimiter:   limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		StorageBackend: cfg.Storage.Backend,
		Version:        version,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting requests before the deferred close writes the last snapshots.
	return srv.Shutdown(shutdownCtx)
}

// storeStats reads the gauges exposed by the store collector.
func storeStats(st *stores) metrics.StoreStatFunc {
	return func() metrics.StoreStats {
		agents := st.agents.Agents()
		keys := st.agents.APIKeys()
		skills := st.skills.Skills()

		stats := metrics.StoreStats{
			AgentsByStatus: make(map[string]int),
			KeysByStatus:   make(map[string]int),
			Activities:     len(st.agents.Activities(0)),
			APIMetrics:     st.metrics.Len(),
			Executions:     len(st.skills.Executions(0)),
		}
		for status, n := range agent.CountByStatus(agents) {
			stats.AgentsByStatus[string(status)] = n
		}
		for _, k := range keys {
			stats.KeysByStatus[string(k.Status)]++
		}
		for _, sk := range skills {
			if sk.Enabled {
				stats.SkillsEnabled++
			} else {
				stats.SkillsDisabled++
			}
		}
		return stats
	}
}
