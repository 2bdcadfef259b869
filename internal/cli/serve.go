package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/internal/metrics"
	"github.com/matzehuels/tracemap/internal/server"
	"github.com/matzehuels/tracemap/pkg/cache"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout pipeline over HTTP.

  POST /v1/layout   {"snapshot": {...}, "options": {...}} -> diagram + diagnostics
  POST /v1/render   {"diagram": {...}, "format": "svg"}   -> SVG or DOT
  GET  /healthz
  GET  /metrics     Prometheus metrics (server.metrics: false disables)

Diagrams are cached in the configured backend under a "serve:" key scope,
so a shared Redis can back several instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	store, err := c.newCache(ctx, cfg.Cache, false)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(store, cache.NewScopedKeyer(nil, "serve:"), c.Logger)
	defer runner.Close()

	opts := []server.Option{server.WithLogger(c.Logger)}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.New(reg).Install()
		opts = append(opts, server.WithGatherer(reg))
	}

	srv := server.New(runner, cfg.Server, opts...)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
