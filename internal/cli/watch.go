package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/internal/watch"
	"github.com/matzehuels/tracemap/pkg/diag"
	pkgio "github.com/matzehuels/tracemap/pkg/io"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "watch <snapshot.json|snapshot.toml>",
		Short: "Recompute a diagram whenever its snapshot changes",
		Long: `Compute the diagram once, then again every time the snapshot file is
written. Bursts of writes are coalesced (see --debounce). A snapshot that
fails to load is logged and the previous diagram is left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return c.runWatch(cmd.Context(), args[0], cfg, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.diagram.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Duration("debounce", 0, "quiet period after a change before recomputing (default 300ms)")
	addLayoutFlags(cmd.Flags())

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, cfg *config.Config, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if output == "" {
		output = diagramPath(input)
	}
	opts := pipeline.Options{Config: cfg.Layout, Logger: c.Logger}

	return watch.Run(ctx, input, cfg.Watch.Debounce, c.Logger, func(ctx context.Context) error {
		return c.recompute(ctx, runner, input, output, opts)
	})
}

// recompute runs one watch iteration.
func (c *CLI) recompute(ctx context.Context, runner *pipeline.Runner, input, output string, opts pipeline.Options) error {
	snap, err := loadSnapshot(input)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, snap, opts, nil)
	if err != nil {
		return err
	}
	if err := pkgio.ExportDiagram(report.Diagram, output); err != nil {
		return err
	}
	for _, d := range report.Diagnostics {
		if d.Severity == diag.SeverityWarning {
			c.Logger.Warn(d.Message, "code", d.Code, "key", d.Key)
		} else {
			c.Logger.Debug(d.Message, "code", d.Code, "key", d.Key)
		}
	}
	c.Logger.Info("diagram updated",
		"output", output,
		"nodes", report.Stats.Nodes,
		"edges", report.Stats.Edges,
		"cached", report.CacheHit)
	return nil
}
