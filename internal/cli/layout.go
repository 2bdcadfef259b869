package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/pkg/entity"
	pkgio "github.com/matzehuels/tracemap/pkg/io"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout <snapshot.json|snapshot.toml>",
		Short: "Compute a diagram from a snapshot",
		Long: `Compute a positioned node/edge diagram from a snapshot file.

The snapshot lists groups, each holding requirements and measures. The
output is a diagram JSON file ({nodes, edges}) that a flow canvas can load
directly, or that 'render' turns into SVG or DOT.

Data problems such as dangling parent references are reported as warnings
and never stop the layout. Results are cached; --refresh recomputes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args[0], cfg, output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <input>.diagram.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when a cached diagram exists")
	addLayoutFlags(cmd.Flags())

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, cfg *config.Config, output string, noCache, refresh bool) error {
	snap, err := loadSnapshot(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{Config: cfg.Layout, Refresh: refresh, Logger: c.Logger}
	strategy := cfg.Layout.WithDefaults().Strategy

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Computing %s layout...", strategy))
	spinner.Start()
	report, err := runner.Run(ctx, snap, opts, nil)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "-" {
		return pkgio.WriteDiagram(report.Diagram, os.Stdout)
	}
	if output == "" {
		output = diagramPath(input)
	}
	if err := pkgio.ExportDiagram(report.Diagram, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(report.Stats, report.CacheHit)
	printDiagnostics(report.Diagnostics, c.verbose)
	printNewline()
	printNextStep("Render", appName+" render "+output)
	return nil
}

// loadSnapshot reads and checks a snapshot file.
func loadSnapshot(path string) (entity.Snapshot, error) {
	snap, err := pkgio.ImportSnapshot(path)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	if err := pkgio.Validate(snap); err != nil {
		return entity.Snapshot{}, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	return snap, nil
}

// diagramPath derives the default output path: plan.toml -> plan.diagram.json.
func diagramPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".diagram.json"
}
