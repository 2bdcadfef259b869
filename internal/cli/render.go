package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	pkgio "github.com/matzehuels/tracemap/pkg/io"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "render <diagram.json>",
		Short: "Render a diagram to SVG or Graphviz DOT",
		Long: `Render a diagram produced by 'layout'.

Formats:
  svg       positioned preview with hover highlighting
  dot       Graphviz source with pinned node positions and group clusters
  graphviz  SVG drawn by Graphviz from the DOT source (Graphviz re-ranks the
            nodes, so this is a topology preview rather than the layout)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			for _, f := range formats {
				if err := pipeline.ValidateFormat(f); err != nil {
					return err
				}
			}
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], cfg, formats, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (several)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, graphviz (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, cfg *config.Config, formats []string, output string, noCache bool) error {
	d, err := pkgio.ImportDiagram(input)
	if err != nil {
		return fmt.Errorf("load diagram %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	base := strings.TrimSuffix(input, ".json")
	base = strings.TrimSuffix(base, ".diagram")
	if output != "" && len(formats) > 1 {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}

	for _, format := range formats {
		prog := newProgress(c.Logger)
		data, cached, err := runner.Render(ctx, d, format)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}

		path := base + formatExt(format)
		if output != "" && len(formats) == 1 {
			path = output
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		prog.done("rendered", "format", format, "bytes", len(data), "cached", cached)
		printSuccess("Rendered %s", format)
		printFile(path)
	}
	return nil
}

// parseFormats splits the --format flag. Empty means svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func formatExt(format string) string {
	switch format {
	case pipeline.FormatDOT:
		return ".dot"
	case pipeline.FormatGraphviz:
		return ".graphviz.svg"
	}
	return ".svg"
}
