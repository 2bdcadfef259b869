package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/flow"
	"github.com/matzehuels/tracemap/pkg/render/nodelink"
	"github.com/matzehuels/tracemap/pkg/render/svg"
)

// Output formats for [Render].
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatDOT:      true,
	FormatGraphviz: true,
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, dot, graphviz)", format)
	}
	return nil
}

// Render draws d in the given format:
//
//   - svg: positioned preview
//   - dot: Graphviz source with pinned positions
//   - graphviz: SVG drawn by Graphviz dot from the exported source
func Render(ctx context.Context, d flow.Diagram, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatDOT:
		return []byte(nodelink.ToDOT(d, nodelink.Options{})), nil
	case FormatGraphviz:
		out, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(d, nodelink.Options{}))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEngine, err, "render %s", format)
		}
		return out, nil
	default:
		return svg.Render(d, svg.WithInteraction()), nil
	}
}

// renderKind labels artifact cache events per format.
func renderKind(format string) string { return fmt.Sprintf("artifact:%s", format) }
