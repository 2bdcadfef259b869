package clustered

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// Graphviz measures node sizes in inches and coordinates in points.
const pointsPerInch = 72.0

// toDOT converts the compound graph to Graphviz DOT. Groups become
// invisible clusters, ranks run left to right, and node IDs are positional
// (n0, n1, ...) so that entity ids never need quoting.
func toDOT(g *graph, cfg layout.Config) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  newrank=true;\n")
	fmt.Fprintf(&buf, "  nodesep=%.4f;\n", cfg.InterEntityGap/pointsPerInch)
	fmt.Fprintf(&buf, "  ranksep=%.4f;\n", cfg.RankGap/pointsPerInch)
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")

	for ci, ck := range g.clusters {
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", ci)
		buf.WriteString("    style=invis;\n")
		for _, i := range g.members[ck] {
			n := g.nodes[i]
			fmt.Fprintf(&buf, "    n%d [width=%.4f, height=%.4f];\n",
				i, cfg.NodeWidth/pointsPerInch, n.height/pointsPerInch)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, e := range g.edges {
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", g.index[e[0]], g.index[e[1]])
	}
	buf.WriteString("}\n")
	return buf.String()
}

// dotLayout runs Graphviz dot in-process and reads node centers back from
// its positioned DOT output.
func dotLayout(ctx context.Context, g *graph, cfg layout.Config) (map[entity.Key]layout.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(toDOT(g, cfg)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return parsePositions(buf.Bytes(), g, cfg)
}

var (
	bbRe   = regexp.MustCompile(`bb="([-0-9.e+]+),([-0-9.e+]+),([-0-9.e+]+),([-0-9.e+]+)"`)
	nodeRe = regexp.MustCompile(`(?m)^\s*n(\d+)\s+\[((?:[^\]"]|"[^"]*")*)\]`)
	posRe  = regexp.MustCompile(`\bpos="([-0-9.e+]+),([-0-9.e+]+)"`)
)

// parsePositions extracts node centers from positioned DOT. Graphviz puts
// the origin at the bottom left; y is flipped so that it grows downward.
func parsePositions(out []byte, g *graph, cfg layout.Config) (map[entity.Key]layout.Position, error) {
	bb := bbRe.FindSubmatch(out)
	if bb == nil {
		return nil, fmt.Errorf("graphviz output has no bounding box")
	}
	llx, _ := strconv.ParseFloat(string(bb[1]), 64)
	ury, _ := strconv.ParseFloat(string(bb[4]), 64)

	pos := make(map[entity.Key]layout.Position, len(g.nodes))
	for _, m := range nodeRe.FindAllSubmatch(out, -1) {
		i, err := strconv.Atoi(string(m[1]))
		if err != nil || i < 0 || i >= len(g.nodes) {
			continue
		}
		p := posRe.FindSubmatch(m[2])
		if p == nil {
			continue
		}
		x, errX := strconv.ParseFloat(string(p[1]), 64)
		y, errY := strconv.ParseFloat(string(p[2]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("bad position for n%d: %q", i, p[0])
		}
		n := g.nodes[i]
		pos[n.key] = layout.Position{
			X:      x - llx,
			Y:      ury - y,
			Width:  cfg.NodeWidth,
			Height: n.height,
		}
	}

	for _, n := range g.nodes {
		if _, ok := pos[n.key]; !ok {
			return nil, fmt.Errorf("graphviz output missing node %s", n.key)
		}
	}
	return pos, nil
}
