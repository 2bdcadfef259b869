package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/flow"
)

// Options configures DOT export.
type Options struct {
	// Detailed adds the node key and kind to every label.
	Detailed bool

	// Flat disables group clusters.
	Flat bool
}

// ToDOT converts a diagram to Graphviz DOT.
func ToDOT(d flow.Diagram, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	clusters, order := clusterNodes(d, opts.Flat)
	for ci, gk := range order {
		indent := "  "
		if gk != "" {
			fmt.Fprintf(&buf, "  subgraph %q {\n", "cluster_"+strconv.Itoa(ci))
			fmt.Fprintf(&buf, "    label=%q;\n", clusters[gk].label)
			buf.WriteString("    style=\"rounded,dashed\";\n")
			indent = "    "
		}
		for _, n := range clusters[gk].nodes {
			fmt.Fprintf(&buf, "%s%q [%s];\n", indent, string(n.ID), strings.Join(nodeAttrs(n, opts.Detailed), ", "))
		}
		if gk != "" {
			buf.WriteString("  }\n")
		}
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", string(e.Source), string(e.Target), strings.Join(edgeAttrs(e), ", "))
	}
	buf.WriteString("}\n")
	return buf.String()
}

type cluster struct {
	label string
	nodes []flow.Node
}

// clusterNodes buckets nodes by group key in first-seen order. With flat
// set, everything lands in the unnamed bucket "".
func clusterNodes(d flow.Diagram, flat bool) (map[entity.Key]*cluster, []entity.Key) {
	out := make(map[entity.Key]*cluster)
	var order []entity.Key
	for _, n := range d.Nodes {
		gk := n.Data.GroupKey
		if flat {
			gk = ""
		}
		c, ok := out[gk]
		if !ok {
			c = &cluster{}
			out[gk] = c
			order = append(order, gk)
		}
		if n.Type == flow.NodeTypeGroup {
			c.label = n.Data.Label
		}
		c.nodes = append(c.nodes, n)
	}
	return out, order
}

func nodeAttrs(n flow.Node, detailed bool) []string {
	label := n.Data.Label
	if detailed {
		label = fmt.Sprintf("%s\n%s", label, n.ID)
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%.1f,%.1f!\"", n.Position.X, -n.Position.Y),
		fmt.Sprintf("width=%.4f", n.Width/72),
		fmt.Sprintf("height=%.4f", n.Height/72),
	}
	switch {
	case n.Type == flow.NodeTypeGroup:
		attrs = append(attrs, "fillcolor=lightgrey", "fontname=\"Helvetica-Bold\"")
	case n.Data.Kind == entity.KindMeasure:
		attrs = append(attrs, "fillcolor=\"#ebfbee\"")
	default:
		attrs = append(attrs, "fillcolor=\"#e7f5ff\"")
	}
	if n.Data.MultiParent {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func edgeAttrs(e flow.Edge) []string {
	attrs := []string{fmt.Sprintf("class=%q", string(e.Class))}
	switch {
	case e.Style.Dashed:
		attrs = append(attrs, "style=dashed")
	case e.Style.Anchor:
		attrs = append(attrs, "style=dotted", "arrowhead=none")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG with the in-process dot engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's root element (pt units, odd
// transforms) with a plain pixel viewBox of the same extent.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
