// Package svg renders a diagram as a static SVG preview.
//
// The preview is a debugging aid: it draws group frames, entity boxes and
// edge paths at the positions computed by the pipeline, using the routing
// and handle data carried on each edge. It makes no attempt at the styling
// of an interactive front end.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/flow"
)

const hoverCSS = `
    .node { transition: stroke-width 0.2s ease; }
    .node.highlight { stroke-width: 3; }
    .edge.highlight { stroke-width: 2.5; stroke: #d9480f; }`

const hoverJS = `
    function highlight(id) {
      document.querySelectorAll('.node').forEach(n => n.classList.toggle('highlight', n.id === 'node-' + id));
      document.querySelectorAll('.edge').forEach(e => e.classList.toggle('highlight', e.dataset.source === id || e.dataset.target === id));
    }
    function clearHighlight() {
      document.querySelectorAll('.node, .edge').forEach(el => el.classList.remove('highlight'));
    }
    document.querySelectorAll('.node').forEach(el => {
      el.addEventListener('mouseenter', () => highlight(el.id.replace('node-', '')));
      el.addEventListener('mouseleave', clearHighlight);
    });`

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	padding     float64
	labels      bool
	interactive bool
}

// WithPadding sets the margin around the drawing (default 24).
func WithPadding(p float64) Option { return func(r *renderer) { r.padding = p } }

// WithoutLabels omits node labels.
func WithoutLabels() Option { return func(r *renderer) { r.labels = false } }

// WithInteraction embeds hover highlighting CSS and JS.
func WithInteraction() Option { return func(r *renderer) { r.interactive = true } }

// Render draws d. An empty diagram yields a valid, empty SVG document.
func Render(d flow.Diagram, opts ...Option) []byte {
	r := renderer{padding: 24, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	minX, minY, maxX, maxY := bounds(d)
	w := maxX - minX + 2*r.padding
	h := maxY - minY + 2*r.padding

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		minX-r.padding, minY-r.padding, w, h, w, h)
	buf.WriteString(`  <defs><marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="#495057"/></marker></defs>` + "\n")

	for _, n := range d.Nodes {
		if n.Type == flow.NodeTypeGroup {
			renderGroup(&buf, n, r.labels)
		}
	}
	nodes := make(map[entity.Key]flow.Node, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes[n.ID] = n
	}
	for _, e := range d.Edges {
		src, okS := nodes[e.Source]
		dst, okT := nodes[e.Target]
		if okS && okT {
			renderEdge(&buf, e, src, dst)
		}
	}
	for _, n := range d.Nodes {
		if n.Type == flow.NodeTypeEntity {
			renderEntity(&buf, n, r.labels)
		}
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", hoverCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", hoverJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func bounds(d flow.Diagram) (minX, minY, maxX, maxY float64) {
	if len(d.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range d.Nodes {
		minX = min(minX, n.Position.X-n.Width/2)
		minY = min(minY, n.Position.Y-n.Height/2)
		maxX = max(maxX, n.Position.X+n.Width/2)
		maxY = max(maxY, n.Position.Y+n.Height/2)
	}
	return minX, minY, maxX, maxY
}

func fill(n flow.Node) string {
	switch n.Data.Kind {
	case entity.KindRequirement:
		return "#e7f5ff"
	case entity.KindMeasure:
		return "#ebfbee"
	}
	return "#f8f9fa"
}

func renderGroup(buf *bytes.Buffer, n flow.Node, labels bool) {
	x, y := n.Position.X-n.Width/2, n.Position.Y-n.Height/2
	fmt.Fprintf(buf, `  <rect id="node-%s" class="group" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6" fill="#f1f3f5" stroke="#adb5bd"/>`+"\n",
		escape(string(n.ID)), x, y, n.Width, n.Height)
	if labels {
		text(buf, n.Position.X, n.Position.Y, n.Data.Label, "600")
	}
}

func renderEntity(buf *bytes.Buffer, n flow.Node, labels bool) {
	x, y := n.Position.X-n.Width/2, n.Position.Y-n.Height/2
	stroke, width := "#495057", 1.0
	if n.Data.MultiParent {
		stroke, width = "#e67700", 2.0
	}
	fmt.Fprintf(buf, `  <rect id="node-%s" class="node" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
		escape(string(n.ID)), x, y, n.Width, n.Height, fill(n), stroke, width)
	if labels {
		text(buf, n.Position.X, n.Position.Y, n.Data.Label, "400")
	}
}

func text(buf *bytes.Buffer, x, y float64, label, weight string) {
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="13" font-weight="%s">%s</text>`+"\n",
		x, y, weight, escape(label))
}

// handleY places source handles evenly down the right side of the node.
func handleY(n flow.Node, handle string) float64 {
	for i, h := range flow.SourceHandles {
		if h == handle {
			step := n.Height / float64(len(flow.SourceHandles)+1)
			return n.Position.Y - n.Height/2 + step*float64(i+1)
		}
	}
	return n.Position.Y
}

func renderEdge(buf *bytes.Buffer, e flow.Edge, src, dst flow.Node) {
	x1, y1 := src.Position.X+src.Width/2, handleY(src, e.SourceHandle)
	x2, y2 := dst.Position.X-dst.Width/2, dst.Position.Y
	if e.Style.Anchor {
		x1, y1 = src.Position.X, src.Position.Y+src.Height/2
	}

	var d string
	switch e.Style.Routing {
	case flow.RoutingBezier:
		c := math.Max(math.Abs(x2-x1)/2, 24)
		d = fmt.Sprintf("M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f", x1, y1, x1+c, y1, x2-c, y2, x2, y2)
	default:
		mid := (x1 + x2) / 2
		d = fmt.Sprintf("M %.1f %.1f H %.1f V %.1f H %.1f", x1, y1, mid, y2, x2)
	}

	dash := ""
	switch {
	case e.Style.Dashed:
		dash = ` stroke-dasharray="6 4"`
	case e.Style.Anchor:
		dash = ` stroke-dasharray="2 3" stroke-opacity="0.5"`
	}
	fmt.Fprintf(buf, `  <path class="edge" data-source="%s" data-target="%s" d="%s" fill="none" stroke="#495057"%s marker-end="url(#arrow)"/>`+"\n",
		escape(string(e.Source)), escape(string(e.Target)), d, dash)
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
