// Package nodelink exports diagrams as Graphviz DOT and renders them with
// Graphviz.
//
// # DOT Export
//
// [ToDOT] writes one node per diagram node and one edge per diagram edge.
// Entities are grouped into clusters by their group key, and every node
// carries its computed center as a pinned pos attribute (points, y up), so
// the file can be fed to neato -n for a faithful redraw:
//
//	dot := nodelink.ToDOT(d, nodelink.Options{})
//	// neato -n -Tsvg diagram.dot
//
// # Graphviz Rendering
//
// [RenderSVG] runs the in-process dot engine from
// [github.com/goccy/go-graphviz] on the exported DOT. dot recomputes its own
// ranks and ignores pinned positions, so the result is a topology preview
// that is useful for checking relationships, not the computed layout. Use
// the svg package for a positioned preview.
package nodelink
