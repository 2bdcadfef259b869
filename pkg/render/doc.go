// Package render groups the diagram renderers.
//
// Rendering is an application concern: the layout core emits a
// [flow.Diagram] with positions and classification data, and the renderers
// here turn it into files for inspection.
//
//   - [svg]: positioned SVG preview drawn directly from the diagram
//   - [nodelink]: Graphviz DOT export and Graphviz-rendered topology preview
//
// Both are reachable from the CLI render command and from
// pipeline.Runner.Render, which caches artifacts by diagram hash.
//
// [flow.Diagram]: github.com/matzehuels/tracemap/pkg/flow.Diagram
// [svg]: github.com/matzehuels/tracemap/pkg/render/svg
// [nodelink]: github.com/matzehuels/tracemap/pkg/render/nodelink
package render
