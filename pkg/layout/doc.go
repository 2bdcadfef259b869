// Package layout defines the contract shared by the layout strategies.
//
// A layout consumes an [Input] (the collected entities, their relationship
// graph and its connection index) plus a [Config], and produces a [Result]:
// one [Position] per entity key and per group header key, the group order,
// and optional group frames.
//
// Two strategies exist, each in its own subpackage:
//
//   - clustered: a layered left-to-right drawing where every group is an
//     invisible container. The layered pass runs on the native engine
//     (pkg/dag) or on Graphviz dot.
//   - columnar: one column per group, parent→child chains kept contiguous,
//     rows aligned across columns.
//
// Layouts never fail on data. Degenerate input yields an empty result and
// recoverable findings are reported to a [diag.Sink].
//
// [diag.Sink]: github.com/matzehuels/tracemap/pkg/diag
package layout
