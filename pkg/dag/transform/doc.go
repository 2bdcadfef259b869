// Package transform normalizes a [dag.DAG] for layered layout.
//
// # Overview
//
// Relationship graphs arrive with cycles (bad hierarchy data, mutual
// business links) and edges spanning arbitrary distances. The native
// layout engine needs a proper layered graph: acyclic, ranked, and with
// every edge joining consecutive ranks. [Normalize] applies the steps in
// order:
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//	transform.Subdivide(g)
//
// # Cycle Breaking
//
// [BreakCycles] removes DFS back edges and returns them so callers can
// report which relationships were ignored for ranking.
//
// # Layer Assignment
//
// [AssignLayers] places each node at the length of the longest path from a
// source (Kahn's algorithm).
//
// # Edge Subdivision
//
// [Subdivide] splits long edges with virtual nodes. Virtual nodes take part
// in crossing minimization and are discarded once coordinates are assigned.
//
// [dag.DAG]: github.com/matzehuels/tracemap/pkg/dag
package transform
