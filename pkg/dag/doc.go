// Package dag provides the ranked directed graph behind the native layered
// layout engine.
//
// # Overview
//
// Nodes are organized into ranks that run left to right. After
// normalization (see the [transform] subpackage) every edge connects
// consecutive ranks, which makes crossing counting and ordering sweeps
// straightforward:
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "group:a", Rank: 0, Kind: dag.NodeKindHeader, Cluster: "a"})
//	g.AddNode(dag.Node{ID: "requirement:R1", Rank: 1, Cluster: "a", Height: 60})
//	g.AddEdge(dag.Edge{From: "group:a", To: "requirement:R1"})
//
// # Node Kinds
//
//   - [NodeKindEntity]: a requirement or measure
//   - [NodeKindHeader]: a group header
//   - [NodeKindVirtual]: a synthetic node splitting a long edge
//
// Every node carries the cluster (group) it belongs to so that ordering can
// keep clusters contiguous within each rank.
//
// # Determinism
//
// Iteration follows insertion order everywhere ([DAG.Nodes], [DAG.Sources],
// [DAG.NodesInRank]). Layouts computed from the same input are therefore
// identical across runs.
//
// # Edge Crossings
//
// [CountCrossings] and [CountLayerCrossings] count inversions with a
// Fenwick tree in O(E log V). [CountPairCrossings] supports adjacent-swap
// refinement.
//
// DAG instances are not safe for concurrent use.
//
// [transform]: github.com/matzehuels/tracemap/pkg/dag/transform
package dag
