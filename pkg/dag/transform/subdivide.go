package transform

import (
	"fmt"

	"github.com/matzehuels/tracemap/pkg/dag"
)

// Subdivide replaces every edge spanning more than one rank with a chain of
// [dag.NodeKindVirtual] nodes so that all edges connect consecutive ranks:
//
//	Before: requirement:R1 (rank 1) → measure:M3 (rank 4)
//	After:  requirement:R1 → ~v:requirement:R1:2 → ~v:requirement:R1:3 → measure:M3
//
// Virtual nodes inherit the cluster of the edge source and carry its ID as
// MasterID. Generated IDs never collide with existing ones.
//
// It returns the number of virtual nodes inserted.
func Subdivide(g *dag.DAG) int {
	gen := newIDGen(g.Nodes())
	inserted := 0

	var long []dag.Edge
	seen := make(map[dag.Edge]bool)
	for _, e := range g.Edges() {
		src, srcOK := g.Node(e.From)
		dst, dstOK := g.Node(e.To)
		if srcOK && dstOK && dst.Rank > src.Rank+1 && !seen[e] {
			seen[e] = true
			long = append(long, e)
		}
	}

	for _, e := range long {
		src, _ := g.Node(e.From)
		dst, _ := g.Node(e.To)
		g.RemoveEdge(e.From, e.To)

		prev := src.ID
		for rank := src.Rank + 1; rank < dst.Rank; rank++ {
			id := gen.next(src.ID, rank)
			mustAdd(g.AddNode(dag.Node{
				ID:       id,
				Rank:     rank,
				Kind:     dag.NodeKindVirtual,
				Cluster:  src.Cluster,
				MasterID: src.EffectiveID(),
			}))
			mustAdd(g.AddEdge(dag.Edge{From: prev, To: id}))
			prev = id
			inserted++
		}
		mustAdd(g.AddEdge(dag.Edge{From: prev, To: dst.ID}))
	}
	return inserted
}

// mustAdd panics on errors that indicate a bug in this package: every node
// and edge added during subdivision references IDs that were just checked.
func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}

type idGen struct {
	used map[string]struct{}
}

func newIDGen(nodes []*dag.Node) *idGen {
	m := make(map[string]struct{}, len(nodes)*2)
	for _, n := range nodes {
		m[n.ID] = struct{}{}
	}
	return &idGen{used: m}
}

func (gen *idGen) next(base string, rank int) string {
	prefix := fmt.Sprintf("~v:%s:%d", base, rank)
	id := prefix
	for i := 1; ; i++ {
		if _, exists := gen.used[id]; !exists {
			gen.used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s#%d", prefix, i)
	}
}
