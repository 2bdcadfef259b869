// Package clustered implements the clustered layered layout.
//
// Every group becomes an invisible cluster holding a visible header node and
// one node per entity. Headers are anchored to the roots of their group and
// every relationship becomes a layout edge. A layered pass assigns ranks
// left to right and orders nodes within each rank; a post-pass restacks
// each group vertically, optionally nudges multi-parent entities toward
// their parents, and guarantees that no two nodes share a center.
//
// Two layered engines are available. The native engine runs on pkg/dag:
// cycle breaking, longest-path ranking, long-edge subdivision and
// barycenter sweeps that keep clusters contiguous. The dot engine hands the
// compound graph to Graphviz and falls back to native when Graphviz fails.
package clustered

import (
	"context"

	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// Layouter is the clustered [layout.Layouter].
type Layouter struct{}

// Layout implements [layout.Layouter].
func (Layouter) Layout(ctx context.Context, in layout.Input, cfg layout.Config, sink diag.Sink) layout.Result {
	return Layout(ctx, in, cfg, sink)
}

// Layout computes clustered positions for in. It never fails: a failing
// dot engine is replaced by the native one and reported as
// ENGINE_FALLBACK.
func Layout(ctx context.Context, in layout.Input, cfg layout.Config, sink diag.Sink) layout.Result {
	cfg = cfg.WithDefaults()
	sink = diag.OrDiscard(sink)
	in = in.Complete()

	res := layout.Result{
		Strategy:  layout.StrategyClustered,
		Engine:    cfg.Engine,
		Positions: make(map[entity.Key]layout.Position),
	}

	g := newGraph(in, cfg)
	if len(g.nodes) == 0 {
		return res
	}

	var raw map[entity.Key]layout.Position
	if cfg.Engine == layout.EngineDot {
		var err error
		if raw, err = dotLayout(ctx, g, cfg); err != nil {
			diag.Warn(sink, errors.CodeEngineFallback, "", string(layout.EngineDot),
				"graphviz layout failed, using native engine: %v", err)
			raw = nil
			res.Engine = layout.EngineNative
		}
	}
	if raw == nil {
		raw = nativeLayout(g, cfg, sink)
	}

	pos := raw
	if cfg.RegroupEnabled() {
		pos = regroup(g, raw, cfg)
	}
	if cfg.EnableMultiParentAdjustment {
		adjustMultiParents(in, g, pos, cfg, cfg.RegroupEnabled())
	}
	resolveCollisions(g, pos)

	res.Positions = pos
	res.Groups = g.clusters
	res.Frames = frames(g, pos, cfg)
	return res
}

// node is one header or entity of the compound graph.
type node struct {
	key     entity.Key
	cluster entity.Key
	height  float64
	header  bool
}

// graph is the compound graph shared by both engines. Nodes are stored
// group by group: header first, then the group's entities in collection
// order.
type graph struct {
	nodes    []node
	index    map[entity.Key]int
	edges    [][2]entity.Key
	clusters []entity.Key
	members  map[entity.Key][]int
}

func newGraph(in layout.Input, cfg layout.Config) *graph {
	g := &graph{
		index:   make(map[entity.Key]int),
		members: make(map[entity.Key][]int),
	}
	buckets := layout.Buckets(in.Collection)

	for _, grp := range layout.SortGroups(in.Collection.Groups) {
		ck := grp.Key()
		g.clusters = append(g.clusters, ck)
		g.add(node{key: ck, cluster: ck, height: cfg.HeaderHeight, header: true})
		for _, e := range buckets[ck] {
			g.add(node{key: e.Key(), cluster: ck, height: layout.EstimateHeight(e, cfg.BaseHeight)})
		}
	}

	// Anchors: header to every group root.
	for _, ck := range g.clusters {
		for _, i := range g.members[ck] {
			n := g.nodes[i]
			if !n.header && !in.Index.HasIncoming(n.key) {
				g.edges = append(g.edges, [2]entity.Key{ck, n.key})
			}
		}
	}
	for _, r := range in.Graph.Relationships() {
		_, okP := g.index[r.Parent]
		_, okC := g.index[r.Child]
		if okP && okC {
			g.edges = append(g.edges, [2]entity.Key{r.Parent, r.Child})
		}
	}
	return g
}

func (g *graph) add(n node) {
	if _, dup := g.index[n.key]; dup {
		return
	}
	g.index[n.key] = len(g.nodes)
	g.members[n.cluster] = append(g.members[n.cluster], len(g.nodes))
	g.nodes = append(g.nodes, n)
}

func (g *graph) clusterIndex() map[string]int {
	m := make(map[string]int, len(g.clusters))
	for i, ck := range g.clusters {
		m[string(ck)] = i
	}
	return m
}
