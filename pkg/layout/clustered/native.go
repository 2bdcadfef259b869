package clustered

import (
	"cmp"
	"maps"
	"slices"

	"github.com/matzehuels/tracemap/pkg/dag"
	"github.com/matzehuels/tracemap/pkg/dag/transform"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
)

const (
	maxSweeps     = 8
	maxTransposes = 4
)

func nativeLayout(g *graph, cfg layout.Config, sink diag.Sink) map[entity.Key]layout.Position {
	d := toDAG(g)

	res := transform.Normalize(d)
	for _, e := range res.Removed {
		diag.Info(sink, errors.CodeCycleBroken, entity.Key(e.From),
			"relationship to %s ignored for ranking to break a cycle", e.To)
	}

	orders := orderRanks(d, g.clusterIndex())
	return assignCoordinates(d, g, orders, cfg)
}

func toDAG(g *graph) *dag.DAG {
	d := dag.New()
	for _, n := range g.nodes {
		kind := dag.NodeKindEntity
		if n.header {
			kind = dag.NodeKindHeader
		}
		_ = d.AddNode(dag.Node{ID: string(n.key), Kind: kind, Cluster: string(n.cluster), Height: n.height})
	}
	for _, e := range g.edges {
		_ = d.AddEdge(dag.Edge{From: string(e[0]), To: string(e[1])})
	}
	return d
}

// orderRanks minimizes crossings with alternating barycenter sweeps and
// adjacent transpositions, keeping the best ordering seen. Within a rank,
// nodes are always grouped by cluster in cluster order.
func orderRanks(d *dag.DAG, clusters map[string]int) map[int][]string {
	ranks := d.RankIDs()
	orders := make(map[int][]string, len(ranks))
	for _, r := range ranks {
		ids := dag.NodeIDs(d.NodesInRank(r))
		orders[r] = sortByBarycenter(d, ids, nil, false, clusters)
	}

	best := cloneOrders(orders)
	bestCrossings := dag.CountCrossings(d, orders)

	for i := 0; i < maxSweeps && bestCrossings > 0; i++ {
		if i%2 == 0 {
			for k := 1; k < len(ranks); k++ {
				r := ranks[k]
				orders[r] = sortByBarycenter(d, orders[r], dag.PosMap(orders[r-1]), true, clusters)
			}
		} else {
			for k := len(ranks) - 2; k >= 0; k-- {
				r := ranks[k]
				orders[r] = sortByBarycenter(d, orders[r], dag.PosMap(orders[r+1]), false, clusters)
			}
		}
		transpose(d, orders, ranks, clusters)

		if c := dag.CountCrossings(d, orders); c < bestCrossings {
			best, bestCrossings = cloneOrders(orders), c
		}
	}
	return best
}

// sortByBarycenter orders ids by cluster, then by the mean position of
// their neighbours in the adjacent rank. Nodes without neighbours keep
// their current index as barycenter. A nil adjPos sorts by cluster only.
func sortByBarycenter(d *dag.DAG, ids []string, adjPos map[string]int, useParents bool, clusters map[string]int) []string {
	type item struct {
		id      string
		cluster int
		bc      float64
	}
	items := make([]item, len(ids))
	for i, id := range ids {
		n, _ := d.Node(id)
		it := item{id: id, cluster: clusters[n.Cluster], bc: float64(i)}
		if adjPos != nil {
			nbrs := d.Children(id)
			if useParents {
				nbrs = d.Parents(id)
			}
			sum, cnt := 0, 0
			for _, nb := range nbrs {
				if p, ok := adjPos[nb]; ok {
					sum += p
					cnt++
				}
			}
			if cnt > 0 {
				it.bc = float64(sum) / float64(cnt)
			}
		}
		items[i] = it
	}
	slices.SortStableFunc(items, func(a, b item) int {
		if c := cmp.Compare(a.cluster, b.cluster); c != 0 {
			return c
		}
		return cmp.Compare(a.bc, b.bc)
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

// transpose swaps neighbours of the same cluster while doing so strictly
// reduces crossings with both adjacent ranks.
func transpose(d *dag.DAG, orders map[int][]string, ranks []int, clusters map[string]int) {
	for pass := 0; pass < maxTransposes; pass++ {
		improved := false
		for _, r := range ranks {
			order := orders[r]
			prev, hasPrev := orders[r-1]
			next, hasNext := orders[r+1]
			var prevPos, nextPos map[string]int
			if hasPrev {
				prevPos = dag.PosMap(prev)
			}
			if hasNext {
				nextPos = dag.PosMap(next)
			}
			pair := func(a, b string) int {
				c := 0
				if hasPrev {
					c += dag.CountPairCrossings(d, a, b, prevPos, true)
				}
				if hasNext {
					c += dag.CountPairCrossings(d, a, b, nextPos, false)
				}
				return c
			}
			for i := 0; i+1 < len(order); i++ {
				a, b := order[i], order[i+1]
				na, _ := d.Node(a)
				nb, _ := d.Node(b)
				if clusters[na.Cluster] != clusters[nb.Cluster] {
					continue
				}
				if pair(b, a) < pair(a, b) {
					order[i], order[i+1] = b, a
					improved = true
				}
			}
		}
		if !improved {
			return
		}
	}
}

func cloneOrders(orders map[int][]string) map[int][]string {
	out := make(map[int][]string, len(orders))
	for _, r := range slices.Sorted(maps.Keys(orders)) {
		out[r] = slices.Clone(orders[r])
	}
	return out
}

// assignCoordinates places ranks left to right and stacks every cluster as
// a horizontal band: within a rank, the members of a cluster are stacked
// from the band's top in rank order. Virtual nodes get no position.
func assignCoordinates(d *dag.DAG, g *graph, orders map[int][]string, cfg layout.Config) map[entity.Key]layout.Position {
	clusters := g.clusterIndex()
	ranks := slices.Sorted(maps.Keys(orders))

	// Tallest stack of each cluster across ranks.
	band := make([]float64, len(g.clusters))
	for _, r := range ranks {
		stack := make([]float64, len(g.clusters))
		count := make([]int, len(g.clusters))
		for _, id := range orders[r] {
			n, _ := d.Node(id)
			if n.IsVirtual() {
				continue
			}
			ci := clusters[n.Cluster]
			if count[ci] > 0 {
				stack[ci] += cfg.InterEntityGap
			}
			stack[ci] += n.Height
			count[ci]++
		}
		for ci := range band {
			band[ci] = max(band[ci], stack[ci])
		}
	}

	tops := make([]float64, len(g.clusters))
	y := 0.0
	for ci := range band {
		tops[ci] = y
		y += band[ci] + cfg.InterGroupGap
	}

	pos := make(map[entity.Key]layout.Position, len(g.nodes))
	for _, r := range ranks {
		x := float64(r)*(cfg.NodeWidth+cfg.RankGap) + cfg.NodeWidth/2
		cursor := slices.Clone(tops)
		for _, id := range orders[r] {
			n, _ := d.Node(id)
			if n.IsVirtual() {
				continue
			}
			ci := clusters[n.Cluster]
			pos[entity.Key(id)] = layout.Position{
				X:      x,
				Y:      cursor[ci] + n.Height/2,
				Width:  cfg.NodeWidth,
				Height: n.Height,
			}
			cursor[ci] += n.Height + cfg.InterEntityGap
		}
	}
	return pos
}
