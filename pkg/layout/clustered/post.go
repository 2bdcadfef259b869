package clustered

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// regroup restacks every cluster as its own band. Within a cluster, nodes
// sharing a rank (same x) are stacked from the band top in their raw
// vertical order. Bands are separated by InterGroupGap and are at least
// MinClusterHeight tall.
func regroup(g *graph, raw map[entity.Key]layout.Position, cfg layout.Config) map[entity.Key]layout.Position {
	out := make(map[entity.Key]layout.Position, len(raw))
	top := 0.0
	for _, ck := range g.clusters {
		columns := make(map[float64][]entity.Key)
		for _, i := range g.members[ck] {
			k := g.nodes[i].key
			p, ok := raw[k]
			if !ok {
				continue
			}
			col := math.Round(p.X)
			columns[col] = append(columns[col], k)
		}

		tallest := 0.0
		for _, col := range slices.Sorted(maps.Keys(columns)) {
			keys := columns[col]
			slices.SortStableFunc(keys, func(a, b entity.Key) int {
				return cmp.Compare(raw[a].Y, raw[b].Y)
			})
			cursor := top
			for j, k := range keys {
				p := raw[k]
				if j > 0 {
					cursor += cfg.InterEntityGap
				}
				p.Y = cursor + p.Height/2
				cursor += p.Height
				out[k] = p
			}
			tallest = max(tallest, cursor-top)
		}
		top += max(tallest, cfg.MinClusterHeight) + cfg.InterGroupGap
	}
	return out
}

// band is the vertical extent of one cluster.
type band struct{ top, bottom float64 }

// bands returns the current extent of every cluster, at least
// MinClusterHeight tall.
func bands(g *graph, pos map[entity.Key]layout.Position, cfg layout.Config) map[entity.Key]band {
	out := make(map[entity.Key]band, len(g.clusters))
	for _, ck := range g.clusters {
		b := band{top: math.Inf(1), bottom: math.Inf(-1)}
		for _, i := range g.members[ck] {
			if p, ok := pos[g.nodes[i].key]; ok {
				b.top, b.bottom = min(b.top, p.Top()), max(b.bottom, p.Bottom())
			}
		}
		if math.IsInf(b.top, 1) {
			continue
		}
		b.bottom = max(b.bottom, b.top+cfg.MinClusterHeight)
		out[ck] = b
	}
	return out
}

// adjustMultiParents moves every multi-parent entity toward the mean y of
// its positioned parents, clamped to its own cluster's band, then pushes
// overlapping cluster members in its rank down. When stacked is set (the
// bands were laid out top to bottom by regroup) a cluster that grows pushes
// the clusters below it down by the same amount.
func adjustMultiParents(in layout.Input, g *graph, pos map[entity.Key]layout.Position, cfg layout.Config, stacked bool) {
	extent := bands(g, pos, cfg)
	in.Collection.Each(func(e entity.Entity) {
		key := e.Key()
		if !in.Graph.IsMultiParent(key) {
			return
		}
		p, ok := pos[key]
		if !ok {
			return
		}
		sum, n := 0.0, 0
		for _, parent := range in.Index.Parents(key) {
			if pp, ok := pos[parent]; ok {
				sum += pp.Y
				n++
			}
		}
		if n == 0 {
			return
		}
		ck := g.nodes[g.index[key]].cluster
		b := extent[ck]
		p.Y = max(min(sum/float64(n), b.bottom-p.Height/2), b.top+p.Height/2)
		pos[key] = p
		settleColumn(g, pos, ck, p.X, key, cfg.InterEntityGap)

		if !stacked {
			return
		}
		bottom := b.bottom
		for _, i := range g.members[ck] {
			if q, ok := pos[g.nodes[i].key]; ok {
				bottom = max(bottom, q.Bottom())
			}
		}
		if grow := bottom - b.bottom; grow > 0 {
			shiftBelow(g, pos, extent, ck, grow)
		}
	})
}

// shiftBelow moves every cluster after ck down by dy and updates extent.
func shiftBelow(g *graph, pos map[entity.Key]layout.Position, extent map[entity.Key]band, ck entity.Key, dy float64) {
	after := false
	for _, c := range g.clusters {
		if c == ck {
			b := extent[c]
			b.bottom += dy
			extent[c] = b
			after = true
			continue
		}
		if !after {
			continue
		}
		for _, i := range g.members[c] {
			k := g.nodes[i].key
			if p, ok := pos[k]; ok {
				p.Y += dy
				pos[k] = p
			}
		}
		if b, ok := extent[c]; ok {
			extent[c] = band{top: b.top + dy, bottom: b.bottom + dy}
		}
	}
}

// settleColumn removes vertical overlaps among the members of cluster ck
// at x. The moved node wins ties against nodes at the same y; overlapping
// nodes below are pushed down.
func settleColumn(g *graph, pos map[entity.Key]layout.Position, ck entity.Key, x float64, moved entity.Key, gap float64) {
	col := math.Round(x)
	var keys []entity.Key
	for _, i := range g.members[ck] {
		k := g.nodes[i].key
		if p, ok := pos[k]; ok && math.Round(p.X) == col {
			keys = append(keys, k)
		}
	}
	slices.SortStableFunc(keys, func(a, b entity.Key) int {
		if c := cmp.Compare(pos[a].Y, pos[b].Y); c != 0 {
			return c
		}
		switch {
		case a == moved:
			return -1
		case b == moved:
			return 1
		}
		return 0
	})
	for i := 1; i < len(keys); i++ {
		prev, cur := pos[keys[i-1]], pos[keys[i]]
		if minTop := prev.Bottom() + gap; cur.Top() < minTop {
			cur.Y = minTop + cur.Height/2
			pos[keys[i]] = cur
		}
	}
}

// resolveCollisions guarantees that no two nodes share the same center.
// Nodes are visited in graph order; a node landing on an occupied center
// moves down one point at a time.
func resolveCollisions(g *graph, pos map[entity.Key]layout.Position) {
	taken := make(map[[2]float64]bool, len(pos))
	for _, n := range g.nodes {
		p, ok := pos[n.key]
		if !ok {
			continue
		}
		for taken[[2]float64{p.X, p.Y}] {
			p.Y++
		}
		taken[[2]float64{p.X, p.Y}] = true
		pos[n.key] = p
	}
}

// frames computes the bounding box of each cluster, padded by half the
// sibling gap and at least MinClusterHeight tall.
func frames(g *graph, pos map[entity.Key]layout.Position, cfg layout.Config) []layout.Frame {
	pad := cfg.InterEntityGap / 2
	out := make([]layout.Frame, 0, len(g.clusters))
	for _, ck := range g.clusters {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, i := range g.members[ck] {
			p, ok := pos[g.nodes[i].key]
			if !ok {
				continue
			}
			minX, maxX = min(minX, p.X-p.Width/2), max(maxX, p.X+p.Width/2)
			minY, maxY = min(minY, p.Top()), max(maxY, p.Bottom())
		}
		if math.IsInf(minX, 1) {
			continue
		}
		h := max(maxY-minY+2*pad, cfg.MinClusterHeight)
		out = append(out, layout.Frame{
			Key:    ck,
			X:      minX - pad,
			Y:      minY - pad,
			Width:  maxX - minX + 2*pad,
			Height: h,
		})
	}
	return out
}
