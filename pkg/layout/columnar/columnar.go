// Package columnar implements the column-aligned layout.
//
// Every group gets one column, ordered by sort key with the ungrouped
// column last. Inside a column, entities follow a depth-first walk over the
// relationships local to that column, so a parent is immediately followed
// by its descendants. Columns are then aligned into global rows: row i holds
// the i-th entity of every column, is as tall as its tallest entity, and
// every entity in it shares the row's vertical center.
package columnar

import (
	"context"

	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/layout"
	"github.com/matzehuels/tracemap/pkg/relations"
)

// Layouter is the columnar [layout.Layouter].
type Layouter struct{}

// Layout implements [layout.Layouter].
func (Layouter) Layout(ctx context.Context, in layout.Input, cfg layout.Config, sink diag.Sink) layout.Result {
	return Layout(in, cfg)
}

// Column is one group with its entities in walk order.
type Column struct {
	Group    entity.Group
	Entities []entity.Entity
}

// Layout computes columnar positions for in. Group headers sit at the top
// of their column, centered in the header slot.
func Layout(in layout.Input, cfg layout.Config) layout.Result {
	cfg = cfg.WithDefaults()
	in = in.Complete()

	res := layout.Result{
		Strategy:  layout.StrategyColumnar,
		Positions: make(map[entity.Key]layout.Position),
	}

	cols := Columns(in)
	rows := rowHeights(cols, cfg.BaseHeight)
	centers := rowCenters(rows, cfg.HeaderHeight, cfg.InterEntityGap)

	bottom := cfg.HeaderHeight
	if n := len(rows); n > 0 {
		bottom = centers[n-1] + rows[n-1]/2
	}

	for ci, col := range cols {
		x := float64(ci)*(cfg.ColumnWidth+cfg.ColumnGap) + cfg.ColumnWidth/2
		gk := col.Group.Key()
		res.Groups = append(res.Groups, gk)
		res.Positions[gk] = layout.Position{
			X:      x,
			Y:      cfg.HeaderHeight / 2,
			Width:  cfg.ColumnWidth,
			Height: cfg.HeaderHeight,
		}
		for ri, e := range col.Entities {
			res.Positions[e.Key()] = layout.Position{
				X:      x,
				Y:      centers[ri],
				Width:  cfg.ColumnWidth,
				Height: layout.EstimateHeight(e, cfg.BaseHeight),
			}
		}
		res.Frames = append(res.Frames, layout.Frame{
			Key:    gk,
			X:      x - cfg.ColumnWidth/2,
			Y:      0,
			Width:  cfg.ColumnWidth,
			Height: bottom,
		})
	}
	return res
}

// Columns returns one column per group in layout order. Groups without
// entities keep their (empty) column.
func Columns(in layout.Input) []Column {
	in = in.Complete()
	buckets := layout.Buckets(in.Collection)
	groups := layout.SortGroups(in.Collection.Groups)

	cols := make([]Column, len(groups))
	for i, g := range groups {
		cols[i] = Column{Group: g, Entities: walk(buckets[g.Key()], in.Index)}
	}
	return cols
}

// walk orders the entities of one column depth-first. Only relationships
// whose both ends lie in the column count. Roots are entities without an
// in-column parent, taken in collection order; entities left unvisited
// (cycles) start new walks in collection order. Each entity appears once.
func walk(members []entity.Entity, idx *relations.Index) []entity.Entity {
	local := make(map[entity.Key]int, len(members))
	for i, e := range members {
		local[e.Key()] = i
	}

	children := make([][]int, len(members))
	hasParent := make([]bool, len(members))
	for i, e := range members {
		for _, ck := range idx.Children(e.Key()) {
			if j, ok := local[ck]; ok && j != i {
				children[i] = append(children[i], j)
				hasParent[j] = true
			}
		}
	}

	out := make([]entity.Entity, 0, len(members))
	visited := make([]bool, len(members))
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		out = append(out, members[i])
		for _, j := range children[i] {
			visit(j)
		}
	}

	for i := range members {
		if !hasParent[i] {
			visit(i)
		}
	}
	for i := range members {
		visit(i)
	}
	return out
}

// rowHeights returns the height of every global row: the tallest entity
// among the columns that have one at that index.
func rowHeights(cols []Column, base float64) []float64 {
	var rows []float64
	for _, col := range cols {
		for ri, e := range col.Entities {
			h := layout.EstimateHeight(e, base)
			if ri == len(rows) {
				rows = append(rows, h)
			} else {
				rows[ri] = max(rows[ri], h)
			}
		}
	}
	return rows
}

// rowCenters returns the vertical center of every row: the header height,
// plus every preceding row and its gap, plus half the row's own height.
func rowCenters(rows []float64, header, gap float64) []float64 {
	centers := make([]float64, len(rows))
	top := header
	for i, h := range rows {
		centers[i] = top + h/2
		top += h + gap
	}
	return centers
}
