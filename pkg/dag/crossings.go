package dag

import (
	"maps"
	"slices"
)

// CountCrossings returns the total number of edge crossings for the given
// rank orderings, summed over each pair of consecutive ranks. Ranks without
// an entry are treated as empty.
//
//	orders := map[int][]string{
//	    0: {"group:a", "group:b"},
//	    1: {"requirement:R1", "requirement:R2"},
//	}
//	crossings := dag.CountCrossings(g, orders)
func CountCrossings(g *DAG, orders map[int][]string) int {
	ranks := slices.Sorted(maps.Keys(orders))
	crossings := 0
	for i := 0; i < len(ranks)-1; i++ {
		r := ranks[i]
		crossings += CountLayerCrossings(g, orders[r], orders[r+1])
	}
	return crossings
}

// CountLayerCrossings counts edge crossings between two adjacent ranks.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if
//
//	pos(u1) < pos(u2) AND pos(v1) > pos(v2)
//
// which is the number of inversions in the sequence of target positions
// once edges are sorted by source position. A Fenwick tree counts them in
// O(E log V).
func CountLayerCrossings(g *DAG, left, right []string) int {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	rightPos := PosMap(right)

	type edge struct{ from, to int }
	edges := make([]edge, 0, len(left)*2)
	for i, id := range left {
		for _, child := range g.Children(id) {
			if pos, ok := rightPos[child]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	slices.SortFunc(edges, func(a, b edge) int {
		if a.from != b.from {
			return a.from - b.from
		}
		return a.to - b.to
	})

	fenwick := make([]int, len(right)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.to + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for i := e.to + 1; i < len(fenwick); i += i & (-i) {
			fenwick[i]++
		}
	}
	return crossings
}

// CountPairCrossings counts the crossings between the edges of two nodes
// of the same rank, with upper placed before lower, against the adjacent
// rank whose positions are given by adjPos. If useParents is true the
// previous rank is considered, otherwise the next one.
//
// Comparing CountPairCrossings(a, b) with CountPairCrossings(b, a) tells
// whether swapping two neighbours reduces crossings.
func CountPairCrossings(g *DAG, upper, lower string, adjPos map[string]int, useParents bool) int {
	var un, ln []string
	if useParents {
		un, ln = g.Parents(upper), g.Parents(lower)
	} else {
		un, ln = g.Children(upper), g.Children(lower)
	}

	crossings := 0
	for _, a := range un {
		ap, ok := adjPos[a]
		if !ok {
			continue
		}
		for _, b := range ln {
			if bp, ok := adjPos[b]; ok && ap > bp {
				crossings++
			}
		}
	}
	return crossings
}
