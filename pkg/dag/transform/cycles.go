package transform

import "github.com/matzehuels/tracemap/pkg/dag"

// BreakCycles removes the back edges found by a depth-first search started
// from the sources in insertion order, then from any node still unvisited.
// It returns the removed edges in discovery order; parallel copies of a
// back edge are removed together and reported once.
func BreakCycles(g *dag.DAG) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var back []dag.Edge
	seen := make(map[dag.Edge]bool)

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range g.Children(id) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				e := dag.Edge{From: id, To: child}
				if !seen[e] {
					seen[e] = true
					back = append(back, e)
				}
			}
		}
		color[id] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}
	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, e := range back {
		g.RemoveEdge(e.From, e.To)
	}
	return back
}
