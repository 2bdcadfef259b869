package transform

import "github.com/matzehuels/tracemap/pkg/dag"

// AssignLayers assigns every node a rank equal to the length of the longest
// path reaching it, using Kahn's topological traversal:
//   - Sources are at rank 0
//   - Every parent is strictly left of its children
//
// Existing rank assignments are overwritten. AssignLayers assumes an
// acyclic graph; nodes on a cycle never reach zero in-degree and keep
// rank 0. Run [BreakCycles] first.
//
// Time complexity is O(V + E).
func AssignLayers(g *dag.DAG) {
	nodes := g.Nodes()
	inDegree := make(map[string]int, len(nodes))
	ranks := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		degree := g.InDegree(n.ID)
		inDegree[n.ID] = degree
		ranks[n.ID] = 0
		if degree == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range g.Children(curr) {
			if r := ranks[curr] + 1; r > ranks[child] {
				ranks[child] = r
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	g.SetRanks(ranks)
}
