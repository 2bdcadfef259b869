package transform

import "github.com/matzehuels/tracemap/pkg/dag"

// Result summarizes a [Normalize] run.
type Result struct {
	Removed  []dag.Edge // back edges dropped to break cycles
	Virtuals int        // virtual nodes inserted
}

// Normalize breaks cycles, assigns ranks and subdivides long edges in
// place.
func Normalize(g *dag.DAG) Result {
	removed := BreakCycles(g)
	AssignLayers(g)
	return Result{Removed: removed, Virtuals: Subdivide(g)}
}
