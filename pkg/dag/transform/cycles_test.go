package transform

import (
	"testing"

	"github.com/matzehuels/tracemap/pkg/dag"
)

func graph(nodes []string, edges ...[2]string) *dag.DAG {
	g := dag.New()
	for _, id := range nodes {
		_ = g.AddNode(dag.Node{ID: id})
	}
	for _, e := range edges {
		_ = g.AddEdge(dag.Edge{From: e[0], To: e[1]})
	}
	return g
}

func TestBreakCycles(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []string
		edges     [][2]string
		removed   int
		remaining int
	}{
		{"no cycles", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, 0, 2},
		{"simple cycle", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}}, 1, 1},
		{"triangle", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, 1, 2},
		{"two cycles", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}}, 2, 2},
		{"self loop", []string{"a"}, [][2]string{{"a", "a"}}, 1, 0},
		{"diamond", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}, 0, 4},
		{"parallel back edges", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}, {"b", "a"}}, 1, 1},
		{"empty", nil, nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph(tt.nodes, tt.edges...)
			removed := BreakCycles(g)
			if len(removed) != tt.removed {
				t.Errorf("BreakCycles() removed %v, want %d edges", removed, tt.removed)
			}
			if g.EdgeCount() != tt.remaining {
				t.Errorf("EdgeCount() = %d, want %d", g.EdgeCount(), tt.remaining)
			}
			if again := BreakCycles(g); len(again) != 0 {
				t.Errorf("graph still cyclic: %v", again)
			}
		})
	}
}

func TestBreakCycles_Deterministic(t *testing.T) {
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}, {"d", "b"}}
	first := BreakCycles(graph([]string{"a", "b", "c", "d"}, edges...))
	for range 20 {
		got := BreakCycles(graph([]string{"a", "b", "c", "d"}, edges...))
		if len(got) != len(first) {
			t.Fatalf("removed %v, want %v", got, first)
		}
		for i := range got {
			if got[i] != first[i] {
				t.Fatalf("removed %v, want %v", got, first)
			}
		}
	}
}

func TestAssignLayers_LongestPath(t *testing.T) {
	g := graph([]string{"a", "b", "c", "d"}, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"a", "c"}, [2]string{"d", "c"})
	AssignLayers(g)

	want := map[string]int{"a": 0, "b": 1, "c": 2, "d": 0}
	for id, rank := range want {
		n, _ := g.Node(id)
		if n.Rank != rank {
			t.Errorf("%s.Rank = %d, want %d", id, n.Rank, rank)
		}
	}
}

func TestSubdivide(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "a", Rank: 0, Cluster: "x"})
	_ = g.AddNode(dag.Node{ID: "b", Rank: 3, Cluster: "y"})
	_ = g.AddNode(dag.Node{ID: "~v:a:1"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})

	if n := Subdivide(g); n != 2 {
		t.Fatalf("Subdivide() inserted %d, want 2", n)
	}
	if g.HasEdge("a", "b") {
		t.Error("long edge should be removed")
	}

	virtual := 0
	for _, n := range g.Nodes() {
		if !n.IsVirtual() {
			continue
		}
		virtual++
		if n.Cluster != "x" || n.MasterID != "a" {
			t.Errorf("virtual %s: cluster=%q master=%q", n.ID, n.Cluster, n.MasterID)
		}
		if n.ID == "~v:a:1" {
			t.Error("virtual ID collided with an existing node")
		}
	}
	if virtual != 2 {
		t.Errorf("virtual nodes = %d, want 2", virtual)
	}
	if g.InDegree("b") != 1 {
		t.Errorf("InDegree(b) = %d, want 1", g.InDegree("b"))
	}
}

func TestNormalize_Valid(t *testing.T) {
	g := graph([]string{"a", "b", "c", "d"},
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}, [2]string{"a", "d"}, [2]string{"c", "d"})
	res := Normalize(g)
	if len(res.Removed) != 1 {
		t.Errorf("Removed = %v, want one back edge", res.Removed)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after Normalize = %v", err)
	}
}
