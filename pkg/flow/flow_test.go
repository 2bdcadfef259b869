package flow

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matzehuels/tracemap/pkg/collect"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
	"github.com/matzehuels/tracemap/pkg/layout/clustered"
	"github.com/matzehuels/tracemap/pkg/layout/columnar"
)

func run(t *testing.T, strategy layout.Strategy, groups ...entity.Group) (Diagram, *diag.Recorder) {
	t.Helper()
	rec := &diag.Recorder{}
	in := layout.NewInput(collect.Collect(groups, rec), rec)
	var res layout.Result
	if strategy == layout.StrategyColumnar {
		res = columnar.Layout(in, layout.Config{})
	} else {
		res = clustered.Layout(context.Background(), in, layout.Config{}, rec)
	}
	return Build(res, in, rec), rec
}

func countNodes(d Diagram, typ NodeType, kind entity.Kind) int {
	n := 0
	for _, node := range d.Nodes {
		if node.Type == typ && (kind == "" || node.Data.Kind == kind) {
			n++
		}
	}
	return n
}

func countEdges(d Diagram, class EdgeClass) int {
	n := 0
	for _, e := range d.Edges {
		if e.Class == class {
			n++
		}
	}
	return n
}

// Two groups, each with one root requirement linked to one measure.
func TestBuild_TwoLinkedGroups(t *testing.T) {
	for _, s := range []layout.Strategy{layout.StrategyClustered, layout.StrategyColumnar} {
		t.Run(string(s), func(t *testing.T) {
			d, _ := run(t, s,
				entity.Group{ID: "a", Requirements: []entity.Entity{{ID: "R1", CrossLinks: []string{"M1"}}}, Measures: []entity.Entity{{ID: "M1"}}},
				entity.Group{ID: "b", Requirements: []entity.Entity{{ID: "R2"}}, Measures: []entity.Entity{{ID: "M2", CrossLinks: []string{"R2"}}}},
			)
			if got := countNodes(d, NodeTypeGroup, ""); got != 2 {
				t.Errorf("group nodes = %d, want 2", got)
			}
			if got := countNodes(d, NodeTypeEntity, entity.KindRequirement); got != 2 {
				t.Errorf("requirement nodes = %d, want 2", got)
			}
			if got := countNodes(d, NodeTypeEntity, entity.KindMeasure); got != 2 {
				t.Errorf("measure nodes = %d, want 2", got)
			}
			if got := countEdges(d, EdgeBusiness); got != 2 {
				t.Errorf("business edges = %d, want 2", got)
			}
			if got := countEdges(d, EdgeAnchor); got != 0 {
				t.Errorf("anchor edges = %d, want 0", got)
			}
		})
	}
}

// A group named "~ungrouped" and the ungrouped bucket get separate headers,
// each anchoring its own entity.
func TestBuild_TildeGroupSeparateFromUngrouped(t *testing.T) {
	for _, s := range []layout.Strategy{layout.StrategyClustered, layout.StrategyColumnar} {
		t.Run(string(s), func(t *testing.T) {
			d, _ := run(t, s,
				entity.Group{ID: "~ungrouped", Label: "Named", Requirements: []entity.Entity{{ID: "R1"}}},
				entity.Group{ID: "", Requirements: []entity.Entity{{ID: "R2"}}},
			)
			if got := countNodes(d, NodeTypeGroup, ""); got != 2 {
				t.Fatalf("group nodes = %d, want 2", got)
			}
			anchors := map[entity.Key]entity.Key{}
			for _, e := range d.Edges {
				if e.Class == EdgeAnchor {
					anchors[e.Target] = e.Source
				}
			}
			if got := anchors["requirement:R1"]; got != "group:~ungrouped" {
				t.Errorf("R1 anchored to %q", got)
			}
			if got := anchors["requirement:R2"]; got != entity.UngroupedKey {
				t.Errorf("R2 anchored to %q", got)
			}
		})
	}
}

// An ungrouped group with no entities produces no header node.
func TestBuild_EmptyUngroupedHasNoHeader(t *testing.T) {
	for _, s := range []layout.Strategy{layout.StrategyClustered, layout.StrategyColumnar} {
		t.Run(string(s), func(t *testing.T) {
			d, _ := run(t, s,
				entity.Group{ID: "a", Requirements: []entity.Entity{{ID: "R1"}}},
				entity.Group{ID: ""},
			)
			for _, n := range d.Nodes {
				if n.ID == entity.UngroupedKey {
					t.Fatalf("unexpected ungrouped header %+v", n)
				}
			}
			if got := countNodes(d, NodeTypeGroup, ""); got != 1 {
				t.Errorf("group nodes = %d, want 1", got)
			}
		})
	}
}

// A lone requirement in a named group is anchored to its header.
func TestBuild_LoneRequirementAnchored(t *testing.T) {
	d, _ := run(t, layout.StrategyClustered, entity.Group{ID: "a", Label: "Alpha", Requirements: []entity.Entity{{ID: "R1"}}})

	if len(d.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(d.Edges))
	}
	e := d.Edges[0]
	if e.Class != EdgeAnchor || e.Source != entity.GroupKey("a") || e.Target != entity.KeyOf(entity.KindRequirement, "R1") {
		t.Errorf("edge = %+v", e)
	}
	if !e.Style.Anchor || e.SourceHandle != "" || e.TargetHandle != TargetHandle {
		t.Errorf("anchor style/handles = %+v", e)
	}
}

// A measure linked to two requirements of the same group.
func TestBuild_MultiParentMeasure(t *testing.T) {
	d, _ := run(t, layout.StrategyClustered, entity.Group{ID: "a",
		Requirements: []entity.Entity{
			{ID: "R1", CrossLinks: []string{"M1"}},
			{ID: "R2", CrossLinks: []string{"M1"}},
		},
		Measures: []entity.Entity{{ID: "M1"}},
	})
	m1 := entity.KeyOf(entity.KindMeasure, "M1")
	node, ok := d.Node(m1)
	if !ok || !node.Data.MultiParent {
		t.Errorf("M1 node = %+v, want multi-parent", node)
	}
	into := 0
	for _, e := range d.Edges {
		if e.Target == m1 && e.Class == EdgeBusiness {
			into++
			if !e.Style.Dashed {
				t.Error("business edges should be dashed")
			}
		}
	}
	if into != 2 {
		t.Errorf("business edges into M1 = %d, want 2", into)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	d, _ := run(t, layout.StrategyClustered)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"nodes":[],"edges":[]}` {
		t.Errorf("json = %s", b)
	}
}

func TestBuild_HandleUniqueness(t *testing.T) {
	d, _ := run(t, layout.StrategyClustered, entity.Group{ID: "a",
		Requirements: []entity.Entity{
			{ID: "R1", CrossLinks: []string{"M1", "M2", "M3"}},
			{ID: "R2", ParentID: "R1"},
			{ID: "R3", CrossLinks: []string{"M3"}},
		},
		Measures: []entity.Entity{{ID: "M1"}, {ID: "M2"}, {ID: "M3"}},
	})

	r1 := entity.KeyOf(entity.KindRequirement, "R1")
	out := d.EdgesFrom(r1)
	if len(out) != 4 {
		t.Fatalf("edges from R1 = %d, want 4", len(out))
	}
	seen := map[string]bool{}
	for _, e := range out {
		if e.SourceHandle == "" {
			t.Errorf("edge %s has default handle", e.ID)
		}
		if seen[e.SourceHandle] {
			t.Errorf("handle %q reused", e.SourceHandle)
		}
		seen[e.SourceHandle] = true
	}
	// Discovery order: hierarchy first, then business by measure index.
	want := []string{"source-a", "source-b", "source-c", "source-d"}
	for i, e := range out {
		if e.SourceHandle != want[i] {
			t.Errorf("edge %d handle = %q, want %q", i, e.SourceHandle, want[i])
		}
	}
	for _, e := range d.EdgesFrom(entity.KeyOf(entity.KindRequirement, "R3")) {
		if e.SourceHandle != "" {
			t.Errorf("single-edge source got handle %q", e.SourceHandle)
		}
	}
}

func TestAssignHandles_Rotation(t *testing.T) {
	edges := make([]Edge, 6)
	for i := range edges {
		edges[i].Source = "requirement:R1"
	}
	assignHandles(edges)
	if edges[4].SourceHandle != SourceHandles[0] || edges[5].SourceHandle != SourceHandles[1] {
		t.Errorf("rotation should wrap: %q %q", edges[4].SourceHandle, edges[5].SourceHandle)
	}
}

func TestBuild_EdgeValidityAndCoverage(t *testing.T) {
	groups := []entity.Group{
		{ID: "a", Requirements: []entity.Entity{{ID: "R1"}, {ID: "R2", ParentID: "R1"}, {ID: "R3", ParentID: "nope"}},
			Measures: []entity.Entity{{ID: "M1", CrossLinks: []string{"R2", "ghost"}}}},
		{ID: "b", Requirements: []entity.Entity{{ID: "R1"}, {ID: "R4"}}, Measures: []entity.Entity{{ID: "M1"}}},
		{Measures: []entity.Entity{{ID: "M9"}}},
	}
	for _, s := range []layout.Strategy{layout.StrategyClustered, layout.StrategyColumnar} {
		t.Run(string(s), func(t *testing.T) {
			d, rec := run(t, s, groups...)

			ids := map[entity.Key]int{}
			for _, n := range d.Nodes {
				ids[n.ID]++
			}
			for id, n := range ids {
				if n != 1 {
					t.Errorf("node %s appears %d times", id, n)
				}
			}
			for _, k := range []string{"requirement:R1", "requirement:R2", "requirement:R3", "requirement:R4", "measure:M1", "measure:M9"} {
				if ids[entity.Key(k)] != 1 {
					t.Errorf("entity %s missing from nodes", k)
				}
			}
			for _, e := range d.Edges {
				if ids[e.Source] == 0 || ids[e.Target] == 0 {
					t.Errorf("edge %s references unknown node", e.ID)
				}
			}
			if rec.Count(errors.CodeDanglingParent) != 1 || rec.Count(errors.CodeDanglingCrossLink) != 1 {
				t.Errorf("diagnostics = %v", rec.All())
			}
		})
	}
}

func TestBuild_DropsEdgesWithoutPosition(t *testing.T) {
	in := layout.NewInput(collect.Collect([]entity.Group{{ID: "a",
		Requirements: []entity.Entity{{ID: "R1", CrossLinks: []string{"M1"}}},
		Measures:     []entity.Entity{{ID: "M1"}},
	}}, nil), nil)
	res := clustered.Layout(context.Background(), in, layout.Config{}, nil)
	delete(res.Positions, entity.KeyOf(entity.KindMeasure, "M1"))

	var rec diag.Recorder
	d := Build(res, in, &rec)
	if len(d.Edges) != 0 {
		t.Errorf("edges = %+v, want none", d.Edges)
	}
	if rec.Count(errors.CodeMissingPosition) != 1 {
		t.Errorf("MISSING_POSITION count = %d, want 1", rec.Count(errors.CodeMissingPosition))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	groups := func() []entity.Group {
		return []entity.Group{
			{ID: "a", SortKey: 2, Requirements: []entity.Entity{{ID: "R1", CrossLinks: []string{"M1", "M2"}}, {ID: "R2", ParentID: "R1"}},
				Measures: []entity.Entity{{ID: "M1"}, {ID: "M2", ParentID: "M1"}}},
			{ID: "b", SortKey: 1, Requirements: []entity.Entity{{ID: "R3", CrossLinks: []string{"M1"}}}},
		}
	}
	for _, s := range []layout.Strategy{layout.StrategyClustered, layout.StrategyColumnar} {
		first, _ := run(t, s, groups()...)
		for range 5 {
			got, _ := run(t, s, groups()...)
			if !reflect.DeepEqual(got, first) {
				t.Fatalf("%s: diagram differs between identical runs", s)
			}
		}
	}
}

func TestBuild_Routing(t *testing.T) {
	g := entity.Group{ID: "a", Requirements: []entity.Entity{{ID: "R1"}}}
	d, _ := run(t, layout.StrategyClustered, g)
	if d.Edges[0].Style.Routing != RoutingSmoothStep {
		t.Errorf("clustered routing = %q", d.Edges[0].Style.Routing)
	}
	d, _ = run(t, layout.StrategyColumnar, g)
	if d.Edges[0].Style.Routing != RoutingBezier {
		t.Errorf("columnar routing = %q", d.Edges[0].Style.Routing)
	}
}

func TestBuild_NodeOrder(t *testing.T) {
	d, _ := run(t, layout.StrategyColumnar,
		entity.Group{ID: "b", SortKey: 2, Measures: []entity.Entity{{ID: "M1"}}, Requirements: []entity.Entity{{ID: "R2"}}},
		entity.Group{ID: "a", SortKey: 1, Requirements: []entity.Entity{{ID: "R1"}}},
	)
	var got []string
	for _, n := range d.Nodes {
		got = append(got, string(n.ID))
	}
	want := []string{"group:a", "group:b", "requirement:R2", "requirement:R1", "measure:M1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("node order = %v, want %v", got, want)
	}
}
