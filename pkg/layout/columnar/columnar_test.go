package columnar

import (
	"testing"

	"github.com/matzehuels/tracemap/pkg/collect"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/layout"
)

func input(groups ...entity.Group) layout.Input {
	return layout.NewInput(collect.Collect(groups, nil), nil)
}

func rk(id string) entity.Key { return entity.KeyOf(entity.KindRequirement, id) }
func mk(id string) entity.Key { return entity.KeyOf(entity.KindMeasure, id) }

func ids(es []entity.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = string(e.Key())
	}
	return out
}

func TestColumns_DepthFirstOrder(t *testing.T) {
	in := input(entity.Group{ID: "a",
		Requirements: []entity.Entity{
			{ID: "R1"},
			{ID: "R2"},
			{ID: "R3", ParentID: "R1"},
			{ID: "R4", ParentID: "R3", CrossLinks: []string{"M1"}},
		},
		Measures: []entity.Entity{{ID: "M1"}, {ID: "M2", CrossLinks: []string{"R2"}}},
	})
	cols := Columns(in)
	if len(cols) != 1 {
		t.Fatalf("len(cols) = %d, want 1", len(cols))
	}

	want := []string{"requirement:R1", "requirement:R3", "requirement:R4", "measure:M1", "requirement:R2", "measure:M2"}
	got := ids(cols[0].Entities)
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestColumns_CrossColumnLinksIgnored(t *testing.T) {
	in := input(
		entity.Group{ID: "a", Requirements: []entity.Entity{{ID: "R1", CrossLinks: []string{"M1"}}}},
		entity.Group{ID: "b", Measures: []entity.Entity{{ID: "M2"}, {ID: "M1"}}},
	)
	cols := Columns(in)
	got := ids(cols[1].Entities)
	if got[0] != "measure:M2" || got[1] != "measure:M1" {
		t.Errorf("column b = %v; M1 has no in-column parent and keeps collection order", got)
	}
}

func TestColumns_CyclesVisitedOnce(t *testing.T) {
	in := input(entity.Group{ID: "a", Requirements: []entity.Entity{
		{ID: "R1", ParentID: "R2"},
		{ID: "R2", ParentID: "R1"},
		{ID: "R3"},
	}})
	got := ids(Columns(in)[0].Entities)
	want := []string{"requirement:R3", "requirement:R1", "requirement:R2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLayout_RowAlignment(t *testing.T) {
	in := input(
		entity.Group{ID: "a", SortKey: 1, Requirements: []entity.Entity{
			{ID: "R1", HasNote: true, HasSnippet: true},
			{ID: "R2", ParentID: "R1"},
		}},
		entity.Group{ID: "b", SortKey: 2, Requirements: []entity.Entity{
			{ID: "R3"},
			{ID: "R4", HasNote: true},
			{ID: "R5"},
		}},
	)
	cfg := layout.Config{BaseHeight: 100, HeaderHeight: 50, InterEntityGap: 10}
	res := Layout(in, cfg)
	p := res.Positions

	rows := [][]entity.Key{
		{rk("R1"), rk("R3")},
		{rk("R2"), rk("R4")},
		{rk("R5")},
	}
	for i, row := range rows {
		for _, k := range row[1:] {
			if p[k].Y != p[row[0]].Y {
				t.Errorf("row %d: %s.Y = %v, %s.Y = %v", i, k, p[k].Y, row[0], p[row[0]].Y)
			}
		}
	}

	// Row 0 is 144 tall (R1), row 1 is 120 tall (R4).
	wantY := []float64{50 + 72, 50 + 144 + 10 + 60, 50 + 144 + 10 + 120 + 10 + 50}
	for i, row := range rows {
		if got := p[row[0]].Y; abs(got-wantY[i]) > 1e-9 {
			t.Errorf("row %d center = %v, want %v", i, got, wantY[i])
		}
	}
}

func TestLayout_ColumnX(t *testing.T) {
	in := input(
		entity.Group{ID: "late", SortKey: 9, Requirements: []entity.Entity{{ID: "R1"}}},
		entity.Group{Requirements: []entity.Entity{{ID: "R0"}}},
		entity.Group{ID: "early", SortKey: 1, Measures: []entity.Entity{{ID: "M1"}}},
		entity.Group{ID: "empty", SortKey: 5},
	)
	cfg := layout.Config{ColumnWidth: 200, ColumnGap: 20}
	res := Layout(in, cfg)

	want := []entity.Key{entity.GroupKey("early"), entity.GroupKey("empty"), entity.GroupKey("late"), entity.GroupKey("")}
	if len(res.Groups) != len(want) {
		t.Fatalf("Groups = %v, want %v", res.Groups, want)
	}
	for i, gk := range want {
		if res.Groups[i] != gk {
			t.Fatalf("Groups = %v, want %v", res.Groups, want)
		}
		if x := res.Positions[gk].X; x != float64(i)*220+100 {
			t.Errorf("%s.X = %v, want %v", gk, x, float64(i)*220+100)
		}
	}
	if res.Positions[mk("M1")].X != 100 || res.Positions[rk("R0")].X != 3*220+100 {
		t.Error("entities should share their column's x")
	}
	if len(res.Frames) != 4 {
		t.Errorf("empty column should keep its frame, got %d frames", len(res.Frames))
	}
}

func TestLayout_Empty(t *testing.T) {
	res := Layout(layout.Input{}, layout.Config{})
	if len(res.Positions) != 0 || len(res.Groups) != 0 {
		t.Errorf("empty input produced %+v", res)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
