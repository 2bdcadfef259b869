package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/flow"
)

const jsonSnapshot = `{
  "groups": [
    {
      "id": "safety",
      "label": "Safety",
      "sort_key": 1,
      "requirements": [{"id": "R1", "cross_links": ["M1"]}, {"id": "R2", "parent_id": "R1", "has_note": true}],
      "measures": [{"id": "M1", "data": {"owner": "ops"}}]
    },
    {"requirements": [{"id": "R9"}]}
  ]
}`

const tomlSnapshot = `
[[groups]]
id = "safety"
label = "Safety"
sort_key = 1

  [[groups.requirements]]
  id = "R1"
  cross_links = ["M1"]

  [[groups.requirements]]
  id = "R2"
  parent_id = "R1"
  has_note = true

  [[groups.measures]]
  id = "M1"
  data = { owner = "ops" }

[[groups]]

  [[groups.requirements]]
  id = "R9"
`

func TestReadSnapshot_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"json", FormatJSON, jsonSnapshot},
		{"toml", FormatTOML, tomlSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ReadSnapshot(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("ReadSnapshot: %v", err)
			}
			if len(s.Groups) != 2 {
				t.Fatalf("len(Groups) = %d, want 2", len(s.Groups))
			}
			g := s.Groups[0]
			if g.ID != "safety" || g.Label != "Safety" || g.SortKey != 1 {
				t.Errorf("group header = %+v", g.Header())
			}
			if len(g.Requirements) != 2 || g.Requirements[1].ParentID != "R1" || !g.Requirements[1].HasNote {
				t.Errorf("requirements = %+v", g.Requirements)
			}
			if got := g.Requirements[0].CrossLinks; len(got) != 1 || got[0] != "M1" {
				t.Errorf("cross links = %v", got)
			}
			if g.Measures[0].Data["owner"] != "ops" {
				t.Errorf("data = %v", g.Measures[0].Data)
			}
			if !s.Groups[1].IsUngrouped() || s.EntityCount() != 4 {
				t.Errorf("ungrouped group not decoded: %+v", s.Groups[1])
			}
		})
	}
}

func TestReadSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		code   errors.Code
	}{
		{"bad json", FormatJSON, `{"groups": [`, errors.ErrCodeInvalidSnapshot},
		{"bad toml", FormatTOML, `[[groups]`, errors.ErrCodeInvalidSnapshot},
		{"unknown toml key", FormatTOML, "[[groups]]\nid = \"a\"\ncolour = \"red\"\n", errors.ErrCodeInvalidSnapshot},
		{"unknown kind", FormatJSON, `{"groups":[{"requirements":[{"id":"R1","kind":"task"}]}]}`, errors.ErrCodeInvalidSnapshot},
		{"control chars", FormatJSON, `{"groups":[{"id":"a\u0007"}]}`, errors.ErrCodeInvalidSnapshot},
		{"unknown format", Format("yaml"), `groups: []`, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSnapshot(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestImportSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.toml")
	if err := os.WriteFile(path, []byte(tomlSnapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := ImportSnapshot(path)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if s.EntityCount() != 4 {
		t.Errorf("EntityCount = %d, want 4", s.EntityCount())
	}

	if _, err := ImportSnapshot(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := ImportSnapshot(filepath.Join(dir, "snap.yaml")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("yaml: err = %v", err)
	}
}

func TestDiagramRoundTrip(t *testing.T) {
	d := flow.Diagram{
		Nodes: []flow.Node{{ID: "group:a", Type: flow.NodeTypeGroup, Data: flow.NodeData{Label: "A", GroupKey: "group:a"}}},
		Edges: []flow.Edge{{ID: "anchor:group:a->requirement:R1", Source: "group:a", Target: "requirement:R1", TargetHandle: flow.TargetHandle, Class: flow.EdgeAnchor}},
	}
	var buf bytes.Buffer
	if err := WriteDiagram(d, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadDiagram(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nodes[0].ID != entity.Key("group:a") || got.Edges[0].Class != flow.EdgeAnchor {
		t.Errorf("round trip = %+v", got)
	}
}

func TestReadDiagram_EmptyLists(t *testing.T) {
	d, err := ReadDiagram(strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Nodes == nil || d.Edges == nil {
		t.Error("lists should decode as empty, not nil")
	}
}
