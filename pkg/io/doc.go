// Package io reads snapshots and reads and writes diagrams.
//
// # Snapshot Formats
//
// Snapshots are accepted as JSON or TOML. The format follows the file
// extension in [ImportSnapshot]; [ReadSnapshot] takes it explicitly.
//
// JSON:
//
//	{
//	  "groups": [
//	    {
//	      "id": "safety",
//	      "label": "Safety",
//	      "sort_key": 1,
//	      "requirements": [{"id": "R1", "cross_links": ["M1"]}],
//	      "measures": [{"id": "M1", "has_note": true}]
//	    }
//	  ]
//	}
//
// TOML:
//
//	[[groups]]
//	id = "safety"
//	label = "Safety"
//	sort_key = 1
//
//	  [[groups.requirements]]
//	  id = "R1"
//	  cross_links = ["M1"]
//
//	  [[groups.measures]]
//	  id = "M1"
//	  has_note = true
//
// A group without an id collects ungrouped entities. The "kind" field of
// an entity is optional; the list it appears in decides its kind.
//
// # Diagrams
//
// [WriteDiagram] encodes a [flow.Diagram] as indented JSON, the same shape
// the HTTP endpoint returns. [ReadDiagram] decodes it again for the render
// command.
//
// [flow.Diagram]: github.com/matzehuels/tracemap/pkg/flow.Diagram
package io
