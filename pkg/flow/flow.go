// Package flow converts layout positions into renderable nodes and edges.
//
// The output is shaped for node-link front ends: a flat node list and a
// flat edge list, with enough classification data (entity kind, group key,
// multi-parent flag) for a renderer to style them. Positions are node
// centers.
//
// Sources with more than one outgoing edge get a distinct exit handle per
// edge from the fixed [SourceHandles] rotation, assigned in discovery order.
// Targets always use [TargetHandle].
package flow

import (
	"fmt"

	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/layout"
	"github.com/matzehuels/tracemap/pkg/relations"
)

// SourceHandles is the rotation of exit points for sources with several
// outgoing edges.
var SourceHandles = []string{"source-a", "source-b", "source-c", "source-d"}

// TargetHandle is the single entry point of every node.
const TargetHandle = "target"

// NodeType separates entity nodes from group header nodes.
type NodeType string

const (
	NodeTypeEntity NodeType = "entity"
	NodeTypeGroup  NodeType = "group"
)

// EdgeClass classifies an edge. Relationship edges reuse the relationship
// class name; anchors join a group header to a standalone entity.
type EdgeClass string

const (
	EdgeRequirementHierarchy EdgeClass = "requirement_hierarchy"
	EdgeMeasureHierarchy     EdgeClass = "measure_hierarchy"
	EdgeBusiness             EdgeClass = "business"
	EdgeAnchor               EdgeClass = "anchor"
)

func classOf(c relations.Class) EdgeClass {
	switch c {
	case relations.RequirementHierarchy:
		return EdgeRequirementHierarchy
	case relations.MeasureHierarchy:
		return EdgeMeasureHierarchy
	default:
		return EdgeBusiness
	}
}

// Routing names the path shape a renderer should draw.
type Routing string

const (
	RoutingSmoothStep Routing = "smoothstep"
	RoutingBezier     Routing = "bezier"
)

// Point is a node center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the payload carried by a node.
type NodeData struct {
	Label       string         `json:"label"`
	Kind        entity.Kind    `json:"kind,omitempty"`
	GroupKey    entity.Key     `json:"group_key"`
	Height      float64        `json:"height"`
	MultiParent bool           `json:"multi_parent,omitempty"`
	Entity      *entity.Entity `json:"entity,omitempty"`
	Group       *entity.Group  `json:"group,omitempty"`
}

// Node is one renderable node.
type Node struct {
	ID       entity.Key `json:"id"`
	Type     NodeType   `json:"type"`
	Position Point      `json:"position"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Data     NodeData   `json:"data"`
}

// EdgeStyle carries rendering hints.
type EdgeStyle struct {
	Routing Routing `json:"routing"`
	Dashed  bool    `json:"dashed,omitempty"`
	Anchor  bool    `json:"anchor,omitempty"`
}

// Edge is one renderable edge.
type Edge struct {
	ID           string     `json:"id"`
	Source       entity.Key `json:"source"`
	Target       entity.Key `json:"target"`
	SourceHandle string     `json:"source_handle,omitempty"`
	TargetHandle string     `json:"target_handle"`
	Class        EdgeClass  `json:"class"`
	Style        EdgeStyle  `json:"style"`
}

// Diagram is the output of one pipeline run. Both lists are never nil.
type Diagram struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node with the given id.
func (d Diagram) Node(id entity.Key) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgesFrom returns the edges leaving source, in order.
func (d Diagram) EdgesFrom(source entity.Key) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// Build emits nodes and edges for a layout result.
//
// Nodes come in a fixed order: group headers in layout order, then entities
// in collection order (requirements first). Edges follow relationship
// discovery order, then one anchor per entity without any relationship.
// Edges with an endpoint missing from the layout are dropped and reported
// as MISSING_POSITION.
func Build(res layout.Result, in layout.Input, sink diag.Sink) Diagram {
	sink = diag.OrDiscard(sink)
	in = in.Complete()

	d := Diagram{Nodes: []Node{}, Edges: []Edge{}}
	present := entity.KeySet{}

	groups := make(map[entity.Key]entity.Group, len(in.Collection.Groups))
	for _, g := range in.Collection.Groups {
		groups[g.Key()] = g
	}
	for _, gk := range res.Groups {
		p, ok := res.Positions[gk]
		g, known := groups[gk]
		if !ok || !known || present.Has(gk) {
			continue
		}
		present.Add(gk)
		d.Nodes = append(d.Nodes, Node{
			ID:       gk,
			Type:     NodeTypeGroup,
			Position: Point{p.X, p.Y},
			Width:    p.Width,
			Height:   p.Height,
			Data: NodeData{
				Label:    g.DisplayLabel(),
				GroupKey: gk,
				Height:   p.Height,
				Group:    &g,
			},
		})
	}

	in.Collection.Each(func(e entity.Entity) {
		key := e.Key()
		p, ok := res.Positions[key]
		if !ok || present.Has(key) {
			return
		}
		present.Add(key)
		e = e.Clone()
		d.Nodes = append(d.Nodes, Node{
			ID:       key,
			Type:     NodeTypeEntity,
			Position: Point{p.X, p.Y},
			Width:    p.Width,
			Height:   p.Height,
			Data: NodeData{
				Label:       e.DisplayLabel(),
				Kind:        e.Kind,
				GroupKey:    entity.GroupKey(e.SourceGroup),
				Height:      p.Height,
				MultiParent: in.Graph.IsMultiParent(key),
				Entity:      &e,
			},
		})
	})

	routing := RoutingSmoothStep
	if res.Strategy == layout.StrategyColumnar {
		routing = RoutingBezier
	}

	var edges []Edge
	keep := func(e Edge) {
		var missing entity.Key
		switch {
		case !present.Has(e.Source):
			missing = e.Source
		case !present.Has(e.Target):
			missing = e.Target
		default:
			edges = append(edges, e)
			return
		}
		diag.Warn(sink, errors.CodeMissingPosition, missing, e.ID, "edge %s dropped: %s has no position", e.ID, missing)
	}

	for _, r := range in.Graph.Relationships() {
		class := classOf(r.Class)
		keep(Edge{
			ID:           fmt.Sprintf("%s:%s->%s", class, r.Parent, r.Child),
			Source:       r.Parent,
			Target:       r.Child,
			TargetHandle: TargetHandle,
			Class:        class,
			Style:        EdgeStyle{Routing: routing, Dashed: r.Class == relations.Business},
		})
	}
	in.Collection.Each(func(e entity.Entity) {
		key := e.Key()
		if in.Index.HasAny(key) {
			return
		}
		gk := entity.GroupKey(e.SourceGroup)
		keep(Edge{
			ID:           fmt.Sprintf("%s:%s->%s", EdgeAnchor, gk, key),
			Source:       gk,
			Target:       key,
			TargetHandle: TargetHandle,
			Class:        EdgeAnchor,
			Style:        EdgeStyle{Routing: routing, Anchor: true},
		})
	})

	assignHandles(edges)
	if edges != nil {
		d.Edges = edges
	}
	return d
}

// assignHandles gives every edge of a multi-edge source the next slot of
// the rotation, in edge order. Single-edge sources keep the default handle.
func assignHandles(edges []Edge) {
	out := make(map[entity.Key]int)
	for _, e := range edges {
		out[e.Source]++
	}
	next := make(map[entity.Key]int)
	for i := range edges {
		src := edges[i].Source
		if out[src] < 2 {
			continue
		}
		edges[i].SourceHandle = SourceHandles[next[src]%len(SourceHandles)]
		next[src]++
	}
}
