// Package relations derives parent/child relationships between collected
// entities and indexes them for the layout engines.
//
// Three families exist. Requirement and measure hierarchies follow each
// entity's ParentID within its own kind. Business links connect a
// requirement to a measure when either side lists the other in its
// CrossLinks; detection is symmetric and each pair appears once.
package relations

import (
	"cmp"
	"slices"

	"github.com/matzehuels/tracemap/pkg/collect"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
)

// Class distinguishes the three relationship families.
type Class int

const (
	// RequirementHierarchy links a requirement to its parent requirement.
	RequirementHierarchy Class = iota
	// MeasureHierarchy links a measure to its parent measure.
	MeasureHierarchy
	// Business links a requirement (parent side) to a measure (child side).
	Business
)

var classNames = [...]string{"requirement_hierarchy", "measure_hierarchy", "business"}

// String implements fmt.Stringer.
func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Hierarchical reports whether c is a same-kind parent/child relationship.
func (c Class) Hierarchical() bool { return c == RequirementHierarchy || c == MeasureHierarchy }

// Relationship is a directed (parent, child) pair.
type Relationship struct {
	Parent entity.Key `json:"parent"`
	Child  entity.Key `json:"child"`
	Class  Class      `json:"class"`
}

// Graph is the relationship structure derived from a [collect.Collection].
// Every slice is in deterministic discovery order.
type Graph struct {
	RequirementLinks []Relationship
	MeasureLinks     []Relationship
	BusinessLinks    []Relationship

	// Entities without any relationship, in collection order.
	StandaloneRequirements []entity.Key
	StandaloneMeasures     []entity.Key

	// MultiParent holds entities with more than one distinct incoming
	// relationship, hierarchical and business combined.
	MultiParent entity.KeySet

	entities   map[entity.Key]entity.Entity
	standalone entity.KeySet
}

// Relationships returns all links: requirement hierarchy, measure
// hierarchy, then business links.
func (g *Graph) Relationships() []Relationship {
	out := make([]Relationship, 0, len(g.RequirementLinks)+len(g.MeasureLinks)+len(g.BusinessLinks))
	out = append(out, g.RequirementLinks...)
	out = append(out, g.MeasureLinks...)
	return append(out, g.BusinessLinks...)
}

// Len returns the total number of relationships.
func (g *Graph) Len() int {
	return len(g.RequirementLinks) + len(g.MeasureLinks) + len(g.BusinessLinks)
}

// Entity returns the collected entity for key.
func (g *Graph) Entity(key entity.Key) (entity.Entity, bool) {
	e, ok := g.entities[key]
	return e, ok
}

// IsMultiParent reports whether key has more than one incoming relationship.
func (g *Graph) IsMultiParent(key entity.Key) bool { return g.MultiParent.Has(key) }

// IsStandalone reports whether key has no relationships at all.
func (g *Graph) IsStandalone(key entity.Key) bool { return g.standalone.Has(key) }

// Build derives the relationship graph of c. Dangling and self references
// are dropped and reported to sink, which may be nil.
//
// Lookups go through id-indexed maps, so the cost is linear in the number
// of entities plus references.
func Build(c collect.Collection, sink diag.Sink) *Graph {
	sink = diag.OrDiscard(sink)
	g := &Graph{
		MultiParent: entity.KeySet{},
		standalone:  entity.KeySet{},
		entities:    make(map[entity.Key]entity.Entity, c.Len()),
	}
	c.Each(func(e entity.Entity) { g.entities[e.Key()] = e })

	reqIdx := indexByID(c.Requirements)
	measIdx := indexByID(c.Measures)

	g.RequirementLinks = hierarchyLinks(c.Requirements, reqIdx, RequirementHierarchy, sink)
	g.MeasureLinks = hierarchyLinks(c.Measures, measIdx, MeasureHierarchy, sink)
	g.BusinessLinks = businessLinks(c, reqIdx, measIdx, sink)

	incoming := make(map[entity.Key]int)
	related := entity.KeySet{}
	for _, r := range g.Relationships() {
		incoming[r.Child]++
		related.Add(r.Parent)
		related.Add(r.Child)
	}
	for k, n := range incoming {
		if n > 1 {
			g.MultiParent.Add(k)
		}
	}

	for _, e := range c.Requirements {
		if !related.Has(e.Key()) {
			g.StandaloneRequirements = append(g.StandaloneRequirements, e.Key())
			g.standalone.Add(e.Key())
		}
	}
	for _, e := range c.Measures {
		if !related.Has(e.Key()) {
			g.StandaloneMeasures = append(g.StandaloneMeasures, e.Key())
			g.standalone.Add(e.Key())
		}
	}
	return g
}

func indexByID(list []entity.Entity) map[string]int {
	m := make(map[string]int, len(list))
	for i, e := range list {
		m[e.ID] = i
	}
	return m
}

func hierarchyLinks(list []entity.Entity, idx map[string]int, class Class, sink diag.Sink) []Relationship {
	var links []Relationship
	for _, e := range list {
		if e.ParentID == "" {
			continue
		}
		if e.ParentID == e.ID {
			diag.Warn(sink, errors.CodeSelfReference, e.Key(), e.ParentID, "entity names itself as parent")
			continue
		}
		pi, ok := idx[e.ParentID]
		if !ok {
			diag.Warn(sink, errors.CodeDanglingParent, e.Key(), e.ParentID,
				"parent %q not found; treated as root", e.ParentID)
			continue
		}
		links = append(links, Relationship{Parent: list[pi].Key(), Child: e.Key(), Class: class})
	}
	return links
}

// businessLinks matches cross-links from both sides. A pair is linked when
// either entity references the other; duplicates collapse. Links are ordered
// by requirement position, then measure position.
func businessLinks(c collect.Collection, reqIdx, measIdx map[string]int, sink diag.Sink) []Relationship {
	type pair struct{ req, meas int }
	pairs := make(map[pair]struct{})

	for i, r := range c.Requirements {
		for _, ref := range r.CrossLinks {
			j, ok := measIdx[ref]
			if !ok {
				diag.Warn(sink, errors.CodeDanglingCrossLink, r.Key(), ref, "measure %q not found", ref)
				continue
			}
			pairs[pair{i, j}] = struct{}{}
		}
	}
	for j, m := range c.Measures {
		for _, ref := range m.CrossLinks {
			i, ok := reqIdx[ref]
			if !ok {
				diag.Warn(sink, errors.CodeDanglingCrossLink, m.Key(), ref, "requirement %q not found", ref)
				continue
			}
			pairs[pair{i, j}] = struct{}{}
		}
	}

	ordered := make([]pair, 0, len(pairs))
	for p := range pairs {
		ordered = append(ordered, p)
	}
	slices.SortFunc(ordered, func(a, b pair) int {
		if c := cmp.Compare(a.req, b.req); c != 0 {
			return c
		}
		return cmp.Compare(a.meas, b.meas)
	})

	links := make([]Relationship, len(ordered))
	for k, p := range ordered {
		links[k] = Relationship{
			Parent: c.Requirements[p.req].Key(),
			Child:  c.Measures[p.meas].Key(),
			Class:  Business,
		}
	}
	return links
}
