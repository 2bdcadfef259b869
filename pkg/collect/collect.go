// Package collect flattens subject-area groups into deduplicated entity lists.
//
// Collection is the first pipeline stage. It scans groups in order, keeps
// the first occurrence of every (kind, id) pair and stamps the survivor
// with the group it was first seen in. Entities from a group without an id
// are assigned to the ungrouped sentinel group, which always sorts last.
package collect

import (
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
)

// Collection is the deduplicated output of [Collect].
type Collection struct {
	Requirements []entity.Entity
	Measures     []entity.Entity

	// Groups holds one header (no entity lists) per distinct group id in
	// first-seen order. The ungrouped sentinel comes last and only when at
	// least one entity was assigned to it.
	Groups []entity.Group
}

// Entities returns the deduplicated list for kind k.
func (c Collection) Entities(k entity.Kind) []entity.Entity {
	if k == entity.KindMeasure {
		return c.Measures
	}
	return c.Requirements
}

// Len returns the total number of deduplicated entities.
func (c Collection) Len() int { return len(c.Requirements) + len(c.Measures) }

// Each calls fn for every entity, requirements first, in collection order.
func (c Collection) Each(fn func(entity.Entity)) {
	for _, e := range c.Requirements {
		fn(e)
	}
	for _, e := range c.Measures {
		fn(e)
	}
}

// Group returns the header of the group with the given id.
func (c Collection) Group(id string) (entity.Group, bool) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return entity.Group{}, false
}

// Collect deduplicates the entities of groups. Diagnostics go to sink,
// which may be nil. The input is never modified.
func Collect(groups []entity.Group, sink diag.Sink) Collection {
	c := collector{
		sink:      diag.OrDiscard(sink),
		seen:      make(map[entity.Key]string),
		groupSeen: make(map[string]int),
	}
	for _, g := range groups {
		c.addGroup(g)
		for _, e := range g.Requirements {
			c.addEntity(e, entity.KindRequirement, g.ID)
		}
		for _, e := range g.Measures {
			c.addEntity(e, entity.KindMeasure, g.ID)
		}
	}
	return c.result()
}

type collector struct {
	sink diag.Sink
	out  Collection

	seen      map[entity.Key]string // key -> owning group id
	groupSeen map[string]int        // group id -> index in out.Groups

	// ungrouped is the first empty-id header seen. It is emitted only if
	// an entity lands in it.
	ungrouped     *entity.Group
	ungroupedUsed bool
}

func (c *collector) addGroup(g entity.Group) {
	if g.IsUngrouped() {
		if c.ungrouped == nil {
			h := g.Header()
			c.ungrouped = &h
		}
		return
	}
	if _, ok := c.groupSeen[g.ID]; ok {
		return
	}
	c.groupSeen[g.ID] = len(c.out.Groups)
	c.out.Groups = append(c.out.Groups, g.Header())
}

func (c *collector) addEntity(e entity.Entity, kind entity.Kind, groupID string) {
	if e.ID == "" {
		diag.Warn(c.sink, errors.CodeEmptyID, "", groupID, "%s without id in group %q dropped", kind, groupID)
		return
	}
	if e.Kind != "" && e.Kind != kind {
		diag.Warn(c.sink, errors.CodeKindMismatch, entity.KeyOf(kind, e.ID), string(e.Kind),
			"declared kind %q overridden by list kind %q", e.Kind, kind)
	}

	key := entity.KeyOf(kind, e.ID)
	if owner, dup := c.seen[key]; dup {
		if owner != groupID {
			diag.Warn(c.sink, errors.CodeConflictingGroup, key, groupID,
				"also listed in group %q; keeping first group %q", groupID, owner)
		} else {
			diag.Info(c.sink, errors.CodeDuplicateEntity, key, "listed twice in group %q", groupID)
		}
		return
	}
	c.seen[key] = groupID

	if groupID == "" {
		c.ungroupedUsed = true
		diag.Info(c.sink, errors.CodeUngroupedEntity, key, "assigned to the ungrouped group")
	}

	out := e.Clone()
	out.Kind = kind
	out.SourceGroup = groupID
	if kind == entity.KindMeasure {
		c.out.Measures = append(c.out.Measures, out)
	} else {
		c.out.Requirements = append(c.out.Requirements, out)
	}
}

func (c *collector) result() Collection {
	if c.ungrouped != nil && c.ungroupedUsed {
		c.out.Groups = append(c.out.Groups, *c.ungrouped)
	}
	return c.out
}
