package relations

import (
	"slices"

	"github.com/matzehuels/tracemap/pkg/entity"
)

// Connections lists the incoming and outgoing neighbours of one node.
type Connections struct {
	HierarchicalParents []entity.Key
	BusinessParents     []entity.Key
	Children            []entity.Key
}

// Parents returns hierarchical parents followed by business parents.
func (c Connections) Parents() []entity.Key {
	if len(c.BusinessParents) == 0 {
		return c.HierarchicalParents
	}
	return append(slices.Clone(c.HierarchicalParents), c.BusinessParents...)
}

// Index memoizes per-node connections of a [Graph] for constant-time lookups
// during layout. It derives nothing that the graph does not already hold.
type Index struct {
	conns map[entity.Key]*Connections
}

// NewIndex indexes every relationship of g. Neighbour lists keep the
// discovery order of g.Relationships.
func NewIndex(g *Graph) *Index {
	idx := &Index{conns: make(map[entity.Key]*Connections)}
	for _, r := range g.Relationships() {
		child := idx.entry(r.Child)
		if r.Class == Business {
			child.BusinessParents = append(child.BusinessParents, r.Parent)
		} else {
			child.HierarchicalParents = append(child.HierarchicalParents, r.Parent)
		}
		parent := idx.entry(r.Parent)
		parent.Children = append(parent.Children, r.Child)
	}
	return idx
}

func (idx *Index) entry(k entity.Key) *Connections {
	c, ok := idx.conns[k]
	if !ok {
		c = &Connections{}
		idx.conns[k] = c
	}
	return c
}

// Connections returns the neighbours of k. The zero value is returned for
// unknown or unconnected keys.
func (idx *Index) Connections(k entity.Key) Connections {
	if c, ok := idx.conns[k]; ok {
		return *c
	}
	return Connections{}
}

// Parents returns every parent of k, hierarchical first.
func (idx *Index) Parents(k entity.Key) []entity.Key {
	return idx.Connections(k).Parents()
}

// Children returns the children of k in discovery order.
func (idx *Index) Children(k entity.Key) []entity.Key {
	return idx.Connections(k).Children
}

// InDegree returns the number of incoming relationships of k.
func (idx *Index) InDegree(k entity.Key) int {
	c := idx.Connections(k)
	return len(c.HierarchicalParents) + len(c.BusinessParents)
}

// HasIncoming reports whether k is the child of any relationship.
func (idx *Index) HasIncoming(k entity.Key) bool { return idx.InDegree(k) > 0 }

// HasAny reports whether k takes part in any relationship.
func (idx *Index) HasAny(k entity.Key) bool {
	c, ok := idx.conns[k]
	return ok && (len(c.Children) > 0 || len(c.HierarchicalParents) > 0 || len(c.BusinessParents) > 0)
}
