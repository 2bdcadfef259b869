package entity

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two entity families that tracemap relates.
// Every entity carries an explicit kind; it is never inferred from field shape.
type Kind string

const (
	// KindRequirement marks a requirement (kind A).
	KindRequirement Kind = "requirement"
	// KindMeasure marks a measure (kind B).
	KindMeasure Kind = "measure"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool { return k == KindRequirement || k == KindMeasure }

// Other returns the opposite kind. The zero Kind maps to itself.
func (k Kind) Other() Kind {
	switch k {
	case KindRequirement:
		return KindMeasure
	case KindMeasure:
		return KindRequirement
	}
	return k
}

// Key identifies a node in every stage of the pipeline. Entity keys have
// the form "kind:id", group header keys "group:id".
type Key string

// KeyOf returns the key for an entity of the given kind and id.
func KeyOf(kind Kind, id string) Key { return Key(string(kind) + ":" + id) }

// UngroupedKey is the header key of the ungrouped sentinel. Its id part is
// empty, so no named group can produce it.
const UngroupedKey Key = "group:"

// GroupKey returns the header key of the group with the given id.
// The empty id maps to [UngroupedKey].
func GroupKey(groupID string) Key { return Key("group:" + groupID) }

// IsGroup reports whether k is a group header key.
func (k Key) IsGroup() bool { return strings.HasPrefix(string(k), "group:") }

// Split returns the prefix (kind or "group") and id of the key.
func (k Key) Split() (prefix, id string) {
	prefix, id, _ = strings.Cut(string(k), ":")
	return prefix, id
}

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Entity is one requirement or measure as supplied by the data layer.
//
// Entities are read-only snapshots. The collector returns decorated copies
// (Kind and SourceGroup set) and never mutates the caller's values.
type Entity struct {
	ID       string `json:"id" toml:"id"`
	Kind     Kind   `json:"kind,omitempty" toml:"kind"`
	Label    string `json:"label,omitempty" toml:"label"`
	ParentID string `json:"parent_id,omitempty" toml:"parent_id"`

	// CrossLinks lists ids of opposite-kind entities this entity is related to.
	// Either side of a business relationship may carry the reference.
	CrossLinks []string `json:"cross_links,omitempty" toml:"cross_links"`

	// Content-size hints used to estimate render height.
	HasNote    bool `json:"has_note,omitempty" toml:"has_note"`
	HasSnippet bool `json:"has_snippet,omitempty" toml:"has_snippet"`

	// Data is an opaque payload handed back to the renderer unchanged.
	Data map[string]any `json:"data,omitempty" toml:"data"`

	// SourceGroup is the id of the group the entity was first collected from.
	// It is derived per layout run and ignored on input.
	SourceGroup string `json:"source_group,omitempty" toml:"-"`
}

// Key returns the entity's node key.
func (e Entity) Key() Key { return KeyOf(e.Kind, e.ID) }

// DisplayLabel returns the label if set, otherwise the ID.
func (e Entity) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.ID
}

// Clone returns a copy of e whose slices and maps are not shared with e.
func (e Entity) Clone() Entity {
	if e.CrossLinks != nil {
		e.CrossLinks = append([]string(nil), e.CrossLinks...)
	}
	if e.Data != nil {
		data := make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
		e.Data = data
	}
	return e
}

// Group is a subject-area bucket holding entities of both kinds.
// An empty ID denotes the ungrouped bucket, which always sorts last.
type Group struct {
	ID           string   `json:"id,omitempty" toml:"id"`
	Label        string   `json:"label,omitempty" toml:"label"`
	SortKey      int      `json:"sort_key,omitempty" toml:"sort_key"`
	Requirements []Entity `json:"requirements,omitempty" toml:"requirements"`
	Measures     []Entity `json:"measures,omitempty" toml:"measures"`
}

// IsUngrouped reports whether g is the ungrouped sentinel.
func (g Group) IsUngrouped() bool { return g.ID == "" }

// Key returns the header key of the group.
func (g Group) Key() Key { return GroupKey(g.ID) }

// DisplayLabel returns the label, falling back to the id or "Ungrouped".
func (g Group) DisplayLabel() string {
	switch {
	case g.Label != "":
		return g.Label
	case g.ID != "":
		return g.ID
	}
	return "Ungrouped"
}

// Entities returns the group's entity list for kind k.
func (g Group) Entities(k Kind) []Entity {
	if k == KindMeasure {
		return g.Measures
	}
	return g.Requirements
}

// Header returns a copy of g without its entity lists.
func (g Group) Header() Group {
	return Group{ID: g.ID, Label: g.Label, SortKey: g.SortKey}
}

// Snapshot is the ordered input to a layout run.
type Snapshot struct {
	Groups []Group `json:"groups" toml:"groups"`
}

// EntityCount returns the number of entity entries across all groups,
// duplicates included.
func (s Snapshot) EntityCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Requirements) + len(g.Measures)
	}
	return n
}

// ParseKind converts a string to a Kind, accepting a few common spellings.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "requirement", "requirements", "req":
		return KindRequirement, nil
	case "measure", "measures":
		return KindMeasure, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
