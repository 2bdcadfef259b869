// Package entity defines the input model of tracemap: requirements and
// measures organized into subject-area groups.
//
// # Keys
//
// Every node in the pipeline is addressed by a [Key]. Entity keys combine
// kind and id ("requirement:R1", "measure:M7") so the two families never
// collide even when they share ids. Group header keys use the "group:"
// prefix; the ungrouped bucket maps to the bare "group:" ([UngroupedKey]),
// which no named group can produce.
//
// # Lifecycle
//
// Entities are read-only snapshots supplied per layout run. Downstream
// packages only decorate copies with ephemeral fields such as
// [Entity.SourceGroup].
package entity
