package layout

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/tracemap/pkg/collect"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/relations"
)

// Strategy selects the layout algorithm.
type Strategy string

const (
	StrategyClustered Strategy = "clustered"
	StrategyColumnar  Strategy = "columnar"
)

// Engine selects the layered algorithm behind [StrategyClustered].
type Engine string

const (
	EngineNative Engine = "native"
	EngineDot    Engine = "dot"
)

// Default spacing, in points.
const (
	DefaultInterEntityGap   = 24.0
	DefaultInterGroupGap    = 48.0
	DefaultColumnWidth      = 280.0
	DefaultColumnGap        = 40.0
	DefaultHeaderHeight     = 56.0
	DefaultRankGap          = 120.0
	DefaultMinClusterHeight = 120.0
	DefaultNodeWidth        = 240.0
	DefaultBaseHeight       = 72.0

	// ContentFactor scales the estimated height once per content hint.
	ContentFactor = 1.2
)

// Config carries spacing and behavior options. Zero values are replaced by
// defaults in [Config.WithDefaults].
type Config struct {
	Strategy Strategy `json:"strategy,omitempty" mapstructure:"strategy"`
	Engine   Engine   `json:"engine,omitempty" mapstructure:"engine"`

	InterEntityGap   float64 `json:"inter_entity_gap,omitempty" mapstructure:"inter_entity_gap"`
	InterGroupGap    float64 `json:"inter_group_gap,omitempty" mapstructure:"inter_group_gap"`
	ColumnWidth      float64 `json:"column_width,omitempty" mapstructure:"column_width"`
	ColumnGap        float64 `json:"column_gap,omitempty" mapstructure:"column_gap"`
	HeaderHeight     float64 `json:"header_height,omitempty" mapstructure:"header_height"`
	RankGap          float64 `json:"rank_gap,omitempty" mapstructure:"rank_gap"`
	MinClusterHeight float64 `json:"min_cluster_height,omitempty" mapstructure:"min_cluster_height"`
	NodeWidth        float64 `json:"node_width,omitempty" mapstructure:"node_width"`
	BaseHeight       float64 `json:"base_height,omitempty" mapstructure:"base_height"`

	EnableMultiParentAdjustment bool `json:"enable_multi_parent_adjustment,omitempty" mapstructure:"enable_multi_parent_adjustment"`

	// Regroup restacks clustered output per group. Nil means enabled.
	Regroup *bool `json:"regroup,omitempty" mapstructure:"regroup"`
}

// DefaultConfig returns a config with every option at its default.
func DefaultConfig() Config { return Config{}.WithDefaults() }

// WithDefaults returns a copy of c with zero or non-finite spacing values
// replaced by their defaults.
func (c Config) WithDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyClustered
	}
	if c.Engine == "" {
		c.Engine = EngineNative
	}
	orDefault(&c.InterEntityGap, DefaultInterEntityGap)
	orDefault(&c.InterGroupGap, DefaultInterGroupGap)
	orDefault(&c.ColumnWidth, DefaultColumnWidth)
	orDefault(&c.ColumnGap, DefaultColumnGap)
	orDefault(&c.HeaderHeight, DefaultHeaderHeight)
	orDefault(&c.RankGap, DefaultRankGap)
	orDefault(&c.MinClusterHeight, DefaultMinClusterHeight)
	orDefault(&c.NodeWidth, DefaultNodeWidth)
	orDefault(&c.BaseHeight, DefaultBaseHeight)
	if c.Regroup == nil {
		on := true
		c.Regroup = &on
	}
	return c
}

// Negative values are kept: the core tolerates them, and the application
// edge rejects them through Validate.
func orDefault(v *float64, def float64) {
	if *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		*v = def
	}
}

// RegroupEnabled reports whether clustered output is restacked per group.
func (c Config) RegroupEnabled() bool { return c.Regroup == nil || *c.Regroup }

// Validate rejects unknown strategies or engines and negative or
// non-finite spacing.
func (c Config) Validate() error {
	switch c.Strategy {
	case "", StrategyClustered, StrategyColumnar:
	default:
		return errors.New(errors.ErrCodeInvalidStrategy,
			"unknown strategy %q (must be one of: clustered, columnar)", c.Strategy)
	}
	switch c.Engine {
	case "", EngineNative, EngineDot:
	default:
		return errors.New(errors.ErrCodeInvalidEngine,
			"unknown engine %q (must be one of: native, dot)", c.Engine)
	}
	for _, s := range c.spacings() {
		if err := errors.ValidateSpacing(s.name, s.value); err != nil {
			return err
		}
	}
	return nil
}

type spacing struct {
	name  string
	value float64
}

func (c Config) spacings() []spacing {
	return []spacing{
		{"inter_entity_gap", c.InterEntityGap},
		{"inter_group_gap", c.InterGroupGap},
		{"column_width", c.ColumnWidth},
		{"column_gap", c.ColumnGap},
		{"header_height", c.HeaderHeight},
		{"rank_gap", c.RankGap},
		{"min_cluster_height", c.MinClusterHeight},
		{"node_width", c.NodeWidth},
		{"base_height", c.BaseHeight},
	}
}

// CacheKey returns a stable textual form of the effective config.
func (c Config) CacheKey() string {
	c = c.WithDefaults()
	var b strings.Builder
	fmt.Fprintf(&b, "strategy=%s;engine=%s", c.Strategy, c.Engine)
	for _, s := range c.spacings() {
		fmt.Fprintf(&b, ";%s=%g", s.name, s.value)
	}
	fmt.Fprintf(&b, ";multi_parent=%t;regroup=%t", c.EnableMultiParentAdjustment, c.RegroupEnabled())
	return b.String()
}

// EstimateHeight returns the render height of e: base, scaled by
// [ContentFactor] once for a note and once for a snippet.
func EstimateHeight(e entity.Entity, base float64) float64 {
	h := base
	if e.HasNote {
		h *= ContentFactor
	}
	if e.HasSnippet {
		h *= ContentFactor
	}
	return h
}

// Position is the center and size of one node.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Top returns the y of the upper edge.
func (p Position) Top() float64 { return p.Y - p.Height/2 }

// Bottom returns the y of the lower edge.
func (p Position) Bottom() float64 { return p.Y + p.Height/2 }

// Frame is the bounding box of one group, as top-left corner and size.
type Frame struct {
	Key    entity.Key `json:"key"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// Result is the output of a layout run.
type Result struct {
	Strategy Strategy `json:"strategy"`
	Engine   Engine   `json:"engine,omitempty"`

	// Positions holds one entry per entity key and per group header key.
	Positions map[entity.Key]Position `json:"positions"`

	// Groups lists the group header keys in layout order.
	Groups []entity.Key `json:"groups"`

	Frames []Frame `json:"frames,omitempty"`
}

// Position returns the position of key.
func (r Result) Position(key entity.Key) (Position, bool) {
	p, ok := r.Positions[key]
	return p, ok
}

// Bounds returns the extent of all positions as (minX, minY, maxX, maxY).
func (r Result) Bounds() (float64, float64, float64, float64) {
	if len(r.Positions) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range r.Positions {
		minX = min(minX, p.X-p.Width/2)
		minY = min(minY, p.Top())
		maxX = max(maxX, p.X+p.Width/2)
		maxY = max(maxY, p.Bottom())
	}
	for _, f := range r.Frames {
		minX, minY = min(minX, f.X), min(minY, f.Y)
		maxX, maxY = max(maxX, f.X+f.Width), max(maxY, f.Y+f.Height)
	}
	return minX, minY, maxX, maxY
}

// Input bundles the upstream stages consumed by every layout.
type Input struct {
	Collection collect.Collection
	Graph      *relations.Graph
	Index      *relations.Index
}

// NewInput derives the relationship graph and index for c.
func NewInput(c collect.Collection, sink diag.Sink) Input {
	g := relations.Build(c, sink)
	return Input{Collection: c, Graph: g, Index: relations.NewIndex(g)}
}

// Complete fills a missing graph or index from the collection.
func (in Input) Complete() Input {
	if in.Graph == nil {
		in.Graph = relations.Build(in.Collection, nil)
		in.Index = nil
	}
	if in.Index == nil {
		in.Index = relations.NewIndex(in.Graph)
	}
	return in
}

// Layouter computes positions for an input.
//
// Implementations never fail on data. The context only bounds external
// engines; a cancelled context makes them fall back or return early.
type Layouter interface {
	Layout(ctx context.Context, in Input, cfg Config, sink diag.Sink) Result
}

// LayouterFunc adapts a function to [Layouter].
type LayouterFunc func(ctx context.Context, in Input, cfg Config, sink diag.Sink) Result

// Layout calls f.
func (f LayouterFunc) Layout(ctx context.Context, in Input, cfg Config, sink diag.Sink) Result {
	return f(ctx, in, cfg, sink)
}

// SortGroups orders group headers by SortKey, then label, then id. The
// ungrouped sentinel always sorts last. The input is not modified.
func SortGroups(groups []entity.Group) []entity.Group {
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b entity.Group) int {
		if a.IsUngrouped() != b.IsUngrouped() {
			if a.IsUngrouped() {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(a.SortKey, b.SortKey); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Buckets splits entities by source group, keyed by group header key, in
// collection order with requirements first.
func Buckets(c collect.Collection) map[entity.Key][]entity.Entity {
	out := make(map[entity.Key][]entity.Entity, len(c.Groups))
	c.Each(func(e entity.Entity) {
		k := entity.GroupKey(e.SourceGroup)
		out[k] = append(out[k], e)
	})
	return out
}
