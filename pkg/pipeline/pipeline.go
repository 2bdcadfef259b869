// Package pipeline runs the snapshot → diagram transform.
//
// # Stages
//
//  1. Collect: deduplicate entities and normalize groups
//  2. Relate: build the relationship graph and connection index
//  3. Layout: clustered (native or dot engine) or columnar positions
//  4. Build: renderable nodes and edges with handle allocation
//
// [Run] executes all stages once. It never fails on data problems; those
// become diagnostics in the [Report]. It fails only on invalid options.
//
// # Caching
//
// [Runner] wraps Run with a content-addressed cache. The key is the hash
// of the snapshot plus the effective layout options, so equal inputs share
// one entry regardless of which surface (CLI, server, watch) computed it:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	report, err := runner.Run(ctx, snapshot, pipeline.Options{}, nil)
//	svg, _, err := runner.Render(ctx, report.Diagram, pipeline.FormatSVG)
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/flow"
	"github.com/matzehuels/tracemap/pkg/layout"
	"github.com/matzehuels/tracemap/pkg/observability"
)

// Options configures one run. The layout fields are inlined in JSON, so a
// request body reads {"strategy": "columnar", "column_gap": 32}.
type Options struct {
	layout.Config `mapstructure:",squash"`

	// Refresh bypasses cache reads. The fresh result is still stored.
	Refresh bool `json:"refresh,omitempty" mapstructure:"refresh"`

	Logger *log.Logger `json:"-" mapstructure:"-"`
}

// Validate rejects unknown strategies or engines and invalid spacing.
func (o Options) Validate() error { return o.Config.Validate() }

// CacheKey returns the options part of the cache key. Refresh and Logger
// do not affect the result and are left out.
func (o Options) CacheKey() string { return o.Config.CacheKey() }

// Report is the result of one run.
type Report struct {
	Diagram     flow.Diagram      `json:"diagram"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Stats       Stats             `json:"stats"`

	// Engine is the layered engine that actually ran. It differs from the
	// requested engine after an ENGINE_FALLBACK.
	Engine layout.Engine `json:"engine,omitempty"`

	CacheHit bool `json:"cache_hit"`
}

// Stats summarizes a run.
type Stats struct {
	Groups        int `json:"groups"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
	MultiParent   int `json:"multi_parent"`
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`

	CollectTime time.Duration `json:"collect_ns"`
	LayoutTime  time.Duration `json:"layout_ns"`
	BuildTime   time.Duration `json:"build_ns"`
}

// Run executes every stage on snap. Diagnostics are recorded in the report
// and forwarded to sink (which may be nil) and to the registered
// observability hooks as they occur.
func Run(ctx context.Context, snap entity.Snapshot, opts Options, sink diag.Sink) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	cfg := opts.Config.WithDefaults()
	hooks := observability.Layout()

	var rec diag.Recorder
	all := diagnosticSink(ctx, &rec, sink)

	var stats Stats
	start := time.Now()
	in := Prepare(snap, all)
	stats.CollectTime = time.Since(start)
	stats.Groups = len(in.Collection.Groups)
	stats.Entities = in.Collection.Len()
	stats.Relationships = in.Graph.Len()
	stats.MultiParent = len(in.Graph.MultiParent)

	hooks.OnLayoutStart(ctx, string(cfg.Strategy), stats.Entities)

	start = time.Now()
	res := layouterFor(cfg).Layout(ctx, in, cfg, all)
	stats.LayoutTime = time.Since(start)

	start = time.Now()
	d := flow.Build(res, in, all)
	stats.BuildTime = time.Since(start)
	stats.Nodes, stats.Edges = len(d.Nodes), len(d.Edges)

	hooks.OnLayoutComplete(ctx, string(cfg.Strategy), string(res.Engine), stats.Nodes, stats.Edges,
		stats.LayoutTime+stats.BuildTime, nil)

	diags := rec.All()
	if diags == nil {
		diags = []diag.Diagnostic{}
	}
	return Report{
		Diagram:     d,
		Diagnostics: diags,
		Stats:       stats,
		Engine:      res.Engine,
	}, nil
}

// diagnosticSink forwards to rec and sink (either may be nil) and to the
// layout hooks.
func diagnosticSink(ctx context.Context, rec *diag.Recorder, sink diag.Sink) diag.Sink {
	hooks := observability.Layout()
	var r diag.Sink
	if rec != nil {
		r = rec
	}
	return diag.Tee(r, sink, diag.SinkFunc(func(d diag.Diagnostic) {
		hooks.OnDiagnostic(ctx, string(d.Code), d.Severity.String())
	}))
}
