package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tracemap/pkg/cache"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/flow"
	"github.com/matzehuels/tracemap/pkg/observability"
)

// Runner executes the pipeline with caching. It holds no per-run state and
// is safe for concurrent use when its cache is.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// uses [cache.DefaultKeyer], and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Run returns the cached report for (snap, opts) or computes and stores a
// new one. Diagnostics of a cached report are replayed to sink, so callers
// and the observability hooks observe the same findings either way.
func (r *Runner) Run(ctx context.Context, snap entity.Snapshot, opts Options, sink diag.Sink) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts)

	hash, err := SnapshotHash(snap)
	if err != nil {
		return Report{}, fmt.Errorf("hash snapshot: %w", err)
	}
	key := r.Keyer.DiagramKey(hash, opts.CacheKey())

	if !opts.Refresh {
		if report, ok := r.lookup(ctx, key); ok {
			replay := diagnosticSink(ctx, nil, sink)
			for _, d := range report.Diagnostics {
				replay.Report(d)
			}
			logger.Debug("diagram cache hit", "snapshot", hash[:12], "nodes", report.Stats.Nodes)
			return report, nil
		}
	}

	start := time.Now()
	report, err := Run(ctx, snap, opts, sink)
	if err != nil {
		return Report{}, err
	}
	logger.Info("computed diagram",
		"strategy", opts.Config.WithDefaults().Strategy,
		"engine", report.Engine,
		"entities", report.Stats.Entities,
		"relationships", report.Stats.Relationships,
		"nodes", report.Stats.Nodes,
		"edges", report.Stats.Edges,
		"diagnostics", len(report.Diagnostics),
		"duration", time.Since(start))

	if data, err := json.Marshal(report); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLDiagram); err != nil {
			logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "diagram", len(data))
		}
	}
	return report, nil
}

func (r *Runner) lookup(ctx context.Context, key string) (Report, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "diagram")
		return Report{}, false
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		observability.Cache().OnCacheMiss(ctx, "diagram")
		return Report{}, false
	}
	observability.Cache().OnCacheHit(ctx, "diagram")
	report.CacheHit = true
	return report, true
}

// Render draws d in format, caching the artifact by diagram hash. The
// boolean reports a cache hit.
func (r *Runner) Render(ctx context.Context, d flow.Diagram, format string) ([]byte, bool, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, false, fmt.Errorf("serialize diagram for cache key: %w", err)
	}
	key := r.Keyer.ArtifactKey(cache.Hash(data), format)
	kind := renderKind(format)

	if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, kind)
		return out, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, kind)

	out, err := Render(ctx, d, format)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, out, cache.TTLArtifact); err == nil {
		observability.Cache().OnCacheSet(ctx, kind, len(out))
	}
	return out, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
