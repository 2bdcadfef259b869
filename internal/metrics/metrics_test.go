package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/tracemap/pkg/observability"
)

func TestLayoutHooks(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnLayoutStart(ctx, "clustered", 12)
	m.OnLayoutComplete(ctx, "clustered", "native", 14, 9, 20*time.Millisecond, nil)
	m.OnLayoutComplete(ctx, "columnar", "", 0, 0, time.Millisecond, errors.New("boom"))
	m.OnDiagnostic(ctx, "DANGLING_PARENT", "warning")
	m.OnDiagnostic(ctx, "DANGLING_PARENT", "warning")

	if got := testutil.ToFloat64(m.layoutTotal.WithLabelValues("clustered", "native")); got != 1 {
		t.Errorf("layout_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.layoutErrors.WithLabelValues("columnar")); got != 1 {
		t.Errorf("layout_error_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.diagnostics.WithLabelValues("DANGLING_PARENT", "warning")); got != 2 {
		t.Errorf("diagnostics_total = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.layoutDuration); n != 1 {
		t.Errorf("layout_duration series = %d, want 1", n)
	}
}

func TestCacheHooks(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnCacheMiss(ctx, "diagram")
	m.OnCacheSet(ctx, "diagram", 512)
	m.OnCacheHit(ctx, "diagram")
	m.OnCacheHit(ctx, "diagram")

	if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues("diagram", "hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues("diagram", "miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("diagram")); got != 512 {
		t.Errorf("written bytes = %v, want 512", got)
	}
}

func TestHTTPHooks(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnRequest(ctx, "POST", "/v1/layout")
	if got := testutil.ToFloat64(m.httpInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	m.OnResponse(ctx, "POST", "/v1/layout", 200, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.httpInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	expected := `
# HELP tracemap_http_requests_total Number of HTTP requests by method, route and status.
# TYPE tracemap_http_requests_total counter
tracemap_http_requests_total{method="POST",route="/v1/layout",status="200"} 1
`
	if err := testutil.CollectAndCompare(m.httpRequests, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestInstall(t *testing.T) {
	observability.Reset()
	t.Cleanup(observability.Reset)

	m := New(prometheus.NewRegistry())
	m.Install()

	observability.Cache().OnCacheHit(context.Background(), "artifact")
	if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues("artifact", "hit")); got != 1 {
		t.Errorf("hits through registry = %v, want 1", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	New(reg)
}
