package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/internal/metrics"
	"github.com/matzehuels/tracemap/pkg/cache"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/observability"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

const layoutBody = `{
	"snapshot": {
		"groups": [
			{
				"id": "safety",
				"label": "Safety",
				"requirements": [
					{"id": "R1", "cross_links": ["M1"]},
					{"id": "R2", "parent_id": "R1"},
					{"id": "R3", "parent_id": "ghost"}
				],
				"measures": [{"id": "M1"}]
			}
		]
	},
	"options": {"strategy": "clustered", "rank_gap": 100}
}`

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := pipeline.NewRunner(c, cache.NewScopedKeyer(nil, "serve:"), nil)
	cfg := config.Default().Server
	cfg.MaxBodyBytes = 64 << 10
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(runner, cfg, opts...)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	t.Run("returns 200 with status ok", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/healthz", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.NotEmpty(t, resp.Build.Version)
	})

	t.Run("assigns a request id", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/healthz", "")

		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("keeps a valid incoming request id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces a malformed request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
	})
}

func TestLayout(t *testing.T) {
	s := newTestServer(t)

	t.Run("returns diagram and diagnostics", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", layoutBody)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp LayoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

		assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)
		assert.Len(t, resp.Diagram.Nodes, 5)
		// R1->R2, R1->M1, anchor for R3
		assert.Len(t, resp.Diagram.Edges, 3)
		assert.Equal(t, 4, resp.Stats.Entities)
		assert.Equal(t, "native", resp.Engine)
		require.Len(t, resp.Diagnostics, 1)
		assert.Equal(t, "DANGLING_PARENT", string(resp.Diagnostics[0].Code))
	})

	t.Run("second identical request hits the cache", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", layoutBody)
		require.Equal(t, http.StatusOK, w.Code)

		var resp LayoutResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.CacheHit)
		assert.Len(t, resp.Diagnostics, 1)
	})

	t.Run("empty snapshot gives empty diagram", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", `{"snapshot":{}}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"diagram":{"nodes":[],"edges":[]}`)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", `{"snapshot":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "INVALID_INPUT", resp.Code)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", `{"snapshot":{},"options":{"strategy":"radial"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "INVALID_STRATEGY", resp.Code)
	})

	t.Run("rejects negative spacing", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/layout", `{"snapshot":{},"options":{"rank_gap":-5}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects control characters in identifiers", func(t *testing.T) {
		body := `{"snapshot":{"groups":[{"id":"a\u0007b"}]}}`
		w := do(t, s, http.MethodPost, "/v1/layout", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		big := `{"snapshot":{"groups":[{"id":"` + strings.Repeat("x", 70<<10) + `"}]}}`
		w := do(t, s, http.MethodPost, "/v1/layout", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("wrong method is 405", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/v1/layout", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRender(t *testing.T) {
	s := newTestServer(t)

	report, err := pipeline.Run(context.Background(), entity.Snapshot{Groups: []entity.Group{{
		ID:           "a",
		Requirements: []entity.Entity{{ID: "R1", CrossLinks: []string{"M1"}}},
		Measures:     []entity.Entity{{ID: "M1"}},
	}}}, pipeline.Options{}, nil)
	require.NoError(t, err)

	body := func(format string) string {
		data, err := json.Marshal(RenderRequest{Diagram: report.Diagram, Format: format})
		require.NoError(t, err)
		return string(data)
	}

	t.Run("svg by default", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/render", body(""))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("<svg")))
	})

	t.Run("dot", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/render", body("dot"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "digraph")
	})

	t.Run("unknown format", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/render", body("pdf"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetrics(t *testing.T) {
	observability.Reset()
	t.Cleanup(observability.Reset)

	reg := prometheus.NewRegistry()
	metrics.New(reg).Install()
	s := newTestServer(t, WithGatherer(reg))

	do(t, s, http.MethodPost, "/v1/layout", layoutBody)
	do(t, s, http.MethodGet, "/healthz", "")

	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	out := w.Body.String()
	assert.Contains(t, out, `tracemap_http_requests_total{method="POST",route="/v1/layout",status="200"} 1`)
	assert.Contains(t, out, `tracemap_layout_total{engine="native",strategy="clustered"} 1`)
	assert.Contains(t, out, `tracemap_diagnostics_total{code="DANGLING_PARENT",severity="warning"} 1`)
	assert.Contains(t, out, `tracemap_cache_requests_total{key_type="diagram",result="miss"} 1`)
}

func TestMetrics_DisabledWithoutGatherer(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	c := cache.NewNullCache()
	cfg := config.Default().Server
	cfg.Addr = "127.0.0.1:0"
	s := New(pipeline.NewRunner(c, nil, nil), cfg, WithLogger(log.New(io.Discard)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
