package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/matzehuels/tracemap/pkg/buildinfo"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/flow"
	pkgio "github.com/matzehuels/tracemap/pkg/io"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// LayoutRequest is the body of POST /v1/layout.
type LayoutRequest struct {
	Snapshot entity.Snapshot  `json:"snapshot"`
	Options  pipeline.Options `json:"options"`
}

// LayoutResponse is the body of a successful POST /v1/layout.
type LayoutResponse struct {
	RequestID   string            `json:"request_id"`
	Diagram     flow.Diagram      `json:"diagram"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Stats       pipeline.Stats    `json:"stats"`
	Engine      string            `json:"engine,omitempty"`
	CacheHit    bool              `json:"cache_hit"`
}

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	Diagram flow.Diagram `json:"diagram"`
	Format  string       `json:"format"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Build:  buildinfo.Get(),
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := pkgio.Validate(req.Snapshot); err != nil {
		s.writeError(w, r, err)
		return
	}
	// Refresh is a local tool concern; remote callers always share the cache.
	req.Options.Refresh = false
	req.Options.Logger = s.logger

	report, err := s.runner.Run(r.Context(), req.Snapshot, req.Options, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LayoutResponse{
		RequestID:   RequestID(r.Context()),
		Diagram:     report.Diagram,
		Diagnostics: report.Diagnostics,
		Stats:       report.Stats,
		Engine:      string(report.Engine),
		CacheHit:    report.CacheHit,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Format == "" {
		req.Format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(req.Format); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, _, err := s.runner.Render(r.Context(), req.Diagram, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType(req.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentType(format string) string {
	if format == pipeline.FormatDOT {
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "image/svg+xml"
}

// decode reads a size-limited JSON body into v, writing the error response
// itself when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			s.writeErrorStatus(w, r, http.StatusRequestEntityTooLarge,
				errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooBig.Limit))
			return false
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorStatus(w, r, errors.HTTPStatus(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, ErrorResponse{
		Error:     errors.UserMessage(err),
		Code:      string(errors.GetCode(err)),
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
