// Package diag carries recoverable findings out of the layout pipeline.
//
// The layout core never fails on bad data. Dangling references, duplicate
// entities and similar problems are resolved locally and reported to a
// caller-supplied [Sink]. Callers that do not care pass nil, which is
// treated as [Discard].
package diag

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// MarshalText encodes the severity as its name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name. Unknown names decode as info.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = SeverityInfo
	if string(text) == "warning" {
		*s = SeverityWarning
	}
	return nil
}

// Diagnostic is one recoverable finding.
type Diagnostic struct {
	Code     errors.Code `json:"code"`
	Severity Severity    `json:"severity"`
	Key      entity.Key  `json:"key,omitempty"`
	Ref      string      `json:"ref,omitempty"`
	Message  string      `json:"message"`
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	if d.Key != "" {
		return fmt.Sprintf("%s [%s] %s", d.Code, d.Key, d.Message)
	}
	return fmt.Sprintf("%s %s", d.Code, d.Message)
}

// Sink receives diagnostics.
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Diagnostic)

// Report calls f(d).
func (f SinkFunc) Report(d Diagnostic) { f(d) }

type discard struct{}

func (discard) Report(Diagnostic) {}

// Discard drops every diagnostic.
var Discard Sink = discard{}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Warn reports a warning built from a format string.
func Warn(s Sink, code errors.Code, key entity.Key, ref, format string, args ...any) {
	OrDiscard(s).Report(Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Key:      key,
		Ref:      ref,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Info reports an informational diagnostic.
func Info(s Sink, code errors.Code, key entity.Key, format string, args ...any) {
	OrDiscard(s).Report(Diagnostic{
		Code:     code,
		Severity: SeverityInfo,
		Key:      key,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Recorder collects diagnostics in arrival order. It is safe for
// concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Report appends d.
func (r *Recorder) Report(d Diagnostic) {
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
}

// All returns a copy of the recorded diagnostics.
func (r *Recorder) All() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Len returns the number of recorded diagnostics.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Count returns how many diagnostics carry code.
func (r *Recorder) Count(code errors.Code) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Tee fans a diagnostic out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	live := slices.DeleteFunc(slices.Clone(sinks), func(s Sink) bool { return s == nil })
	return SinkFunc(func(d Diagnostic) {
		for _, s := range live {
			s.Report(d)
		}
	})
}
