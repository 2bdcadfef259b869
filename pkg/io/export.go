package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/tracemap/pkg/errors"
	"github.com/matzehuels/tracemap/pkg/flow"
)

// WriteDiagram encodes d as indented JSON.
func WriteDiagram(d flow.Diagram, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportDiagram writes d to a JSON file at path.
func ExportDiagram(d flow.Diagram, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDiagram(d, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadDiagram decodes a diagram written by [WriteDiagram]. Missing lists
// decode as empty slices.
func ReadDiagram(r io.Reader) (flow.Diagram, error) {
	var d flow.Diagram
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return flow.Diagram{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode diagram")
	}
	if d.Nodes == nil {
		d.Nodes = []flow.Node{}
	}
	if d.Edges == nil {
		d.Edges = []flow.Edge{}
	}
	return d, nil
}

// ImportDiagram reads the diagram file at path.
func ImportDiagram(path string) (flow.Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return flow.Diagram{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDiagram(f)
}
