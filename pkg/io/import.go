package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/errors"
)

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported snapshot format %q (want .json or .toml)", filepath.Ext(path))
}

// ReadSnapshot decodes a snapshot from r and validates its identifiers.
// It does not close r.
func ReadSnapshot(r io.Reader, format Format) (entity.Snapshot, error) {
	var s entity.Snapshot
	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&s); err != nil {
			return entity.Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode json snapshot")
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&s)
		if err != nil {
			return entity.Snapshot{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode toml snapshot")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return entity.Snapshot{}, errors.New(errors.ErrCodeInvalidSnapshot, "unknown toml key %q", undecoded[0].String())
		}
	default:
		return entity.Snapshot{}, errors.New(errors.ErrCodeInvalidFormat, "unsupported snapshot format %q", format)
	}
	if err := Validate(s); err != nil {
		return entity.Snapshot{}, err
	}
	return s, nil
}

// ImportSnapshot reads the snapshot file at path.
func ImportSnapshot(path string) (entity.Snapshot, error) {
	if err := errors.ValidateSnapshotPath(path); err != nil {
		return entity.Snapshot{}, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return entity.Snapshot{}, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return entity.Snapshot{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "snapshot %s", path)
	}
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f, format)
}

// Validate rejects identifiers the application edge refuses to pass on.
// Data-integrity problems (dangling references, duplicates) are left to
// the pipeline, which reports them as diagnostics.
func Validate(s entity.Snapshot) error {
	for _, g := range s.Groups {
		if err := errors.ValidateIdentifier(g.ID); err != nil {
			return err
		}
		for _, k := range []entity.Kind{entity.KindRequirement, entity.KindMeasure} {
			for _, e := range g.Entities(k) {
				if err := errors.ValidateIdentifier(e.ID); err != nil {
					return err
				}
				if e.Kind != "" && !e.Kind.Valid() {
					return errors.New(errors.ErrCodeInvalidSnapshot, "entity %q has unknown kind %q", e.ID, e.Kind)
				}
			}
		}
	}
	return nil
}
