package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateSnapshotPath validates a snapshot file path given on the command line.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 1024 characters
//   - Extension must be .json or .toml
func ValidateSnapshotPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "snapshot path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".toml":
		return nil
	}
	return New(ErrCodeInvalidFormat, "unsupported snapshot format %q (want .json or .toml)", filepath.Ext(path))
}

// ValidateSpacing validates a single spacing option. Zero is allowed and
// means "use the default"; negative, NaN and infinite values are rejected.
func ValidateSpacing(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return New(ErrCodeInvalidConfig, "%s must be a finite number", name)
	}
	if value < 0 {
		return New(ErrCodeInvalidConfig, "%s must not be negative, got %v", name, value)
	}
	return nil
}

// ValidateIdentifier validates an entity or group identifier received at the
// application edge. Empty identifiers are allowed (the collector handles them).
func ValidateIdentifier(id string) error {
	if len(id) > 256 {
		return New(ErrCodeInvalidSnapshot, "identifier too long (max 256 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSnapshot, "identifier %q contains control characters", id)
		}
	}
	return nil
}
