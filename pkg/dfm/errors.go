package dfm

import (
	"errors"
	"fmt"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// ErrInvalidGeometry is matched (via errors.Is) by every error Analyze
// returns for a structurally invalid mesh.
var ErrInvalidGeometry = errors.New("invalid geometry")

// ErrInvalidThresholds is matched by errors returned for unusable thresholds.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// GeometryError reports a mesh that cannot be analyzed at all: empty
// vertex or face arrays, non-finite coordinates or out-of-range indices.
type GeometryError struct {
	Reason string
	Face   int // offending face, or -1
	Index  int // offending vertex index, or -1
}

func (e *GeometryError) Error() string {
	if e.Face >= 0 {
		return fmt.Sprintf("dfm: %s: face %d: %s", ErrInvalidGeometry, e.Face, e.Reason)
	}
	return fmt.Sprintf("dfm: %s: %s", ErrInvalidGeometry, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// validateMesh converts a kernel validation failure into a GeometryError.
func validateMesh(m *kernel.Mesh) error {
	if m == nil {
		return &GeometryError{Reason: "nil mesh", Face: -1, Index: -1}
	}
	err := m.Validate()
	if err == nil {
		return nil
	}
	var me *kernel.MeshError
	if errors.As(err, &me) {
		return &GeometryError{Reason: me.Reason, Face: me.Face, Index: me.Index}
	}
	return &GeometryError{Reason: err.Error(), Face: -1, Index: -1}
}

// thresholdError builds an ErrInvalidThresholds error for a named option.
func thresholdError(option string, format string, args ...any) error {
	return fmt.Errorf("dfm: %w: %s %s", ErrInvalidThresholds, option, fmt.Sprintf(format, args...))
}
