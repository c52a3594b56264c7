package dfm

import "fmt"

// Status is the verdict of one check.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status as its String form, so JSON output reads
// "OK" rather than 0.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "OK":
		*s = StatusOK
	case "WARNING":
		*s = StatusWarning
	case "UNKNOWN":
		*s = StatusUnknown
	default:
		return fmt.Errorf("dfm: unknown status %q", b)
	}
	return nil
}

// CheckKind identifies one of the six checks.
type CheckKind string

const (
	KindGlobalThickness CheckKind = "global_thickness"
	KindLocalThickness  CheckKind = "local_thickness"
	KindSharpCorners    CheckKind = "sharp_corners"
	KindDraft           CheckKind = "draft"
	KindUndercut        CheckKind = "undercut"
	KindRibBoss         CheckKind = "rib_boss"
)

// Title is the human-readable name used in summaries.
func (k CheckKind) Title() string {
	switch k {
	case KindGlobalThickness:
		return "Global thickness"
	case KindLocalThickness:
		return "Local thickness"
	case KindSharpCorners:
		return "Sharp corners"
	case KindDraft:
		return "Draft"
	case KindUndercut:
		return "Undercut"
	case KindRibBoss:
		return "Rib/Boss"
	}
	return string(k)
}

// Metrics holds the numeric outcome of a check. Pointer fields are nil when
// the value is undefined for that check or for that input.
type Metrics struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Nominal   *float64 `json:"nominal,omitempty"`
	Factor    *float64 `json:"factor,omitempty"`
	Count     int      `json:"count"`
	Fallback  bool     `json:"fallback,omitempty"` // local thickness fell back to the bounding box
}

// CheckResult is the outcome of one check. FaceMask has one entry per
// triangle and VertexMask one per vertex; either is nil when the check does
// not produce it.
type CheckResult struct {
	Check      CheckKind `json:"check"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	Metrics    Metrics   `json:"metrics"`
	FaceMask   []bool    `json:"face_mask,omitempty"`
	VertexMask []bool    `json:"vertex_mask,omitempty"`
}

func ptr(v float64) *float64 { return &v }

func statusFor(count int) Status {
	if count > 0 {
		return StatusWarning
	}
	return StatusOK
}

// faceVertexMask marks every vertex of every flagged face.
func faceVertexMask(faces [][3]int, vertexCount int, faceMask []bool) []bool {
	mask := make([]bool, vertexCount)
	for f, bad := range faceMask {
		if !bad {
			continue
		}
		for _, v := range faces[f] {
			mask[v] = true
		}
	}
	return mask
}
