package dfm

import (
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// EdgeStats summarizes mesh connectivity.
type EdgeStats struct {
	Total       int `json:"total"`
	Boundary    int `json:"boundary"`
	NonManifold int `json:"non_manifold"`
}

// Closed reports whether every edge is shared by exactly two faces.
func (s EdgeStats) Closed() bool { return s.Boundary == 0 && s.NonManifold == 0 }

// Report is the full result of one analysis.
type Report struct {
	PartName   string      `json:"part_name,omitempty"`
	Triangles  int         `json:"triangles"`
	Vertices   int         `json:"vertices"`
	Bounds     kernel.Box  `json:"bounds"`
	Extents    kernel.Vec3 `json:"extents"`
	Edges      EdgeStats   `json:"edges"`
	Thresholds Thresholds  `json:"thresholds"`

	GlobalThickness CheckResult `json:"global_thickness"`
	LocalThickness  CheckResult `json:"local_thickness"`
	SharpCorners    CheckResult `json:"sharp_corners"`
	Draft           CheckResult `json:"draft"`
	Undercut        CheckResult `json:"undercut"`
	RibBoss         CheckResult `json:"rib_boss"`

	Thickness ThicknessField `json:"thickness,omitempty"`
	Score     float64        `json:"score"`
	Summary   string         `json:"summary"`
}

// Checks returns the six results in pipeline order.
func (r *Report) Checks() []CheckResult {
	return []CheckResult{r.GlobalThickness, r.LocalThickness, r.SharpCorners, r.Draft, r.Undercut, r.RibBoss}
}

// Warnings returns the checks that produced a warning.
func (r *Report) Warnings() []CheckResult {
	return lo.Filter(r.Checks(), func(c CheckResult, _ int) bool {
		return c.Status == StatusWarning
	})
}

// OK reports whether no check produced a warning.
func (r *Report) OK() bool { return len(r.Warnings()) == 0 }

func summarize(checks []CheckResult) string {
	parts := lo.Map(checks, func(c CheckResult, _ int) string {
		return c.Check.Title() + ": " + c.Status.String() + "."
	})
	return "DFM – " + strings.Join(parts, " ")
}
