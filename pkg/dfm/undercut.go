package dfm

import (
	"fmt"
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// boundaryEpsilon keeps a face lying exactly at the threshold angle from
// being flagged when cos(threshold) rounds to a tiny non-zero value.
const boundaryEpsilon = 1e-9

// CheckUndercut flags faces whose normal points more than thresholdDeg away
// from pull. pull must be a unit vector.
func CheckUndercut(m *kernel.Mesh, g FaceGeometry, pull kernel.Vec3, thresholdDeg float64) CheckResult {
	res := CheckResult{
		Check:    KindUndercut,
		FaceMask: make([]bool, len(m.Faces)),
		Metrics:  Metrics{Threshold: ptr(thresholdDeg)},
	}
	cosThreshold := math.Cos(thresholdDeg * math.Pi / 180)
	maxAngle := math.Inf(-1)
	defined := 0
	for f, n := range g.Normals {
		if n.IsZero() {
			continue
		}
		defined++
		if n.Dot(pull) < cosThreshold-boundaryEpsilon {
			res.FaceMask[f] = true
			res.Metrics.Count++
			maxAngle = math.Max(maxAngle, angleDeg(n, pull))
		}
	}
	res.VertexMask = faceVertexMask(m.Faces, len(m.Vertices), res.FaceMask)
	switch {
	case defined == 0:
		res.Status = StatusUnknown
		res.Message = "No faces with a defined normal; undercuts cannot be evaluated."
	case res.Metrics.Count > 0:
		res.Status = StatusWarning
		res.Metrics.Max = ptr(maxAngle)
		res.Message = fmt.Sprintf("Undercut / back-draft faces detected: %d faces exceed %.1f° from the pull direction (max %.1f°).",
			res.Metrics.Count, thresholdDeg, maxAngle)
	default:
		res.Message = fmt.Sprintf("No faces exceed %.1f° from the pull direction.", thresholdDeg)
	}
	return res
}
