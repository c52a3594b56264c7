package dfm

import (
	"fmt"
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// DraftAngles returns |90 - angle(n, pull)| in degrees for every face.
// Degenerate faces report 90, the best possible draft. pull must be a unit
// vector.
func DraftAngles(g FaceGeometry, pull kernel.Vec3) []float64 {
	out := make([]float64, len(g.Normals))
	for f, n := range g.Normals {
		if n.IsZero() {
			out[f] = 90
			continue
		}
		out[f] = math.Abs(90 - angleDeg(n, pull))
	}
	return out
}

// CheckDraft flags faces whose draft angle relative to pull is below
// minDraftDeg. Degenerate faces are neither flagged nor part of the minimum.
func CheckDraft(m *kernel.Mesh, g FaceGeometry, pull kernel.Vec3, minDraftDeg float64) CheckResult {
	res := CheckResult{
		Check:    KindDraft,
		FaceMask: make([]bool, len(m.Faces)),
		Metrics:  Metrics{Threshold: ptr(minDraftDeg)},
	}
	drafts := DraftAngles(g, pull)
	minDraft := math.Inf(1)
	for f, d := range drafts {
		if g.Degenerate(f) {
			continue
		}
		minDraft = math.Min(minDraft, d)
		if d < minDraftDeg {
			res.FaceMask[f] = true
			res.Metrics.Count++
		}
	}
	res.VertexMask = faceVertexMask(m.Faces, len(m.Vertices), res.FaceMask)
	if math.IsInf(minDraft, 1) {
		res.Status = StatusUnknown
		res.Message = "No faces with a defined normal; draft cannot be evaluated."
		return res
	}
	res.Metrics.Min = ptr(minDraft)
	res.Status = statusFor(res.Metrics.Count)
	if res.Status == StatusWarning {
		res.Message = fmt.Sprintf("%d faces have draft angle < %.1f°. Minimum found = %.2f°.", res.Metrics.Count, minDraftDeg, minDraft)
	} else {
		res.Message = fmt.Sprintf("All faces meet the minimum draft angle of %.1f°.", minDraftDeg)
	}
	return res
}
