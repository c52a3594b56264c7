package dfm

import (
	"fmt"
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// SharpEdge is an interior edge whose dihedral angle exceeds the threshold.
type SharpEdge struct {
	Edge     Edge
	AngleDeg float64
}

// SharpEdges returns the interior edges whose face normals differ by more
// than thresholdDeg. Edges touching a degenerate face are skipped.
func SharpEdges(g FaceGeometry, adj *EdgeAdjacency, thresholdDeg float64) []SharpEdge {
	var out []SharpEdge
	for _, e := range adj.Interior() {
		fs := adj.Faces(e)
		if g.Degenerate(fs[0]) || g.Degenerate(fs[1]) {
			continue
		}
		angle := angleDeg(g.Normals[fs[0]], g.Normals[fs[1]])
		if angle > thresholdDeg {
			out = append(out, SharpEdge{Edge: e, AngleDeg: angle})
		}
	}
	return out
}

// DetectSharpCorners flags interior edges with a dihedral angle above
// thresholdDeg and marks their endpoints.
func DetectSharpCorners(m *kernel.Mesh, g FaceGeometry, adj *EdgeAdjacency, thresholdDeg float64) CheckResult {
	sharp := SharpEdges(g, adj, thresholdDeg)
	res := CheckResult{
		Check:      KindSharpCorners,
		Status:     statusFor(len(sharp)),
		VertexMask: make([]bool, len(m.Vertices)),
		Metrics:    Metrics{Count: len(sharp), Threshold: ptr(thresholdDeg)},
	}
	maxAngle := 0.0
	for _, s := range sharp {
		res.VertexMask[s.Edge.A] = true
		res.VertexMask[s.Edge.B] = true
		maxAngle = math.Max(maxAngle, s.AngleDeg)
	}
	res.Metrics.Max = ptr(maxAngle)
	if len(sharp) > 0 {
		res.Message = fmt.Sprintf("%d sharp edges exceed %.1f° (max %.1f°). Consider fillets to reduce stress concentration.",
			len(sharp), thresholdDeg, maxAngle)
	} else {
		res.Message = fmt.Sprintf("No edges exceed %.1f°.", thresholdDeg)
	}
	return res
}
