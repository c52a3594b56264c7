package dfm

import "math"

// Penalty weights per violation ratio.
const (
	weightThin     = 40.0
	weightDraft    = 30.0
	weightUndercut = 20.0
	weightSharp    = 10.0
)

// Score rates manufacturability from 0 to 100. Each check subtracts its
// weight times the ratio of its violation count to the triangle count.
func Score(r *Report) float64 {
	if r == nil || r.Triangles <= 0 {
		return 0
	}
	f := float64(r.Triangles)
	s := 100.0
	s -= weightThin * float64(r.LocalThickness.Metrics.Count) / f
	s -= weightDraft * float64(r.Draft.Metrics.Count) / f
	s -= weightUndercut * float64(r.Undercut.Metrics.Count) / f
	s -= weightSharp * float64(r.SharpCorners.Metrics.Count) / f
	return math.Max(0, math.Min(100, s))
}
