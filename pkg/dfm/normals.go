package dfm

import (
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// degenerateEpsilon is the cross-product length, relative to the squared
// bounding box diagonal, at or below which a triangle is treated as having
// no area and no normal. Being relative keeps micro-scale meshes usable.
const degenerateEpsilon = 1e-12

// areaTolerance is degenerateEpsilon in the units of m.
func areaTolerance(m *kernel.Mesh) float64 {
	d := m.Bounds().Diagonal()
	return degenerateEpsilon * d * d
}

// FaceGeometry holds per-face unit normals and areas. Degenerate faces have
// a zero normal and zero area.
type FaceGeometry struct {
	Normals []kernel.Vec3
	Areas   []float64
}

// Degenerate reports whether face f has no defined normal.
func (g FaceGeometry) Degenerate(f int) bool {
	return g.Normals[f].IsZero()
}

// ComputeFaceGeometry computes the normal and area of every triangle.
// The normal follows the winding order (b-a) × (c-a).
func ComputeFaceGeometry(m *kernel.Mesh) FaceGeometry {
	g := FaceGeometry{
		Normals: make([]kernel.Vec3, len(m.Faces)),
		Areas:   make([]float64, len(m.Faces)),
	}
	tol := areaTolerance(m)
	for f := range m.Faces {
		a, b, c := m.Triangle(f)
		cr := b.Sub(a).Cross(c.Sub(a))
		l := cr.Length()
		if l <= tol || math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		g.Normals[f] = cr.Scale(1 / l)
		g.Areas[f] = l / 2
	}
	return g
}

// ComputeVertexNormals averages the normals of the faces incident to each
// vertex, weighted by face area, and normalizes the result. A vertex with
// no non-degenerate incident face, or whose weighted sum cancels to zero,
// gets the zero vector.
func ComputeVertexNormals(m *kernel.Mesh, g FaceGeometry) []kernel.Vec3 {
	sums := make([]kernel.Vec3, len(m.Vertices))
	for f, face := range m.Faces {
		if g.Areas[f] == 0 {
			continue
		}
		w := g.Normals[f].Scale(g.Areas[f])
		for _, v := range face {
			sums[v] = sums[v].Add(w)
		}
	}
	tol := areaTolerance(m)
	for i, s := range sums {
		l := s.Length()
		if l <= tol {
			sums[i] = kernel.Vec3{}
			continue
		}
		sums[i] = s.Scale(1 / l)
	}
	return sums
}

// angleDeg returns the angle between unit vectors a and b in degrees, with
// the cosine clamped to [-1, 1] against rounding drift.
func angleDeg(a, b kernel.Vec3) float64 {
	c := math.Max(-1, math.Min(1, a.Dot(b)))
	return math.Acos(c) * 180 / math.Pi
}
