package kernel

import "math"

// Triangle is an unindexed triangle, as produced by STL files and by
// marching-cubes tessellation.
type Triangle [3]Vec3

// Weld converts a triangle soup into an indexed mesh by merging corners with
// identical coordinates. Vertex order follows first appearance, so welding the
// same soup twice yields identical meshes.
func Weld(tris []Triangle) *Mesh {
	m := &Mesh{
		Vertices: make([]Vec3, 0, len(tris)),
		Faces:    make([][3]int, 0, len(tris)),
	}
	seen := make(map[Vec3]int, len(tris))

	for _, tri := range tris {
		var face [3]int
		for j, v := range tri {
			// -0 and +0 must weld together; map keys compare by ==, which
			// already treats them as equal.
			idx, ok := seen[v]
			if !ok {
				idx = len(m.Vertices)
				seen[v] = idx
				m.Vertices = append(m.Vertices, v)
			}
			face[j] = idx
		}
		m.Faces = append(m.Faces, face)
	}

	return m
}

// WeldTolerance is like Weld but merges corners whose coordinates agree
// after snapping to a grid of spacing tol. The first corner seen in each grid
// cell is kept as the vertex position. A non-positive tol behaves like Weld.
func WeldTolerance(tris []Triangle, tol float64) *Mesh {
	if tol <= 0 {
		return Weld(tris)
	}
	m := &Mesh{
		Vertices: make([]Vec3, 0, len(tris)),
		Faces:    make([][3]int, 0, len(tris)),
	}
	type cell struct{ x, y, z int64 }
	seen := make(map[cell]int, len(tris))
	snap := func(f float64) int64 { return int64(math.Round(f / tol)) }

	for _, tri := range tris {
		var face [3]int
		for j, v := range tri {
			key := cell{snap(v.X), snap(v.Y), snap(v.Z)}
			idx, ok := seen[key]
			if !ok {
				idx = len(m.Vertices)
				seen[key] = idx
				m.Vertices = append(m.Vertices, v)
			}
			face[j] = idx
		}
		m.Faces = append(m.Faces, face)
	}

	return m
}

// Soup expands an indexed mesh back into unindexed triangles.
func (m *Mesh) Soup() []Triangle {
	tris := make([]Triangle, len(m.Faces))
	for f := range m.Faces {
		a, b, c := m.Triangle(f)
		tris[f] = Triangle{a, b, c}
	}
	return tris
}
