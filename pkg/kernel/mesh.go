package kernel

import (
	"fmt"
	"math"
)

// Mesh is an indexed triangle mesh. Vertices holds one point per vertex and
// Faces holds one index triple per triangle, indexing into Vertices.
type Mesh struct {
	Vertices []Vec3  `json:"vertices"`
	Faces    [][3]int `json:"faces"`
	PartName string   `json:"partName"` // optional label, e.g. the source file name
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no vertices or no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Triangle returns the three corner positions of face f.
func (m *Mesh) Triangle(f int) (a, b, c Vec3) {
	face := m.Faces[f]
	return m.Vertices[face[0]], m.Vertices[face[1]], m.Vertices[face[2]]
}

// Bounds returns the axis-aligned bounding box of all vertices.
// An empty mesh yields the zero Box.
func (m *Mesh) Bounds() Box {
	if len(m.Vertices) == 0 {
		return Box{}
	}
	bb := Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		bb.Min = bb.Min.Min(v)
		bb.Max = bb.Max.Max(v)
	}
	return bb
}

// Validate checks the structural invariants of the mesh: at least one
// vertex and one face, finite coordinates, and every face index in range.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 {
		return &MeshError{Reason: "mesh has no vertices", Face: -1, Index: -1}
	}
	if len(m.Faces) == 0 {
		return &MeshError{Reason: "mesh has no faces", Face: -1, Index: -1}
	}
	for i, v := range m.Vertices {
		if !v.IsFinite() {
			return &MeshError{Reason: fmt.Sprintf("vertex %d has non-finite coordinates", i), Face: -1, Index: i}
		}
	}
	n := len(m.Vertices)
	for f, face := range m.Faces {
		for _, idx := range face {
			if idx < 0 || idx >= n {
				return &MeshError{
					Reason: fmt.Sprintf("index %d out of range [0, %d)", idx, n),
					Face:   f,
					Index:  idx,
				}
			}
		}
	}
	return nil
}

// MeshError describes a structural defect found by Validate.
type MeshError struct {
	Reason string
	Face   int // offending face, or -1 when the defect is not face-specific
	Index  int // offending vertex index; only meaningful when Reason names one
}

func (e *MeshError) Error() string {
	if e.Face >= 0 {
		return fmt.Sprintf("face %d: %s", e.Face, e.Reason)
	}
	return e.Reason
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Extents returns Max - Min.
func (b Box) Extents() Vec3 {
	return b.Max.Sub(b.Min)
}

// MinDimension returns the smallest side length of the box.
func (b Box) MinDimension() float64 {
	return b.Extents().MinComponent()
}

// Diagonal returns the length of the box diagonal.
func (b Box) Diagonal() float64 {
	e := b.Extents()
	return math.Sqrt(e.Dot(e))
}
