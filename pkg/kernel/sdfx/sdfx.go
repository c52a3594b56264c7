// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest bounding box axis.
const DefaultMeshCells = 64

// maxMeshCells caps the adaptive resolution chosen for thin solids.
const maxMeshCells = 512

// minCellsAcross is the number of cells wanted across the thinnest axis so
// that marching cubes does not skip thin walls.
const minCellsAcross = 4

// weldFraction is the weld grid spacing relative to the bounding box diagonal.
const weldFraction = 1e-9

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() kernel.Box {
	bb := s.s.BoundingBox()
	return kernel.Box{
		Min: kernel.Vec3{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: kernel.Vec3{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithCells sets the marching cubes resolution. Values below 8 are raised to 8.
func WithCells(n int) Option {
	return func(k *SdfxKernel) {
		if n < 8 {
			n = 8
		}
		k.cells = n
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions and its minimum corner at the
// origin. sdf.Box3D centers the box at the origin, so we translate by
// half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m))
}

// Cylinder creates a cylinder along Z centered at the origin.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to an indexed triangle mesh using marching cubes.
// Marching cubes emits an unindexed soup, so coincident corners are welded
// on a grid much finer than one cell.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	bb := s.BoundingBox()
	renderer := render.NewMarchingCubesUniform(k.cellsFor(bb))
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles")
	}

	soup := make([]kernel.Triangle, len(triangles))
	for i, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			soup[i][j] = kernel.Vec3{X: v.X, Y: v.Y, Z: v.Z}
		}
	}

	tol := bb.Diagonal() * weldFraction
	return kernel.WeldTolerance(soup, tol), nil
}

// cellsFor returns the resolution for a solid with bounding box bb: the
// configured cell count, raised so the thinnest axis still spans
// minCellsAcross cells.
func (k *SdfxKernel) cellsFor(bb kernel.Box) int {
	ext := bb.Extents()
	longest := math.Max(ext.X, math.Max(ext.Y, ext.Z))
	shortest := ext.MinComponent()
	cells := k.cells
	if shortest > 0 {
		want := int(math.Ceil(minCellsAcross * longest / shortest))
		if want > cells {
			cells = want
		}
	}
	if cells > maxMeshCells {
		cells = maxMeshCells
	}
	return cells
}
