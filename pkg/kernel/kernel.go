// Package kernel holds the indexed triangle mesh every analysis works on,
// plus a small solid modeling interface used to generate sample parts.
package kernel

// Solid is a kernel-specific solid. Only its bounds are visible.
type Solid interface {
	BoundingBox() Box
}

// Kernel builds solids and tessellates them. Box places its minimum corner
// at the origin; Cylinder is centered on the origin along Z. Rotate takes
// Euler angles in degrees applied X, then Y, then Z.
type Kernel interface {
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid

	// ToMesh returns a welded mesh.
	ToMesh(s Solid) (*Mesh, error)
}
