package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// newKernel returns a coarse kernel so tests stay fast.
func newKernel() *SdfxKernel {
	return New(WithCells(24))
}

func TestBox(t *testing.T) {
	k := newKernel()
	mesh, err := k.ToMesh(k.Box(100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("mesh invalid: %v", err)
	}
	// Welding must share corners: a closed surface has far fewer vertices
	// than three per triangle.
	if mesh.VertexCount() >= 3*mesh.TriangleCount() {
		t.Errorf("vertices %d not welded (triangles %d)", mesh.VertexCount(), mesh.TriangleCount())
	}
	t.Logf("box: %d vertices, %d triangles", mesh.VertexCount(), mesh.TriangleCount())
}

func TestBoxMeshBounds(t *testing.T) {
	k := newKernel()
	mesh, err := k.ToMesh(k.Box(40, 20, 10))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	ext := mesh.Bounds().Extents()

	// Marching cubes only approximates the faces; allow a couple of cells.
	const tol = 4.0
	want := kernel.Vec3{X: 40, Y: 20, Z: 10}
	if math.Abs(ext.X-want.X) > tol || math.Abs(ext.Y-want.Y) > tol || math.Abs(ext.Z-want.Z) > tol {
		t.Errorf("mesh extents = %v, want ~%v", ext, want)
	}
}

func TestWithCellsClamp(t *testing.T) {
	k := New(WithCells(1))
	if k.cells != 8 {
		t.Errorf("cells = %d, want 8", k.cells)
	}
	if New().cells != DefaultMeshCells {
		t.Errorf("default cells = %d, want %d", New().cells, DefaultMeshCells)
	}
}

func TestDifference(t *testing.T) {
	k := newKernel()

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Translate(k.Cylinder(120, 20, 32), 50, 50, 50)
	diffMesh, err := k.ToMesh(k.Difference(box, cyl))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestTranslate(t *testing.T) {
	k := newKernel()
	bb := k.Translate(k.Box(10, 10, 10), 100, 200, 300).BoundingBox()

	// The box has its min corner at the origin, so it moves to (100,200,300).
	const tol = 0.5
	wantMin := kernel.Vec3{X: 100, Y: 200, Z: 300}
	wantMax := kernel.Vec3{X: 110, Y: 210, Z: 310}
	if bb.Min.Sub(wantMin).Length() > tol {
		t.Errorf("min = %v, want ~%v", bb.Min, wantMin)
	}
	if bb.Max.Sub(wantMax).Length() > tol {
		t.Errorf("max = %v, want ~%v", bb.Max, wantMax)
	}
}

func TestRotate(t *testing.T) {
	k := newKernel()

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	ext := k.Rotate(k.Box(100, 10, 10), 0, 0, 90).BoundingBox().Extents()

	const tol = 1.0
	if math.Abs(ext.X-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", ext.X)
	}
	if math.Abs(ext.Y-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", ext.Y)
	}
}

func TestSamples(t *testing.T) {
	k := newKernel()
	for _, name := range kernel.SampleNames() {
		t.Run(name, func(t *testing.T) {
			m, err := kernel.Sample(k, name)
			if err != nil {
				t.Fatalf("Sample(%q) failed: %v", name, err)
			}
			if m.PartName != name {
				t.Errorf("PartName = %q, want %q", m.PartName, name)
			}
			if err := m.Validate(); err != nil {
				t.Errorf("sample mesh invalid: %v", err)
			}
		})
	}
	if _, err := kernel.Sample(k, "teapot"); err == nil {
		t.Error("Sample(teapot) should fail")
	}
}

func TestCellsForThinSolid(t *testing.T) {
	k := New(WithCells(24))
	tests := []struct {
		name string
		bb   kernel.Box
		want int
	}{
		{"cube keeps configured", kernel.Box{Max: kernel.Vec3{X: 10, Y: 10, Z: 10}}, 24},
		{"plate raised", kernel.Box{Max: kernel.Vec3{X: 20, Y: 20, Z: 1}}, 80},
		{"sliver capped", kernel.Box{Max: kernel.Vec3{X: 100, Y: 100, Z: 0.1}}, maxMeshCells},
		{"flat keeps configured", kernel.Box{Max: kernel.Vec3{X: 10, Y: 10}}, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.cellsFor(tt.bb); got != tt.want {
				t.Errorf("cellsFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
