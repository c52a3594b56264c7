package dfm

import "github.com/chazu/moldcheck/pkg/kernel"

// boxMesh returns a closed, outward-wound box with one corner at the origin.
func boxMesh(x, y, z float64) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []kernel.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: x, Y: 0, Z: 0}, {X: x, Y: y, Z: 0}, {X: 0, Y: y, Z: 0},
			{X: 0, Y: 0, Z: z}, {X: x, Y: 0, Z: z}, {X: x, Y: y, Z: z}, {X: 0, Y: y, Z: z},
		},
		Faces: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{3, 7, 6}, {3, 6, 2}, // back
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
		},
	}
}

// rightAngleMesh is two triangles sharing edge 0-1 with normals +Z and +Y.
func rightAngleMesh() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []kernel.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		Faces:    [][3]int{{0, 1, 2}, {0, 3, 1}},
	}
}

// upTriangle has normal +Z.
func upTriangle() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []kernel.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Faces:    [][3]int{{0, 1, 2}},
	}
}

// wallTriangle is vertical with normal -Y.
func wallTriangle() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []kernel.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}},
		Faces:    [][3]int{{0, 1, 2}},
	}
}

func defined(vals ...float64) ThicknessField {
	f := make(ThicknessField, len(vals))
	for i, v := range vals {
		f[i] = Thickness{Value: v, Defined: true}
	}
	return f
}
