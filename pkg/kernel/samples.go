package kernel

import (
	"fmt"
	"sort"
)

// sampleBuilders construct the reference parts used by the CLI and tests.
// Dimensions are in model units (mm). Kernels that tessellate with
// marching cubes bevel every edge and leave neighbouring vertices a
// fraction of a cell apart, which the k-NN thickness estimate reads as
// near-zero walls.
var sampleBuilders = map[string]func(k Kernel) Solid{
	// A 10 mm cube. Its edges come out beveled below the sharp corner
	// threshold; the vertical walls lack draft and the bottom is an undercut.
	"cube": func(k Kernel) Solid {
		return k.Box(10, 10, 10)
	},
	// A 20x20x0.4 plate: thinner than the global and local minimums.
	"plate": func(k Kernel) Solid {
		return k.Box(20, 20, 0.4)
	},
	// A 2 mm base plate with a 6 mm tall, 4 mm wide rib. Rib/boss flags the
	// vertices whose estimate spans the rib against a near-zero median.
	"rib": func(k Kernel) Solid {
		base := k.Box(40, 40, 2)
		rib := k.Translate(k.Box(4, 40, 6), 18, 0, 2)
		return k.Union(base, rib)
	},
	// A 20x20x10 block with its vertical edges cut at 45 degrees.
	"chamfered": func(k Kernel) Solid {
		cutter := k.Translate(k.Box(24, 24, 10), -12, -12, 0)
		return k.Intersection(k.Box(20, 20, 10), k.Translate(k.Rotate(cutter, 0, 0, 45), 10, 10, 0))
	},
	// A 30 mm cube with a through hole along Z.
	"boss": func(k Kernel) Solid {
		block := k.Box(30, 30, 30)
		hole := k.Translate(k.Cylinder(40, 5, 32), 15, 15, 15)
		return k.Difference(block, hole)
	},
}

// SampleNames returns the names accepted by Sample, sorted.
func SampleNames() []string {
	names := make([]string, 0, len(sampleBuilders))
	for name := range sampleBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample builds the named reference part with k and tessellates it.
func Sample(k Kernel, name string) (*Mesh, error) {
	build, ok := sampleBuilders[name]
	if !ok {
		return nil, fmt.Errorf("unknown sample %q, expected one of %v", name, SampleNames())
	}
	m, err := k.ToMesh(build(k))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", name, err)
	}
	m.PartName = name
	return m, nil
}
