package dfm

import (
	"sort"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// Edge is an undirected mesh edge with A < B.
type Edge struct {
	A, B int
}

// NewEdge returns the canonical edge between vertices a and b.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// EdgeAdjacency maps every edge to the faces that contain it.
type EdgeAdjacency struct {
	faces       map[Edge][]int
	interior    []Edge
	boundary    int
	nonManifold int
}

// BuildEdgeAdjacency collects the faces around every edge. Self-loop edges
// from collapsed triangles are ignored, and a face is listed at most once
// per edge.
func BuildEdgeAdjacency(m *kernel.Mesh) *EdgeAdjacency {
	adj := &EdgeAdjacency{faces: make(map[Edge][]int, len(m.Faces)*3/2)}
	for f, face := range m.Faces {
		for j := 0; j < 3; j++ {
			a, b := face[j], face[(j+1)%3]
			if a == b {
				continue
			}
			e := NewEdge(a, b)
			fs := adj.faces[e]
			if n := len(fs); n > 0 && fs[n-1] == f {
				continue
			}
			adj.faces[e] = append(fs, f)
		}
	}
	for e, fs := range adj.faces {
		switch {
		case len(fs) == 2:
			adj.interior = append(adj.interior, e)
		case len(fs) == 1:
			adj.boundary++
		default:
			adj.nonManifold++
		}
	}
	sort.Slice(adj.interior, func(i, j int) bool {
		a, b := adj.interior[i], adj.interior[j]
		if a.A != b.A {
			return a.A < b.A
		}
		return a.B < b.B
	})
	return adj
}

// Faces returns the faces incident to e.
func (a *EdgeAdjacency) Faces(e Edge) []int { return a.faces[e] }

// Interior returns the edges shared by exactly two faces, sorted.
func (a *EdgeAdjacency) Interior() []Edge { return a.interior }

// EdgeCount returns the number of distinct edges.
func (a *EdgeAdjacency) EdgeCount() int { return len(a.faces) }

// Boundary returns the number of edges with a single incident face.
func (a *EdgeAdjacency) Boundary() int { return a.boundary }

// NonManifold returns the number of edges with three or more incident faces.
func (a *EdgeAdjacency) NonManifold() int { return a.nonManifold }
