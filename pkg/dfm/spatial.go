package dfm

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// R-tree fan-out. Points are zero-volume rectangles.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

type pointEntry struct {
	idx  int
	rect rtreego.Rect
}

func (p *pointEntry) Bounds() rtreego.Rect { return p.rect }

// SpatialIndex answers k-nearest-neighbor queries over a fixed point set.
// It is immutable after construction and safe for concurrent queries.
type SpatialIndex struct {
	tree   *rtreego.Rtree
	points []kernel.Vec3
}

// NewSpatialIndex bulk-loads an R-tree over points.
func NewSpatialIndex(points []kernel.Vec3) *SpatialIndex {
	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = &pointEntry{idx: i, rect: rtreego.Point{p.X, p.Y, p.Z}.ToRect(0)}
	}
	return &SpatialIndex{
		tree:   rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren, objs...),
		points: points,
	}
}

// Len returns the number of indexed points.
func (s *SpatialIndex) Len() int { return len(s.points) }

// Nearest returns the indices of the k points closest to point i, i itself
// included, ordered by distance with ties broken by index.
func (s *SpatialIndex) Nearest(i, k int) []int {
	if k <= 0 || len(s.points) == 0 {
		return nil
	}
	k = min(k, len(s.points))
	p := s.points[i]
	found := s.tree.NearestNeighbors(k, rtreego.Point{p.X, p.Y, p.Z})

	out := make([]int, 0, len(found))
	for _, sp := range found {
		if sp == nil {
			continue
		}
		out = append(out, sp.(*pointEntry).idx)
	}
	dist := func(j int) float64 {
		d := s.points[j].Sub(p)
		return d.Dot(d)
	}
	sort.SliceStable(out, func(a, b int) bool {
		da, db := dist(out[a]), dist(out[b])
		if da != db {
			return da < db
		}
		return out[a] < out[b]
	})
	return out
}
