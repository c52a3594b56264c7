package dfm

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// prepared is the threshold-independent geometry of a mesh. Thickness
// fields are memoized per neighbor count.
type prepared struct {
	// copies of the source mesh, compared on cache hits
	vertices []kernel.Vec3
	indices  [][3]int

	faces     FaceGeometry
	normals   []kernel.Vec3
	bounds    kernel.Box
	index     *SpatialIndex
	adjacency *EdgeAdjacency

	mu        sync.Mutex
	thickness map[int]ThicknessField
}

func prepare(m *kernel.Mesh) *prepared {
	fg := ComputeFaceGeometry(m)
	return &prepared{
		vertices:  slices.Clone(m.Vertices),
		indices:   slices.Clone(m.Faces),
		faces:     fg,
		normals:   ComputeVertexNormals(m, fg),
		bounds:    m.Bounds(),
		index:     NewSpatialIndex(m.Vertices),
		adjacency: BuildEdgeAdjacency(m),
		thickness: make(map[int]ThicknessField),
	}
}

// matches reports whether p was prepared from a mesh equal to m.
func (p *prepared) matches(m *kernel.Mesh) bool {
	return slices.Equal(p.vertices, m.Vertices) && slices.Equal(p.indices, m.Faces)
}

func (p *prepared) thicknessField(ctx context.Context, m *kernel.Mesh, k int) (ThicknessField, error) {
	p.mu.Lock()
	field, ok := p.thickness[k]
	p.mu.Unlock()
	if ok {
		return field, nil
	}
	field, err := EstimateThickness(ctx, m, p.normals, p.index, k)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.thickness[k] = field
	p.mu.Unlock()
	return field, nil
}

// Analyze runs every check over m and returns a new Report. It returns an
// error only for an invalid mesh, invalid thresholds or a cancelled ctx.
func Analyze(ctx context.Context, m *kernel.Mesh, th Thresholds) (*Report, error) {
	if err := validateMesh(m); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return run(ctx, m, prepare(m), th.Normalized())
}

func run(ctx context.Context, m *kernel.Mesh, p *prepared, th Thresholds) (r *Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("dfm: analyze: internal error: %v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field, err := p.thicknessField(ctx, m, th.Neighbors)
	if err != nil {
		return nil, err
	}
	// Copy so callers may mutate the report without touching the cache.
	field = append(ThicknessField(nil), field...)

	r = &Report{
		PartName:   m.PartName,
		Triangles:  len(m.Faces),
		Vertices:   len(m.Vertices),
		Bounds:     p.bounds,
		Extents:    p.bounds.Extents(),
		Thresholds: th,
		Edges: EdgeStats{
			Total:       p.adjacency.EdgeCount(),
			Boundary:    p.adjacency.Boundary(),
			NonManifold: p.adjacency.NonManifold(),
		},
		Thickness: field,
	}
	r.GlobalThickness = CheckGlobalThickness(p.bounds, th.MinGlobalThickness)
	r.LocalThickness = CheckLocalThickness(field, p.bounds, th.MinLocalThickness)
	r.SharpCorners = DetectSharpCorners(m, p.faces, p.adjacency, th.SharpAngleDeg)
	r.Draft = CheckDraft(m, p.faces, th.PullDirection, th.MinDraftAngleDeg)
	r.Undercut = CheckUndercut(m, p.faces, th.PullDirection, th.UndercutAngleDeg)
	r.RibBoss = CheckRibBoss(field, th.NominalWall, th.RibBossFactor)
	r.Score = Score(r)
	r.Summary = summarize(r.Checks())
	return r, nil
}
