package dfm

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// DefaultCacheSize is the number of prepared meshes an Analyzer keeps.
const DefaultCacheSize = 16

// Analyzer runs Analyze with a cache of threshold-independent geometry, so
// re-analyzing the same mesh under different thresholds skips normals,
// indexing, adjacency and (for an unchanged neighbor count) thickness.
// It is safe for concurrent use.
type Analyzer struct {
	cache *lru.Cache[uint64, *prepared]
}

type analyzerConfig struct {
	cacheSize int
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*analyzerConfig)

// WithCacheSize sets how many meshes are kept.
func WithCacheSize(n int) AnalyzerOption {
	return func(c *analyzerConfig) { c.cacheSize = n }
}

// NewAnalyzer returns an Analyzer with an empty cache.
func NewAnalyzer(opts ...AnalyzerOption) (*Analyzer, error) {
	cfg := analyzerConfig{cacheSize: DefaultCacheSize}
	for _, o := range opts {
		o(&cfg)
	}
	cache, err := lru.New[uint64, *prepared](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("dfm: analyzer cache: %w", err)
	}
	return &Analyzer{cache: cache}, nil
}

// Analyze behaves like the package-level Analyze. A cached entry is used
// only when its mesh equals m; a fingerprint collision replaces it.
func (a *Analyzer) Analyze(ctx context.Context, m *kernel.Mesh, th Thresholds) (*Report, error) {
	if err := validateMesh(m); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	key := Fingerprint(m)
	p, ok := a.cache.Get(key)
	if !ok || !p.matches(m) {
		p = prepare(m)
		a.cache.Add(key, p)
	}
	return run(ctx, m, p, th.Normalized())
}

// Len returns the number of cached meshes.
func (a *Analyzer) Len() int { return a.cache.Len() }

// Purge empties the cache.
func (a *Analyzer) Purge() { a.cache.Purge() }

// Fingerprint hashes vertex coordinates and face indices with FNV-64a. It
// is a cache key, not an identity: distinct meshes may collide.
func Fingerprint(m *kernel.Mesh) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		h.Write(buf[:])
	}
	put(uint64(len(m.Vertices)))
	put(uint64(len(m.Faces)))
	for _, v := range m.Vertices {
		put(math.Float64bits(v.X))
		put(math.Float64bits(v.Y))
		put(math.Float64bits(v.Z))
	}
	for _, f := range m.Faces {
		put(uint64(f[0]))
		put(uint64(f[1]))
		put(uint64(f[2]))
	}
	return h.Sum64()
}
