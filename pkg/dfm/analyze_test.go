package dfm

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/moldcheck/pkg/kernel"
	"github.com/chazu/moldcheck/pkg/kernel/sdfx"
)

// --- Analyze ---

func TestAnalyzeCube(t *testing.T) {
	m := boxMesh(10, 10, 10)
	m.PartName = "cube"
	r, err := Analyze(context.Background(), m, DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	if r.Triangles != 12 || r.Vertices != 8 || r.PartName != "cube" {
		t.Errorf("counts = %d/%d %q", r.Triangles, r.Vertices, r.PartName)
	}
	if r.Extents != (kernel.Vec3{X: 10, Y: 10, Z: 10}) {
		t.Errorf("extents = %v", r.Extents)
	}
	if !r.Edges.Closed() {
		t.Errorf("cube should be closed: %+v", r.Edges)
	}

	want := map[CheckKind]Status{
		KindGlobalThickness: StatusOK,
		KindLocalThickness:  StatusOK,
		KindSharpCorners:    StatusWarning,
		KindDraft:           StatusWarning,
		KindUndercut:        StatusWarning,
		KindRibBoss:         StatusUnknown,
	}
	checks := r.Checks()
	if len(checks) != 6 {
		t.Fatalf("Checks() = %d results", len(checks))
	}
	for _, c := range checks {
		if c.Status != want[c.Check] {
			t.Errorf("%s: %v, want %v (%s)", c.Check, c.Status, want[c.Check], c.Message)
		}
	}
	if len(r.Warnings()) != 3 || r.OK() {
		t.Errorf("warnings = %d", len(r.Warnings()))
	}

	// 100 - 30*8/12 - 20*2/12 - 10*12/12
	if math.Abs(r.Score-(100-20-20.0/6-10)) > 1e-9 {
		t.Errorf("score = %v", r.Score)
	}
	wantSummary := "DFM – Global thickness: OK. Local thickness: OK. Sharp corners: WARNING. Draft: WARNING. Undercut: WARNING. Rib/Boss: UNKNOWN."
	if r.Summary != wantSummary {
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestAnalyzePlate(t *testing.T) {
	r, err := Analyze(context.Background(), boxMesh(20, 20, 0.3), DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if r.GlobalThickness.Status != StatusWarning {
		t.Errorf("global = %v, want WARNING", r.GlobalThickness.Status)
	}
	if *r.GlobalThickness.Metrics.Min != 0.3 {
		t.Errorf("min dimension = %v", *r.GlobalThickness.Metrics.Min)
	}
}

func TestAnalyzeMaskLengths(t *testing.T) {
	m := boxMesh(3, 4, 5)
	r, err := Analyze(context.Background(), m, DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range r.Checks() {
		if c.VertexMask != nil && len(c.VertexMask) != len(m.Vertices) {
			t.Errorf("%s vertex mask length %d", c.Check, len(c.VertexMask))
		}
		if c.FaceMask != nil && len(c.FaceMask) != len(m.Faces) {
			t.Errorf("%s face mask length %d", c.Check, len(c.FaceMask))
		}
	}
	if len(r.Thickness) != len(m.Vertices) {
		t.Errorf("thickness length %d", len(r.Thickness))
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	m := boxMesh(7, 3, 2)
	th := DefaultThresholds()
	a, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two runs differ")
	}
}

func TestAnalyzeDoesNotMutateInputs(t *testing.T) {
	m := boxMesh(2, 2, 2)
	before := &kernel.Mesh{
		Vertices: append([]kernel.Vec3(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	th := DefaultThresholds()
	th.PullDirection = kernel.Vec3{Z: 5}
	if _, err := Analyze(context.Background(), m, th); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Vertices, before.Vertices) || !reflect.DeepEqual(m.Faces, before.Faces) {
		t.Error("mesh mutated")
	}
	if th.PullDirection != (kernel.Vec3{Z: 5}) {
		t.Error("thresholds mutated")
	}
}

func TestAnalyzeInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		mesh *kernel.Mesh
		face int
	}{
		{"nil", nil, -1},
		{"empty", &kernel.Mesh{}, -1},
		{"no faces", &kernel.Mesh{Vertices: []kernel.Vec3{{}}}, -1},
		{"out of range", &kernel.Mesh{Vertices: []kernel.Vec3{{}, {X: 1}, {Y: 1}}, Faces: [][3]int{{0, 1, 2}, {0, 1, 9}}}, 1},
		{"nan", &kernel.Mesh{Vertices: []kernel.Vec3{{X: math.NaN()}, {X: 1}, {Y: 1}}, Faces: [][3]int{{0, 1, 2}}}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Analyze(context.Background(), tt.mesh, DefaultThresholds())
			if r != nil {
				t.Error("expected no report")
			}
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("err = %v, want ErrInvalidGeometry", err)
			}
			var ge *GeometryError
			if !errors.As(err, &ge) {
				t.Fatalf("err = %T, want *GeometryError", err)
			}
			if ge.Face != tt.face {
				t.Errorf("Face = %d, want %d", ge.Face, tt.face)
			}
		})
	}
}

func TestAnalyzeInvalidThresholds(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name   string
		modify func(*Thresholds)
	}{
		{"nan", func(th *Thresholds) { th.MinLocalThickness = math.NaN() }},
		{"negative", func(th *Thresholds) { th.RibBossFactor = -1 }},
		{"angle too large", func(th *Thresholds) { th.SharpAngleDeg = 200 }},
		{"nominal", func(th *Thresholds) { th.NominalWall = &neg }},
		{"pull", func(th *Thresholds) { th.PullDirection = kernel.Vec3{X: math.Inf(1)} }},
		{"neighbors", func(th *Thresholds) { th.Neighbors = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.modify(&th)
			_, err := Analyze(context.Background(), boxMesh(1, 1, 1), th)
			if !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("err = %v, want ErrInvalidThresholds", err)
			}
		})
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, boxMesh(1, 1, 1), DefaultThresholds())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeZeroPullMeansUp(t *testing.T) {
	m := boxMesh(4, 4, 4)
	th := DefaultThresholds()
	a, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	th.PullDirection = kernel.Vec3{}
	b, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Undercut, b.Undercut) || !reflect.DeepEqual(a.Draft, b.Draft) {
		t.Error("zero pull should behave like +Z")
	}
}

// Sample parts are marching-cubes output: edges come out beveled and
// neighbouring vertices sit a fraction of a cell apart, so the k-NN
// thickness estimate reads near zero on every face.
func TestAnalyzeSampleParts(t *testing.T) {
	tests := []struct {
		name  string
		cells int
		want  map[CheckKind]Status
	}{
		{"cube", sdfx.DefaultMeshCells, map[CheckKind]Status{
			KindGlobalThickness: StatusOK,
			KindSharpCorners:    StatusOK,
			KindDraft:           StatusWarning,
			KindUndercut:        StatusWarning,
		}},
		{"plate", 24, map[CheckKind]Status{
			KindGlobalThickness: StatusWarning,
			KindLocalThickness:  StatusWarning,
			KindUndercut:        StatusWarning,
		}},
		{"rib", sdfx.DefaultMeshCells, map[CheckKind]Status{
			KindGlobalThickness: StatusOK,
			KindLocalThickness:  StatusWarning,
			KindUndercut:        StatusWarning,
			KindRibBoss:         StatusWarning,
		}},
		{"boss", 24, map[CheckKind]Status{
			KindGlobalThickness: StatusOK,
			KindDraft:           StatusWarning,
			KindUndercut:        StatusWarning,
		}},
		{"chamfered", 24, map[CheckKind]Status{
			KindGlobalThickness: StatusOK,
			KindDraft:           StatusWarning,
			KindUndercut:        StatusWarning,
		}},
	}
	if len(tests) != len(kernel.SampleNames()) {
		t.Fatalf("%d samples covered, %d exist", len(tests), len(kernel.SampleNames()))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := kernel.Sample(sdfx.New(sdfx.WithCells(tt.cells)), tt.name)
			if err != nil {
				t.Fatal(err)
			}
			r, err := Analyze(context.Background(), m, DefaultThresholds())
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range r.Checks() {
				want, ok := tt.want[c.Check]
				if ok && c.Status != want {
					t.Errorf("%s = %v, want %v (%s)", c.Check, c.Status, want, c.Message)
				}
			}
			if r.Score < 0 || r.Score > 100 {
				t.Errorf("score %v out of range", r.Score)
			}
			if !strings.HasPrefix(r.Summary, "DFM – Global thickness: ") {
				t.Errorf("summary = %q", r.Summary)
			}
		})
	}
}

func TestAnalyzeTessellatedPart(t *testing.T) {
	m, err := kernel.Sample(sdfx.New(sdfx.WithCells(24)), "rib")
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() <= minChunk {
		t.Fatalf("only %d vertices, want more than one parallel chunk", m.VertexCount())
	}
	th := DefaultThresholds()
	first, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := first.Thickness.Min(); !ok {
		t.Fatal("no defined thickness on the rib")
	}
	second, err := Analyze(context.Background(), m, th)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs differ")
	}

	a, err := NewAnalyzer()
	if err != nil {
		t.Fatal(err)
	}
	loose := DefaultThresholds()
	loose.RibBossFactor = 3
	loose.MinDraftAngleDeg = 0
	for _, th := range []Thresholds{th, loose, th} {
		got, err := a.Analyze(context.Background(), m, th)
		if err != nil {
			t.Fatal(err)
		}
		want, err := Analyze(context.Background(), m, th)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("cached report differs for %+v", th)
		}
	}
}

// --- Analyzer ---

func TestAnalyzerMatchesAnalyze(t *testing.T) {
	a, err := NewAnalyzer(WithCacheSize(2))
	if err != nil {
		t.Fatal(err)
	}
	m := boxMesh(5, 6, 7)
	strict := DefaultThresholds()
	strict.SharpAngleDeg = 100
	strict.MinDraftAngleDeg = 0

	for _, th := range []Thresholds{DefaultThresholds(), strict, DefaultThresholds()} {
		got, err := a.Analyze(context.Background(), m, th)
		if err != nil {
			t.Fatal(err)
		}
		want, err := Analyze(context.Background(), m, th)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("cached report differs for %+v", th)
		}
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestAnalyzerFingerprintCollision(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatal(err)
	}
	small, wide := boxMesh(1, 1, 1), boxMesh(30, 2, 1)
	// File the small box's geometry under the wide box's key.
	a.cache.Add(Fingerprint(wide), prepare(small))

	got, err := a.Analyze(context.Background(), wide, DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	want, err := Analyze(context.Background(), wide, DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("report built from another mesh's geometry")
	}
	if p, ok := a.cache.Get(Fingerprint(wide)); !ok || !p.matches(wide) {
		t.Error("colliding entry was not replaced")
	}
}

func TestAnalyzerEvicts(t *testing.T) {
	a, err := NewAnalyzer(WithCacheSize(2))
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := a.Analyze(context.Background(), boxMesh(float64(i), 1, 1), DefaultThresholds()); err != nil {
			t.Fatal(err)
		}
	}
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}
	a.Purge()
	if a.Len() != 0 {
		t.Errorf("Len after Purge = %d", a.Len())
	}
}

func TestAnalyzerConcurrent(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatal(err)
	}
	m := boxMesh(3, 3, 3)
	want, err := Analyze(context.Background(), m, DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Analyze(context.Background(), m, DefaultThresholds())
			if err != nil {
				t.Error(err)
				return
			}
			if !reflect.DeepEqual(got, want) {
				t.Error("concurrent report differs")
			}
		}()
	}
	wg.Wait()
}

func TestNewAnalyzerBadSize(t *testing.T) {
	if _, err := NewAnalyzer(WithCacheSize(0)); err == nil {
		t.Error("expected error for zero cache size")
	}
}

func TestFingerprint(t *testing.T) {
	a, b := boxMesh(1, 2, 3), boxMesh(1, 2, 3)
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal meshes hash differently")
	}
	b.Vertices[6].Z = 3.0000001
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("moved vertex did not change the fingerprint")
	}
	b = boxMesh(1, 2, 3)
	b.Faces[0] = [3]int{0, 1, 2}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("rewound face did not change the fingerprint")
	}
}

// --- score ---

func TestScore(t *testing.T) {
	tests := []struct {
		name                           string
		faces, thin, draft, under, sharp int
		want                           float64
	}{
		{"clean", 100, 0, 0, 0, 0, 100},
		{"no faces", 0, 5, 5, 5, 5, 0},
		{"mixed", 100, 10, 20, 5, 50, 100 - 4 - 6 - 1 - 5},
		{"clamped", 10, 100, 10, 10, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Triangles: tt.faces}
			r.LocalThickness.Metrics.Count = tt.thin
			r.Draft.Metrics.Count = tt.draft
			r.Undercut.Metrics.Count = tt.under
			r.SharpCorners.Metrics.Count = tt.sharp
			if got := Score(r); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
	if Score(nil) != 0 {
		t.Error("Score(nil) should be 0")
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusWarning, StatusUnknown} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Status
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Errorf("%v round trip = %v, %v", s, back, err)
		}
	}
	var s Status
	if err := s.UnmarshalText([]byte("FINE")); err == nil {
		t.Error("expected error for unknown status")
	}
}
