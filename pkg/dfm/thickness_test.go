package dfm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// slab places vertex 0 under two candidates at heights 1 and 0.5 and one
// below it; only vertex 0 has a normal.
func slab() (*kernel.Mesh, []kernel.Vec3) {
	m := &kernel.Mesh{
		Vertices: []kernel.Vec3{{}, {Z: 1}, {X: 1, Z: 0.5}, {Y: 1, Z: -2}},
		Faces:    [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	normals := []kernel.Vec3{{Z: 1}, {}, {}, {}}
	return m, normals
}

func TestEstimateThickness(t *testing.T) {
	m, normals := slab()
	field, err := EstimateThickness(context.Background(), m, normals, NewSpatialIndex(m.Vertices), 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(field) != 4 {
		t.Fatalf("len = %d, want 4", len(field))
	}
	if !field[0].Defined || field[0].Value != 0.5 {
		t.Errorf("vertex 0 = %+v, want 0.5", field[0])
	}
	for i := 1; i < 4; i++ {
		if field[i].Defined {
			t.Errorf("vertex %d has zero normal, want undefined, got %+v", i, field[i])
		}
	}
}

func TestEstimateThicknessKLimitsCandidates(t *testing.T) {
	// With k=2 vertex 0 only sees itself and the closest neighbor.
	m := &kernel.Mesh{
		Vertices: []kernel.Vec3{{}, {X: 0.1, Z: -0.1}, {Z: 3}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	normals := []kernel.Vec3{{Z: 1}, {}, {}}
	idx := NewSpatialIndex(m.Vertices)

	field, err := EstimateThickness(context.Background(), m, normals, idx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if field[0].Defined {
		t.Errorf("k=2: vertex 0 = %+v, want undefined", field[0])
	}
	field, err = EstimateThickness(context.Background(), m, normals, idx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !field[0].Defined || field[0].Value != 3 {
		t.Errorf("k=3: vertex 0 = %+v, want 3", field[0])
	}
}

func TestEstimateThicknessNormalsMismatch(t *testing.T) {
	m, _ := slab()
	_, err := EstimateThickness(context.Background(), m, nil, NewSpatialIndex(m.Vertices), 32)
	if err == nil {
		t.Fatal("expected error for missing normals")
	}
}

func TestEstimateThicknessCancelled(t *testing.T) {
	m, normals := slab()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EstimateThickness(ctx, m, normals, NewSpatialIndex(m.Vertices), 32)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckLocalThickness(t *testing.T) {
	field := append(defined(0.5, 1.0, 2.0), Thickness{})
	bounds := kernel.Box{Max: kernel.Vec3{X: 10, Y: 10, Z: 10}}

	tests := []struct {
		name      string
		threshold float64
		status    Status
		count     int
	}{
		{"all pass", 0.4, StatusOK, 0},
		{"one thin", 0.8, StatusWarning, 1},
		{"two thin", 1.5, StatusWarning, 2},
		{"equal is not thin", 0.5, StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckLocalThickness(field, bounds, tt.threshold)
			if res.Status != tt.status {
				t.Errorf("status = %v, want %v", res.Status, tt.status)
			}
			if res.Metrics.Count != tt.count {
				t.Errorf("count = %d, want %d", res.Metrics.Count, tt.count)
			}
			if *res.Metrics.Min != 0.5 {
				t.Errorf("min = %v, want 0.5", *res.Metrics.Min)
			}
			if res.Metrics.Fallback {
				t.Error("unexpected fallback")
			}
			if len(res.VertexMask) != len(field) || res.VertexMask[3] {
				t.Errorf("mask = %v", res.VertexMask)
			}
		})
	}
}

func TestCheckLocalThicknessMonotonic(t *testing.T) {
	field := defined(0.2, 0.9, 1.1, 0.4, 3.0, 0.85, 1.7)
	bounds := kernel.Box{Max: kernel.Vec3{X: 5, Y: 5, Z: 5}}
	prev := -1
	for _, th := range []float64{0, 0.1, 0.3, 0.5, 0.85, 0.86, 1, 2, 5} {
		n := CheckLocalThickness(field, bounds, th).Metrics.Count
		if n < prev {
			t.Errorf("threshold %v: count %d decreased from %d", th, n, prev)
		}
		prev = n
	}
}

func TestCheckLocalThicknessFallback(t *testing.T) {
	field := make(ThicknessField, 8)
	tests := []struct {
		name   string
		bounds kernel.Box
		status Status
	}{
		{"cube", kernel.Box{Max: kernel.Vec3{X: 10, Y: 10, Z: 10}}, StatusOK},
		{"plate", kernel.Box{Max: kernel.Vec3{X: 20, Y: 20, Z: 0.3}}, StatusWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckLocalThickness(field, tt.bounds, 0.8)
			if res.Status != tt.status {
				t.Errorf("status = %v, want %v", res.Status, tt.status)
			}
			if !res.Metrics.Fallback || res.Metrics.Count != 0 {
				t.Errorf("metrics = %+v, want fallback with count 0", res.Metrics)
			}
			if *res.Metrics.Min != tt.bounds.MinDimension() {
				t.Errorf("min = %v, want %v", *res.Metrics.Min, tt.bounds.MinDimension())
			}
			for i, b := range res.VertexMask {
				if b {
					t.Errorf("vertex %d flagged in fallback", i)
				}
			}
		})
	}
}

func TestCheckGlobalThickness(t *testing.T) {
	tests := []struct {
		name   string
		bounds kernel.Box
		status Status
	}{
		{"cube", kernel.Box{Max: kernel.Vec3{X: 10, Y: 10, Z: 10}}, StatusOK},
		{"plate", kernel.Box{Max: kernel.Vec3{X: 20, Y: 20, Z: 0.3}}, StatusWarning},
		{"boundary", kernel.Box{Max: kernel.Vec3{X: 1, Y: 1, Z: 0.5}}, StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckGlobalThickness(tt.bounds, 0.5)
			if res.Status != tt.status {
				t.Errorf("status = %v, want %v (%s)", res.Status, tt.status, res.Message)
			}
		})
	}
}

func TestThicknessFieldStats(t *testing.T) {
	f := append(defined(3, 1, 2, 10), Thickness{}, Thickness{})
	if v, ok := f.Min(); !ok || v != 1 {
		t.Errorf("Min = %v, %v", v, ok)
	}
	if v, ok := f.Max(); !ok || v != 10 {
		t.Errorf("Max = %v, %v", v, ok)
	}
	if v, ok := f.Median(); !ok || v != 2.5 {
		t.Errorf("Median = %v, %v, want 2.5", v, ok)
	}
	if v, ok := defined(5, 1, 3).Median(); !ok || v != 3 {
		t.Errorf("odd Median = %v, %v, want 3", v, ok)
	}
	if got := f.Finite(); len(got) != 4 || got[0] != 3 {
		t.Errorf("Finite = %v, want vertex order", got)
	}

	var empty ThicknessField
	if _, ok := empty.Min(); ok {
		t.Error("Min of empty field should be undefined")
	}
	if _, ok := empty.Median(); ok {
		t.Error("Median of empty field should be undefined")
	}
}

func TestThicknessJSON(t *testing.T) {
	f := ThicknessField{{Value: 1.5, Defined: true}, {}}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[1.5,null]" {
		t.Errorf("json = %s", b)
	}
	var back ThicknessField
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back[0] != f[0] || back[1] != f[1] {
		t.Errorf("round trip = %+v", back)
	}
}
