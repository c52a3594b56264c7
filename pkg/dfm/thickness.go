package dfm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// Thickness is a per-vertex wall thickness estimate. Defined is false when
// no estimate exists for the vertex.
type Thickness struct {
	Value   float64
	Defined bool
}

// MarshalJSON encodes an undefined thickness as null.
func (t Thickness) MarshalJSON() ([]byte, error) {
	if !t.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts a number or null.
func (t *Thickness) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Thickness{}
		return nil
	}
	if err := json.Unmarshal(b, &t.Value); err != nil {
		return err
	}
	t.Defined = true
	return nil
}

// ThicknessField holds one Thickness per vertex.
type ThicknessField []Thickness

// Finite returns the defined values in vertex order.
func (f ThicknessField) Finite() []float64 {
	out := make([]float64, 0, len(f))
	for _, t := range f {
		if t.Defined {
			out = append(out, t.Value)
		}
	}
	return out
}

// Min returns the smallest defined value.
func (f ThicknessField) Min() (float64, bool) {
	vals := f.Finite()
	if len(vals) == 0 {
		return 0, false
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Min(m, v)
	}
	return m, true
}

// Max returns the largest defined value.
func (f ThicknessField) Max() (float64, bool) {
	vals := f.Finite()
	if len(vals) == 0 {
		return 0, false
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Max(m, v)
	}
	return m, true
}

// Median returns the median of the defined values; with an even count it is
// the mean of the two middle values.
func (f ThicknessField) Median() (float64, bool) {
	vals := f.Finite()
	n := len(vals)
	if n == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	if n%2 == 1 {
		return vals[n/2], true
	}
	return (vals[n/2-1] + vals[n/2]) / 2, true
}

// cancelStride is how many vertices a worker processes between context checks.
const cancelStride = 1024

// EstimateThickness estimates the wall thickness at every vertex. For vertex
// i with normal n it queries the k nearest vertices and keeps the smallest
// strictly positive projection of (v_j - v_i) onto n. Only k-NN candidates
// are considered, so a wall opposite a dense region may be missed and the
// estimate is an upper bound on the true ray-cast thickness. On dense
// tessellations such as marching-cubes output the nearest candidates lie on
// the same surface, so estimates approach the vertex spacing rather than
// the wall.
func EstimateThickness(ctx context.Context, m *kernel.Mesh, normals []kernel.Vec3, idx *SpatialIndex, k int) (ThicknessField, error) {
	n := len(m.Vertices)
	if len(normals) != n {
		return nil, fmt.Errorf("dfm: thickness: %d normals for %d vertices", len(normals), n)
	}
	k = min(k, n)
	field := make(ThicknessField, n)
	err := parallelFor(ctx, n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if (i-lo)%cancelStride == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			normal := normals[i]
			if normal.IsZero() {
				continue
			}
			origin := m.Vertices[i]
			best := math.Inf(1)
			for _, j := range idx.Nearest(i, k) {
				if j == i {
					continue
				}
				proj := m.Vertices[j].Sub(origin).Dot(normal)
				if proj > 0 && proj < best {
					best = proj
				}
			}
			if !math.IsInf(best, 1) {
				field[i] = Thickness{Value: best, Defined: true}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dfm: thickness: %w", err)
	}
	return field, nil
}

// CheckLocalThickness flags vertices whose estimated thickness is below
// minThickness. When no vertex has a defined estimate the smallest bounding
// box dimension is reported instead, with nothing flagged.
func CheckLocalThickness(field ThicknessField, bounds kernel.Box, minThickness float64) CheckResult {
	res := CheckResult{
		Check:      KindLocalThickness,
		Metrics:    Metrics{Threshold: ptr(minThickness)},
		VertexMask: make([]bool, len(field)),
	}
	minVal, ok := field.Min()
	if !ok {
		approx := bounds.MinDimension()
		res.Metrics.Min = ptr(approx)
		res.Metrics.Fallback = true
		res.Status = StatusOK
		if approx < minThickness {
			res.Status = StatusWarning
		}
		res.Message = fmt.Sprintf("No local thickness estimate; bounding box minimum dimension is %.3f (threshold %.3f).", approx, minThickness)
		return res
	}
	for i, t := range field {
		if t.Defined && t.Value < minThickness {
			res.VertexMask[i] = true
			res.Metrics.Count++
		}
	}
	res.Metrics.Min = ptr(minVal)
	res.Status = statusFor(res.Metrics.Count)
	if res.Status == StatusWarning {
		res.Message = fmt.Sprintf("%d vertices below minimum local thickness %.3f (min %.3f).", res.Metrics.Count, minThickness, minVal)
	} else {
		res.Message = fmt.Sprintf("Minimum local thickness %.3f meets threshold %.3f.", minVal, minThickness)
	}
	return res
}

// CheckGlobalThickness compares the smallest bounding box dimension with
// minGlobal. It catches parts that are thin everywhere, such as sheets.
func CheckGlobalThickness(bounds kernel.Box, minGlobal float64) CheckResult {
	d := bounds.MinDimension()
	res := CheckResult{
		Check:   KindGlobalThickness,
		Metrics: Metrics{Min: ptr(d), Threshold: ptr(minGlobal)},
	}
	if d < minGlobal {
		res.Status = StatusWarning
		res.Metrics.Count = 1
		res.Message = fmt.Sprintf("Smallest part dimension %.3f is below minimum global thickness %.3f.", d, minGlobal)
		return res
	}
	res.Message = fmt.Sprintf("Smallest part dimension %.3f meets threshold %.3f.", d, minGlobal)
	return res
}
