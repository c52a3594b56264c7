package dfm

import (
	"math"

	"github.com/chazu/moldcheck/pkg/kernel"
)

// Default threshold values, in model units and degrees.
const (
	DefaultMinGlobalThickness = 0.5
	DefaultMinLocalThickness  = 0.8
	DefaultSharpAngleDeg      = 60.0
	DefaultMinDraftAngleDeg   = 2.0
	DefaultUndercutAngleDeg   = 90.0
	DefaultRibBossFactor      = 1.5

	// DefaultNeighbors is k in the k-nearest-neighbor thickness search.
	DefaultNeighbors = 32
)

// DefaultPullDirection is +Z.
var DefaultPullDirection = kernel.Vec3{X: 0, Y: 0, Z: 1}

// Thresholds configures one analysis pass. Analyze never mutates it.
type Thresholds struct {
	MinGlobalThickness float64     `json:"min_global_thickness"`
	MinLocalThickness  float64     `json:"min_local_thickness"`
	SharpAngleDeg      float64     `json:"sharp_angle_threshold_deg"`
	MinDraftAngleDeg   float64     `json:"min_draft_angle_deg"`
	UndercutAngleDeg   float64     `json:"undercut_angle_threshold_deg"`
	RibBossFactor      float64     `json:"rib_boss_factor"`
	NominalWall        *float64    `json:"nominal_wall,omitempty"` // nil: median of local thickness
	PullDirection      kernel.Vec3 `json:"pull_direction"`
	Neighbors          int         `json:"neighbors"`
}

// DefaultThresholds returns the default configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinGlobalThickness: DefaultMinGlobalThickness,
		MinLocalThickness:  DefaultMinLocalThickness,
		SharpAngleDeg:      DefaultSharpAngleDeg,
		MinDraftAngleDeg:   DefaultMinDraftAngleDeg,
		UndercutAngleDeg:   DefaultUndercutAngleDeg,
		RibBossFactor:      DefaultRibBossFactor,
		PullDirection:      DefaultPullDirection,
		Neighbors:          DefaultNeighbors,
	}
}

// Validate rejects thresholds that would make a check meaningless.
// A zero pull direction is allowed and means +Z.
func (t Thresholds) Validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"min_global_thickness", t.MinGlobalThickness},
		{"min_local_thickness", t.MinLocalThickness},
		{"sharp_angle_threshold_deg", t.SharpAngleDeg},
		{"min_draft_angle_deg", t.MinDraftAngleDeg},
		{"undercut_angle_threshold_deg", t.UndercutAngleDeg},
		{"rib_boss_factor", t.RibBossFactor},
	}
	for _, o := range nonNegative {
		if math.IsNaN(o.v) || math.IsInf(o.v, 0) || o.v < 0 {
			return thresholdError(o.name, "must be a finite non-negative number, got %v", o.v)
		}
	}
	for _, o := range nonNegative[2:5] {
		if o.v > 180 {
			return thresholdError(o.name, "must be at most 180 degrees, got %v", o.v)
		}
	}
	if t.NominalWall != nil {
		nw := *t.NominalWall
		if math.IsNaN(nw) || math.IsInf(nw, 0) || nw <= 0 {
			return thresholdError("nominal_wall", "must be a finite positive number, got %v", nw)
		}
	}
	if !t.PullDirection.IsFinite() {
		return thresholdError("pull_direction", "must be finite, got %v", t.PullDirection)
	}
	if t.Neighbors < 0 {
		return thresholdError("neighbors", "must not be negative, got %d", t.Neighbors)
	}
	return nil
}

// Normalized returns a copy with a unit pull direction (zero becomes +Z)
// and a positive neighbor count.
func (t Thresholds) Normalized() Thresholds {
	out := t
	out.PullDirection = t.PullDirection.Normalize()
	if out.PullDirection.IsZero() {
		out.PullDirection = DefaultPullDirection
	}
	if out.Neighbors <= 0 {
		out.Neighbors = DefaultNeighbors
	}
	if t.NominalWall != nil {
		nw := *t.NominalWall
		out.NominalWall = &nw
	}
	return out
}
