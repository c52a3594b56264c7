// Package report renders a dfm.Report as human-readable text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/moldcheck/pkg/dfm"
	"github.com/chazu/moldcheck/pkg/kernel"
)

// Options controls rendering.
type Options struct {
	// IncludeMasks keeps per-face and per-vertex masks and the thickness
	// field in JSON output. They are large, so they are dropped by default.
	IncludeMasks bool
	Indent       bool
}

// WriteText writes a multi-line summary of r.
func WriteText(w io.Writer, r *dfm.Report) error {
	var b strings.Builder
	if r.PartName != "" {
		fmt.Fprintf(&b, "Part:      %s\n", r.PartName)
	}
	fmt.Fprintf(&b, "Triangles: %d\n", r.Triangles)
	fmt.Fprintf(&b, "Vertices:  %d\n", r.Vertices)
	fmt.Fprintf(&b, "Bounds:    %s .. %s\n", vec(r.Bounds.Min), vec(r.Bounds.Max))
	fmt.Fprintf(&b, "Extents:   %.3f x %.3f x %.3f\n", r.Extents.X, r.Extents.Y, r.Extents.Z)
	fmt.Fprintf(&b, "Edges:     %d total, %d boundary, %d non-manifold\n",
		r.Edges.Total, r.Edges.Boundary, r.Edges.NonManifold)
	if !r.Edges.Closed() {
		b.WriteString("           mesh is not closed; corner results skip open edges\n")
	}
	b.WriteString("\n")

	width := lo.Max(lo.Map(r.Checks(), func(c dfm.CheckResult, _ int) int {
		return len(c.Status.String())
	}))
	for _, c := range r.Checks() {
		fmt.Fprintf(&b, "[%s]%s %s\n", c.Status, strings.Repeat(" ", width-len(c.Status.String())), c.Check.Title())
		for _, line := range strings.Split(strings.TrimSpace(c.Message), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	fmt.Fprintf(&b, "\nScore: %.1f / 100\n%s\n", r.Score, r.Summary)

	_, err := io.WriteString(w, b.String())
	return err
}

func vec(v kernel.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// WriteJSON encodes r as a single JSON document.
func WriteJSON(w io.Writer, r *dfm.Report, opts Options) error {
	out := *r
	if !opts.IncludeMasks {
		out.Thickness = nil
		out.GlobalThickness = stripMasks(r.GlobalThickness)
		out.LocalThickness = stripMasks(r.LocalThickness)
		out.SharpCorners = stripMasks(r.SharpCorners)
		out.Draft = stripMasks(r.Draft)
		out.Undercut = stripMasks(r.Undercut)
		out.RibBoss = stripMasks(r.RibBoss)
	}
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("report: json: %w", err)
	}
	return nil
}

func stripMasks(c dfm.CheckResult) dfm.CheckResult {
	c.FaceMask, c.VertexMask = nil, nil
	return c
}
