// Package dfm analyzes a triangle mesh for injection-molding and 3D-printing
// manufacturability defects: thin walls, sharp corners, missing draft,
// undercuts and over-thick rib/boss regions.
//
// Analyze is a pure function: it borrows an immutable kernel.Mesh, runs
// every check over one set of precomputed geometry and returns a fresh
// Report. Structural defects in the mesh are returned as errors before any
// check runs; per-element degeneracies are absorbed and never abort a check.
package dfm
