// Command moldcheck analyzes STL parts for molding and printing defects.
//
//	moldcheck [flags] part.stl [more.stl ...]
//	moldcheck --sample rib [--out rib.stl]
//
// Exit status is 0 when no check warns, 1 when any check warns and 2 on
// errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/chazu/moldcheck/pkg/config"
	"github.com/chazu/moldcheck/pkg/dfm"
	"github.com/chazu/moldcheck/pkg/kernel"
	"github.com/chazu/moldcheck/pkg/kernel/sdfx"
	"github.com/chazu/moldcheck/pkg/report"
	"github.com/chazu/moldcheck/pkg/stl"
)

const (
	exitOK      = 0
	exitWarning = 1
	exitError   = 2
)

type params struct {
	minGlobal, minLocal float64
	sharpAngle          float64
	minDraft            float64
	undercutAngle       float64
	ribBossFactor       float64
	nominalWall         float64
	pull                string
	neighbors           int
	timeout             time.Duration

	profileFile string
	profile     string
	envFiles    []string

	json  bool
	masks bool

	sample string
	out    string
	cells  int
}

func newFlagSet(p *params) *pflag.FlagSet {
	fs := pflag.NewFlagSet("moldcheck", pflag.ContinueOnError)
	fs.Float64Var(&p.minGlobal, "min-global-thickness", dfm.DefaultMinGlobalThickness, "Minimum smallest part dimension")
	fs.Float64Var(&p.minLocal, "min-local-thickness", dfm.DefaultMinLocalThickness, "Minimum local wall thickness")
	fs.Float64Var(&p.sharpAngle, "sharp-angle", dfm.DefaultSharpAngleDeg, "Dihedral angle (degrees) above which an edge is sharp")
	fs.Float64Var(&p.minDraft, "min-draft", dfm.DefaultMinDraftAngleDeg, "Minimum draft angle (degrees)")
	fs.Float64Var(&p.undercutAngle, "undercut-angle", dfm.DefaultUndercutAngleDeg, "Angle from the pull direction (degrees) beyond which a face is an undercut")
	fs.Float64Var(&p.ribBossFactor, "rib-boss-factor", dfm.DefaultRibBossFactor, "Multiple of nominal wall above which a region is over-thick")
	fs.Float64Var(&p.nominalWall, "nominal-wall", 0, "Nominal wall thickness (default: median local thickness)")
	fs.StringVar(&p.pull, "pull", "0,0,1", "Mold pull direction as x,y,z")
	fs.IntVar(&p.neighbors, "neighbors", dfm.DefaultNeighbors, "Neighbors searched per vertex for thickness")
	fs.DurationVar(&p.timeout, "timeout", config.DefaultTimeout, "Analysis time limit per part")
	fs.StringVar(&p.profileFile, "profile-file", "", "Threshold profile file")
	fs.StringVar(&p.profile, "profile", "", "Profile to use from the profile file")
	fs.StringSliceVar(&p.envFiles, "env-file", nil, "Environment files to read (default: .env if present)")
	fs.BoolVarP(&p.json, "json", "j", false, "Write JSON instead of text")
	fs.BoolVar(&p.masks, "masks", false, "Include per-element masks and thickness in JSON output")
	fs.StringVarP(&p.sample, "sample", "s", "", "Analyze a generated sample part ("+strings.Join(kernel.SampleNames(), ", ")+")")
	fs.StringVarP(&p.out, "out", "o", "", "Write the sample part to this STL file")
	fs.IntVar(&p.cells, "cells", sdfx.DefaultMeshCells, "Marching cubes resolution for sample parts")
	return fs
}

// overrides converts explicitly set flags into config overrides.
func overrides(fs *pflag.FlagSet, p *params) (config.Overrides, error) {
	var o config.Overrides
	floats := []struct {
		name string
		src  *float64
		dst  **float64
	}{
		{"min-global-thickness", &p.minGlobal, &o.MinGlobalThickness},
		{"min-local-thickness", &p.minLocal, &o.MinLocalThickness},
		{"sharp-angle", &p.sharpAngle, &o.SharpAngleDeg},
		{"min-draft", &p.minDraft, &o.MinDraftAngleDeg},
		{"undercut-angle", &p.undercutAngle, &o.UndercutAngleDeg},
		{"rib-boss-factor", &p.ribBossFactor, &o.RibBossFactor},
		{"nominal-wall", &p.nominalWall, &o.NominalWall},
	}
	for _, f := range floats {
		if fs.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if fs.Changed("pull") {
		v, err := config.ParseVec3(p.pull)
		if err != nil {
			return o, fmt.Errorf("--pull: %w", err)
		}
		o.PullDirection = &v
	}
	if fs.Changed("neighbors") {
		o.Neighbors = &p.neighbors
	}
	if fs.Changed("timeout") {
		o.Timeout = &p.timeout
	}
	if fs.Changed("profile-file") {
		o.ProfileFile = &p.profileFile
	}
	if fs.Changed("profile") {
		o.Profile = &p.profile
	}
	return o, nil
}

// part is a generated mesh or an STL path read when its turn comes.
type part struct {
	name string
	mesh *kernel.Mesh
}

func (pt part) load() (*kernel.Mesh, error) {
	if pt.mesh != nil {
		return pt.mesh, nil
	}
	return stl.ReadFile(pt.name)
}

func collectParts(p *params, args []string, logger *log.Logger) ([]part, error) {
	if p.sample != "" {
		if len(args) > 0 {
			return nil, errors.New("--sample does not take STL arguments")
		}
		m, err := kernel.Sample(sdfx.New(sdfx.WithCells(p.cells)), p.sample)
		if err != nil {
			return nil, err
		}
		if p.out != "" {
			if err := writeSTL(p.out, m); err != nil {
				return nil, err
			}
			logger.Printf("wrote %s (%d triangles)", p.out, m.TriangleCount())
		}
		return []part{{name: m.PartName, mesh: m}}, nil
	}
	if p.out != "" {
		return nil, errors.New("--out requires --sample")
	}
	if len(args) == 0 {
		return nil, errors.New("no STL file given")
	}
	parts := make([]part, 0, len(args))
	for _, path := range args {
		parts = append(parts, part{name: path})
	}
	return parts, nil
}

func writeSTL(path string, m *kernel.Mesh) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return stl.Encode(f, m)
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "moldcheck: ", 0)

	var p params
	fs := newFlagSet(&p)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		logger.Printf("%v", err)
		return exitError
	}

	o, err := overrides(fs, &p)
	if err != nil {
		logger.Printf("%v", err)
		return exitError
	}
	cfg, err := config.Load(config.LoadOptions{
		EnvFiles:  p.envFiles,
		Overrides: o,
		Logger:    logger,
	})
	if err != nil {
		logger.Printf("%v", err)
		return exitError
	}

	parts, err := collectParts(&p, fs.Args(), logger)
	if err != nil {
		logger.Printf("%v", err)
		return exitError
	}

	analyzer, err := dfm.NewAnalyzer(dfm.WithCacheSize(max(1, len(parts))))
	if err != nil {
		logger.Printf("%v", err)
		return exitError
	}

	code := exitOK
	written := 0
	for _, pt := range parts {
		m, err := pt.load()
		if err != nil {
			logger.Printf("%v", err)
			code = exitError
			continue
		}
		r, err := analyze(analyzer, m, cfg)
		if err != nil {
			logger.Printf("%s: %v", pt.name, err)
			code = exitError
			continue
		}
		if p.json {
			err = report.WriteJSON(stdout, r, report.Options{IncludeMasks: p.masks})
		} else {
			if written > 0 {
				fmt.Fprintln(stdout)
			}
			err = report.WriteText(stdout, r)
		}
		if err != nil {
			logger.Printf("%s: %v", pt.name, err)
			return exitError
		}
		written++
		if !r.OK() && code == exitOK {
			code = exitWarning
		}
	}
	return code
}

func analyze(a *dfm.Analyzer, m *kernel.Mesh, cfg *config.Config) (*dfm.Report, error) {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return a.Analyze(ctx, m, cfg.Thresholds)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
