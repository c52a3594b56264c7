// Package config resolves analysis settings from defaults, a threshold
// profile file, the environment (optionally seeded from .env files) and
// explicit overrides, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/chazu/moldcheck/pkg/dfm"
	"github.com/chazu/moldcheck/pkg/engine"
	"github.com/chazu/moldcheck/pkg/kernel"
)

// Environment variable names.
const (
	EnvMinGlobalThickness = "MOLDCHECK_MIN_GLOBAL_THICKNESS"
	EnvMinLocalThickness  = "MOLDCHECK_MIN_LOCAL_THICKNESS"
	EnvSharpAngle         = "MOLDCHECK_SHARP_ANGLE_DEG"
	EnvMinDraft           = "MOLDCHECK_MIN_DRAFT_DEG"
	EnvUndercutAngle      = "MOLDCHECK_UNDERCUT_ANGLE_DEG"
	EnvRibBossFactor      = "MOLDCHECK_RIB_BOSS_FACTOR"
	EnvNominalWall        = "MOLDCHECK_NOMINAL_WALL"
	EnvPullDirection      = "MOLDCHECK_PULL_DIRECTION"
	EnvNeighbors          = "MOLDCHECK_NEIGHBORS"
	EnvTimeout            = "MOLDCHECK_TIMEOUT"
	EnvProfileFile        = "MOLDCHECK_PROFILE_FILE"
	EnvProfile            = "MOLDCHECK_PROFILE"
)

// DefaultTimeout bounds one analysis.
const DefaultTimeout = 2 * time.Minute

// Config is the resolved configuration.
type Config struct {
	Thresholds  dfm.Thresholds
	Timeout     time.Duration
	ProfileFile string // empty when no profile file was used
	Profile     string // selected profile name, empty when none
}

// Overrides are explicit settings, typically from command-line flags.
// Nil fields leave the lower-precedence value in place.
type Overrides struct {
	MinGlobalThickness *float64
	MinLocalThickness  *float64
	SharpAngleDeg      *float64
	MinDraftAngleDeg   *float64
	UndercutAngleDeg   *float64
	RibBossFactor      *float64
	NominalWall        *float64
	PullDirection      *kernel.Vec3
	Neighbors          *int
	Timeout            *time.Duration
	ProfileFile        *string
	Profile            *string
}

// LoadOptions controls Load. The zero value reads ./.env if present and the
// process environment.
type LoadOptions struct {
	// EnvFiles are read with godotenv. Nil means ".env", ignored when
	// missing; an explicit list must exist.
	EnvFiles []string
	// Getenv replaces os.Getenv. Values it returns win over .env files.
	Getenv func(string) string
	// ReadFile replaces os.ReadFile for the profile file.
	ReadFile  func(string) ([]byte, error)
	Engine    *engine.Engine
	Overrides Overrides
	Logger    *log.Logger
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	env, err := newEnv(opts)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Thresholds: dfm.DefaultThresholds(), Timeout: DefaultTimeout}

	cfg.ProfileFile = env.get(EnvProfileFile)
	if opts.Overrides.ProfileFile != nil {
		cfg.ProfileFile = *opts.Overrides.ProfileFile
	}
	cfg.Profile = env.get(EnvProfile)
	if opts.Overrides.Profile != nil {
		cfg.Profile = *opts.Overrides.Profile
	}
	if cfg.ProfileFile != "" {
		th, name, err := loadProfile(opts, cfg.ProfileFile, cfg.Profile)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds, cfg.Profile = th, name
		logger.Printf("config: using profile %q from %s", name, cfg.ProfileFile)
	} else if cfg.Profile != "" {
		return nil, fmt.Errorf("config: profile %q requested without a profile file", cfg.Profile)
	}

	if err := env.apply(cfg); err != nil {
		return nil, err
	}
	opts.Overrides.apply(cfg)

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("config: timeout must not be negative, got %s", cfg.Timeout)
	}
	return cfg, nil
}

func loadProfile(opts LoadOptions, path, name string) (dfm.Thresholds, string, error) {
	read := opts.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	src, err := read(path)
	if err != nil {
		return dfm.Thresholds{}, "", fmt.Errorf("config: profile file: %w", err)
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.NewEngine()
	}
	ps, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return dfm.Thresholds{}, "", fmt.Errorf("config: profile file %s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return dfm.Thresholds{}, "", fmt.Errorf("config: profile file %s: %s", path, strings.Join(msgs, "; "))
	}
	if ps.Len() == 0 {
		return dfm.Thresholds{}, "", fmt.Errorf("config: profile file %s defines no profiles", path)
	}
	th, err := ps.Select(name)
	if err != nil {
		return dfm.Thresholds{}, "", fmt.Errorf("config: profile file %s: %w", path, err)
	}
	if name == "" {
		name = ps.Active()
	}
	return th, name, nil
}

// env looks variables up in the process environment, then in .env files.
type env struct {
	getenv func(string) string
	dotenv map[string]string
}

func newEnv(opts LoadOptions) (*env, error) {
	e := &env{getenv: opts.Getenv, dotenv: map[string]string{}}
	if e.getenv == nil {
		e.getenv = os.Getenv
	}
	files, optional := opts.EnvFiles, false
	if files == nil {
		files, optional = []string{".env"}, true
	}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: env file %s: %w", f, err)
		}
		for k, v := range vals {
			// Earlier files win, as with godotenv.Load.
			if _, ok := e.dotenv[k]; !ok {
				e.dotenv[k] = v
			}
		}
	}
	return e, nil
}

func (e *env) get(key string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(e.dotenv[key])
}

func (e *env) float(key string, dst *float64) error {
	raw := e.get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = v
	return nil
}

func (e *env) apply(cfg *Config) error {
	th := &cfg.Thresholds
	floats := []struct {
		key string
		dst *float64
	}{
		{EnvMinGlobalThickness, &th.MinGlobalThickness},
		{EnvMinLocalThickness, &th.MinLocalThickness},
		{EnvSharpAngle, &th.SharpAngleDeg},
		{EnvMinDraft, &th.MinDraftAngleDeg},
		{EnvUndercutAngle, &th.UndercutAngleDeg},
		{EnvRibBossFactor, &th.RibBossFactor},
	}
	for _, f := range floats {
		if err := e.float(f.key, f.dst); err != nil {
			return err
		}
	}
	if raw := e.get(EnvNominalWall); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvNominalWall, err)
		}
		th.NominalWall = &v
	}
	if raw := e.get(EnvPullDirection); raw != "" {
		v, err := ParseVec3(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvPullDirection, err)
		}
		th.PullDirection = v
	}
	if raw := e.get(EnvNeighbors); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvNeighbors, err)
		}
		th.Neighbors = n
	}
	if raw := e.get(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	return nil
}

func (o Overrides) apply(cfg *Config) {
	th := &cfg.Thresholds
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&th.MinGlobalThickness, o.MinGlobalThickness)
	set(&th.MinLocalThickness, o.MinLocalThickness)
	set(&th.SharpAngleDeg, o.SharpAngleDeg)
	set(&th.MinDraftAngleDeg, o.MinDraftAngleDeg)
	set(&th.UndercutAngleDeg, o.UndercutAngleDeg)
	set(&th.RibBossFactor, o.RibBossFactor)
	if o.NominalWall != nil {
		v := *o.NominalWall
		th.NominalWall = &v
	}
	if o.PullDirection != nil {
		th.PullDirection = *o.PullDirection
	}
	if o.Neighbors != nil {
		th.Neighbors = *o.Neighbors
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
}

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (kernel.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return kernel.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var c [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return kernel.Vec3{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		c[i] = v
	}
	return kernel.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}
