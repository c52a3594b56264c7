package engine

import (
	"fmt"
	"sort"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/moldcheck/pkg/dfm"
	"github.com/chazu/moldcheck/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites profile source into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbol registration.
//  2. kebab-case identifiers become snake_case (use-profile -> use_profile),
//     since zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == '"':
			end := scanQuoted(source, i, '"', true)
			out.WriteString(source[i:end])
			i = end
		case c == '`':
			end := scanQuoted(source, i, '`', false)
			out.WriteString(source[i:end])
			i = end
		case c == ';':
			out.WriteString("//")
			for i < len(source) && source[i] == ';' {
				i++
			}
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				end = len(source) - i
			}
			out.WriteString(source[i : i+end])
			i += end
		case c == ':' && i+1 < len(source) && isLetter(source[i+1]):
			j := i + 1
			for j < len(source) && isKWChar(source[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + source[i+1:j] + `"`)
			i = j
		case c == '-' && i > 0 && i+1 < len(source) &&
			isIdentChar(source[i-1]) && isLetter(source[i+1]):
			out.WriteByte('_')
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// scanQuoted returns the index just past the literal that opens at start.
func scanQuoted(s string, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(s) && s[i] != quote {
		if escapes && s[i] == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		i++
	}
	if i < len(s) {
		i++
	}
	return min(i, len(s))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpThresholds struct {
	th dfm.Thresholds
}

func (t *sexpThresholds) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(thresholds :min-local-thickness %g :min-draft %g :undercut-angle %g)",
		t.th.MinLocalThickness, t.th.MinDraftAngleDeg, t.th.UndercutAngleDeg)
}
func (t *sexpThresholds) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toThresholds(s zygo.Sexp) (dfm.Thresholds, error) {
	if t, ok := s.(*sexpThresholds); ok {
		return t.th, nil
	}
	return dfm.Thresholds{}, fmt.Errorf("expected thresholds, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Threshold keywords
// ---------------------------------------------------------------------------

type keySetter func(th *dfm.Thresholds, v zygo.Sexp) error

func floatKey(field func(*dfm.Thresholds) *float64) keySetter {
	return func(th *dfm.Thresholds, v zygo.Sexp) error {
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		*field(th) = f
		return nil
	}
}

var thresholdKeys = map[string]keySetter{
	"min-global-thickness": floatKey(func(th *dfm.Thresholds) *float64 { return &th.MinGlobalThickness }),
	"min-local-thickness":  floatKey(func(th *dfm.Thresholds) *float64 { return &th.MinLocalThickness }),
	"sharp-angle":          floatKey(func(th *dfm.Thresholds) *float64 { return &th.SharpAngleDeg }),
	"min-draft":            floatKey(func(th *dfm.Thresholds) *float64 { return &th.MinDraftAngleDeg }),
	"undercut-angle":       floatKey(func(th *dfm.Thresholds) *float64 { return &th.UndercutAngleDeg }),
	"rib-boss-factor":      floatKey(func(th *dfm.Thresholds) *float64 { return &th.RibBossFactor }),
	"nominal-wall": func(th *dfm.Thresholds, v zygo.Sexp) error {
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		th.NominalWall = &f
		return nil
	},
	"pull": func(th *dfm.Thresholds, v zygo.Sexp) error {
		vec, err := toVec3(v)
		if err != nil {
			return err
		}
		th.PullDirection = vec
		return nil
	},
	"neighbors": func(th *dfm.Thresholds, v zygo.Sexp) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		th.Neighbors = n
		return nil
	},
}

// ThresholdKeys lists the keywords accepted by (thresholds ...).
func ThresholdKeys() []string {
	keys := make([]string, 0, len(thresholdKeys)+1)
	for k := range thresholdKeys {
		keys = append(keys, k)
	}
	keys = append(keys, "base")
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func registerBuiltins(env *zygo.Zlisp, ps *ProfileSet) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: kernel.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (thresholds :base "abs" :min-draft 1 ...) starts from the defaults, or
	// from a previously defined profile when :base is given.
	env.AddFunction("thresholds", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("thresholds: unexpected positional argument %s", pa.positional[0].SexpString(nil))
		}

		th := dfm.DefaultThresholds()
		if v, ok := pa.kw["base"]; ok {
			base, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("thresholds: base: %w", err)
			}
			th, ok = ps.Get(base)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("thresholds: base: no profile named %q", base)
			}
		}

		keys := make([]string, 0, len(pa.kw))
		for k := range pa.kw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "base" {
				continue
			}
			set, ok := thresholdKeys[k]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("thresholds: unknown keyword :%s (expected one of %v)", k, ThresholdKeys())
			}
			if err := set(&th, pa.kw[k]); err != nil {
				return zygo.SexpNull, fmt.Errorf("thresholds: %s: %w", k, err)
			}
		}
		if err := th.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("thresholds: %w", err)
		}
		return &sexpThresholds{th: th}, nil
	})

	// (defprofile "name" (thresholds ...))
	env.AddFunction("defprofile", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defprofile requires a name and a thresholds expression")
		}
		profile, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defprofile: name: %w", err)
		}
		th, err := toThresholds(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defprofile: %w", err)
		}
		if err := ps.Define(profile, th); err != nil {
			return zygo.SexpNull, fmt.Errorf("defprofile: %w", err)
		}
		return args[1], nil
	})

	// (profile "name") returns a defined profile's thresholds.
	env.AddFunction("profile", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("profile requires a name argument")
		}
		profile, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("profile: name: %w", err)
		}
		th, ok := ps.Get(profile)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("profile: no profile named %q", profile)
		}
		return &sexpThresholds{th: th}, nil
	})

	// (use-profile "name")
	env.AddFunction("use_profile", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("use-profile requires a name argument")
		}
		profile, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("use-profile: name: %w", err)
		}
		if err := ps.Use(profile); err != nil {
			return zygo.SexpNull, fmt.Errorf("use-profile: %w", err)
		}
		return zygo.SexpNull, nil
	})
}
