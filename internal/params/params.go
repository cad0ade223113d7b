// Package params resolves dijitso's three parameter categories —
// cache, build, and generator — by deep-merging compiled-in defaults,
// an optional INI config file, and caller-supplied overrides, with
// type coercion and key validation along the way.
package params

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// Value is the dynamically-typed value of a single parameter. It
// mirrors the handful of shapes dijitso.conf and caller overrides can
// take: bool, string, tuple-of-strings. There is no int/float knob in
// the default param set, but coerceToShape coerces to whatever shape
// the corresponding default carries.
type Value struct {
	Bool    *bool
	String  *string
	Strings []string
}

// Category is a flat string-keyed parameter map for one of "cache",
// "build", or "generator".
type Category map[string]Value

// Set is the fully resolved three-category parameter set passed to
// the rest of dijitso.
type Set struct {
	Cache     Category
	Build     Category
	Generator Category
}

func boolVal(b bool) Value             { return Value{Bool: &b} }
func strVal(s string) Value            { return Value{String: &s} }
func tupleVal(ss ...string) Value      { return Value{Strings: append([]string{}, ss...)} }
func (v Value) isString() bool         { return v.String != nil }
func (v Value) isBool() bool           { return v.Bool != nil }
func (v Value) isTuple() bool          { return v.Strings != nil }
func (c Category) clone() Category {
	out := make(Category, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DefaultCacheParams returns dijitso's compiled-in cache defaults.
func DefaultCacheParams() Category {
	return Category{
		"cache_dir":   strVal("~/.cache/dijitso"),
		"inc_dir":     strVal("inc"),
		"src_dir":     strVal("src"),
		"lib_dir":     strVal("lib"),
		"comm_dir":    strVal("comm"),
		"log_dir":     strVal("log"),
		"src_storage": strVal("keep"),
		"src_postfix": strVal(".cpp"),
		"log_postfix": strVal(".txt"),
		"inc_postfix": strVal(".h"),
		"lib_postfix": strVal(".so"),
		"lib_prefix":  strVal("libdijitso-"),
	}
}

// DefaultCxxFlags returns the always-applied compile flags.
func DefaultCxxFlags() []string {
	return []string{"-shared", "-fPIC", "-fvisibility=hidden", "-std=c++11"}
}

// DefaultCxxDebugFlags returns the debug-only compile flags.
func DefaultCxxDebugFlags() []string {
	return []string{"-g", "-O0"}
}

// DefaultCxxReleaseFlags returns the release-only compile flags.
func DefaultCxxReleaseFlags() []string {
	return []string{"-O3", "-fno-math-errno", "-fno-trapping-math", "-ffinite-math-only"}
}

// DefaultBuildParams returns dijitso's compiled-in build defaults.
func DefaultBuildParams() Category {
	return Category{
		"cxx":            strVal("g++"),
		"cxxflags":       tupleVal(DefaultCxxFlags()...),
		"cxxflags_debug": tupleVal(DefaultCxxDebugFlags()...),
		"cxxflags_opt":   tupleVal(DefaultCxxReleaseFlags()...),
		"include_dirs":   tupleVal(),
		"lib_dirs":       tupleVal(),
		"rpath_dirs":     tupleVal(),
		"libs":           tupleVal(),
		"debug":          boolVal(false),
	}
}

// DefaultParams returns the fully populated default parameter set.
// The generator category is intentionally empty: it is free-form and
// only ever hashed, never validated against a schema.
func DefaultParams() Set {
	return Set{
		Cache:     DefaultCacheParams(),
		Build:     DefaultBuildParams(),
		Generator: Category{},
	}
}

var (
	sessionOnce    sync.Once
	sessionDefault Set
	sessionErr     error
)

// SessionDefaults returns a memoized, fully-validated default
// parameter set for the duration of the process, mirroring the
// original implementation's session_default_params. Each call returns
// an independent copy safe for the caller to mutate.
func SessionDefaults() (Set, error) {
	sessionOnce.Do(func() {
		sessionDefault, sessionErr = Validate(nil)
	})
	if sessionErr != nil {
		return Set{}, sessionErr
	}
	return sessionDefault.Clone(), nil
}

// Clone copies each category map of a Set, so callers may add, replace
// or delete entries in their copy; the pointers and slices inside each
// Value are shared with the original.
func (s Set) Clone() Set {
	return Set{
		Cache:     s.Cache.clone(),
		Build:     s.Build.clone(),
		Generator: s.Generator.clone(),
	}
}

// mergeKnown overlays override entries onto base, rejecting unknown
// keys (base defines the known key set) and coercing any raw-string
// override value (as produced by the INI reader, which doesn't know
// the target shape) to the type the corresponding default carries.
func mergeKnown(category string, base Category, override Category) (Category, error) {
	out := base.clone()
	for k, v := range override {
		def, ok := base[k]
		if !ok {
			return nil, xerrors.Errorf("params: invalid parameter name %q in category %q", k, category)
		}
		coerced, err := coerceToShape(def, v)
		if err != nil {
			return nil, xerrors.Errorf("params: %s.%s: %w", category, k, err)
		}
		out[k] = coerced
	}
	return out, nil
}

// coerceToShape converts incoming to the shape def carries. incoming
// values that are not plain strings (i.e. already bool- or
// tuple-shaped, as runtime overrides typically are) pass through
// unchanged.
func coerceToShape(def, incoming Value) (Value, error) {
	if !incoming.isString() {
		return incoming, nil
	}
	raw := *incoming.String
	switch {
	case def.isBool():
		b, err := AsBool(raw)
		if err != nil {
			return Value{}, err
		}
		return boolVal(b), nil
	case def.isTuple():
		return Value{Strings: AsStrTuple(raw)}, nil
	default:
		return incoming, nil
	}
}

// Validate starts from DefaultParams, deep-merges the discovered
// config file, deep-merges overrides, coerces string-typed override
// values to the default's shape, expands "~" in *_dir keys, and
// applies the INSTANT_CACHE_DIR environment override last. Unknown
// category or key names outside "generator" are fatal.
func Validate(overrides *Set) (Set, error) {
	p := DefaultParams()

	cfg, err := ReadConfigFile()
	if err != nil {
		return Set{}, err
	}
	if cfg != nil {
		if p.Cache, err = mergeKnown("cache", p.Cache, cfg.Cache); err != nil {
			return Set{}, err
		}
		if p.Build, err = mergeKnown("build", p.Build, cfg.Build); err != nil {
			return Set{}, err
		}
		for k, v := range cfg.Generator {
			p.Generator[k] = v
		}
	}

	if overrides != nil {
		if p.Cache, err = mergeKnown("cache", p.Cache, overrides.Cache); err != nil {
			return Set{}, err
		}
		if p.Build, err = mergeKnown("build", p.Build, overrides.Build); err != nil {
			return Set{}, err
		}
		for k, v := range overrides.Generator {
			p.Generator[k] = v
		}
	}

	if err := coerceCategory(p.Cache); err != nil {
		return Set{}, err
	}
	if err := coerceCategory(p.Build); err != nil {
		return Set{}, err
	}

	if dir := os.Getenv("INSTANT_CACHE_DIR"); dir != "" {
		p.Cache["cache_dir"] = strVal(filepath.Join(dir, "dijitso"))
	}

	return p, nil
}

// coerceCategory expands "~" in directory-ish string values in place.
// Bool and tuple coercion of raw strings happens earlier, in
// mergeKnown's call to coerceToShape; by the time values reach here
// they already carry the right Go shape, except for path expansion
// which must run after every merge so caller overrides get it too.
func coerceCategory(c Category) error {
	for k, v := range c {
		if v.isString() && strings.HasSuffix(k, "_dir") && strings.Contains(*v.String, "~") {
			expanded, err := expandHome(*v.String)
			if err != nil {
				return xerrors.Errorf("params: expand %q: %w", k, err)
			}
			c[k] = strVal(expanded)
		}
	}
	return nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}

// AsBool coerces an INI-style boolean string.
func AsBool(raw string) (bool, error) {
	switch raw {
	case "true", "True", "1":
		return true, nil
	case "false", "False", "0":
		return false, nil
	default:
		return false, xerrors.Errorf("params: invalid boolean value %q", raw)
	}
}

// AsStrTuple coerces a raw config/override value into a tuple of
// strings. A comma-separated string becomes a multi-element tuple
// (the natural way to spell a list in an INI scalar); a bare string
// becomes a one-element tuple.
func AsStrTuple(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// String returns a category's string-typed value, or "" if the key is
// absent or not string-typed.
func (c Category) String(key string) string {
	if v, ok := c[key]; ok && v.isString() {
		return *v.String
	}
	return ""
}

// Bool returns a category's bool-typed value.
func (c Category) Bool(key string) bool {
	if v, ok := c[key]; ok && v.isBool() {
		return *v.Bool
	}
	return false
}

// Tuple returns a category's tuple-typed value.
func (c Category) Tuple(key string) []string {
	if v, ok := c[key]; ok {
		return v.Strings
	}
	return nil
}

// ParseInt parses a value that is either a bare int or the empty
// string, returning def for the empty string.
func ParseInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
