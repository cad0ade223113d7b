// Package cache implements dijitso's two-tier (in-process + on-disk)
// cache: path construction, directory management, the in-memory
// loaded-library map, crash-safe textual stores via the lock-free
// move protocol, and the source retention policy.
package cache

import (
	"path/filepath"

	"github.com/miklos1/dijitso/internal/fsutil"
	"github.com/miklos1/dijitso/internal/params"
)

// Params bundles the resolved cache category together with the
// derived absolute subdirectory paths that every path/dir helper
// needs.
type Params struct {
	raw params.Category
}

// NewParams wraps a resolved cache parameter category.
func NewParams(raw params.Category) Params {
	return Params{raw: raw}
}

func (p Params) root() string      { return p.raw.String("cache_dir") }
func (p Params) incDir() string    { return p.raw.String("inc_dir") }
func (p Params) srcDir() string    { return p.raw.String("src_dir") }
func (p Params) libDir() string    { return p.raw.String("lib_dir") }
func (p Params) logDir() string    { return p.raw.String("log_dir") }
func (p Params) commDir() string   { return p.raw.String("comm_dir") }
func (p Params) incPostfix() string { return p.raw.String("inc_postfix") }
func (p Params) srcPostfix() string { return p.raw.String("src_postfix") }
func (p Params) logPostfix() string { return p.raw.String("log_postfix") }
func (p Params) libPostfix() string { return p.raw.String("lib_postfix") }
func (p Params) libPrefix() string  { return p.raw.String("lib_prefix") }

// SrcStorage is the retention policy applied to source files after a
// successful build.
type SrcStorage int

const (
	SrcKeep SrcStorage = iota
	SrcDelete
	SrcCompress
)

// ParseSrcStorage turns the cache.src_storage string into the closed
// sum type. An unrecognized value is a configuration error.
func ParseSrcStorage(raw string) (SrcStorage, error) {
	switch raw {
	case "keep":
		return SrcKeep, nil
	case "delete":
		return SrcDelete, nil
	case "compress":
		return SrcCompress, nil
	default:
		return 0, ErrInvalidSrcStorage(raw)
	}
}

// ErrInvalidSrcStorage reports an unrecognized src_storage value.
type ErrInvalidSrcStorage string

func (e ErrInvalidSrcStorage) Error() string {
	return "cache: invalid src_storage parameter " + string(e) + "; expecting keep, delete, or compress"
}

// IncFilename returns the absolute path of signature's header file.
func (p Params) IncFilename(signature string) string {
	return filepath.Join(p.root(), p.incDir(), signature+p.incPostfix())
}

// SrcFilename returns the absolute path of signature's source file.
func (p Params) SrcFilename(signature string) string {
	return filepath.Join(p.root(), p.srcDir(), signature+p.srcPostfix())
}

// LibBasename returns signature's library filename without any
// directory component, needed for temp-directory staging during a
// build.
func (p Params) LibBasename(signature string) string {
	return p.libPrefix() + signature + p.libPostfix()
}

// LibFilename returns the absolute path of signature's library file.
func (p Params) LibFilename(signature string) string {
	return filepath.Join(p.root(), p.libDir(), p.LibBasename(signature))
}

// LogFilename returns the absolute path of signature's build log.
func (p Params) LogFilename(signature string) string {
	return filepath.Join(p.root(), p.logDir(), signature+p.logPostfix())
}

// CommDir returns the absolute path of the role-coordination scratch
// directory.
func (p Params) CommDir() string {
	return filepath.Join(p.root(), p.commDir())
}

// Root returns the cache's root directory.
func (p Params) Root() string { return p.root() }

// CategoryDir returns the absolute path of one of "inc", "src", "lib",
// or "log"'s subdirectory, without creating it. Used by external
// tooling (cmd/dijitso-cache) that browses the cache tree without
// wanting the side effect of Make*Dir's directory creation.
func (p Params) CategoryDir(category string) (string, error) {
	switch category {
	case "inc":
		return filepath.Join(p.root(), p.incDir()), nil
	case "src":
		return filepath.Join(p.root(), p.srcDir()), nil
	case "lib":
		return filepath.Join(p.root(), p.libDir()), nil
	case "log":
		return filepath.Join(p.root(), p.logDir()), nil
	default:
		return "", ErrUnknownCategory(category)
	}
}

// ErrUnknownCategory reports an artifact category outside {inc, src, lib, log}.
type ErrUnknownCategory string

func (e ErrUnknownCategory) Error() string {
	return "cache: unknown artifact category " + string(e) + "; expecting inc, src, lib, or log"
}

func (p Params) MakeIncDir() (string, error) {
	d := filepath.Join(p.root(), p.incDir())
	return d, fsutil.MkdirAll(d)
}

func (p Params) MakeSrcDir() (string, error) {
	d := filepath.Join(p.root(), p.srcDir())
	return d, fsutil.MkdirAll(d)
}

func (p Params) MakeLibDir() (string, error) {
	d := filepath.Join(p.root(), p.libDir())
	return d, fsutil.MkdirAll(d)
}

func (p Params) MakeLogDir() (string, error) {
	d := filepath.Join(p.root(), p.logDir())
	return d, fsutil.MkdirAll(d)
}

func (p Params) MakeCommDir() (string, error) {
	d := p.CommDir()
	return d, fsutil.MkdirAll(d)
}
