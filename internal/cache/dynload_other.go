//go:build !(linux && cgo)

package cache

import "golang.org/x/xerrors"

// platformLoadLibrary has no portable implementation outside
// cgo-enabled Linux: dijitso's cache never leaks linker-specific types
// through its API (see Library), but it still needs a real dlopen on
// platforms that want to load compiler-produced shared objects.
func platformLoadLibrary(path string) (Library, error) {
	return nil, xerrors.New("cache: dynamic library loading requires cgo on linux")
}
