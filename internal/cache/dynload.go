package cache

// Library is the opaque handle dijitso hands back to callers once a
// shared library has been loaded by the platform dynamic linker. This
// is the one place the cache API touches OS-specific linker types;
// everything beyond Symbol/Path/Close is deliberately hidden.
type Library interface {
	// Symbol resolves a named symbol's address within the loaded
	// library, the Go analogue of extracting a ctypes factory
	// function from the library module.
	Symbol(name string) (uintptr, error)
	// Path is the on-disk file this handle was loaded from.
	Path() string
	// Close unloads the library. Not called automatically: loaded
	// libraries are retained for the process lifetime per the
	// in-memory cache's invariant.
	Close() error
}

// loadLibrary is overridden per-platform (dynload_linux.go uses cgo
// dlopen/dlsym; dynload_other.go reports an unsupported-platform
// error). It is a package-level var rather than a direct function
// call so tests can substitute a fake loader without cgo.
var loadLibrary func(path string) (Library, error) = platformLoadLibrary

// SetLoaderForTest substitutes the dynamic-linker loader and returns
// a function that restores the previous one. Exported so tests
// outside this package (the end-to-end orchestrator tests) can
// exercise LookupLib/LoadLibrary without cgo or a real compiler.
func SetLoaderForTest(fn func(path string) (Library, error)) func() {
	prev := loadLibrary
	loadLibrary = fn
	return func() { loadLibrary = prev }
}
