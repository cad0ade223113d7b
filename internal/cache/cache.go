package cache

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/miklos1/dijitso/internal/fsutil"
)

// Cache is dijitso's process-wide two-tier cache for one cache
// directory: an in-memory signature->Library map guarding repeated
// disk hits, plus the on-disk artifact tree. The in-memory map is not
// safe for concurrent jit() calls racing on the *same* signature
// (spec.md §5); distinct signatures are safe to load concurrently
// provided the platform loader is thread-safe, which dlopen is.
type Cache struct {
	Params Params

	mu   sync.Mutex
	libs map[string]Library

	dirsOnce sync.Once
	dirsErr  error
}

// New constructs a Cache bound to the given resolved cache parameters.
func New(p Params) *Cache {
	return &Cache{Params: p, libs: make(map[string]Library)}
}

// EnsureDirs creates the inc/src/lib/log subdirectories, guarded by a
// once-per-process flag so repeated jit() calls don't pay for four
// stat calls every time.
func (c *Cache) EnsureDirs() error {
	c.dirsOnce.Do(func() {
		for _, mk := range []func() (string, error){
			c.Params.MakeIncDir,
			c.Params.MakeSrcDir,
			c.Params.MakeLibDir,
			c.Params.MakeLogDir,
		} {
			if _, err := mk(); err != nil {
				c.dirsErr = err
				return
			}
		}
	})
	return c.dirsErr
}

// LookupLib probes the in-memory map, then the disk cache. A missing
// library (neither in memory nor on disk) yields (nil, false, nil); a
// present-but-unloadable library yields a non-nil error, which Jit
// reports as a LoadError.
func (c *Cache) LookupLib(sig string) (Library, bool, error) {
	c.mu.Lock()
	lib, ok := c.libs[sig]
	c.mu.Unlock()
	if ok {
		return lib, true, nil
	}
	return c.LoadLibrary(sig)
}

// LoadLibrary loads signature's library file from disk via the
// platform dynamic linker, registers it in the in-memory map on
// success, and returns it. Returns (nil, false, nil) if the file does
// not exist on disk.
func (c *Cache) LoadLibrary(sig string) (Library, bool, error) {
	libFilename := c.Params.LibFilename(sig)
	if _, err := os.Stat(libFilename); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, xerrors.Errorf("cache: stat %s: %w", libFilename, err)
	}

	lib, err := loadLibrary(libFilename)
	if err != nil {
		return nil, false, xerrors.Errorf("cache: failed to load library %s: %w", libFilename, err)
	}

	c.mu.Lock()
	c.libs[sig] = lib
	c.mu.Unlock()
	return lib, true, nil
}

// StoreTextfile writes content to filename crash-safely: stage to a
// uniquely-named temp file in the same directory, then hand off to
// the lock-free move protocol so concurrent writers of the same
// filename converge on one winner.
func StoreTextfile(filename, content string) error {
	tmp := filename + "." + uuid.New().String()
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return xerrors.Errorf("cache: write temp %s: %w", tmp, err)
	}
	if err := fsutil.LockFreeMove(tmp, filename); err != nil {
		return xerrors.Errorf("cache: install %s: %w", filename, err)
	}
	return nil
}

// StoreSrc persists a signature's generated source code.
func (c *Cache) StoreSrc(sig, content string) (string, error) {
	if _, err := c.Params.MakeSrcDir(); err != nil {
		return "", err
	}
	filename := c.Params.SrcFilename(sig)
	return filename, StoreTextfile(filename, content)
}

// StoreInc persists a signature's generated header.
func (c *Cache) StoreInc(sig, content string) (string, error) {
	if _, err := c.Params.MakeIncDir(); err != nil {
		return "", err
	}
	filename := c.Params.IncFilename(sig)
	return filename, StoreTextfile(filename, content)
}

// StoreLog persists a signature's build log.
func (c *Cache) StoreLog(sig, content string) (string, error) {
	if _, err := c.Params.MakeLogDir(); err != nil {
		return "", err
	}
	filename := c.Params.LogFilename(sig)
	return filename, StoreTextfile(filename, content)
}

// ReadSrc returns a signature's source code, transparently
// decompressing a .gz variant, or (nil, false, nil) if absent.
func (c *Cache) ReadSrc(sig string) ([]byte, bool, error) {
	return fsutil.ReadFileOrGz(c.Params.SrcFilename(sig))
}

// ReadInc returns a signature's header file, or (nil, false, nil) if
// absent.
func (c *Cache) ReadInc(sig string) ([]byte, bool, error) {
	return fsutil.ReadFileOrGz(c.Params.IncFilename(sig))
}

// ReadLog returns a signature's build log, or (nil, false, nil) if
// absent.
func (c *Cache) ReadLog(sig string) ([]byte, bool, error) {
	return fsutil.ReadFileOrGz(c.Params.LogFilename(sig))
}

// WriteLibraryBinary installs a pre-compiled library blob directly
// into the lib directory, used by receiver-role peers that got a
// binary over the caller's transport instead of compiling it
// themselves.
func (c *Cache) WriteLibraryBinary(sig string, data []byte) error {
	if _, err := c.Params.MakeLibDir(); err != nil {
		return err
	}
	libFilename := c.Params.LibFilename(sig)
	tmp := libFilename + "." + uuid.New().String()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return xerrors.Errorf("cache: write temp %s: %w", tmp, err)
	}
	if err := fsutil.LockFreeMove(tmp, libFilename); err != nil {
		return xerrors.Errorf("cache: install %s: %w", libFilename, err)
	}
	return nil
}

// ReadLibraryBinary reads a signature's compiled library file as a
// binary blob, for a builder role peer about to Send() it to peers.
func (c *Cache) ReadLibraryBinary(sig string) ([]byte, error) {
	b, err := os.ReadFile(c.Params.LibFilename(sig))
	if err != nil {
		return nil, xerrors.Errorf("cache: read library %s: %w", sig, err)
	}
	return b, nil
}

// CompressSourceCode applies the src retention policy to a signature's
// source file after a successful build.
func CompressSourceCode(srcFilename string, policy SrcStorage) error {
	switch policy {
	case SrcKeep:
		return nil
	case SrcDelete:
		return fsutil.TryRemove(srcFilename)
	case SrcCompress:
		return fsutil.GzipFile(srcFilename)
	default:
		return xerrors.Errorf("cache: unknown src storage policy %d", policy)
	}
}
