package dijitso

import (
	"golang.org/x/xerrors"

	"github.com/miklos1/dijitso/internal/builddriver"
	"github.com/miklos1/dijitso/internal/cache"
	"github.com/miklos1/dijitso/internal/params"
	"github.com/miklos1/dijitso/internal/signature"
)

// GenerateFunc converts a jitable into a header (may be empty) and a
// complete translation unit, given the base and derived module
// signatures and the resolved generator parameter category. It is the
// only place user code produces source.
type GenerateFunc func(baseSignature, moduleSignature string, jitable interface{}, generatorParams params.Category) (header, source string, err error)

// SendFunc ships a compiled library's bytes to receiver peers. Owned
// entirely by the caller; the core never interprets the bytes beyond
// writing them to disk on the receiving end.
type SendFunc func(data []byte) error

// ReceiveFunc blocks until a compiled library's bytes arrive from the
// builder peer.
type ReceiveFunc func() ([]byte, error)

// WaitFunc blocks until it is safe to load the library from disk,
// i.e. until the peer's builder or receiver has finished installing
// it. Typically a barrier scoped to a role.Assignment's WaitComm.
type WaitFunc func() error

// Options selects this peer's role in one Jit call by which callbacks
// are non-nil: Generate implies builder, Receive implies receiver,
// neither implies waiter (Wait is then required). Generate and
// Receive together is a caller error.
type Options struct {
	Generate GenerateFunc
	Send     SendFunc
	Receive  ReceiveFunc
	Wait     WaitFunc
}

// Context bundles the resolved parameter set and the two-tier cache
// it governs. Both are process-wide caches by nature (spec.md §9's
// design notes call this out explicitly), so rather than hide them
// behind package globals, Context makes that state an explicit value
// the caller threads through every Jit call — constructing a fresh
// Context against the same cache_dir is how a caller simulates, or
// really performs, a process restart while keeping the on-disk cache.
type Context struct {
	Params params.Set
	Cache  *cache.Cache
}

// NewContext resolves overrides (may be nil) against the compiled-in
// defaults and the discovered config file, and builds the Cache that
// resolution implies.
func NewContext(overrides *params.Set) (*Context, error) {
	resolved, err := params.Validate(overrides)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}
	return &Context{
		Params: resolved,
		Cache:  cache.New(cache.NewParams(resolved.Cache)),
	}, nil
}

// Jit is the public entry point: given a caller-owned jitable
// identified by baseSignature, it returns an already-loaded handle, a
// handle loaded from a previous process's disk cache, or drives the
// full generate → compile → install → load pipeline, per spec.md
// §4.7's numbered steps.
func (ctx *Context) Jit(baseSignature string, jitable interface{}, opts Options) (cache.Library, error) {
	if opts.Generate != nil && opts.Receive != nil {
		return nil, &ConfigError{Msg: "generate and receive are mutually exclusive"}
	}
	if opts.Generate == nil && opts.Receive == nil && opts.Wait == nil {
		return nil, &ConfigError{Msg: "no role implied: supply generate, receive, or at least wait"}
	}

	moduleSig := signature.Extend(baseSignature, map[string]map[string]string{
		"generator_params": flattenCategory(ctx.Params.Generator),
		"build_params":     flattenCategory(ctx.Params.Build),
	})

	if lib, found, err := ctx.Cache.LookupLib(moduleSig); err != nil {
		return nil, &LoadError{Signature: moduleSig, Err: err}
	} else if found {
		return lib, nil
	}

	switch {
	case opts.Generate != nil:
		if err := ctx.runBuilder(baseSignature, moduleSig, jitable, opts); err != nil {
			return nil, err
		}

	case opts.Receive != nil:
		blob, err := opts.Receive()
		if err != nil {
			return nil, &FilesystemError{Op: "receive", Err: err}
		}
		if err := ctx.Cache.WriteLibraryBinary(moduleSig, blob); err != nil {
			return nil, &FilesystemError{Op: "write_library_binary", Err: err}
		}

	default:
		// Neither generate nor receive: a pure waiter. Wait is
		// guaranteed non-nil by the check above.
	}

	if opts.Wait != nil {
		if err := opts.Wait(); err != nil {
			return nil, &FilesystemError{Op: "wait", Err: err}
		}
	}

	lib, found, err := ctx.Cache.LoadLibrary(moduleSig)
	if err != nil {
		return nil, &LoadError{Signature: moduleSig, Err: err}
	}
	if !found {
		return nil, &LoadError{Signature: moduleSig, Err: xerrors.Errorf("no library at %s after build/receive/wait", ctx.Cache.Params.LibFilename(moduleSig))}
	}
	return lib, nil
}

// runBuilder implements the generate-then-compile-then-install branch
// of Jit: steps 5a-5e of spec.md §4.7.
func (ctx *Context) runBuilder(baseSignature, moduleSig string, jitable interface{}, opts Options) error {
	policy, err := cache.ParseSrcStorage(ctx.Params.Cache.String("src_storage"))
	if err != nil {
		return &ConfigError{Msg: err.Error()}
	}

	header, source, err := opts.Generate(baseSignature, moduleSig, jitable, ctx.Params.Generator)
	if err != nil {
		return &GeneratorError{Signature: moduleSig, Err: err}
	}

	if err := ctx.Cache.EnsureDirs(); err != nil {
		return &FilesystemError{Op: "ensure_dirs", Err: err}
	}

	// header/source are staged into the cache tree by BuildSharedLibrary
	// itself, and only on success: it writes them to a scratch temp
	// directory first and promotes them (or, on failure, the
	// jitfailure-<sig>/ directory) as the very last step, so a failed
	// compile never leaves src/inc artifacts behind for this signature.
	res, err := builddriver.BuildSharedLibrary(builddriver.Input{
		Signature: moduleSig,
		Header:    header,
		Source:    source,
		Cache:     ctx.Cache,
		Build:     ctx.Params.Build,
	})
	if err != nil {
		return &FilesystemError{Op: "build_shared_library", Err: err}
	}
	if res.ExitCode != 0 {
		return &CompileError{Signature: moduleSig, ExitCode: res.ExitCode, Output: res.Output}
	}

	if err := cache.CompressSourceCode(ctx.Cache.Params.SrcFilename(moduleSig), policy); err != nil {
		return &FilesystemError{Op: "compress_source_code", Err: err}
	}

	if opts.Send != nil {
		blob, err := ctx.Cache.ReadLibraryBinary(moduleSig)
		if err != nil {
			return &FilesystemError{Op: "read_library_binary", Err: err}
		}
		if err := opts.Send(blob); err != nil {
			return &FilesystemError{Op: "send", Err: err}
		}
	}
	return nil
}

// flattenCategory turns a resolved params.Category into the
// string-keyed representation signature.Extend hashes over.
func flattenCategory(c params.Category) map[string]string {
	strs := make(map[string]string)
	tuples := make(map[string][]string)
	bools := make(map[string]bool)
	for k, v := range c {
		switch {
		case v.Bool != nil:
			bools[k] = *v.Bool
		case v.String != nil:
			strs[k] = *v.String
		case v.Strings != nil:
			tuples[k] = v.Strings
		}
	}
	return signature.Flatten(strs, tuples, bools)
}
