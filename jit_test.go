package dijitso_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miklos1/dijitso"
	"github.com/miklos1/dijitso/internal/cache"
	"github.com/miklos1/dijitso/internal/params"
)

type fakeLibrary struct{ path string }

func (f *fakeLibrary) Symbol(name string) (uintptr, error) { return 0, nil }
func (f *fakeLibrary) Path() string                        { return f.path }
func (f *fakeLibrary) Close() error                        { return nil }

func fakeLoader(path string) (cache.Library, error) {
	return &fakeLibrary{path: path}, nil
}

// fakeCompiler writes a shell script standing in for g++: it looks
// for an "-o<path>" argv entry and, if succeed is true, writes dummy
// bytes there and exits 0; otherwise it writes a recognizable error
// and exits 1.
func fakeCompiler(t *testing.T, succeed bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakecxx.sh")
	script := `#!/bin/sh
out=""
for a in "$@"; do
  case "$a" in
    -o*) out="${a#-o}" ;;
  esac
done
`
	if succeed {
		script += "printf 'fake-shared-object' > \"$out\"\nexit 0\n"
	} else {
		script += "echo 'error: bad source' 1>&2\nexit 1\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestContext(t *testing.T, cacheDir, cxx string) *dijitso.Context {
	t.Helper()
	restore := cache.SetLoaderForTest(fakeLoader)
	t.Cleanup(restore)

	overrides := &params.Set{
		Cache: params.Category{"cache_dir": params.Value{String: &cacheDir}},
		Build: params.Category{"cxx": params.Value{String: &cxx}},
	}
	ctx, err := dijitso.NewContext(overrides)
	require.NoError(t, err)
	return ctx
}

func okGenerator(calls *int) dijitso.GenerateFunc {
	return func(base, module string, jitable interface{}, gp params.Category) (string, string, error) {
		*calls++
		return "", "int f(){return 1;}", nil
	}
}

func TestJitColdThenWarmReturnsSameHandle(t *testing.T) {
	cxx := fakeCompiler(t, true)
	ctx := newTestContext(t, t.TempDir(), cxx)

	calls := 0
	lib1, err := ctx.Jit("sig_A", map[string]int{"n": 1}, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	lib2, err := ctx.Jit("sig_A", map[string]int{"n": 1}, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "generator must not be called again on a warm hit")
	require.Same(t, lib1, lib2)
}

func TestJitDiskPersistenceAcrossRestart(t *testing.T) {
	cxx := fakeCompiler(t, true)
	dir := t.TempDir()

	ctx1 := newTestContext(t, dir, cxx)
	calls := 0
	_, err := ctx1.Jit("sig_persist", nil, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// A fresh Context against the same cache_dir simulates a process
	// restart: cold in-memory map, warm disk cache.
	ctx2 := newTestContext(t, dir, cxx)
	panicking := func(base, module string, jitable interface{}, gp params.Category) (string, string, error) {
		t.Fatal("generator must not be called when the disk cache already has the library")
		return "", "", nil
	}
	lib, err := ctx2.Jit("sig_persist", nil, dijitso.Options{Generate: panicking})
	require.NoError(t, err)
	require.NotNil(t, lib)
}

func TestJitDifferentBuildParamsProduceDifferentSignatures(t *testing.T) {
	cxx := fakeCompiler(t, true)
	dir := t.TempDir()

	debugTrue := true
	ctxRelease := newTestContext(t, dir, cxx)
	ctxDebug := newTestContext(t, dir, cxx)
	ctxDebug.Params.Build["debug"] = params.Value{Bool: &debugTrue}

	calls := 0
	libRelease, err := ctxRelease.Jit("sig_B", nil, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)
	libDebug, err := ctxDebug.Jit("sig_B", nil, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)

	require.Equal(t, 2, calls, "distinct module signatures both require a build")
	require.NotEqual(t, libRelease.Path(), libDebug.Path())
}

func TestJitSrcStorageCompress(t *testing.T) {
	cxx := fakeCompiler(t, true)
	dir := t.TempDir()
	compress := "compress"
	restore := cache.SetLoaderForTest(fakeLoader)
	t.Cleanup(restore)

	overrides := &params.Set{
		Cache: params.Category{
			"cache_dir":   params.Value{String: &dir},
			"src_storage": params.Value{String: &compress},
		},
		Build: params.Category{"cxx": params.Value{String: &cxx}},
	}
	ctx, err := dijitso.NewContext(overrides)
	require.NoError(t, err)

	calls := 0
	_, err = ctx.Jit("sig_compress", nil, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)

	srcDir := filepath.Join(dir, "src")
	entries, err := os.ReadDir(srcDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), ".cpp.gz"))
}

func TestJitCompileFailureReturnsCompileErrorAndJitfailureDir(t *testing.T) {
	cxx := fakeCompiler(t, false)
	cacheDir := t.TempDir()
	ctx := newTestContext(t, cacheDir, cxx)

	workdir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	defer os.Chdir(oldwd)

	calls := 0
	badGenerator := func(base, module string, jitable interface{}, gp params.Category) (string, string, error) {
		calls++
		return "", "this is not valid c++", nil
	}
	_, err = ctx.Jit("sig_fail", nil, dijitso.Options{Generate: badGenerator})
	require.Error(t, err)

	var compileErr *dijitso.CompileError
	require.ErrorAs(t, err, &compileErr)
	require.NotEqual(t, 0, compileErr.ExitCode)

	entries, err := os.ReadDir(workdir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) >= 10 && e.Name()[:10] == "jitfailure" {
			found = true
		}
	}
	require.True(t, found, "expected a jitfailure-* directory in %v", entries)

	// A failed compile must leave no partial src/inc artifact in the
	// cache tree for this signature.
	_, err = os.Stat(filepath.Join(cacheDir, "src", compileErr.Signature+".cpp"))
	require.True(t, os.IsNotExist(err), "source must not be installed into the cache tree after a compile failure")
	_, err = os.Stat(filepath.Join(cacheDir, "inc", compileErr.Signature+".h"))
	require.True(t, os.IsNotExist(err), "header must not be installed into the cache tree after a compile failure")
}

func TestJitReceiveInstallsBlobAndLoadSucceeds(t *testing.T) {
	cxx := fakeCompiler(t, true)
	builderDir := t.TempDir()
	builderCtx := newTestContext(t, builderDir, cxx)

	calls := 0
	builtLib, err := builderCtx.Jit("sig_recv", nil, dijitso.Options{Generate: okGenerator(&calls)})
	require.NoError(t, err)

	blob, err := os.ReadFile(builtLib.Path())
	require.NoError(t, err)

	receiverCtx := newTestContext(t, t.TempDir(), cxx)
	lib, err := receiverCtx.Jit("sig_recv", nil, dijitso.Options{
		Receive: func() ([]byte, error) { return blob, nil },
	})
	require.NoError(t, err)
	require.NotNil(t, lib)

	content, err := os.ReadFile(lib.Path())
	require.NoError(t, err)
	require.Equal(t, blob, content)
}

func TestJitRequiresARoleCallback(t *testing.T) {
	ctx := newTestContext(t, t.TempDir(), fakeCompiler(t, true))
	_, err := ctx.Jit("sig_norole", nil, dijitso.Options{})
	require.Error(t, err)
	var cfgErr *dijitso.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestJitRejectsGenerateAndReceiveTogether(t *testing.T) {
	ctx := newTestContext(t, t.TempDir(), fakeCompiler(t, true))
	calls := 0
	_, err := ctx.Jit("sig_both", nil, dijitso.Options{
		Generate: okGenerator(&calls),
		Receive:  func() ([]byte, error) { return nil, nil },
	})
	require.Error(t, err)
	var cfgErr *dijitso.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
