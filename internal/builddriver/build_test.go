package builddriver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miklos1/dijitso/internal/cache"
	"github.com/miklos1/dijitso/internal/params"
)

// fakeCompiler writes a script that stands in for g++: it looks for
// an argv entry of the form "-o<path>" and, if succeed is true,
// writes dummy bytes there and exits 0; otherwise it writes a
// recognizable error message to stderr and exits 1.
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
		script += "printf 'fake-shared-object' > \"$out\"\necho building ok\nexit 0\n"
	} else {
		script += "echo 'error: deliberate test failure' 1>&2\nexit 1\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestCache(t *testing.T) *cache.Cache {
	dir := t.TempDir()
	p := params.DefaultCacheParams()
	p["cache_dir"] = params.Value{String: &dir}
	return cache.New(cache.NewParams(p))
}

func buildParamsWithCxx(cxx string) params.Category {
	b := params.DefaultBuildParams()
	b["cxx"] = params.Value{String: &cxx}
	return b
}

func TestBuildSharedLibrarySuccessInstallsIntoCache(t *testing.T) {
	cxx := fakeCompiler(t, true)
	c := newTestCache(t)

	res, err := BuildSharedLibrary(Input{
		Signature: "sig_ok",
		Source:    "int f(){return 1;}",
		Cache:     c,
		Build:     buildParamsWithCxx(cxx),
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.NotEmpty(t, res.LibFilename)

	content, err := os.ReadFile(res.LibFilename)
	require.NoError(t, err)
	require.Equal(t, "fake-shared-object", string(content))

	srcContent, found, err := c.ReadSrc("sig_ok")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "int f(){return 1;}", string(srcContent))
}

func TestBuildSharedLibraryFailureWritesJitfailureDir(t *testing.T) {
	cxx := fakeCompiler(t, false)
	c := newTestCache(t)

	workdir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	defer os.Chdir(oldwd)

	res, err := BuildSharedLibrary(Input{
		Signature: "sig_fail",
		Source:    "this is not valid c++",
		Cache:     c,
		Build:     buildParamsWithCxx(cxx),
	})
	require.NoError(t, err)
	require.NotEqual(t, 0, res.ExitCode)
	require.Empty(t, res.LibFilename)

	failDir := filepath.Join(workdir, "jitfailure-sig_fail")
	info, err := os.Stat(failDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	cmdContent, err := os.ReadFile(filepath.Join(failDir, "command"))
	require.NoError(t, err)
	require.Contains(t, string(cmdContent), "sig_fail.cpp")

	errLog, err := os.ReadFile(filepath.Join(failDir, "error.log"))
	require.NoError(t, err)
	require.Contains(t, string(errLog), "deliberate test failure")

	srcContent, err := os.ReadFile(filepath.Join(failDir, "sig_fail.cpp"))
	require.NoError(t, err)
	require.Equal(t, "this is not valid c++", string(srcContent))

	// No partial artifacts should land in the cache tree.
	_, found, err := c.ReadSrc("sig_fail")
	require.NoError(t, err)
	require.False(t, found)
	libFilename := c.Params.LibFilename("sig_fail")
	_, err = os.Stat(libFilename)
	require.True(t, os.IsNotExist(err))
}

func TestBuildSharedLibraryRetentionCompress(t *testing.T) {
	cxx := fakeCompiler(t, true)
	c := newTestCache(t)

	res, err := BuildSharedLibrary(Input{
		Signature: "sig_compress",
		Source:    "int g(){return 2;}",
		Cache:     c,
		Build:     buildParamsWithCxx(cxx),
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)

	require.NoError(t, cache.CompressSourceCode(c.Params.SrcFilename("sig_compress"), cache.SrcCompress))

	_, err = os.Stat(c.Params.SrcFilename("sig_compress"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.Params.SrcFilename("sig_compress") + ".gz")
	require.NoError(t, err)
}
