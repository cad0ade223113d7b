package builddriver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miklos1/dijitso/internal/params"
)

func TestMakeCompileCommandOrdersFlagsAndDirs(t *testing.T) {
	build := params.DefaultBuildParams()
	argv, err := MakeCompileCommand(CompileCommandInput{
		SrcFilename: "/tmp/src/sig.cpp",
		LibFilename: "/tmp/lib/libdijitso-sig.so",
		Build:       build,
		IncDir:      "/cache/include",
		LibDir:      "/cache/lib",
	})
	require.NoError(t, err)

	require.Equal(t, "g++", argv[0])
	require.Equal(t, "-o/tmp/lib/libdijitso-sig.so", argv[1])
	require.Contains(t, argv, "-I/cache/include")
	require.Contains(t, argv, "-L/cache/lib")
	require.Contains(t, argv, "-Wl,-rpath,/cache/lib")
	require.Equal(t, "/tmp/src/sig.cpp", argv[len(argv)-1])
}

func TestMakeCompileCommandDebugVsRelease(t *testing.T) {
	build := params.DefaultBuildParams()
	build["debug"] = params.Value{Bool: boolPtr(true)}
	argv, err := MakeCompileCommand(CompileCommandInput{
		SrcFilename: "src.cpp", LibFilename: "lib.so", Build: build,
		IncDir: "/i", LibDir: "/l",
	})
	require.NoError(t, err)
	require.Contains(t, argv, "-g")
	require.Contains(t, argv, "-O0")
	require.NotContains(t, argv, "-O3")
}

func TestMakeCompileCommandDeduplicatesLibDirs(t *testing.T) {
	build := params.DefaultBuildParams()
	build["lib_dirs"] = params.Value{Strings: []string{"/cache/lib", "/other"}}
	argv, err := MakeCompileCommand(CompileCommandInput{
		SrcFilename: "src.cpp", LibFilename: "lib.so", Build: build,
		IncDir: "/i", LibDir: "/cache/lib",
	})
	require.NoError(t, err)
	count := 0
	for _, a := range argv {
		if a == "-L/cache/lib" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestMakeCompileCommandAppendsDepsAndExternalLibs(t *testing.T) {
	build := params.DefaultBuildParams()
	build["libs"] = params.Value{Strings: []string{"m"}}
	argv, err := MakeCompileCommand(CompileCommandInput{
		SrcFilename:     "src.cpp",
		LibFilename:     "lib.so",
		DepLibFilenames: []string{"/cache/lib/libdijitso-dep1.so"},
		Build:           build,
		IncDir:          "/i",
		LibDir:          "/cache/lib",
	})
	require.NoError(t, err)
	require.Contains(t, argv, "-ldijitso-dep1")
	require.Contains(t, argv, "-lm")
}

func boolPtr(b bool) *bool { return &b }
