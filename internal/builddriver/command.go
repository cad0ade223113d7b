// Package builddriver composes and executes the compiler invocation
// that turns generated source into a cached shared library, following
// the atomic-install and failure-isolation rules from spec.md §4.5.
package builddriver

import (
	"path/filepath"

	"github.com/miklos1/dijitso/internal/params"
)

// uniqueOrdered deduplicates dirs while preserving first-occurrence
// order, mirroring dijitso's make_unique, using a seen-set so each
// entry is checked once.
func uniqueOrdered(dirs ...string) []string {
	var out []string
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func absAll(dirs []string) ([]string, error) {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, err
		}
		out[i] = abs
	}
	return out, nil
}

// CompileCommandInput bundles everything make_compile_command needs.
type CompileCommandInput struct {
	SrcFilename string
	LibFilename string
	// DepLibFilenames are cache-resolved library paths of signature
	// dependencies, already including any lib prefix/postfix.
	DepLibFilenames []string
	Build           params.Category
	IncDir          string
	LibDir          string
}

// MakeCompileCommand builds the compiler argv per spec.md §4.5:
// compiler, -o<lib>, always+mode flags, deduplicated -I/-L/-Wl,-rpath
// directories (each combined with the cache's own inc/lib dir), the
// source filename, then -l<dep> for every dependency followed by
// -l<lib> for every externally declared library.
func MakeCompileCommand(in CompileCommandInput) ([]string, error) {
	args := []string{in.Build.String("cxx")}
	args = append(args, "-o"+in.LibFilename)

	args = append(args, in.Build.Tuple("cxxflags")...)
	if in.Build.Bool("debug") {
		args = append(args, in.Build.Tuple("cxxflags_debug")...)
	} else {
		args = append(args, in.Build.Tuple("cxxflags_opt")...)
	}

	includeDirs := uniqueOrdered(append(append([]string{}, in.Build.Tuple("include_dirs")...), in.IncDir)...)
	libDirs := uniqueOrdered(append(append([]string{}, in.Build.Tuple("lib_dirs")...), in.LibDir)...)
	rpathDirs := uniqueOrdered(append(append([]string{}, in.Build.Tuple("rpath_dirs")...), in.LibDir)...)

	includeDirs, err := absAll(includeDirs)
	if err != nil {
		return nil, err
	}
	libDirs, err = absAll(libDirs)
	if err != nil {
		return nil, err
	}
	rpathDirs, err = absAll(rpathDirs)
	if err != nil {
		return nil, err
	}

	for _, d := range includeDirs {
		args = append(args, "-I"+d)
	}
	for _, d := range libDirs {
		args = append(args, "-L"+d)
	}
	for _, d := range rpathDirs {
		args = append(args, "-Wl,-rpath,"+d)
	}

	args = append(args, in.SrcFilename)

	for _, dep := range in.DepLibFilenames {
		args = append(args, "-l"+libNameFromFilename(dep))
	}
	for _, lib := range in.Build.Tuple("libs") {
		args = append(args, "-l"+lib)
	}

	return args, nil
}

// libNameFromFilename extracts the -l argument a linker expects from
// a lib*.so path, e.g. "/x/libdijitso-abc.so" -> "dijitso-abc".
func libNameFromFilename(path string) string {
	base := filepath.Base(path)
	base = stripPrefix(base, "lib")
	base = stripSuffix(base, filepath.Ext(base))
	return base
}

func stripPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func stripSuffix(s, suffix string) string {
	if len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}
