package builddriver

import (
	"log"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/miklos1/dijitso/internal/cache"
	"github.com/miklos1/dijitso/internal/fsutil"
	"github.com/miklos1/dijitso/internal/params"
)

// Result is what BuildSharedLibrary returns: the compiler's exit
// status, its combined output, and — on success only — the path of
// the library now installed in the cache.
type Result struct {
	ExitCode    int
	Output      string
	LibFilename string // empty on failure
}

// Input bundles everything a single build attempt needs.
type Input struct {
	Signature    string
	Header       string // may be empty
	Source       string
	Dependencies []string // signatures of dependency libraries, already built
	Cache        *cache.Cache
	Build        params.Category
}

// BuildSharedLibrary compiles Source (and optional Header) into a
// shared library and installs it into the cache atomically.
//
// The cache's inc and lib directories are created before compiling,
// since the compile command references them. On success it creates the
// src directory, moves the inc/src/lib artifacts from a scratch temp
// directory into the cache via the lock-free move, and returns the
// cache lib path. On failure it installs no artifact into the cache
// tree and instead writes a "jitfailure-<signature>/" directory
// (command, error.log, and the header/source that failed to compile)
// in the current working directory, per spec.md §4.5 and §8 scenario 5.
func BuildSharedLibrary(in Input) (Result, error) {
	cacheParams := in.Cache.Params

	tmpDir, err := os.MkdirTemp("", "dijitso-build-")
	if err != nil {
		return Result{}, xerrors.Errorf("builddriver: mkdtemp: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	libBasename := cacheParams.LibBasename(in.Signature)
	tmpLib := filepath.Join(tmpDir, libBasename)
	tmpSrc := filepath.Join(tmpDir, in.Signature+".cpp")
	var tmpInc string

	if err := os.WriteFile(tmpSrc, []byte(in.Source), 0644); err != nil {
		return Result{}, xerrors.Errorf("builddriver: write source: %w", err)
	}
	if in.Header != "" {
		tmpInc = filepath.Join(tmpDir, in.Signature+".h")
		if err := os.WriteFile(tmpInc, []byte(in.Header), 0644); err != nil {
			return Result{}, xerrors.Errorf("builddriver: write header: %w", err)
		}
	}

	incDir, err := cacheParams.MakeIncDir()
	if err != nil {
		return Result{}, err
	}
	libDir, err := cacheParams.MakeLibDir()
	if err != nil {
		return Result{}, err
	}

	var depLibFilenames []string
	for _, dep := range in.Dependencies {
		depLibFilenames = append(depLibFilenames, cacheParams.LibFilename(dep))
	}

	argv, err := MakeCompileCommand(CompileCommandInput{
		SrcFilename:     tmpSrc,
		LibFilename:     tmpLib,
		DepLibFilenames: depLibFilenames,
		Build:           in.Build,
		IncDir:          incDir,
		LibDir:          libDir,
	})
	if err != nil {
		return Result{}, err
	}

	run, err := fsutil.Run("", argv)
	if err != nil {
		return Result{}, err
	}

	if run.ExitCode != 0 {
		if ferr := writeFailureDir(in.Signature, argv, run.Output, tmpSrc, tmpLib, in.Header, in.Source); ferr != nil {
			log.Printf("dijitso: failed to write jitfailure directory for %s: %v", in.Signature, ferr)
		}
		log.Printf("dijitso: compile of %s failed with exit code %d; see jitfailure-%s/", in.Signature, run.ExitCode, in.Signature)
		return Result{ExitCode: run.ExitCode, Output: run.Output}, nil
	}

	libFilename := cacheParams.LibFilename(in.Signature)
	if err := fsutil.LockFreeMove(tmpLib, libFilename); err != nil {
		return Result{}, xerrors.Errorf("builddriver: install library: %w", err)
	}

	if _, err := cacheParams.MakeSrcDir(); err != nil {
		return Result{}, err
	}
	srcFilename := cacheParams.SrcFilename(in.Signature)
	if err := fsutil.LockFreeMove(tmpSrc, srcFilename); err != nil {
		return Result{}, xerrors.Errorf("builddriver: install source: %w", err)
	}

	if tmpInc != "" {
		incFilename := cacheParams.IncFilename(in.Signature)
		if err := fsutil.LockFreeMove(tmpInc, incFilename); err != nil {
			return Result{}, xerrors.Errorf("builddriver: install header: %w", err)
		}
	}

	return Result{ExitCode: 0, Output: run.Output, LibFilename: libFilename}, nil
}

// writeFailureDir creates "jitfailure-<signature>/" in the current
// working directory with the command used, the compiler output, and
// the header/source that failed, rewriting the argv to reference the
// local basenames so a user can cd in and rerun it.
func writeFailureDir(sig string, argv []string, output string, tmpSrc, tmpLib, header, source string) error {
	dir := "jitfailure-" + sig
	if err := fsutil.MkdirAll(dir); err != nil {
		return err
	}

	srcBase := sig + ".cpp"
	libBase := filepath.Base(tmpLib)
	localArgv := make([]string, len(argv))
	copy(localArgv, argv)
	for i, a := range localArgv {
		switch a {
		case tmpSrc:
			localArgv[i] = srcBase
		case "-o" + tmpLib:
			localArgv[i] = "-o" + libBase
		}
	}

	if err := os.WriteFile(filepath.Join(dir, srcBase), []byte(source), 0644); err != nil {
		return xerrors.Errorf("builddriver: write failure src: %w", err)
	}
	if header != "" {
		if err := os.WriteFile(filepath.Join(dir, sig+".h"), []byte(header), 0644); err != nil {
			return xerrors.Errorf("builddriver: write failure header: %w", err)
		}
	}

	cmdLine := shellJoin(localArgv)
	if err := renameio.WriteFile(filepath.Join(dir, "command"), []byte(cmdLine+"\n"), 0644); err != nil {
		return xerrors.Errorf("builddriver: write command: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, "error.log"), []byte(output), 0644); err != nil {
		return xerrors.Errorf("builddriver: write error.log: %w", err)
	}
	return nil
}

func shellJoin(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
