// Package fsutil collects the filesystem primitives that every other
// dijitso package builds on: directory creation that tolerates
// concurrent creators, best-effort deletion, gzip compression, text
// file I/O with transparent .gz fallback, and subprocess invocation
// with combined output capture.
package fsutil

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"os/exec"

	"golang.org/x/xerrors"
)

// MkdirAll creates a directory tree, succeeding if it already exists.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return xerrors.Errorf("fsutil: mkdir %s: %w", path, err)
	}
	return nil
}

// TryRemove removes a file, succeeding if it is already absent.
func TryRemove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerrors.Errorf("fsutil: remove %s: %w", path, err)
	}
	return nil
}

// GzipFile compresses filename into filename+".gz" and removes the
// original. If the .gz variant already exists it is left as it is and
// only the original is removed.
func GzipFile(filename string) error {
	gzName := filename + ".gz"
	if _, err := os.Stat(gzName); err == nil {
		return TryRemove(filename)
	}
	in, err := os.Open(filename)
	if err != nil {
		return xerrors.Errorf("fsutil: gzip open %s: %w", filename, err)
	}
	defer in.Close()

	out, err := os.Create(gzName)
	if err != nil {
		return xerrors.Errorf("fsutil: gzip create %s: %w", gzName, err)
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return xerrors.Errorf("fsutil: gzip write %s: %w", gzName, err)
	}
	if err := zw.Close(); err != nil {
		return xerrors.Errorf("fsutil: gzip close %s: %w", gzName, err)
	}
	if err := out.Close(); err != nil {
		return xerrors.Errorf("fsutil: gzip close %s: %w", gzName, err)
	}
	return TryRemove(filename)
}

// ReadFileOrGz reads filename, or filename+".gz" transparently
// decompressed, whichever exists. It returns (nil, false, nil) if
// neither exists.
func ReadFileOrGz(filename string) (content []byte, found bool, err error) {
	if b, err := os.ReadFile(filename); err == nil {
		return b, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, xerrors.Errorf("fsutil: read %s: %w", filename, err)
	}

	gzName := filename + ".gz"
	f, err := os.Open(gzName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, xerrors.Errorf("fsutil: open %s: %w", gzName, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, xerrors.Errorf("fsutil: gzip reader %s: %w", gzName, err)
	}
	defer zr.Close()

	b, err := io.ReadAll(zr)
	if err != nil {
		return nil, false, xerrors.Errorf("fsutil: gzip read %s: %w", gzName, err)
	}
	return b, true, nil
}

// RunResult is the outcome of a subprocess invocation: exit status and
// combined stdout+stderr.
type RunResult struct {
	ExitCode int
	Output   string
}

// Run invokes argv[0] with argv[1:] in dir (dir may be empty for the
// current directory), merging stderr into stdout, and returns the
// combined output regardless of exit status. A non-zero exit status
// is reported via RunResult.ExitCode, not as an error; err is non-nil
// only if the process could not be started or its exit status could
// not be determined.
func Run(dir string, argv []string) (RunResult, error) {
	if len(argv) == 0 {
		return RunResult{}, xerrors.New("fsutil: empty argv")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	result := RunResult{Output: buf.String()}
	if err == nil {
		return result, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, xerrors.Errorf("fsutil: run %v: %w", argv, err)
}
