package dijitso

import "fmt"

// ConfigError reports a configuration problem: an unknown parameter
// key, a malformed value, or a role callback missing for the
// combination of generate/receive/wait the caller supplied. Raised
// before any side effect.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "dijitso: config: " + e.Msg }

// GeneratorError wraps a failure returned by the caller-supplied
// generate callback. No cache state is written for a jit call that
// fails this way.
type GeneratorError struct {
	Signature string
	Err       error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("dijitso: generator failed for %s: %v", e.Signature, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// CompileError reports a non-zero compiler exit. The compiler's
// combined output and the exit code are both preserved; working
// artifacts survive under jitfailure-<signature>/ in the current
// working directory.
type CompileError struct {
	Signature string
	ExitCode  int
	Output    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("dijitso: compile of %s failed with exit code %d; see jitfailure-%s/", e.Signature, e.ExitCode, e.Signature)
}

// FilesystemError wraps an unexpected filesystem failure (anything
// beyond the swallowed EEXIST-on-mkdir / ENOENT-on-delete cases
// already handled by internal/fsutil).
type FilesystemError struct {
	Op  string
	Err error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("dijitso: filesystem: %s: %v", e.Op, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// LoadError reports that a library file is present on disk but the
// platform dynamic linker rejected it.
type LoadError struct {
	Signature string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dijitso: failed to load library for %s: %v", e.Signature, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
