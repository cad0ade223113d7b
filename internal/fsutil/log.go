package fsutil

import "log"

// warnf reports a non-fatal condition. Install collisions with
// differing content are the only case where fsutil itself logs;
// everything else returns an error for the caller to log or ignore.
func warnf(format string, args ...interface{}) {
	log.Printf("dijitso: warning: "+format, args...)
}
