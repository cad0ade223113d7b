package params

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

const configBasename = ".dijitso.conf"

// discoverConfigFilename searches, in order, the current working
// directory, $DIJITSO_CONF, the user's home directory, and /etc/dijitso
// for a ".dijitso.conf" file, returning the first hit.
func discoverConfigFilename() (string, error) {
	searchDirs := []string{"."}
	if d := os.Getenv("DIJITSO_CONF"); d != "" {
		searchDirs = append(searchDirs, d)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchDirs = append(searchDirs, home)
	}
	searchDirs = append(searchDirs, "/etc/dijitso")

	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, configBasename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

var (
	configOnce    sync.Once
	configContent *Set
	configErr     error
)

// ReadConfigFile reads and caches the discovered config file's
// contents for the duration of the process. It returns (nil, nil) if
// no config file was found. Sections other than "cache", "build" and
// "generator" are rejected here; unknown keys inside "cache" and
// "build" are rejected later by Validate's merge step against the
// default key set.
func ReadConfigFile() (*Set, error) {
	configOnce.Do(func() {
		configContent, configErr = readConfigFileUncached()
	})
	return configContent, configErr
}

func readConfigFileUncached() (*Set, error) {
	filename, err := discoverConfigFilename()
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, nil
	}

	cfg, err := ini.Load(filename)
	if err != nil {
		return nil, xerrors.Errorf("params: parse config %s: %w", filename, err)
	}

	set := &Set{Cache: Category{}, Build: Category{}, Generator: Category{}}
	for _, section := range cfg.Sections() {
		var dst Category
		switch section.Name() {
		case "cache":
			dst = set.Cache
		case "build":
			dst = set.Build
		case "generator":
			dst = set.Generator
		case ini.DefaultSection:
			continue
		default:
			return nil, xerrors.Errorf("params: invalid parameter category %q in config %s", section.Name(), filename)
		}
		for _, key := range section.Keys() {
			dst[key.Name()] = strVal(key.Value())
		}
	}
	return set, nil
}

// resetConfigCacheForTest clears the memoized config file contents;
// only used by tests that exercise discovery with different
// environments.
func resetConfigCacheForTest() {
	configOnce = sync.Once{}
	configContent = nil
	configErr = nil
}
