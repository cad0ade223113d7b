package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miklos1/dijitso/internal/params"
)

func sortedKeys(c params.Category) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// allCategories is the set of artifact categories the -category flag
// of show, clean and grep accepts, and the set checkout copies,
// matching the on-disk layout in spec.md §6.
var allCategories = []string{"inc", "src", "lib", "log"}

// parseCategories turns a comma-separated -category flag value into
// the validated subset of allCategories, defaulting to all of them
// when raw is empty.
func parseCategories(raw string) ([]string, error) {
	if raw == "" {
		return allCategories, nil
	}
	var out []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		found := false
		for _, known := range allCategories {
			if c == known {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown category %q; expecting one of %v", c, allCategories)
		}
		out = append(out, c)
	}
	return out, nil
}
