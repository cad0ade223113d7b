// Package signature derives the module signature that keys every
// cached artifact: a caller-supplied base signature extended with a
// deterministic hash over the generator and build parameter maps.
package signature

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
)

// HashLen is the number of hex characters of the parameter hash
// retained in the derived module signature.
const HashLen = 16

// Extend combines base with a deterministic hash of params, producing
// the module signature used as the primary key for all cached
// artifacts. params maps a name (e.g. "generator_params", "build_params")
// to an already-flattened, order-independent representation of that
// parameter category; the hash is computed over sorted
// (key, repr(value)) pairs so iteration order of the input maps never
// affects the result.
func Extend(base string, params map[string]map[string]string) string {
	h := sha1.New()
	for _, section := range sortedKeys(params) {
		fmt.Fprintf(h, "%s\x00", section)
		kv := params[section]
		for _, k := range sortedKeys(kv) {
			fmt.Fprintf(h, "%s\x00%s\x00", k, kv[k])
		}
	}
	digest := fmt.Sprintf("%x", h.Sum(nil))
	if len(digest) > HashLen {
		digest = digest[:HashLen]
	}
	return base + "_" + digest
}

// Flatten turns a tuple-valued category (as produced by params.Category)
// into the string-keyed representation Extend expects, joining tuples
// with the unprintable "\x01" separator.
func Flatten(strs map[string]string, tuples map[string][]string, bools map[string]bool) map[string]string {
	out := make(map[string]string, len(strs)+len(tuples)+len(bools))
	for k, v := range strs {
		out[k] = v
	}
	for k, v := range tuples {
		out[k] = strings.Join(v, "\x01")
	}
	for k, v := range bools {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
