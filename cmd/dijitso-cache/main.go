// Command dijitso-cache is a thin external tool for browsing and
// pruning a dijitso cache directory: it never links against the
// dijitso build pipeline itself, only against internal/params and
// internal/cache's path helpers, per spec.md §6's "external, listed
// for completeness" CLI surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/miklos1/dijitso/internal/cache"
	"github.com/miklos1/dijitso/internal/params"
)

func main() {
	flag.Parse()
	args := flag.Args()
	verb := "show"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	verbs := map[string]func(args []string) error{
		"config":   cmdConfig,
		"show":     cmdShow,
		"clean":    cmdClean,
		"grep":     cmdGrep,
		"checkout": cmdCheckout,
	}
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "dijitso-cache <config|show|clean|grep|checkout> [options]\n")
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		os.Exit(2)
	}
	if err := v(args); err != nil {
		log.Fatal(err)
	}
}

// resolvedCacheParams validates the environment/config-file-derived
// parameter set (no programmatic overrides: this tool only inspects
// whatever a dijitso-using process would resolve) and wraps the cache
// category in cache.Params for path construction.
func resolvedCacheParams() (cache.Params, params.Set, error) {
	resolved, err := params.Validate(nil)
	if err != nil {
		return cache.Params{}, params.Set{}, err
	}
	return cache.NewParams(resolved.Cache), resolved, nil
}

func cmdConfig(args []string) error {
	fset := flag.NewFlagSet("config", flag.ExitOnError)
	fset.Parse(args)

	_, resolved, err := resolvedCacheParams()
	if err != nil {
		return err
	}
	fmt.Println("[cache]")
	printCategory(resolved.Cache)
	fmt.Println("[build]")
	printCategory(resolved.Build)
	if len(resolved.Generator) > 0 {
		fmt.Println("[generator]")
		printCategory(resolved.Generator)
	}
	return nil
}

func printCategory(c params.Category) {
	for _, k := range sortedKeys(c) {
		switch {
		case c[k].Bool != nil:
			fmt.Printf("%s = %v\n", k, *c[k].Bool)
		case c[k].String != nil:
			fmt.Printf("%s = %s\n", k, *c[k].String)
		case c[k].Strings != nil:
			fmt.Printf("%s = %v\n", k, c[k].Strings)
		}
	}
}
