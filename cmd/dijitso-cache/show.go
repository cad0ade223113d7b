package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// cmdShow prints, per requested category, the directory path and a
// count of the artifacts found there.
func cmdShow(args []string) error {
	fset := flag.NewFlagSet("show", flag.ExitOnError)
	categoryFlag := fset.String("category", "", "comma-separated subset of inc,src,lib,log (default: all)")
	verbose := fset.Bool("verbose", false, "list each artifact's filename, not just the count")
	fset.Parse(args)

	categories, err := parseCategories(*categoryFlag)
	if err != nil {
		return err
	}

	cacheParams, _, err := resolvedCacheParams()
	if err != nil {
		return err
	}
	fmt.Printf("cache_dir = %s\n", cacheParams.Root())

	for _, category := range categories {
		dir, err := cacheParams.CategoryDir(category)
		if err != nil {
			return err
		}
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			fmt.Printf("%-4s %-40s (not created yet)\n", category, dir)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("%-4s %-40s %d file(s)\n", category, dir, len(entries))
		if *verbose {
			for _, e := range entries {
				fmt.Printf("  %s\n", filepath.Join(dir, e.Name()))
			}
		}
	}
	return nil
}
