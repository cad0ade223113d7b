package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// cmdClean removes artifacts from the requested categories, printing
// each path it would remove (or did remove, absent -dry_run).
func cmdClean(args []string) error {
	fset := flag.NewFlagSet("clean", flag.ExitOnError)
	categoryFlag := fset.String("category", "", "comma-separated subset of inc,src,lib,log (default: all)")
	dryRun := fset.Bool("dry_run", false, "only print what would be removed")
	fset.Parse(args)

	categories, err := parseCategories(*categoryFlag)
	if err != nil {
		return err
	}
	cacheParams, _, err := resolvedCacheParams()
	if err != nil {
		return err
	}

	for _, category := range categories {
		dir, err := cacheParams.CategoryDir(category)
		if err != nil {
			return err
		}
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if *dryRun {
				fmt.Printf("would remove %s\n", path)
				continue
			}
			if err := os.Remove(path); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", path)
		}
	}
	return nil
}
