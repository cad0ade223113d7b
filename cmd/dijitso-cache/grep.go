package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// cmdGrep searches artifacts in the requested categories for a
// substring, printing "path:lineno:line" for text files and, for lib
// (binary) artifacts, only whether the pattern occurs anywhere in the
// file's bytes.
func cmdGrep(args []string) error {
	fset := flag.NewFlagSet("grep", flag.ExitOnError)
	categoryFlag := fset.String("category", "", "comma-separated subset of inc,src,lib,log (default: all)")
	fset.Parse(args)
	rest := fset.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dijitso-cache grep [-category=...] <pattern>")
	}
	pattern := rest[0]

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
			if category == "lib" {
				if err := grepBinary(path, pattern); err != nil {
					return err
				}
				continue
			}
			if err := grepText(path, pattern); err != nil {
				return err
			}
		}
	}
	return nil
}

func grepText(path, pattern string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		if strings.Contains(scanner.Text(), pattern) {
			fmt.Printf("%s:%d:%s\n", path, lineno, scanner.Text())
		}
	}
	return scanner.Err()
}

func grepBinary(path, pattern string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.Contains(string(b), pattern) {
		fmt.Printf("%s: matches\n", path)
	}
	return nil
}
