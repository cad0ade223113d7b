package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// cmdCheckout copies every category's artifact for one signature into
// a local directory, so a user can inspect or rebuild it by hand. The
// four categories are independent files, so they're copied
// concurrently, the same way distri installs a package's files with
// maximum concurrency via errgroup.
func cmdCheckout(args []string) error {
	fset := flag.NewFlagSet("checkout", flag.ExitOnError)
	outDir := fset.String("out", ".", "directory to copy artifacts into")
	fset.Parse(args)
	rest := fset.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dijitso-cache checkout [-out=dir] <signature>")
	}
	signature := rest[0]

	cacheParams, _, err := resolvedCacheParams()
	if err != nil {
		return err
	}

	candidates := map[string]string{
		"inc": cacheParams.IncFilename(signature),
		"src": cacheParams.SrcFilename(signature),
		"lib": cacheParams.LibFilename(signature),
		"log": cacheParams.LogFilename(signature),
	}

	var copied int32
	var eg errgroup.Group
	for _, category := range allCategories {
		src := candidates[category]
		eg.Go(func() error {
			resolved, ok, err := resolveCheckoutSource(src)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := copyFile(resolved, filepath.Join(*outDir, filepath.Base(resolved))); err != nil {
				return fmt.Errorf("checking out %s: %w", resolved, err)
			}
			fmt.Printf("checked out %s\n", resolved)
			atomic.AddInt32(&copied, 1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if copied == 0 {
		return fmt.Errorf("no cached artifacts found for signature %q", signature)
	}
	return nil
}

// resolveCheckoutSource returns the actual file to copy for a
// candidate path, following the transparent .gz fallback src_storage
// can leave behind, or ok=false if neither variant exists.
func resolveCheckoutSource(candidate string) (path string, ok bool, err error) {
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, err
	}
	gzCandidate := candidate + ".gz"
	if _, err := os.Stat(gzCandidate); err == nil {
		return gzCandidate, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, err
	}
	return "", false, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
