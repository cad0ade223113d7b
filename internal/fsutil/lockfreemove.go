package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// LockFreeMove atomically installs src at dst without relying on an
// external lock service, even when several peer processes race to
// install the same dst over NFS.
//
// Protocol (ported at the design level from dijitso's lockfree_move_file):
//
//  1. If dst already exists, compare its content against src. If
//     identical, src is redundant: delete it and return. If different,
//     warn and delete src without touching dst (first writer wins).
//  2. Generate a UUID u and rename src -> dst+".priv."+u, which lands
//     the bytes on dst's filesystem.
//  3. Rename dst+".priv."+u -> dst+".pub."+u: this makes the candidate
//     atomically visible to peers (a single rename is atomic even on
//     NFS; listing a directory is not, so visibility is established by
//     existence of a uniquely-named file, not by directory state).
//  4. Enumerate sibling dst+".pub.*" candidates and parse their UUIDs.
//  5. Delete every competitor with a UUID strictly greater than ours
//     (losers yield to the lowest UUID).
//  6. If a competitor has a UUID strictly lower than ours, delete our
//     own candidate and adopt that UUID as "ours" (cooperative yield).
//  7. If dst now exists, a peer already won: delete our candidate.
//     Otherwise attempt dst+".pub."+ui -> dst, ignoring EEXIST from a
//     racing peer that wins the rename first.
//
// Postcondition: dst exists, and this call leaves behind no ".priv" or
// ".pub" stragglers of its own.
func LockFreeMove(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return xerrors.Errorf("fsutil: lockfree move: source missing: %w", err)
	}

	if dstContent, err := os.ReadFile(dst); err == nil {
		srcContent, err := os.ReadFile(src)
		if err != nil {
			return xerrors.Errorf("fsutil: lockfree move: read src: %w", err)
		}
		if string(srcContent) == string(dstContent) {
			return TryRemove(src)
		}
		// Different bytes: the existing file wins, we only warn.
		warnf("lockfree move: %s already exists with different content, keeping existing file", dst)
		return TryRemove(src)
	} else if !os.IsNotExist(err) {
		return xerrors.Errorf("fsutil: lockfree move: stat dst: %w", err)
	}

	u := uuid.New().String()
	priv := dst + ".priv." + u
	pub := dst + ".pub." + u

	if err := os.Rename(src, priv); err != nil {
		return xerrors.Errorf("fsutil: lockfree move: stage priv: %w", err)
	}
	if err := os.Rename(priv, pub); err != nil {
		return xerrors.Errorf("fsutil: lockfree move: stage pub: %w", err)
	}

	ui := u
	ourPub := pub
	for {
		competitors, err := globPub(dst)
		if err != nil {
			return err
		}

		lowest := ui
		for _, c := range competitors {
			if c < lowest {
				lowest = c
			}
		}
		for _, c := range competitors {
			if c == ui {
				continue
			}
			if c > ui {
				// Loser: try to clean it up, ignore failures (another
				// peer may already be cleaning it too).
				_ = TryRemove(pubName(dst, c))
			}
		}
		if lowest != ui {
			// Yield to a strictly lower UUID: delete our own candidate
			// and adopt the lower identity.
			if err := TryRemove(ourPub); err != nil {
				return err
			}
			ui = lowest
			ourPub = pubName(dst, ui)
			continue
		}
		break
	}

	if _, err := os.Stat(dst); err == nil {
		// A peer already published dst under a lower UUID than any we
		// saw, or raced us to the final rename.
		return TryRemove(ourPub)
	} else if !os.IsNotExist(err) {
		return xerrors.Errorf("fsutil: lockfree move: stat dst: %w", err)
	}

	if err := os.Rename(ourPub, dst); err != nil {
		if os.IsNotExist(err) {
			// Someone else already renamed it away from under us.
			return nil
		}
		if os.IsExist(err) {
			return TryRemove(ourPub)
		}
		return xerrors.Errorf("fsutil: lockfree move: final rename: %w", err)
	}
	return nil
}

func pubName(dst, u string) string {
	return dst + ".pub." + u
}

// globPub enumerates the UUID suffixes of dst+".pub.*" siblings.
func globPub(dst string) ([]string, error) {
	matches, err := filepath.Glob(dst + ".pub.*")
	if err != nil {
		return nil, xerrors.Errorf("fsutil: lockfree move: glob: %w", err)
	}
	prefix := filepath.Base(dst) + ".pub."
	var ids []string
	for _, m := range matches {
		base := filepath.Base(m)
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(base, prefix))
	}
	sort.Strings(ids)
	return ids, nil
}
