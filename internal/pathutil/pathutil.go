// Package pathutil implements the Path Resolver (spec.md §4.1, C1):
// canonicalizing user-supplied paths and deriving the stable project id
// that is the sole join key between registered projects and kilds on
// disk.
package pathutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/re-cinq/kild/internal/kilderr"
)

// Canonicalize resolves "~", a missing leading "/", symlinks, and
// filesystem case (on case-insensitive filesystems) for p, the way
// spec.md §4.1 specifies. It fails with PathNotAccessibleError if the
// resulting path does not exist or cannot be stat'd.
func Canonicalize(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", &kilderr.PathNotAccessibleError{Path: p, Err: os.ErrInvalid}
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &kilderr.PathNotAccessibleError{Path: p, Err: err}
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}

	if !filepath.IsAbs(p) {
		slashed := "/" + p
		if info, err := os.Stat(slashed); err == nil && info.IsDir() {
			p = slashed
		} else if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", &kilderr.PathNotAccessibleError{Path: p, Err: err}
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", &kilderr.PathNotAccessibleError{Path: p, Err: err}
	}

	clean := filepath.Clean(resolved)
	if caseInsensitiveFS() {
		clean = normalizeCase(clean)
	}
	return clean, nil
}

// caseInsensitiveFS reports whether the host platform's default
// filesystem is case-insensitive (macOS, Windows). This mirrors the
// teacher-domain assumption in spec.md §4.1's worked example
// ("/users/x and /Users/X on macOS must map to the same id") without
// touching the actual filesystem, since a case-insensitive mount can
// exist on any platform and a false negative here only costs a
// project-id migration, never correctness within a single run.
func caseInsensitiveFS() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	default:
		return false
	}
}

func normalizeCase(p string) string { return strings.ToLower(p) }

// ProjectID derives the stable hex digest of a canonical project path
// (spec.md §4.1). The hash is a pure function of the canonical path
// string so it is deterministic across runs and processes.
func ProjectID(canonicalPath string) string {
	sum := sha256.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:])[:16]
}

// CanonicalProjectID canonicalizes p and returns its project id in one
// step — the common case for callers that don't need the intermediate
// canonical path.
func CanonicalProjectID(p string) (id, canonical string, err error) {
	canonical, err = Canonicalize(p)
	if err != nil {
		return "", "", err
	}
	return ProjectID(canonical), canonical, nil
}
