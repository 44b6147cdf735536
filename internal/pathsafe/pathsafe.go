package pathsafe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal indicates an attempt to escape a library root. The raw
// attempted path is deliberately not included in the error text; callers log
// a sanitized form at most.
var ErrPathTraversal = errors.New("path escapes library root")

// RejectedDirName is the directory under a library root that holds rejected
// media. Subtrees whose name starts with this prefix are excluded from all
// listing and navigation operations.
const RejectedDirName = ".rejected"

// Resolve maps relativePath to an absolute path beneath rootPath.
//
// Rules, applied in order: reject any ".." segment, reject absolute paths,
// normalize, join with the root, resolve symlinks, and re-verify the result
// is still lexically beneath the root. Violations fail with ErrPathTraversal;
// the path is never silently clamped.
func Resolve(rootPath, relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) || strings.HasPrefix(relativePath, "/") {
		return "", ErrPathTraversal
	}
	for _, seg := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if seg == ".." {
			return "", ErrPathTraversal
		}
	}

	cleaned := filepath.Clean(relativePath)
	if cleaned == "." {
		cleaned = ""
	}
	// Clean can only introduce ".." from existing ".." segments, which were
	// rejected above, but re-check rather than assume.
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return "", err
	}

	full := filepath.Join(absRoot, cleaned)

	resolved, err := resolveSymlinks(full)
	if err != nil {
		return "", err
	}
	resolvedRoot, err := resolveSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	if !within(resolvedRoot, resolved) {
		return "", ErrPathTraversal
	}
	return full, nil
}

// resolveSymlinks evaluates symlinks for path. If the path does not exist
// yet (e.g. a sidecar about to be created), the deepest existing ancestor is
// evaluated instead and the remaining segments are re-joined.
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)
	if dir == path {
		// Reached the filesystem root without finding an existing ancestor.
		return path, nil
	}
	resolvedDir, err := resolveSymlinks(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

// within reports whether path is root itself or lexically beneath it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// IsRejected reports whether any segment of the relative path places it
// inside a rejected subtree.
func IsRejected(relativePath string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if strings.HasPrefix(seg, RejectedDirName) {
			return true
		}
	}
	return false
}
