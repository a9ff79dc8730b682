// Package fsutil contains filesystem safety helpers shared by the upload
// handler, the media file server and the device-side fetcher.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfineRelPath joins root and relTarget and ensures the result stays
// physically underneath the resolved root. It rejects absolute targets,
// backslashes and traversal, and follows symlinks so an escaping link is
// caught even when the final component does not exist yet.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", relTarget)
	}

	cleanRel := filepath.Clean(relTarget)
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("target path must be relative: %s", relTarget)
	}
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt: %s", relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		realRoot = absRoot
	}

	fullPath := filepath.Join(realRoot, cleanRel)

	// Resolve the target (or, when it does not exist yet, its parent) so a
	// symlink pointing outside the root cannot slip through.
	var realPath string
	if _, err := os.Lstat(fullPath); err == nil {
		realPath, err = filepath.EvalSymlinks(fullPath)
		if err != nil {
			return "", fmt.Errorf("resolve path: %w", err)
		}
	} else {
		dir := filepath.Dir(fullPath)
		if realDir, evalErr := filepath.EvalSymlinks(dir); evalErr == nil {
			realPath = filepath.Join(realDir, filepath.Base(fullPath))
		} else if _, statErr := os.Stat(dir); statErr == nil {
			// Parent exists but cannot be resolved: fail closed.
			return "", fmt.Errorf("resolve parent path: %w", evalErr)
		} else {
			realPath = fullPath
		}
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", realPath)
	}
	return realPath, nil
}

// SafeBaseName reduces an untrusted upload filename to its final path element
// and validates that it is a plain name. It is the first gate for filenames
// arriving over the wire.
func SafeBaseName(name string) (string, error) {
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("filename contains backslash: %s", name)
	}
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("filename contains NUL byte")
	}
	return base, nil
}

// IsRegularFile checks that path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
