package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines template, image and output paths to a set of
// allowed directories. The first root is the working directory relative
// paths are resolved against.
type PathValidator struct {
	roots []string
}

// NewPathValidator creates a validator for the given directories. Roots need
// not exist yet; an output directory is often created on first use.
func NewPathValidator(workDir string, extraRoots ...string) (*PathValidator, error) {
	if workDir == "" {
		return nil, fmt.Errorf("working directory cannot be empty")
	}

	v := &PathValidator{}
	for _, root := range append([]string{workDir}, extraRoots...) {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", root, err)
		}
		v.roots = append(v.roots, filepath.Clean(abs))
	}
	return v, nil
}

// WorkDir returns the directory relative paths resolve against
func (v *PathValidator) WorkDir() string {
	return v.roots[0]
}

// Roots returns every allowed directory
func (v *PathValidator) Roots() []string {
	out := make([]string, len(v.roots))
	copy(out, v.roots)
	return out
}

// Resolve turns path into a clean absolute path and checks that it lies
// inside one of the roots, following symlinks on both sides.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.WorkDir(), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	if !v.Within(abs) {
		return "", fmt.Errorf("path is outside the allowed directories: %s", path)
	}
	return abs, nil
}

// Within reports whether an absolute path lies inside one of the roots
func (v *PathValidator) Within(path string) bool {
	real := realPath(path)
	for _, root := range v.roots {
		realRoot := realPath(root)
		lexical := contains(root, path) || contains(realRoot, path)
		resolved := contains(root, real) || contains(realRoot, real)
		if lexical && resolved {
			return true
		}
	}
	return false
}

// ResolveOutput resolves a file name for writing. The parent directory must
// be inside a root; the file itself may not exist yet.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", abs)
	}
	return abs, nil
}

// realPath follows symlinks of the longest existing prefix of path
func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	dir, file := filepath.Split(path)
	dir = filepath.Clean(dir)
	if dir == path || dir == "." || dir == string(filepath.Separator) {
		return path
	}
	return filepath.Join(realPath(dir), file)
}

func contains(dir, path string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
