package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path validates file paths to prevent path traversal (CWE-22).
// Paths must resolve inside the working directory or one of the
// explicitly allowed directories, after symlink resolution.
type Path struct {
	allowedDirs []string
	workDir     string
}

// NewPath creates a path validator. An empty allowedDirs restricts access
// to the working directory only.
func NewPath(allowedDirs []string) (*Path, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	absDirs := make([]string, 0, len(allowedDirs))
	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving directory %s: %w", dir, err)
		}
		absDirs = append(absDirs, absDir)
	}

	return &Path{allowedDirs: absDirs, workDir: workDir}, nil
}

// Validate cleans and checks a path, returning a safe absolute path.
func (v *Path) Validate(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !v.within(absPath) {
		return "", fmt.Errorf("access denied: path %q is outside allowed directories", absPath)
	}

	// Resolve symlinks so a link inside an allowed directory cannot point
	// outside it.
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Target does not exist yet; the lexical check above suffices.
			return absPath, nil
		}
		return "", fmt.Errorf("resolving symlink: %w", err)
	}

	if realPath != absPath && !v.within(realPath) {
		return "", fmt.Errorf("access denied: symlink target %q is outside allowed directories", realPath)
	}

	return realPath, nil
}

// within reports whether abs is inside the working directory or an allowed
// directory.
func (v *Path) within(abs string) bool {
	dirs := append([]string{v.workDir}, v.allowedDirs...)
	withSep := filepath.Clean(abs) + string(filepath.Separator)
	for _, dir := range dirs {
		norm := filepath.Clean(dir) + string(filepath.Separator)
		if strings.HasPrefix(withSep, norm) || abs == dir {
			return true
		}
	}
	return false
}
