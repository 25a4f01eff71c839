package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathGuard keeps every path inside a base directory.
type PathGuard struct {
	BaseDir string
}

// NewPathGuard roots the guard at baseDir, or at the working directory when
// baseDir is empty.
func NewPathGuard(baseDir string) (*PathGuard, error) {
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	return &PathGuard{BaseDir: absBase}, nil
}

// Resolve returns the absolute form of a relative path. Absolute paths and
// paths that climb out of BaseDir are rejected.
func (g *PathGuard) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is required")
	}
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("absolute path %q is not allowed", p)
	}
	abs := filepath.Clean(filepath.Join(g.BaseDir, clean))

	if !within(abs, g.BaseDir) {
		return "", fmt.Errorf("path %q escapes the workspace", p)
	}

	// Symlinks inside the workspace must not lead out of it.
	realBase, err := filepath.EvalSymlinks(g.BaseDir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	realPath, err := evalExisting(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	if !within(realPath, realBase) {
		return "", fmt.Errorf("path %q escapes the workspace through a symlink", p)
	}
	return abs, nil
}

// evalExisting resolves symlinks in the deepest existing ancestor of p and
// re-appends the part that does not exist yet.
func evalExisting(p string) (string, error) {
	rest := ""
	for cur := p; ; {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(p, base string) bool {
	return p == base || strings.HasPrefix(p, base+string(os.PathSeparator))
}
