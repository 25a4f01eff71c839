package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.FileSystemPort = (*Filesystem)(nil)

// Filesystem serves file actions rooted at the workspace directory.
type Filesystem struct {
	guard *PathGuard
}

func NewFilesystem(baseDir string) (*Filesystem, error) {
	guard, err := NewPathGuard(baseDir)
	if err != nil {
		return nil, err
	}
	return &Filesystem{guard: guard}, nil
}

func (f *Filesystem) BaseDir() string {
	return f.guard.BaseDir
}

func (f *Filesystem) WriteFile(path, content string) error {
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	return os.WriteFile(resolved, []byte(content), 0o644)
}

func (f *Filesystem) ReadFile(path string) (*entity.FileContent, error) {
	data, err := f.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not a UTF-8 text file", path)
	}
	content := string(data)
	return &entity.FileContent{
		Path:    path,
		Content: content,
		Lines:   CountLines(content),
		Size:    int64(len(data)),
	}, nil
}

func (f *Filesystem) ReadBytes(path string) ([]byte, error) {
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return os.ReadFile(resolved)
}

// ListFiles returns the immediate children of a directory, sorted by name.
func (f *Filesystem) ListFiles(path string) (*entity.DirListing, error) {
	if path == "" {
		path = "."
	}
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	listing := &entity.DirListing{
		Path:        path,
		Files:       []entity.FileInfo{},
		Directories: []string{},
	}
	for _, e := range entries {
		if e.IsDir() {
			listing.Directories = append(listing.Directories, e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		listing.Files = append(listing.Files, entity.FileInfo{
			Name:      e.Name(),
			Size:      info.Size(),
			Extension: filepath.Ext(e.Name()),
		})
	}
	return listing, nil
}

// CountLines counts newline-separated lines; a trailing newline opens an
// empty last line. Empty content has zero lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
