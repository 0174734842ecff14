package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the data root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// ItemPath returns the relative path for an item file. Date-keyed types
// nest under a date subdirectory derived from the ID.
func ItemPath(itemType, id string) string {
	name := fmt.Sprintf("%s-%s.md", itemType, id)
	if models.DateKeyed(itemType) && len(id) >= 10 {
		return filepath.Join(itemType, id[:10], name)
	}
	return filepath.Join(itemType, name)
}

// safePath resolves a relative path against the data root and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes data root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of an item file.
func (f *FS) Read(itemType, id string) ([]byte, error) {
	abs, err := f.safePath(ItemPath(itemType, id))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s-%s: %w", itemType, id, err)
	}
	return data, nil
}

// Exists reports whether an item file is present on disk.
func (f *FS) Exists(itemType, id string) bool {
	abs, err := f.safePath(ItemPath(itemType, id))
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (f *FS) Write(itemType, id string, content []byte) error {
	abs, err := f.safePath(ItemPath(itemType, id))
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes an item file.
func (f *FS) Delete(itemType, id string) error {
	abs, err := f.safePath(ItemPath(itemType, id))
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s-%s: %w", itemType, id, err)
	}
	return nil
}

// ListType walks the type's directory and returns every item file.
// A missing directory is an empty result.
func (f *FS) ListType(itemType string) ([]FileInfo, error) {
	base, err := f.safePath(itemType)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}
	var out []FileInfo
	prefix := itemType + "-"
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		id := strings.TrimSuffix(strings.TrimPrefix(d.Name(), prefix), ".md")
		if id == "" || !strings.HasPrefix(d.Name(), prefix) {
			return nil
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, FileInfo{Type: itemType, ID: id, Path: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", itemType, err)
	}
	return out, nil
}

// ListTypeDirs returns the names of all top-level type directories.
func (f *FS) ListTypeDirs() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list type dirs: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// HasItems reports whether any item file exists for the type.
func (f *FS) HasItems(itemType string) (bool, error) {
	files, err := f.ListType(itemType)
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// RemoveTypeDir deletes the type's directory only when it holds no items.
func (f *FS) RemoveTypeDir(itemType string) error {
	has, err := f.HasItems(itemType)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("storage: type dir %s is not empty", itemType)
	}
	abs, err := f.safePath(itemType)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: remove type dir %s: %w", itemType, err)
	}
	return nil
}
