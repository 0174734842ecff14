// Package storage defines the item file-store abstraction.
//
// Files are the durable source of truth: one Markdown file per item under
// a type-specific directory. The index is always derived from them.
package storage

// FileInfo identifies one item file on disk.
type FileInfo struct {
	Type string
	ID   string
	Path string // relative to the data root
}

// Provider is the interface for item file operations.
type Provider interface {
	// Read returns the raw bytes of an item file.
	Read(itemType, id string) ([]byte, error)
	// Write atomically writes an item file, creating directories as needed.
	Write(itemType, id string, content []byte) error
	// Delete removes an item file. Returns os.ErrNotExist wrapped if absent.
	Delete(itemType, id string) error
	// Exists reports whether an item file is present.
	Exists(itemType, id string) bool
	// ListType returns every item file of one type. A missing or empty
	// type directory yields an empty list, not an error.
	ListType(itemType string) ([]FileInfo, error)
	// ListTypeDirs returns the names of all top-level type directories.
	ListTypeDirs() ([]string, error)
	// HasItems reports whether any item file exists for the type.
	HasItems(itemType string) (bool, error)
	// RemoveTypeDir deletes the type's directory tree if it holds no
	// item files.
	RemoveTypeDir(itemType string) error
}
