package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/validate"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, key string)

// Watch starts an fsnotify watcher on the data root and keeps the index in
// step with out-of-band file edits until ctx is cancelled. It calls cb (if
// non-nil) after each successful index mutation.
//
// New type directories created at runtime are added to the watch list.
// Rename events trigger a debounced reconciliation pass that prunes index
// rows whose files no longer exist and indexes files that appeared.
func Watch(ctx context.Context, db *DB, store storage.Provider, dataRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, dataRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", dataRoot))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileWithDisk(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories (custom types, date subdirs): start watching.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					indexNewDir(db, store, dataRoot, absPath, logger, cb)
					continue
				}
			}

			rel, relErr := filepath.Rel(dataRoot, absPath)
			if relErr != nil {
				continue
			}
			itemType, id, ok := keyFromRel(rel)
			if !ok {
				continue
			}
			key := models.ItemKey(itemType, id)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if idxErr := indexItemFile(db, store, itemType, id); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("key", key), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("key", key), slog.String("op", kind))
				if cb != nil {
					cb(kind, key)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteItem(itemType, id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("key", key), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("key", key))
				if cb != nil {
					cb("deleted", key)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create event. Delete the old row
				// now and reconcile shortly after for stragglers.
				if delErr := db.DeleteItem(itemType, id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("key", key), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("key", key))
					if cb != nil {
						cb("deleted", key)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// keyFromRel maps a relative file path to its (type, id). The type is the
// first path component; the ID is what remains of the filename after the
// "{type}-" prefix and ".md" suffix.
func keyFromRel(rel string) (itemType, id string, ok bool) {
	if !strings.HasSuffix(rel, ".md") {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	itemType = parts[0]
	name := parts[len(parts)-1]
	prefix := itemType + "-"
	if !strings.HasPrefix(name, prefix) {
		return "", "", false
	}
	id = strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".md")
	if id == "" {
		return "", "", false
	}
	return itemType, id, true
}

// indexItemFile reads, decodes, and upserts one item file, registering its
// tags on the way.
func indexItemFile(db *DB, store storage.Provider, itemType, id string) error {
	data, err := store.Read(itemType, id)
	if err != nil {
		return err
	}
	meta, body := parser.Decode(data)
	tags := validate.CleanTags(meta.Tags)

	row := ItemRow{
		Type:        itemType,
		ID:          id,
		Title:       meta.Title,
		Description: meta.Description,
		Priority:    meta.Priority,
		StartDate:   meta.StartDate,
		EndDate:     meta.EndDate,
		Tags:        tags,
		Related:     meta.Related,
		Version:     meta.Version,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
	}
	if meta.Status != "" {
		if st, stErr := db.StatusByName(meta.Status); stErr == nil {
			row.StatusID = st.ID
		}
	}
	if err := db.UpsertItem(row, body); err != nil {
		return err
	}
	return db.EnsureTags(tags)
}

// reconcileWithDisk prunes index rows without a file on disk and indexes
// files that are missing from the index.
func reconcileWithDisk(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	keys, err := db.AllKeys()
	if err != nil {
		logger.Warn("reconcile: all keys failed", slog.String("error", err.Error()))
		return
	}

	dirs, err := store.ListTypeDirs()
	if err != nil {
		logger.Warn("reconcile: list dirs failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[ItemKeyPair]struct{})
	for _, typeName := range dirs {
		files, listErr := store.ListType(typeName)
		if listErr != nil {
			logger.Warn("reconcile: list failed", slog.String("type", typeName), slog.String("error", listErr.Error()))
			continue
		}
		for _, f := range files {
			k := ItemKeyPair{Type: f.Type, ID: f.ID}
			disk[k] = struct{}{}
			if _, indexed := keys[k]; indexed {
				continue
			}
			if idxErr := indexItemFile(db, store, f.Type, f.ID); idxErr == nil {
				logger.Debug("reconcile: indexed new", slog.String("key", models.ItemKey(f.Type, f.ID)))
				if cb != nil {
					cb("created", models.ItemKey(f.Type, f.ID))
				}
			}
		}
	}

	for k := range keys {
		if _, ok := disk[k]; !ok {
			if delErr := db.DeleteItem(k.Type, k.ID); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("key", models.ItemKey(k.Type, k.ID)))
				if cb != nil {
					cb("deleted", models.ItemKey(k.Type, k.ID))
				}
			}
		}
	}
}

// indexNewDir indexes any item files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, dataRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(dataRoot, path)
		if relErr != nil {
			return nil
		}
		itemType, id, ok := keyFromRel(rel)
		if !ok {
			return nil
		}
		if idxErr := indexItemFile(db, store, itemType, id); idxErr == nil {
			key := models.ItemKey(itemType, id)
			logger.Debug("watcher: indexed from new dir", slog.String("key", key))
			if cb != nil {
				cb("created", key)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
