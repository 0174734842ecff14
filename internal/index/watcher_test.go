package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
)

// watcherTestEnv sets up a data dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	return dataDir, store, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, db *DB, store storage.Provider, dataDir string) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Watch(ctx, db, store, dataDir, logger, nil)
	time.Sleep(100 * time.Millisecond)
}

func hasRow(db *DB, itemType, id string) bool {
	rows, _ := db.ListItems(itemType, ListOptions{IncludeClosed: true})
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	if err := os.MkdirAll(filepath.Join(dataDir, "issues"), 0o755); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, db, store, dataDir)

	data, _ := parser.Encode(parser.Meta{Title: "Out of band", Base: "tasks"}, "added directly\n")
	if err := os.WriteFile(filepath.Join(dataDir, "issues", "issues-1.md"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return hasRow(db, "issues", "1")
	}, "new file not indexed by watcher")
}

func TestWatcher_RemovedFileDropped(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	data, _ := parser.Encode(parser.Meta{Title: "Doomed"}, "body\n")
	if err := store.Write("docs", "1", data); err != nil {
		t.Fatal(err)
	}
	mustUpsert(t, db, ItemRow{Type: "docs", ID: "1", Title: "Doomed"}, "body")
	startWatcher(t, db, store, dataDir)

	if err := os.Remove(filepath.Join(dataDir, "docs", "docs-1.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !hasRow(db, "docs", "1")
	}, "removed file still indexed")
}

func TestWatcher_NewTypeDirPickedUp(t *testing.T) {
	dataDir, store, db := watcherTestEnv(t)
	startWatcher(t, db, store, dataDir)

	// A brand-new type directory appearing at runtime gets watched and
	// its files indexed.
	if err := os.MkdirAll(filepath.Join(dataDir, "meetings"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	data, _ := parser.Encode(parser.Meta{Title: "Standup"}, "notes\n")
	if err := os.WriteFile(filepath.Join(dataDir, "meetings", "meetings-1.md"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return hasRow(db, "meetings", "1")
	}, "file in new type dir not indexed")
}

func TestKeyFromRel(t *testing.T) {
	cases := []struct {
		rel      string
		wantType string
		wantID   string
		ok       bool
	}{
		{"issues/issues-12.md", "issues", "12", true},
		{"dailies/2025-08-30/dailies-2025-08-30.md", "dailies", "2025-08-30", true},
		{"issues/README.md", "", "", false},
		{"issues/issues-.md", "", "", false},
		{"top-level.md", "", "", false},
		{"issues/issues-1.txt", "", "", false},
	}
	for _, c := range cases {
		gotType, gotID, ok := keyFromRel(filepath.FromSlash(c.rel))
		if ok != c.ok || gotType != c.wantType || gotID != c.wantID {
			t.Errorf("keyFromRel(%q) = %q, %q, %v; want %q, %q, %v",
				c.rel, gotType, gotID, ok, c.wantType, c.wantID, c.ok)
		}
	}
}
