package itemservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dataDir, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	return NewService(store, db), dataDir
}

func mustCreate(t *testing.T, svc *Service, p CreateParams) *models.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create(%s): %v", p.Type, err)
	}
	return item
}

func TestCreateGet_RoundTrip(t *testing.T) {
	svc, dataDir := testService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, CreateParams{
		Type:      "issues",
		Title:     "Fix login",
		Priority:  "high",
		Status:    "open",
		StartDate: "2025-01-10",
		Tags:      []string{"auth", "bug"},
		Related:   []string{"docs-1"},
		Body:      "Steps to reproduce.\n",
	})
	if created.ID != "1" {
		t.Errorf("first ID = %q, want 1", created.ID)
	}

	// The file lives at the documented path.
	path := filepath.Join(dataDir, "issues", "issues-1.md")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("item file missing: %v", err)
	}

	got, err := svc.Get(ctx, "issues", "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != created.Title || got.Priority != created.Priority ||
		got.Status != created.Status || got.StartDate != created.StartDate ||
		got.Body != created.Body {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, created)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "auth" {
		t.Errorf("tags = %v", got.Tags)
	}
	if len(got.Related) != 1 || got.Related[0] != "docs-1" {
		t.Errorf("related = %v", got.Related)
	}
}

func TestCreate_SequentialIDsPerType(t *testing.T) {
	svc, _ := testService(t)
	if it := mustCreate(t, svc, CreateParams{Type: "issues", Title: "a"}); it.ID != "1" {
		t.Errorf("issues first = %q", it.ID)
	}
	if it := mustCreate(t, svc, CreateParams{Type: "issues", Title: "b"}); it.ID != "2" {
		t.Errorf("issues second = %q", it.ID)
	}
	// Independent counter per type.
	if it := mustCreate(t, svc, CreateParams{Type: "docs", Title: "c"}); it.ID != "1" {
		t.Errorf("docs first = %q", it.ID)
	}
}

func TestCreate_UnknownType(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Create(context.Background(), CreateParams{Type: "nosuch", Title: "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate_DocumentFieldGate(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	cases := []CreateParams{
		{Type: "docs", Title: "x", Priority: "high"},
		{Type: "docs", Title: "x", Status: "open"},
		{Type: "docs", Title: "x", StartDate: "2025-01-01"},
		{Type: "docs", Title: "x", EndDate: "2025-01-01"},
	}
	for _, p := range cases {
		if _, err := svc.Create(ctx, p); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%+v): err = %v, want ErrValidation", p, err)
		}
	}
	// Content-only document is fine.
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "plain", Body: "content"})
}

func TestCreate_DateValidation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	for _, d := range []string{"2025-02-30", "2025-02-29", "2025-06-31"} {
		_, err := svc.Create(ctx, CreateParams{Type: "issues", Title: "x", StartDate: d})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("date %s: err = %v, want ErrValidation", d, err)
		}
		if err != nil && err.Error() != "Invalid date: "+d {
			t.Errorf("date %s: msg = %q", d, err.Error())
		}
	}
	for _, d := range []string{"2024-02-29", "2025-12-31"} {
		mustCreate(t, svc, CreateParams{Type: "issues", Title: "x", EndDate: d})
	}
}

func TestCreate_InvalidStatus(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Create(context.Background(), CreateParams{Type: "issues", Title: "x", Status: "bogus"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if err.Error() != "Invalid status: bogus" {
		t.Errorf("msg = %q", err.Error())
	}
}

func TestCreate_TitleRules(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "docs", Title: strings.Repeat("x", 500)})
	if _, err := svc.Create(ctx, CreateParams{Type: "docs", Title: strings.Repeat("x", 501)}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("501-char title: err = %v", err)
	}
	// Invisible characters are stripped before storing.
	it := mustCreate(t, svc, CreateParams{Type: "docs", Title: "he​llo"})
	if it.Title != "hello" {
		t.Errorf("title = %q, want hello", it.Title)
	}
}

func TestCreate_TagNormalization(t *testing.T) {
	svc, _ := testService(t)
	it := mustCreate(t, svc, CreateParams{Type: "docs", Title: "x", Tags: []string{"  a  ", "", "b", "a"}})
	if len(it.Tags) != 2 || it.Tags[0] != "a" || it.Tags[1] != "b" {
		t.Fatalf("tags = %v, want [a b]", it.Tags)
	}
	// Cleaned names were registered as a side effect of the write.
	tags, err := svc.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("registered tags = %v", tags)
	}
}

func TestCreate_ReferenceRules(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	// The next issues ID is 1, so issues-1 is a self-reference.
	if _, err := svc.Create(ctx, CreateParams{Type: "issues", Title: "x", Related: []string{"issues-1"}}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self reference: err = %v", err)
	}
	if _, err := svc.Create(ctx, CreateParams{Type: "issues", Title: "x", Related: []string{""}}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty reference: err = %v", err)
	}
	// Dangling references are allowed.
	it := mustCreate(t, svc, CreateParams{Type: "issues", Title: "x", Related: []string{"ghosts-9", "ghosts-9"}})
	if len(it.Related) != 1 {
		t.Errorf("related = %v, want deduped", it.Related)
	}
}

func TestCreate_DateKeyedIDs(t *testing.T) {
	svc, _ := testService(t)
	fixed := time.Date(2025, 8, 30, 14, 2, 11, 123_000_000, time.UTC)
	svc.now = func() time.Time { return fixed }

	session := mustCreate(t, svc, CreateParams{Type: "sessions", Title: "Work"})
	if session.ID != "2025-08-30-14.02.11.123" {
		t.Errorf("session ID = %q", session.ID)
	}
	daily := mustCreate(t, svc, CreateParams{Type: "dailies", Title: "Day"})
	if daily.ID != "2025-08-30" {
		t.Errorf("daily ID = %q", daily.ID)
	}
}

func TestGet_NotFoundAndStaleRow(t *testing.T) {
	svc, dataDir := testService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "issues", "404"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing item: err = %v", err)
	}

	// Delete the file out of band: the stale search row must not
	// resurrect the item, and listing must not error.
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "doomed", Status: "open"})
	if err := os.Remove(filepath.Join(dataDir, "issues", "issues-1.md")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Get(ctx, "issues", "1")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("after out-of-band delete: err = %v", err)
	}
	if err.Error() != "Item issues ID 1 not found" {
		t.Errorf("msg = %q", err.Error())
	}
	if _, err := svc.List(ctx, "issues", index.ListOptions{}); err != nil {
		t.Errorf("List after out-of-band delete: %v", err)
	}
}

func TestGet_CorruptedMetadata(t *testing.T) {
	svc, dataDir := testService(t)
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "good"})
	path := filepath.Join(dataDir, "docs", "docs-1.md")
	if err := os.WriteFile(path, []byte("---\n: broken: yaml {{{\n---\nthe body lives\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(context.Background(), "docs", "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "" {
		t.Errorf("title = %q, want zero value", got.Title)
	}
	if !strings.Contains(got.Body, "the body lives") {
		t.Errorf("body = %q", got.Body)
	}
}

func TestUpdate_PartialAndClear(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{
		Type: "issues", Title: "before", Status: "open",
		Related: []string{"docs-1"}, Body: "old body",
	})

	newTitle := "after"
	got, err := svc.Update(ctx, "issues", "1", UpdateParams{Title: &newTitle})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "after" || got.Status != "open" || got.Body != "old body" {
		t.Errorf("partial update touched other fields: %+v", got)
	}
	if len(got.Related) != 1 {
		t.Errorf("related lost: %v", got.Related)
	}

	// Explicit empty slice clears; nil leaves unchanged.
	empty := []string{}
	got, err = svc.Update(ctx, "issues", "1", UpdateParams{Related: &empty})
	if err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if len(got.Related) != 0 {
		t.Errorf("related not cleared: %v", got.Related)
	}
}

func TestUpdate_Validates(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "x"})

	bad := "2025-02-30"
	if _, err := svc.Update(ctx, "issues", "1", UpdateParams{StartDate: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad date: err = %v", err)
	}
	self := []string{"issues-1"}
	if _, err := svc.Update(ctx, "issues", "1", UpdateParams{Related: &self}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self reference: err = %v", err)
	}
	if _, err := svc.Update(ctx, "issues", "404", UpdateParams{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing item: err = %v", err)
	}
}

func TestUpdate_ReindexesSearch(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "x", Body: "original text"})

	body := "replacement words"
	if _, err := svc.Update(ctx, "docs", "1", UpdateParams{Body: &body}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	hits, err := svc.Search(ctx, "replacement", index.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("new body not searchable: %v", hits)
	}
	hits, _ = svc.Search(ctx, "original", index.SearchOptions{})
	if len(hits) != 0 {
		t.Errorf("old body still searchable: %v", hits)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "x", Status: "open"})

	existed, err := svc.Delete(ctx, "issues", "1")
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v", existed, err)
	}
	if _, err := svc.Get(ctx, "issues", "1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	rows, _ := svc.List(ctx, "issues", index.ListOptions{IncludeClosed: true})
	if len(rows) != 0 {
		t.Errorf("row survived delete: %v", rows)
	}

	// Second delete reports nothing existed, without error.
	existed, err = svc.Delete(ctx, "issues", "1")
	if err != nil || existed {
		t.Errorf("second Delete = %v, %v", existed, err)
	}
}

func TestList_ClosedFiltering(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "open one", Status: "open"})
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "done", Status: "completed"})
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "dropped", Status: "cancelled"})

	rows, err := svc.List(ctx, "issues", index.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "open one" {
		t.Errorf("default list = %v", rows)
	}

	rows, _ = svc.List(ctx, "issues", index.ListOptions{IncludeClosed: true})
	if len(rows) != 3 {
		t.Errorf("include closed = %d rows", len(rows))
	}

	rows, _ = svc.List(ctx, "issues", index.ListOptions{Statuses: []string{"completed", "cancelled"}})
	if len(rows) != 2 {
		t.Errorf("status filter = %v", rows)
	}
}

func TestSearchByTag(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "issues", Title: "a", Tags: []string{"auth"}})
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "b", Tags: []string{"auth", "guide"}})

	rows, err := svc.SearchByTag(ctx, "", "auth")
	if err != nil {
		t.Fatalf("SearchByTag: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("all types = %v", rows)
	}
	rows, _ = svc.SearchByTag(ctx, "issues", "auth")
	if len(rows) != 1 || rows[0].Type != "issues" {
		t.Errorf("typed = %v", rows)
	}
}

func TestSearch_ANDSemantics(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "Zoo", Body: "zebra and elephant"})
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "Stripe", Body: "zebra only"})

	hits, err := svc.Search(ctx, "zebra elephant", index.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Zoo" {
		t.Errorf("hits = %v", hits)
	}
	if n, _ := svc.CountSearch(ctx, "zebra", nil); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestTypeRegistry(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if err := svc.CreateType(ctx, "meetings", models.CategoryTasks, "Meeting notes"); err != nil {
		t.Fatalf("CreateType: %v", err)
	}
	mustCreate(t, svc, CreateParams{Type: "meetings", Title: "Standup", Status: "open"})

	// Invalid names and base categories are rejected up front.
	if err := svc.CreateType(ctx, "Bad-Name", models.CategoryTasks, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad name: err = %v", err)
	}
	if err := svc.CreateType(ctx, "oknames", "widgets", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad base: err = %v", err)
	}
	if err := svc.CreateType(ctx, "meetings", models.CategoryTasks, ""); !errors.Is(err, apperr.ErrDuplicate) {
		t.Errorf("duplicate: err = %v", err)
	}

	// Deletion is blocked while items exist.
	err := svc.DeleteType(ctx, "meetings")
	if !errors.Is(err, apperr.ErrTypeInUse) {
		t.Fatalf("in-use delete: err = %v", err)
	}
	if err.Error() != "Type meetings still has items" {
		t.Errorf("msg = %q", err.Error())
	}

	if _, err := svc.Delete(ctx, "meetings", "1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteType(ctx, "meetings"); err != nil {
		t.Fatalf("DeleteType after empty: %v", err)
	}
	if exists, _ := svc.TypeExists(ctx, "meetings"); exists {
		t.Error("type still registered")
	}

	// Reserved types can never be removed.
	for _, name := range []string{"sessions", "dailies"} {
		if err := svc.DeleteType(ctx, name); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("DeleteType(%s): err = %v", name, err)
		}
	}
}

func TestTags_Registry(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	if err := svc.CreateTags(ctx, []string{" deploy ", "", "deploy", "ops"}); err != nil {
		t.Fatalf("CreateTags: %v", err)
	}
	tags, _ := svc.ListTags(ctx)
	if len(tags) != 2 {
		t.Fatalf("tags = %v", tags)
	}

	// Deleting a tag leaves item references alone.
	mustCreate(t, svc, CreateParams{Type: "docs", Title: "x", Tags: []string{"ops"}})
	if err := svc.DeleteTag(ctx, "ops"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	rows, _ := svc.SearchByTag(ctx, "", "ops")
	if len(rows) != 1 {
		t.Errorf("item lost its tag reference: %v", rows)
	}
	if err := svc.DeleteTag(ctx, "ops"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing tag: err = %v", err)
	}
}

func TestStatuses(t *testing.T) {
	svc, _ := testService(t)
	statuses, err := svc.ListStatuses(context.Background())
	if err != nil {
		t.Fatalf("ListStatuses: %v", err)
	}
	if len(statuses) != 7 {
		t.Fatalf("statuses = %d, want 7", len(statuses))
	}
	closed := 0
	for _, s := range statuses {
		if s.IsClosed {
			closed++
		}
	}
	if closed != 3 {
		t.Errorf("closed statuses = %d, want 3", closed)
	}
}
