package validate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

func TestTypeName(t *testing.T) {
	valid := []string{"tasks", "a", "meeting_notes", "type2", "x_1_y"}
	for _, name := range valid {
		if err := TypeName(name); err != nil {
			t.Errorf("TypeName(%q) = %v, want nil", name, err)
		}
	}
	invalid := []string{"", "Tasks", "1tasks", "_tasks", "my-type", "my type",
		strings.Repeat("a", 51)}
	for _, name := range invalid {
		err := TypeName(name)
		if err == nil {
			t.Errorf("TypeName(%q) = nil, want error", name)
			continue
		}
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("TypeName(%q) kind = %v, want ErrValidation", name, err)
		}
	}
	if err := TypeName(strings.Repeat("a", 50)); err != nil {
		t.Errorf("50-char name rejected: %v", err)
	}
}

func TestStripInvisible(t *testing.T) {
	in := "he​llo‍ \ufeffworld­"
	if got := StripInvisible(in); got != "hello world" {
		t.Errorf("StripInvisible = %q, want %q", got, "hello world")
	}
	if got := StripInvisible("plain"); got != "plain" {
		t.Errorf("StripInvisible(plain) = %q", got)
	}
}

func TestTitle_Length(t *testing.T) {
	ok := strings.Repeat("x", 500)
	got, err := Title(ok)
	if err != nil {
		t.Fatalf("500-char title rejected: %v", err)
	}
	if got != ok {
		t.Errorf("cleaned title changed: %d chars", len(got))
	}

	if _, err := Title(strings.Repeat("x", 501)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("501-char title: err = %v, want ErrValidation", err)
	}

	// Invisible characters are stripped before counting.
	padded := strings.Repeat("x", 500) + "​​"
	if _, err := Title(padded); err != nil {
		t.Errorf("title with zero-width padding rejected: %v", err)
	}
}

func TestTitle_MultibyteRunes(t *testing.T) {
	// 500 runes, far more than 500 bytes.
	title := strings.Repeat("日", 500)
	if _, err := Title(title); err != nil {
		t.Errorf("500-rune CJK title rejected: %v", err)
	}
	if _, err := Title(title + "日"); err == nil {
		t.Error("501-rune CJK title accepted")
	}
}

func TestDate(t *testing.T) {
	valid := []string{"2024-02-29", "2025-12-31", "2025-01-01"}
	for _, d := range valid {
		if err := Date(d); err != nil {
			t.Errorf("Date(%q) = %v, want nil", d, err)
		}
	}
	invalid := []string{"2025-02-30", "2025-02-29", "2025-06-31",
		"2025-13-01", "2025-00-10", "25-01-01", "2025/01/01", "2025-1-1", ""}
	for _, d := range invalid {
		err := Date(d)
		if err == nil {
			t.Errorf("Date(%q) = nil, want error", d)
			continue
		}
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Date(%q) kind = %v, want ErrValidation", d, err)
		}
		want := "Invalid date: " + d
		if err.Error() != want {
			t.Errorf("Date(%q) msg = %q, want %q", d, err.Error(), want)
		}
	}
}

func TestCleanTags(t *testing.T) {
	got := CleanTags([]string{"  a  ", "", "b"})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanTags = %v, want %v", got, want)
	}

	// Idempotent.
	if again := CleanTags(got); !reflect.DeepEqual(again, want) {
		t.Errorf("second pass = %v, want %v", again, want)
	}
}

func TestCleanTags_DedupeAndInvisible(t *testing.T) {
	got := CleanTags([]string{"go", "go", " go ", "g​o", "​", "rust"})
	want := []string{"go", "rust"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanTags = %v, want %v", got, want)
	}
	if got := CleanTags(nil); len(got) != 0 {
		t.Errorf("CleanTags(nil) = %v, want empty", got)
	}
}

func TestReferences(t *testing.T) {
	got, err := References([]string{"issues-2", "plans-1", "issues-2"}, "issues-1")
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	want := []string{"issues-2", "plans-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("References = %v, want %v", got, want)
	}
}

func TestReferences_Rejections(t *testing.T) {
	if _, err := References([]string{"issues-1"}, "issues-1"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self reference: err = %v, want ErrValidation", err)
	}
	if _, err := References([]string{""}, "issues-1"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty reference: err = %v, want ErrValidation", err)
	}
	// Nonexistent targets are fine.
	if _, err := References([]string{"ghosts-99"}, "issues-1"); err != nil {
		t.Errorf("dangling reference rejected: %v", err)
	}
}
