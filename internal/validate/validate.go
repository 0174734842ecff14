// Package validate holds the pure validation rules applied before any write.
package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/starford/raido/internal/apperr"
)

// MaxTitleLen is the longest accepted title, counted in runes after
// invisible characters are stripped.
const MaxTitleLen = 500

var typeNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// TypeName checks the type naming rule: starts with a lowercase letter,
// lowercase letters/digits/underscore only, length 1-50.
func TypeName(name string) error {
	if !typeNameRe.MatchString(name) {
		return apperr.E(apperr.ErrValidation,
			"Invalid type name: %s (must start with a letter; lowercase letters, digits, underscore; 1-50 chars)", name)
	}
	return nil
}

// StripInvisible removes zero-width and other invisible format code points
// (Unicode category Cf: ZWSP, ZWJ, BOM, soft hyphen relatives).
func StripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// Title validates a title after invisible-character stripping and returns
// the cleaned value.
func Title(title string) (string, error) {
	cleaned := StripInvisible(title)
	if utf8.RuneCountInString(cleaned) > MaxTitleLen {
		return "", apperr.E(apperr.ErrValidation,
			"Title exceeds %d characters", MaxTitleLen)
	}
	return cleaned, nil
}

// Date checks a YYYY-MM-DD value, calendar-valid including leap years.
func Date(value string) error {
	t, err := time.Parse("2006-01-02", value)
	if err != nil || t.Format("2006-01-02") != value {
		return apperr.E(apperr.ErrValidation, "Invalid date: %s", value)
	}
	return nil
}

// CleanTags normalizes tag names: trim whitespace, strip invisible code
// points, drop names that become empty, dedupe preserving first-seen order.
// Applying it twice is a no-op.
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.TrimSpace(StripInvisible(t))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// References validates a related list against the referencing item's own
// key: rejects empty entries and self-references, dedupes preserving
// first-seen order. Referenced items are not required to exist.
func References(refs []string, selfKey string) ([]string, error) {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == "" {
			return nil, apperr.E(apperr.ErrValidation, "Related list contains an empty reference")
		}
		if r == selfKey {
			return nil, apperr.E(apperr.ErrValidation, "Item %s cannot reference itself", selfKey)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
