package index

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SearchHit is one full-text search result with a highlighted snippet.
type SearchHit struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchOptions controls full-text queries.
type SearchOptions struct {
	Types  []string // empty means all types
	Limit  int
	Offset int
}

// tokenize splits a query on whitespace. Multi-token queries are
// AND-combined by the search implementations.
func tokenize(query string) []string {
	return strings.Fields(query)
}

// hasNonLatin reports whether any token carries letters outside ASCII,
// e.g. scripts that do not use whitespace tokenization.
func hasNonLatin(query string) bool {
	for _, r := range query {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// likeSearch is the substring search path: every token must appear in
// title, body, or tags. It backs the non-FTS5 build and serves as the
// containment fallback for scripts where FTS5 tokenization finds nothing.
func (db *DB) likeSearch(tokens []string, opts SearchOptions) ([]SearchHit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	var qb strings.Builder
	var args []any
	qb.WriteString(`SELECT type, id, title, body FROM items WHERE 1=1`)
	for _, tok := range tokens {
		qb.WriteString(` AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)`)
		like := "%" + tok + "%"
		args = append(args, like, like, like)
	}
	appendTypeFilter(&qb, &args, opts.Types)
	qb.WriteString(` ORDER BY updated_at DESC LIMIT ? OFFSET ?`)
	args = append(args, normalizeLimit(opts.Limit), opts.Offset)

	rows, err := db.conn.Query(qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: like search: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var body string
		if err := rows.Scan(&h.Type, &h.ID, &h.Title, &body); err != nil {
			return nil, err
		}
		h.Snippet = makeSnippet(body, tokens[0])
		out = append(out, h)
	}
	return out, rows.Err()
}

func (db *DB) likeCount(tokens []string, types []string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	var qb strings.Builder
	var args []any
	qb.WriteString(`SELECT count(*) FROM items WHERE 1=1`)
	for _, tok := range tokens {
		qb.WriteString(` AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)`)
		like := "%" + tok + "%"
		args = append(args, like, like, like)
	}
	appendTypeFilter(&qb, &args, types)

	var n int
	if err := db.conn.QueryRow(qb.String(), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: like count: %w", err)
	}
	return n, nil
}

// Suggest returns matching item titles for incremental-search UIs,
// prefix-matched case-insensitively.
func (db *DB) Suggest(prefix string, types []string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	var qb strings.Builder
	var args []any
	qb.WriteString(`SELECT DISTINCT title FROM items WHERE title LIKE ? ESCAPE '\'`)
	args = append(args, escaped+"%")
	appendTypeFilter(&qb, &args, types)
	qb.WriteString(` ORDER BY title LIMIT ?`)
	args = append(args, normalizeLimit(limit))

	rows, err := db.conn.Query(qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: suggest: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

func appendTypeFilter(qb *strings.Builder, args *[]any, types []string) {
	if len(types) == 0 {
		return
	}
	qb.WriteString(` AND type IN (?` + strings.Repeat(",?", len(types)-1) + `)`)
	for _, t := range types {
		*args = append(*args, t)
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > ListHardCap {
		return ListHardCap
	}
	return limit
}

// makeSnippet extracts surrounding text around the first occurrence of
// token in body and marks the matched span for highlighting. The match is
// case-insensitive on ASCII.
func makeSnippet(body, token string) string {
	const ctx = 64
	idx := strings.Index(strings.ToLower(body), strings.ToLower(token))
	if idx < 0 {
		if len(body) > 2*ctx {
			return body[:2*ctx] + "..."
		}
		return body
	}
	start := idx - ctx
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	end := idx + len(token) + ctx
	if end > len(body) {
		end = len(body)
	}
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}
	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(body[start:idx])
	b.WriteString("<b>")
	b.WriteString(body[idx : idx+len(token)])
	b.WriteString("</b>")
	b.WriteString(body[idx+len(token) : end])
	if end < len(body) {
		b.WriteString("...")
	}
	return b.String()
}
