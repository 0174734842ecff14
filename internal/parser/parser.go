// Package parser encodes and decodes item files: a YAML frontmatter block
// followed by a free-text Markdown body.
//
// Decoding is lenient by contract: a corrupted or missing metadata block
// never fails, it degrades to zero-value fields with the body preserved.
package parser

import (
	"bytes"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

// Meta is the typed frontmatter schema. Every field has a usable zero
// value so a partial block decodes without error.
type Meta struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Priority    string    `yaml:"priority,omitempty"`
	Status      string    `yaml:"status,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	Related     []string  `yaml:"related,omitempty"`
	StartDate   string    `yaml:"start_date,omitempty"`
	EndDate     string    `yaml:"end_date,omitempty"`
	Version     string    `yaml:"version,omitempty"`
	Base        string    `yaml:"base,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
	UpdatedAt   time.Time `yaml:"updated_at,omitempty"`
}

// Decode splits raw file content into typed metadata and body. It never
// fails: invalid YAML yields a zero Meta with the body kept, and content
// without a frontmatter block is all body.
func Decode(data []byte) (Meta, string) {
	var m Meta
	rest, err := frontmatter.Parse(bytes.NewReader(data), &m)
	if err != nil {
		return Meta{}, stripBlock(data)
	}
	return m, strings.TrimLeft(string(rest), "\n\r")
}

// stripBlock removes a delimited frontmatter block that failed to decode,
// keeping the body. Without a closing delimiter the whole content is body.
func stripBlock(data []byte) string {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return string(data)
	}
	after := rest[idx+1+len(delim):]
	return strings.TrimLeft(string(after), "\n\r")
}

// Encode serializes metadata and body into file content.
func Encode(m Meta, body string) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(&m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(yamlBytes)
	buf.WriteString("---\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// MetaOf projects an item into its frontmatter. The base category is
// recorded so rebuilds can re-discover unregistered types.
func MetaOf(it *models.Item, base models.BaseCategory) Meta {
	return Meta{
		Title:       it.Title,
		Description: it.Description,
		Priority:    it.Priority,
		Status:      it.Status,
		Tags:        it.Tags,
		Related:     it.Related,
		StartDate:   it.StartDate,
		EndDate:     it.EndDate,
		Version:     it.Version,
		Base:        string(base),
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// Item builds an item of the given type and ID from decoded content.
func (m Meta) Item(itemType, id, body string) *models.Item {
	return &models.Item{
		Type:        itemType,
		ID:          id,
		Title:       m.Title,
		Description: m.Description,
		Priority:    m.Priority,
		Status:      m.Status,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Tags:        m.Tags,
		Related:     m.Related,
		Version:     m.Version,
		Body:        body,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
