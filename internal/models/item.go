// Package models defines the domain types for Raido.
package models

import (
	"fmt"
	"time"
)

// BaseCategory is one of the two field-shape families every item type maps to.
type BaseCategory string

const (
	// CategoryTasks items carry priority, status, and date fields.
	CategoryTasks BaseCategory = "tasks"
	// CategoryDocuments items are content-only.
	CategoryDocuments BaseCategory = "documents"
)

// Valid reports whether c is a known base category.
func (c BaseCategory) Valid() bool {
	return c == CategoryTasks || c == CategoryDocuments
}

// Date/time-keyed types. Their IDs are derived from timestamps, never from
// the sequence counter, and they cannot be created or deleted through the
// type registry.
const (
	TypeSessions = "sessions"
	TypeDailies  = "dailies"
)

// DateKeyed reports whether itemType uses timestamp-derived IDs.
func DateKeyed(itemType string) bool {
	return itemType == TypeSessions || itemType == TypeDailies
}

// BuiltinType is a type descriptor seeded at initialization.
type BuiltinType struct {
	Name        string
	Base        BaseCategory
	Description string
}

// BuiltinTypes lists the types seeded into a fresh registry. Date-keyed
// types appear here so their sequences exist, pinned at the initial value.
var BuiltinTypes = []BuiltinType{
	{Name: "issues", Base: CategoryTasks, Description: "Bug reports and work items"},
	{Name: "plans", Base: CategoryTasks, Description: "Plans with start and end dates"},
	{Name: "docs", Base: CategoryDocuments, Description: "Documentation"},
	{Name: "knowledge", Base: CategoryDocuments, Description: "Knowledge base entries"},
	{Name: TypeSessions, Base: CategoryDocuments, Description: "Work session records"},
	{Name: TypeDailies, Base: CategoryDocuments, Description: "Daily summaries"},
}

// Item is the central entity: one Markdown file on disk, one derived row in
// the index.
type Item struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Status      string    `json:"status,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Related     []string  `json:"related,omitempty"`
	Version     string    `json:"version,omitempty"`
	Body        string    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the item's "type-id" reference string.
func (i *Item) Key() string {
	return ItemKey(i.Type, i.ID)
}

// ItemKey builds the "type-id" reference string used by related lists.
func ItemKey(itemType, id string) string {
	return fmt.Sprintf("%s-%s", itemType, id)
}

// TypeDescriptor describes one registered item type.
type TypeDescriptor struct {
	Name        string       `json:"name"`
	Base        BaseCategory `json:"base_category"`
	Description string       `json:"description,omitempty"`
}

// Status is one entry in the task workflow.
type Status struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	IsClosed     bool   `json:"is_closed"`
	DisplayOrder int    `json:"display_order"`
}

// DefaultStatuses is the workflow seeded into a fresh index.
var DefaultStatuses = []Status{
	{ID: 1, Name: "open", IsClosed: false, DisplayOrder: 1},
	{ID: 2, Name: "in-progress", IsClosed: false, DisplayOrder: 2},
	{ID: 3, Name: "review", IsClosed: false, DisplayOrder: 3},
	{ID: 4, Name: "on-hold", IsClosed: false, DisplayOrder: 4},
	{ID: 5, Name: "completed", IsClosed: true, DisplayOrder: 5},
	{ID: 6, Name: "closed", IsClosed: true, DisplayOrder: 6},
	{ID: 7, Name: "cancelled", IsClosed: true, DisplayOrder: 7},
}

// Tag is a registered tag name.
type Tag struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TypeReport is the per-type accounting a rebuild returns so operators can
// verify completeness.
type TypeReport struct {
	Type   string `json:"type"`
	Found  int    `json:"found"`
	Synced int    `json:"synced"`
	MaxID  int    `json:"max_id,omitempty"`
}

// SessionIDLayout and DailyIDLayout are the time formats for date-keyed IDs.
// Session IDs carry millisecond resolution to avoid collisions under rapid
// creation.
const (
	SessionIDLayout = "2006-01-02-15.04.05.000"
	DailyIDLayout   = "2006-01-02"
)
