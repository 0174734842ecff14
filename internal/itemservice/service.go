// Package itemservice implements the dual-write item repository: files are
// the durable source of truth, the index is a derived projection kept in
// step on every write.
package itemservice

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/validate"
)

// Service coordinates storage, validation, sequencing, tag registration,
// and the search index.
type Service struct {
	store storage.Provider
	db    *index.DB
	now   func() time.Time
}

// NewService creates a new item service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db, now: time.Now}
}

// CreateParams holds the fields accepted by Create.
type CreateParams struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Status      string   `json:"status,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Version     string   `json:"version,omitempty"`
	Body        string   `json:"body,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Related     []string `json:"related,omitempty"`
}

// Create validates params, allocates an ID, writes the item file, then
// registers tags and upserts the search row. Validation happens before any
// write; a file-write failure leaves nothing registered in the index (the
// consumed sequence value is not reclaimed). An index-write failure after
// the file is committed surfaces as a storage error and is repaired by the
// next rebuild.
func (s *Service) Create(_ context.Context, p CreateParams) (*models.Item, error) {
	base, err := s.db.TypeBase(p.Type)
	if err != nil {
		return nil, err
	}

	title, err := validate.Title(p.Title)
	if err != nil {
		return nil, err
	}

	statusID, err := s.validateFields(base, p.Priority, p.Status, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}

	tags := validate.CleanTags(p.Tags)

	id, err := s.allocateID(p.Type)
	if err != nil {
		return nil, err
	}

	related, err := validate.References(p.Related, models.ItemKey(p.Type, id))
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.Item{
		Type:        p.Type,
		ID:          id,
		Title:       title,
		Description: p.Description,
		Priority:    p.Priority,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Tags:        tags,
		Related:     related,
		Version:     p.Version,
		Body:        p.Body,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.writeAndIndex(item, base, statusID); err != nil {
		return nil, err
	}
	return item, nil
}

// Get reads the item's file directly; the index is never consulted, so a
// stale search row cannot resurrect a deleted item. Malformed metadata
// degrades to defaults with the body preserved.
func (s *Service) Get(_ context.Context, itemType, id string) (*models.Item, error) {
	data, err := s.store.Read(itemType, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ItemNotFound(itemType, id)
		}
		return nil, apperr.Storage("read item", err)
	}
	meta, body := parser.Decode(data)
	return meta.Item(itemType, id, body), nil
}

// UpdateParams holds the partial fields accepted by Update. Nil means
// "leave unchanged"; for Related an explicit empty slice clears the list.
type UpdateParams struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Status      *string   `json:"status,omitempty"`
	StartDate   *string   `json:"start_date,omitempty"`
	EndDate     *string   `json:"end_date,omitempty"`
	Version     *string   `json:"version,omitempty"`
	Body        *string   `json:"body,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Related     *[]string `json:"related,omitempty"`
}

// Update applies the supplied fields over the current file content,
// re-validating with the same rules as Create, then rewrites the file and
// the search row.
func (s *Service) Update(_ context.Context, itemType, id string, p UpdateParams) (*models.Item, error) {
	base, err := s.db.TypeBase(itemType)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Read(itemType, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ItemNotFound(itemType, id)
		}
		return nil, apperr.Storage("read item", err)
	}
	meta, body := parser.Decode(data)
	item := meta.Item(itemType, id, body)

	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.StartDate != nil {
		item.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		item.EndDate = *p.EndDate
	}
	if p.Version != nil {
		item.Version = *p.Version
	}
	if p.Body != nil {
		item.Body = *p.Body
	}
	if p.Tags != nil {
		item.Tags = *p.Tags
	}
	if p.Related != nil {
		item.Related = *p.Related
	}

	item.Title, err = validate.Title(item.Title)
	if err != nil {
		return nil, err
	}
	statusID, err := s.validateFields(base, item.Priority, item.Status, item.StartDate, item.EndDate)
	if err != nil {
		return nil, err
	}
	item.Tags = validate.CleanTags(item.Tags)
	item.Related, err = validate.References(item.Related, item.Key())
	if err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now()

	if err := s.writeAndIndex(item, base, statusID); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item's file and search row. It returns false, not an
// error, when nothing existed to delete. A stale row left by an
// out-of-band file deletion is cleaned up either way.
func (s *Service) Delete(_ context.Context, itemType, id string) (bool, error) {
	existed := s.store.Exists(itemType, id)
	if existed {
		if err := s.store.Delete(itemType, id); err != nil {
			return false, apperr.Storage("delete item", err)
		}
	}
	if err := s.db.DeleteItem(itemType, id); err != nil {
		return existed, apperr.Storage("delete search row", err)
	}
	return existed, nil
}

// List queries the search row projection for one type.
func (s *Service) List(_ context.Context, itemType string, opts index.ListOptions) ([]index.ItemRow, error) {
	return s.db.ListItems(itemType, opts)
}

// SearchByTag returns items whose tag set contains tag. An empty itemType
// searches across all types; rows come back ordered by type then ID.
func (s *Service) SearchByTag(_ context.Context, itemType, tag string) ([]index.ItemRow, error) {
	return s.db.ItemsByTag(itemType, tag)
}

// allocateID issues the next sequence value for numeric-ID types and
// derives a timestamp token for date/time-keyed types.
func (s *Service) allocateID(itemType string) (string, error) {
	switch itemType {
	case models.TypeSessions:
		return s.now().Format(models.SessionIDLayout), nil
	case models.TypeDailies:
		return s.now().Format(models.DailyIDLayout), nil
	default:
		n, err := s.db.NextID(itemType)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	}
}

// validateFields enforces the base-category field gate and resolves the
// status name. Returns the resolved status ID (0 when unset).
func (s *Service) validateFields(base models.BaseCategory, priority, status, startDate, endDate string) (int, error) {
	if base == models.CategoryDocuments {
		switch {
		case priority != "":
			return 0, apperr.E(apperr.ErrValidation, "Field priority is not valid for document types")
		case status != "":
			return 0, apperr.E(apperr.ErrValidation, "Field status is not valid for document types")
		case startDate != "" || endDate != "":
			return 0, apperr.E(apperr.ErrValidation, "Date fields are not valid for document types")
		}
		return 0, nil
	}

	if startDate != "" {
		if err := validate.Date(startDate); err != nil {
			return 0, err
		}
	}
	if endDate != "" {
		if err := validate.Date(endDate); err != nil {
			return 0, err
		}
	}
	if status == "" {
		return 0, nil
	}
	st, err := s.db.StatusByName(status)
	if err != nil {
		return 0, apperr.E(apperr.ErrValidation, "Invalid status: %s", status)
	}
	return st.ID, nil
}

// writeAndIndex is the dual-write step: file first, then tag registration,
// then the search row.
func (s *Service) writeAndIndex(item *models.Item, base models.BaseCategory, statusID int) error {
	content, err := parser.Encode(parser.MetaOf(item, base), item.Body)
	if err != nil {
		return apperr.Storage("encode item", err)
	}
	if err := s.store.Write(item.Type, item.ID, content); err != nil {
		return apperr.Storage("write item", err)
	}
	if err := s.db.EnsureTags(item.Tags); err != nil {
		return apperr.Storage("register tags", err)
	}

	row := index.ItemRow{
		Type:        item.Type,
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Priority:    item.Priority,
		StatusID:    statusID,
		StartDate:   item.StartDate,
		EndDate:     item.EndDate,
		Tags:        item.Tags,
		Related:     item.Related,
		Version:     item.Version,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if err := s.db.UpsertItem(row, item.Body); err != nil {
		return apperr.Storage("upsert search row", err)
	}
	return nil
}
