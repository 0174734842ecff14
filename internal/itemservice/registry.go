package itemservice

import (
	"context"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/validate"
)

// CreateType registers a custom item type. Date/time-keyed names are
// seeded at initialization, so attempts to re-create them fail as
// duplicates like any other taken name.
func (s *Service) CreateType(_ context.Context, name string, base models.BaseCategory, description string) error {
	if err := validate.TypeName(name); err != nil {
		return err
	}
	if !base.Valid() {
		return apperr.E(apperr.ErrValidation, "Invalid base category: %s", base)
	}
	return s.db.RegisterType(name, base, description)
}

// DescribeType updates a type's description only.
func (s *Service) DescribeType(_ context.Context, name, description string) error {
	return s.db.DescribeType(name, description)
}

// DeleteType removes a custom type. It is blocked while any item file of
// that type exists, and reserved date/time-keyed types can never be
// removed. An empty type directory is cleaned up along the way.
func (s *Service) DeleteType(_ context.Context, name string) error {
	if models.DateKeyed(name) {
		return apperr.E(apperr.ErrValidation, "Type %s is reserved and cannot be deleted", name)
	}
	has, err := s.store.HasItems(name)
	if err != nil {
		return apperr.Storage("scan type dir", err)
	}
	if has {
		return apperr.E(apperr.ErrTypeInUse, "Type %s still has items", name)
	}
	if err := s.db.RemoveType(name); err != nil {
		return err
	}
	// The directory may not exist at all; only remove it when empty.
	_ = s.store.RemoveTypeDir(name)
	return nil
}

// ListTypes returns every registered type with its base category and
// description, fixed date/time-keyed types included.
func (s *Service) ListTypes(_ context.Context) ([]models.TypeDescriptor, error) {
	return s.db.ListTypes()
}

// TypeExists reports whether a type is registered.
func (s *Service) TypeExists(_ context.Context, name string) (bool, error) {
	return s.db.TypeExists(name)
}

// HasItems reports whether any file exists for the type.
func (s *Service) HasItems(_ context.Context, name string) (bool, error) {
	return s.store.HasItems(name)
}

// CreateTags registers tag names after normalization; existing names are
// silently kept.
func (s *Service) CreateTags(_ context.Context, names []string) error {
	return s.db.EnsureTags(validate.CleanTags(names))
}

// ListTags returns every registered tag.
func (s *Service) ListTags(_ context.Context) ([]models.Tag, error) {
	return s.db.ListTags()
}

// SearchTags matches tag names by literal, case-sensitive substring.
func (s *Service) SearchTags(_ context.Context, pattern string) ([]models.Tag, error) {
	return s.db.SearchTags(pattern)
}

// DeleteTag removes a tag. Items referencing it keep their references;
// cleanup is deliberately left to the caller.
func (s *Service) DeleteTag(_ context.Context, name string) error {
	return s.db.DeleteTag(name)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, opts index.SearchOptions) ([]index.SearchHit, error) {
	return s.db.Search(query, opts)
}

// Suggest returns title suggestions for incremental search.
func (s *Service) Suggest(_ context.Context, prefix string, types []string, limit int) ([]string, error) {
	return s.db.Suggest(prefix, types, limit)
}

// CountSearch returns the number of items matching a query.
func (s *Service) CountSearch(_ context.Context, query string, types []string) (int, error) {
	return s.db.Count(query, types)
}

// ListStatuses returns the workflow statuses in display order.
func (s *Service) ListStatuses(_ context.Context) ([]models.Status, error) {
	return s.db.ListStatuses()
}
