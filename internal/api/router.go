package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/itemservice"
	"github.com/starford/raido/internal/storage"
)

// NewRouter creates a chi router with the admin API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *itemservice.Service, store storage.Provider, db *index.DB, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, store, db, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Item projection (read-only).
	r.Get("/items/{type}", h.ListItems)
	r.Get("/items/{type}/{id}", h.GetItem)

	// Full-text search.
	r.Get("/search", h.Search)
	r.Get("/search/count", h.SearchCount)
	r.Get("/search/suggest", h.SearchSuggest)

	// Registries.
	r.Get("/types", h.ListTypes)
	r.Get("/tags", h.ListTags)

	// Recovery.
	r.Post("/rebuild", h.Rebuild)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
