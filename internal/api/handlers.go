package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/itemservice"
	"github.com/starford/raido/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *itemservice.Service
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *itemservice.Service, store storage.Provider, db *index.DB, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, store: store, db: db, logger: logger}
}

// splitParam turns a comma-separated query value into a slice, dropping
// empty entries. Returns nil when the parameter is absent.
func splitParam(r *http.Request, name string) []string {
	if !r.URL.Query().Has(name) {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(r.URL.Query().Get(name), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ListItems handles GET /items/{type}.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	itemType := chi.URLParam(r, "type")
	q := r.URL.Query()

	opts := index.ListOptions{
		IncludeClosed: q.Get("include_closed") == "true",
		Statuses:      splitParam(r, "statuses"),
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))

	rows, err := h.svc.List(r.Context(), itemType, opts)
	if err != nil {
		h.logger.Error("list items failed", slog.String("type", itemType), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if rows == nil {
		rows = []index.ItemRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows,
		"total": len(rows),
	})
}

// GetItem handles GET /items/{type}/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	item, err := h.svc.Get(r.Context(), itemType, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		} else {
			h.logger.Error("get item failed", slog.String("type", itemType), slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	opts := index.SearchOptions{Types: splitParam(r, "types")}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	hits, err := h.svc.Search(r.Context(), query, opts)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if hits == nil {
		hits = []index.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// SearchCount handles GET /search/count.
func (h *Handler) SearchCount(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	n, err := h.svc.CountSearch(r.Context(), query, splitParam(r, "types"))
	if err != nil {
		h.logger.Error("count failed", slog.String("query", query), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

// SearchSuggest handles GET /search/suggest.
func (h *Handler) SearchSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	limit, _ := strconv.Atoi(q.Get("limit"))

	titles, err := h.svc.Suggest(r.Context(), prefix, splitParam(r, "types"), limit)
	if err != nil {
		h.logger.Error("suggest failed", slog.String("prefix", prefix), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

// ListTypes handles GET /types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListTypes(r.Context())
	if err != nil {
		h.logger.Error("list types failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		h.logger.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Rebuild handles POST /rebuild: a full re-derivation of the index from
// the file tree, returning per-type file counts.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	reports, err := index.Rebuild(h.db, h.store, h.logger)
	if err != nil {
		h.logger.Error("rebuild failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
