// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the item repository over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/itemservice"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *itemservice.Service
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// New creates a new MCP server with all repository tools registered.
func New(svc *itemservice.Service, store storage.Provider, db *index.DB, logger *slog.Logger) *Server {
	s := &Server{svc: svc, store: store, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create a typed item. Task-category types accept priority, status, and dates."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name (e.g. issues, plans, docs, knowledge)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Item title (max 500 characters)")),
		mcp.WithString("body", mcp.Description("Free-text Markdown body")),
		mcp.WithString("description", mcp.Description("Short description")),
		mcp.WithString("priority", mcp.Description("Priority (task-category types only)")),
		mcp.WithString("status", mcp.Description("Status name (task-category types only)")),
		mcp.WithString("start_date", mcp.Description("Start date YYYY-MM-DD (task-category types only)")),
		mcp.WithString("end_date", mcp.Description("End date YYYY-MM-DD (task-category types only)")),
		mcp.WithString("version", mcp.Description("Free-form version string")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
		mcp.WithString("related", mcp.Description("Comma-separated type-id references")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Read one item by type and ID. Reads the file directly; a stale index row never answers."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item ID")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("update_item",
		mcp.WithDescription("Update an item. Only supplied fields change; pass an empty related list to clear it."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("body", mcp.Description("New body")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("priority", mcp.Description("New priority")),
		mcp.WithString("status", mcp.Description("New status name")),
		mcp.WithString("start_date", mcp.Description("New start date YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("New end date YYYY-MM-DD")),
		mcp.WithString("version", mcp.Description("New version")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names (replaces the set)")),
		mcp.WithString("related", mcp.Description("Comma-separated type-id references (replaces the list; empty clears)")),
	), s.updateItem)

	s.mcp.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Delete an item's file and search row."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item ID")),
	), s.deleteItem)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List items of one type. Closed items are excluded unless include_closed is true or an explicit status filter is given."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithBoolean("include_closed", mcp.Description("Include items whose status is closed")),
		mcp.WithString("statuses", mcp.Description("Comma-separated status-name filter; overrides include_closed")),
		mcp.WithNumber("limit", mcp.Description("Maximum results")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Full-text search over titles, bodies, and tags. Multi-word queries require every word."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithString("types", mcp.Description("Comma-separated type filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum results")),
		mcp.WithNumber("offset", mcp.Description("Result offset for paging")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("search_suggest",
		mcp.WithDescription("Suggest item titles matching a prefix, for incremental search."),
		mcp.WithString("prefix", mcp.Required(), mcp.Description("Title prefix")),
		mcp.WithString("types", mcp.Description("Comma-separated type filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions")),
	), s.searchSuggest)

	s.mcp.AddTool(mcp.NewTool("count_items",
		mcp.WithDescription("Count items matching a full-text query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithString("types", mcp.Description("Comma-separated type filter")),
	), s.countItems)

	s.mcp.AddTool(mcp.NewTool("search_by_tag",
		mcp.WithDescription("Find items whose tag set contains the given tag, in one type or across all types."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
		mcp.WithString("type", mcp.Description("Optional type to scope the search")),
	), s.searchByTag)

	s.mcp.AddTool(mcp.NewTool("create_type",
		mcp.WithDescription("Register a custom item type mapped to a base category (tasks or documents)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Type name: starts with a letter; lowercase letters, digits, underscore; 1-50 chars")),
		mcp.WithString("base", mcp.Required(), mcp.Description("Base category: tasks or documents")),
		mcp.WithString("description", mcp.Description("Human-readable description")),
	), s.createType)

	s.mcp.AddTool(mcp.NewTool("update_type",
		mcp.WithDescription("Update a type's description."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Type name")),
		mcp.WithString("description", mcp.Required(), mcp.Description("New description")),
	), s.updateType)

	s.mcp.AddTool(mcp.NewTool("delete_type",
		mcp.WithDescription("Delete a custom type. Blocked while items of that type exist."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Type name")),
	), s.deleteType)

	s.mcp.AddTool(mcp.NewTool("list_types",
		mcp.WithDescription("List all registered item types with base category and description."),
	), s.listTypes)

	s.mcp.AddTool(mcp.NewTool("create_tag",
		mcp.WithDescription("Register tag names explicitly; names already present are kept."),
		mcp.WithString("names", mcp.Required(), mcp.Description("Comma-separated tag names")),
	), s.createTag)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all registered tags."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("search_tags",
		mcp.WithDescription("Search tags by literal, case-sensitive substring."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Substring to match")),
	), s.searchTags)

	s.mcp.AddTool(mcp.NewTool("delete_tag",
		mcp.WithDescription("Delete a tag. Items keep any references to it."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Tag name")),
	), s.deleteTag)

	s.mcp.AddTool(mcp.NewTool("list_statuses",
		mcp.WithDescription("List the workflow statuses in display order."),
	), s.listStatuses)

	s.mcp.AddTool(mcp.NewTool("rebuild_index",
		mcp.WithDescription("Rebuild the search index from the item files and reconcile sequence counters."),
	), s.rebuildIndex)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// splitList turns a comma-separated argument into a slice, dropping empty
// entries. An empty input yields an empty, non-nil slice.
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := itemservice.CreateParams{Type: itemType, Title: title}
	if v, e := req.RequireString("body"); e == nil {
		p.Body = v
	}
	if v, e := req.RequireString("description"); e == nil {
		p.Description = v
	}
	if v, e := req.RequireString("priority"); e == nil {
		p.Priority = v
	}
	if v, e := req.RequireString("status"); e == nil {
		p.Status = v
	}
	if v, e := req.RequireString("start_date"); e == nil {
		p.StartDate = v
	}
	if v, e := req.RequireString("end_date"); e == nil {
		p.EndDate = v
	}
	if v, e := req.RequireString("version"); e == nil {
		p.Version = v
	}
	if v, e := req.RequireString("tags"); e == nil {
		p.Tags = splitList(v)
	}
	if v, e := req.RequireString("related"); e == nil {
		p.Related = splitList(v)
	}

	item, err := s.svc.Create(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(item), nil
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.Get(ctx, itemType, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(item), nil
}

func (s *Server) updateItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p itemservice.UpdateParams
	if v, e := req.RequireString("title"); e == nil {
		p.Title = &v
	}
	if v, e := req.RequireString("body"); e == nil {
		p.Body = &v
	}
	if v, e := req.RequireString("description"); e == nil {
		p.Description = &v
	}
	if v, e := req.RequireString("priority"); e == nil {
		p.Priority = &v
	}
	if v, e := req.RequireString("status"); e == nil {
		p.Status = &v
	}
	if v, e := req.RequireString("start_date"); e == nil {
		p.StartDate = &v
	}
	if v, e := req.RequireString("end_date"); e == nil {
		p.EndDate = &v
	}
	if v, e := req.RequireString("version"); e == nil {
		p.Version = &v
	}
	if v, e := req.RequireString("tags"); e == nil {
		tags := splitList(v)
		p.Tags = &tags
	}
	if v, e := req.RequireString("related"); e == nil {
		related := splitList(v)
		p.Related = &related
	}

	item, err := s.svc.Update(ctx, itemType, id, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(item), nil
}

func (s *Server) deleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	existed, err := s.svc.Delete(ctx, itemType, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !existed {
		return mcp.NewToolResultText(fmt.Sprintf("nothing to delete: %s", models.ItemKey(itemType, id))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", models.ItemKey(itemType, id))), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts index.ListOptions
	if v, e := req.RequireBool("include_closed"); e == nil {
		opts.IncludeClosed = v
	}
	if v, e := req.RequireString("statuses"); e == nil {
		opts.Statuses = splitList(v)
	}
	if v, e := req.RequireInt("limit"); e == nil {
		opts.Limit = v
	}

	rows, err := s.svc.List(ctx, itemType, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts index.SearchOptions
	if v, e := req.RequireString("types"); e == nil {
		opts.Types = splitList(v)
	}
	if v, e := req.RequireInt("limit"); e == nil {
		opts.Limit = v
	}
	if v, e := req.RequireInt("offset"); e == nil {
		opts.Offset = v
	}

	hits, err := s.svc.Search(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) searchSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix, err := req.RequireString("prefix")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var types []string
	if v, e := req.RequireString("types"); e == nil {
		types = splitList(v)
	}
	limit := 0
	if v, e := req.RequireInt("limit"); e == nil {
		limit = v
	}

	titles, err := s.svc.Suggest(ctx, prefix, types, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(titles), nil
}

func (s *Server) countItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var types []string
	if v, e := req.RequireString("types"); e == nil {
		types = splitList(v)
	}
	n, err := s.svc.CountSearch(ctx, query, types)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
}

func (s *Server) searchByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemType := ""
	if v, e := req.RequireString("type"); e == nil {
		itemType = v
	}
	rows, err := s.svc.SearchByTag(ctx, itemType, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if itemType != "" {
		return jsonResult(rows), nil
	}
	// Group by type for cross-type searches.
	grouped := make(map[string][]index.ItemRow)
	for _, r := range rows {
		grouped[r.Type] = append(grouped[r.Type], r)
	}
	return jsonResult(grouped), nil
}

func (s *Server) createType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	base, err := req.RequireString("base")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if v, e := req.RequireString("description"); e == nil {
		description = v
	}
	if err := s.svc.CreateType(ctx, name, models.BaseCategory(base), description); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created type: %s", name)), nil
}

func (s *Server) updateType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DescribeType(ctx, name, description); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated type: %s", name)), nil
}

func (s *Server) deleteType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteType(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted type: %s", name)), nil
}

func (s *Server) listTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types, err := s.svc.ListTypes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(types), nil
}

func (s *Server) createTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := req.RequireString("names")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.CreateTags(ctx, splitList(names)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("tags registered"), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) searchTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, err := s.svc.SearchTags(ctx, pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) deleteTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteTag(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted tag: %s", name)), nil
}

func (s *Server) listStatuses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.svc.ListStatuses(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(statuses), nil
}

func (s *Server) rebuildIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports, err := index.Rebuild(s.db, s.store, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(reports), nil
}
