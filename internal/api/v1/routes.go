// Package v1 provides the table and dashboard endpoints of the ingestion API.
package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/omnifield-ingest/internal/api/common"
	"github.com/stacklok/omnifield-ingest/internal/dashboard"
	"github.com/stacklok/omnifield-ingest/internal/registry"
	"github.com/stacklok/omnifield-ingest/internal/status"
)

// DefaultRowLimit caps the rows returned by GET /v1/tables/{name} without ?limit
const DefaultRowLimit = 100

// Registry is the snapshot source behind the routes
type Registry interface {
	Snapshot(ctx context.Context) *registry.Snapshot
	Refresh(ctx context.Context) *registry.Snapshot
}

// StatusLister exposes the tracked per-source status
type StatusLister interface {
	List() map[string]status.SourceStatus
}

// Dashboard renders dashboard modules
type Dashboard interface {
	Render(ctx context.Context, id dashboard.ModuleID) (*dashboard.Panel, error)
	Bindings() map[dashboard.ModuleID]string
}

// Routes handles HTTP requests for the v1 endpoints
type Routes struct {
	registry  Registry
	statuses  StatusLister
	dashboard Dashboard
}

// Option configures Routes
type Option func(*Routes)

// WithStatusLister adds tracked status to GET /v1/sources
func WithStatusLister(s StatusLister) Option {
	return func(r *Routes) {
		r.statuses = s
	}
}

// WithDashboard enables the module endpoints
func WithDashboard(d Dashboard) Option {
	return func(r *Routes) {
		r.dashboard = d
	}
}

// NewRoutes creates a new Routes instance
func NewRoutes(reg Registry, opts ...Option) *Routes {
	routes := &Routes{registry: reg}
	for _, opt := range opts {
		opt(routes)
	}
	return routes
}

// Router creates and configures the HTTP router for the v1 endpoints
func Router(reg Registry, opts ...Option) http.Handler {
	routes := NewRoutes(reg, opts...)

	r := chi.NewRouter()
	r.Get("/sources", routes.listSources)
	r.Get("/tables/{name}", routes.getTable)
	r.Post("/refresh", routes.refresh)
	if routes.dashboard != nil {
		r.Get("/modules", routes.listModules)
		r.Get("/modules/{module}", routes.getModule)
	}
	return r
}

// listSources handles GET /v1/sources
func (routes *Routes) listSources(w http.ResponseWriter, r *http.Request) {
	snap := routes.registry.Snapshot(r.Context())

	var statuses map[string]status.SourceStatus
	if routes.statuses != nil {
		statuses = routes.statuses.List()
	}

	resp := SourcesResponse{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Degraded:   snap.Degraded(),
		Sources:    make([]SourceResponse, 0, snap.Len()),
	}
	for _, res := range snap.Results() {
		src := SourceResponse{
			Name:           res.Name,
			Type:           res.Type,
			Location:       res.Location,
			Format:         res.Format,
			Rows:           res.Rows,
			Columns:        res.Columns,
			Hash:           res.Hash,
			DurationMillis: res.Duration.Milliseconds(),
			ErrorKind:      registry.ErrorKind(res.Err),
		}
		if res.Err != nil {
			src.Message = res.Err.Error()
		}
		if st, ok := statuses[res.Name]; ok {
			src.Phase = string(st.Phase)
			src.AttemptCount = st.AttemptCount
			src.LastSuccess = st.LastSuccess
		}
		resp.Sources = append(resp.Sources, src)
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// getTable handles GET /v1/tables/{name}
func (routes *Routes) getTable(w http.ResponseWriter, r *http.Request) {
	name, err := common.PathParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := DefaultRowLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			common.WriteErrorResponse(w, "Invalid limit parameter: must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}

	snap := routes.registry.Snapshot(r.Context())
	tbl, err := snap.Table(name)
	if errors.Is(err, registry.ErrUnknownSource) {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read table", "source", name, "error", err)
		common.WriteErrorResponse(w, "Failed to read table", http.StatusInternalServerError)
		return
	}

	head := tbl.Head(limit)
	resp := TableResponse{
		Name:      name,
		Available: !tbl.IsEmpty(),
		TotalRows: tbl.NumRows(),
		Returned:  head.NumRows(),
		Schema:    tbl.Schema(),
		Rows:      head.Rows(),
	}
	if res, ok := snap.Result(name); ok {
		resp.ErrorKind = registry.ErrorKind(res.Err)
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// refresh handles POST /v1/refresh. The returned snapshot was loaded after
// the request arrived.
func (routes *Routes) refresh(w http.ResponseWriter, r *http.Request) {
	snap := routes.registry.Refresh(r.Context())
	slog.InfoContext(r.Context(), "Snapshot refreshed on request",
		"snapshot_id", snap.ID,
		"failed", snap.Failed())

	common.WriteJSONResponse(w, RefreshResponse{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Sources:    snap.Len(),
		Failed:     snap.Failed(),
		Degraded:   snap.Degraded(),
	}, http.StatusOK)
}

// listModules handles GET /v1/modules
func (routes *Routes) listModules(w http.ResponseWriter, _ *http.Request) {
	bindings := routes.dashboard.Bindings()
	resp := ModulesResponse{Modules: make([]ModuleResponse, 0, len(dashboard.Modules()))}
	for _, id := range dashboard.Modules() {
		resp.Modules = append(resp.Modules, ModuleResponse{
			ID:     id.String(),
			Title:  id.Title(),
			Source: bindings[id],
		})
	}
	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// getModule handles GET /v1/modules/{module}
func (routes *Routes) getModule(w http.ResponseWriter, r *http.Request) {
	raw, err := common.PathParam(r, "module")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := dashboard.ParseModuleID(raw)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	panel, err := routes.dashboard.Render(r.Context(), id)
	if errors.Is(err, dashboard.ErrUnknownModule) {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to render module", "module", raw, "error", err)
		common.WriteErrorResponse(w, "Failed to render module", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, panel, http.StatusOK)
}
