package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/navigator"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// BrowseHandler serves the workspace hierarchy.
type BrowseHandler struct {
	browser  *browser.Browser
	tables   *TableRegistry
	versions *provider.VersionCache
	logger   *slog.Logger
}

// NewBrowseHandler creates a new browse handler.
func NewBrowseHandler(b *browser.Browser, tables *TableRegistry, versions *provider.VersionCache, logger *slog.Logger) *BrowseHandler {
	return &BrowseHandler{
		browser:  b,
		tables:   tables,
		versions: versions,
		logger:   logger,
	}
}

// LineResponse is a line together with the view that displays it.
type LineResponse struct {
	View navigator.ViewTarget `json:"view"`
	Line *models.Line         `json:"line"`
}

// ItemResponse is a model or dataset together with the view that displays it.
type ItemResponse struct {
	View navigator.ViewTarget `json:"view"`
	Item models.Traced        `json:"item"`
}

// NavigateResponse is a resolved view target with its route.
type NavigateResponse struct {
	View navigator.ViewTarget `json:"view"`
	Path string               `json:"path"`
}

// Workspace handles GET /api/workspace.
func (h *BrowseHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.browser.LoadWorkspace(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// Tree handles GET /api/tree - the workspace with every repo loaded.
func (h *BrowseHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.browser.LoadTree(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tree)
}

// Repo handles GET /api/repos/{repo}.
func (h *BrowseHandler) Repo(w http.ResponseWriter, r *http.Request) {
	repo, err := h.browser.LoadRepo(r.Context(), pathspec.RepoSpec(chi.URLParam(r, "repo")))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, repo)
}

// Line handles GET /api/repos/{repo}/lines/{line}. The line's rows become
// the starting point of its item table.
func (h *BrowseHandler) Line(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spec, err := h.browser.LineSpec(ctx, chi.URLParam(r, "repo"), chi.URLParam(r, "line"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	view, err := h.browser.Navigator().Resolve(spec)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	line, err := h.browser.LoadLine(ctx, spec)
	if err != nil {
		var se *provider.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			h.tables.Forget(spec)
		}
		WriteError(w, r, h.logger, err)
		return
	}
	h.tables.Seed(spec, line.Items)

	WriteJSON(w, http.StatusOK, LineResponse{View: view, Line: line})
}

// Item handles GET /api/repos/{repo}/lines/{line}/items/{num}.
func (h *BrowseHandler) Item(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spec, err := h.browser.LineSpec(ctx, chi.URLParam(r, "repo"), chi.URLParam(r, "line"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	num := chi.URLParam(r, "num")
	view, err := h.browser.Navigator().Item(spec, num)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	item, err := h.browser.LoadItem(ctx, spec, num)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemResponse{View: view, Item: item})
}

func modelSpec(r *http.Request) pathspec.ModelPathSpec {
	return pathspec.ModelSpec(chi.URLParam(r, "repo"), chi.URLParam(r, "line"), chi.URLParam(r, "num"))
}

// RunConfig handles GET /api/repos/{repo}/lines/{line}/items/{num}/config.
func (h *BrowseHandler) RunConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.browser.RunConfig(r.Context(), modelSpec(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

// RunLog handles GET /api/repos/{repo}/lines/{line}/items/{num}/log.
func (h *BrowseHandler) RunLog(w http.ResponseWriter, r *http.Request) {
	runLog, err := h.browser.RunLog(r.Context(), modelSpec(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, runLog)
}

// Version handles GET /api/version.
func (h *BrowseHandler) Version(w http.ResponseWriter, r *http.Request) {
	info, err := h.versions.Get(r.Context(), h.browser.Version)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

// Navigate handles GET /api/navigate?repo=&line=&type=[&num=]. It resolves
// an address to its view without loading anything.
func (h *BrowseHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nav := h.browser.Navigator()

	repo, line, lineType, num := q.Get("repo"), q.Get("line"), q.Get("type"), q.Get("num")
	if repo == "" {
		if line != "" || num != "" {
			WriteBadRequest(w, r, "repo is required")
			return
		}
		writeNavigate(w, nav.Workspace())
		return
	}
	if line == "" {
		if num != "" {
			WriteBadRequest(w, r, "line is required with num")
			return
		}
		writeNavigate(w, nav.Repo(pathspec.RepoSpec(repo)))
		return
	}
	if lineType == "" {
		WriteBadRequest(w, r, "type is required to address a line")
		return
	}

	spec, err := pathspec.LineSpec(repo, line, models.LineType(lineType))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	var view navigator.ViewTarget
	if num == "" {
		view, err = nav.Resolve(spec)
	} else {
		view, err = nav.Item(spec, num)
	}
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeNavigate(w, view)
}

func writeNavigate(w http.ResponseWriter, view navigator.ViewTarget) {
	WriteJSON(w, http.StatusOK, NavigateResponse{View: view, Path: view.Path()})
}
