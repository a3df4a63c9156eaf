package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/cascade-ml/cascade-ui/internal/api/errors"
	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// CommentHandler adds comments to repos, lines and items.
type CommentHandler struct {
	browser *browser.Browser
	logger  *slog.Logger
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(b *browser.Browser, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		browser: b,
		logger:  logger,
	}
}

// CommentRequest is the body of POST /api/comments. The target is given
// either as a "repo/line/num" path or as path parts.
type CommentRequest struct {
	Message   string   `json:"message"`
	Path      string   `json:"path,omitempty"`
	PathParts []string `json:"path_parts,omitempty"`
}

// Create handles POST /api/comments.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "Invalid request body")
		return
	}

	var errs apierrors.ValidationErrors
	if req.Message == "" {
		errs.Add("message", "message is required")
	}

	var target pathspec.PathParts
	switch {
	case len(req.PathParts) > 0 && req.Path != "":
		errs.Add("path", "give either path or path_parts")
	case len(req.PathParts) > 0:
		parts, err := pathspec.NewPathParts(req.PathParts)
		if err != nil {
			errs.Add("path_parts", err.Error())
		}
		target = parts
	default:
		parts, err := pathspec.ParseParts(req.Path)
		if err != nil {
			errs.Add("path", err.Error())
		}
		target = parts
	}

	if errs.HasErrors() {
		apierrors.WriteErrorWithRequestID(w, errs.ToAPIError(), middleware.GetReqID(r.Context()))
		return
	}

	ack, err := h.browser.AddComment(r.Context(), target, req.Message)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ack)
}
