// Package handlers provides HTTP request handlers for the browse API.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/cascade-ml/cascade-ui/internal/api/errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError maps err to a structured API error, logs it and writes it.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := apierrors.FromError(err)
	requestID := middleware.GetReqID(r.Context())

	level := slog.LevelWarn
	if apiErr.HTTPStatusCode() >= http.StatusInternalServerError && apiErr.Code == apierrors.CodeInternalError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		"code", apiErr.Code,
		"error", err,
		"path", r.URL.Path,
		"request_id", requestID,
	)

	apierrors.WriteErrorWithRequestID(w, apiErr, requestID)
}

// WriteBadRequest writes a 400 VALIDATION_ERROR response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	apierrors.WriteErrorWithRequestID(w, apierrors.NewValidationError(message), middleware.GetReqID(r.Context()))
}

// queryFields reads the requested item fields from ?fields=a,b or repeated
// ?fields= parameters.
func queryFields(r *http.Request) []string {
	var fields []string
	for _, v := range r.URL.Query()["fields"] {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}
