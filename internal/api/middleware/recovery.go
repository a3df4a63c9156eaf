package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/cascade-ml/cascade-ui/internal/api/errors"
)

// Recovery returns a middleware that recovers from panics in handlers, logs
// them with their stack and answers with an INTERNAL_ERROR body.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := middleware.GetReqID(r.Context())
				entry := apierrors.NewErrorLogEntry(requestID, apierrors.CodeInternalError, "panic recovered")

				attrs := append(entry.ToSlogAttrs(),
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				logger.Error("panic recovered", attrs...)

				apierrors.WriteErrorWithRequestID(w,
					apierrors.NewInternalError("An unexpected error occurred"), requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
