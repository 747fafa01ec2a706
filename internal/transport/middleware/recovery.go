package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/transport"
)

// RecoveryMiddleware turns a handler panic into the 500 error envelope.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
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
				logger.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"trace_id", w.Header().Get(TraceHeader),
					"stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(transport.Envelope{
					Status:  transport.StatusError,
					Message: "Something went wrong",
					Code:    string(errors.ErrCodeInternal),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
