package middleware

import (
	"net/http"

	"github.com/frahmantamala/training-identity/pkg/logger"
	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-ID"

// maxTraceIDLength bounds caller supplied ids before they reach the logs.
const maxTraceIDLength = 128

// RequestID reuses the caller's trace id or mints one, echoes it on the
// response and tags the request scoped logger with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)

		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
