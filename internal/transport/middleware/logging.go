package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	filteredValue = "[FILTERED]"
	// maxLoggedBody caps what is buffered and logged per body.
	maxLoggedBody = 4 << 10
)

// sensitiveNames are masked in headers, query parameters and JSON keys when
// the lowercased name contains one of them.
var sensitiveNames = []string{
	"password",
	"token",
	"secret",
	"otp",
	"jwt",
	"cookie",
	"authorization",
}

// requestOnlyKeys are masked in request bodies only. Inbound "code" is an
// MFA code; outbound it is the error code.
var requestOnlyKeys = map[string]bool{"code": true}

// quietPrefixes are served without request logging.
var quietPrefixes = []string{"/metrics", "/swagger", "/openapi.yml"}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuiet(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()

			logger := logger
			if traceID := w.Header().Get(TraceHeader); traceID != "" {
				logger = logger.With("trace_id", traceID)
			}

			logRequest(logger, r)

			ww := &responseWriter{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(ww, r)

			logResponse(logger, r, ww, time.Since(start))
		})
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// responseWriter keeps the status and the first maxLoggedBody bytes.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func logRequest(logger *slog.Logger, r *http.Request) {
	var body []byte
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		body = raw
	}

	logger.Info("incoming request",
		"method", r.Method,
		"path", r.URL.Path,
		"query", filterQuery(r.URL.Query()),
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterHeaders(r.Header),
		"body", filterBody(body, true),
	)
}

func logResponse(logger *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration) {
	status := rw.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	logger.Log(context.Background(), level, "response",
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
		"body", filterBody(rw.body.Bytes(), false),
	)
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func filterHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filteredValue
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterQuery masks the verification and reset tokens carried in links.
func filterQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	masked := make(url.Values, len(values))
	for k, v := range values {
		if isSensitive(k) {
			masked[k] = []string{filteredValue}
			continue
		}
		masked[k] = v
	}
	return masked.Encode()
}

func filterBody(body []byte, inbound bool) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if len(body) >= maxLoggedBody {
			return "[TRUNCATED]"
		}
		for _, s := range sensitiveNames {
			if bytes.Contains(bytes.ToLower(body), []byte(s)) {
				return filteredValue
			}
		}
		return string(body)
	}

	out, err := json.Marshal(filterJSON(data, inbound))
	if err != nil {
		return filteredValue
	}
	return string(out)
}

func filterJSON(data interface{}, inbound bool) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) || (inbound && requestOnlyKeys[strings.ToLower(key)]) {
				out[key] = filteredValue
				continue
			}
			out[key] = filterJSON(value, inbound)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = filterJSON(item, inbound)
		}
		return out
	default:
		return v
	}
}
