package transport

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/pkg/logger"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Token   string      `json:"token,omitempty"`
	Code    string      `json:"code,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.WriteJSON(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// WriteSession answers a login-like request. The token goes in the body as
// well as the cookie the caller already set.
func (h *BaseHandler) WriteSession(w http.ResponseWriter, status int, message, token string, data interface{}) {
	h.WriteJSON(w, status, Envelope{Status: StatusSuccess, Message: message, Token: token, Data: data})
}

// WriteAppError renders any error as an envelope. Causes are logged and
// never sent to the client.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		appErr = errors.NewInternalError("Something went wrong", err)
	}

	lg := logger.From(r.Context())
	if appErr.IsServerError() {
		lg.Error("request failed", "code", appErr.Code, "error", appErr.GetDetailedMessage())
	} else {
		lg.Info("request rejected", "code", appErr.Code, "status", appErr.StatusCode)
	}

	status := StatusFail
	if appErr.IsServerError() {
		status = StatusError
	}
	env := Envelope{Status: status, Message: appErr.Message, Code: string(appErr.Code)}
	if details, ok := appErr.Details.(errors.ValidationErrors); ok {
		env.Errors = details.Errors
	}
	h.WriteJSON(w, appErr.StatusCode, env)
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	envStatus := StatusFail
	if status >= http.StatusInternalServerError {
		envStatus = StatusError
	}
	h.WriteJSON(w, status, Envelope{Status: envStatus, Message: message})
}

// DecodeJSON reads a body that may only contain the fields of dst.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if stdErrors.Is(err, io.EOF) {
			return errors.ErrInvalidRequestBody
		}
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return errors.NewValidationError(fmt.Sprintf("Field %s is not allowed", field), errors.ErrCodeValidationFailed)
		}
		return errors.ErrInvalidRequestBody.WithCause(err)
	}
	if dec.More() {
		return errors.ErrInvalidRequestBody
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}
