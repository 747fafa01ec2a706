package company

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/frahmantamala/training-identity/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	binder Binder
}

func NewHandler() *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{BaseHandler: transport.NewBaseHandler(lg)}
}

// Me handles GET /companies/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := h.binder.Current(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"company": c})
}
