package notification

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/transport"
)

const defaultPageLimit = 10

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(service.logger),
		Service:     service,
	}
}

// List handles GET /notifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	page, limit := transport.Pagination(r, defaultPageLimit)
	result, err := h.Service.ListUnread(r.Context(), id.ID(), id.Kind(), page, limit)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", result)
}

// MarkRead handles POST /notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	n, err := h.Service.MarkRead(r.Context(), chi.URLParam(r, "id"), id.ID())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"notification": n})
}

// MarkAllRead handles POST /notifications/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	count, err := h.Service.MarkAllRead(r.Context(), id.ID(), id.Kind())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d notifications marked as read", count), map[string]interface{}{"count": count})
}
