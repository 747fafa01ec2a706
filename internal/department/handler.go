package department

import (
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/authz"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/transport"
)

const defaultAuditPageLimit = 20

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

// scope returns the caller and the department loaded by the authz
// middleware.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (*authz.Identity, *departmentCore.Department, bool) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return nil, nil, false
	}
	d, ok := authz.DepartmentFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrDepartmentNotFound)
		return nil, nil, false
	}
	return id, d, true
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (string, bool) {
	var dto EmployeeDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return "", false
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return "", false
	}
	return dto.EmployeeID, true
}

// Create handles POST /departments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	var dto CreateDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	d, err := h.Service.Create(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Department created", map[string]interface{}{"department": d})
}

// List handles GET /departments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	list, err := h.Service.List(r.Context(), id.CompanyID())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"departments": list, "count": len(list)})
}

// Get handles GET /departments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.scope(w, r)
	if !ok {
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"department": d})
}

// AuditLogs handles GET /departments/{id}/audit-logs
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.scope(w, r)
	if !ok {
		return
	}

	page, limit := transport.Pagination(r, defaultAuditPageLimit)
	logs, err := h.Service.AuditLogs(r.Context(), d.ID, page, limit)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "", logs)
}

// AddEmployee handles POST /departments/{id}/employees
func (h *Handler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}
	employeeID, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}

	e, err := h.Service.AddEmployee(r.Context(), id, d, employeeID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Employee added to department", map[string]interface{}{"employee": e})
}

// RemoveEmployee handles DELETE /departments/{id}/employees/{employeeId}
func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}

	e, err := h.Service.RemoveEmployee(r.Context(), id, d, chi.URLParam(r, "employeeId"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Employee removed from department", map[string]interface{}{"employee": e})
}

// AssignAdmin handles POST /departments/{id}/admin
func (h *Handler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}
	employeeID, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}

	updated, err := h.Service.AssignAdmin(r.Context(), id, d, employeeID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department admin assigned", map[string]interface{}{"department": updated})
}

// RevokeAdmin handles DELETE /departments/{id}/admin/{employeeId}
func (h *Handler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}

	updated, err := h.Service.RevokeAdmin(r.Context(), id, d, chi.URLParam(r, "employeeId"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department admin revoked", map[string]interface{}{"department": updated})
}

// Activate handles POST /departments/{id}/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.Activate(r.Context(), id, d)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department activated", map[string]interface{}{"department": updated})
}

// Deactivate handles POST /departments/{id}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, d, ok := h.scope(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.Deactivate(r.Context(), id, d)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Department deactivated", map[string]interface{}{"department": updated})
}

// Approve handles POST /employees/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, true)
}

// Disapprove handles POST /employees/{id}/disapprove
func (h *Handler) Disapprove(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, false)
}

func (h *Handler) approval(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, errors.ErrUnauthenticated)
		return
	}

	employeeID := chi.URLParam(r, "id")
	var err error
	message := "Employee approved"
	if approve {
		_, err = h.Service.Approve(r.Context(), id, employeeID)
	} else {
		message = "Employee disapproved"
		_, err = h.Service.Disapprove(r.Context(), id, employeeID)
	}
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, message, map[string]interface{}{"employee_id": employeeID, "is_approved": approve})
}
