package authz

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/company"
	"github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/token"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/frahmantamala/training-identity/pkg/logger"
	"github.com/go-chi/chi"
)

type CompanyFinder interface {
	FindByID(ctx context.Context, id string) (*company.Company, error)
}

type EmployeeFinder interface {
	FindByID(ctx context.Context, id string) (*employee.Employee, error)
}

type DepartmentFinder interface {
	FindByID(ctx context.Context, id string) (*department.Department, error)
}

type SessionCodec interface {
	Issue(accountID string, ttl time.Duration) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

// Probe selects which account collections a token may belong to.
type Probe int

const (
	ProbeCompany Probe = iota
	ProbeEmployee
	ProbeAny
)

type Resolver struct {
	*transport.BaseHandler
	sessions    SessionCodec
	companies   CompanyFinder
	employees   EmployeeFinder
	departments DepartmentFinder
	cookies     *transport.CookieSettings
	sessionTTL  time.Duration
}

func NewResolver(sessions SessionCodec, companies CompanyFinder, employees EmployeeFinder, departments DepartmentFinder, cookies *transport.CookieSettings, sessionTTL time.Duration, lg *slog.Logger) *Resolver {
	return &Resolver{
		BaseHandler: transport.NewBaseHandler(lg),
		sessions:    sessions,
		companies:   companies,
		employees:   employees,
		departments: departments,
		cookies:     cookies,
		sessionTTL:  sessionTTL,
	}
}

// Resolve authenticates the request. It never writes to the response.
func (res *Resolver) Resolve(r *http.Request, probe Probe) (*Identity, error) {
	raw := transport.SessionToken(r)
	if raw == "" || raw == "null" {
		return nil, errors.ErrUnauthenticated
	}

	claims, err := res.sessions.Verify(raw)
	if err != nil {
		return nil, errors.ErrUnauthenticated
	}

	id, err := res.lookup(r.Context(), claims.AccountID, probe)
	if err != nil {
		return nil, err
	}

	if id.Account().Auth().ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, errors.ErrPasswordChanged
	}
	return id, nil
}

func (res *Resolver) lookup(ctx context.Context, accountID string, probe Probe) (*Identity, error) {
	if probe == ProbeCompany || probe == ProbeAny {
		c, err := res.companies.FindByID(ctx, accountID)
		switch {
		case err == nil:
			return &Identity{Company: c}, nil
		case !stdErrors.Is(err, account.ErrNotFound):
			return nil, errors.NewInternalError("Failed to load account", err)
		}
	}
	if probe == ProbeEmployee || probe == ProbeAny {
		e, err := res.employees.FindByID(ctx, accountID)
		switch {
		case err == nil:
			return &Identity{Employee: e}, nil
		case !stdErrors.Is(err, account.ErrNotFound):
			return nil, errors.NewInternalError("Failed to load account", err)
		}
	}
	return nil, errors.ErrUnauthenticated
}

func (res *Resolver) protect(probe Probe) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r, probe)
			if err != nil {
				res.WriteAppError(w, r, err)
				return
			}

			// sliding session
			if fresh, err := res.sessions.Issue(id.ID(), res.sessionTTL); err == nil {
				res.cookies.Set(w, fresh)
			} else {
				res.Logger.Warn("failed to refresh session cookie", "account_id", id.ID(), "error", err)
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logger.With(ctx, "account_id", id.ID(), "account_kind", string(id.Kind()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (res *Resolver) ProtectCompany(next http.Handler) http.Handler {
	return res.protect(ProbeCompany)(next)
}

func (res *Resolver) ProtectEmployee(next http.Handler) http.Handler {
	return res.protect(ProbeEmployee)(next)
}

func (res *Resolver) ProtectAny(next http.Handler) http.Handler {
	return res.protect(ProbeAny)(next)
}

// CompanyDepartment admits only the company owning the {id} department.
// Must run after ProtectCompany.
func (res *Resolver) CompanyDepartment(next http.Handler) http.Handler {
	return res.department(func(id *Identity, d *department.Department) bool {
		return id.IsCompany() && IsCompanyOwnerOf(id.Company, d.ID)
	})(next)
}

// AllowedToActOnDepartment admits the owning company or the department's
// admin. Must run after ProtectAny.
func (res *Resolver) AllowedToActOnDepartment(next http.Handler) http.Handler {
	return res.department(CanActOnDepartment)(next)
}

func (res *Resolver) department(allowed func(*Identity, *department.Department) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				res.WriteAppError(w, r, errors.ErrUnauthenticated)
				return
			}

			d, err := res.departments.FindByID(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if stdErrors.Is(err, department.ErrNotFound) {
					res.WriteAppError(w, r, errors.ErrDepartmentNotFound)
					return
				}
				res.WriteAppError(w, r, errors.NewInternalError("Failed to load department", err))
				return
			}

			if !allowed(id, d) {
				res.WriteAppError(w, r, errors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithDepartment(r.Context(), d)))
		})
	}
}

// RequireVerified rejects callers that have not verified their address.
func (res *Resolver) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			res.WriteAppError(w, r, errors.ErrUnauthenticated)
			return
		}
		if !id.Account().Auth().IsVerified {
			res.WriteAppError(w, r, errors.ErrNotVerified)
			return
		}
		next.ServeHTTP(w, r)
	})
}
