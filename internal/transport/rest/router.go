package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/company"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/department"
	"github.com/frahmantamala/training-identity/internal/employee"
	"github.com/frahmantamala/training-identity/internal/notification"
	"github.com/frahmantamala/training-identity/internal/transport/middleware"
	"github.com/frahmantamala/training-identity/internal/transport/swagger"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	CompanyAuth  *auth.Handler[*companyCore.Company]
	EmployeeAuth *auth.Handler[*employeeCore.Employee]
	Company      *company.Handler
	Employee     *employee.Handler
	Department   *department.Handler
	Notification *notification.Handler
	Health       *HealthHandler
}

type Options struct {
	AllowedOrigins string
	IsDevelopment  bool
	MetricsEnabled bool
	MetricsPath    string
	// AuthRateLimit is applied per client IP to /api/v1/auth.
	AuthRateLimit func(http.Handler) http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, resolver *authz.Resolver, opts Options, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.NewSecure(middleware.SecureOptions(opts.IsDevelopment)))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.MetricsEnabled {
		router.Use(middleware.PrometheusMiddleware)
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.Handler())
	}

	router.Get("/openapi.yml", swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			if opts.AuthRateLimit != nil {
				ar.Use(opts.AuthRateLimit)
			}
			ar.Route("/company", func(cr chi.Router) {
				registerAuthRoutes(cr, h.CompanyAuth, resolver.ProtectCompany)
			})
			ar.Route("/employee", func(er chi.Router) {
				registerAuthRoutes(er, h.EmployeeAuth, resolver.ProtectEmployee)
			})
		})

		r.With(resolver.ProtectCompany).Get("/companies/me", h.Company.Me)

		r.Route("/employees", func(er chi.Router) {
			er.With(resolver.ProtectEmployee).Get("/me", h.Employee.Me)

			// the service decides between the company and the department admin
			er.Group(func(vr chi.Router) {
				vr.Use(resolver.ProtectAny, resolver.RequireVerified)
				vr.Post("/{id}/approve", h.Department.Approve)
				vr.Post("/{id}/disapprove", h.Department.Disapprove)
			})
		})

		r.Route("/departments", func(dr chi.Router) {
			dr.Group(func(cr chi.Router) {
				cr.Use(resolver.ProtectCompany)
				cr.Get("/", h.Department.List)
				cr.With(resolver.RequireVerified).Post("/", h.Department.Create)
			})

			dr.Group(func(sr chi.Router) {
				sr.Use(resolver.ProtectAny, resolver.AllowedToActOnDepartment)
				sr.Get("/{id}", h.Department.Get)
				sr.Get("/{id}/audit-logs", h.Department.AuditLogs)
				sr.With(resolver.RequireVerified).Delete("/{id}/employees/{employeeId}", h.Department.RemoveEmployee)
			})

			dr.Group(func(or chi.Router) {
				or.Use(resolver.ProtectCompany, resolver.RequireVerified, resolver.CompanyDepartment)
				or.Post("/{id}/employees", h.Department.AddEmployee)
				or.Post("/{id}/admin", h.Department.AssignAdmin)
				or.Delete("/{id}/admin/{employeeId}", h.Department.RevokeAdmin)
				or.Post("/{id}/activate", h.Department.Activate)
				or.Post("/{id}/deactivate", h.Department.Deactivate)
			})
		})

		r.Route("/notifications", func(nr chi.Router) {
			nr.Use(resolver.ProtectAny)
			nr.Get("/", h.Notification.List)
			nr.Post("/read-all", h.Notification.MarkAllRead)
			nr.Post("/{id}/read", h.Notification.MarkRead)
		})
	})
}

func registerAuthRoutes[T account.Account](r chi.Router, h *auth.Handler[T], protect func(http.Handler) http.Handler) {
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/verify", h.Verify)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/password-reset-request", h.RequestPasswordReset)
	r.Post("/reset-password", h.ResetPassword)
	r.Post("/logout", h.Logout)

	r.Group(func(pr chi.Router) {
		pr.Use(protect)
		pr.Post("/mfa", h.ConfigureMFA)
		pr.Post("/mfa/confirm", h.ConfirmMFA)
		pr.Post("/mfa/disable", h.DisableMFA)
	})
}
