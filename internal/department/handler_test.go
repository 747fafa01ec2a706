package department_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/authz"
	companypg "github.com/frahmantamala/training-identity/internal/company/postgres"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/department"
	"github.com/frahmantamala/training-identity/internal/department/postgres"
	employeepg "github.com/frahmantamala/training-identity/internal/employee/postgres"
	"github.com/frahmantamala/training-identity/internal/token"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testSecret = "an-hs256-secret-that-is-long-enough-for-tests"

var _ = Describe("Handler", func() {
	var (
		ctx      context.Context
		sessions *token.SessionCodec
		router   chi.Router

		acme   *companyCore.Company
		globex *companyCore.Company
		ops    *departmentCore.Department
		alice  *employeeCore.Employee
		drifty *employeeCore.Employee
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, sqlxDB := openDB()
		sessions = token.NewSessionCodec(testSecret)
		departments := postgres.NewDepartmentRepository(db)

		service := department.NewService(department.Dependencies{
			Store:  postgres.NewStore(db),
			Audit:  auditlog.NewRepository(sqlxDB),
			Logger: discardLogger(),
		})
		handler := department.NewHandler(service)
		resolver := authz.NewResolver(sessions, companypg.NewCompanyRepository(db), employeepg.NewEmployeeRepository(db), departments,
			transport.NewCookieSettings(time.Hour, false), time.Hour, discardLogger())

		acme = seedCompany(ctx, db, "Acme Ltd")
		globex = seedCompany(ctx, db, "Globex")
		var err error
		ops, err = service.Create(ctx, &authz.Identity{Company: acme}, department.CreateDTO{Name: "Operations"})
		Expect(err).NotTo(HaveOccurred())
		alice = seedEmployee(ctx, db, acme.ID, &ops.ID)
		drifty = seedEmployee(ctx, db, acme.ID, nil)

		router = chi.NewRouter()
		router.Route("/departments", func(r chi.Router) {
			r.With(resolver.ProtectCompany).Get("/", handler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.With(resolver.ProtectAny, resolver.AllowedToActOnDepartment).Get("/", handler.Get)
				r.With(resolver.ProtectCompany, resolver.RequireVerified, resolver.CompanyDepartment).Post("/admin", handler.AssignAdmin)
			})
		})
	})

	do := func(method, target, bearer string, body interface{}) (*httptest.ResponseRecorder, transport.Envelope) {
		var raw []byte
		if body != nil {
			var err error
			raw, err = json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
		}
		req := httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var env transport.Envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
		return rec, env
	}

	tokenFor := func(accountID string) string {
		t, err := sessions.Issue(accountID, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	It("assigns an admin for the owning company and slides the session", func() {
		rec, env := do(http.MethodPost, "/departments/"+ops.ID+"/admin", tokenFor(acme.ID), department.EmployeeDTO{EmployeeID: alice.ID})
		Expect(rec.Code).To(Equal(http.StatusOK))
		data := env.Data.(map[string]interface{})
		admin := data["department"].(map[string]interface{})["department_admin"].(map[string]interface{})
		Expect(admin["id"]).To(Equal(alice.ID))
		Expect(rec.Result().Cookies()).NotTo(BeEmpty())
	})

	It("answers 403 when the employee is not in the department", func() {
		rec, env := do(http.MethodPost, "/departments/"+ops.ID+"/admin", tokenFor(acme.ID), department.EmployeeDTO{EmployeeID: drifty.ID})
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(env.Status).To(Equal(transport.StatusFail))
		Expect(env.Code).To(Equal("FORBIDDEN"))
	})

	It("keeps another tenant out of the department", func() {
		rec, env := do(http.MethodPost, "/departments/"+ops.ID+"/admin", tokenFor(globex.ID), department.EmployeeDTO{EmployeeID: alice.ID})
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(env.Code).To(Equal("FORBIDDEN"))

		rec, _ = do(http.MethodGet, "/departments/"+ops.ID, tokenFor(globex.ID), nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("rejects an employee token on company routes", func() {
		rec, env := do(http.MethodPost, "/departments/"+ops.ID+"/admin", tokenFor(alice.ID), department.EmployeeDTO{EmployeeID: alice.ID})
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(env.Code).To(Equal("UNAUTHENTICATED"))
	})

	It("lets the department admin read the department but not a plain member", func() {
		rec, _ := do(http.MethodGet, "/departments/"+ops.ID, tokenFor(alice.ID), nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec, _ = do(http.MethodPost, "/departments/"+ops.ID+"/admin", tokenFor(acme.ID), department.EmployeeDTO{EmployeeID: alice.ID})
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec, env := do(http.MethodGet, "/departments/"+ops.ID, tokenFor(alice.ID), nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Data.(map[string]interface{})["department"].(map[string]interface{})["name"]).To(Equal("Operations"))
	})

	It("answers 404 for an unknown department", func() {
		rec, env := do(http.MethodGet, "/departments/missing", tokenFor(acme.ID), nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(env.Code).To(Equal("DEPARTMENT_NOT_FOUND"))
	})

	It("answers 401 without a session", func() {
		rec, env := do(http.MethodGet, "/departments/", "", nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(env.Code).To(Equal("UNAUTHENTICATED"))
	})

	It("lists the company's departments", func() {
		rec, env := do(http.MethodGet, "/departments/", tokenFor(acme.ID), nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(env.Data.(map[string]interface{})["count"]).To(BeEquivalentTo(1))
	})
})
