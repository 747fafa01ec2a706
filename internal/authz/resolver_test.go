package authz_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/core/company"
	"github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/token"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testSecret = "an-hs256-secret-that-is-long-enough-for-tests"

var _ = Describe("Resolver", func() {
	var (
		now      time.Time
		sessions *token.SessionCodec
		resolver *authz.Resolver

		acme  *company.Company
		ops   *department.Department
		alice *employee.Employee
	)

	BeforeEach(func() {
		now = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
		sessions = token.NewSessionCodec(testSecret).WithClock(func() time.Time { return now })

		acme = company.New("Acme Ltd", "hr@acme.test", nil, "+251920000001")
		acme.IsVerified = true
		ops = department.New(acme.ID, "Operations")
		acme.Departments = []company.DepartmentRef{{ID: ops.ID, Name: ops.Name}}
		alice = employee.New("Almaz Tesfaye", "almaz@acme.test", "+251911000001", acme.ID, &ops.ID)

		resolver = authz.NewResolver(sessions,
			companies{acme.ID: acme},
			employees{alice.ID: alice},
			departments{ops.ID: ops},
			transport.NewCookieSettings(time.Hour, false), time.Hour, discardLogger())
	})

	request := func(bearer string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		return req
	}

	issue := func(id string) string {
		t, err := sessions.Issue(id, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	It("rejects a missing or literal null token", func() {
		_, err := resolver.Resolve(request(""), authz.ProbeAny)
		Expect(err).To(MatchError(errors.ErrUnauthenticated))

		_, err = resolver.Resolve(request("null"), authz.ProbeAny)
		Expect(err).To(MatchError(errors.ErrUnauthenticated))
	})

	It("accepts the session cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: transport.SessionCookie, Value: issue(alice.ID)})
		id, err := resolver.Resolve(req, authz.ProbeEmployee)
		Expect(err).NotTo(HaveOccurred())
		Expect(id.IsEmployee()).To(BeTrue())
	})

	It("probes companies first and falls through to employees", func() {
		id, err := resolver.Resolve(request(issue(acme.ID)), authz.ProbeAny)
		Expect(err).NotTo(HaveOccurred())
		Expect(id.IsCompany()).To(BeTrue())

		id, err = resolver.Resolve(request(issue(alice.ID)), authz.ProbeAny)
		Expect(err).NotTo(HaveOccurred())
		Expect(id.CompanyID()).To(Equal(acme.ID))
	})

	It("does not find an employee on a company probe", func() {
		_, err := resolver.Resolve(request(issue(alice.ID)), authz.ProbeCompany)
		Expect(err).To(MatchError(errors.ErrUnauthenticated))
	})

	It("invalidates tokens issued at or before a password change", func() {
		before := issue(alice.ID)

		now = now.Add(time.Minute)
		changed := now
		alice.PasswordChangedAt = &changed

		_, err := resolver.Resolve(request(before), authz.ProbeEmployee)
		Expect(err).To(MatchError(errors.ErrPasswordChanged))

		sameInstant := issue(alice.ID)
		_, err = resolver.Resolve(request(sameInstant), authz.ProbeEmployee)
		Expect(err).To(MatchError(errors.ErrPasswordChanged))

		now = now.Add(time.Millisecond)
		_, err = resolver.Resolve(request(issue(alice.ID)), authz.ProbeEmployee)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("middleware", func() {
		var router chi.Router

		BeforeEach(func() {
			ok := func(w http.ResponseWriter, r *http.Request) {
				id, _ := authz.IdentityFromContext(r.Context())
				d, _ := authz.DepartmentFromContext(r.Context())
				w.Header().Set("X-Account", id.ID())
				if d != nil {
					w.Header().Set("X-Department", d.ID)
				}
				w.WriteHeader(http.StatusNoContent)
			}
			router = chi.NewRouter()
			router.With(resolver.ProtectAny, resolver.RequireVerified).Get("/verified", ok)
			router.With(resolver.ProtectAny, resolver.AllowedToActOnDepartment).Get("/departments/{id}", ok)
		})

		serve := func(target, bearer string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if bearer != "" {
				req.Header.Set("Authorization", "Bearer "+bearer)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		envelope := func(rec *httptest.ResponseRecorder) transport.Envelope {
			var env transport.Envelope
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
			return env
		}

		It("attaches the identity and refreshes the cookie", func() {
			rec := serve("/verified", issue(acme.ID))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("X-Account")).To(Equal(acme.ID))

			cookies := rec.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal(transport.SessionCookie))
			Expect(cookies[0].HttpOnly).To(BeTrue())
		})

		It("rejects unverified callers", func() {
			rec := serve("/verified", issue(alice.ID))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(envelope(rec).Code).To(Equal("NOT_VERIFIED"))
		})

		It("loads the department for its owner", func() {
			rec := serve("/departments/"+ops.ID, issue(acme.ID))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("X-Department")).To(Equal(ops.ID))
		})

		It("forbids a plain member", func() {
			rec := serve("/departments/"+ops.ID, issue(alice.ID))
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(envelope(rec).Code).To(Equal("FORBIDDEN"))
		})

		It("answers not found for an unknown department", func() {
			rec := serve("/departments/nope", issue(acme.ID))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(envelope(rec).Code).To(Equal("DEPARTMENT_NOT_FOUND"))
		})
	})
})
