package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/cache"
	"github.com/frahmantamala/training-identity/internal/company"
	companyPostgres "github.com/frahmantamala/training-identity/internal/company/postgres"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	companyDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/company"
	departmentDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/department"
	employeeDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/employee"
	notificationDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/notification"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/delivery"
	"github.com/frahmantamala/training-identity/internal/department"
	departmentPostgres "github.com/frahmantamala/training-identity/internal/department/postgres"
	"github.com/frahmantamala/training-identity/internal/employee"
	employeePostgres "github.com/frahmantamala/training-identity/internal/employee/postgres"
	"github.com/frahmantamala/training-identity/internal/notification"
	notificationPostgres "github.com/frahmantamala/training-identity/internal/notification/postgres"
	"github.com/frahmantamala/training-identity/internal/token"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const createAuditLogs = `
CREATE TABLE audit_logs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  performed_by_id TEXT NOT NULL,
  performed_by_model TEXT NOT NULL,
  performed_by_role TEXT NOT NULL DEFAULT '',
  performed_by_name TEXT NOT NULL DEFAULT '',
  performed_by_email TEXT NOT NULL DEFAULT '',
  company_id TEXT NOT NULL,
  department_id TEXT,
  employee_id TEXT,
  details TEXT,
  ip TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
)`

type apiResponse struct {
	Status string                 `json:"status"`
	Token  string                 `json:"token"`
	Code   string                 `json:"code"`
	Data   map[string]interface{} `json:"data"`
}

var _ = Describe("RegisterAllRoutes", func() {
	var (
		db     *gorm.DB
		router *chi.Mux
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logger.Silent),
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(
			&companyDatamodel.Company{},
			&employeeDatamodel.Employee{},
			&departmentDatamodel.Department{},
			&notificationDatamodel.Notification{},
		)).To(Succeed())
		x := sqlx.NewDb(sqlDB, "sqlite3")
		_, err = x.Exec(createAuditLogs)
		Expect(err).NotTo(HaveOccurred())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus := events.NewEventBus(lg)
		notifications := notification.NewService(notificationPostgres.NewNotificationRepository(db), bus, lg)
		notification.NewSubscriber(notifications).Register(bus)

		sessions := token.NewSessionCodec("router-test-secret-that-is-long-enough")
		cookies := transport.NewCookieSettings(time.Hour, false)
		notifier := delivery.NewDirectNotifier(delivery.NewLogMailer(lg))
		settings := auth.Settings{
			SessionTTL:           time.Hour,
			RememberTTL:          24 * time.Hour,
			VerificationTokenTTL: time.Hour,
			ResetTokenTTL:        10 * time.Minute,
			OTPTTL:               5 * time.Minute,
			PublicURL:            "http://api.test",
			FrontendURL:          "http://app.test",
			Issuer:               "Training Identity",
		}
		hasher := account.NewBcryptHasher(4)

		companies := companyPostgres.NewCompanyRepository(db)
		employees := employeePostgres.NewEmployeeRepository(db)
		departments := departmentPostgres.NewDepartmentRepository(db)

		companyFlow := auth.NewFlow(company.AuthPolicy(false), settings, auth.Dependencies[*companyCore.Company]{
			Repository: companies, Hasher: hasher, Sessions: sessions, Notifier: notifier, Events: bus, Logger: lg,
		})
		employeeFlow := auth.NewFlow(employee.AuthPolicy(false), settings, auth.Dependencies[*employeeCore.Employee]{
			Repository: employees, Hasher: hasher, Sessions: sessions, Notifier: notifier, Events: bus, Logger: lg,
		})
		departmentService := department.NewService(department.Dependencies{
			Store:         departmentPostgres.NewStore(db),
			Audit:         auditlog.NewRepository(x),
			Notifications: notifications,
			Cache:         cache.Noop{},
			Logger:        lg,
		})

		router = chi.NewRouter()
		RegisterAllRoutes(router, Handlers{
			CompanyAuth:  auth.NewHandler(companyFlow, company.Binder{}, cookies),
			EmployeeAuth: auth.NewHandler(employeeFlow, employee.Binder{Companies: companies}, cookies),
			Company:      company.NewHandler(),
			Employee:     employee.NewHandler(),
			Department:   department.NewHandler(departmentService),
			Notification: notification.NewHandler(notifications),
			Health:       NewHealthHandler(sqlDB, nil),
		}, authz.NewResolver(sessions, companies, employees, departments, cookies, time.Hour, lg), Options{
			IsDevelopment:  true,
			MetricsEnabled: true,
		}, lg)
	})

	call := func(method, path, bearer, body string) (int, apiResponse) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var resp apiResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		return rec.Code, resp
	}

	signup := func() string {
		code, resp := call(http.MethodPost, "/api/v1/auth/company/signup", "", `{
			"name": "Acme Training",
			"primary_email": "hr@acme.test",
			"phone_number": "+6281100000001",
			"password": "password123",
			"password_confirm": "password123"
		}`)
		Expect(code).To(Equal(http.StatusCreated))
		Expect(resp.Token).NotTo(BeEmpty())
		return resp.Token
	}

	It("serves the API document, docs and metrics outside the api prefix", func() {
		code, _ := call(http.MethodGet, "/openapi.yml", "", "")
		Expect(code).To(Equal(http.StatusOK))

		code, _ = call(http.MethodGet, "/metrics", "", "")
		Expect(code).To(Equal(http.StatusOK))

		code, _ = call(http.MethodGet, "/api/v1/ping", "", "")
		Expect(code).To(Equal(http.StatusOK))
	})

	It("rejects protected routes without a session", func() {
		code, resp := call(http.MethodGet, "/api/v1/departments", "", "")
		Expect(code).To(Equal(http.StatusUnauthorized))
		Expect(resp.Code).To(Equal("UNAUTHENTICATED"))

		code, _ = call(http.MethodGet, "/api/v1/notifications", "", "")
		Expect(code).To(Equal(http.StatusUnauthorized))
	})

	It("takes a company from signup through department creation", func() {
		bearer := signup()

		code, resp := call(http.MethodGet, "/api/v1/companies/me", bearer, "")
		Expect(code).To(Equal(http.StatusOK))
		Expect(resp.Data).To(HaveKey("company"))

		code, _ = call(http.MethodGet, "/api/v1/employees/me", bearer, "")
		Expect(code).To(Equal(http.StatusUnauthorized))

		code, resp = call(http.MethodPost, "/api/v1/departments", bearer, `{"name":"Engineering"}`)
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(resp.Code).To(Equal("NOT_VERIFIED"))

		Expect(db.Exec("UPDATE companies SET is_verified = ?", true).Error).To(Succeed())

		code, resp = call(http.MethodPost, "/api/v1/departments", bearer, `{"name":"Engineering"}`)
		Expect(code).To(Equal(http.StatusCreated))
		created := resp.Data["department"].(map[string]interface{})
		id := created["id"].(string)

		code, resp = call(http.MethodGet, "/api/v1/departments/"+id, bearer, "")
		Expect(code).To(Equal(http.StatusOK))

		code, resp = call(http.MethodGet, "/api/v1/departments", bearer, "")
		Expect(code).To(Equal(http.StatusOK))
		Expect(resp.Data["count"]).To(BeEquivalentTo(1))

		code, _ = call(http.MethodGet, "/api/v1/departments/missing", bearer, "")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("delivers the registration notification to the new account", func() {
		bearer := signup()

		Eventually(func() interface{} {
			_, resp := call(http.MethodGet, "/api/v1/notifications", bearer, "")
			return resp.Data["total"]
		}).Should(BeEquivalentTo(1))
	})
})
