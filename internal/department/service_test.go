package department_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/cache"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	departmentDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/department"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/department"
	"github.com/frahmantamala/training-identity/internal/department/postgres"
	employeepg "github.com/frahmantamala/training-identity/internal/employee/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func codeOf(err error) errors.ErrorCode {
	appErr, ok := errors.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Code
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		audit   *auditlog.Repository
		sink    *recordingSink
		redis   *miniredis.Miniredis
		service *department.Service

		acme   *companyCore.Company
		globex *companyCore.Company
		ops    *departmentCore.Department
		alice  *employeeCore.Employee
		bob    *employeeCore.Employee
		drifty *employeeCore.Employee
		stray  *employeeCore.Employee
	)

	asCompany := func(c *companyCore.Company) *authz.Identity {
		return &authz.Identity{Company: reload(ctx, db, c)}
	}
	asEmployee := func(e *employeeCore.Employee) *authz.Identity {
		fresh, err := employeepg.NewEmployeeRepository(db).FindByID(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		return &authz.Identity{Employee: fresh}
	}
	loadDepartment := func(id string) *departmentCore.Department {
		d, err := service.Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return d
	}
	loadEmployee := func(id string) *employeeCore.Employee {
		e, err := employeepg.NewEmployeeRepository(db).FindByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		ctx = errors.ContextWithRequestMetadata(context.Background(), errors.RequestMetadata{IP: "10.0.0.7", UserAgent: "ginkgo"})
		gormDB, sqlxDB := openDB()
		db = gormDB
		audit = auditlog.NewRepository(sqlxDB)
		sink = &recordingSink{}

		redis = miniredis.RunT(GinkgoT())
		client, err := cache.NewRedisClient(ctx, redis.Addr(), "", 0)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(client.Close)

		service = department.NewService(department.Dependencies{
			Store:         postgres.NewStore(db),
			Audit:         audit,
			Notifications: sink,
			Cache:         cache.NewRedisCache(client, "test"),
			CacheTTL:      time.Minute,
			Logger:        discardLogger(),
		})

		acme = seedCompany(ctx, db, "Acme Ltd")
		globex = seedCompany(ctx, db, "Globex")

		ops, err = service.Create(ctx, asCompany(acme), department.CreateDTO{Name: "Operations"})
		Expect(err).NotTo(HaveOccurred())

		alice = seedEmployee(ctx, db, acme.ID, &ops.ID)
		bob = seedEmployee(ctx, db, acme.ID, &ops.ID)
		drifty = seedEmployee(ctx, db, acme.ID, nil)
		stray = seedEmployee(ctx, db, globex.ID, nil)
		sink.inputs = nil
	})

	Describe("Create", func() {
		It("rejects a duplicate name within the company but not across companies", func() {
			_, err := service.Create(ctx, asCompany(acme), department.CreateDTO{Name: "Operations"})
			Expect(codeOf(err)).To(Equal(errors.ErrCodeValidationFailed))

			_, err = service.Create(ctx, asCompany(globex), department.CreateDTO{Name: "Operations"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("records who created it and from where", func() {
			page, err := service.AuditLogs(ctx, ops.ID, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Entries).To(HaveLen(1))
			entry := page.Entries[0]
			Expect(entry.Action).To(Equal(auditlog.ActionCreateDepartment))
			Expect(entry.PerformedBy.ID).To(Equal(acme.ID))
			Expect(entry.PerformedBy.Model).To(Equal(string(account.KindCompany)))
			Expect(entry.IP).To(Equal("10.0.0.7"))
			Expect(entry.UserAgent).To(Equal("ginkgo"))
		})

		It("shows up in the company's department projection", func() {
			Expect(reload(ctx, db, acme).OwnsDepartment(ops.ID)).To(BeTrue())
			Expect(reload(ctx, db, globex).OwnsDepartment(ops.ID)).To(BeFalse())
		})

		It("is refused to employees", func() {
			_, err := service.Create(ctx, asEmployee(alice), department.CreateDTO{Name: "Shadow"})
			Expect(err).To(MatchError(errors.ErrForbidden))
		})
	})

	Describe("List", func() {
		It("caches the listing and invalidates it on writes", func() {
			list, err := service.List(ctx, acme.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(redis.Exists("test:departments:" + acme.ID)).To(BeTrue())

			_, err = service.Create(ctx, asCompany(acme), department.CreateDTO{Name: "Finance"})
			Expect(err).NotTo(HaveOccurred())
			Expect(redis.Exists("test:departments:" + acme.ID)).To(BeFalse())

			list, err = service.List(ctx, acme.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].Name).To(Equal("Operations"))
		})
	})

	Describe("AssignAdmin", func() {
		It("writes both sides and keeps a single admin per employee", func() {
			updated, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.AdminID()).To(Equal(alice.ID))

			Expect(loadEmployee(alice.ID).Role).To(Equal(employeeCore.RoleDepartmentAdmin))
			Expect(loadDepartment(ops.ID).Admin.Email).To(Equal(alice.Email))

			var administered int64
			Expect(db.Model(&departmentDatamodel.Department{}).Where("department_admin_id = ?", alice.ID).Count(&administered).Error).To(Succeed())
			Expect(administered).To(BeEquivalentTo(1))

			Expect(sink.inputs).To(HaveLen(1))
			Expect(sink.inputs[0].RecipientID).To(Equal(alice.ID))
		})

		It("refuses a second admin for the department", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), bob.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeDepartmentAdministered))
			Expect(loadEmployee(bob.ID).Role).To(Equal(employeeCore.RoleEmployee))
		})

		It("refuses an employee who is already an admin", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAlreadyInState))
		})

		It("forbids an employee of the company who is not in the department", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), drifty.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
			Expect(loadDepartment(ops.ID).IsAdministered()).To(BeFalse())
			Expect(loadEmployee(drifty.ID).Role).To(Equal(employeeCore.RoleEmployee))
		})

		It("forbids an employee of another company", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), stray.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
		})

		It("rolls back the admin column when the employee write fails", func() {
			failing := department.NewService(department.Dependencies{
				Store:  failingAssignments{Store: postgres.NewStore(db)},
				Audit:  audit,
				Logger: discardLogger(),
			})

			_, err := failing.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeInternal))

			var row departmentDatamodel.Department
			Expect(db.Where("id = ?", ops.ID).First(&row).Error).To(Succeed())
			Expect(row.DepartmentAdminID).To(BeNil())
			Expect(loadEmployee(alice.ID).Role).To(Equal(employeeCore.RoleEmployee))
		})

		It("survives a credential write from a copy read before the assignment", func() {
			stale := loadEmployee(alice.ID)
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			stale.Auth().RecordFailedLogin()
			Expect(employeepg.NewEmployeeRepository(db).SaveCredentials(ctx, stale)).To(Succeed())

			Expect(loadEmployee(alice.ID).Role).To(Equal(employeeCore.RoleDepartmentAdmin))
			Expect(loadDepartment(ops.ID).AdminID()).To(Equal(alice.ID))
		})

		It("is not undone by a status change on a department read before it", func() {
			stale := loadDepartment(ops.ID)
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Deactivate(ctx, asCompany(acme), stale)
			Expect(err).NotTo(HaveOccurred())

			current := loadDepartment(ops.ID)
			Expect(current.IsActive).To(BeFalse())
			Expect(current.AdminID()).To(Equal(alice.ID))
		})

		It("detects a concurrent assignment through the conditional write", func() {
			stale := loadDepartment(ops.ID)
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AssignAdmin(ctx, asCompany(acme), stale, bob.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeDepartmentAdministered))
			Expect(loadEmployee(bob.ID).Role).To(Equal(employeeCore.RoleEmployee))
		})
	})

	Describe("RevokeAdmin", func() {
		BeforeEach(func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("clears both sides", func() {
			updated, err := service.RevokeAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.IsAdministered()).To(BeFalse())
			Expect(loadDepartment(ops.ID).IsAdministered()).To(BeFalse())
			Expect(loadEmployee(alice.ID).Role).To(Equal(employeeCore.RoleEmployee))
		})

		It("keeps both sides when the employee write fails", func() {
			failing := department.NewService(department.Dependencies{
				Store:  failingAssignments{Store: postgres.NewStore(db)},
				Audit:  audit,
				Logger: discardLogger(),
			})

			_, err := failing.RevokeAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeInternal))
			Expect(loadDepartment(ops.ID).AdminID()).To(Equal(alice.ID))
			Expect(loadEmployee(alice.ID).Role).To(Equal(employeeCore.RoleDepartmentAdmin))
		})

		It("refuses an employee who is not the admin", func() {
			_, err := service.RevokeAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), bob.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeNotDepartmentAdmin))
		})
	})

	Describe("AddEmployee and RemoveEmployee", func() {
		It("adds an unassigned employee of the company", func() {
			e, err := service.AddEmployee(ctx, asCompany(acme), loadDepartment(ops.ID), drifty.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*e.DepartmentID).To(Equal(ops.ID))
			Expect(loadDepartment(ops.ID).Employees).To(ContainElement(HaveField("ID", drifty.ID)))
		})

		It("refuses an already assigned employee", func() {
			_, err := service.AddEmployee(ctx, asCompany(acme), loadDepartment(ops.ID), bob.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAlreadyAssigned))
		})

		It("refuses an employee of another company", func() {
			_, err := service.AddEmployee(ctx, asCompany(acme), loadDepartment(ops.ID), stray.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
		})

		It("lets the department admin remove a member", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			e, err := service.RemoveEmployee(ctx, asEmployee(alice), loadDepartment(ops.ID), bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.DepartmentID).To(BeNil())
			Expect(loadEmployee(bob.ID).HasDepartment()).To(BeFalse())
		})

		It("refuses to remove the admin before revoking", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RemoveEmployee(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeDepartmentAdministered))
		})

		It("forbids the department admin from removing themselves", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RemoveEmployee(ctx, asEmployee(alice), loadDepartment(ops.ID), alice.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
			Expect(loadEmployee(alice.ID).InDepartment(ops.ID)).To(BeTrue())
		})

		It("answers not found for a non-member", func() {
			_, err := service.RemoveEmployee(ctx, asCompany(acme), loadDepartment(ops.ID), drifty.ID)
			Expect(err).To(MatchError(errors.ErrEmployeeNotFound))
		})
	})

	Describe("Approve and Disapprove", func() {
		It("lets the owning company approve once", func() {
			e, err := service.Approve(ctx, asCompany(acme), alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.IsApproved).To(BeTrue())
			Expect(loadEmployee(alice.ID).IsApproved).To(BeTrue())

			_, err = service.Approve(ctx, asCompany(acme), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAlreadyInState))

			Expect(sink.inputs).To(HaveLen(1))
			Expect(sink.inputs[0].RecipientID).To(Equal(alice.ID))
			Expect(sink.inputs[0].RecipientModel).To(Equal(account.KindEmployee))

			page, err := service.AuditLogs(ctx, ops.ID, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Entries[0].Action).To(Equal(auditlog.ActionApproveEmployee))
			Expect(*page.Entries[0].EmployeeID).To(Equal(alice.ID))
		})

		It("lets the employee's department admin approve", func() {
			_, err := service.AssignAdmin(ctx, asCompany(acme), loadDepartment(ops.ID), alice.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Approve(ctx, asEmployee(alice), bob.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("forbids a plain colleague", func() {
			_, err := service.Approve(ctx, asEmployee(bob), alice.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
		})

		It("isolates tenants", func() {
			_, err := service.Approve(ctx, asCompany(globex), alice.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
			Expect(loadEmployee(alice.ID).IsApproved).To(BeFalse())
		})

		It("refuses to disapprove an employee who was never approved", func() {
			_, err := service.Disapprove(ctx, asCompany(acme), alice.ID)
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAlreadyInState))
		})

		It("answers not found for an unknown employee", func() {
			_, err := service.Approve(ctx, asCompany(acme), "missing")
			Expect(err).To(MatchError(errors.ErrEmployeeNotFound))
		})
	})

	Describe("Activate and Deactivate", func() {
		It("toggles once and notifies the company", func() {
			d, err := service.Deactivate(ctx, asCompany(acme), loadDepartment(ops.ID))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.IsActive).To(BeFalse())
			Expect(loadDepartment(ops.ID).IsActive).To(BeFalse())

			_, err = service.Deactivate(ctx, asCompany(acme), loadDepartment(ops.ID))
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAlreadyInState))

			Expect(sink.inputs).To(HaveLen(1))
			Expect(sink.inputs[0].RecipientID).To(Equal(acme.ID))
			Expect(sink.inputs[0].RecipientModel).To(Equal(account.KindCompany))

			_, err = service.Activate(ctx, asCompany(acme), loadDepartment(ops.ID))
			Expect(err).NotTo(HaveOccurred())
			Expect(loadDepartment(ops.ID).IsActive).To(BeTrue())
		})
	})

	Describe("audit failures", func() {
		It("reports the failure after committing the change", func() {
			failing := department.NewService(department.Dependencies{
				Store:  postgres.NewStore(db),
				Audit:  failingAudit{Repository: audit},
				Logger: discardLogger(),
			})

			_, err := failing.Deactivate(ctx, asCompany(acme), loadDepartment(ops.ID))
			Expect(codeOf(err)).To(Equal(errors.ErrCodeAuditLogFailed))
			Expect(loadDepartment(ops.ID).IsActive).To(BeFalse())
		})
	})
})
