package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log"

	companyPostgres "github.com/frahmantamala/training-identity/internal/company/postgres"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	departmentPostgres "github.com/frahmantamala/training-identity/internal/department/postgres"
	employeePostgres "github.com/frahmantamala/training-identity/internal/employee/postgres"
	"github.com/spf13/cobra"
)

const seedPassword = "password123"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a verified demo company, one department and its employees.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()
		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "notifications", "employees", "departments", "companies"} {
				if table == "employees" {
					// departments reference their admin
					if err := gormDB.Exec("UPDATE departments SET department_admin_id = NULL").Error; err != nil {
						log.Fatalf("failed to detach department admins: %v", err)
					}
				}
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hasher := account.NewBcryptHasher(cfg.Security.BCryptCost)
		companies := companyPostgres.NewCompanyRepository(gormDB)
		employees := employeePostgres.NewEmployeeRepository(gormDB)
		departments := departmentPostgres.NewDepartmentRepository(gormDB)

		companyEmail := "hr@acme.test"
		_, err = companies.FindOne(ctx, map[string]string{"primary_email": companyEmail})
		if err == nil {
			fmt.Println("demo company already exists:", companyEmail)
			return
		}
		if !stdErrors.Is(err, account.ErrNotFound) {
			log.Fatalf("failed to look up demo company: %v", err)
		}

		co := companyCore.New("Acme Training", companyEmail, nil, "+6281100000001")
		if err := co.SetInitialPassword(hasher, seedPassword); err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		co.MarkVerified()
		if err := companies.Create(ctx, co); err != nil {
			log.Fatalf("failed to insert demo company: %v", err)
		}
		fmt.Println("Seeded company:", companyEmail)

		dept := departmentCore.New(co.ID, "Engineering")
		if err := departments.Create(ctx, dept); err != nil {
			log.Fatalf("failed to insert department: %v", err)
		}
		fmt.Println("Seeded department:", dept.Name)

		people := []struct {
			Name  string
			Email string
			Phone string
			Admin bool
		}{
			{"Fadhil Admin", "fadhil@acme.test", "+6281100000002", true},
			{"Padil Employee", "padil@acme.test", "+6281100000003", false},
		}

		for _, p := range people {
			e := employeeCore.New(p.Name, p.Email, p.Phone, co.ID, &dept.ID)
			if err := e.SetInitialPassword(hasher, seedPassword); err != nil {
				log.Fatalf("failed to hash password: %v", err)
			}
			e.MarkVerified()
			e.IsApproved = true
			if p.Admin {
				e.Role = employeeCore.RoleDepartmentAdmin
			}
			if err := employees.Create(ctx, e); err != nil {
				log.Fatalf("failed to insert employee %s: %v", p.Email, err)
			}
			if p.Admin {
				if err := departments.SwapAdmin(ctx, dept.ID, nil, &e.ID); err != nil {
					log.Fatalf("failed to assign department admin: %v", err)
				}
			}
			fmt.Println("Seeded employee:", p.Email)
		}

		fmt.Printf("All seeded accounts use the password %q\n", seedPassword)
	},
}
