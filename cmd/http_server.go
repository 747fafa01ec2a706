package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/cache"
	"github.com/frahmantamala/training-identity/internal/company"
	companyPostgres "github.com/frahmantamala/training-identity/internal/company/postgres"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/delivery"
	"github.com/frahmantamala/training-identity/internal/department"
	departmentPostgres "github.com/frahmantamala/training-identity/internal/department/postgres"
	"github.com/frahmantamala/training-identity/internal/employee"
	employeePostgres "github.com/frahmantamala/training-identity/internal/employee/postgres"
	"github.com/frahmantamala/training-identity/internal/notification"
	notificationPostgres "github.com/frahmantamala/training-identity/internal/notification/postgres"
	"github.com/frahmantamala/training-identity/internal/smsgateway"
	"github.com/frahmantamala/training-identity/internal/token"
	"github.com/frahmantamala/training-identity/internal/transport"
	"github.com/frahmantamala/training-identity/internal/transport/middleware"
	"github.com/frahmantamala/training-identity/internal/transport/rest"
	"github.com/frahmantamala/training-identity/internal/transport/swagger"
	"github.com/frahmantamala/training-identity/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Gorm    *gorm.DB
	Router  *chi.Mux
	Events  *events.EventBus
	Logger  *slog.Logger
	closers []func() error
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Error("failed to release resource", "error", err)
		}
	}
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	if _, err := swagger.Validate(ctx); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	deps := &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
		Events: events.NewEventBus(lg),
		Logger: lg,
	}
	deps.onClose(db.Close)

	if err := wireServer(ctx, deps); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func wireServer(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	healthExtra := map[string]rest.Pinger{}

	// notifications: persisted by the service, fed by the bus
	notifications := notification.NewService(notificationPostgres.NewNotificationRepository(deps.Gorm), deps.Events, lg)
	notification.NewSubscriber(notifications).Register(deps.Events)

	if cfg.RabbitMQ.Enabled {
		conn, ch, err := notification.DialAMQP(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		deps.onClose(conn.Close)
		publisher, err := notification.NewAMQPPublisher(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, lg)
		if err != nil {
			return err
		}
		publisher.Register(deps.Events)
		deps.onClose(publisher.Close)
	}

	var departmentCache department.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		deps.onClose(client.Close)
		redisCache := cache.NewRedisCache(client, "identity")
		departmentCache = redisCache
		healthExtra["redis"] = redisCache
	}

	notifier, err := newNotifier(cfg, lg, deps)
	if err != nil {
		return err
	}

	var sms auth.SMSGateway
	if cfg.SMSGateway.URL != "" {
		sms = smsgateway.NewClient(smsgateway.Config{URL: cfg.SMSGateway.URL, Timeout: cfg.SMSGateway.Timeout}, lg)
	}

	sessions := token.NewSessionCodec(cfg.Security.JWTSecret)
	hasher := account.NewBcryptHasher(cfg.Security.BCryptCost)
	cookies := transport.NewCookieSettings(cfg.Security.CookieTTL, cfg.Security.CookieSecure)
	settings := auth.Settings{
		SessionTTL:           cfg.Security.SessionTTL,
		RememberTTL:          cfg.Security.RememberTTL,
		VerificationTokenTTL: cfg.Security.VerificationTokenTTL,
		ResetTokenTTL:        cfg.Security.ResetTokenTTL,
		OTPTTL:               cfg.Security.OTPTTL,
		PublicURL:            cfg.App.PublicURL,
		FrontendURL:          cfg.App.FrontendURL,
		Issuer:               cfg.App.Issuer,
	}

	companies := companyPostgres.NewCompanyRepository(deps.Gorm)
	employees := employeePostgres.NewEmployeeRepository(deps.Gorm)
	departments := departmentPostgres.NewDepartmentRepository(deps.Gorm)

	companyFlow := auth.NewFlow(company.AuthPolicy(cfg.Security.CompanyVerifyWithOTP), settings, auth.Dependencies[*companyCore.Company]{
		Repository: companies,
		Hasher:     hasher,
		Sessions:   sessions,
		Notifier:   notifier,
		SMS:        sms,
		Events:     deps.Events,
		Logger:     lg,
	})
	employeeFlow := auth.NewFlow(employee.AuthPolicy(cfg.Security.EmployeeVerifyWithOTP), settings, auth.Dependencies[*employeeCore.Employee]{
		Repository: employees,
		Hasher:     hasher,
		Sessions:   sessions,
		Notifier:   notifier,
		SMS:        sms,
		Events:     deps.Events,
		Logger:     lg,
	})

	resolver := authz.NewResolver(sessions, companies, employees, departments, cookies, cfg.Security.SessionTTL, lg)

	departmentService := department.NewService(department.Dependencies{
		Store:         departmentPostgres.NewStore(deps.Gorm),
		Audit:         auditlog.NewRepository(deps.DB),
		Notifications: notifications,
		Cache:         departmentCache,
		CacheTTL:      cfg.Security.DepartmentCacheTTL,
		Logger:        lg,
	})

	authLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.Auth)
	if err != nil {
		return fmt.Errorf("invalid auth rate limit: %w", err)
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		CompanyAuth:  auth.NewHandler(companyFlow, company.Binder{}, cookies),
		EmployeeAuth: auth.NewHandler(employeeFlow, employee.Binder{Companies: companies}, cookies),
		Company:      company.NewHandler(),
		Employee:     employee.NewHandler(),
		Department:   department.NewHandler(departmentService),
		Notification: notification.NewHandler(notifications),
		Health:       rest.NewHealthHandler(deps.DB.DB, healthExtra),
	}, resolver, rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.App.Env != "production",
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		AuthRateLimit:  authLimit,
	}, lg)

	return nil
}

// newNotifier queues account mail for the delivery worker when the queue is
// enabled and sends it inline otherwise.
func newNotifier(cfg *internal.Config, lg *slog.Logger, deps *Dependencies) (auth.Notifier, error) {
	if !cfg.Queue.Enabled {
		return delivery.NewDirectNotifier(newMailer(cfg, lg)), nil
	}
	client := asynq.NewClient(redisClientOpt(cfg))
	deps.onClose(client.Close)
	return delivery.NewQueueNotifier(client, cfg.Queue.MaxRetry, lg), nil
}

func newMailer(cfg *internal.Config, lg *slog.Logger) delivery.Mailer {
	if cfg.Mail.Driver == "smtp" {
		return delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			Retries:  cfg.Mail.Retries,
		})
	}
	return delivery.NewLogMailer(lg)
}

func redisClientOpt(cfg *internal.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// initDB opens the pgx pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gormDB, nil
}
