package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Mail          MailConfig          `mapstructure:"mail"`
	SMSGateway    SMSGatewayConfig    `mapstructure:"sms_gateway"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Env string `mapstructure:"env" validate:"omitempty,oneof=development staging production test"`
	// PublicURL is where this API is reachable; verification links point here.
	PublicURL string `mapstructure:"public_url" validate:"required,url"`
	// FrontendURL hosts the password reset page.
	FrontendURL string `mapstructure:"frontend_url" validate:"required,url"`
	Issuer      string `mapstructure:"issuer"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source" validate:"required"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// SessionTTL is the default session lifetime; RememberTTL is used after
	// an OTP verification.
	SessionTTL               time.Duration `mapstructure:"session_ttl" validate:"required"`
	RememberTTL              time.Duration `mapstructure:"remember_ttl" validate:"required"`
	CookieTTL                time.Duration `mapstructure:"cookie_ttl" validate:"required"`
	CookieSecure             bool          `mapstructure:"cookie_secure"`
	BCryptCost               int           `mapstructure:"bcrypt_cost" validate:"required,min=4,max=15"`
	VerificationTokenTTL     time.Duration `mapstructure:"verification_token_ttl" validate:"required"`
	ResetTokenTTL            time.Duration `mapstructure:"reset_token_ttl" validate:"required"`
	OTPTTL                   time.Duration `mapstructure:"otp_ttl"`
	EmployeeVerifyWithOTP    bool          `mapstructure:"employee_verify_with_otp"`
	CompanyVerifyWithOTP     bool          `mapstructure:"company_verify_with_otp"`
	DepartmentCacheTTL       time.Duration `mapstructure:"department_cache_ttl"`
	NotificationRetention    time.Duration `mapstructure:"notification_retention"`
	NotificationCleanupEvery time.Duration `mapstructure:"notification_cleanup_every"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

type QueueConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency" validate:"min=0"`
	MaxRetry    int  `mapstructure:"max_retry" validate:"min=0"`
}

type MailConfig struct {
	// Driver is "smtp" or "log".
	Driver   string `mapstructure:"driver" validate:"omitempty,oneof=smtp log"`
	Host     string `mapstructure:"host" validate:"required_if=Driver smtp"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required_if=Driver smtp"`
	Retries  int    `mapstructure:"retries" validate:"min=0"`
}

type SMSGatewayConfig struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RabbitMQConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url" validate:"required_if=Enabled true"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type RateLimitConfig struct {
	// Auth is a ulule formatted rate such as "20-M". Empty disables.
	Auth string `mapstructure:"auth"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills optional durations and sizes left empty by the
// configuration source.
func (c *Config) ApplyDefaults() {
	if c.App.Issuer == "" {
		c.App.Issuer = "Training Identity"
	}
	if c.Security.OTPTTL <= 0 {
		c.Security.OTPTTL = 5 * time.Minute
	}
	if c.Security.DepartmentCacheTTL <= 0 {
		c.Security.DepartmentCacheTTL = 5 * time.Minute
	}
	if c.Security.NotificationRetention <= 0 {
		c.Security.NotificationRetention = 30 * 24 * time.Hour
	}
	if c.Security.NotificationCleanupEvery <= 0 {
		c.Security.NotificationCleanupEvery = time.Hour
	}
	if c.SMSGateway.Timeout <= 0 {
		c.SMSGateway.Timeout = 10 * time.Second
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = 5
	}
	if c.Mail.Driver == "" {
		c.Mail.Driver = "log"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "notifications"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// ----------------- ENV -----------------

// LoadConfigFromEnv builds the configuration for container deployments
// where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "production"),
			PublicURL:   getEnv("APP_PUBLIC_URL", "http://localhost:8080"),
			FrontendURL: getEnv("APP_FRONTEND_URL", "http://localhost:3000"),
			Issuer:      getEnv("APP_ISSUER", "Training Identity"),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", ""),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:             getEnv("JWT_SECRET", ""),
			SessionTTL:            getEnvAsDuration("SESSION_TTL", time.Hour),
			RememberTTL:           getEnvAsDuration("REMEMBER_TTL", 7*24*time.Hour),
			CookieTTL:             getEnvAsDuration("COOKIE_TTL", 7*24*time.Hour),
			CookieSecure:          getEnvAsBool("COOKIE_SECURE", true),
			BCryptCost:            getEnvAsInt("BCRYPT_COST", 12),
			VerificationTokenTTL:  getEnvAsDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			ResetTokenTTL:         getEnvAsDuration("RESET_TOKEN_TTL", 10*time.Minute),
			OTPTTL:                getEnvAsDuration("OTP_TTL", 5*time.Minute),
			EmployeeVerifyWithOTP: getEnvAsBool("EMPLOYEE_VERIFY_WITH_OTP", false),
			CompanyVerifyWithOTP:  getEnvAsBool("COMPANY_VERIFY_WITH_OTP", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			Enabled:     getEnvAsBool("QUEUE_ENABLED", false),
			Concurrency: getEnvAsInt("QUEUE_CONCURRENCY", 5),
			MaxRetry:    getEnvAsInt("QUEUE_MAX_RETRY", 5),
		},
		Mail: MailConfig{
			Driver:   getEnv("MAIL_DRIVER", "log"),
			Host:     getEnv("MAIL_HOST", ""),
			Port:     getEnvAsInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", ""),
			Retries:  getEnvAsInt("MAIL_RETRIES", 3),
		},
		SMSGateway: SMSGatewayConfig{
			URL:     getEnv("SMS_GATEWAY_URL", ""),
			Timeout: getEnvAsDuration("SMS_GATEWAY_TIMEOUT", 10*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:    getEnvAsBool("RABBITMQ_ENABLED", false),
			URL:        getEnv("RABBITMQ_URL", ""),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "notifications"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "notification.created"),
		},
		RateLimit: RateLimitConfig{
			Auth: getEnv("RATE_LIMIT_AUTH", "20-M"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.RememberTTL < c.SessionTTL {
		return errors.New("remember_ttl must be >= session_ttl")
	}
	if c.ResetTokenTTL > c.VerificationTokenTTL {
		return errors.New("reset_token_ttl must not exceed verification_token_ttl")
	}
	return nil
}
