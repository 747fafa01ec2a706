package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/delivery"
	"github.com/frahmantamala/training-identity/internal/notification"
	notificationPostgres "github.com/frahmantamala/training-identity/internal/notification/postgres"
	"github.com/frahmantamala/training-identity/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the background workers: account mail delivery and notification retention.`,
}

var deliveryWorkerCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Start the account mail delivery worker",
	Long:  `Consume the verification, OTP and password reset mail queued by the API`,
	Run: func(cmd *cobra.Command, args []string) {
		startDeliveryWorker()
	},
}

var cleanupWorkerCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Start the notification retention worker",
	Long:  `Periodically delete notifications older than the configured retention`,
	Run: func(cmd *cobra.Command, args []string) {
		startCleanupWorker()
	},
}

var concurrency int

func startDeliveryWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()
	if !config.Queue.Enabled {
		logger.Warn("queue is disabled; the API sends mail inline and nothing will be consumed")
	}

	workers := getIntFlag(concurrency, config.Queue.Concurrency)
	logger.Info("starting delivery worker", "concurrency", workers, "redis", config.Redis.Addr, "mail_driver", config.Mail.Driver)

	worker := delivery.NewWorker(redisClientOpt(config), workers, newMailer(config, logger), logger)

	// asynq handles SIGINT and SIGTERM itself and drains in-flight tasks
	if err := worker.Run(); err != nil {
		logger.Error("delivery worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("delivery worker shutdown complete")
}

func startCleanupWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	gormDB, err := initGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
	}

	// nothing subscribes here; the bus only satisfies the service
	service := notification.NewService(notificationPostgres.NewNotificationRepository(gormDB), events.NewEventBus(logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notification cleanup worker is running",
		"every", config.Security.NotificationCleanupEvery,
		"retention", config.Security.NotificationRetention)

	service.RunCleanup(ctx, config.Security.NotificationCleanupEvery, config.Security.NotificationRetention)
	logger.Info("notification cleanup worker stopped")
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	deliveryWorkerCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of concurrent deliveries (overrides config)")

	workerCmd.AddCommand(deliveryWorkerCmd)
	workerCmd.AddCommand(cleanupWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
