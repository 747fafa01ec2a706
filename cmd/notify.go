package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/notification"
	notificationPostgres "github.com/frahmantamala/training-identity/internal/notification/postgres"
	"github.com/frahmantamala/training-identity/pkg/logger"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [recipient-id]",
	Short: "Send a custom notification",
	Long:  `Store a custom notification for one account and fan it out to the realtime exchange when enabled`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sendNotification(args[0])
	},
}

var (
	notifyModel   string
	notifyTitle   string
	notifyMessage string
)

func sendNotification(recipientID string) {
	model := account.Kind(notifyModel)
	if model != account.KindCompany && model != account.KindEmployee {
		fmt.Fprintf(os.Stderr, "Unknown recipient model %q\n", notifyModel)
		os.Exit(1)
	}

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

	bus := events.NewEventBus(logger)
	if config.RabbitMQ.Enabled {
		conn, ch, err := notification.DialAMQP(config.RabbitMQ.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to rabbitmq: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		publisher, err := notification.NewAMQPPublisher(ch, config.RabbitMQ.Exchange, config.RabbitMQ.RoutingKey, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to declare exchange: %v\n", err)
			os.Exit(1)
		}
		defer publisher.Close()
		publisher.Register(bus)
	}

	service := notification.NewService(notificationPostgres.NewNotificationRepository(gormDB), bus.Sync(), logger)
	n, err := service.Send(context.Background(), notification.Input{
		RecipientID:    recipientID,
		RecipientModel: model,
		Type:           notification.TypeCustom,
		Title:          notifyTitle,
		Message:        notifyMessage,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send notification: %v\n", err)
		os.Exit(1)
	}

	logger.Info("notification sent", "notification_id", n.ID, "recipient_id", recipientID, "recipient_model", notifyModel)
}

func init() {
	notifyCmd.Flags().StringVar(&notifyModel, "model", string(account.KindEmployee), "Recipient model: Company or User")
	notifyCmd.Flags().StringVar(&notifyTitle, "title", "", "Notification title")
	notifyCmd.Flags().StringVar(&notifyMessage, "message", "", "Notification message")
	_ = notifyCmd.MarkFlagRequired("title")
	_ = notifyCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(notifyCmd)
}
