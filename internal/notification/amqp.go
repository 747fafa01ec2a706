package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/training-identity/internal/core/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards created notifications to a RabbitMQ topic exchange
// so realtime gateways can push them to connected clients.
type AMQPPublisher struct {
	channel    Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewAMQPPublisher(channel Channel, exchange, routingKey string, logger *slog.Logger) (*AMQPPublisher, error) {
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// DialAMQP opens a connection and a channel. Closing the returned channel
// does not close the connection; callers close both.
func DialAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	return conn, ch, nil
}

func (p *AMQPPublisher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeNotificationCreated, p.Handle)
}

func (p *AMQPPublisher) Handle(ctx context.Context, event events.Event) error {
	evt, ok := event.(*events.NotificationCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	// recipient-scoped key lets consumers bind per account
	key := fmt.Sprintf("%s.%s.%s", p.routingKey, evt.RecipientModel, evt.RecipientID)
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.EventID(),
		Timestamp:    evt.OccurredAt(),
		Type:         evt.EventType(),
		Body:         body,
	})
	if err != nil {
		p.logger.Error("failed to publish notification", "error", err, "notification_id", evt.NotificationID)
		return err
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}
