package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/hibiken/asynq"
)

const (
	TypeSendVerification  = "email:verification"
	TypeSendOTP           = "email:otp"
	TypeSendPasswordReset = "email:password_reset"

	queueName = "mail"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands messages to the delivery worker.
type QueueNotifier struct {
	client   Enqueuer
	maxRetry int
	logger   *slog.Logger
}

func NewQueueNotifier(client Enqueuer, maxRetry int, logger *slog.Logger) *QueueNotifier {
	return &QueueNotifier{client: client, maxRetry: maxRetry, logger: logger}
}

func (q *QueueNotifier) SendVerification(ctx context.Context, msg auth.VerificationMessage) error {
	return q.enqueue(ctx, TypeSendVerification, msg.To, msg)
}

func (q *QueueNotifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	return q.enqueue(ctx, TypeSendOTP, msg.To, msg)
}

func (q *QueueNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	return q.enqueue(ctx, TypeSendPasswordReset, msg.To, msg)
}

func (q *QueueNotifier) enqueue(ctx context.Context, taskType, to string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	task := asynq.NewTask(taskType, body, asynq.Queue(queueName), asynq.MaxRetry(q.maxRetry))
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.logger.Warn("enqueue mail failed", "type", taskType, "to", to, "error", err)
		return err
	}
	return nil
}
