package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/hibiken/asynq"
)

// Worker consumes the mail queue.
type Worker struct {
	srv      *asynq.Server
	mux      *asynq.ServeMux
	notifier *DirectNotifier
	logger   *slog.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, concurrency int, mailer Mailer, logger *slog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		LogLevel:    asynq.InfoLevel,
	})
	w := &Worker{
		srv:      srv,
		mux:      asynq.NewServeMux(),
		notifier: NewDirectNotifier(mailer),
		logger:   logger,
	}
	w.mux.HandleFunc(TypeSendVerification, w.HandleVerification)
	w.mux.HandleFunc(TypeSendOTP, w.HandleOTP)
	w.mux.HandleFunc(TypeSendPasswordReset, w.HandlePasswordReset)
	return w
}

// NewHandlers builds a worker without a server, for in-process dispatch.
func NewHandlers(mailer Mailer, logger *slog.Logger) *Worker {
	return &Worker{notifier: NewDirectNotifier(mailer), logger: logger}
}

func (w *Worker) HandleVerification(ctx context.Context, t *asynq.Task) error {
	var msg auth.VerificationMessage
	if err := decode(t, &msg); err != nil {
		return err
	}
	return w.deliver(t, msg.To, w.notifier.SendVerification(ctx, msg))
}

func (w *Worker) HandleOTP(ctx context.Context, t *asynq.Task) error {
	var msg auth.OTPMessage
	if err := decode(t, &msg); err != nil {
		return err
	}
	return w.deliver(t, msg.To, w.notifier.SendOTP(ctx, msg))
}

func (w *Worker) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var msg auth.PasswordResetMessage
	if err := decode(t, &msg); err != nil {
		return err
	}
	return w.deliver(t, msg.To, w.notifier.SendPasswordReset(ctx, msg))
}

func (w *Worker) deliver(t *asynq.Task, to string, err error) error {
	if err != nil {
		w.logger.Error("mail delivery failed", "type", t.Type(), "to", to, "error", err)
		return err
	}
	w.logger.Debug("mail delivered", "type", t.Type(), "to", to)
	return nil
}

// decode drops malformed payloads without retrying them.
func decode(t *asynq.Task, dst interface{}) error {
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// Run blocks until the server stops.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
