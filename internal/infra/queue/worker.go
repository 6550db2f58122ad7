package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Momo-444/toitureai-api/internal/infra/mail"
	"github.com/Momo-444/toitureai-api/internal/log"
)

// Worker drains the email queue into a Deliverer (normally the SMTP sender).
type Worker struct {
	Channel   *amqp.Channel
	Deliverer mail.Deliverer
	logger    *slog.Logger
}

func NewWorker(ch *amqp.Channel, d mail.Deliverer) *Worker {
	return &Worker{
		Channel:   ch,
		Deliverer: d,
		logger:    log.WithComponent("email_worker"),
	}
}

// Start blocks until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.ConsumeWithContext(ctx,
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	w.logger.Info("email worker listening", slog.String("queue", queueName))
	w.run(ctx, msgs)
	return nil
}

func (w *Worker) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopped")
			return
		case d, ok := <-msgs:
			if !ok {
				w.logger.Warn("email queue channel closed")
				return
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks delivered jobs. A failed send is retried once, then dead-lettered.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job mail.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error("malformed email job", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	if err := w.Deliverer.Deliver(ctx, job); err != nil {
		w.logger.Error("email delivery failed",
			slog.String("subject", job.Subject),
			slog.Bool("redelivered", d.Redelivered),
			slog.String("error", err.Error()),
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	w.logger.Info("email delivered", slog.String("subject", job.Subject), slog.Int("recipients", len(job.To)))
	_ = d.Ack(false)
}
