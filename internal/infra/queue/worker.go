package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// Invalidator drops the cached reads of a tenant and resyncs its board.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Worker struct {
	Channel     *amqp.Channel
	Invalidator Invalidator
}

func NewWorker(ch *amqp.Channel, invalidator Invalidator) *Worker {
	return &Worker{Channel: ch, Invalidator: invalidator}
}

// Start consumes until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	log.WithField("queue", queueName).Info("lead change consumer running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}
			w.process(ctx, d.Body, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, body []byte, d acknowledger) {
	var change entity.LeadChange
	if err := json.Unmarshal(body, &change); err != nil || change.TenantID == "" {
		log.WithError(err).Warn("dropping malformed lead change")
		_ = d.Nack(false, false)
		return
	}

	logger := log.WithFields(log.Fields{"tenant_id": change.TenantID, "lead_id": change.LeadID, "op": change.Operation})
	if err := w.Invalidator.Invalidate(ctx, change.TenantID); err != nil {
		// the board stays on its last good read; the next change or request retries
		logger.WithError(err).Warn("invalidation after lead change failed")
		_ = d.Nack(false, false)
		return
	}
	logger.Debug("board invalidated by lead change")
	_ = d.Ack(false)
}
