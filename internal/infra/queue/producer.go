package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer relays lead changes from the database listener to every instance.
type Producer struct {
	Ch publisher
}

func NewProducer(ch *amqp.Channel) *Producer {
	return &Producer{Ch: ch}
}

func (p *Producer) PublishLeadChanged(ctx context.Context, change entity.LeadChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode lead change: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   change.OccurredAt,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish lead change: %w", err)
	}
	return nil
}
