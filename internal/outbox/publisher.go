package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

// Source hands pending outbox rows to publish and marks the ones that went out.
type Source interface {
	PublishPending(ctx context.Context, limit int, publish func(crdb.OutboxRecord) error) (int, error)
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	source Source
	broker Broker
	logger observability.Logger
	batch  int
	now    func() time.Time
}

func NewPublisher(source Source, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{source: source, broker: broker, logger: logger, batch: 10, now: time.Now}
}

// PublishBatch sends one batch. The dedupe key travels as the message id so
// consumers can drop redeliveries.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var oldest time.Duration
	n, err := p.source.PublishPending(ctx, p.batch, func(rec crdb.OutboxRecord) error {
		msg := amqp.Publishing{
			MessageId:    rec.DedupeKey,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    rec.CreatedAt,
			Type:         rec.EventType,
			Body:         rec.Payload,
		}
		if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithField("outbox_id", rec.ID).WithError(err).Warn("failed to publish outbox event")
			return err
		}
		if lag := p.now().Sub(rec.CreatedAt); lag > oldest {
			oldest = lag
		}
		return nil
	})
	if n > 0 {
		observability.OutboxLag.Set(oldest.Seconds())
	}
	return n, err
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			if err != nil {
				p.logger.WithError(err).Error("outbox batch failed")
				continue
			}
			if n > 0 {
				p.logger.WithField("published", n).Debug("outbox batch published")
			}
		}
	}
}
