package planner

import (
	"context"

	"github.com/muelle-planner/platform/pkg/common/kafka"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/common/models"
)

// DocumentConsumer applies board documents published on the bus, the queue
// counterpart of LoadRemote.
type DocumentConsumer struct {
	service  *Service
	consumer *kafka.Consumer
	dlq      EventPublisher
}

// NewDocumentConsumer wires a consumer; dlq may be nil.
func NewDocumentConsumer(service *Service, consumer *kafka.Consumer, dlq EventPublisher) *DocumentConsumer {
	return &DocumentConsumer{service: service, consumer: consumer, dlq: dlq}
}

// Run blocks until ctx is cancelled.
func (c *DocumentConsumer) Run(ctx context.Context) error {
	logger.Log.Info("document consumer started")
	err := c.consumer.Consume(ctx, c.Handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Handle applies one event. A rejected document would fail the same way on
// redelivery, so it is forwarded to the dead-letter topic and committed.
func (c *DocumentConsumer) Handle(ctx context.Context, event models.Event) error {
	if event.Type != models.EventDocumentApplied {
		return nil
	}
	log := logger.Log.WithFields(map[string]interface{}{"event_id": event.ID, "source": event.Source})

	summary, err := c.service.ApplyDocumentEvent(ctx, event)
	if err != nil {
		log.WithError(err).Warn("rejected document event")
		if c.dlq != nil {
			dead := event
			dead.Metadata = make(map[string]string, len(event.Metadata)+1)
			for k, v := range event.Metadata {
				dead.Metadata[k] = v
			}
			dead.Metadata["error"] = err.Error()
			if err := c.dlq.Publish(ctx, dead); err != nil {
				log.WithError(err).Error("failed to push event to DLQ")
			}
		}
		return nil
	}
	log.WithFields(map[string]interface{}{"count": summary.Imported, "variant": summary.Variant}).Info("document event applied")
	return nil
}

func (c *DocumentConsumer) Close() error {
	return c.consumer.Close()
}
