package events

import (
	"context"

	"github.com/pawsuite/pawsuite-backend/pkg/logger"
	"github.com/pawsuite/pawsuite-backend/pkg/messaging"
)

// Sink is the transport the publisher writes to. Satisfied by
// messaging.Publisher in production and by a recording fake in tests.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Publisher publishes stock domain events. Event publication is
// best-effort: failures are logged but never fail the operation that
// produced them, since the ledger row is already committed.
type Publisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewPublisher creates a stock event publisher. A nil sink disables
// publishing, which keeps the service usable without a broker.
func NewPublisher(sink Sink, log *logger.Logger) *Publisher {
	return &Publisher{
		sink:   sink,
		logger: log,
	}
}

// MovementRecorded publishes a stock.movement.recorded event
func (p *Publisher) MovementRecorded(ctx context.Context, event messaging.MovementRecordedEvent) {
	if p == nil || p.sink == nil {
		return
	}

	if err := p.sink.Publish(ctx, messaging.EventMovementRecorded, event); err != nil {
		p.logger.Warn().Err(err).
			Str("item_id", event.ItemID).
			Str("movement_id", event.MovementID).
			Msg("failed to publish movement recorded event")
	}
}

// StockAlert publishes a stock.alert event
func (p *Publisher) StockAlert(ctx context.Context, event messaging.StockAlertEvent) {
	if p == nil || p.sink == nil {
		return
	}

	if err := p.sink.Publish(ctx, messaging.EventStockAlert, event); err != nil {
		p.logger.Warn().Err(err).
			Str("item_id", event.ItemID).
			Str("alert_type", event.AlertType).
			Msg("failed to publish stock alert event")
	}
}
