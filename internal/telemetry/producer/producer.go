// Package producer publishes request telemetry onto a message bus for the telemetry worker.
package producer

import (
	"context"

	"playlog/backend/internal/telemetry/domain"
)

// Producer publishes telemetry events. Delivery is best-effort.
type Producer interface {
	Emit(ctx context.Context, event *domain.Event) error
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, *domain.Event) error { return nil }
func (Discard) Close() error                              { return nil }

// New returns a Kafka producer for brokers and topic. When either is empty it
// returns Discard and false.
func New(brokers []string, topic string) (Producer, bool) {
	if kp := NewKafkaProducer(brokers, topic); kp != nil {
		return kp, true
	}
	return Discard{}, false
}
