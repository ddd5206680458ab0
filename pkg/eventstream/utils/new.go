// Package eventstreamutils builds publishers from configuration values.
package eventstreamutils

import (
	"log/slog"

	"github.com/inklingco/inkling/pkg/eventstream"
	"github.com/inklingco/inkling/pkg/eventstream/kafka"
	"github.com/inklingco/inkling/pkg/eventstream/nop"
	"github.com/inklingco/inkling/pkg/logger"
)

// NewPublisherOpts selects and configures a publisher.
type NewPublisherOpts struct {
	// Brokers lists the Kafka bootstrap addresses.
	Brokers []string
	// Topic is the destination topic. Empty disables publishing.
	Topic string
	// Logger receives publisher debug output. Nil means no logging.
	Logger *slog.Logger
}

// NewPublisher returns a Kafka publisher when a topic is configured and
// the no-op publisher otherwise.
func NewPublisher(o NewPublisherOpts) (eventstream.Publisher, error) {
	if o.Topic == "" {
		return nop.NewPublisher(), nil
	}

	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	return kafka.NewPublisher(kafka.Config{
		Brokers: o.Brokers,
		Topic:   o.Topic,
	}, log)
}
