package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vente/apiserver/types"
)

// Publisher sends a payload to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher emits catalog events. A nil *EventPublisher drops events.
type EventPublisher struct {
	publisher Publisher
	channel   string
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewEventPublisher(publisher Publisher, channel string, logger logrus.FieldLogger) *EventPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventPublisher{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

// Emit publishes event. Failures are logged and otherwise ignored: the
// mutation they describe has already committed.
func (p *EventPublisher) Emit(ctx context.Context, event types.CatalogEvent) {
	if p == nil || p.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	log := p.logger.WithFields(logrus.Fields{
		"event":   event.Type,
		"channel": p.channel,
	})

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("encode catalog event")
		return
	}
	id, err := p.publisher.Publish(ctx, p.channel, data, map[string]string{"type": string(event.Type)})
	if err != nil {
		log.WithError(err).Warn("publish catalog event")
		return
	}
	log.WithField("message_id", id).Debug("catalog event published")
}
