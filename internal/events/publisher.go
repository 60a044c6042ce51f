// Package events announces resource writes on MQTT so other services can
// react to tours, reviews and users changing.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tour-booking-api/internal/config"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/resource"
	"tour-booking-api/pkg/mqtt"
)

// Message is the payload published for every write.
type Message struct {
	Resource   string          `json:"resource"`
	Action     resource.Action `json:"action"`
	ID         uuid.UUID       `json:"id"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type transport interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Publisher implements resource.EventPublisher over MQTT. Messages go to
// <prefix>/<resource>/<action> at QoS 1.
type Publisher struct {
	transport transport
	prefix    string
	now       func() time.Time
}

func NewPublisher(t transport, prefix string) *Publisher {
	return &Publisher{transport: t, prefix: prefix, now: time.Now}
}

func (p *Publisher) Topic(resourceName string, action resource.Action) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, resourceName, action)
}

func (p *Publisher) Publish(_ context.Context, resourceName string, action resource.Action, id uuid.UUID) error {
	payload, err := json.Marshal(Message{
		Resource:   resourceName,
		Action:     action,
		ID:         id,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.transport.Publish(p.Topic(resourceName, action), 1, false, payload); err != nil {
		return fmt.Errorf("failed to publish %s %s event: %w", resourceName, action, err)
	}
	return nil
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, resource.Action, uuid.UUID) error {
	return nil
}

// Connect returns an MQTT-backed publisher, or Noop when MQTT_BROKER is empty
// or the broker cannot be reached. The returned close func is always safe to call.
func Connect(cfg config.MQTTConfig) (resource.EventPublisher, func()) {
	if cfg.Broker == "" {
		logger.Info("MQTT broker not configured, events disabled", zap.String("event", "events_disabled"))
		return Noop{}, func() {}
	}

	clientCfg := mqtt.DefaultConfig(cfg.Broker, cfg.ClientID)
	clientCfg.Username = cfg.Username
	clientCfg.Password = cfg.Password

	client := mqtt.NewClient(clientCfg)
	if err := client.Connect(); err != nil {
		logger.Warn("MQTT broker unreachable, events disabled", zap.Error(err), zap.String("event", "events_disabled"))
		return Noop{}, func() {}
	}
	return NewPublisher(client, cfg.TopicPrefix), client.Disconnect
}
