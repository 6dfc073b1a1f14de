package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Publisher is satisfied by common/mqtt.Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPresenter pushes notifications to the patient's devices on
// <prefix>/patients/<id>/<kind>.
type MQTTPresenter struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

func NewMQTTPresenter(publisher Publisher, topicPrefix string, qos byte, logger *zap.Logger) *MQTTPresenter {
	return &MQTTPresenter{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
	}
}

// Topic returns the topic a notification is published on.
func (p *MQTTPresenter) Topic(n Notification) string {
	return fmt.Sprintf("%s/patients/%d/%s", p.topicPrefix, n.PatientID, n.Kind)
}

func (p *MQTTPresenter) Present(_ context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := p.Topic(n)
	if err := p.publisher.Publish(topic, p.qos, false, payload); err != nil {
		return err
	}

	p.logger.Debug("Notification published",
		zap.String("topic", topic),
		zap.String("kind", string(n.Kind)),
	)
	return nil
}
