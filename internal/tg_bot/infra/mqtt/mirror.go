// Package mqtt mirrors device lines to an MQTT broker.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Mirror publishes every device line it receives to one topic.
type Mirror struct {
	client paho.Client
	topic  string
}

// NewMirror connects to broker and returns a mirror publishing to topic.
func NewMirror(broker, clientID, topic string) (*Mirror, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logrus.WithError(err).Warn("MQTT connection lost")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	logrus.Infof("Mirroring device lines to %s on %s", topic, broker)
	return newMirror(client, topic), nil
}

func newMirror(client paho.Client, topic string) *Mirror {
	return &Mirror{client: client, topic: topic}
}

// Publish sends line with QoS 0, not retained.
func (m *Mirror) Publish(line string) error {
	token := m.client.Publish(m.topic, 0, false, line)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *Mirror) Close() error {
	m.client.Disconnect(1000)
	return nil
}
