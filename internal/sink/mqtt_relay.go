package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the subset of mqtt.Client the relay needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTRelay publishes snapshots and events to the broker.
type MQTTRelay struct {
	client      Publisher
	topicSnap   string
	topicEvents string
	timeout     time.Duration
}

// ConnectMQTT dials the broker and returns a connected client.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	return client, nil
}

func NewMQTTRelay(client Publisher, topicSnapshot, topicEvents string, timeout time.Duration) *MQTTRelay {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTRelay{
		client:      client,
		topicSnap:   topicSnapshot,
		topicEvents: topicEvents,
		timeout:     timeout,
	}
}

func (r *MQTTRelay) Name() string { return "mqtt-relay" }
func (r *MQTTRelay) Class() Class { return ClassRelay }

func (r *MQTTRelay) Consume(_ context.Context, v View) error {
	payload, err := json.Marshal(Record(v.Snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.publish(r.topicSnap, payload); err != nil {
		return err
	}

	for _, e := range EventRecords(v) {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.Kind, err)
		}
		if err := r.publish(r.topicEvents, payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *MQTTRelay) publish(topic string, payload []byte) error {
	token := r.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(r.timeout) {
		return fmt.Errorf("publish to %s: timed out after %s", topic, r.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (r *MQTTRelay) Close() error {
	r.client.Disconnect(250)
	return nil
}
