package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PublishFunc publishes a payload to an MQTT topic.
type PublishFunc func(topic string, qos byte, retained bool, payload []byte) error

// MQTT publishes notifications under topic/<priority>.
type MQTT struct {
	publish PublishFunc
	topic   string
}

func NewMQTT(publish PublishFunc, topic string) *MQTT {
	if topic == "" {
		topic = "fadem/alerts"
	}
	return &MQTT{publish: publish, topic: topic}
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Notify(_ context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	topic := m.topic + "/" + n.Alert.Priority
	return m.publish(topic, 1, false, payload)
}

// MQTTOptions configures a broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// MQTTClient is a connected paho client.
type MQTTClient struct {
	client mqtt.Client
}

// ConnectMQTT connects to the broker and returns the client.
func ConnectMQTT(cfg MQTTOptions) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return &MQTTClient{client: client}, nil
}

// Publish has the PublishFunc signature.
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (c *MQTTClient) Disconnect() {
	c.client.Disconnect(250)
}
