// Package publish sends readings and snapshots to an MQTT broker.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nicktill/hikelog/pkg/config"
)

// Topics under the configured prefix.
const (
	TopicReading  = "reading"
	TopicSnapshot = "snapshot"
	TopicStatus   = "status"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("publish: broker timeout")

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher publishes JSON messages under a topic prefix.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
}

// Connect dials the broker in cfg. The connection reconnects on its own;
// the retained status topic reports "offline" if the daemon disappears.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	status := Topic(cfg.TopicPrefix, TopicStatus)
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(config.MQTTConnectTimeout).
		SetWill(status, "offline", cfg.QoS, true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.MQTTConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	log.Printf("✅ Connected to MQTT broker at %s", cfg.Broker)

	p := New(client, cfg.TopicPrefix, cfg.QoS)
	if err := p.send(status, "online", true); err != nil {
		log.Printf("⚠️  Failed to publish MQTT status: %v", err)
	}
	return p, nil
}

// New wraps an already connected client.
func New(client Client, prefix string, qos byte) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  prefix,
		qos:     qos,
		timeout: config.MQTTPublishTimeout,
	}
}

// Topic joins prefix and name with a single slash.
func Topic(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// PublishReading publishes v as the retained latest reading.
func (p *Publisher) PublishReading(v interface{}) error {
	return p.publishJSON(TopicReading, v, true)
}

// PublishSnapshot publishes v as a newly captured snapshot.
func (p *Publisher) PublishSnapshot(v interface{}) error {
	return p.publishJSON(TopicSnapshot, v, false)
}

func (p *Publisher) publishJSON(name string, v interface{}, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return p.send(Topic(p.prefix, name), payload, retained)
}

func (p *Publisher) send(topic string, payload interface{}, retained bool) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close marks the daemon offline and disconnects.
func (p *Publisher) Close() {
	if err := p.send(Topic(p.prefix, TopicStatus), "offline", true); err != nil {
		log.Printf("⚠️  Failed to publish MQTT status: %v", err)
	}
	p.client.Disconnect(250)
}
