// Package publish announces transmissions on MQTT.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"sstvlive/config"
)

// Transmission states.
const (
	StateStarted   = "started"
	StateFinished  = "finished"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Event describes one transmission at one point of its life.
type Event struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Mode       string    `json:"mode"`
	Callsign   string    `json:"callsign,omitempty"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Start returns the started event of a new transmission.
func Start(mode, callsign string, now time.Time) Event {
	return Event{
		ID:       uuid.New().String(),
		State:    StateStarted,
		Mode:     mode,
		Callsign: callsign,
		Started:  now,
	}
}

// Finish derives the final event from a started one. result is one of
// "ok", "cancelled" or "error".
func (e Event) Finish(result string, err error, now time.Time) Event {
	e.DurationMS = now.Sub(e.Started).Milliseconds()
	switch result {
	case "ok":
		e.State = StateFinished
	case "cancelled":
		e.State = StateCancelled
	default:
		e.State = StateFailed
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Publisher delivers transmission events.
type Publisher interface {
	Publish(Event) error
	Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close()              {}

// client is the part of mqtt.Client used here.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends events as JSON to <prefix>/transmission.
type MQTTPublisher struct {
	client  client
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker in cfg.
func NewMQTTPublisher(cfg *config.MQTT) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID + "_" + uuid.New().String()[:8])

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("[MQTT] Connected to broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v", err)
	})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.WaitTimeout(15*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("[MQTT] Publishing transmission events to %s on %s", cfg.Broker, topic(cfg.Prefix))
	return newMQTTPublisher(c, cfg.Prefix), nil
}

func newMQTTPublisher(c client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic(prefix), timeout: 5 * time.Second}
}

func topic(prefix string) string {
	return prefix + "/transmission"
}

func (p *MQTTPublisher) Publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	// Retained so late subscribers see the last state.
	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("timed out publishing to %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects, letting queued messages drain for up to 250ms.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
