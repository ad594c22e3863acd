// File: status/mqtt.go
// Package status
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/config"
)

const (
	eventBuffer    = 64
	publishTimeout = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// Publisher is the part of mqtt.Client the emitter uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEmitter queues events and publishes them from one goroutine.
// Events are dropped when the queue is full.
type MQTTEmitter struct {
	cfg    config.StatusConfig
	source string
	log    *slog.Logger
	client mqtt.Client
	pub    Publisher

	events  chan Event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu        sync.Mutex
	published uint64
	dropped   uint64
	errors    uint64
}

var _ Emitter = (*MQTTEmitter)(nil)

// Connect dials the broker in cfg and starts publishing.
func Connect(ctx context.Context, cfg config.StatusConfig, source string, log *slog.Logger) (*MQTTEmitter, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "status")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", cfg.Broker)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(connectTimeout):
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	e := NewMQTTEmitter(cfg, source, client, log)
	e.client = client
	return e, nil
}

// NewMQTTEmitter publishes through pub, typically a connected mqtt.Client.
func NewMQTTEmitter(cfg config.StatusConfig, source string, pub Publisher, log *slog.Logger) *MQTTEmitter {
	if log == nil {
		log = slog.Default()
	}
	e := &MQTTEmitter{
		cfg:     cfg,
		source:  source,
		log:     log,
		pub:     pub,
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

// Transition implements Emitter.
func (e *MQTTEmitter) Transition(from, to api.SyncedState) {
	e.enqueue(Event{Kind: "transition", From: from.String(), To: to.String()})
}

// Command implements Emitter.
func (e *MQTTEmitter) Command(cmd api.Command, reply api.Reply, elapsed time.Duration) {
	e.enqueue(Event{
		Kind:      "command",
		Command:   string(cmd),
		Reply:     string(reply),
		ElapsedMs: float64(elapsed.Microseconds()) / 1000,
	})
}

func (e *MQTTEmitter) enqueue(ev Event) {
	ev.Source = e.source
	ev.Time = time.Now().UTC()
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.events <- ev:
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
	}
}

func (e *MQTTEmitter) run() {
	defer close(e.stopped)
	for {
		select {
		case ev := <-e.events:
			e.publish(ev)
		case <-e.done:
			for {
				select {
				case ev := <-e.events:
					e.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (e *MQTTEmitter) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.fail(ev, err)
		return
	}
	token := e.pub.Publish(e.cfg.Topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.fail(ev, fmt.Errorf("publish timeout"))
		return
	}
	if err := token.Error(); err != nil {
		e.fail(ev, err)
		return
	}
	e.mu.Lock()
	e.published++
	e.mu.Unlock()
	e.log.Debug("status published", "topic", e.cfg.Topic, "kind", ev.Kind, "size", len(payload))
}

func (e *MQTTEmitter) fail(ev Event, err error) {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
	e.log.Warn("status publish failed", "kind", ev.Kind, "error", err)
}

// Stats returns published, dropped and failed counts.
func (e *MQTTEmitter) Stats() (published, dropped, errors uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.published, e.dropped, e.errors
}

// Close drains queued events and disconnects.
func (e *MQTTEmitter) Close() error {
	e.once.Do(func() {
		close(e.done)
	})
	<-e.stopped
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.log.Info("mqtt disconnected")
	}
	return nil
}
