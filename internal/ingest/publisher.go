package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sky-map-team/skyorient/internal/config"
	"github.com/sky-map-team/skyorient/model"
)

// ErrNotConnected is returned by Publish before Connect succeeded.
var ErrNotConnected = errors.New("mqtt publisher not connected")

// Publisher writes sensor samples to the topic a Subscriber listens on. The
// simulator uses it to drive a running server the way a phone bridge would.
type Publisher struct {
	cfg config.MQTTConfig

	mu     sync.Mutex
	client mqtt.Client
}

// NewPublisher returns an unconnected publisher.
func NewPublisher(cfg config.MQTTConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// Connect opens the broker connection.
func (p *Publisher) Connect(ctx context.Context) error {
	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "skyorient-publisher"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(fmt.Sprintf("%s-%d", clientID, time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return nil
}

// Publish encodes and sends one sample.
func (p *Publisher) Publish(ctx context.Context, s model.SensorSample) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}

	payload, err := EncodeSample(s)
	if err != nil {
		return err
	}
	token := client.Publish(p.cfg.Topic, byte(p.cfg.QoS), false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
}
