// Package ingest feeds sensor samples published over MQTT into the
// orientation model.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/config"
	"github.com/sky-map-team/skyorient/internal/logging"
)

// SourceMQTT labels samples that did not name their own source.
const SourceMQTT = "mqtt"

// SampleSink receives decoded samples. *core.OrientationModel satisfies it.
type SampleSink interface {
	SetPhoneSensorValues(acceleration, magneticField core.Vector3)
}

// SampleRecorder counts accepted and rejected samples.
// *observability.OrientationCollector satisfies it.
type SampleRecorder interface {
	IncSensorSample(source string)
	IncRejectedSample(source string)
}

type noopRecorder struct{}

func (noopRecorder) IncSensorSample(string)   {}
func (noopRecorder) IncRejectedSample(string) {}

// Subscriber consumes the sensor topic. Bad payloads are counted and logged,
// never fatal. The paho client reconnects on its own and the topic is
// subscribed again from the connect handler.
type Subscriber struct {
	cfg     config.MQTTConfig
	sink    SampleSink
	metrics SampleRecorder
	log     logging.Logger

	mu     sync.Mutex
	client mqtt.Client
}

// NewSubscriber builds a subscriber; metrics and log may be nil.
func NewSubscriber(cfg config.MQTTConfig, sink SampleSink, metrics SampleRecorder, log logging.Logger) *Subscriber {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Subscriber{
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		log:     logging.OrNoop(log).With(logging.Component("mqtt"), logging.String("topic", cfg.Topic)),
	}
}

// ClientOptions returns the paho options used by Start.
func (s *Subscriber) ClientOptions() *mqtt.ClientOptions {
	clientID := s.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("skyorient-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	return opts
}

// Start connects to the broker. It returns once the first connection attempt
// finished or ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	client := mqtt.NewClient(s.ClientOptions())
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.log.Info(ctx, "connecting to MQTT broker", logging.String("broker", s.cfg.Broker))
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.cfg.Broker, err)
	}
	return nil
}

// Stop disconnects, giving in-flight work a short grace period.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	ctx := context.Background()
	token := client.Subscribe(s.cfg.Topic, byte(s.cfg.QoS), s.HandleMessage)
	if token.Wait() && token.Error() != nil {
		s.log.Error(ctx, "subscribe failed", logging.Err(token.Error()))
		return
	}
	s.log.Info(ctx, "subscribed to sensor topic")
}

func (s *Subscriber) onConnectionLost(_ mqtt.Client, err error) {
	s.log.Warn(context.Background(), "MQTT connection lost, reconnecting", logging.Err(err))
}

// HandleMessage decodes one message and forwards it to the sink.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, err := DecodeSample(msg.Payload())
	if err != nil {
		s.metrics.IncRejectedSample(SourceMQTT)
		s.log.Warn(context.Background(), "dropping sensor message",
			logging.String("message_topic", msg.Topic()),
			logging.Err(err),
		)
		return
	}

	source := sample.Source
	if source == "" {
		source = SourceMQTT
	}
	s.sink.SetPhoneSensorValues(core.FromModel(sample.Acceleration), core.FromModel(sample.MagneticField))
	s.metrics.IncSensorSample(source)
}
