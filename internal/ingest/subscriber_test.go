package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/config"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/model"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingSink struct {
	mu      sync.Mutex
	samples [][2]core.Vector3
}

func (s *recordingSink) SetPhoneSensorValues(a, m core.Vector3) {
	s.mu.Lock()
	s.samples = append(s.samples, [2]core.Vector3{a, m})
	s.mu.Unlock()
}

type countingRecorder struct {
	accepted map[string]int
	rejected map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{accepted: map[string]int{}, rejected: map[string]int{}}
}

func (r *countingRecorder) IncSensorSample(source string)   { r.accepted[source]++ }
func (r *countingRecorder) IncRejectedSample(source string) { r.rejected[source]++ }

func TestDecodeSample(t *testing.T) {
	got, err := DecodeSample([]byte(`{"ax":0,"ay":-1,"az":-9,"mx":0,"my":-1,"mz":0,"source":"phone","time":42}`))
	if err != nil {
		t.Fatalf("DecodeSample: %v", err)
	}
	want := model.SensorSample{
		Source:        "phone",
		Acceleration:  model.Vector{X: 0, Y: -1, Z: -9},
		MagneticField: model.Vector{X: 0, Y: -1, Z: 0},
		TimeMillis:    42,
	}
	if got != want {
		t.Fatalf("DecodeSample = %+v, want %+v", got, want)
	}

	bad := map[string]string{
		"not json":         `ax=1`,
		"missing mz":       `{"ax":0,"ay":-1,"az":-9,"mx":0,"my":-1}`,
		"out of range":     `{"ax":1e999,"ay":-1,"az":-9,"mx":0,"my":-1,"mz":0}`,
		"string number":    `{"ax":"0","ay":-1,"az":-9,"mx":0,"my":-1,"mz":0}`,
		"array not object": `[1,2,3,4,5,6]`,
	}
	for name, payload := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeSample([]byte(payload)); !errors.Is(err, model.ErrInvalidSample) {
				t.Fatalf("DecodeSample(%s) = %v, want ErrInvalidSample", payload, err)
			}
		})
	}
}

func TestEncodeSampleRoundTrip(t *testing.T) {
	s := model.SensorSample{
		Source:        "sim",
		Acceleration:  model.Vector{X: 0.5, Y: 0, Z: -9.8},
		MagneticField: model.Vector{X: 20, Y: -3, Z: -40},
		TimeMillis:    1_700_000_000_000,
	}
	payload, err := EncodeSample(s)
	if err != nil {
		t.Fatalf("EncodeSample: %v", err)
	}
	back, err := DecodeSample(payload)
	if err != nil {
		t.Fatalf("DecodeSample: %v", err)
	}
	if back != s {
		t.Fatalf("round trip = %+v, want %+v", back, s)
	}
}

func TestHandleMessage(t *testing.T) {
	sink := &recordingSink{}
	rec := newCountingRecorder()
	sub := NewSubscriber(config.MQTTConfig{Topic: "skyorient/sensors"}, sink, rec, logging.Noop())

	sub.HandleMessage(nil, fakeMessage{topic: "skyorient/sensors", payload: []byte(`{"ax":0,"ay":0,"az":-10,"mx":0,"my":-1,"mz":10}`)})
	sub.HandleMessage(nil, fakeMessage{topic: "skyorient/sensors", payload: []byte(`{"ax":0,"ay":0,"az":-10,"mx":0,"my":-1,"mz":10,"source":"watch"}`)})
	sub.HandleMessage(nil, fakeMessage{topic: "skyorient/sensors", payload: []byte(`garbage`)})

	if len(sink.samples) != 2 {
		t.Fatalf("sink received %d samples, want 2", len(sink.samples))
	}
	if got := sink.samples[0]; got[0] != core.NewVector3(0, 0, -10) || got[1] != core.NewVector3(0, -1, 10) {
		t.Fatalf("first sample = %v", got)
	}
	if rec.accepted[SourceMQTT] != 1 || rec.accepted["watch"] != 1 {
		t.Fatalf("accepted = %v", rec.accepted)
	}
	if rec.rejected[SourceMQTT] != 1 {
		t.Fatalf("rejected = %v", rec.rejected)
	}
}

func TestHandleMessageFeedsModel(t *testing.T) {
	m := core.NewOrientationModel(core.ZeroDeclinationCalculator{})
	sub := NewSubscriber(config.MQTTConfig{}, m, nil, nil)
	before := m.Pointing()

	sub.HandleMessage(nil, fakeMessage{payload: []byte(`{"ax":10,"ay":0,"az":0,"mx":-10,"my":1,"mz":0}`)})
	if after := m.Pointing(); after.LineOfSight == before.LineOfSight {
		t.Fatalf("pointing unchanged after sample: %+v", after)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker:   "tcp://broker.local:1883",
		ClientID: "skyorient-test",
		Topic:    "skyorient/sensors",
		Username: "sky",
		Password: "secret",
	}
	opts := NewSubscriber(cfg, &recordingSink{}, nil, nil).ClientOptions()

	if len(opts.Servers) != 1 || opts.Servers[0].String() != cfg.Broker {
		t.Fatalf("servers = %v, want [%s]", opts.Servers, cfg.Broker)
	}
	if opts.ClientID != cfg.ClientID {
		t.Fatalf("client id = %q, want %q", opts.ClientID, cfg.ClientID)
	}
	if !opts.AutoReconnect {
		t.Fatalf("auto reconnect disabled")
	}
	if opts.OnConnect == nil || opts.OnConnectionLost == nil {
		t.Fatalf("connection handlers not installed")
	}
	if opts.Username != "sky" || opts.Password != "secret" {
		t.Fatalf("credentials = %q/%q", opts.Username, opts.Password)
	}

	anon := NewSubscriber(config.MQTTConfig{Broker: cfg.Broker}, &recordingSink{}, nil, nil).ClientOptions()
	if anon.ClientID == "" {
		t.Fatalf("expected a generated client id")
	}
}

func TestPublishBeforeConnect(t *testing.T) {
	pub := NewPublisher(config.MQTTConfig{Topic: "skyorient/sensors"})
	if err := pub.Publish(context.Background(), model.SensorSample{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish before Connect = %v, want ErrNotConnected", err)
	}
	pub.Close()
}
