package feed

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/crowdsense/crowdcast/core/events"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/infra/logger"
	"github.com/crowdsense/crowdcast/internal/eventbus"
)

type mockToken struct{ err error }

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *mockToken) Error() error { return t.err }

type mockClient struct {
	mu        sync.Mutex
	connected bool
	subbed    string
	handler   paho.MessageHandler
}

func (c *mockClient) IsConnected() bool { return c.connected }
func (c *mockClient) Connect() paho.Token {
	c.connected = true
	return &mockToken{}
}
func (c *mockClient) Disconnect(uint) { c.connected = false }
func (c *mockClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	c.mu.Lock()
	c.subbed = topic
	c.handler = cb
	c.mu.Unlock()
	return &mockToken{}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type captureSink struct {
	mu  sync.Mutex
	obs []model.Observation
}

func (s *captureSink) Add(o model.Observation) {
	s.mu.Lock()
	s.obs = append(s.obs, o)
	s.mu.Unlock()
}

func newTestFeed(t *testing.T, store Sink, bus eventbus.EventBus) *Feed {
	t.Helper()
	cli := &mockClient{}
	orig := newMQTTClient
	newMQTTClient = func(_ *paho.ClientOptions) pahoClient { return cli }
	t.Cleanup(func() { newMQTTClient = orig })

	f, err := New(Config{Broker: "tcp://localhost:1883"}, store, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	return f
}

func TestFeed_StoresDecodedReading(t *testing.T) {
	store := &captureSink{}
	f := newTestFeed(t, store, nil)

	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	payload, _ := json.Marshal(reading{
		ZoneID: "gate", ZoneName: "Gate", Footfall: 240, Capacity: 600, Timestamp: ts,
	})
	f.onReading(nil, &mockMessage{topic: "zones/gate/footfall", payload: payload})

	if len(store.obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(store.obs))
	}
	got := store.obs[0]
	if got.ZoneID != "gate" || got.Footfall != 240 || got.Capacity != 600 {
		t.Fatalf("unexpected observation %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Fatalf("timestamp not preserved: %v", got.Timestamp)
	}
}

func TestFeed_PublishesObservationEvent(t *testing.T) {
	store := &captureSink{}
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	f := newTestFeed(t, store, bus)
	payload, _ := json.Marshal(reading{ZoneID: "hall", Footfall: 10, Capacity: 1000})
	f.onReading(nil, &mockMessage{topic: "zones/hall/footfall", payload: payload})

	select {
	case e := <-sub:
		ev, ok := e.(events.ObservationEvent)
		if !ok {
			t.Fatalf("unexpected event %T", e)
		}
		if ev.Observation.ZoneID != "hall" {
			t.Fatalf("unexpected zone %s", ev.Observation.ZoneID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestFeed_DropsMalformedPayloads(t *testing.T) {
	store := &captureSink{}
	f := newTestFeed(t, store, nil)

	cases := [][]byte{
		[]byte("not json"),
		mustJSON(reading{ZoneID: "", Footfall: 10, Capacity: 100}),
		mustJSON(reading{ZoneID: "gate", Footfall: -1, Capacity: 100}),
		mustJSON(reading{ZoneID: "gate", Footfall: 10, Capacity: 0}),
	}
	for _, p := range cases {
		f.onReading(nil, &mockMessage{topic: "zones/gate/footfall", payload: p})
	}
	if len(store.obs) != 0 {
		t.Fatalf("malformed readings stored: %d", len(store.obs))
	}
}

func TestFeed_DefaultsMissingTimestamp(t *testing.T) {
	store := &captureSink{}
	f := newTestFeed(t, store, nil)

	before := time.Now()
	f.onReading(nil, &mockMessage{
		topic:   "zones/exit/footfall",
		payload: mustJSON(reading{ZoneID: "exit", Footfall: 5, Capacity: 400}),
	})
	if len(store.obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(store.obs))
	}
	if store.obs[0].Timestamp.Before(before) {
		t.Fatalf("timestamp not defaulted: %v", store.obs[0].Timestamp)
	}
}

func TestFeed_CloseDisconnects(t *testing.T) {
	cli := &mockClient{}
	orig := newMQTTClient
	newMQTTClient = func(_ *paho.ClientOptions) pahoClient { return cli }
	defer func() { newMQTTClient = orig }()

	f, err := New(Config{Broker: "tcp://localhost:1883"}, &captureSink{}, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	f.Close()
	if cli.connected {
		t.Fatal("client still connected after Close")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883"}
	cfg.SetDefaults()
	if cfg.Topic != "zones/+/footfall" {
		t.Fatalf("unexpected default topic %s", cfg.Topic)
	}
	if cfg.ClientID == "" {
		t.Fatal("client id not defaulted")
	}
	if err := (Config{}).Validate(); err == nil {
		t.Fatal("expected validation error for missing broker")
	}
}

func mustJSON(r reading) []byte {
	b, _ := json.Marshal(r)
	return b
}
