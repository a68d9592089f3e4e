// Package feed ingests live footfall readings over MQTT and writes them into
// the observation store the forecast engine reads.
package feed

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/crowdsense/crowdcast/core/events"
	"github.com/crowdsense/crowdcast/core/logger"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/internal/eventbus"
)

// Config defines the connection parameters for the MQTT footfall feed.
type Config struct {
	Enabled    bool        `json:"enabled"`
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Topic      string      `json:"topic"`
	QoS        byte        `json:"qos"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	TLSConfig  *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "crowdcast-feed"
	}
	if c.Topic == "" {
		c.Topic = "zones/+/footfall"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Sink receives decoded observations.
type Sink interface {
	Add(model.Observation)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// reading is the wire format published per zone.
type reading struct {
	ZoneID    string    `json:"zone_id"`
	ZoneName  string    `json:"zone_name"`
	Footfall  int       `json:"footfall"`
	Capacity  int       `json:"capacity"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed subscribes to the footfall topic and stores decoded readings.
type Feed struct {
	cfg   Config
	cli   pahoClient
	store Sink
	bus   eventbus.EventBus
	log   logger.Logger
}

// New connects to the broker and subscribes to the configured topic. The bus
// may be nil.
func New(cfg Config, store Sink, bus eventbus.EventBus, log logger.Logger) (*Feed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Feed{cfg: cfg, store: store, bus: bus, log: log}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("feed connected")
		if token := c.Subscribe(cfg.Topic, cfg.QoS, f.onReading); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("feed connection lost: %v", err)
	}

	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	f.cli = cli
	return f, nil
}

func (f *Feed) onReading(_ paho.Client, msg paho.Message) {
	var r reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		f.log.Errorf("invalid reading on %s: %v", msg.Topic(), err)
		return
	}
	if r.ZoneID == "" || r.Footfall < 0 || r.Capacity <= 0 {
		f.log.Warnf("dropping malformed reading on %s: %+v", msg.Topic(), r)
		return
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	obs := model.Observation{
		ZoneID:    r.ZoneID,
		ZoneName:  r.ZoneName,
		Timestamp: r.Timestamp,
		Footfall:  r.Footfall,
		Capacity:  r.Capacity,
	}
	f.store.Add(obs)
	if f.bus != nil {
		f.bus.Publish(events.ObservationEvent{Observation: obs})
	}
}

// Close disconnects from the broker.
func (f *Feed) Close() {
	if f.cli != nil && f.cli.IsConnected() {
		f.cli.Disconnect(250)
	}
}
