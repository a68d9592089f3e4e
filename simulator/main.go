// Command simulator publishes synthetic footfall readings over MQTT so a
// service instance can be exercised without real sensors.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type simConfig struct {
	Broker      string
	TopicPrefix string
	Interval    time.Duration
	ZonesFile   string
	Verbose     bool
}

func main() {
	cfg := parseFlags()
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	zones := defaultZones()
	if cfg.ZonesFile != "" {
		var err error
		zones, err = readZonesFile(cfg.ZonesFile)
		if err != nil {
			log.Fatalf("zones file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := newMQTTClient(cfg.Broker, "crowdcast-sim")
	if err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	defer cli.Disconnect(250)

	run(ctx, cli, cfg, zones)
}

func parseFlags() simConfig {
	var cfg simConfig
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "zones", "MQTT topic prefix")
	flag.DurationVar(&cfg.Interval, "interval", 30*time.Second, "publish interval")
	flag.StringVar(&cfg.ZonesFile, "zones-file", "", "zone definitions JSON")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func readZonesFile(path string) ([]SimZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var zones []SimZone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

func run(ctx context.Context, cli paho.Client, cfg simConfig, zones []SimZone) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	publishAll(cli, cfg, zones, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			publishAll(cli, cfg, zones, now)
		}
	}
}

func publishAll(cli paho.Client, cfg simConfig, zones []SimZone, now time.Time) {
	for _, z := range zones {
		r := z.Reading(now)
		payload, err := json.Marshal(r)
		if err != nil {
			log.Printf("%s: marshal: %v", z.ID, err)
			continue
		}
		topic := cfg.TopicPrefix + "/" + z.ID + "/footfall"
		if token := cli.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("%s: publish: %v", z.ID, token.Error())
			continue
		}
		log.Printf("%s: footfall=%d", z.ID, r.Footfall)
	}
}

func newMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
