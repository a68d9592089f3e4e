package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/crowdsense/crowdcast/core/events"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
	"github.com/crowdsense/crowdcast/infra/feed"
	"github.com/crowdsense/crowdcast/infra/logger"
	"github.com/crowdsense/crowdcast/internal/eventbus"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
log_type notice
log_type information
connection_messages true
log_timestamp true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready: %v", err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

func connectPublisher(broker string, t *testing.T) paho.Client {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("sensor-sim")
	cli := paho.NewClient(opts)
	var connErr error
	time.Sleep(250 * time.Millisecond)
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			break
		}
		t.Logf("publisher connect attempt %d to %s: %v", i+1, broker, connErr)
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	if connErr != nil {
		t.Logf("publisher connect failed to %s: %v", broker, connErr)
		t.Skip("Mosquitto not ready after retries")
	}
	return cli
}

func TestFeedWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	store := observation.NewMemoryStore(0)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	f, err := feed.New(feed.Config{
		Enabled:  true,
		Broker:   broker,
		ClientID: "crowdcast-test",
	}, store, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	defer f.Close()

	pub := connectPublisher(broker, t)
	defer pub.Disconnect(100)

	payload, _ := json.Marshal(map[string]any{
		"zone_id":   "gate",
		"zone_name": "Gate",
		"footfall":  240,
		"capacity":  600,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	// retry publication until the feed subscription is live
	deadline := time.Now().Add(5 * time.Second)
	var got model.Observation
	for time.Now().Before(deadline) {
		if token := pub.Publish("zones/gate/footfall", 0, false, payload); token.Wait() && token.Error() != nil {
			t.Fatalf("publish: %v", token.Error())
		}
		obs, err := store.Latest(ctx, "gate")
		if err == nil {
			got = obs
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if got.ZoneID != "gate" || got.Footfall != 240 || got.Capacity != 600 {
		t.Fatalf("reading not stored: %+v", got)
	}

	select {
	case e := <-sub:
		if ev, ok := e.(events.ObservationEvent); !ok || ev.Observation.ZoneID != "gate" {
			t.Fatalf("unexpected event %#v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observation event not published")
	}
}
