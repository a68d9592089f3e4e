package eventbus

import (
	"testing"

	"github.com/crowdsense/crowdcast/core/events"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish(events.CacheEvent{ZoneID: "gate", Action: events.CacheHit, Entries: 8})
	v := <-ch
	ev, ok := v.(events.CacheEvent)
	if !ok || ev.ZoneID != "gate" {
		t.Fatalf("unexpected event %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := New()
	_ = bus.Subscribe()
	// channel buffer is 8; further publishes must drop, not block
	for i := 0; i < 20; i++ {
		bus.Publish(events.ForecastEvent{ZoneID: "gate", Points: i})
	}
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
