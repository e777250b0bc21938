package broker

import (
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestMemoryClientWildcardMatching(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"pub.sensor.*.temperature", "pub.sensor.12.temperature", true},
		{"pub.sensor.*.temperature", "pub.sensor.12.humidity", false},
		{"pub.sensor.*.temperature", "pub.sensor.temperature", false},
		{"pub.sensor.*", "pub.sensor.12", true},
		{"pub.sensor.*", "pub.sensor.12.extra", false},
		{"pub.>", "pub.sensor.12.extra", true},
		{"pub.>", "pub", false},
		{"exact.subject", "exact.subject", true},
		{"exact.subject", "exact.other", false},
	}

	for _, tc := range cases {
		client := NewMemoryClient()
		received := 0
		if _, err := client.Subscribe(tc.pattern, "", func(*nats.Msg) { received++ }); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		if err := client.Publish(tc.subject, nil, nil); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		if got := received == 1; got != tc.want {
			t.Fatalf("pattern %q subject %q: delivered=%v, want %v", tc.pattern, tc.subject, got, tc.want)
		}
	}
}

func TestMemoryClientQueueGroupDistributes(t *testing.T) {
	client := NewMemoryClient()

	var mu sync.Mutex
	counts := make(map[string]int)
	for _, name := range []string{"a", "b"} {
		name := name
		_, err := client.Subscribe("jobs.run", "workers", func(*nats.Msg) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		if err := client.Publish("jobs.run", nil, nil); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	// Queue groups distribute, never duplicate: every message reaches
	// exactly one member.
	if counts["a"]+counts["b"] != 10 {
		t.Fatalf("expected 10 total deliveries, got %v", counts)
	}
	if counts["a"] == 0 || counts["b"] == 0 {
		t.Fatalf("expected both members to receive work, got %v", counts)
	}
}

func TestMemoryClientSeparateSubscriptionsBothReceive(t *testing.T) {
	client := NewMemoryClient()

	received := make(map[string]int)
	for _, name := range []string{"one", "two"} {
		name := name
		if _, err := client.Subscribe("events.created", "", func(*nats.Msg) { received[name]++ }); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}

	if err := client.Publish("events.created", nil, nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if received["one"] != 1 || received["two"] != 1 {
		t.Fatalf("plain subscriptions should fan out, got %v", received)
	}
}

func TestMemoryClientUnsubscribe(t *testing.T) {
	client := NewMemoryClient()
	delivered := 0
	sub, err := client.Subscribe("a.b", "", func(*nats.Msg) { delivered++ })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if client.ActiveSubscriptions() != 0 {
		t.Fatalf("expected zero active subscriptions, got %d", client.ActiveSubscriptions())
	}
	if err := client.Publish("a.b", nil, nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if delivered != 0 {
		t.Fatal("unsubscribed handler should not receive messages")
	}
}

func TestMemoryClientHeadersDelivered(t *testing.T) {
	client := NewMemoryClient()
	var got nats.Header
	if _, err := client.Subscribe("a", "", func(msg *nats.Msg) { got = msg.Header }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	hdr := nats.Header{"Status": []string{"200"}}
	if err := client.Publish("a", []byte("x"), hdr); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if got.Get("Status") != "200" {
		t.Fatalf("unexpected headers: %v", got)
	}
}
