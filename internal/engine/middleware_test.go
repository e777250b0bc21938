package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
)

func TestChainMiddlewaresOrder(t *testing.T) {
	var order []string
	named := func(name string) Middleware {
		return func(info RegistrationInfo, next Handler) Handler {
			return func(ctx context.Context, msg *nats.Msg) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}

	handler := chainMiddlewares(
		[]Middleware{named("outer"), named("inner")},
		RegistrationInfo{},
		func(context.Context, *nats.Msg) error {
			order = append(order, "core")
			return nil
		},
	)
	if err := handler(context.Background(), &nats.Msg{}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "core" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRecovererMiddlewareConvertsPanic(t *testing.T) {
	handler := RecovererMiddleware()(RegistrationInfo{}, func(context.Context, *nats.Msg) error {
		panic("middleware blew up")
	})

	err := handler(context.Background(), &nats.Msg{})
	if err == nil {
		t.Fatal("expected an error from the recovered panic")
	}
}

func TestMetricsMiddlewareCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	client := brokerpkg.NewMemoryClient()
	e := newTestEngine(t, client, Dependencies{Metrics: registry})

	r := NewRouter("")
	err := r.Subscribe("jobs.run", func(payload []byte) error {
		if len(payload) == 0 {
			return errors.New("empty payload")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	startEngine(t, e, r)

	if err := client.Publish("jobs.run", []byte("work"), nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := client.Publish("jobs.run", nil, nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	counts := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "subwire_messages_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			counts[labelValue(metric, "result")] = metric.GetCounter().GetValue()
		}
	}
	if counts["ok"] != 1 || counts["error"] != 1 {
		t.Fatalf("unexpected counter values: %v", counts)
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

func TestHooksMerge(t *testing.T) {
	var order []string
	a := DispatchHooks{
		OnStart: func(DispatchContext) { order = append(order, "a.start") },
		OnError: func(DispatchContext, error) { order = append(order, "a.error") },
	}
	b := DispatchHooks{
		OnStart: func(DispatchContext) { order = append(order, "b.start") },
		OnDone:  func(DispatchContext) { order = append(order, "b.done") },
	}

	merged := a.Merge(b)
	merged.OnStart(DispatchContext{})
	merged.OnDone(DispatchContext{})
	merged.OnError(DispatchContext{}, errors.New("x"))

	want := []string{"a.start", "b.start", "b.done", "a.error"}
	if len(order) != len(want) {
		t.Fatalf("unexpected call order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected call order: %v", order)
		}
	}
}

func TestHooksObserveDispatches(t *testing.T) {
	client := brokerpkg.NewMemoryClient()

	var started, done []DispatchContext
	var failed []error
	e := newTestEngine(t, client, Dependencies{
		Hooks: DispatchHooks{
			OnStart: func(ctx DispatchContext) { started = append(started, ctx) },
			OnDone:  func(ctx DispatchContext) { done = append(done, ctx) },
			OnError: func(ctx DispatchContext, err error) { failed = append(failed, err) },
		},
	})

	r := NewRouter("pub")
	err := r.Subscribe("sensor.{id}.temperature", func(payload []byte) error {
		if len(payload) == 0 {
			return errors.New("empty payload")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	startEngine(t, e, r)

	if err := client.Publish("pub.sensor.12.temperature", []byte("21.5"), nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := client.Publish("pub.sensor.12.temperature", nil, nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(started) != 2 {
		t.Fatalf("expected 2 OnStart calls, got %d", len(started))
	}
	if started[0].Subject != "pub.sensor.12.temperature" || started[0].Pattern != "pub.sensor.{id}.temperature" {
		t.Fatalf("unexpected dispatch context: %+v", started[0])
	}
	if len(done) != 1 || len(failed) != 1 {
		t.Fatalf("expected one success and one failure, got done=%d failed=%d", len(done), len(failed))
	}
	if done[0].Duration < 0 {
		t.Fatalf("duration not set: %+v", done[0])
	}
}

func TestUserMiddlewareRunsAfterDefaults(t *testing.T) {
	client := brokerpkg.NewMemoryClient()

	seen := 0
	e := newTestEngine(t, client, Dependencies{
		Middlewares: []Middleware{
			func(info RegistrationInfo, next Handler) Handler {
				return func(ctx context.Context, msg *nats.Msg) error {
					seen++
					return next(ctx, msg)
				}
			},
		},
	})

	r := NewRouter("")
	if err := r.Subscribe("a.b", func() {}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	startEngine(t, e, r)

	if err := client.Publish("a.b", nil, nil); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if seen != 1 {
		t.Fatalf("user middleware called %d times", seen)
	}
}

func TestLoggingHooksDoNotPanic(t *testing.T) {
	hooks := LoggingHooks(loggingpkg.Nop())
	ctx := DispatchContext{Registration: "r", Subject: "a.b", StartedAt: time.Now()}
	hooks.OnDone(ctx)
	hooks.OnError(ctx, errors.New("x"))
}

func TestDispatchStatsSnapshot(t *testing.T) {
	stats := newDispatchStats()
	stats.onDispatch()
	stats.onResult(nil)
	stats.onDispatch()
	stats.onResult(errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Delivered != 2 || snap.Succeeded != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.LastError != "boom" {
		t.Fatalf("unexpected last error %q", snap.LastError)
	}
	if snap.LastActivity.IsZero() {
		t.Fatal("last activity not recorded")
	}
}

func TestModeAndStateStrings(t *testing.T) {
	if ModeSubscribe.String() != "subscribe" || ModeReply.String() != "subscribe_and_reply" || ModeService.String() != "service" {
		t.Fatal("unexpected mode strings")
	}
	if StateRegistered.String() != "registered" || StateSubscribed.String() != "subscribed" ||
		StateDraining.String() != "draining" || StateClosed.String() != "closed" {
		t.Fatal("unexpected state strings")
	}
}
