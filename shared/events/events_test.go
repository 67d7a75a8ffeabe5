package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"renttalk-tenant-portal/shared/logx"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("u1", AggregatePayment, "pay1", "payment.settled", map[string]string{"status": "paid"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.EventID.String() == "" || env.OccurredAt.IsZero() {
		t.Fatalf("missing id or timestamp: %+v", env)
	}
	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload["status"] != "paid" {
		t.Fatalf("payload: %v %v", payload, err)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	var calls atomic.Int32
	ok := PublisherFunc(func(context.Context, Envelope) error { calls.Add(1); return nil })
	bad := PublisherFunc(func(context.Context, Envelope) error { calls.Add(1); return errors.New("down") })

	err := Multi{ok, nil, bad, ok}.Publish(context.Background(), Envelope{})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestAsyncDetachesFromCaller(t *testing.T) {
	var got atomic.Value
	next := PublisherFunc(func(ctx context.Context, env Envelope) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		got.Store(env.EventType)
		return nil
	})
	a := &Async{Next: next, Logger: logx.Discard(), Sink: "test"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Publish(ctx, Envelope{EventType: "message.sent"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	a.Wait()
	if got.Load() != "message.sent" {
		t.Fatalf("event not delivered: %v", got.Load())
	}
}
