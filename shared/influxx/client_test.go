package influxx

import (
	"context"
	"testing"

	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/events"
)

func TestActivityPoint(t *testing.T) {
	env := events.Envelope{TenantID: "u1", AggregateType: events.AggregatePayment, AggregateID: "pay2", EventType: "payment.settled"}
	tags, fields := ActivityPoint(env)
	if tags["event_type"] != "payment.settled" || tags["tenant_id"] != "u1" {
		t.Fatalf("tags = %v", tags)
	}
	if fields["aggregate_id"] != "pay2" || fields["count"] != 1 {
		t.Fatalf("fields = %v", fields)
	}
}

func TestNewRequiresSettings(t *testing.T) {
	if _, err := New(config.Config{InfluxURL: "http://localhost:8086"}); err == nil {
		t.Fatalf("expected error")
	}
	var c *Client
	if err := c.Publish(context.Background(), events.Envelope{}); err == nil {
		t.Fatalf("nil client must fail")
	}
}
