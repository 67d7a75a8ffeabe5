package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/workflow"
)

func encode(t *testing.T, eventType string) []byte {
	t.Helper()
	env, err := events.NewEnvelope("u1", events.AggregatePayment, "pay2", eventType, map[string]any{"from": "due"})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b
}

func TestHandleFansOut(t *testing.T) {
	var points []events.Envelope
	rec := &notify.Recorder{}
	p := Projector{
		Points: events.PublisherFunc(func(_ context.Context, env events.Envelope) error {
			points = append(points, env)
			return nil
		}),
		Notifier: rec,
	}

	env, err := p.Handle(context.Background(), encode(t, workflow.EventPaymentSettled))
	require.NoError(t, err)
	assert.Equal(t, "pay2", env.AggregateID)
	require.Len(t, points, 1)
	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, notify.LevelSuccess, all[0].Level)
	assert.Equal(t, "Payment received (pay2)", all[0].Message)
}

func TestHandleSkipsTenantOwnEvents(t *testing.T) {
	rec := &notify.Recorder{}
	p := Projector{Notifier: rec}
	_, err := p.Handle(context.Background(), encode(t, workflow.EventMessageSent))
	require.NoError(t, err)
	assert.Empty(t, rec.All())
}

func TestHandleRejectsMalformed(t *testing.T) {
	p := Projector{}
	_, err := p.Handle(context.Background(), []byte("not json"))
	assert.Error(t, err)
	_, err = p.Handle(context.Background(), []byte(`{"event_type":"payment.settled"}`))
	assert.Error(t, err)
}

func TestHandleSurfacesPointFailure(t *testing.T) {
	p := Projector{Points: events.PublisherFunc(func(context.Context, events.Envelope) error {
		return errors.New("influx down")
	})}
	_, err := p.Handle(context.Background(), encode(t, workflow.EventPaymentOverdue))
	assert.Error(t, err)
}
