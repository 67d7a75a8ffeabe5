package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/responder"
	"renttalk-tenant-portal/api/internal/store"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/workflow"
)

type eventLog struct {
	mu  sync.Mutex
	all []events.Envelope
}

func (l *eventLog) Publish(_ context.Context, env events.Envelope) error {
	l.mu.Lock()
	l.all = append(l.all, env)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.all))
	for _, e := range l.all {
		out = append(out, e.EventType)
	}
	return out
}

// flakyBackend stores in memory until failWrites is set.
type flakyBackend struct {
	*store.MemoryBackend
	failWrites atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (b *flakyBackend) Write(ctx context.Context, key string, value []byte) error {
	if b.failWrites.Load() {
		return errDiskFull
	}
	return b.MemoryBackend.Write(ctx, key, value)
}

type fixture struct {
	portal   *Portal
	backend  store.Backend
	events   *eventLog
	notifier *notify.Recorder
}

func newFixture(t *testing.T, typing time.Duration) fixture {
	t.Helper()
	return newFixtureOn(t, typing, store.NewMemoryBackend())
}

func newFixtureOn(t *testing.T, typing time.Duration, backend store.Backend) fixture {
	t.Helper()
	f := fixture{
		backend:  backend,
		events:   &eventLog{},
		notifier: &notify.Recorder{},
	}
	f.portal = NewPortal(PortalOptions{
		Backend:   f.backend,
		Responder: responder.New(1, nil, logx.Discard()),
		Deps:      Deps{Events: f.events, Notifier: f.notifier, Logger: logx.Discard()},
		Messages:  MessageOptions{TypingDelayMin: typing, TypingDelayMax: typing},
	})
	t.Cleanup(f.portal.Close)
	require.NoError(t, f.portal.Seed(context.Background()))
	return f
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	require.NoError(t, f.portal.Seed(ctx))

	assert.Len(t, f.portal.Maintenance.List(ctx), 3)
	assert.Len(t, f.portal.Payments.List(ctx), 3)
	assert.Empty(t, f.portal.Messages.List(ctx))
	assert.Equal(t, "Alex Johnson", f.portal.Profiles.Tenant(ctx).Name)
	assert.Equal(t, "(555) 123-4567", f.portal.Profiles.Landlord(ctx).Phone)
}

func TestSeedTimelinesEndInRecordStatus(t *testing.T) {
	for _, r := range SeedMaintenanceRequests() {
		require.NotEmpty(t, r.Timeline)
		assert.Equal(t, r.Status, r.Timeline[len(r.Timeline)-1].Status, r.ID)
	}
}

func TestGetActiveRequests(t *testing.T) {
	f := newFixture(t, 0)
	ids := []string{}
	for _, r := range f.portal.Maintenance.GetActiveRequests(context.Background()) {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"req1", "req2"}, ids)
}

func TestUpdateStatusAppendsOneEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	before, ok := f.portal.Maintenance.Get(ctx, "req2")
	require.True(t, ok)

	updated, ok, err := f.portal.Maintenance.UpdateStatus(ctx, "req2", workflow.RequestStatusCompleted, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, workflow.RequestStatusCompleted, updated.Status)
	require.Len(t, updated.Timeline, len(before.Timeline)+1)
	last := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, workflow.RequestStatusCompleted, last.Status)
	assert.Equal(t, "Status updated to completed", last.Note)
	assert.True(t, updated.Updated.After(before.Updated))

	stored, _ := f.portal.Maintenance.Get(ctx, "req2")
	assert.Len(t, stored.Timeline, len(updated.Timeline))
	assert.Equal(t, workflow.RequestStatusCompleted, stored.Status)
	assert.Contains(t, f.events.types(), workflow.EventRequestStatusChanged)
}

func TestUpdateStatusUnknownAndInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, ok, err := f.portal.Maintenance.UpdateStatus(ctx, "nope", workflow.RequestStatusCompleted, "done")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = f.portal.Maintenance.UpdateStatus(ctx, "req1", "scheduled", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusConcurrentKeepsEveryEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	before, _ := f.portal.Maintenance.Get(ctx, "req1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.portal.Maintenance.UpdateStatus(ctx, "req1", workflow.RequestStatusInProgress, "")
		}()
	}
	wg.Wait()
	after, _ := f.portal.Maintenance.Get(ctx, "req1")
	assert.Len(t, after.Timeline, len(before.Timeline)+10)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.portal.Maintenance.Submit(ctx, NewMaintenanceRequest{Title: "", Category: "Gardening", Priority: "urgent"})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotNil(t, verr.Problems)

	created, err := f.portal.Maintenance.Submit(ctx, NewMaintenanceRequest{
		Title:       "Dishwasher won't drain",
		Description: "Standing water after every cycle.",
		Category:    "appliance",
		Priority:    workflow.PriorityMedium,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Appliance", created.Category)
	assert.Equal(t, workflow.RequestStatusPending, created.Status)
	require.Len(t, created.Timeline, 1)
	assert.Equal(t, "Request submitted by tenant", created.Timeline[0].Note)
	assert.Equal(t, created.ID, f.portal.Maintenance.List(ctx)[0].ID)
}

func TestMakePayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	upcoming, ok := f.portal.Payments.GetUpcomingPayment(ctx)
	require.True(t, ok)
	assert.Equal(t, "pay2", upcoming.ID)

	paid, ok, err := f.portal.Payments.MakePayment(ctx, "pay2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, workflow.PaymentStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)

	again, ok, err := f.portal.Payments.MakePayment(ctx, "pay2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, again.PaidDate)
	assert.True(t, paid.PaidDate.Equal(*again.PaidDate))

	_, ok, err = f.portal.Payments.MakePayment(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok = f.portal.Payments.GetUpcomingPayment(ctx)
	assert.False(t, ok)

	settled := 0
	for _, typ := range f.events.types() {
		if typ == workflow.EventPaymentSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
	assert.NotEmpty(t, f.notifier.All())
}

func TestGenerateFuturePayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	created, err := f.portal.Payments.GenerateFuturePayments(ctx, 3)
	require.NoError(t, err)
	require.Len(t, created, 3)
	want := []string{"2023-11-01", "2023-12-01", "2024-01-01"}
	for i, p := range created {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, want[i], p.DueDate.Format("2006-01-02"))
		assert.Equal(t, workflow.PaymentStatusDue, p.Status)
		assert.Equal(t, workflow.PaymentTypeRent, p.Type)
		assert.Equal(t, "1200", p.Amount.String())
		assert.Nil(t, p.PaidDate)
	}
	assert.Len(t, f.portal.Payments.List(ctx), 6)
	created, err = f.portal.Payments.GenerateFuturePayments(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, created, 6)
}

func TestFirstOfNextMonthSkipsNoMonth(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), firstOfNextMonth(jan31))
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), firstOfNextMonth(dec))
}

func TestRentAmountDefaults(t *testing.T) {
	assert.Equal(t, "1200", rentAmount(nil).String())
	payments := []models.Payment{
		{Type: workflow.PaymentTypeRent, Amount: models.NewAmount(1100), DueDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Type: workflow.PaymentTypeRent, Amount: models.NewAmount(1250.5), DueDate: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Type: workflow.PaymentTypeFee, Amount: models.NewAmount(50), DueDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, "1250.5", rentAmount(payments).String())
}

func TestMarkOverdueAndSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	sum := f.portal.Payments.Summary(ctx)
	assert.Equal(t, "1200", sum.OutstandingTotal.String())
	assert.Equal(t, "1250", sum.PaidTotal.String())
	require.NotNil(t, sum.NextDue)
	assert.Equal(t, "pay2", sum.NextDue.ID)

	changed, err := f.portal.Payments.MarkOverdue(ctx, time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, workflow.PaymentStatusOverdue, changed[0].Status)
	changed, err = f.portal.Payments.MarkOverdue(ctx, time.Date(2023, 10, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, changed)

	sum = f.portal.Payments.Summary(ctx)
	assert.Equal(t, 1, sum.OverdueCount)
	assert.Nil(t, sum.NextDue)

	paid, ok, err := f.portal.Payments.MakePayment(ctx, "pay2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, workflow.PaymentStatusPaid, paid.Status)
}

func TestSendMessageHiGetsGreeting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50*time.Millisecond)

	start := time.Now()
	sent, err := f.portal.Messages.SendMessage(ctx, "hi")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, TenantID, sent.Sender)
	assert.Equal(t, LandlordID, sent.Recipient)
	assert.False(t, sent.Read)
	assert.Len(t, f.portal.Messages.List(ctx), 1)

	f.portal.Messages.Wait()

	all := f.portal.Messages.List(ctx)
	require.Len(t, all, 2)
	reply := all[1]
	assert.Equal(t, LandlordID, reply.Sender)
	assert.Equal(t, TenantID, reply.Recipient)
	assert.Equal(t, responder.ReplyGreeting, reply.Content)
	assert.Equal(t, 1, f.portal.Messages.GetUnreadCount(ctx))
	assert.Contains(t, f.events.types(), workflow.EventMessageReplied)
}

func TestSendMessageRejectsBlank(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.portal.Messages.SendMessage(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBackToBackMessagesAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.portal.Messages.SendMessage(ctx, "rent question")
		}()
	}
	wg.Wait()
	f.portal.Messages.Wait()
	assert.Len(t, f.portal.Messages.List(ctx), 10)
}

func TestSimulateLandlordResponseAndRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	msg, err := f.portal.Messages.SimulateLandlordResponse(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Contains(t, responder.Acknowledgements[:], msg.Content)
	assert.Equal(t, 1, f.portal.Messages.GetUnreadCount(ctx))

	read, ok, err := f.portal.Messages.MarkAsRead(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, read.Read)
	assert.Zero(t, f.portal.Messages.GetUnreadCount(ctx))

	_, ok, err = f.portal.Messages.MarkAsRead(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.portal.Messages.SimulateLandlordResponse(cctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkAllAsRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	for i := 0; i < 3; i++ {
		_, err := f.portal.Messages.SimulateLandlordResponse(ctx, 0)
		require.NoError(t, err)
	}
	_, err := f.portal.Messages.SendMessage(ctx, "thanks")
	require.NoError(t, err)
	f.portal.Messages.Wait()

	n, err := f.portal.Messages.MarkAllAsRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Zero(t, f.portal.Messages.GetUnreadCount(ctx))

	n, err = f.portal.Messages.MarkAllAsRead(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAsReadEmitsOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	msg, err := f.portal.Messages.SimulateLandlordResponse(ctx, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		read, ok, err := f.portal.Messages.MarkAsRead(ctx, msg.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, read.Read)
	}
	reads := 0
	for _, typ := range f.events.types() {
		if typ == workflow.EventMessageRead {
			reads++
		}
	}
	assert.Equal(t, 1, reads)
}

func TestMarkOverdueConcurrentCountsEachPaymentOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	now := time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC)

	var total atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := f.portal.Payments.MarkOverdue(ctx, now)
			assert.NoError(t, err)
			total.Add(int32(len(changed)))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), total.Load())

	overdue := 0
	for _, typ := range f.events.types() {
		if typ == workflow.EventPaymentOverdue {
			overdue++
		}
	}
	assert.Equal(t, 1, overdue)
}

func TestWritesReportStoreFailures(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: store.NewMemoryBackend()}
	f := newFixtureOn(t, 0, backend)
	backend.failWrites.Store(true)

	_, err := f.portal.Messages.SendMessage(ctx, "hi")
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, errDiskFull)

	_, err = f.portal.Messages.DeliverAutoReply(ctx, ReplyJob{MessageID: "m1", TenantID: TenantID, Content: "hi"})
	assert.ErrorIs(t, err, ErrStore)

	_, err = f.portal.Messages.SimulateLandlordResponse(ctx, 0)
	assert.ErrorIs(t, err, ErrStore)

	_, err = f.portal.Maintenance.Submit(ctx, NewMaintenanceRequest{
		Title:       "Leaking faucet",
		Description: "Kitchen faucet drips all night.",
		Category:    "Plumbing",
		Priority:    workflow.PriorityLow,
	})
	assert.ErrorIs(t, err, ErrStore)

	_, ok, err := f.portal.Maintenance.UpdateStatus(ctx, "req2", workflow.RequestStatusCompleted, "")
	assert.ErrorIs(t, err, ErrStore)
	assert.True(t, ok)

	_, _, err = f.portal.Payments.MakePayment(ctx, "pay2")
	assert.ErrorIs(t, err, ErrStore)

	created, err := f.portal.Payments.GenerateFuturePayments(ctx, 2)
	assert.ErrorIs(t, err, ErrStore)
	assert.Empty(t, created)

	changed, err := f.portal.Payments.MarkOverdue(ctx, time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrStore)
	assert.Empty(t, changed)

	f.portal.Messages.Wait()
	assert.Empty(t, f.portal.Messages.List(ctx))
	assert.Len(t, f.portal.Maintenance.List(ctx), 3)
	req2, _ := f.portal.Maintenance.Get(ctx, "req2")
	assert.Equal(t, workflow.RequestStatusPending, req2.Status)
	pay2, ok := findPayment(ctx, f, "pay2")
	require.True(t, ok)
	assert.Equal(t, workflow.PaymentStatusDue, pay2.Status)
	assert.Empty(t, f.events.types())
	assert.Empty(t, f.notifier.All())
}

func findPayment(ctx context.Context, f fixture, id string) (models.Payment, bool) {
	for _, p := range f.portal.Payments.List(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return models.Payment{}, false
}

func TestUpdateTenantProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.portal.Profiles.UpdateTenant(ctx, ProfileUpdate{Name: "Alex J.", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)

	p, err := f.portal.Profiles.UpdateTenant(ctx, ProfileUpdate{Name: "Alex J.", Email: "alex.j@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Apartment 3B, Maple Residences", p.Property)
	assert.Equal(t, "alex.j@example.com", f.portal.Profiles.Tenant(ctx).Email)
}
