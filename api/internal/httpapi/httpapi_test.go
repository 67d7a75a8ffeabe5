package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/remote"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/api/internal/responder"
	"renttalk-tenant-portal/api/internal/services"
	"renttalk-tenant-portal/api/internal/store"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/httpx"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/workflow"
)

// gatedBackend refuses writes while closed is set.
type gatedBackend struct {
	*store.MemoryBackend
	closed atomic.Bool
}

func (b *gatedBackend) Write(ctx context.Context, key string, value []byte) error {
	if b.closed.Load() {
		return errors.New("store closed for writes")
	}
	return b.MemoryBackend.Write(ctx, key, value)
}

func newTestServer(t *testing.T) (*httptest.Server, *services.Portal) {
	t.Helper()
	return newTestServerOn(t, store.NewMemoryBackend())
}

func newTestServerOn(t *testing.T, backend store.Backend) (*httptest.Server, *services.Portal) {
	t.Helper()
	portal := services.NewPortal(services.PortalOptions{
		Backend:   backend,
		Responder: responder.New(3, nil, logx.Discard()),
		Deps:      services.Deps{Logger: logx.Discard()},
	})
	t.Cleanup(portal.Close)
	require.NoError(t, portal.Seed(context.Background()))

	mux := http.NewServeMux()
	(&Server{Portal: portal, Notifier: &notify.Recorder{}, Log: logx.Discard()}).Register(mux)
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	srv := httptest.NewServer(httpx.WithRequestID(httpx.WrapServeMux(mux, notFound)))
	t.Cleanup(srv.Close)
	return srv, portal
}

func do(t *testing.T, method string, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env httpx.ErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env.Error.Code
}

func TestResourceContract(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/payments", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payments []models.Payment
	require.NoError(t, json.Unmarshal(body, &payments))
	assert.Len(t, payments, 3)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/payments/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/messages", `{"sender":"u1","recipient":"l1","content":"x","timestamp":"2023-09-20T10:00:00Z","read":false}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var msg models.Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.NotEmpty(t, msg.ID)

	resp, body = do(t, http.MethodPatch, srv.URL+"/api/messages/"+msg.ID, `{"read":true,"id":"hijack"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched models.Message
	require.NoError(t, json.Unmarshal(body, &patched))
	assert.Equal(t, msg.ID, patched.ID)
	assert.True(t, patched.Read)

	resp, body = do(t, http.MethodPatch, srv.URL+"/api/messages/"+msg.ID, `{"read":"yes","content":"changed"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, body))
	_, body = do(t, http.MethodGet, srv.URL+"/api/messages/"+msg.ID, "")
	var unchanged models.Message
	require.NoError(t, json.Unmarshal(body, &unchanged))
	assert.Equal(t, "x", unchanged.Content)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/messages", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, body))
}

func TestStoreFailuresAnswerInternalError(t *testing.T) {
	backend := &gatedBackend{MemoryBackend: store.NewMemoryBackend()}
	srv, portal := newTestServerOn(t, backend)
	backend.closed.Store(true)

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/messages", `{"content":"hi"}`},
		{http.MethodPost, "/api/v1/maintenance", `{"title":"Leak","description":"Drips","category":"Plumbing","priority":"low"}`},
		{http.MethodPost, "/api/v1/maintenance/req2/status", `{"status":"completed"}`},
		{http.MethodPost, "/api/v1/payments/pay2/pay", ""},
		{http.MethodPost, "/api/v1/payments/generate", `{"count":2}`},
		{http.MethodPost, "/api/messages", `{"sender":"u1","recipient":"l1","content":"x","timestamp":"2023-09-20T10:00:00Z"}`},
	}
	for _, tc := range cases {
		resp, body := do(t, tc.method, srv.URL+tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, tc.path)
		assert.Equal(t, "INTERNAL_ERROR", errorCode(t, body), tc.path)
	}

	portal.Messages.Wait()
	assert.Empty(t, portal.Messages.List(context.Background()))
	assert.Len(t, portal.Payments.List(context.Background()), 3)
}

func TestResourceSeedOnlyWhenEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/payments/seed", `[]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"seeded":false}`, string(body))
}

func TestRemoteModeAgainstServer(t *testing.T) {
	srv, _ := newTestServer(t)
	client, err := remote.NewClient(srv.URL+"/api", time.Second)
	require.NoError(t, err)

	st := store.New[models.Payment](services.ResourcePayments, store.NewMemoryBackend(), nil, logx.Discard())
	svc := resource.New(st, resource.Options{Mode: config.APIModeRemote, Remote: client, Logger: logx.Discard()})

	all := svc.GetAll(context.Background())
	assert.Equal(t, resource.SourceRemote, all.Source)
	assert.Len(t, all.Value, 3)

	got := svc.GetByID(context.Background(), "missing")
	assert.False(t, got.Found)
	assert.Equal(t, resource.SourceRemote, got.Source)
}

func TestSubmitAndUpdateMaintenance(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/maintenance", `{"title":"","description":"x","category":"Gardening","priority":"urgent"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, body))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/maintenance", `{"title":"Door sticks","description":"Front door sticks in humid weather.","category":"Structural","priority":"low"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.MaintenanceRequest
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, workflow.RequestStatusPending, created.Status)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/maintenance/"+created.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.MaintenanceRequest
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Len(t, updated.Timeline, 2)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/maintenance/"+created.ID+"/status", `{"status":"scheduled"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, body))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/maintenance/nope/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/maintenance/active", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []models.MaintenanceRequest
	require.NoError(t, json.Unmarshal(body, &active))
	assert.Len(t, active, 2)
}

func TestMessagesFlow(t *testing.T) {
	srv, portal := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent models.Message
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "hi", sent.Content)

	portal.Messages.Wait()

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/messages/unread-count", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"count":1}`, string(body))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/messages/simulate-response", `{"delay_ms":0}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var simulated models.Message
	require.NoError(t, json.Unmarshal(body, &simulated))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/messages/"+simulated.ID+"/read", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/messages/read-all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"updated":1}`, string(body))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/messages", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, body))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/messages/simulate-response", `{"delay_ms":-5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentsFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/payments/upcoming", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var upcoming models.Payment
	require.NoError(t, json.Unmarshal(body, &upcoming))
	assert.Equal(t, "pay2", upcoming.ID)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/payments/pay2/pay", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid models.Payment
	require.NoError(t, json.Unmarshal(body, &paid))
	assert.Equal(t, workflow.PaymentStatusPaid, paid.Status)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/payments/upcoming", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/payments/nope/pay", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/payments/generate", `{"count":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var generated []models.Payment
	require.NoError(t, json.Unmarshal(body, &generated))
	require.Len(t, generated, 2)
	assert.Equal(t, "2023-11-01", generated[0].DueDate.Format("2006-01-02"))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/payments/generate", `{"count":99}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/payments/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum services.PaymentSummary
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, "2400", sum.OutstandingTotal.String())
	assert.Equal(t, "2450", sum.PaidTotal.String())
}

func TestDashboardAndProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(body, &dash))
	assert.Equal(t, "Alex Johnson", dash.Tenant.Name)
	assert.Equal(t, "Morgan Smith", dash.Landlord.Name)
	assert.Len(t, dash.ActiveRequests, 2)
	require.NotNil(t, dash.UpcomingPayment)
	assert.Equal(t, "pay2", dash.UpcomingPayment.ID)
	assert.Zero(t, dash.UnreadMessages)
	assert.Empty(t, dash.RecentMessages)

	resp, body = do(t, http.MethodPatch, srv.URL+"/api/v1/profile", `{"name":"Alex J","email":"alex.j@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p models.Profile
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "Alex J", p.Name)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/profile", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "alex.j@example.com")
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/api/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}
