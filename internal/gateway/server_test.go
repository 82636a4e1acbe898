package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pedezap/pedezap/internal/config"
	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/logging"
	"github.com/pedezap/pedezap/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController is an in-memory SessionController double.
type fakeController struct {
	status   session.Status
	qr       string
	count    int
	startErr error
	stopped  []string
	events   chan domain.StatusEvent
}

func (f *fakeController) Start(_ context.Context, _ string) (session.Status, error) {
	if f.startErr != nil {
		return session.Status{}, f.startErr
	}
	return f.status, nil
}

func (f *fakeController) Stop(_ context.Context, tenantID string) error {
	f.stopped = append(f.stopped, tenantID)
	return nil
}

func (f *fakeController) GetStatus(string) session.Status { return f.status }

func (f *fakeController) ScannableAuth(string) string { return f.qr }

func (f *fakeController) Watch(string) (<-chan domain.StatusEvent, func()) {
	return f.events, func() {}
}

func (f *fakeController) Count() int { return f.count }

type fakeOrderReader struct {
	orders []domain.FinalizedOrder
	err    error
}

func (f *fakeOrderReader) ListOrders(_ context.Context, _ string, _ int) ([]domain.FinalizedOrder, error) {
	return f.orders, f.err
}

func testServer(t *testing.T, ctrl *fakeController, orders *fakeOrderReader, token string) *httptest.Server {
	t.Helper()
	if ctrl.events == nil {
		ctrl.events = make(chan domain.StatusEvent, 8)
	}
	cfg := config.Defaults().Server
	cfg.AuthToken = token

	srv := New(cfg, ctrl, orders, logging.New(nil, "silent"))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t, &fakeController{count: 3}, &fakeOrderReader{}, "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Sessions)
}

func TestNotFoundEndpoint(t *testing.T) {
	ts := testServer(t, &fakeController{}, &fakeOrderReader{}, "")

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartEndpoint(t *testing.T) {
	ctrl := &fakeController{status: session.Status{
		State:            domain.StateQRPending,
		HasScannableAuth: true,
	}}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	resp, err := http.Post(ts.URL+"/start/pizzaria-ze", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body TenantStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pizzaria-ze", body.TenantID)
	assert.Equal(t, domain.StateQRPending, body.State)
	assert.True(t, body.HasScannableAuth)
}

func TestStartEndpointFailure(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("boom")}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	resp, err := http.Post(ts.URL+"/start/pizzaria-ze", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestDisconnectEndpoint(t *testing.T) {
	ctrl := &fakeController{status: session.Status{State: domain.StateDisconnected}}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	resp, err := http.Post(ts.URL+"/disconnect/pizzaria-ze", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"pizzaria-ze"}, ctrl.stopped)
}

func TestStatusEndpointDefaultsDisconnected(t *testing.T) {
	ctrl := &fakeController{status: session.Status{State: domain.StateDisconnected}}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	resp, err := http.Get(ts.URL + "/status/pizzaria-ze")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body TenantStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.StateDisconnected, body.State)
	assert.False(t, body.IsConnected)
}

func TestAuthEndpoint(t *testing.T) {
	ctrl := &fakeController{
		qr:     "2@abcdef",
		status: session.Status{State: domain.StateQRPending},
	}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	resp, err := http.Get(ts.URL + "/auth/pizzaria-ze")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "2@abcdef", body.QR)
	assert.True(t, body.Pending)
	assert.Equal(t, domain.StateQRPending, body.State)
}

func TestOrdersEndpoint(t *testing.T) {
	orders := &fakeOrderReader{orders: []domain.FinalizedOrder{
		{TrackingCode: "AAAA1111", Total: 42.5},
	}}
	ts := testServer(t, &fakeController{}, orders, "")

	resp, err := http.Get(ts.URL + "/orders/pizzaria-ze")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body OrdersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "AAAA1111", body.Orders[0].TrackingCode)
}

func TestAuthTokenRequired(t *testing.T) {
	ts := testServer(t, &fakeController{}, &fakeOrderReader{}, "secret-token")

	// missing token
	resp, err := http.Get(ts.URL + "/status/pizzaria-ze")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// wrong token
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status/pizzaria-ze", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct token
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/status/pizzaria-ze", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// health stays public
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFeedStreamsTransitions(t *testing.T) {
	ctrl := &fakeController{
		status: session.Status{State: domain.StateInitializing},
		events: make(chan domain.StatusEvent, 8),
	}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/pizzaria-ze"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// snapshot frame
	var frame StatusFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "pizzaria-ze", frame.TenantID)
	assert.Equal(t, domain.StateInitializing, frame.State)

	// live transition
	ctrl.events <- domain.StatusEvent{State: domain.StateQRPending, QR: "2@qr"}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, domain.StateQRPending, frame.State)
	assert.Equal(t, "2@qr", frame.QR)
}

func TestStatusFeedTokenViaQuery(t *testing.T) {
	ctrl := &fakeController{events: make(chan domain.StatusEvent, 8)}
	ts := testServer(t, ctrl, &fakeOrderReader{}, "secret-token")

	base := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/pizzaria-ze", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, resp, err := websocket.DefaultDialer.Dial(base+"/ws/pizzaria-ze?token=secret-token", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}
