package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeTransport is a test double for domain.Transport.
type fakeTransport struct {
	mu           sync.Mutex
	onMessage    func(domain.InboundMessage)
	onStatus     func(domain.StatusEvent)
	msgHandlers  int
	connects     int
	disconnects  int
	sent         []domain.OutboundMessage
	connectErr   error
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	f.mu.Unlock()
	return err
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, msg domain.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) OnMessage(h func(domain.InboundMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessage = h
	f.msgHandlers++
}

func (f *fakeTransport) OnStatusChange(h func(domain.StatusEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onStatus = h
}

func (f *fakeTransport) emitStatus(evt domain.StatusEvent) {
	f.mu.Lock()
	h := f.onStatus
	f.mu.Unlock()
	if h != nil {
		h(evt)
	}
}

func (f *fakeTransport) emitMessage(msg domain.InboundMessage) {
	f.mu.Lock()
	h := f.onMessage
	f.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

func newTestManager(t *testing.T) (*Manager, *[]*fakeTransport) {
	t.Helper()
	var created []*fakeTransport
	var mu sync.Mutex
	m := NewManager(func(tenantID string) (domain.Transport, error) {
		ft := &fakeTransport{}
		mu.Lock()
		created = append(created, ft)
		mu.Unlock()
		return ft, nil
	}, testLogger())
	return m, &created
}

func TestStatusDefaultsToDisconnected(t *testing.T) {
	m, _ := newTestManager(t)

	st := m.GetStatus("nobody")
	assert.Equal(t, domain.StateDisconnected, st.State)
	assert.False(t, st.IsConnected)
	assert.False(t, st.HasScannableAuth)
	assert.Empty(t, m.ScannableAuth("nobody"))
}

func TestStartCreatesSession(t *testing.T) {
	m, created := newTestManager(t)

	st, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateInitializing, st.State)
	assert.Equal(t, 1, m.Count())

	require.Len(t, *created, 1)
	// exactly one inbound handler per connection
	assert.Equal(t, 1, (*created)[0].msgHandlers)
}

func TestStartIsIdempotentRestart(t *testing.T) {
	m, created := newTestManager(t)
	ctx := context.Background()

	_, err := m.Start(ctx, "t1")
	require.NoError(t, err)
	_, err = m.Start(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Count())
	require.Len(t, *created, 2)
	// the first transport was torn down
	assert.Equal(t, 1, (*created)[0].disconnects)
	assert.Equal(t, 0, (*created)[1].disconnects)
}

func TestQRLifecycle(t *testing.T) {
	m, created := newTestManager(t)
	_, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)
	ft := (*created)[0]

	ft.emitStatus(domain.StatusEvent{State: domain.StateQRPending, QR: "2@abc"})

	st := m.GetStatus("t1")
	assert.Equal(t, domain.StateQRPending, st.State)
	assert.True(t, st.HasScannableAuth)
	assert.Equal(t, "2@abc", m.ScannableAuth("t1"))

	ft.emitStatus(domain.StatusEvent{State: domain.StateAuthenticated})
	ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})

	st = m.GetStatus("t1")
	assert.Equal(t, domain.StateConnected, st.State)
	assert.True(t, st.IsConnected)
	assert.False(t, st.HasScannableAuth)
	// auth payload is only exposed while pending
	assert.Empty(t, m.ScannableAuth("t1"))
}

func TestTransportDisconnectRemovesSession(t *testing.T) {
	m, created := newTestManager(t)
	_, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)
	ft := (*created)[0]

	ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})
	assert.True(t, m.GetStatus("t1").IsConnected)

	ft.emitStatus(domain.StatusEvent{State: domain.StateDisconnected})
	st := m.GetStatus("t1")
	assert.Equal(t, domain.StateDisconnected, st.State)
	assert.False(t, st.IsConnected)
	assert.Equal(t, 0, m.Count())
}

func TestStopIsIdempotent(t *testing.T) {
	m, created := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Stop(ctx, "never-started"))

	_, err := m.Start(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, m.Stop(ctx, "t1"))
	require.NoError(t, m.Stop(ctx, "t1"))

	assert.Equal(t, 1, (*created)[0].disconnects)
	assert.Equal(t, domain.StateDisconnected, m.GetStatus("t1").State)
}

func TestInboundOnlyWhenConnected(t *testing.T) {
	m, created := newTestManager(t)

	var mu sync.Mutex
	var received []domain.InboundMessage
	m.OnInbound(func(_ context.Context, msg domain.InboundMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	_, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)
	ft := (*created)[0]

	// not connected yet: dropped
	ft.emitMessage(domain.InboundMessage{ID: "m1", Body: "oi"})

	ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})
	ft.emitMessage(domain.InboundMessage{ID: "m2", Sender: "5511999990000", Body: "oi"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "m2", received[0].ID)
	// manager stamps the tenant onto the message
	assert.Equal(t, "t1", received[0].TenantID)
}

func TestSendRequiresConnectedSession(t *testing.T) {
	m, created := newTestManager(t)
	ctx := context.Background()

	err := m.Send(ctx, "t1", domain.OutboundMessage{To: "x", Body: "y"})
	assert.Error(t, err)

	_, err = m.Start(ctx, "t1")
	require.NoError(t, err)
	ft := (*created)[0]

	err = m.Send(ctx, "t1", domain.OutboundMessage{To: "x", Body: "y"})
	assert.Error(t, err, "initializing session must not send")

	ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})
	require.NoError(t, m.Send(ctx, "t1", domain.OutboundMessage{To: "x", Body: "y"}))
	require.Len(t, ft.sent, 1)
}

func TestSendDuringStatusTransitions(t *testing.T) {
	m, created := newTestManager(t)
	ctx := context.Background()

	_, err := m.Start(ctx, "t1")
	require.NoError(t, err)
	ft := (*created)[0]
	ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})

	// Send reads session state while the transport flips it; both sides
	// must go through the manager lock (the race detector catches this).
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Send(ctx, "t1", domain.OutboundMessage{To: "x", Body: "y"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ft.emitStatus(domain.StatusEvent{State: domain.StateAuthenticated})
			ft.emitStatus(domain.StatusEvent{State: domain.StateConnected})
		}
	}()
	wg.Wait()

	require.NoError(t, m.Send(ctx, "t1", domain.OutboundMessage{To: "x", Body: "z"}))
}

func TestConnectFailureMarksAuthFailed(t *testing.T) {
	var ft *fakeTransport
	m := NewManager(func(tenantID string) (domain.Transport, error) {
		ft = &fakeTransport{connectErr: errors.New("boom")}
		return ft, nil
	}, testLogger())

	_, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return m.GetStatus("t1").State == domain.StateAuthFailed
	}, time.Second, 10*time.Millisecond)
}

func TestFactoryErrorSurfaces(t *testing.T) {
	m := NewManager(func(tenantID string) (domain.Transport, error) {
		return nil, errors.New("no transport")
	}, testLogger())

	_, err := m.Start(context.Background(), "t1")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestWatch(t *testing.T) {
	m, created := newTestManager(t)
	events, cancel := m.Watch("t1")
	defer cancel()

	_, err := m.Start(context.Background(), "t1")
	require.NoError(t, err)
	ft := (*created)[0]
	ft.emitStatus(domain.StatusEvent{State: domain.StateQRPending, QR: "2@abc"})

	var got []domain.StatusEvent
	deadline := time.After(time.Second)
	for len(got) < 2 {
		select {
		case evt := <-events:
			got = append(got, evt)
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, domain.StateInitializing, got[0].State)
	assert.Equal(t, domain.StateQRPending, got[1].State)
	assert.Equal(t, "2@abc", got[1].QR)
}
