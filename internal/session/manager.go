// Package session owns the lifecycle of one chat connection per tenant and
// multiplexes many tenants concurrently.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/logging"
)

// TransportFactory builds a fresh transport for a tenant. Injected so the
// concrete backend can be swapped or mocked.
type TransportFactory func(tenantID string) (domain.Transport, error)

// Status is the externally visible state of a tenant's session.
type Status struct {
	State            domain.SessionState `json:"status"`
	IsConnected      bool                `json:"isConnected"`
	HasScannableAuth bool                `json:"hasScannableAuth"`
}

// InboundHandler receives messages from connected sessions.
type InboundHandler func(ctx context.Context, msg domain.InboundMessage)

type tenantSession struct {
	transport domain.Transport
	state     domain.SessionState
	qr        string
}

// Manager tracks at most one live session per tenant.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*tenantSession
	watchers map[string]map[int]chan domain.StatusEvent
	watchSeq int
	factory  TransportFactory
	inbound  InboundHandler
	log      *logging.Logger
}

// NewManager creates a session manager using the given transport factory.
func NewManager(factory TransportFactory, log *logging.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*tenantSession),
		watchers: make(map[string]map[int]chan domain.StatusEvent),
		factory:  factory,
		log:      log.Sub("sessions"),
	}
}

// OnInbound sets the handler that receives messages from connected sessions.
// Call once at wiring time, before any Start.
func (m *Manager) OnInbound(h InboundHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = h
}

// Start creates a session for the tenant. An existing session is torn down
// first, so calling Start twice leaves exactly one live session. The connect
// handshake proceeds asynchronously; Start returns once the session exists.
func (m *Manager) Start(ctx context.Context, tenantID string) (Status, error) {
	if err := m.Stop(ctx, tenantID); err != nil {
		m.log.Warn().Err(err).Str("tenant", tenantID).Msg("teardown before restart failed")
	}

	transport, err := m.factory(tenantID)
	if err != nil {
		return Status{State: domain.StateDisconnected}, fmt.Errorf("creating transport for %s: %w", tenantID, err)
	}

	sess := &tenantSession{transport: transport, state: domain.StateInitializing}

	// Handlers are registered exactly once per connection, before Connect,
	// so no event can slip through and nothing is processed twice.
	transport.OnStatusChange(func(evt domain.StatusEvent) {
		m.handleStatus(tenantID, sess, evt)
	})
	transport.OnMessage(func(msg domain.InboundMessage) {
		m.dispatch(tenantID, sess, msg)
	})

	m.mu.Lock()
	m.sessions[tenantID] = sess
	m.mu.Unlock()

	m.log.Info().Str("tenant", tenantID).Msg("session starting")
	m.notify(tenantID, domain.StatusEvent{State: domain.StateInitializing})

	go func() {
		if err := transport.Connect(context.Background()); err != nil {
			m.log.Error().Err(err).Str("tenant", tenantID).Msg("connect failed")
			m.handleStatus(tenantID, sess, domain.StatusEvent{State: domain.StateAuthFailed})
		}
	}()

	return Status{State: domain.StateInitializing}, nil
}

// Stop tears down the tenant's session and clears any stored auth payload.
// Stopping a non-existent session is a no-op success.
func (m *Manager) Stop(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[tenantID]
	if ok {
		delete(m.sessions, tenantID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	m.log.Info().Str("tenant", tenantID).Msg("session stopping")
	err := sess.transport.Disconnect(ctx)
	m.notify(tenantID, domain.StatusEvent{State: domain.StateDisconnected})
	return err
}

// StopAll tears down every live session.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	tenants := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		tenants = append(tenants, id)
	}
	m.mu.RUnlock()

	for _, id := range tenants {
		if err := m.Stop(ctx, id); err != nil {
			m.log.Error().Err(err).Str("tenant", id).Msg("failed to stop session")
		}
	}
}

// GetStatus reports the tenant's session state, defaulting to disconnected.
func (m *Manager) GetStatus(tenantID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[tenantID]
	if !ok {
		return Status{State: domain.StateDisconnected}
	}
	return Status{
		State:            sess.state,
		IsConnected:      sess.state == domain.StateConnected,
		HasScannableAuth: sess.state == domain.StateQRPending && sess.qr != "",
	}
}

// ScannableAuth returns the current auth payload, or "" unless the session
// is waiting for the code to be scanned.
func (m *Manager) ScannableAuth(tenantID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[tenantID]
	if !ok || sess.state != domain.StateQRPending {
		return ""
	}
	return sess.qr
}

// Send delivers an outbound message through the tenant's active connection.
// State and transport are captured under the lock; handleStatus mutates the
// session concurrently.
func (m *Manager) Send(ctx context.Context, tenantID string, msg domain.OutboundMessage) error {
	m.mu.RLock()
	sess, ok := m.sessions[tenantID]
	var (
		state     domain.SessionState
		transport domain.Transport
	)
	if ok {
		state = sess.state
		transport = sess.transport
	}
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no session for tenant %s", tenantID)
	}
	if state != domain.StateConnected {
		return fmt.Errorf("session for tenant %s is %s, not connected", tenantID, state)
	}
	return transport.Send(ctx, msg)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Watch subscribes to a tenant's status transitions. The returned cancel
// function releases the subscription.
func (m *Manager) Watch(tenantID string) (<-chan domain.StatusEvent, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.watchSeq++
	id := m.watchSeq
	ch := make(chan domain.StatusEvent, 8)
	if m.watchers[tenantID] == nil {
		m.watchers[tenantID] = make(map[int]chan domain.StatusEvent)
	}
	m.watchers[tenantID][id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs, ok := m.watchers[tenantID]; ok {
			delete(subs, id)
		}
	}
	return ch, cancel
}

// handleStatus applies a transport lifecycle event. Events from a torn-down
// transport are ignored: the map entry must still point at this session.
func (m *Manager) handleStatus(tenantID string, sess *tenantSession, evt domain.StatusEvent) {
	m.mu.Lock()
	current, ok := m.sessions[tenantID]
	if !ok || current != sess {
		m.mu.Unlock()
		return
	}

	sess.state = evt.State
	switch evt.State {
	case domain.StateQRPending:
		sess.qr = evt.QR
	case domain.StateAuthenticated, domain.StateConnected:
		sess.qr = ""
	case domain.StateDisconnected:
		// transport-triggered disconnect removes the record immediately
		delete(m.sessions, tenantID)
	}
	m.mu.Unlock()

	m.log.Info().Str("tenant", tenantID).Str("state", string(evt.State)).Msg("session state changed")
	m.notify(tenantID, evt)
}

// dispatch forwards an inbound message when the session is connected.
func (m *Manager) dispatch(tenantID string, sess *tenantSession, msg domain.InboundMessage) {
	m.mu.RLock()
	current, ok := m.sessions[tenantID]
	connected := ok && current == sess && sess.state == domain.StateConnected
	handler := m.inbound
	m.mu.RUnlock()

	if !connected || handler == nil {
		return
	}

	msg.TenantID = tenantID
	go handler(context.Background(), msg)
}

func (m *Manager) notify(tenantID string, evt domain.StatusEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.watchers[tenantID] {
		select {
		case ch <- evt:
		default: // slow watcher, drop rather than block the transport
		}
	}
}
