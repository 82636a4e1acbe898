package domain

import "context"

// SessionState is the lifecycle state of one tenant's chat connection.
type SessionState string

const (
	StateDisconnected  SessionState = "disconnected"
	StateInitializing  SessionState = "initializing"
	StateQRPending     SessionState = "qr_pending"
	StateAuthenticated SessionState = "authenticated"
	StateConnected     SessionState = "connected"
	StateAuthFailed    SessionState = "auth_failed"
)

// StatusEvent reports a transport lifecycle transition. QR carries the
// scannable auth payload while the state is StateQRPending, otherwise empty.
type StatusEvent struct {
	State SessionState `json:"state"`
	QR    string       `json:"qr,omitempty"`
}

// Transport is the capability interface a chat backend must satisfy. The
// session manager and router depend only on this, never on transport
// internals, so the concrete backend can be swapped or mocked.
type Transport interface {
	// Connect starts the connection handshake. It returns once the handshake
	// has been initiated; progress is reported through OnStatusChange.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down.
	Disconnect(ctx context.Context) error

	// Send delivers an outbound message to a chat peer.
	Send(ctx context.Context, msg OutboundMessage) error

	// OnMessage registers the handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))

	// OnStatusChange registers the handler for lifecycle transitions.
	OnStatusChange(handler func(evt StatusEvent))
}
