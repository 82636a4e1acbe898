package gateway

import (
	"net/http"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
)

// StatusFrame is one message on the /ws/{tenant} feed. The first frame
// carries the state at subscribe time; later frames are live transitions.
type StatusFrame struct {
	TenantID string              `json:"tenantId"`
	State    domain.SessionState `json:"status"`
	QR       string              `json:"qr,omitempty"`
	Ts       int64               `json:"ts"`
}

const statusWriteTimeout = 10 * time.Second

// handleStatusFeed upgrades to WebSocket and streams session state changes
// for one tenant until the client goes away.
func (s *Server) handleStatusFeed(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("tenant", tenantID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.sessions.Watch(tenantID)
	defer cancel()

	s.log.Debug().Str("tenant", tenantID).Str("remote", r.RemoteAddr).Msg("status feed opened")

	writeFrame := func(state domain.SessionState, qr string) error {
		conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		return conn.WriteJSON(StatusFrame{
			TenantID: tenantID,
			State:    state,
			QR:       qr,
			Ts:       time.Now().UnixMilli(),
		})
	}

	// Snapshot first so a late subscriber sees the current state without
	// waiting for a transition.
	cur := s.sessions.GetStatus(tenantID)
	if err := writeFrame(cur.State, s.sessions.ScannableAuth(tenantID)); err != nil {
		return
	}

	// The feed is write-only; the read loop only notices the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			s.log.Debug().Str("tenant", tenantID).Msg("status feed closed by client")
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(evt.State, evt.QR); err != nil {
				s.log.Debug().Err(err).Str("tenant", tenantID).Msg("status feed write failed")
				return
			}
		}
	}
}
