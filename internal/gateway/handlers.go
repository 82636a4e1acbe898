package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/session"
	"github.com/pedezap/pedezap/internal/version"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeMs int64  `json:"uptimeMs"`
	Sessions int    `json:"sessions"`
}

// AuthResponse is returned by GET /auth/{tenant}. QR is empty unless the
// session is waiting for a scan; State reports the session lifecycle.
type AuthResponse struct {
	TenantID string              `json:"tenantId"`
	QR       string              `json:"qr,omitempty"`
	Pending  bool                `json:"pending"`
	State    domain.SessionState `json:"status"`
}

// OrdersResponse is returned by GET /orders/{tenant}.
type OrdersResponse struct {
	TenantID string                  `json:"tenantId"`
	Orders   []domain.FinalizedOrder `json:"orders"`
}

// TenantStatusResponse is returned by the session lifecycle endpoints.
type TenantStatusResponse struct {
	TenantID string `json:"tenantId"`
	session.Status
}

func tenantStatus(tenantID string, st session.Status) TenantStatusResponse {
	return TenantStatusResponse{TenantID: tenantID, Status: st}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime int64
	if !s.startedAt.IsZero() {
		uptime = time.Since(s.startedAt).Milliseconds()
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  version.Version,
		UptimeMs: uptime,
		Sessions: s.sessions.Count(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	status, err := s.sessions.Start(r.Context(), tenantID)
	if err != nil {
		s.log.Error().Err(err).Str("tenant", tenantID).Msg("session start failed")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, tenantStatus(tenantID, status))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	if err := s.sessions.Stop(r.Context(), tenantID); err != nil {
		s.log.Error().Err(err).Str("tenant", tenantID).Msg("session stop failed")
		writeError(w, http.StatusInternalServerError, "failed to disconnect session")
		return
	}
	writeJSON(w, http.StatusOK, tenantStatus(tenantID, s.sessions.GetStatus(tenantID)))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	writeJSON(w, http.StatusOK, tenantStatus(tenantID, s.sessions.GetStatus(tenantID)))
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	qr := s.sessions.ScannableAuth(tenantID)
	writeJSON(w, http.StatusOK, AuthResponse{
		TenantID: tenantID,
		QR:       qr,
		Pending:  qr != "",
		State:    s.sessions.GetStatus(tenantID).State,
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	orders, err := s.orders.ListOrders(r.Context(), tenantID, 0)
	if err != nil {
		s.log.Error().Err(err).Str("tenant", tenantID).Msg("listing orders failed")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.FinalizedOrder{}
	}
	writeJSON(w, http.StatusOK, OrdersResponse{TenantID: tenantID, Orders: orders})
}
