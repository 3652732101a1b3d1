package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for battle players
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleBattleConnection upgrades the request; the player must then send JOIN
func (h *WebSocketHandler) HandleBattleConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.connectionManager.UpgradeConnection(w, r); err != nil {
		// the upgrader has already written an HTTP error response
		log.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleMatchStats handles GET /api/matches/stats
func (h *WebSocketHandler) HandleMatchStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.connectionManager.matchmaker.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get matchmaker stats")
		http.Error(w, "Failed to get match stats", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode match stats response")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/battle", h.HandleBattleConnection)
	mux.HandleFunc("/api/matches/stats", h.HandleMatchStats)
}
