package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes only
	},
}

// LiveRegistry tracks dashboard connections
type LiveRegistry interface {
	Register(username string, conn *websocket.Conn)
	Unregister(username string, conn *websocket.Conn)
}

// WebSocketHandler serves the live tally feed
type WebSocketHandler struct {
	hub LiveRegistry
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub LiveRegistry) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket handles GET /ws?username=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		respondError(w, "username required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(username, conn)
	defer h.hub.Unregister(username, conn)

	// The feed is server to client only. Reading drains control frames and
	// detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("username", username).Msg("WebSocket error")
			}
			return
		}
	}
}
