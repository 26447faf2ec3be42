package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// LiveEvent is pushed to every connected dashboard
type LiveEvent struct {
	Type           string `json:"type"`
	Day            string `json:"day"`
	Username       string `json:"username,omitempty"`
	Status         string `json:"status,omitempty"`
	AvailableCount int    `json:"availableCount"`
	TotalVotes     int    `json:"totalVotes"`
	Crossed        bool   `json:"thresholdCrossed,omitempty"`
	AffectedDays   int    `json:"affectedDays,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

const (
	EventVoteCast    = "vote_cast"
	EventDaysBlocked = "days_blocked"

	liveWriteTimeout = 5 * time.Second
)

type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// LiveHub manages websocket connections of open dashboards
type LiveHub struct {
	mu          sync.RWMutex
	connections map[string]*liveConn
}

// NewLiveHub creates a new live hub
func NewLiveHub() *LiveHub {
	return &LiveHub{
		connections: make(map[string]*liveConn),
	}
}

// Register registers a connection for a user, replacing any previous one
func (h *LiveHub) Register(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[username]; ok {
		existing.conn.Close()
	}
	h.connections[username] = &liveConn{conn: conn}

	log.Info().Str("username", username).Msg("Live connection registered")
}

// Unregister removes the connection of a user if it is still conn
func (h *LiveHub) Unregister(username string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[username]; ok && existing.conn == conn {
		existing.conn.Close()
		delete(h.connections, username)
		log.Info().Str("username", username).Msg("Live connection unregistered")
	}
}

// Connected returns how many dashboards are connected
func (h *LiveHub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Publish sends event to every connected dashboard. Failed connections are dropped.
func (h *LiveHub) Publish(event LiveEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal live event")
		return
	}

	h.mu.RLock()
	targets := make(map[string]*liveConn, len(h.connections))
	for name, c := range h.connections {
		targets[name] = c
	}
	h.mu.RUnlock()

	for name, c := range targets {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("username", name).Msg("Failed to send live event")
			h.Unregister(name, c.conn)
		}
	}
}

func (c *liveConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
