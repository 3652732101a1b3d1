package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"github.com/rs/zerolog/log"
)

// ErrSlowConsumer is returned when a connection's send buffer is full
var ErrSlowConsumer = errors.New("send buffer full")

// Matchmaker is what the gateway needs from the matchmaking actor
type Matchmaker interface {
	Connect(peer matchmaker.Peer)
	Receive(peerID string, data []byte)
	Disconnect(peerID string)
	Stats(ctx context.Context) (matchmaker.Stats, error)
}

// ConnectionManager manages WebSocket connections for battle players
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config     ConnectionConfig
	matchmaker Matchmaker
}

// Connection represents a WebSocket connection to a player
type Connection struct {
	id      string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	send     chan []byte
	sendMu   sync.Mutex
	sendShut bool

	// Connection metadata
	ConnectedAt time.Time
	RemoteAddr  string
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBufferSize  int
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		// above the STATE ceiling so oversized states reach the relay and are dropped there
		MaxMessageSize:  64 * 1024,
		SendBufferSize:  256,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, mm Matchmaker) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:     config,
		matchmaker: mm,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and hands it to the matchmaker
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		Conn:        conn,
		Manager:     cm,
		send:        make(chan []byte, cm.config.SendBufferSize),
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	cm.registerConnection(connection)
	cm.matchmaker.Connect(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.id).
		Str("remote_addr", connection.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn.id] = conn
}

// unregisterConnection removes a connection and reports whether it was still registered
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn.id]; !exists {
		return false
	}
	delete(cm.connections, conn.id)

	log.Info().
		Str("connection_id", conn.id).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("connection unregistered")
	return true
}

// ConnectionCount returns the number of open WebSocket connections
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes every open connection, used on shutdown
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.shutdownSend()
	}
	log.Info().Int("connections", len(conns)).Msg("closing all WebSocket connections")
}

// ID implements matchmaker.Peer
func (c *Connection) ID() string {
	return c.id
}

// Send implements matchmaker.Peer. It never blocks: a full buffer marks the
// connection as unreachable and closes it.
func (c *Connection) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendShut {
		return matchmaker.ErrPeerClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().
			Str("connection_id", c.id).
			Msg("connection send buffer full, closing connection")
		c.sendShut = true
		close(c.send)
		return ErrSlowConsumer
	}
}

// shutdownSend closes the send queue; writePump then sends a close frame and exits
func (c *Connection) shutdownSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendShut {
		c.sendShut = true
		close(c.send)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the matchmaker in arrival order
func (c *Connection) readPump() {
	defer func() {
		c.shutdownSend()
		c.Conn.Close()
		if c.Manager.unregisterConnection(c) {
			c.Manager.matchmaker.Disconnect(c.id)
		}
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Debug().
				Str("connection_id", c.id).
				Int("message_type", messageType).
				Msg("ignoring non-text frame")
			continue
		}

		c.Manager.matchmaker.Receive(c.id, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
