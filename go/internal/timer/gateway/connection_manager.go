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
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrTooManyConnections is returned when the connection cap is reached.
var ErrTooManyConnections = errors.New("too many connections")

// CommandSink receives decoded commands and connect notifications.
type CommandSink interface {
	Submit(ctx context.Context, connID string, cmd events.Command) error
	Connected(ctx context.Context, connID string) error
}

// Publisher mirrors broadcast events to an external bus.
type Publisher interface {
	Publish(ev events.Event)
}

// ConnectionManager tracks websocket connections and the principal bound to
// each one. It implements the orchestrator's Registry and Broadcaster.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	sink  CommandSink
	relay Publisher

	ctx    context.Context
	cancel context.CancelFunc
}

// Connection is one websocket client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	principal models.Principal
	limiter   *rate.Limiter

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	MaxConnections  int
	CommandRate     rate.Limit
	CommandBurst    int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024, // import batches can be large
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		MaxConnections:  100,
		CommandRate:     20,
		CommandBurst:    40,
		CheckOrigin: func(r *http.Request) bool {
			// origins are enforced by the CORS layer
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. Commands are not accepted
// until a sink is bound with SetSink.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetSink binds the command consumer.
func (cm *ConnectionManager) SetSink(sink CommandSink) {
	cm.sink = sink
}

// SetRelay mirrors every broadcast to p. p may be nil.
func (cm *ConnectionManager) SetRelay(p Publisher) {
	cm.relay = p
}

// UpgradeConnection upgrades an HTTP connection to websocket and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	if cm.atCapacity() {
		http.Error(w, ErrTooManyConnections.Error(), http.StatusServiceUnavailable)
		return ErrTooManyConnections
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		principal:   models.Viewer(),
		limiter:     rate.NewLimiter(cm.config.CommandRate, cm.config.CommandBurst),
		ConnectedAt: time.Now(),
	}

	if !cm.registerConnection(connection) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ErrTooManyConnections.Error()),
			time.Now().Add(cm.config.WriteTimeout))
		conn.Close()
		return ErrTooManyConnections
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")

	return nil
}

func (cm *ConnectionManager) atCapacity() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.MaxConnections > 0 && len(cm.connections) >= cm.config.MaxConnections
}

// registerConnection adds a connection unless the cap has been reached meanwhile.
func (cm *ConnectionManager) registerConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.config.MaxConnections > 0 && len(cm.connections) >= cm.config.MaxConnections {
		return false
	}
	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
	return true
}

// unregisterConnection removes a connection and closes its send channel.
// Only the session is dropped; state owned by the orchestrator is untouched.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn.ID]; !exists {
		return
	}
	delete(cm.connections, conn.ID)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("username", conn.principal.Username).
		Int("total_connections", len(cm.connections)).
		Msg("connection unregistered")
}

// Principal returns the identity bound to connID.
func (cm *ConnectionManager) Principal(connID string) (models.Principal, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.connections[connID]
	if !ok {
		return models.Principal{}, false
	}
	return c.principal, true
}

// SetPrincipal rebinds connID. Unknown ids are ignored.
func (cm *ConnectionManager) SetPrincipal(connID string, p models.Principal) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if c, ok := cm.connections[connID]; ok {
		c.principal = p
	}
}

// Broadcast sends ev to every connection and mirrors it to the relay.
func (cm *ConnectionManager) Broadcast(ev events.Event) {
	cm.deliver(ev, func(*Connection) bool { return true })
	if cm.relay != nil {
		cm.relay.Publish(ev)
	}
}

// Send delivers ev to a single connection.
func (cm *ConnectionManager) Send(connID string, ev events.Event) {
	cm.deliver(ev, func(c *Connection) bool { return c.ID == connID })
}

// SendWhere delivers ev to connections whose principal matches.
func (cm *ConnectionManager) SendWhere(match func(models.Principal) bool, ev events.Event) {
	cm.deliver(ev, func(c *Connection) bool { return match(c.principal) })
}

// deliver never blocks. A connection whose buffer is full is dropped.
func (cm *ConnectionManager) deliver(ev events.Event, match func(*Connection) bool) {
	data, err := events.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.EventName())).Msg("failed to encode event")
		return
	}

	var slow []*Connection
	sent := 0
	cm.mu.RLock()
	for _, conn := range cm.connections {
		if !match(conn) {
			continue
		}
		select {
		case conn.Send <- data:
			sent++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	if ev.EventName() != events.NameSync {
		log.Debug().
			Str("event", string(ev.EventName())).
			Int("connections", sent).
			Msg("event delivered")
	}
}

// ConnectionStats summarises active connections.
type ConnectionStats struct {
	TotalConnections int                 `json:"total_connections"`
	MaxConnections   int                 `json:"max_connections"`
	ByRole           map[models.Role]int `json:"by_role"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		TotalConnections: len(cm.connections),
		MaxConnections:   cm.config.MaxConnections,
		ByRole:           map[models.Role]int{},
	}
	for _, c := range cm.connections {
		stats.ByRole[c.principal.Role]++
	}
	return stats
}

// Shutdown stops command intake and closes every connection.
func (cm *ConnectionManager) Shutdown() {
	cm.cancel()

	cm.mu.Lock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.Unlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
		c.Conn.Close()
	}
	log.Info().Int("closed", len(conns)).Msg("connection manager shut down")
}

// writePump handles sending messages to the websocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the sink in arrival order.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	ctx := c.Manager.ctx
	sink := c.Manager.sink
	if sink == nil {
		log.Error().Str("connection_id", c.ID).Msg("no command sink bound")
		return
	}
	if err := sink.Connected(ctx, c.ID); err != nil {
		return
	}

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			return
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		if err := sink.Submit(ctx, c.ID, events.DecodeCommand(message)); err != nil {
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
