package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// sendBufferSize bounds the per-connection outbound queue. At 60 ticks/s a
// full second of backlog fits; a client slower than that starts losing
// frames, which is the intended backpressure (drop, never block the tick).
const sendBufferSize = 64

const writeTimeout = 5 * time.Second

// Connection wraps one websocket with a buffered outbound queue drained by a
// dedicated writer goroutine, so broadcasts from handlers and the game loop
// are fire-and-forget.
type Connection struct {
	ID     string
	socket *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConnection(id string, socket *websocket.Conn) *Connection {
	c := &Connection{
		ID:     id,
		socket: socket,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues data for delivery. It never blocks: a closed connection or a
// full queue drops the message and reports false.
func (c *Connection) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		log.Warn().Str("connection", c.ID).Msg("Send queue full, dropping message")
		return false
	}
}

// Close stops the writer goroutine. Safe to call more than once.
func (c *Connection) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.socket.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				// A dead socket is handled by the read loop; here we only
				// stop burning writes on it.
				log.Debug().Str("connection", c.ID).Err(err).Msg("Write failed")
				c.Close()
				return
			}
		}
	}
}

type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
	}
}

func (cm *ConnectionManager) Add(id string, socket *websocket.Conn) *Connection {
	conn := newConnection(id, socket)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
	return conn
}

func (cm *ConnectionManager) Remove(id string) {
	cm.mu.Lock()
	conn, ok := cm.connections[id]
	delete(cm.connections, id)
	cm.mu.Unlock()

	if ok {
		conn.Close()
	}
}

func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[id]
}

// All returns a snapshot of the live connections.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	return conns
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}
