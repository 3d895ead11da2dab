// Package websocket forwards the chat event stream to UI clients over
// a WebSocket connection. Every client receives every chat event; the
// UI filters by session on its side.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/common/logger"
	"github.com/ninedotdev/jean/internal/events"
	"github.com/ninedotdev/jean/internal/events/bus"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 256
)

// Gateway bridges the event bus to WebSocket clients.
type Gateway struct {
	bus      bus.EventBus
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	sub     bus.Subscription
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func New(eventBus bus.EventBus, log *logger.Logger) *Gateway {
	return &Gateway{
		bus: eventBus,
		log: log.WithFields(zap.String("component", "ws_gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The desktop UI connects from its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Start subscribes to the full chat stream and begins forwarding.
func (g *Gateway) Start() error {
	sub, err := g.bus.Subscribe(events.ChatStreamWildcard, g.forward)
	if err != nil {
		return err
	}
	g.sub = sub
	return nil
}

// Stop unsubscribes and disconnects all clients.
func (g *Gateway) Stop() {
	if g.sub != nil {
		_ = g.sub.Unsubscribe()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		close(c.send)
		delete(g.clients, c)
	}
}

// forward fans one bus event out to every connected client. A client
// whose queue is full is dropped rather than allowed to stall the rest.
func (g *Gateway) forward(ctx context.Context, event *bus.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		select {
		case c.send <- payload:
		default:
			g.log.Warn("Dropping slow WebSocket client")
			close(c.send)
			delete(g.clients, c)
		}
	}
	return nil
}

// Handle upgrades a request to a WebSocket connection
// GET /ws
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendQueueSize)}
	g.mu.Lock()
	g.clients[cl] = struct{}{}
	clientCount := len(g.clients)
	g.mu.Unlock()
	g.log.Info("WebSocket client connected", zap.Int("clients", clientCount))

	go g.writePump(cl)
	g.readPump(cl)
}

func (g *Gateway) writePump(cl *client) {
	defer cl.conn.Close()
	for payload := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump drains inbound frames until the peer disconnects. The
// stream is one-way; anything the client sends is discarded.
func (g *Gateway) readPump(cl *client) {
	defer g.remove(cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) remove(cl *client) {
	g.mu.Lock()
	if _, ok := g.clients[cl]; ok {
		close(cl.send)
		delete(g.clients, cl)
	}
	g.mu.Unlock()
	cl.conn.Close()
	g.log.Info("WebSocket client disconnected")
}
