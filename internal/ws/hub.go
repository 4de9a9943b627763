package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Event actions pushed to connected dashboards
const (
	ActionTransactionCreated = "transaction_created"
	ActionTransactionDeleted = "transaction_deleted"
	ActionProductCreated     = "product_created"
	ActionProductUpdated     = "product_updated"
	ActionProductDeleted     = "product_deleted"
)

type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event is the JSON envelope every client receives
type Event struct {
	Type    string      `json:"type"`
	Action  string      `json:"action"`
	Data    interface{} `json:"data"`
	User    *Actor      `json:"user,omitempty"`
	Message string      `json:"message"`
	SentAt  time.Time   `json:"sent_at"`
}

// Publisher is what services depend on; only committed changes are published
type Publisher interface {
	Publish(event Event)
}

const broadcastBuffer = 256

type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.Mutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, broadcastBuffer),
		log:        log,
	}
}

// Publish never blocks the request path: when the buffer is full the event
// is dropped and logged.
func (h *Hub) Publish(event Event) {
	if event.Type == "" {
		event.Type = "stock_update"
	}
	if event.SentAt.IsZero() {
		event.SentAt = time.Now()
	}
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws: marshal event", zap.String("action", event.Action), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("ws: broadcast buffer full, event dropped", zap.String("action", event.Action))
	}
}

func (h *Hub) Register(conn *websocket.Conn)   { h.register <- conn }
func (h *Hub) Unregister(conn *websocket.Conn) { h.unregister <- conn }

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Run serves register, unregister and broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.mutex.Unlock()
			h.log.Debug("ws: client connected", zap.Int("clients", h.ClientCount()))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Serve is the fiber websocket handler: it keeps the connection registered
// until the client goes away. Incoming messages are ignored.
func (h *Hub) Serve(conn *websocket.Conn) {
	h.Register(conn)
	defer h.Unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
