// Package live streams readings to WebSocket clients as they are stored.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nicktill/hikelog/pkg/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Same origin, or no Origin header at all (curl, scripts)
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
}

// Hub fans each broadcast message out to every connected client. A client
// that connects is first sent the most recent message, so it never waits a
// full minute for its first reading.
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte

	mu   sync.RWMutex
	last []byte
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn, config.WSChannelBuffer),
		unregister: make(chan *websocket.Conn, config.WSChannelBuffer),
		broadcast:  make(chan []byte, config.WSBroadcastBuffer),
	}
}

// Run is the hub's main loop. All client connections are closed when ctx
// is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.mu.Unlock()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			count := len(h.clients)
			last := h.last
			h.mu.Unlock()
			log.Printf("🔌 WebSocket client connected (total: %d)", count)
			if last != nil && !write(conn, last) {
				h.unregister <- conn
			}
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("🔌 WebSocket client disconnected (total: %d)", count)
		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				if !write(conn, message) {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			// Unregister outside the lock
			for _, conn := range failed {
				h.unregister <- conn
			}
		}
	}
}

func write(conn *websocket.Conn, message []byte) bool {
	conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("⚠️  WebSocket write error: %v", err)
		return false
	}
	return true
}

// Broadcast marshals data and queues it for every client. When the queue
// is full the message is dropped; it is still remembered for new clients.
func (h *Hub) Broadcast(data interface{}) error {
	message, err := json.Marshal(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.last = message
	h.mu.Unlock()

	select {
	case h.broadcast <- message:
	default:
		log.Printf("⚠️  Broadcast channel full, dropping message")
	}
	return nil
}

// HasClients reports whether any client is connected.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// HandleWebSocket handles GET /v1/ws.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}
	h.register <- conn

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		h.unregister <- conn
	}()

	// Keepalive pings
	go func() {
		ticker := time.NewTicker(config.WSPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(config.WSWriteDeadline)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	// Clients never send data; reading only services control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️  WebSocket error: %v", err)
			}
			return
		}
	}
}
