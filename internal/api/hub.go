package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/jury-engine/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans lifecycle messages out to connected websocket clients.
// It also implements notify.Notifier for single-instance deployments.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	username string
	send     chan []byte
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(msg notify.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal event message", "error", err, "type", msg.Type)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("dropping slow event client", "username", c.username)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Notify implements notify.Notifier
func (h *Hub) Notify(_ context.Context, msg notify.Message) error {
	h.Broadcast(msg)
	return nil
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// handleEvents upgrades the request and streams hub messages until the client leaves
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	username := ""
	if user := UserFromContext(r.Context()); user != nil {
		username = user.Username
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}

	c := &wsClient{username: username, send: make(chan []byte, sendBuffer)}
	s.hub.register(c)
	slog.Info("event client connected", "username", username)

	done := make(chan struct{})
	go s.writeEvents(conn, c, done)

	// Clients only listen; reading keeps pongs and close frames flowing
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("event client read error", "error", err)
			}
			break
		}
	}

	s.hub.unregister(c)
	<-done
	slog.Info("event client disconnected", "username", username)
}

func (s *Server) writeEvents(conn *websocket.Conn, c *wsClient, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case data, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("failed to send event", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
