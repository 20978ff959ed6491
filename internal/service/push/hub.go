package push

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the active connections, keyed by hold id: a guest opens one
// socket per hold they are watching and receives that hold's lifecycle
// events as they happen.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister traffic until the channels close. Call
// it from one goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.holdID]; ok {
				// Latest connection wins; the stale one is told to go away.
				close(old.send)
			}
			h.clients[client.holdID] = client
			h.mu.Unlock()
			log.Debug().Str("hold_id", client.holdID).Msg("push client registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.holdID]; ok && current == client {
				delete(h.clients, client.holdID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Debug().Str("hold_id", client.holdID).Msg("push client unregistered")
		}
	}
}

// Send delivers payload to the client watching holdID, if any. A client with
// a full buffer is dropped rather than blocking the router.
func (h *Hub) Send(holdID string, payload []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[holdID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		h.unregister <- client
		return false
	}
}

// Client is one WebSocket connection watching one hold.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	holdID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames (pongs, client close) and unregisters on
// disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeWS upgrades the request and attaches the connection to the hub. The
// hold id comes from the holdId query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	holdID := r.URL.Query().Get("holdId")
	if holdID == "" {
		http.Error(w, "holdId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), holdID: holdID}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
