package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"papertrader/src/ledger"
	"papertrader/src/model"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is one message on the /ws stream.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans ledger events and analysis updates out to websocket clients.
type Hub struct {
	buffer  int
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Entry
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		buffer:  buffer,
		clients: make(map[*client]struct{}),
		log:     logger.WithField("component", "ws_hub"),
	}
}

// Attach subscribes the hub to l and analyses. The returned func detaches it.
func (h *Hub) Attach(l *ledger.Ledger, analyses interface {
	Subscribe(func(model.Analysis)) func()
}) func() {
	var detach []func()
	if l != nil {
		detach = append(detach, l.Subscribe(func(evt ledger.Event) {
			h.Broadcast("ledger", evt)
		}))
	}
	if analyses != nil {
		detach = append(detach, analyses.Subscribe(func(a model.Analysis) {
			h.Broadcast("analysis", a)
		}))
	}
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}

// Broadcast never blocks: a client whose queue is full misses the message.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	msg, err := json.Marshal(Envelope{Type: msgType, Data: data, At: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).Error("failed to encode ws message")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("ws client queue full, message dropped")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams envelopes until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.WithField("clients", count).Info("ws client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.log.WithField("clients", len(h.clients)).Info("ws client disconnected")
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients do not send commands.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
