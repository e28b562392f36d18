// Package wsfeed is the WebSocket market-data server: a broadcast.Sink
// that fans every MarketDataEvent out to subscribed clients as the
// egress JSON described in spec.md §6.
package wsfeed

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lobengine/internal/types"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 512 * 1024
	clientQueueDepth = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected WebSocket clients and fans MarketDataEvents out to
// the ones subscribed to the affected symbol.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub. Call ServeHTTP from an http.ServeMux route
// to accept connections, and register the Hub as a broadcast.Sink to feed
// it MarketDataEvents.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Name identifies this sink to the Broadcaster.
func (h *Hub) Name() string { return "ws-feed" }

// Send marshals event to its egress JSON form and enqueues it on every
// client subscribed to the event's symbol. A client whose outbound queue
// is full is dropped, exactly like any other sink.
func (h *Hub) Send(event types.MarketDataEvent) error {
	symbol, payload, err := encode(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribes(symbol) {
			continue
		}
		select {
		case c.out <- payload:
		default:
			log.Warn().Str("symbol", symbol).Msg("wsfeed: client queue full, dropping message")
			go h.remove(c)
		}
	}
	return nil
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.out)
	}
	h.mu.Unlock()
	if ok {
		log.Info().Str("client", c.id).Msg("wsfeed: client disconnected")
	}
}

// ServeHTTP upgrades the request to a WebSocket connection. The query
// string may carry ?symbols=FOO,BAR to subscribe to a subset; with no
// filter the client receives every symbol's events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("wsfeed: upgrade failed")
		return
	}

	c := &client{
		id:      uuid.New().String(),
		conn:    conn,
		out:     make(chan []byte, clientQueueDepth),
		symbols: parseSymbols(r.URL.Query().Get("symbols")),
	}
	h.add(c)
	log.Info().Str("client", c.id).Msg("wsfeed: client connected")

	go c.writePump()
	go c.readPump(h)
}

type client struct {
	id      string // opaque session id, for logging/correlation only
	conn    *websocket.Conn
	out     chan []byte
	symbols map[string]struct{} // empty means "all symbols"
}

func (c *client) subscribes(symbol string) bool {
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("wsfeed: read error")
			}
			return
		}
		// the feed is outbound-only; any client message is discarded.
	}
}

func parseSymbols(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out[raw[start:i]] = struct{}{}
			}
			start = i + 1
		}
	}
	return out
}
