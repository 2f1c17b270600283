package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"slot-parlor/internal/observability"
)

// HubConfig configures the digest stream.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a subscriber may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-subscriber queue; subscribers that fall this far
	// behind are dropped.
	SendBuffer int
}

// DefaultHubConfig returns default digest stream configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   16,
	}
}

// Event is one message pushed to digest subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types.
const (
	EventHello = "hello"
	EventWeek  = "week"
	EventReset = "reset"
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans weekly digests out to websocket subscribers.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub. allowOrigin decides websocket origins; nil allows all.
func NewHub(config HubConfig, allowOrigin func(r *http.Request) bool, log zerolog.Logger) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(r *http.Request) bool { return true }
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultHubConfig().SendBuffer
	}
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin,
		},
		log:  log.With().Str("component", "digest_hub").Logger(),
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades the request and streams events until the peer leaves.
// hello is sent first, before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, hello Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	data, err := json.Marshal(hello)
	if err != nil {
		h.log.Error().Err(err).Msg("encode hello")
		conn.Close()
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	sub.send <- data

	if !h.register(sub) {
		conn.Close()
		return
	}

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Broadcast sends an event to every subscriber.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("type", ev.Type).Msg("encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.log.Warn().Msg("dropping slow digest subscriber")
			h.dropLocked(sub)
		}
	}
}

// Close disconnects all subscribers and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for sub := range h.subs {
		h.dropLocked(sub)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// register adds sub and accounts for its two loops. The WaitGroup is only
// grown under mu while the hub is open, so Close never races a late Add.
func (h *Hub) register(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.wg.Add(2)
	h.subs[sub] = struct{}{}
	observability.UpdateDigestSubscribers(len(h.subs))
	return true
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.close()
	observability.UpdateDigestSubscribers(len(h.subs))
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer h.wg.Done()
	defer sub.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(sub)
				return
			}
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.wg.Done()
	defer h.unregister(sub)

	sub.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
