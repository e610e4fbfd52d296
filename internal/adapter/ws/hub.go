package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

// Hub maps owners to their websocket connections and hands out the opaque
// per-order callback handles the engine forwards fills through. Fills for
// owners without a live connection are dropped; the feed is best effort.
type Hub struct {
	log zerolog.Logger

	mu    sync.Mutex
	conns map[string]*client
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[string]*client),
	}
}

// Register attaches a connection to an owner, replacing any previous one.
func (h *Hub) Register(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	prev := h.conns[owner]
	h.conns[owner] = &client{conn: conn}
	h.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close()
	}
	h.log.Info().Str("owner", owner).Msg("fill feed connected")
}

// Unregister detaches owner's feed, but only if it still points at conn: a
// reconnect replaces the map entry, and the old handler tearing down
// afterwards must not take the fresh connection with it.
func (h *Hub) Unregister(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	c := h.conns[owner]
	if c == nil || c.conn != conn {
		h.mu.Unlock()
		return
	}
	delete(h.conns, owner)
	h.mu.Unlock()

	_ = c.conn.Close()
}

// Handle returns the callback handle for an owner. The handle resolves the
// connection at notification time, so it stays valid across reconnects.
func (h *Hub) Handle(owner string) domain.ClientHandle {
	return &handle{hub: h, owner: owner}
}

type fillMessage struct {
	Symbol     string          `json:"symbol"`
	Side       domain.Side     `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

type handle struct {
	hub   *Hub
	owner string
}

func (n *handle) FillExecuted(ctx context.Context, symbol string, side domain.Side, quantity int64, price decimal.Decimal) error {
	n.hub.mu.Lock()
	c := n.hub.conns[n.owner]
	n.hub.mu.Unlock()
	if c == nil {
		return nil
	}

	msg := fillMessage{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: time.Now(),
	}

	c.mu.Lock()
	err := c.conn.WriteJSON(msg)
	c.mu.Unlock()
	if err != nil {
		n.hub.log.Warn().Err(err).Str("owner", n.owner).Msg("fill push failed, dropping connection")
		n.hub.Unregister(n.owner, c.conn)
	}
	return err
}
