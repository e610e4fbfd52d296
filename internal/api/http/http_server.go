package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MangoByte1987/MatchingEngine/internal/adapter/ws"
	"github.com/MangoByte1987/MatchingEngine/internal/api/dto"
	"github.com/MangoByte1987/MatchingEngine/internal/core"
	"github.com/MangoByte1987/MatchingEngine/internal/domain"
	"github.com/MangoByte1987/MatchingEngine/internal/middleware"
)

// Server is the submission and snapshot boundary: JSON over HTTP for order
// entry and book views, a websocket feed for fill notifications.
type Server struct {
	eng *core.Engine
	hub *ws.Hub
	log zerolog.Logger

	upgrader websocket.Upgrader
}

func NewServer(eng *core.Engine, hub *ws.Hub, log zerolog.Logger) *Server {
	return &Server{
		eng: eng,
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	rl := middleware.NewRateLimiter(100 * time.Millisecond)
	r.POST("/orders", rl.Middleware(), s.submitOrder)
	r.GET("/orders", s.getOrders)
	r.GET("/orders/:id/trades", s.getTrades)
	r.GET("/orderbook", s.getOrderbook)
	r.GET("/ws", s.fillFeed)
	return r
}

func (s *Server) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := &domain.Order{
		Owner:       req.Owner,
		Symbol:      req.Symbol,
		Side:        domain.Side(req.Side),
		Price:       req.Price,
		Quantity:    req.Quantity,
		SubmittedAt: req.SubmittedAt,
		Client:      s.hub.Handle(req.Owner),
	}

	notional, trades, err := s.eng.SubmitOrder(c.Request.Context(), o)
	if err != nil {
		// Committed legs of a self-trade abort are reported with the error.
		c.JSON(statusFor(err), gin.H{
			"error":    err.Error(),
			"notional": notional,
			"trades":   convertTrades(trades),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SubmitOrderResponse{
		OrderID:   o.ID,
		Notional:  notional,
		Trades:    convertTrades(trades),
		Remaining: o.Quantity,
	})
}

func (s *Server) getOrders(c *gin.Context) {
	symbol := c.Query("symbol")
	orders, err := s.eng.AllOrders(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrdersResponse{Orders: convertOrders(orders)})
}

func (s *Server) getTrades(c *gin.Context) {
	trades, err := s.eng.TradesForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetTradesResponse{Trades: convertTrades(trades)})
}

func (s *Server) getOrderbook(c *gin.Context) {
	symbol := c.Query("symbol")
	snap, err := s.eng.Snapshot(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderbookResponse{
		Bids:      convertOrders(snap.Bids),
		Asks:      convertOrders(snap.Asks),
		Timestamp: snap.Timestamp,
	})
}

// fillFeed upgrades the connection and attaches it to the owner's fill
// channel. The read loop exists only to notice the peer going away.
func (s *Server) fillFeed(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner required"})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", owner).Msg("websocket upgrade failed")
		return
	}
	s.hub.Register(owner, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unregister(owner, conn)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSelfTrade),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrWrongSide):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:          o.ID,
		Owner:       o.Owner,
		Symbol:      o.Symbol,
		Side:        dto.Side(o.Side),
		Price:       o.Price,
		Quantity:    o.Quantity,
		SubmittedAt: o.SubmittedAt,
		CreatedAt:   o.CreatedAt,
	}
}

func convertOrders(orders []domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i := range orders {
		res[i] = convertOrder(&orders[i])
	}
	return res
}

func convertTrades(trades []*domain.Trade) []dto.Trade {
	res := make([]dto.Trade, len(trades))
	for i, t := range trades {
		res[i] = dto.Trade{
			ID:         t.ID,
			Symbol:     t.Symbol,
			BuyOrder:   t.BuyOrder,
			SellOrder:  t.SellOrder,
			Buyer:      t.Buyer,
			Seller:     t.Seller,
			Price:      t.Price,
			Quantity:   t.Quantity,
			ExecutedAt: t.ExecutedAt,
		}
	}
	return res
}
