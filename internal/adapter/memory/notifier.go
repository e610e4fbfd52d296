package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

// Fill is one recorded notification.
type Fill struct {
	Symbol   string
	Side     domain.Side
	Quantity int64
	Price    decimal.Decimal
}

var _ domain.ClientHandle = (*ClientHandle)(nil)

// ClientHandle records every fill pushed to it. It stands in for a real
// client channel in tests.
type ClientHandle struct {
	mu    sync.Mutex
	fills []Fill
}

func NewClientHandle() *ClientHandle {
	return &ClientHandle{}
}

func (h *ClientHandle) FillExecuted(ctx context.Context, symbol string, side domain.Side, quantity int64, price decimal.Decimal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fills = append(h.fills, Fill{Symbol: symbol, Side: side, Quantity: quantity, Price: price})
	return nil
}

func (h *ClientHandle) Fills() []Fill {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Fill(nil), h.fills...)
}
