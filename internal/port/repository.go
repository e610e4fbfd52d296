package port

import (
	"context"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

// Repository records submitted orders and executed trades and serves the
// warm-start read at boot. It is a write-side journal, not the source of
// truth for matching: the in-memory book is authoritative while running.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error)
	LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error)
}
