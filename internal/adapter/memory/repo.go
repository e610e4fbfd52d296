package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
	"github.com/MangoByte1987/MatchingEngine/internal/port"
)

var _ port.Repository = (*Repo)(nil)

// Repo is the in-memory journal used by tests and the default bootstrap.
// It stores copies, never aliases into live book state.
type Repo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	trades map[string][]domain.Trade
}

func NewRepo() *Repo {
	return &Repo{
		orders: make(map[string]domain.Order),
		trades: make(map[string][]domain.Trade),
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *Repo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.BuyOrder] = append(r.trades[t.BuyOrder], *t)
	r.trades[t.SellOrder] = append(r.trades[t.SellOrder], *t)
	return nil
}

func (r *Repo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Symbol == symbol && o.Quantity > 0 {
			cp := o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].SubmittedAt < res[j].SubmittedAt
	})
	return res, nil
}

func (r *Repo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trades := r.trades[orderID]
	res := make([]*domain.Trade, len(trades))
	for i := range trades {
		cp := trades[i]
		res[i] = &cp
	}
	return res, nil
}
