package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
	"github.com/MangoByte1987/MatchingEngine/internal/port"
)

var _ port.Repository = (*Repo)(nil)

// Repo journals orders and trades to Postgres. The book itself stays in
// memory; this record exists for audit and for warm-starting books at boot.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO orders(id, owner, symbol, side, price, quantity, submitted_at, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  quantity = EXCLUDED.quantity
`, o.ID, o.Owner, o.Symbol, string(o.Side), o.Price, o.Quantity, o.SubmittedAt, o.CreatedAt)
	return err
}

func (r *Repo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO trades(id, symbol, buy_order, sell_order, buyer, seller, price, quantity, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.Symbol, t.BuyOrder, t.SellOrder, t.Buyer, t.Seller, t.Price, t.Quantity, t.ExecutedAt)
	return err
}

// LoadOpenOrders returns resting orders for a symbol in arrival order, so a
// restored book keeps its price-time priority.
func (r *Repo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner, symbol, side, price, quantity, submitted_at, created_at
FROM orders
WHERE symbol = $1 AND quantity > 0
ORDER BY submitted_at ASC
`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var side string
		if err := rows.Scan(&o.ID, &o.Owner, &o.Symbol, &side, &o.Price, &o.Quantity, &o.SubmittedAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		res = append(res, &o)
	}
	return res, rows.Err()
}

func (r *Repo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, buy_order, sell_order, buyer, seller, price, quantity, executed_at
FROM trades
WHERE buy_order = $1 OR sell_order = $1
ORDER BY executed_at ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.BuyOrder, &t.SellOrder, &t.Buyer, &t.Seller, &t.Price, &t.Quantity, &t.ExecutedAt); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}
