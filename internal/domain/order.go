package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// ClientHandle is the opaque callback channel an order carries back to its
// owner. The book forwards executions through it and never interprets it.
// A nil handle means the owner does not receive fill pushes.
type ClientHandle interface {
	FillExecuted(ctx context.Context, symbol string, side Side, quantity int64, price decimal.Decimal) error
}

// Order is the unit of state resting in the book. Owner, price, side and
// arrival order are immutable once submitted; Quantity is the remaining
// amount and only ever decreases. An order whose Quantity reaches zero is
// removed from the book immediately and never retained.
type Order struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Symbol string `json:"symbol"`
	Side   Side   `json:"side"`

	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`

	// SubmittedAt is the caller-supplied arrival order, monotonically
	// non-decreasing per submission stream. Used only for priority
	// tie-breaking among equal prices.
	SubmittedAt int64 `json:"submitted_at"`

	// Seq is assigned by the book at insertion and makes the side orderings
	// strict when two distinct orders share both price and arrival order.
	Seq uint64 `json:"seq"`

	CreatedAt time.Time `json:"created_at"`

	Client ClientHandle `json:"-"`
}
