package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed leg: a quantity/price pair matched between an
// incoming order and a resting counter-party. Price is always the resting
// order's price.
type Trade struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	BuyOrder   string          `json:"buy_order"`
	SellOrder  string          `json:"sell_order"`
	Buyer      string          `json:"buyer"`
	Seller     string          `json:"seller"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	ExecutedAt time.Time       `json:"executed_at"`

	// Callback handles of the two parties, carried so the notification
	// collaborator can push the fill. Never serialized or interpreted here.
	BuyerClient  ClientHandle `json:"-"`
	SellerClient ClientHandle `json:"-"`
}

// Notional is the traded value of this leg.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
