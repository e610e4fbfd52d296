package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type SubmitOrderRequest struct {
	Owner       string          `json:"owner" binding:"required"`
	Symbol      string          `json:"symbol" binding:"required"`
	Side        Side            `json:"side" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Quantity    int64           `json:"quantity" binding:"required"`
	SubmittedAt int64           `json:"submitted_at,omitempty"`
}

type SubmitOrderResponse struct {
	OrderID   string          `json:"order_id"`
	Notional  decimal.Decimal `json:"notional"`
	Trades    []Trade         `json:"trades"`
	Remaining int64           `json:"remaining"`
}

type GetOrdersResponse struct {
	Orders []Order `json:"orders"`
}

type GetOrderbookResponse struct {
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

type GetTradesResponse struct {
	Trades []Trade `json:"trades"`
}

type Order struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	SubmittedAt int64           `json:"submitted_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

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
}
