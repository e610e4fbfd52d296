package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

var (
	ErrSelfTrade       = errors.New("self trade rejected")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrWrongSide       = errors.New("order side does not match operation")
)

// SellSideLess ranks resting sell orders: lowest price first (the cheapest
// offer is the best candidate for a buyer), earliest arrival among equal
// prices, insertion sequence as the final strict tie-break.
func SellSideLess(a, b *domain.Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if a.SubmittedAt != b.SubmittedAt {
		return a.SubmittedAt < b.SubmittedAt
	}
	return a.Seq < b.Seq
}

// BuySideLess ranks resting buy orders: highest price first (the most
// aggressive bid matches first), earliest arrival among equal prices,
// insertion sequence as the final strict tie-break.
func BuySideLess(a, b *domain.Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	if a.SubmittedAt != b.SubmittedAt {
		return a.SubmittedAt < b.SubmittedAt
	}
	return a.Seq < b.Seq
}

// PriorityOrderBook holds the resting interest of one symbol in two priority
// queues and runs the crossing algorithm. All operations are serialized on
// one mutex: a multi-leg matching loop is a single atomic unit, and no
// snapshot can interleave with an in-progress match. The book exclusively
// owns the mutable quantity of every resting order; callers only ever get
// copies back.
type PriorityOrderBook struct {
	symbol string

	mu    sync.Mutex
	buys  *btree.BTreeG[*domain.Order]
	sells *btree.BTreeG[*domain.Order]
	seq   uint64
}

func NewPriorityOrderBook(symbol string) *PriorityOrderBook {
	return &PriorityOrderBook{
		symbol: symbol,
		buys:   btree.NewBTreeG(BuySideLess),
		sells:  btree.NewBTreeG(SellSideLess),
	}
}

func (b *PriorityOrderBook) Symbol() string { return b.symbol }

// Buy submits a buy order: it crosses against the cheapest resting sells
// while the sell price is at or below the buy limit, then rests any
// remainder on the buy side. Returns the traded notional value of this call
// (zero when nothing matched), the executed legs, and post-fill copies of
// the resting orders the call reduced, so callers can journal the new
// quantities of both sides of every leg.
//
// Every leg executes at the resting order's price, so an aggressive buyer
// receives price improvement rather than paying its own limit.
func (b *PriorityOrderBook) Buy(o *domain.Order) (decimal.Decimal, []*domain.Trade, []domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validate(o, domain.Buy); err != nil {
		return decimal.Zero, nil, nil, err
	}
	return b.cross(o, b.sells, b.buys, func(rest *domain.Order) bool {
		return rest.Price.LessThanOrEqual(o.Price)
	})
}

// Sell is the mirror of Buy: it crosses against the highest resting buys
// while the bid is at or above the sell limit, then rests any remainder on
// the sell side.
func (b *PriorityOrderBook) Sell(o *domain.Order) (decimal.Decimal, []*domain.Trade, []domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validate(o, domain.Sell); err != nil {
		return decimal.Zero, nil, nil, err
	}
	return b.cross(o, b.buys, b.sells, func(rest *domain.Order) bool {
		return rest.Price.GreaterThanOrEqual(o.Price)
	})
}

func validate(o *domain.Order, want domain.Side) error {
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, o.Quantity)
	}
	if o.Side != want {
		return fmt.Errorf("%w: %s order submitted as %s", ErrWrongSide, o.Side, want)
	}
	return nil
}

// cross is the single generic matching loop both sides share. It repeatedly
// takes the best resting order off the opposite queue while the crossing
// predicate holds and the incoming order still has quantity, executing one
// leg per iteration at the resting price. A fully consumed resting order is
// removed the moment it hits zero; a remainder of the incoming order is
// inserted into its own queue after the loop.
//
// A crossing candidate owned by the submitter aborts the call with
// ErrSelfTrade before that candidate's leg commits. Legs already executed in
// the same call stand; the remainder is discarded and never rests.
func (b *PriorityOrderBook) cross(
	incoming *domain.Order,
	opposite, own *btree.BTreeG[*domain.Order],
	crosses func(*domain.Order) bool,
) (decimal.Decimal, []*domain.Trade, []domain.Order, error) {
	notional := decimal.Zero
	var trades []*domain.Trade
	// post-fill copies of resting orders reduced by this call; a resting
	// order is touched at most once per call (it is either exhausted or the
	// incoming order is)
	var filled []domain.Order

	for incoming.Quantity > 0 {
		top, ok := opposite.Min()
		if !ok || !crosses(top) {
			break
		}
		if top.Owner == incoming.Owner {
			return notional, trades, filled, fmt.Errorf("%w: %s would cross own resting order %s",
				ErrSelfTrade, incoming.Owner, top.ID)
		}

		matched := min(incoming.Quantity, top.Quantity)
		incoming.Quantity -= matched
		top.Quantity -= matched
		notional = notional.Add(top.Price.Mul(decimal.NewFromInt(matched)))
		trades = append(trades, b.newTrade(incoming, top, matched))
		filled = append(filled, *top)

		if top.Quantity == 0 {
			opposite.Delete(top)
		}
	}

	if incoming.Quantity > 0 {
		b.seq++
		incoming.Seq = b.seq
		own.Set(incoming)
	}
	return notional, trades, filled, nil
}

// newTrade records one leg. The resting order supplies the execution price.
func (b *PriorityOrderBook) newTrade(incoming, resting *domain.Order, matched int64) *domain.Trade {
	t := &domain.Trade{
		ID:         uuid.NewString(),
		Symbol:     b.symbol,
		Price:      resting.Price,
		Quantity:   matched,
		ExecutedAt: time.Now(),
	}
	if incoming.Side == domain.Buy {
		t.BuyOrder, t.Buyer, t.BuyerClient = incoming.ID, incoming.Owner, incoming.Client
		t.SellOrder, t.Seller, t.SellerClient = resting.ID, resting.Owner, resting.Client
	} else {
		t.BuyOrder, t.Buyer, t.BuyerClient = resting.ID, resting.Owner, resting.Client
		t.SellOrder, t.Seller, t.SellerClient = incoming.ID, incoming.Owner, incoming.Client
	}
	return t
}

// Restore inserts an order directly into its resting queue without
// triggering the crossing loop. Used when reloading open orders at boot.
func (b *PriorityOrderBook) Restore(o *domain.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, o.Quantity)
	}
	b.seq++
	o.Seq = b.seq
	switch o.Side {
	case domain.Buy:
		b.buys.Set(o)
	case domain.Sell:
		b.sells.Set(o)
	default:
		return fmt.Errorf("%w: %q", ErrWrongSide, o.Side)
	}
	return nil
}

// AllOrders returns a copy of every order currently resting in either
// queue. Iteration order is an inventory listing, not a priority view.
func (b *PriorityOrderBook) AllOrders() []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Order, 0, b.buys.Len()+b.sells.Len())
	b.buys.Scan(func(o *domain.Order) bool {
		out = append(out, *o)
		return true
	})
	b.sells.Scan(func(o *domain.Order) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// Snapshot returns both sides in priority order, copies only.
func (b *PriorityOrderBook) Snapshot() *domain.BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &domain.BookSnapshot{
		Symbol:    b.symbol,
		Bids:      make([]domain.Order, 0, b.buys.Len()),
		Asks:      make([]domain.Order, 0, b.sells.Len()),
		Timestamp: time.Now(),
	}
	b.buys.Scan(func(o *domain.Order) bool {
		snap.Bids = append(snap.Bids, *o)
		return true
	})
	b.sells.Scan(func(o *domain.Order) bool {
		snap.Asks = append(snap.Asks, *o)
		return true
	})
	return snap
}

// Depth reports the number of resting orders per side.
func (b *PriorityOrderBook) Depth() (bids, asks int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buys.Len(), b.sells.Len()
}
