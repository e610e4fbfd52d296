package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
	"github.com/MangoByte1987/MatchingEngine/internal/port"
)

var ErrUnknownSymbol = errors.New("symbol not found")

// Engine routes submissions to per-symbol books and drives the collaborators
// around a match: the journal repository, the snapshot cache and the fill
// notifications. Books are fully independent; submissions for different
// symbols never contend. Repository and cache are optional (nil-safe), so
// the engine runs purely in memory when none are wired.
type Engine struct {
	repo  port.Repository
	cache port.Cache
	log   zerolog.Logger

	mu    sync.RWMutex
	books map[string]*PriorityOrderBook
}

func NewEngine(repo port.Repository, cache port.Cache, log zerolog.Logger) *Engine {
	return &Engine{
		repo:  repo,
		cache: cache,
		log:   log,
		books: make(map[string]*PriorityOrderBook),
	}
}

// SubmitOrder runs one submission end to end: stamp identity and arrival
// order, match inside the symbol's book, then persist, refresh the cache and
// notify fills outside the book lock. The returned notional is the traded
// value of this call, zero when nothing matched.
//
// On ErrSelfTrade, legs that executed before the self-trade candidate was
// hit are committed: they are persisted and notified, and the error is
// returned alongside their notional.
func (e *Engine) SubmitOrder(ctx context.Context, o *domain.Order) (decimal.Decimal, []*domain.Trade, error) {
	if o.Symbol == "" {
		return decimal.Zero, nil, fmt.Errorf("%w: empty symbol", ErrUnknownSymbol)
	}
	if !o.Side.Valid() {
		return decimal.Zero, nil, fmt.Errorf("%w: %q", ErrWrongSide, o.Side)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.SubmittedAt == 0 {
		o.SubmittedAt = time.Now().UnixNano()
	}
	o.CreatedAt = time.Now()

	book := e.book(o.Symbol)

	var (
		notional decimal.Decimal
		trades   []*domain.Trade
		filled   []domain.Order
		err      error
	)
	if o.Side == domain.Buy {
		notional, trades, filled, err = book.Buy(o)
	} else {
		notional, trades, filled, err = book.Sell(o)
	}

	if err != nil && !errors.Is(err, ErrSelfTrade) {
		// rejected before any state mutation
		e.log.Warn().Err(err).
			Str("symbol", o.Symbol).
			Str("owner", o.Owner).
			Msg("order rejected")
		return decimal.Zero, nil, err
	}

	journal := *o
	if err != nil {
		// the discarded remainder of an aborted submission never rests;
		// journal it closed so it is not reloaded at warm start
		journal.Quantity = 0
	}
	e.record(ctx, &journal, trades, filled)
	e.refreshCache(ctx, book)
	e.notify(ctx, trades)

	for _, t := range trades {
		e.log.Info().
			Str("symbol", t.Symbol).
			Str("buyer", t.Buyer).
			Str("seller", t.Seller).
			Int64("quantity", t.Quantity).
			Str("price", t.Price.String()).
			Str("notional", t.Notional().String()).
			Msg("trade executed")
	}
	if err != nil {
		e.log.Warn().Err(err).
			Str("symbol", o.Symbol).
			Str("owner", o.Owner).
			Int("committed_legs", len(trades)).
			Msg("submission aborted")
	}
	return notional, trades, err
}

// AllOrders returns the resting inventory of one symbol, straight from the
// book: it always reflects the most recently completed mutation.
func (e *Engine) AllOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	book, ok := e.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return book.AllOrders(), nil
}

// Snapshot returns the per-side priority view of one symbol's book,
// cache-first when a cache is wired.
func (e *Engine) Snapshot(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	book, ok := e.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if e.cache != nil {
		if snap, err := e.cache.GetBook(ctx, symbol); err == nil && snap != nil {
			return snap, nil
		}
	}
	snap := book.Snapshot()
	if e.cache != nil {
		if err := e.cache.SetBook(ctx, symbol, snap.DeepCopy()); err != nil {
			e.log.Error().Err(err).Str("symbol", symbol).Msg("cache refresh failed")
		}
	}
	return snap, nil
}

// TradesForOrder lists the executed legs that touched an order.
func (e *Engine) TradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	if e.repo == nil {
		return nil, nil
	}
	return e.repo.LoadTradesForOrder(ctx, orderID)
}

// WarmStart reloads open orders from the repository into fresh books. Open
// orders come back in arrival order, so restored books keep their priority.
func (e *Engine) WarmStart(ctx context.Context, symbols []string) error {
	if e.repo == nil {
		return nil
	}
	for _, symbol := range symbols {
		if e.cache != nil {
			// a snapshot cached before the restart is stale by definition
			if err := e.cache.Invalidate(ctx, symbol); err != nil {
				e.log.Error().Err(err).Str("symbol", symbol).Msg("cache invalidate failed")
			}
		}
		orders, err := e.repo.LoadOpenOrders(ctx, symbol)
		if err != nil {
			return fmt.Errorf("warm start %s: %w", symbol, err)
		}
		book := e.book(symbol)
		for _, o := range orders {
			if err := book.Restore(o); err != nil {
				return fmt.Errorf("warm start %s: restore order %s: %w", symbol, o.ID, err)
			}
		}
		bids, asks := book.Depth()
		e.log.Info().
			Str("symbol", symbol).
			Int("bids", bids).
			Int("asks", asks).
			Msg("book restored")
	}
	return nil
}

func (e *Engine) book(symbol string) *PriorityOrderBook {
	e.mu.RLock()
	book, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return book
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if book, ok = e.books[symbol]; ok {
		return book
	}
	book = NewPriorityOrderBook(symbol)
	e.books[symbol] = book
	return book
}

func (e *Engine) lookup(symbol string) (*PriorityOrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	book, ok := e.books[symbol]
	return book, ok
}

// record journals the incoming order, the post-fill state of every resting
// order this call reduced, and the executed legs. Resting counter-parties
// must be re-journaled here: their remaining quantity changed, and a filled
// one left at its original quantity would come back as phantom liquidity at
// warm start.
func (e *Engine) record(ctx context.Context, o *domain.Order, trades []*domain.Trade, filled []domain.Order) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveOrder(ctx, o); err != nil {
		e.log.Error().Err(err).Str("order", o.ID).Msg("order journal write failed")
	}
	for i := range filled {
		if err := e.repo.SaveOrder(ctx, &filled[i]); err != nil {
			e.log.Error().Err(err).Str("order", filled[i].ID).Msg("order journal write failed")
		}
	}
	for _, t := range trades {
		if err := e.repo.SaveTrade(ctx, t); err != nil {
			e.log.Error().Err(err).Str("trade", t.ID).Msg("trade journal write failed")
		}
	}
}

func (e *Engine) refreshCache(ctx context.Context, book *PriorityOrderBook) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetBook(ctx, book.Symbol(), book.Snapshot()); err != nil {
		e.log.Error().Err(err).Str("symbol", book.Symbol()).Msg("cache refresh failed")
	}
}

func (e *Engine) notify(ctx context.Context, trades []*domain.Trade) {
	for _, t := range trades {
		if t.BuyerClient != nil {
			if err := t.BuyerClient.FillExecuted(ctx, t.Symbol, domain.Buy, t.Quantity, t.Price); err != nil {
				e.log.Error().Err(err).Str("owner", t.Buyer).Msg("fill notification failed")
			}
		}
		if t.SellerClient != nil {
			if err := t.SellerClient.FillExecuted(ctx, t.Symbol, domain.Sell, t.Quantity, t.Price); err != nil {
				e.log.Error().Err(err).Str("owner", t.Seller).Msg("fill notification failed")
			}
		}
	}
}
