package core

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MangoByte1987/MatchingEngine/internal/adapter/memory"
	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

func newTestEngine() (*Engine, *memory.Repo, *memory.Cache) {
	repo := memory.NewRepo()
	cache := memory.NewCache()
	return NewEngine(repo, cache, zerolog.Nop()), repo, cache
}

func TestSubmitOrderStampsIdentity(t *testing.T) {
	eng, _, _ := newTestEngine()

	o := newOrder("buyer1", domain.Buy, 1, "10.0", 0)
	o.ID = ""
	_, _, err := eng.SubmitOrder(context.Background(), o)
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.NotZero(t, o.SubmittedAt)
	assert.False(t, o.CreatedAt.IsZero())
}

func TestSubmitOrderMatchesAcrossCalls(t *testing.T) {
	eng, repo, _ := newTestEngine()
	ctx := context.Background()

	offer := newOrder("seller1", domain.Sell, 2, "10.0", 1)
	_, _, err := eng.SubmitOrder(ctx, offer)
	require.NoError(t, err)

	notional, trades, err := eng.SubmitOrder(ctx, newOrder("buyer1", domain.Buy, 2, "10.0", 2))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, notional.Equal(decimal.RequireFromString("20.0")))

	// both legs were journaled against both order ids
	buyLegs, err := repo.LoadTradesForOrder(ctx, trades[0].BuyOrder)
	require.NoError(t, err)
	assert.Len(t, buyLegs, 1)
	sellLegs, err := repo.LoadTradesForOrder(ctx, offer.ID)
	require.NoError(t, err)
	assert.Len(t, sellLegs, 1)
}

func TestSubmitOrderNotifiesBothParties(t *testing.T) {
	eng, _, _ := newTestEngine()
	ctx := context.Background()

	sellerHandle := memory.NewClientHandle()
	buyerHandle := memory.NewClientHandle()

	offer := newOrder("seller1", domain.Sell, 3, "20.10", 1)
	offer.Client = sellerHandle
	_, _, err := eng.SubmitOrder(ctx, offer)
	require.NoError(t, err)

	bid := newOrder("buyer1", domain.Buy, 3, "40.0", 2)
	bid.Client = buyerHandle
	_, _, err = eng.SubmitOrder(ctx, bid)
	require.NoError(t, err)

	sellerFills := sellerHandle.Fills()
	require.Len(t, sellerFills, 1)
	assert.Equal(t, domain.Sell, sellerFills[0].Side)
	assert.Equal(t, int64(3), sellerFills[0].Quantity)
	assert.True(t, sellerFills[0].Price.Equal(decimal.RequireFromString("20.10")),
		"fill carries the execution price, not the buyer's limit")

	buyerFills := buyerHandle.Fills()
	require.Len(t, buyerFills, 1)
	assert.Equal(t, domain.Buy, buyerFills[0].Side)
}

func TestSubmitOrderRejectsEmptySymbol(t *testing.T) {
	eng, _, _ := newTestEngine()

	o := newOrder("buyer1", domain.Buy, 1, "10.0", 1)
	o.Symbol = ""
	_, _, err := eng.SubmitOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestSubmitOrderRejectsBadSide(t *testing.T) {
	eng, _, _ := newTestEngine()

	o := newOrder("buyer1", domain.Buy, 1, "10.0", 1)
	o.Side = "HOLD"
	_, _, err := eng.SubmitOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrWrongSide)
}

func TestSelfTradeCommittedLegsAreJournaled(t *testing.T) {
	eng, repo, _ := newTestEngine()
	ctx := context.Background()

	other := newOrder("trader2", domain.Sell, 1, "10.0", 1)
	_, _, err := eng.SubmitOrder(ctx, other)
	require.NoError(t, err)
	own := newOrder("trader1", domain.Sell, 1, "11.0", 2)
	_, _, err = eng.SubmitOrder(ctx, own)
	require.NoError(t, err)

	notional, trades, err := eng.SubmitOrder(ctx, newOrder("trader1", domain.Buy, 3, "12.0", 3))
	require.ErrorIs(t, err, ErrSelfTrade)
	require.Len(t, trades, 1)
	assert.True(t, notional.Equal(decimal.RequireFromString("10.0")))

	legs, err := repo.LoadTradesForOrder(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, legs, 1, "the committed leg survives the abort")
}

func TestAllOrdersUnknownSymbol(t *testing.T) {
	eng, _, _ := newTestEngine()

	_, err := eng.AllOrders(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = eng.Snapshot(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestSnapshotServedFromCache(t *testing.T) {
	eng, _, cache := newTestEngine()
	ctx := context.Background()

	_, _, err := eng.SubmitOrder(ctx, newOrder("buyer1", domain.Buy, 5, "10.0", 1))
	require.NoError(t, err)

	cached, err := cache.GetBook(ctx, testSymbol)
	require.NoError(t, err)
	require.NotNil(t, cached, "submission refreshes the cache")
	require.Len(t, cached.Bids, 1)

	snap, err := eng.Snapshot(ctx, testSymbol)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(5), snap.Bids[0].Quantity)
}

func TestWarmStartRestoresPriority(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepo()
	bookCache := memory.NewCache()

	early := newOrder("buyer1", domain.Buy, 1, "10.0", 1)
	late := newOrder("buyer2", domain.Buy, 1, "10.0", 2)
	require.NoError(t, repo.SaveOrder(ctx, early))
	require.NoError(t, repo.SaveOrder(ctx, late))

	// a snapshot surviving from before the restart must be discarded
	stale := &domain.BookSnapshot{Symbol: testSymbol}
	require.NoError(t, bookCache.SetBook(ctx, testSymbol, stale))

	eng := NewEngine(repo, bookCache, zerolog.Nop())
	require.NoError(t, eng.WarmStart(ctx, []string{testSymbol}))

	cached, err := bookCache.GetBook(ctx, testSymbol)
	require.NoError(t, err)
	assert.Nil(t, cached, "warm start invalidates the cached snapshot")

	orders, err := eng.AllOrders(ctx, testSymbol)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// the earlier bid must still match first after the reload
	_, trades, err := eng.SubmitOrder(ctx, newOrder("seller1", domain.Sell, 1, "10.0", 3))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, early.ID, trades[0].BuyOrder)
}

func TestWarmStartSkipsFilledOrders(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepo()
	eng := NewEngine(repo, memory.NewCache(), zerolog.Nop())

	offer := newOrder("sellerA", domain.Sell, 1, "10.0", 1)
	_, _, err := eng.SubmitOrder(ctx, offer)
	require.NoError(t, err)
	_, trades, err := eng.SubmitOrder(ctx, newOrder("buyerB", domain.Buy, 1, "10.0", 2))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	restarted := NewEngine(repo, memory.NewCache(), zerolog.Nop())
	require.NoError(t, restarted.WarmStart(ctx, []string{testSymbol}))

	orders, err := restarted.AllOrders(ctx, testSymbol)
	require.NoError(t, err)
	assert.Empty(t, orders, "a fully filled offer must not come back as liquidity")
}

func TestWarmStartRestoresReducedQuantity(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepo()
	eng := NewEngine(repo, memory.NewCache(), zerolog.Nop())

	offer := newOrder("seller1", domain.Sell, 5, "10.0", 1)
	_, _, err := eng.SubmitOrder(ctx, offer)
	require.NoError(t, err)
	_, _, err = eng.SubmitOrder(ctx, newOrder("buyer1", domain.Buy, 2, "10.0", 2))
	require.NoError(t, err)

	restarted := NewEngine(repo, memory.NewCache(), zerolog.Nop())
	require.NoError(t, restarted.WarmStart(ctx, []string{testSymbol}))

	orders, err := restarted.AllOrders(ctx, testSymbol)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, offer.ID, orders[0].ID)
	assert.Equal(t, int64(3), orders[0].Quantity, "the journal carries the post-fill quantity")
}

func TestWarmStartSkipsAbortedRemainder(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepo()
	eng := NewEngine(repo, memory.NewCache(), zerolog.Nop())

	_, _, err := eng.SubmitOrder(ctx, newOrder("trader2", domain.Sell, 1, "10.0", 1))
	require.NoError(t, err)
	own := newOrder("trader1", domain.Sell, 1, "11.0", 2)
	_, _, err = eng.SubmitOrder(ctx, own)
	require.NoError(t, err)

	_, _, err = eng.SubmitOrder(ctx, newOrder("trader1", domain.Buy, 5, "12.0", 3))
	require.ErrorIs(t, err, ErrSelfTrade)

	restarted := NewEngine(repo, memory.NewCache(), zerolog.Nop())
	require.NoError(t, restarted.WarmStart(ctx, []string{testSymbol}))

	// the discarded remainder never rested, so it must not be restored;
	// only the untouched resting offer comes back
	orders, err := restarted.AllOrders(ctx, testSymbol)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, own.ID, orders[0].ID)
}

func TestSymbolsAreIndependent(t *testing.T) {
	eng, _, _ := newTestEngine()
	ctx := context.Background()

	abc := newOrder("seller1", domain.Sell, 1, "10.0", 1)
	_, _, err := eng.SubmitOrder(ctx, abc)
	require.NoError(t, err)

	xyz := newOrder("buyer1", domain.Buy, 1, "10.0", 2)
	xyz.Symbol = "XYZ"
	_, trades, err := eng.SubmitOrder(ctx, xyz)
	require.NoError(t, err)
	assert.Empty(t, trades, "a bid in one symbol never crosses an offer in another")

	orders, err := eng.AllOrders(ctx, "XYZ")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestConcurrentSubmissionsBalanceOut(t *testing.T) {
	eng, _, _ := newTestEngine()
	ctx := context.Background()

	const pairs = 50
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			o := newOrder("buyer", domain.Buy, 1, "10.0", int64(i+1))
			o.Owner = o.Owner + string(rune('a'+i%26))
			_, _, err := eng.SubmitOrder(ctx, o)
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			o := newOrder("seller", domain.Sell, 1, "10.0", int64(i+1))
			o.Owner = o.Owner + string(rune('a'+i%26))
			_, _, err := eng.SubmitOrder(ctx, o)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// equal unit interest on both sides at one price fully crosses
	orders, err := eng.AllOrders(ctx, testSymbol)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
