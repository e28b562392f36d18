package book

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lobengine/internal/types"
)

func limitOrder(id int64, symbol string, side types.Side, price types.Ticks, qty uint32) *types.Order {
	return &types.Order{OrderID: id, Symbol: symbol, Side: side, Kind: types.Limit, Price: price, Quantity: qty, Timestamp: id}
}

func TestSimpleCrossAtRestingAsk(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Sell, 101, 5))
	trades := b.Submit(limitOrder(2, "X", types.Buy, 101, 5))

	assert.Len(t, trades, 1)
	assert.Equal(t, types.TradeDraft{BuyOrderID: 2, SellOrderID: 1, Price: 101, Quantity: 5, Timestamp: 2}, trades[0])

	_, hasBid := b.BestBid()
	_, hasAsk := b.BestAsk()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

func TestPriceImprovementForAggressor(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Sell, 100, 10))
	trades := b.Submit(limitOrder(2, "X", types.Buy, 105, 10))

	assert.Len(t, trades, 1)
	assert.Equal(t, types.Ticks(100), trades[0].Price)
	assert.Equal(t, uint32(10), trades[0].Quantity)
}

func TestPartialFillAndRest(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Sell, 100, 10))
	trades := b.Submit(limitOrder(2, "X", types.Buy, 100, 4))

	assert.Len(t, trades, 1)
	assert.Equal(t, uint32(4), trades[0].Quantity)

	ask, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, types.Ticks(100), ask)
	_, hasBid := b.BestBid()
	assert.False(t, hasBid)

	depth := b.Depth(types.Sell, 10)
	assert.Equal(t, []DepthLevel{{Price: 100, Quantity: 6}}, depth)
}

func TestFIFOPriorityAtSamePrice(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Sell, 100, 5))
	b.Submit(limitOrder(2, "X", types.Sell, 100, 5))
	trades := b.Submit(limitOrder(3, "X", types.Buy, 100, 7))

	assert.Len(t, trades, 2)
	assert.Equal(t, int64(1), trades[0].SellOrderID)
	assert.Equal(t, uint32(5), trades[0].Quantity)
	assert.Equal(t, int64(2), trades[1].SellOrderID)
	assert.Equal(t, uint32(2), trades[1].Quantity)

	depth := b.Depth(types.Sell, 10)
	assert.Equal(t, []DepthLevel{{Price: 100, Quantity: 3}}, depth)
}

func TestMarketSellExhaustsAndDoesNotRest(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Buy, 99, 3))

	market := &types.Order{OrderID: 2, Symbol: "X", Side: types.Sell, Kind: types.Market, Price: 0, Quantity: 10, Timestamp: 2}
	trades := b.Submit(market)

	assert.Len(t, trades, 1)
	assert.Equal(t, uint32(3), trades[0].Quantity)
	assert.Equal(t, types.Ticks(99), trades[0].Price)
	assert.Equal(t, uint32(7), market.Quantity) // unfilled remainder, never rested

	_, hasBid := b.BestBid()
	_, hasAsk := b.BestAsk()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

func TestCancelRemovesRestingLiquidityAndIndexEntry(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Buy, 50, 10))

	assert.Equal(t, Cancelled, b.Cancel(1))
	_, hasBid := b.BestBid()
	assert.False(t, hasBid)

	assert.Equal(t, NotFound, b.Cancel(1))
}

func TestMultiLevelMatch(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Sell, 100, 5))
	b.Submit(limitOrder(2, "X", types.Sell, 101, 5))

	trades := b.Submit(limitOrder(3, "X", types.Buy, 101, 8))
	assert.Len(t, trades, 2)
	assert.Equal(t, uint32(5), trades[0].Quantity)
	assert.Equal(t, types.Ticks(100), trades[0].Price)
	assert.Equal(t, uint32(3), trades[1].Quantity)
	assert.Equal(t, types.Ticks(101), trades[1].Price)

	ask, _ := b.BestAsk()
	assert.Equal(t, types.Ticks(101), ask)
	depth := b.Depth(types.Sell, 10)
	assert.Equal(t, []DepthLevel{{Price: 101, Quantity: 2}}, depth)
}

func TestBookNeverCrosses(t *testing.T) {
	b := New("X")
	b.Submit(limitOrder(1, "X", types.Buy, 99, 5))
	b.Submit(limitOrder(2, "X", types.Sell, 101, 5))

	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	assert.True(t, hasBid)
	assert.True(t, hasAsk)
	assert.Less(t, int64(bid), int64(ask))
}
