// Package book implements the per-symbol price-time-priority matching
// engine: two price-indexed FIFO queues (bids/asks), matching and resting
// logic, and the order-ID index used for O(log L) cancellation.
package book

import (
	"math"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"lobengine/internal/types"
)

// level is a price level's resident FIFO. Orders are appended on arrival
// and removed from the front on fill, preserving strict arrival order.
type level []*types.Order

// indexEntry is the order-ID index's weak back-reference: a lookup
// accelerator, not an owner. The resting Order itself is owned by its
// price level's FIFO (spec.md §9).
type indexEntry struct {
	side  types.Side
	price types.Ticks
}

// Book holds one symbol's resting liquidity.
type Book struct {
	Symbol string

	mu   sync.RWMutex
	bids *redblacktree.Tree // Ticks -> level, descending (best bid first)
	asks *redblacktree.Tree // Ticks -> level, ascending (best ask first)

	index map[int64]indexEntry
}

// New creates an empty Book for symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids: redblacktree.NewWith(func(a, b interface{}) int {
			return utils.Int64Comparator(int64(b.(types.Ticks)), int64(a.(types.Ticks)))
		}),
		asks: redblacktree.NewWith(func(a, b interface{}) int {
			return utils.Int64Comparator(int64(a.(types.Ticks)), int64(b.(types.Ticks)))
		}),
		index: make(map[int64]indexEntry),
	}
}

// Outcome is the result of a Cancel call.
type Outcome int

const (
	Cancelled Outcome = iota
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Cancelled:
		return "CANCELLED"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// marketSentinel returns the price to match a Market order against:
// +infinity for a buy (can cross any ask), 0 for a sell (can cross any
// bid). This sentinel is a matching-loop convenience only — it is never
// returned in a Trade or exposed to callers (spec.md §9).
func marketSentinel(side types.Side) types.Ticks {
	if side == types.Buy {
		return types.Ticks(math.MaxInt64)
	}
	return 0
}

// Submit matches the incoming order against resting liquidity and, for a
// Limit order with residual quantity, rests it. Returns one TradeDraft per
// fill, in matching order. The incoming order's Quantity mutates in place
// to reflect the residual after matching; its Price is left unchanged.
func (b *Book) Submit(order *types.Order) []types.TradeDraft {
	b.mu.Lock()
	defer b.mu.Unlock()

	matchPrice := order.Price
	if order.Kind == types.Market {
		matchPrice = marketSentinel(order.Side)
	}

	var trades []types.TradeDraft
	if order.Side == types.Buy {
		trades = b.matchBuy(order, matchPrice)
	} else {
		trades = b.matchSell(order, matchPrice)
	}

	if order.Quantity > 0 && order.Kind == types.Limit {
		b.rest(order)
	}
	return trades
}

func (b *Book) matchBuy(order *types.Order, limitPrice types.Ticks) []types.TradeDraft {
	var trades []types.TradeDraft
	for order.Quantity > 0 && !b.asks.Empty() {
		node := b.asks.Left()
		askPrice := node.Key.(types.Ticks)
		if limitPrice < askPrice {
			break
		}
		lvl := node.Value.(level)
		resting := lvl[0]

		fill := minUint32(order.Quantity, resting.Quantity)
		trades = append(trades, types.TradeDraft{
			BuyOrderID:  order.OrderID,
			SellOrderID: resting.OrderID,
			Price:       askPrice,
			Quantity:    fill,
			Timestamp:   order.Timestamp,
		})

		order.Quantity -= fill
		resting.Quantity -= fill

		if resting.Quantity == 0 {
			lvl = lvl[1:]
			delete(b.index, resting.OrderID)
		}
		if len(lvl) == 0 {
			b.asks.Remove(askPrice)
		} else {
			b.asks.Put(askPrice, lvl)
		}
	}
	return trades
}

func (b *Book) matchSell(order *types.Order, limitPrice types.Ticks) []types.TradeDraft {
	var trades []types.TradeDraft
	for order.Quantity > 0 && !b.bids.Empty() {
		node := b.bids.Left()
		bidPrice := node.Key.(types.Ticks)
		if limitPrice > bidPrice {
			break
		}
		lvl := node.Value.(level)
		resting := lvl[0]

		fill := minUint32(order.Quantity, resting.Quantity)
		trades = append(trades, types.TradeDraft{
			BuyOrderID:  resting.OrderID,
			SellOrderID: order.OrderID,
			Price:       bidPrice,
			Quantity:    fill,
			Timestamp:   order.Timestamp,
		})

		order.Quantity -= fill
		resting.Quantity -= fill

		if resting.Quantity == 0 {
			lvl = lvl[1:]
			delete(b.index, resting.OrderID)
		}
		if len(lvl) == 0 {
			b.bids.Remove(bidPrice)
		} else {
			b.bids.Put(bidPrice, lvl)
		}
	}
	return trades
}

// rest inserts the residual of a Limit order as new resting liquidity.
// Caller must hold b.mu.
func (b *Book) rest(order *types.Order) {
	resting := &types.Order{
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Kind:      order.Kind,
		Price:     order.Price,
		Quantity:  order.Quantity,
		Timestamp: order.Timestamp,
	}

	tree := b.asks
	if order.Side == types.Buy {
		tree = b.bids
	}

	existing, found := tree.Get(order.Price)
	if !found {
		tree.Put(order.Price, level{resting})
	} else {
		tree.Put(order.Price, append(existing.(level), resting))
	}
	b.index[order.OrderID] = indexEntry{side: order.Side, price: order.Price}
}

// Cancel removes a resting order by ID. A stale index entry (pointing at a
// price level the order is no longer in) is evicted and treated as
// NotFound, tolerating the race described in spec.md §9.
func (b *Book) Cancel(orderID int64) Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[orderID]
	if !ok {
		return NotFound
	}

	tree := b.asks
	if entry.side == types.Buy {
		tree = b.bids
	}

	raw, found := tree.Get(entry.price)
	if !found {
		delete(b.index, orderID)
		return NotFound
	}
	lvl := raw.(level)

	idx := -1
	for i, o := range lvl {
		if o.OrderID == orderID {
			idx = i
			break
		}
	}
	if idx == -1 {
		delete(b.index, orderID)
		return NotFound
	}

	lvl = append(lvl[:idx], lvl[idx+1:]...)
	if len(lvl) == 0 {
		tree.Remove(entry.price)
	} else {
		tree.Put(entry.price, lvl)
	}
	delete(b.index, orderID)
	return Cancelled
}

// BestBid returns the highest bid price with resting quantity, if any.
func (b *Book) BestBid() (types.Ticks, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bids.Empty() {
		return 0, false
	}
	return b.bids.Left().Key.(types.Ticks), true
}

// BestAsk returns the lowest ask price with resting quantity, if any.
func (b *Book) BestAsk() (types.Ticks, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.asks.Empty() {
		return 0, false
	}
	return b.asks.Left().Key.(types.Ticks), true
}

// DepthLevel is one aggregated price level.
type DepthLevel struct {
	Price    types.Ticks
	Quantity uint64
}

// Depth returns the first maxLevels price levels on side, in the side's
// native order (descending for bids, ascending for asks), each aggregated
// to a total resting quantity.
func (b *Book) Depth(side types.Side, maxLevels int) []DepthLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tree := b.asks
	if side == types.Buy {
		tree = b.bids
	}

	out := make([]DepthLevel, 0, maxLevels)
	it := tree.Iterator()
	it.Begin()
	for it.Next() && (maxLevels <= 0 || len(out) < maxLevels) {
		lvl := it.Value().(level)
		var total uint64
		for _, o := range lvl {
			total += uint64(o.Quantity)
		}
		out = append(out, DepthLevel{Price: it.Key().(types.Ticks), Quantity: total})
	}
	return out
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
