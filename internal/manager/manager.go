// Package manager owns one Book per symbol, assigns the global monotonic
// trade-ID sequence, and diffs top-of-book before/after each mutating call
// to emit ordered MarketDataEvents.
package manager

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lobengine/internal/book"
	"lobengine/internal/types"
)

// Sink receives MarketDataEvents emitted by the Manager, in order, within
// the single submission that produced them. The Broadcaster implements
// this interface.
type Sink interface {
	Publish(types.MarketDataEvent)
}

// Manager routes submissions to the right per-symbol Book and produces the
// authoritative global trade sequence and top-of-book change stream.
type Manager struct {
	mu    sync.RWMutex
	books map[string]*book.Book

	nextTradeID atomic.Int64
	sink        Sink

	topMu sync.Mutex
	prevTop map[string]topOfBook
}

type topOfBook struct {
	hasBid, hasAsk bool
	bestBid, bestAsk types.Ticks
}

// New creates a Manager publishing MarketDataEvents to sink.
func New(sink Sink) *Manager {
	return &Manager{
		books:   make(map[string]*book.Book),
		sink:    sink,
		prevTop: make(map[string]topOfBook),
	}
}

// bookFor returns (creating if necessary) the Book for symbol.
func (m *Manager) bookFor(symbol string) *book.Book {
	m.mu.RLock()
	b, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.books[symbol]; ok {
		return b
	}
	b = book.New(symbol)
	m.books[symbol] = b
	return b
}

// Book returns the Book for symbol for read-only depth/snapshot queries,
// or nil if no Submit or Cancel has named the symbol yet.
func (m *Manager) Book(symbol string) *book.Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[symbol]
}

// Symbols returns every symbol that has a Book, for commands like SNAP
// with no symbol filter.
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.books))
	for symbol := range m.books {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Submit routes order to its symbol's Book, assigns global trade IDs to any
// resulting fills, and emits TradeEvents followed by an optional
// TopChangedEvent, all before returning (spec.md §4.2 ordering contract).
func (m *Manager) Submit(order *types.Order) []types.Trade {
	b := m.bookFor(order.Symbol)

	before := snapshotOf(b)
	drafts := b.Submit(order)
	trades := m.completeAndEmit(order.Symbol, drafts)
	m.diffAndEmitTop(b, order.Symbol, before, snapshotOf(b))
	return trades
}

// Cancel cancels orderId on symbol's Book, emitting a TopChangedEvent if
// the top of book moved.
func (m *Manager) Cancel(symbol string, orderID int64) book.Outcome {
	b := m.bookFor(symbol)

	before := snapshotOf(b)
	outcome := b.Cancel(orderID)
	m.diffAndEmitTop(b, symbol, before, snapshotOf(b))
	return outcome
}

func (m *Manager) completeAndEmit(symbol string, drafts []types.TradeDraft) []types.Trade {
	trades := make([]types.Trade, len(drafts))
	for i, d := range drafts {
		trades[i] = types.Trade{
			TradeID:     m.nextTradeID.Add(1),
			Symbol:      symbol,
			BuyOrderID:  d.BuyOrderID,
			SellOrderID: d.SellOrderID,
			Price:       d.Price,
			Quantity:    d.Quantity,
			Timestamp:   d.Timestamp,
		}
		if m.sink != nil {
			m.sink.Publish(types.TradeEvent{Trade: trades[i]})
		}
	}
	return trades
}

func snapshotOf(b *book.Book) topOfBook {
	var top topOfBook
	top.bestBid, top.hasBid = b.BestBid()
	top.bestAsk, top.hasAsk = b.BestAsk()
	return top
}

func (m *Manager) diffAndEmitTop(b *book.Book, symbol string, before, after topOfBook) {
	m.topMu.Lock()
	defer m.topMu.Unlock()

	if after == before {
		return
	}
	m.prevTop[symbol] = after

	if m.sink == nil {
		return
	}
	event := types.TopChangedEvent{Symbol: symbol, Timestamp: time.Now().UnixNano()}
	if after.hasBid {
		v := after.bestBid
		event.BestBid = &v
	}
	if after.hasAsk {
		v := after.bestAsk
		event.BestAsk = &v
	}
	event.Bids = toPriceLevels(b.Depth(types.Buy, topDepthLevels))
	event.Asks = toPriceLevels(b.Depth(types.Sell, topDepthLevels))
	m.sink.Publish(event)
}

// topDepthLevels bounds the depth snapshot carried on each TopChangedEvent.
const topDepthLevels = 10

func toPriceLevels(levels []book.DepthLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = types.PriceLevel{Price: l.Price, Quantity: l.Quantity}
	}
	return out
}
