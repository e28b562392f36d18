// Package position tracks realised P&L and net position per symbol for
// orders explicitly marked as belonging to the user's own portfolio.
// The update rules are ported branch-for-branch from
// original_source/api/src/Positions.cpp.
package position

import (
	"sync"

	"github.com/shopspring/decimal"

	"lobengine/internal/types"
)

// Ledger is a thread-safe per-symbol position book.
type Ledger struct {
	mu      sync.Mutex
	marked  map[int64]struct{}
	symbols map[string]*types.Position
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		marked:  make(map[int64]struct{}),
		symbols: make(map[string]*types.Position),
	}
}

// MarkUserOrder flags orderID as belonging to the user portfolio; only
// trades referencing a marked order ID update the ledger.
func (l *Ledger) MarkUserOrder(orderID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marked[orderID] = struct{}{}
}

// RecordTrade applies a fill to the ledger if orderID is marked; otherwise
// it is a no-op. Callers invoke this once per (trade, side) pair where
// orderID participated.
func (l *Ledger) RecordTrade(orderID int64, symbol string, isBuy bool, quantity uint32, price decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.marked[orderID]; !ok {
		return
	}

	pos, ok := l.symbols[symbol]
	if !ok {
		pos = &types.Position{Symbol: symbol}
		l.symbols[symbol] = pos
	}

	if isBuy {
		applyBuy(pos, quantity, price)
	} else {
		applySell(pos, quantity, price)
	}
}

// applyBuy mirrors update_position_on_buy: weighted-average into a long
// (or flat) position, or cover a short and flip any residual into a new
// long.
func applyBuy(pos *types.Position, qty uint32, price decimal.Decimal) {
	q := decimal.NewFromInt(int64(qty))

	if pos.Quantity >= 0 {
		totalValue := pos.AvgPrice.Mul(decimal.NewFromInt(pos.Quantity)).Add(price.Mul(q))
		pos.Quantity += int64(qty)
		if pos.Quantity != 0 {
			pos.AvgPrice = totalValue.Div(decimal.NewFromInt(pos.Quantity))
		} else {
			pos.AvgPrice = decimal.Zero
		}
		return
	}

	cover := int64(qty)
	if short := -pos.Quantity; cover > short {
		cover = short
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(pos.AvgPrice.Sub(price).Mul(decimal.NewFromInt(cover)))
	pos.Quantity += cover

	if remaining := int64(qty) - cover; remaining > 0 {
		pos.AvgPrice = price
		pos.Quantity += remaining
	}
	if pos.Quantity == 0 {
		pos.AvgPrice = decimal.Zero
	}
}

// applySell mirrors update_position_on_sell, symmetrically: weighted-
// average into a short (or flat) position, or close a long and flip any
// residual into a new short.
func applySell(pos *types.Position, qty uint32, price decimal.Decimal) {
	q := decimal.NewFromInt(int64(qty))

	if pos.Quantity <= 0 {
		totalValue := pos.AvgPrice.Mul(decimal.NewFromInt(-pos.Quantity)).Add(price.Mul(q))
		pos.Quantity -= int64(qty)
		if pos.Quantity != 0 {
			pos.AvgPrice = totalValue.Div(decimal.NewFromInt(-pos.Quantity))
		} else {
			pos.AvgPrice = decimal.Zero
		}
		return
	}

	closeQty := int64(qty)
	if pos.Quantity < closeQty {
		closeQty = pos.Quantity
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(price.Sub(pos.AvgPrice).Mul(decimal.NewFromInt(closeQty)))
	pos.Quantity -= closeQty

	if remaining := int64(qty) - closeQty; remaining > 0 {
		pos.AvgPrice = price
		pos.Quantity -= remaining
	}
	if pos.Quantity == 0 {
		pos.AvgPrice = decimal.Zero
	}
}

// Snapshot returns a copy of every tracked symbol's current Position.
func (l *Ledger) Snapshot() map[string]types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]types.Position, len(l.symbols))
	for sym, pos := range l.symbols {
		out[sym] = *pos
	}
	return out
}
