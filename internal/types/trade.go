package types

import "fmt"

// TradeDraft is what the Book produces internally: a trade with no
// globally-meaningful ID yet. Only the Manager, which owns the global
// monotonic counter, may complete a TradeDraft into a Trade (spec.md §9,
// "Global counters vs. per-Book counters").
type TradeDraft struct {
	BuyOrderID  int64
	SellOrderID int64
	Price       Ticks // the resting order's price — price improvement for the aggressor
	Quantity    uint32
	Timestamp   int64 // the aggressor's timestamp
}

// Trade is an immutable, fully-identified fill.
type Trade struct {
	TradeID     int64
	Symbol      string
	BuyOrderID  int64
	SellOrderID int64
	Price       Ticks
	Quantity    uint32
	Timestamp   int64
}

func (t *Trade) String() string {
	return fmt.Sprintf("Trade[id=%d sym=%s buy=%d sell=%d price=%s qty=%d ts=%d]",
		t.TradeID, t.Symbol, t.BuyOrderID, t.SellOrderID, t.Price.Decimal(), t.Quantity, t.Timestamp)
}
