package types

// MarketDataEvent is the sealed set of events the Manager emits and the
// Broadcaster fans out: TradeEvent and TopChangedEvent (spec.md §4.2/§4.4).
type MarketDataEvent interface {
	isMarketDataEvent()
}

// TradeEvent wraps a fully-identified Trade for market-data consumers.
type TradeEvent struct {
	Trade Trade
}

func (TradeEvent) isMarketDataEvent() {}

// PriceLevel is one aggregated depth level for egress/snapshot purposes.
type PriceLevel struct {
	Price    Ticks
	Quantity uint64
}

// TopChangedEvent reports a change in a symbol's top-of-book, carrying a
// shallow depth snapshot for the egress "top" event (spec.md §6).
type TopChangedEvent struct {
	Symbol    string
	BestBid   *Ticks // nil when no bid rests
	BestAsk   *Ticks // nil when no ask rests
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp int64
}

func (TopChangedEvent) isMarketDataEvent() {}
