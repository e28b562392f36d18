package position

import "lobengine/internal/types"

// Sink adapts a Ledger into a broadcast.Sink: position updates are driven
// from the published trade stream rather than the matching critical path,
// so they may lag trade emission by design (spec.md §4.3/§5).
type Sink struct {
	ledger *Ledger
}

// NewSink wraps ledger as a broadcast.Sink.
func NewSink(ledger *Ledger) *Sink {
	return &Sink{ledger: ledger}
}

func (s *Sink) Name() string { return "position-ledger" }

func (s *Sink) Send(event types.MarketDataEvent) error {
	trade, ok := event.(types.TradeEvent)
	if !ok {
		return nil
	}
	price := trade.Trade.Price.Decimal()
	s.ledger.RecordTrade(trade.Trade.BuyOrderID, trade.Trade.Symbol, true, trade.Trade.Quantity, price)
	s.ledger.RecordTrade(trade.Trade.SellOrderID, trade.Trade.Symbol, false, trade.Trade.Quantity, price)
	return nil
}
