package wsfeed

import (
	"encoding/json"
	"fmt"

	"lobengine/internal/types"
)

type levelJSON struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"qty"`
}

type tradeJSON struct {
	Type        string `json:"type"`
	Symbol      string `json:"symbol"`
	TradeID     int64  `json:"tradeId"`
	Price       string `json:"price"`
	Quantity    uint32 `json:"quantity"`
	BuyOrderID  int64  `json:"buyOrderId"`
	SellOrderID int64  `json:"sellOrderId"`
	Timestamp   int64  `json:"timestamp"`
}

type topJSON struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	BestBid   *string     `json:"bestBid"`
	BestAsk   *string     `json:"bestAsk"`
	Bids      []levelJSON `json:"bids"`
	Asks      []levelJSON `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// encode renders event to the egress wire form from spec.md §6, returning
// the event's symbol alongside the marshalled bytes so Hub.Send can match
// it against per-client subscriptions without re-parsing the payload.
func encode(event types.MarketDataEvent) (symbol string, payload []byte, err error) {
	switch e := event.(type) {
	case types.TradeEvent:
		data, err := json.Marshal(tradeJSON{
			Type:        "trade",
			Symbol:      e.Trade.Symbol,
			TradeID:     e.Trade.TradeID,
			Price:       e.Trade.Price.Decimal().String(),
			Quantity:    e.Trade.Quantity,
			BuyOrderID:  e.Trade.BuyOrderID,
			SellOrderID: e.Trade.SellOrderID,
			Timestamp:   e.Trade.Timestamp,
		})
		return e.Trade.Symbol, data, err

	case types.TopChangedEvent:
		out := topJSON{
			Type:      "top",
			Symbol:    e.Symbol,
			Bids:      toLevelJSON(e.Bids),
			Asks:      toLevelJSON(e.Asks),
			Timestamp: e.Timestamp,
		}
		if e.BestBid != nil {
			s := e.BestBid.Decimal().String()
			out.BestBid = &s
		}
		if e.BestAsk != nil {
			s := e.BestAsk.Decimal().String()
			out.BestAsk = &s
		}
		data, err := json.Marshal(out)
		return e.Symbol, data, err

	default:
		return "", nil, fmt.Errorf("wsfeed: unknown event type %T", event)
	}
}

func toLevelJSON(levels []types.PriceLevel) []levelJSON {
	out := make([]levelJSON, len(levels))
	for i, l := range levels {
		out[i] = levelJSON{Price: l.Price.Decimal().String(), Quantity: l.Quantity}
	}
	return out
}
