package wsfeed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobengine/internal/types"
)

func TestEncodeTradeEvent(t *testing.T) {
	symbol, payload, err := encode(types.TradeEvent{Trade: types.Trade{
		TradeID:     7,
		Symbol:      "BTC-USD",
		BuyOrderID:  1,
		SellOrderID: 2,
		Price:       types.Ticks(100_00000000),
		Quantity:    3,
		Timestamp:   42,
	}})
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", symbol)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "trade", decoded["type"])
	assert.Equal(t, "BTC-USD", decoded["symbol"])
	assert.Equal(t, float64(7), decoded["tradeId"])
	assert.Equal(t, "100", decoded["price"])
}

func TestEncodeTopChangedEventWithNilSides(t *testing.T) {
	symbol, payload, err := encode(types.TopChangedEvent{Symbol: "ETH-USD", Timestamp: 99})
	require.NoError(t, err)
	assert.Equal(t, "ETH-USD", symbol)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "top", decoded["type"])
	assert.Nil(t, decoded["bestBid"])
	assert.Nil(t, decoded["bestAsk"])
}

func TestEncodeTopChangedEventWithDepth(t *testing.T) {
	bid := types.Ticks(50_00000000)
	ask := types.Ticks(51_00000000)
	_, payload, err := encode(types.TopChangedEvent{
		Symbol:  "ETH-USD",
		BestBid: &bid,
		BestAsk: &ask,
		Bids:    []types.PriceLevel{{Price: bid, Quantity: 10}},
		Asks:    []types.PriceLevel{{Price: ask, Quantity: 5}},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "50", decoded["bestBid"])
	assert.Equal(t, "51", decoded["bestAsk"])
	bids := decoded["bids"].([]any)
	require.Len(t, bids, 1)
	assert.Equal(t, float64(10), bids[0].(map[string]any)["qty"])
}

func TestEncodeUnknownEventType(t *testing.T) {
	_, _, err := encode(nil)
	assert.Error(t, err)
}
