package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUnmarkedOrderIsNoOp(t *testing.T) {
	l := New()
	l.RecordTrade(1, "X", true, 10, dec("100"))
	assert.Empty(t, l.Snapshot())
}

func TestWeightedAverageFromFlat(t *testing.T) {
	l := New()
	l.MarkUserOrder(1)
	l.RecordTrade(1, "X", true, 10, dec("100"))
	l.RecordTrade(1, "X", true, 10, dec("110"))

	pos := l.Snapshot()["X"]
	assert.Equal(t, int64(20), pos.Quantity)
	assert.True(t, dec("105").Equal(pos.AvgPrice))
	assert.True(t, decimal.Zero.Equal(pos.RealizedPnL))
}

func TestBuyThenSellRealisesPnL(t *testing.T) {
	l := New()
	l.MarkUserOrder(1)
	l.RecordTrade(1, "X", true, 10, dec("100"))
	l.RecordTrade(1, "X", false, 10, dec("110"))

	pos := l.Snapshot()["X"]
	assert.Equal(t, int64(0), pos.Quantity)
	assert.True(t, decimal.Zero.Equal(pos.AvgPrice))
	assert.True(t, dec("100").Equal(pos.RealizedPnL))
}

func TestShortThenCoverRealisesPnL(t *testing.T) {
	l := New()
	l.MarkUserOrder(1)
	l.RecordTrade(1, "X", false, 10, dec("100"))
	l.RecordTrade(1, "X", true, 10, dec("90"))

	pos := l.Snapshot()["X"]
	assert.Equal(t, int64(0), pos.Quantity)
	assert.True(t, decimal.Zero.Equal(pos.AvgPrice))
	assert.True(t, dec("100").Equal(pos.RealizedPnL))
}

func TestSideFlipOnExcessSell(t *testing.T) {
	l := New()
	l.MarkUserOrder(1)
	l.RecordTrade(1, "X", true, 10, dec("100"))
	l.RecordTrade(1, "X", false, 15, dec("110"))

	pos := l.Snapshot()["X"]
	assert.Equal(t, int64(-5), pos.Quantity)
	assert.True(t, dec("110").Equal(pos.AvgPrice))
	assert.True(t, dec("100").Equal(pos.RealizedPnL))
}
