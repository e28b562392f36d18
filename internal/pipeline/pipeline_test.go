package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lobengine/internal/broadcast"
	"lobengine/internal/manager"
	"lobengine/internal/position"
	"lobengine/internal/types"
)

type fakeStore struct {
	trades []types.HistoricalTrade
	err    error
}

func (f *fakeStore) Replay(symbol string, fromTs, toTs int64) ([]types.HistoricalTrade, error) {
	return f.trades, f.err
}

func newTestPipeline() (*Pipeline, *position.Ledger) {
	bc := broadcast.New()
	ledger := position.New()
	bc.Register(position.NewSink(ledger))
	mgr := manager.New(bc)
	return New(mgr, ledger, &fakeStore{}), ledger
}

func TestSubmitRejectsInvalidOrders(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Stop()

	_, err := p.Submit(&types.Order{Symbol: "", Kind: types.Limit, Price: 1, Quantity: 1})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = p.Submit(&types.Order{Symbol: "X", Kind: types.Limit, Price: 1, Quantity: 0})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = p.Submit(&types.Order{Symbol: "X", Kind: types.Limit, Price: 0, Quantity: 1})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSubmitAssignsOrderIDWhenMissing(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Stop()

	order := &types.Order{Symbol: "X", Side: types.Buy, Kind: types.Limit, Price: 100, Quantity: 5}
	_, err := p.Submit(order)
	assert.NoError(t, err)
	assert.NotZero(t, order.OrderID)
}

func TestCancelRequiresSymbol(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Stop()

	_, err := p.Cancel("", 1)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestMarkedOrderUpdatesLedgerAsynchronously(t *testing.T) {
	p, ledger := newTestPipeline()
	defer p.Stop()

	sell := &types.Order{OrderID: 1, Symbol: "X", Side: types.Sell, Kind: types.Limit, Price: 100, Quantity: 10}
	_, err := p.Submit(sell)
	assert.NoError(t, err)

	p.MarkUserOrder(2)
	buy := &types.Order{OrderID: 2, Symbol: "X", Side: types.Buy, Kind: types.Limit, Price: 100, Quantity: 10}
	_, err = p.Submit(buy)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		pos, ok := ledger.Snapshot()["X"]
		return ok && pos.Quantity == 10
	}, time.Second, time.Millisecond)
}

func TestReplayDelegatesToStore(t *testing.T) {
	bc := broadcast.New()
	ledger := position.New()
	mgr := manager.New(bc)
	store := &fakeStore{trades: []types.HistoricalTrade{{TradeID: 1, Symbol: "X"}}}
	p := New(mgr, ledger, store)
	defer p.Stop()

	trades, err := p.Replay("X", 0, 100)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)

	store.err = errors.New("disk error")
	_, err = p.Replay("X", 0, 100)
	assert.ErrorIs(t, err, types.ErrPersistence)
}
