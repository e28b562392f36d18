// Package pipeline is the single logical serialisation point for mutating
// the matching engine: every Submit/Cancel call is funnelled through one
// worker goroutine owned by a tomb.Tomb, so "exactly one writer" (spec.md
// §5) is structural rather than a locking convention every caller must
// remember to honour.
package pipeline

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lobengine/internal/book"
	"lobengine/internal/manager"
	"lobengine/internal/position"
	"lobengine/internal/types"
)

// ReplayStore is the persistence collaborator behind the replay operation.
// Replay is I/O-bound and runs outside the matching critical section.
type ReplayStore interface {
	Replay(symbol string, fromTs, toTs int64) ([]types.HistoricalTrade, error)
}

const taskQueueDepth = 4096

// Pipeline validates, assigns order IDs, and serialises every mutating call
// into the Manager through a single worker goroutine.
type Pipeline struct {
	t     tomb.Tomb
	tasks chan func()

	mgr    *manager.Manager
	ledger *position.Ledger
	store  ReplayStore

	nextOrderID atomic.Int64
	now         func() int64
}

// New creates a Pipeline and starts its worker. store may be nil if replay
// is not wired up.
func New(mgr *manager.Manager, ledger *position.Ledger, store ReplayStore) *Pipeline {
	p := &Pipeline{
		tasks:  make(chan func(), taskQueueDepth),
		mgr:    mgr,
		ledger: ledger,
		store:  store,
		now:    func() int64 { return time.Now().UnixNano() },
	}
	p.t.Go(p.run)
	return p
}

// Stop signals the worker to exit and waits for it to drain.
func (p *Pipeline) Stop() error {
	p.t.Kill(nil)
	return p.t.Wait()
}

func (p *Pipeline) run() error {
	for {
		select {
		case <-p.t.Dying():
			return nil
		case task := <-p.tasks:
			task()
		}
	}
}

// submitSync runs fn on the worker goroutine and blocks for its result.
func submitSync[T any](p *Pipeline, fn func() T) T {
	result := make(chan T, 1)
	select {
	case p.tasks <- func() { result <- fn() }:
	case <-p.t.Dying():
		var zero T
		return zero
	}
	return <-result
}

// Submit validates order, assigns a server-side order ID and timestamp if
// missing, and routes it through the Manager. PositionLedger updates and
// broadcast happen off this call via the Manager's sink (spec.md §4.3).
func (p *Pipeline) Submit(order *types.Order) ([]types.Trade, error) {
	if order.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", types.ErrValidation)
	}
	if order.Quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", types.ErrValidation)
	}
	if order.Kind == types.Limit && order.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive for limit orders", types.ErrValidation)
	}
	if order.Kind == types.Market {
		order.Price = 0
	}
	if order.Timestamp == 0 {
		order.Timestamp = p.now()
	}

	trades := submitSync(p, func() []types.Trade {
		if order.OrderID == 0 {
			order.OrderID = p.nextOrderID.Add(1)
		}
		if order.UserOwned {
			// Mark before matching so the PositionLedger sees this order as
			// owned before the trade event reaches its sink.
			p.ledger.MarkUserOrder(order.OrderID)
		}
		return p.mgr.Submit(order)
	})
	return trades, nil
}

// Cancel requests cancellation of orderId on symbol. symbol is mandatory
// (spec.md §9: "cancel without symbol is a ValidationError").
func (p *Pipeline) Cancel(symbol string, orderID int64) (book.Outcome, error) {
	if symbol == "" {
		return book.NotFound, fmt.Errorf("%w: symbol is required", types.ErrValidation)
	}
	outcome := submitSync(p, func() book.Outcome {
		return p.mgr.Cancel(symbol, orderID)
	})
	return outcome, nil
}

// MarkUserOrder flags orderID so that subsequent fills update the
// PositionLedger. This does not need serialisation against the matching
// path.
func (p *Pipeline) MarkUserOrder(orderID int64) {
	p.ledger.MarkUserOrder(orderID)
}

// Replay delegates to the persistence collaborator; it does not mutate
// Books and therefore does not need to run on the worker goroutine.
func (p *Pipeline) Replay(symbol string, fromTs, toTs int64) ([]types.HistoricalTrade, error) {
	if p.store == nil {
		return nil, fmt.Errorf("%w: replay store not configured", types.ErrPersistence)
	}
	trades, err := p.store.Replay(symbol, fromTs, toTs)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("replay query failed")
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	return trades, nil
}
