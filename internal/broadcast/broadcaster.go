// Package broadcast fans out MarketDataEvents to a dynamic set of sinks
// (WebSocket clients, the persistence layer, ...) without letting a slow
// sink slow down matching.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"

	"lobengine/internal/types"
)

// Sink accepts market-data events. A Sink is expected to be non-blocking
// or self-buffered; the Broadcaster does not provide backpressure beyond
// the per-sink queue below. Send should return quickly and report a
// transient failure via a non-nil error so the sink can be evicted.
type Sink interface {
	Name() string
	Send(types.MarketDataEvent) error
}

const sinkQueueDepth = 1024

type registration struct {
	sink  Sink
	queue chan types.MarketDataEvent
	done  chan struct{}
}

// Broadcaster delivers events to each registered sink in global
// publication order; per-sink delivery never blocks the publisher.
type Broadcaster struct {
	mu   sync.RWMutex
	sink map[string]*registration
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{sink: make(map[string]*registration)}
}

// Register adds a sink to the fan-out set, starting its delivery goroutine.
func (b *Broadcaster) Register(s Sink) {
	reg := &registration{
		sink:  s,
		queue: make(chan types.MarketDataEvent, sinkQueueDepth),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.sink[s.Name()] = reg
	b.mu.Unlock()

	go b.drain(reg)
}

// Unregister stops delivering to and removes the named sink.
func (b *Broadcaster) Unregister(name string) {
	b.mu.Lock()
	reg, ok := b.sink[name]
	if ok {
		delete(b.sink, name)
	}
	b.mu.Unlock()

	if ok {
		close(reg.done)
	}
}

// Publish enqueues event for delivery to every registered sink. It never
// blocks on a slow sink: a sink whose queue is full is evicted immediately,
// matching the "transient failure is dropped" sink contract.
func (b *Broadcaster) Publish(event types.MarketDataEvent) {
	b.mu.RLock()
	regs := make([]*registration, 0, len(b.sink))
	for _, r := range b.sink {
		regs = append(regs, r)
	}
	b.mu.RUnlock()

	for _, r := range regs {
		select {
		case r.queue <- event:
		default:
			log.Warn().Str("sink", r.sink.Name()).Msg("sink queue full, evicting")
			b.Unregister(r.sink.Name())
		}
	}
}

func (b *Broadcaster) drain(reg *registration) {
	for {
		select {
		case <-reg.done:
			return
		case event := <-reg.queue:
			if err := reg.sink.Send(event); err != nil {
				log.Warn().Str("sink", reg.sink.Name()).Err(err).Msg("sink send failed, evicting")
				b.Unregister(reg.sink.Name())
				return
			}
		}
	}
}
