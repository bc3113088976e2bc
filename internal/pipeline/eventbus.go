package pipeline

import (
	"sync"

	"github.com/radixdlt/ledger-core/internal/model"
)

// eventBus is the hot, replayable multicast channel spec.md §9 calls
// for: every subscriber — including one that joins after earlier
// events were published — receives the full event log before any new
// publication, grounded on the same subscriptions-map fan-out shape
// the teacher's WebSocketRPCClient uses for its notification streams,
// specialized here to a single growing replay log instead of a
// per-subscription-ID map.
type eventBus struct {
	mu     sync.Mutex
	log    []model.TrackingEvent
	subs   map[int]chan model.TrackingEvent
	nextID int
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]chan model.TrackingEvent)}
}

// publish appends e to the replay log and fans it out to every current
// subscriber. Publishing after close is a no-op: the state machine
// never publishes once it has torn itself down.
func (b *eventBus) publish(e model.TrackingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.log = append(b.log, e)
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber; tracking events are few and the channel is
			// sized to the whole event vocabulary, so this should not
			// happen in practice. Dropping here over blocking the state
			// machine is the deliberate tradeoff.
		}
	}
}

// subscribe returns a channel that immediately replays every event
// published so far, then receives every future one, plus an
// unsubscribe func that deterministically tears down this one
// subscription (never the whole bus).
func (b *eventBus) subscribe() (<-chan model.TrackingEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.TrackingEvent, len(b.log)+16)
	for _, e := range b.log {
		ch <- e
	}
	if !b.closed {
		b.subs[id] = ch
	} else {
		close(ch)
	}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// close tears down every live subscription, closing their channels.
// Further publish calls are ignored.
func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
