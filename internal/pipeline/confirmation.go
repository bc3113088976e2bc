package pipeline

import (
	"sync"

	"github.com/radixdlt/ledger-core/internal/model"
)

// ConfirmationRequest is the {txToConfirm, confirm()} pair spec.md §4.6
// step 2 pushes to the confirmation channel. Confirm is idempotent:
// only the first call resolves the rendezvous, every later call is a
// silent no-op, per the "replayable rendezvous" design note in §9.
type ConfirmationRequest struct {
	ToConfirm model.BuiltTransaction

	once sync.Once
	done chan struct{}
}

func newConfirmationRequest(built model.BuiltTransaction) *ConfirmationRequest {
	return &ConfirmationRequest{ToConfirm: built, done: make(chan struct{})}
}

// Confirm signals the rendezvous. Safe to call multiple times or from
// multiple goroutines; only the first call has any effect.
func (r *ConfirmationRequest) Confirm() {
	r.once.Do(func() { close(r.done) })
}

// Done reports when Confirm was called.
func (r *ConfirmationRequest) Done() <-chan struct{} { return r.done }

// confirmationSlot is a single-value replay broadcaster: once Set is
// called, every subscriber — past or future — observes the same
// *ConfirmationRequest. This is what makes "subscribing after
// ASKED_FOR_CONFIRMATION was already emitted" still work, per spec.md
// §4.6's "Rendezvous details".
type confirmationSlot struct {
	mu    sync.Mutex
	value *ConfirmationRequest
	subs  []chan *ConfirmationRequest
}

func newConfirmationSlot() *confirmationSlot {
	return &confirmationSlot{}
}

func (s *confirmationSlot) set(req *ConfirmationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value != nil {
		return
	}
	s.value = req
	for _, ch := range s.subs {
		ch <- req
		close(ch)
	}
	s.subs = nil
}

// subscribe returns a channel that delivers the request exactly once,
// whether it was set before or after this call, then closes.
func (s *confirmationSlot) subscribe() <-chan *ConfirmationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan *ConfirmationRequest, 1)
	if s.value != nil {
		ch <- s.value
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}
