package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/rerr"
)

// Session wraps a Transport with the serialization and dirty-tracking
// behavior spec.md §4.3 and §5 require: a single device handle is
// shared, so every Send call takes the session's mutex for its
// duration, and a device error or a context cancellation mid-exchange
// marks the session dirty until the caller resets it.
//
// Open question resolved (spec.md §9, "device desynchronization on
// cancellation"): cancelling the caller's context does not abort an
// in-flight Exchange — the frame is always allowed to complete on the
// wire so the device's own state machine stays in sync — but it does
// mark the session dirty, since the cancelling caller may have given up
// on a multi-frame SIGN_TX stream partway through.
type Session struct {
	mu        sync.Mutex
	transport Transport
	dirty     bool
}

// NewSession wraps transport in a Session.
func NewSession(transport Transport) *Session {
	return &Session{transport: transport}
}

// Dirty reports whether the device's state machine may be out of sync
// with the host's view — e.g. after a cancelled or failed SIGN_TX
// stream — and must be Reset before the next transaction.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Send exchanges a single frame and matches the response status against
// the frame's expected set, surfacing a *rerr.Error of KindDeviceStatus
// on mismatch per spec.md §4.3.
func (s *Session) Send(ctx context.Context, frame *apdu.Frame) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.transport.Exchange(frame.Bytes())

	select {
	case <-ctx.Done():
		// The exchange above already ran to completion against the
		// wire; only now do we act on cancellation, by marking the
		// session dirty so the next caller resets it first.
		s.dirty = true
		return nil, ctx.Err()
	default:
	}

	if err != nil {
		s.dirty = true
		return nil, fmt.Errorf("device: exchange failed: %w", err)
	}
	if len(resp) < 2 {
		s.dirty = true
		return nil, fmt.Errorf("device: short response: %d bytes", len(resp))
	}

	payload, status := resp[:len(resp)-2], binary.BigEndian.Uint16(resp[len(resp)-2:])
	if !frame.Accepts(status) {
		s.dirty = true
		return nil, rerr.DeviceStatus(status, byte(frame.Ins))
	}
	return payload, nil
}

// Reset clears the dirty flag by re-issuing GET_VERSION, the recovery
// procedure spec.md §9 prescribes for a desynchronized device.
func (s *Session) Reset(ctx context.Context) error {
	frame, err := apdu.GetVersion()
	if err != nil {
		return err
	}
	if _, err := s.Send(ctx, frame); err != nil {
		return fmt.Errorf("device: reset failed: %w", err)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Close releases the underlying transport.
func (s *Session) Close() error {
	return s.transport.Close()
}
