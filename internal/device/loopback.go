package device

import (
	"encoding/binary"
	"fmt"

	"github.com/radixdlt/ledger-core/internal/apdu"
)

// LoopbackTransport is an in-memory stand-in device used by tests and
// the demo CLI's --loopback mode. It answers frames by matching the
// instruction byte and P1/P2, returning scripted payloads, defaulting
// to SW_OK with no payload for anything unscripted.
type LoopbackTransport struct {
	Responses map[loopbackKey]loopbackResponse
	Sent      [][]byte // every raw frame written, in order, for assertions

	// DefaultStatus is returned for frames with no matching Responses
	// entry; defaults to SW_OK if zero.
	DefaultStatus uint16
}

type loopbackKey struct {
	ins    byte
	p1, p2 byte
}

type loopbackResponse struct {
	payload []byte
	status  uint16
}

// NewLoopback creates an empty loopback transport.
func NewLoopback() *LoopbackTransport {
	return &LoopbackTransport{Responses: make(map[loopbackKey]loopbackResponse)}
}

// Script registers the response for frames matching (ins, p1, p2).
func (l *LoopbackTransport) Script(ins, p1, p2 byte, payload []byte, status uint16) {
	l.Responses[loopbackKey{ins, p1, p2}] = loopbackResponse{payload: payload, status: status}
}

// Exchange implements Transport.
func (l *LoopbackTransport) Exchange(frame []byte) ([]byte, error) {
	if len(frame) < 5 {
		return nil, fmt.Errorf("device: malformed frame: %d bytes", len(frame))
	}
	l.Sent = append(l.Sent, append([]byte{}, frame...))

	key := loopbackKey{ins: frame[1], p1: frame[2], p2: frame[3]}
	resp, ok := l.Responses[key]
	status := l.DefaultStatus
	if status == 0 {
		status = apdu.SWOK
	}
	var payload []byte
	if ok {
		payload = resp.payload
		status = resp.status
	}

	out := make([]byte, len(payload)+2)
	copy(out, payload)
	binary.BigEndian.PutUint16(out[len(payload):], status)
	return out, nil
}

// Close implements Transport.
func (l *LoopbackTransport) Close() error { return nil }

var _ Transport = (*LoopbackTransport)(nil)
