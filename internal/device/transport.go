// Package device implements the Device Session (spec.md §4.3): sending
// APDU frames to the hardware wallet over a HID transport, matching
// response status codes, and surfacing typed errors. The session is
// single-threaded with respect to a given device handle — callers
// serialize requests behind Session's mutex, per spec.md §5.
package device

// Transport is the seam between Session and the physical wire. Exchange
// writes a raw APDU frame (CLA INS P1 P2 LC DATA) and returns the
// device's response bytes including the trailing 2-byte status word.
type Transport interface {
	Exchange(frame []byte) (response []byte, err error)
	Close() error
}
