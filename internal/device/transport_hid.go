package device

import (
	"encoding/binary"
	"fmt"

	"github.com/zondax/hid"
)

// HID report framing constants for the Ledger-style channel protocol:
// the raw APDU is wrapped into fixed-size HID packets, a 2-byte channel
// ID and 1-byte tag per packet, the first packet of a message carrying
// a 2-byte big-endian APDU length. This mirrors the wrapping go-ethereum's
// accounts/usbwallet package uses to talk to Ledger devices over HID.
const (
	hidChannelID  uint16 = 0x0101
	hidTagAPDU    byte   = 0x05
	hidPacketSize        = 64
)

// HIDTransport sends APDU frames to a physical device over USB HID,
// opened by the vendor/product ID pair the caller passes to OpenHID.
type HIDTransport struct {
	dev *hid.Device
}

// OpenHID enumerates HID devices matching vendorID/productID and opens
// the first match.
func OpenHID(vendorID, productID uint16) (*HIDTransport, error) {
	infos := hid.Enumerate(vendorID, productID)
	if len(infos) == 0 {
		return nil, fmt.Errorf("device: no HID device found for vid=0x%04x pid=0x%04x", vendorID, productID)
	}
	dev, err := infos[0].Open()
	if err != nil {
		return nil, fmt.Errorf("device: opening HID device: %w", err)
	}
	return &HIDTransport{dev: dev}, nil
}

// Exchange writes frame as one or more HID packets and reads back the
// response, reassembling it from the device's own packet framing.
func (t *HIDTransport) Exchange(frame []byte) ([]byte, error) {
	if err := t.write(frame); err != nil {
		return nil, err
	}
	return t.read()
}

func (t *HIDTransport) write(apdu []byte) error {
	packet := make([]byte, hidPacketSize)
	seq := uint16(0)
	offset := 0

	for {
		binary.BigEndian.PutUint16(packet[0:2], hidChannelID)
		packet[2] = hidTagAPDU
		binary.BigEndian.PutUint16(packet[3:5], seq)

		body := packet[5:]
		n := 0
		if seq == 0 {
			binary.BigEndian.PutUint16(body[0:2], uint16(len(apdu)))
			n = copy(body[2:], apdu[offset:])
			n += 2
		} else {
			n = copy(body, apdu[offset:])
		}
		for i := n; i < len(body); i++ {
			body[i] = 0
		}

		if _, err := t.dev.Write(packet); err != nil {
			return fmt.Errorf("device: HID write: %w", err)
		}

		if seq == 0 {
			offset += n - 2
		} else {
			offset += n
		}
		seq++
		if offset >= len(apdu) {
			return nil
		}
	}
}

func (t *HIDTransport) read() ([]byte, error) {
	var out []byte
	var total int
	seq := uint16(0)

	for {
		packet := make([]byte, hidPacketSize)
		if _, err := t.dev.Read(packet); err != nil {
			return nil, fmt.Errorf("device: HID read: %w", err)
		}
		gotSeq := binary.BigEndian.Uint16(packet[3:5])
		if gotSeq != seq {
			return nil, fmt.Errorf("device: out-of-order HID packet: got seq %d, want %d", gotSeq, seq)
		}

		body := packet[5:]
		if seq == 0 {
			total = int(binary.BigEndian.Uint16(body[0:2]))
			out = append(out, body[2:]...)
		} else {
			out = append(out, body...)
		}
		seq++
		if len(out) >= total {
			return out[:total], nil
		}
	}
}

// Close releases the underlying HID handle.
func (t *HIDTransport) Close() error {
	return t.dev.Close()
}

var _ Transport = (*HIDTransport)(nil)
