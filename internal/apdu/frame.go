package apdu

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Frame is a single host→device APDU command, the atomic unit the
// device session (internal/device) sends over the wire. Construction is
// pure — building a Frame never touches I/O.
type Frame struct {
	CLA  byte
	Ins  Ins
	P1   byte
	P2   byte
	Data []byte

	// ExpectedStatus defaults to {SWOK} per spec.md §3; callers that
	// need a wider acceptance set may override it before sending.
	ExpectedStatus []uint16
}

func newFrame(ins Ins, p1, p2 byte, data []byte) (*Frame, error) {
	if len(data) > MaxFrameData {
		return nil, fmt.Errorf("apdu: frame data too long: %d bytes (max %d)", len(data), MaxFrameData)
	}
	return &Frame{
		CLA:            CLA,
		Ins:            ins,
		P1:             p1,
		P2:             p2,
		Data:           data,
		ExpectedStatus: []uint16{SWOK},
	}, nil
}

// Accepts reports whether status is one of the frame's expected codes.
func (f *Frame) Accepts(status uint16) bool {
	for _, s := range f.ExpectedStatus {
		if s == status {
			return true
		}
	}
	return false
}

// Bytes serializes the frame header and payload to the wire format
// CLA(1) INS(1) P1(1) P2(1) LC(1) DATA(LC), per spec.md §6.
func (f *Frame) Bytes() []byte {
	out := make([]byte, 5+len(f.Data))
	out[0] = f.CLA
	out[1] = byte(f.Ins)
	out[2] = f.P1
	out[3] = f.P2
	out[4] = byte(len(f.Data))
	copy(out[5:], f.Data)
	return out
}

// lenPrefixed appends a 1-byte length prefix then data, used by the
// pubkey-exchange and sign-hash payload layouts in spec.md §6.
func lenPrefixed(data []byte) ([]byte, error) {
	if len(data) > 255 {
		return nil, fmt.Errorf("apdu: length-prefixed field too long: %d bytes", len(data))
	}
	out := make([]byte, 1+len(data))
	out[0] = byte(len(data))
	copy(out[1:], data)
	return out, nil
}

// GetVersion builds the GET_VERSION frame: empty data, p1=p2=0.
func GetVersion() (*Frame, error) {
	return newFrame(InsGetVersion, 0, 0, nil)
}

// GetAppName builds the GET_APP_NAME frame: empty data, p1=p2=0.
func GetAppName() (*Frame, error) {
	return newFrame(InsGetAppName, 0, 0, nil)
}

// GetPublicKey builds the GET_PUBLIC_KEY frame. p1 signals on-device
// address display; data is the encoded HD path.
func GetPublicKey(path HDPath, display bool) (*Frame, error) {
	data, err := Encode(path)
	if err != nil {
		return nil, err
	}
	p1 := byte(0x00)
	if display {
		p1 = 0x01
	}
	return newFrame(InsGetPublicKey, p1, 0, data)
}

// KeyExchange builds the DO_KEY_EXCHANGE frame. pkUncompressed is the
// SEC1-uncompressed counterparty public key (65 bytes for secp256k1);
// it is parsed against the secp256k1 curve before framing so a
// malformed counterparty key is rejected locally rather than
// round-tripped to the device first.
func KeyExchange(path HDPath, pkUncompressed []byte, display bool) (*Frame, error) {
	if _, err := btcec.ParsePubKey(pkUncompressed); err != nil {
		return nil, fmt.Errorf("apdu: invalid counterparty public key: %w", err)
	}
	pathBytes, err := Encode(path)
	if err != nil {
		return nil, err
	}
	pkField, err := lenPrefixed(pkUncompressed)
	if err != nil {
		return nil, err
	}
	data := append(append([]byte{}, pathBytes...), pkField...)
	p1 := byte(0x00)
	if display {
		p1 = 0x01
	}
	return newFrame(InsDoKeyExchange, p1, 0, data)
}

// SignHash builds the DO_SIGN_HASH frame.
func SignHash(path HDPath, hash []byte, display bool) (*Frame, error) {
	pathBytes, err := Encode(path)
	if err != nil {
		return nil, err
	}
	hashField, err := lenPrefixed(hash)
	if err != nil {
		return nil, err
	}
	data := append(append([]byte{}, pathBytes...), hashField...)
	p1 := byte(0x00)
	if display {
		p1 = 0x01
	}
	return newFrame(InsDoSignHash, p1, 0, data)
}
