package apdu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// maxHRPLen is the largest human-readable-prefix the metadata frame can
// carry (hrp_len is a single byte), per spec.md §4.4.
const maxHRPLen = 255

// SignTxStream is the ordered sequence of frames for one SIGN_TX
// streaming session: exactly one metadata frame followed by one
// instruction frame per instruction, per spec.md §4.4 and the invariant
// in spec.md §8.
type SignTxStream struct {
	Metadata     *Frame
	Instructions []*Frame
}

// Frames returns the full ordered frame sequence, metadata first.
func (s *SignTxStream) Frames() []*Frame {
	out := make([]*Frame, 0, 1+len(s.Instructions))
	out = append(out, s.Metadata)
	out = append(out, s.Instructions...)
	return out
}

// BuildSignTxStream chunks a built transaction's instruction list into
// the SIGN_TX metadata + instruction frames described in spec.md §4.4
// and §6. txByteCount is the total serialized byte count of the built
// transaction; nonXRDHRP is the empty string when the transaction only
// moves the native token (hrp_len == 0 case).
func BuildSignTxStream(path HDPath, txByteCount uint32, instructions [][]byte, nonXRDHRP string) (*SignTxStream, error) {
	hrp := []byte(nonXRDHRP)
	if len(hrp) > maxHRPLen {
		return nil, fmt.Errorf("%w: hrp length %d exceeds %d", errHrpTooLong, len(hrp), maxHRPLen)
	}
	if len(instructions) > 0xFFFF {
		return nil, fmt.Errorf("apdu: too many instructions: %d", len(instructions))
	}

	pathBytes, err := Encode(path)
	if err != nil {
		return nil, err
	}

	meta := make([]byte, 0, len(pathBytes)+4+2+1+len(hrp))
	meta = append(meta, pathBytes...)
	meta = appendU32BE(meta, txByteCount)
	meta = appendU16BE(meta, uint16(len(instructions)))
	meta = append(meta, byte(len(hrp)))
	meta = append(meta, hrp...)

	metaFrame, err := newFrame(InsDoSignTx, P1MetadataFrame, 0, meta)
	if err != nil {
		return nil, err
	}

	frames := make([]*Frame, len(instructions))
	for i, ins := range instructions {
		p2 := byte(0x00)
		if i == len(instructions)-1 {
			p2 = 0x01
		}
		frame, err := newFrame(InsDoSignTx, P1InstructionFrame, p2, ins)
		if err != nil {
			return nil, fmt.Errorf("apdu: instruction %d: %w", i, err)
		}
		frames[i] = frame
	}

	return &SignTxStream{Metadata: metaFrame, Instructions: frames}, nil
}

// errHrpTooLong is the local precondition failure named HrpTooLong in
// spec.md §7; callers map this to rerr.KindHrpTooLong.
var errHrpTooLong = fmt.Errorf("hrp too long")

// IsHrpTooLong reports whether err was produced by the hrp_len > 255
// precondition in BuildSignTxStream.
func IsHrpTooLong(err error) bool {
	return errors.Is(err, errHrpTooLong)
}

func appendU32BE(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU16BE(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}
