package apdu

import (
	"encoding/binary"
	"fmt"
)

// HardenedBit marks a path component as hardened in BIP32 encoding.
const HardenedBit uint32 = 0x80000000

// RadixCoinType is the fixed, hardened coin type every Radix HD path
// must carry at depth 1 (BIP44 "coin_type").
const RadixCoinType uint32 = 536

// PathComponent is a single BIP32 derivation index, with its hardening
// state tracked explicitly rather than folded into the raw integer so
// callers can't accidentally construct an ambiguous value.
type PathComponent struct {
	Index    uint32
	Hardened bool
}

// Raw returns the wire-form 32-bit word: the index with the hardening
// bit set if Hardened is true.
func (c PathComponent) Raw() uint32 {
	if c.Hardened {
		return c.Index | HardenedBit
	}
	return c.Index
}

// HDPath is the fixed-depth-5 Radix derivation path: purpose / coin_type /
// account / change / index.
type HDPath [5]PathComponent

// NewRadixPath builds the standard Radix path m/44'/536'/account'/change/index.
func NewRadixPath(account, change, index uint32) HDPath {
	return HDPath{
		{Index: 44, Hardened: true},
		{Index: RadixCoinType, Hardened: true},
		{Index: account, Hardened: true},
		{Index: change, Hardened: false},
		{Index: index, Hardened: false},
	}
}

// Validate enforces the invariant in spec.md §3: coin_type == 536 and
// coin_type.hardened == true, else the path is rejected.
func (p HDPath) Validate() error {
	coinType := p[1]
	if coinType.Index != RadixCoinType || !coinType.Hardened {
		return fmt.Errorf("invalid coin type: got index=%d hardened=%v, want index=%d hardened=true",
			coinType.Index, coinType.Hardened, RadixCoinType)
	}
	return nil
}

// Encode emits a 1-byte component count followed by count*4 big-endian
// words, each carrying its hardening bit. Fails when the coin_type
// invariant doesn't hold, per spec.md §4.1.
func Encode(p HDPath) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(p)*4)
	out[0] = byte(len(p))
	for i, c := range p {
		binary.BigEndian.PutUint32(out[1+i*4:], c.Raw())
	}
	return out, nil
}

// Decode is the inverse of Encode, used by the round-trip test property
// in spec.md §8. It does not re-run the coin_type invariant check —
// callers that need strict acceptance should call Validate explicitly.
func Decode(b []byte) (HDPath, error) {
	var p HDPath
	if len(b) < 1 {
		return p, fmt.Errorf("empty path encoding")
	}
	count := int(b[0])
	if count != len(p) {
		return p, fmt.Errorf("unsupported path depth %d, want %d", count, len(p))
	}
	if len(b) != 1+count*4 {
		return p, fmt.Errorf("malformed path encoding: want %d bytes, got %d", 1+count*4, len(b))
	}
	for i := 0; i < count; i++ {
		word := binary.BigEndian.Uint32(b[1+i*4:])
		p[i] = PathComponent{
			Index:    word &^ HardenedBit,
			Hardened: word&HardenedBit != 0,
		}
	}
	return p, nil
}
