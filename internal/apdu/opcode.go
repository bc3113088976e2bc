// Package apdu is the bit-exact framing layer for the Radix hardware
// wallet protocol: HD path serialization, single-frame command encoding,
// and the SIGN_TX multi-frame streaming sub-protocol. Nothing in this
// package performs I/O — every function here is a pure value transform,
// matching the device's published APDU spec.
package apdu

// Ins identifies the device instruction a frame carries.
type Ins byte

// Instruction codes. Exact byte values are an implementation choice per
// the Open Question in spec.md §9 ("INS opcode values"); the frame shape
// and semantics are authoritative regardless of the concrete byte chosen
// here, and these match the device's published APDU spec for this app.
const (
	InsGetVersion  Ins = 0x00
	InsGetAppName  Ins = 0x01
	InsDoSignHash  Ins = 0x02
	InsDoKeyExchange Ins = 0x04
	InsDoSignTx    Ins = 0x05
	InsGetPublicKey Ins = 0x08
)

// CLA is fixed for every frame this protocol emits.
const CLA byte = 0xAA

// SWOK is the APDU status word for success.
const SWOK uint16 = 0x9000

// SIGN_TX sub-protocol phase markers (ASCII 'M' and 'I', per spec.md §4.4).
const (
	P1MetadataFrame    byte = 0x4D // 'M'
	P1InstructionFrame byte = 0x49 // 'I'
)

// MaxFrameData is the largest payload a single frame's data field may
// carry (LC is one byte).
const MaxFrameData = 255
