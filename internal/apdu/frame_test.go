package apdu

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCounterpartyPubKey returns a valid SEC1-uncompressed secp256k1
// public key for use as a KeyExchange counterparty key in tests.
func testCounterpartyPubKey(t *testing.T) []byte {
	t.Helper()
	_, pub := btcec.PrivKeyFromBytes([]byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
		0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
	})
	return pub.SerializeUncompressed()
}

// TestGetPublicKeyWithoutDisplay covers spec.md §8 scenario 2.
func TestGetPublicKeyWithoutDisplay(t *testing.T) {
	path := NewRadixPath(0, 0, 0)
	frame, err := GetPublicKey(path, false)
	require.NoError(t, err)

	assert.Equal(t, byte(CLA), frame.CLA)
	assert.Equal(t, InsGetPublicKey, frame.Ins)
	assert.Equal(t, byte(0x00), frame.P1)
	assert.Equal(t, byte(0x00), frame.P2)

	wantData, err := hex.DecodeString("058000002c80000218800000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, wantData, frame.Data)
}

func TestGetPublicKeyWithDisplaySetsP1(t *testing.T) {
	path := NewRadixPath(0, 0, 0)
	frame, err := GetPublicKey(path, true)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), frame.P1)
}

// TestUniversalFrameInvariants covers the builder invariants in
// spec.md §8: cla = 0xAA, p1/p2 in range, and |data| <= 255 for every
// frame constructor.
func TestUniversalFrameInvariants(t *testing.T) {
	path := NewRadixPath(0, 0, 0)

	frames := []*Frame{}
	for _, build := range []func() (*Frame, error){
		func() (*Frame, error) { return GetVersion() },
		func() (*Frame, error) { return GetAppName() },
		func() (*Frame, error) { return GetPublicKey(path, false) },
		func() (*Frame, error) { return GetPublicKey(path, true) },
		func() (*Frame, error) { return KeyExchange(path, testCounterpartyPubKey(t), false) },
		func() (*Frame, error) { return SignHash(path, make([]byte, 32), false) },
	} {
		f, err := build()
		require.NoError(t, err)
		frames = append(frames, f)
	}

	for _, f := range frames {
		assert.Equal(t, CLA, f.CLA)
		assert.LessOrEqual(t, len(f.Data), MaxFrameData)
	}
}

func TestKeyExchangeRejectsInvalidCounterpartyKey(t *testing.T) {
	path := NewRadixPath(0, 0, 0)
	_, err := KeyExchange(path, make([]byte, 65), false)
	assert.Error(t, err)
}

func TestFrameRejectsOversizedData(t *testing.T) {
	_, err := newFrame(InsGetPublicKey, 0, 0, make([]byte, 256))
	assert.Error(t, err)
}

func TestFrameAcceptsMatchesExpectedStatus(t *testing.T) {
	f, err := GetVersion()
	require.NoError(t, err)
	assert.True(t, f.Accepts(SWOK))
	assert.False(t, f.Accepts(0x6985))
}

func TestFrameBytesWireFormat(t *testing.T) {
	f, err := newFrame(InsGetVersion, 0x01, 0x02, []byte{0xDE, 0xAD})
	require.NoError(t, err)

	got := f.Bytes()
	assert.Equal(t, []byte{CLA, byte(InsGetVersion), 0x01, 0x02, 0x02, 0xDE, 0xAD}, got)
}
