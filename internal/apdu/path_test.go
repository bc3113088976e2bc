package apdu

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDefaultRadixPath covers spec.md §8 scenario 1.
func TestEncodeDefaultRadixPath(t *testing.T) {
	path := NewRadixPath(0, 0, 0)
	got, err := Encode(path)
	require.NoError(t, err)

	want, err := hex.DecodeString("058000002c80000218800000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, 21)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	paths := []HDPath{
		NewRadixPath(0, 0, 0),
		NewRadixPath(1, 0, 5),
		NewRadixPath(7, 1, 999),
	}
	for _, p := range paths {
		encoded, err := Encode(p)
		require.NoError(t, err)
		assert.Len(t, encoded, 21)

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestValidateRejectsWrongCoinType(t *testing.T) {
	p := NewRadixPath(0, 0, 0)
	p[1] = PathComponent{Index: 1, Hardened: true} // bitcoin's coin_type, not Radix's

	assert.Error(t, p.Validate())
	_, err := Encode(p)
	assert.Error(t, err)
}

func TestValidateRejectsUnhardenedCoinType(t *testing.T) {
	p := NewRadixPath(0, 0, 0)
	p[1] = PathComponent{Index: RadixCoinType, Hardened: false}

	assert.Error(t, p.Validate())
}

func TestDecodeRejectsWrongDepth(t *testing.T) {
	_, err := Decode([]byte{0x04, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	_, err := Decode([]byte{0x05, 0, 0, 0})
	assert.Error(t, err)
}
