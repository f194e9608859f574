package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIRRoundTrip(t *testing.T) {
	coeffs := [16]int32{
		-128, 127, 0, -1, 54, -54, 100, -100,
		-2048, 2047, 0, -1, 1000, -1000, 2000, -2000,
	}
	packed, err := packFIR(coeffs)
	require.NoError(t, err)
	assert.Len(t, packed, 20)

	got := unpackFIR(packed)
	assert.Equal(t, coeffs, got)
}

func TestFIRRejectsOutOfRangeInt8(t *testing.T) {
	var coeffs [16]int32
	coeffs[0] = 128
	_, err := packFIR(coeffs)
	require.Error(t, err)
}

func TestFIRRejectsOutOfRangeInt12(t *testing.T) {
	var coeffs [16]int32
	coeffs[8] = 2048
	_, err := packFIR(coeffs)
	require.Error(t, err)
}

func TestDefaultFIRPacksCleanly(t *testing.T) {
	_, err := packFIR(DefaultFIR)
	require.NoError(t, err)
}
