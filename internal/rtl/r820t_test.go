package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTuner() (*r820tTuner, *fakeTransport) {
	ft := newFakeTransport()
	dev := newDevice(ft)
	return newR820TTuner(dev, defRTLXtalFreq), ft
}

func TestWriteRegMaskMergesMaskedBitsIntoCache(t *testing.T) {
	tun, _ := newTestTuner()
	tun.cache[0x05] = 0xff

	require.NoError(t, tun.writeRegMask(0x05, 0x03, 0x0f))
	assert.Equal(t, byte(0xf3), tun.cache[0x05])
}

func TestWriteRegsChunksAtSevenBytes(t *testing.T) {
	tun, ft := newTestTuner()
	data := make([]byte, 27)
	for i := range data {
		data[i] = byte(i + 1)
	}

	require.NoError(t, tun.writeRegs(5, data))

	var i2cWrites int
	for _, c := range ft.calls {
		if c.out && c.reqType == ctrlOut {
			i2cWrites++
		}
	}
	assert.Equal(t, 4, i2cWrites, "27 bytes at <=7 per transaction needs 4 writes")
	assert.Equal(t, data[0], tun.cache[5])
	assert.Equal(t, data[len(data)-1], tun.cache[5+len(data)-1])
}

func TestReadRegBitReverses(t *testing.T) {
	tun, ft := newTestTuner()
	// The chip ID 0x69 comes back bit-reversed (0x96) over I2C; readReg
	// must undo the reversal before the caller compares it against the
	// R820T chip-ID constant.
	ft.regs[regKey(uint16(r820tI2CAddr), BlockIIC<<8)] = []byte{reverseByte(0x69)}

	got, err := tun.readReg1(0x00)
	require.NoError(t, err)
	assert.Equal(t, byte(0x69), got)
}

func TestInitConvergesOnFirstCalibrationAttempt(t *testing.T) {
	tun, _ := newTestTuner()
	require.NoError(t, tun.Init())
	assert.True(t, tun.initDone)
	assert.Equal(t, byte(0), tun.calCode)
}

func TestSetPLLRejectsOutOfRangeFrequency(t *testing.T) {
	tun, _ := newTestTuner()
	// Far above the synthesizer's reach: no mix_div brings the VCO into
	// its capture range, and the fallback mix_div of 2 gives nint > 63.
	err := tun.setPLL(4_000_000_000)
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInvalid, rerr.Kind)
}

func TestSetPLLSucceedsWithoutLock(t *testing.T) {
	tun, _ := newTestTuner()
	require.NoError(t, tun.setPLL(100_000_000))
	assert.False(t, tun.hasLock, "fake transport never reports a real lock bit")
}

func TestSetGainAutoEnablesAGCBits(t *testing.T) {
	tun, _ := newTestTuner()
	require.NoError(t, tun.SetGain(GainAuto, 0))
	assert.Equal(t, byte(0x00), tun.cache[r820tRegLNAGain]&0x10)
	assert.Equal(t, byte(0x10), tun.cache[r820tRegMixerGain]&0x10)
}

func TestSetGainManualWalksStepTableTowardTarget(t *testing.T) {
	tun, _ := newTestTuner()
	require.NoError(t, tun.SetGain(GainManual, 200))

	got, err := tun.ReadGain()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 200)
}

func TestReadGainSumsCachedSteps(t *testing.T) {
	tun, _ := newTestTuner()
	tun.cache[r820tRegLNAGain] = 0x03
	tun.cache[r820tRegMixerGain] = 0x02

	got, err := tun.ReadGain()
	require.NoError(t, err)
	// LNA steps 1..3 (9+13+40) plus mixer steps 1..2 (5+10).
	assert.Equal(t, 77, got)
}

func TestSetBandwidthCoarseSelectsWideFilterAndRetunes(t *testing.T) {
	tun, _ := newTestTuner()
	tun.freqHz = 100_000_000

	require.NoError(t, tun.SetBandwidth(8_000_000, 2_400_000))
	assert.Equal(t, uint32(4_570_000), tun.ifFreqHz)
}

func TestSetBandwidthFineSelectsNarrowestThatFits(t *testing.T) {
	tun, _ := newTestTuner()
	tun.freqHz = 100_000_000

	require.NoError(t, tun.SetBandwidth(200_000, 250_000))
	assert.Less(t, tun.ifFreqHz, uint32(3_570_000))
}
