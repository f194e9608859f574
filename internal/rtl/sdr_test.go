package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSDR() (*SDR, *fakeTransport) {
	ft := newFakeTransport()
	dev := newDevice(ft)
	return &SDR{dev: dev, rtlXtalHz: defRTLXtalFreq, fir: DefaultFIR}, ft
}

func TestSetSampleRateQuantization(t *testing.T) {
	sdr, _ := newTestSDR()

	require.NoError(t, sdr.SetSampleRate(2_048_000))

	rsampRatio := ((uint64(sdr.rtlXtalHz) << 22) / uint64(2_048_000)) & 0x0ffffffc
	realRatio := rsampRatio | ((rsampRatio & 0x08000000) << 1)
	wantRate := uint32((uint64(sdr.rtlXtalHz) << 22) / realRatio)

	assert.Equal(t, wantRate, sdr.SampleRate())
	assert.InDelta(t, 2_048_000, sdr.SampleRate(), 1)
}

func TestSetSampleRateRejectsDeadBand(t *testing.T) {
	sdr, _ := newTestSDR()

	err := sdr.SetSampleRate(500_000)
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInvalid, rerr.Kind)
}

func TestSetSampleRateRejectsOutOfRange(t *testing.T) {
	sdr, _ := newTestSDR()

	assert.Error(t, sdr.SetSampleRate(100_000))
	assert.Error(t, sdr.SetSampleRate(4_000_000))
}

func TestSetFreqCorrectionRoundTrips(t *testing.T) {
	sdr, _ := newTestSDR()

	require.NoError(t, sdr.SetFreqCorrection(25))
	assert.Equal(t, 25, sdr.FreqCorrection())
}

func TestResetBufferTogglesEPACtl(t *testing.T) {
	sdr, ft := newTestSDR()

	require.NoError(t, sdr.ResetBuffer())

	var values []uint16
	for _, c := range ft.calls {
		if c.out && c.value == regUSBEpaCtl {
			values = append(values, uint16(c.data[0])<<8|uint16(c.data[1]))
		}
	}
	require.Len(t, values, 2)
	assert.Equal(t, uint16(0x1002), values[0])
	assert.Equal(t, uint16(0x0000), values[1])
}
