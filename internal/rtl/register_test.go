package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRegBigEndian(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)

	require.NoError(t, dev.WriteReg(BlockSys, 0x3000, 0xabcd, 2))
	last := ft.calls[len(ft.calls)-1]
	assert.Equal(t, []byte{0xab, 0xcd}, last.data)
	assert.Equal(t, uint16(BlockSys<<8|0x10), last.index)
	assert.Equal(t, uint16(0x3000), last.value)

	require.NoError(t, dev.WriteReg(BlockSys, 0x3001, 0x00fe, 1))
	last = ft.calls[len(ft.calls)-1]
	assert.Equal(t, []byte{0xfe}, last.data)
}

func TestReadRegLittleEndian(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)
	ft.regs[regKey(0x3000, BlockSys<<8)] = []byte{0x34, 0x12}

	v, err := dev.ReadReg(BlockSys, 0x3000, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestDemodWriteRegIssuesDummyRead(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)

	require.NoError(t, dev.DemodWriteReg(1, 0x01, 0x14, 1))

	var dummyReads int
	for _, c := range ft.calls {
		if !c.out && c.value == (0x01<<8|0x20) && c.index == 0x0a {
			dummyReads++
		}
	}
	assert.Equal(t, 1, dummyReads, "exactly one dummy read of page 0x0a addr 0x01 per demod write")
}

func TestDemodWriteRegSwallowsWriteError(t *testing.T) {
	ft := newFakeTransport()
	ft.failOn = func(reqType byte, value, index uint16) bool {
		return reqType == ctrlOut
	}
	dev := newDevice(ft)

	err := dev.DemodWriteReg(1, 0x01, 0x14, 1)
	require.NoError(t, err, "the write's own error must be logged and swallowed, not returned")
}

func TestI2CReadWriteRoundTrip(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)

	require.NoError(t, dev.I2CWriteReg(0x34, 0x05, 0x99))
	b, err := dev.I2CReadReg(0x34, 0x05)
	require.NoError(t, err)
	assert.Equal(t, byte(0x99), b)
}

func TestReadEEPROMPanicsOutOfRange(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)

	assert.Panics(t, func() {
		dev.ReadEEPROM(250, 10)
	})
}

func TestReadEEPROMWithinRange(t *testing.T) {
	ft := newFakeTransport()
	dev := newDevice(ft)

	data, err := dev.ReadEEPROM(0, 8)
	require.NoError(t, err)
	assert.Len(t, data, 8)
}
