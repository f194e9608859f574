package rtltcp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeEncoding(t *testing.T) {
	buf := handshake(29)
	assert.Equal(t, "RTL0", string(buf[0:4]))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x06}, buf[4:8])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x1d}, buf[8:12])
}

func TestReadCommandParsesFrame(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x00, 0x0b, 0x71, 0xb0})
	cmd, err := readCommand(r)
	require.NoError(t, err)
	assert.Equal(t, CmdSetFrequency, cmd.kind)
	assert.Equal(t, uint32(0x000b71b0), cmd.payload)
}

func TestReadCommandPropagatesEOF(t *testing.T) {
	r := bytes.NewReader(nil)
	_, err := readCommand(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadCommandRejectsShortFrame(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x00})
	_, err := readCommand(r)
	require.Error(t, err)
}

func TestCommandKindStringCoversKnownCommands(t *testing.T) {
	cases := map[CommandKind]string{
		CmdSetFrequency:      "SetFrequency",
		CmdSetSampleRate:     "SetSampleRate",
		CmdSetGainMode:       "SetGainMode",
		CmdSetGain:           "SetGain",
		CmdSetFreqCorrection: "SetFreqCorrection",
		CmdSetIfGain:         "SetIfGain",
		CmdSetTestMode:       "SetTestMode",
		CmdSetAgcMode:        "SetAgcMode",
		CmdSetDirectSampling: "SetDirectSampling",
		CmdSetOffsetTuning:   "SetOffsetTuning",
		CmdSetRtlXtal:        "SetRtlXtal",
		CmdSetTunerXtal:      "SetTunerXtal",
		CmdSetGainByIndex:    "SetGainByIndex",
		CmdSetBiasTee:        "SetBiasTee",
		cmdShutdown:          "shutdown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Contains(t, CommandKind(0x99).String(), "unknown")
}
