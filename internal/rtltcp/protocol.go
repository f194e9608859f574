// Package rtltcp implements the rtl_tcp wire protocol: a 12-byte
// handshake, 5-byte command frames, and a raw I/Q sample stream, served
// to one client at a time over an rtl.SDR.
package rtltcp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CommandKind identifies a wire command or an internal control event.
type CommandKind byte

const (
	CmdSetFrequency      CommandKind = 0x01
	CmdSetSampleRate     CommandKind = 0x02
	CmdSetGainMode       CommandKind = 0x03
	CmdSetGain           CommandKind = 0x04
	CmdSetFreqCorrection CommandKind = 0x05
	CmdSetIfGain         CommandKind = 0x06
	CmdSetTestMode       CommandKind = 0x07
	CmdSetAgcMode        CommandKind = 0x08
	CmdSetDirectSampling CommandKind = 0x09
	CmdSetOffsetTuning   CommandKind = 0x0a
	CmdSetRtlXtal        CommandKind = 0x0b
	CmdSetTunerXtal      CommandKind = 0x0c
	CmdSetGainByIndex    CommandKind = 0x0d
	CmdSetBiasTee        CommandKind = 0x0e

	// cmdShutdown is not an rtl_tcp command. The producer ends the
	// session when it drains a command of this kind, including a client
	// frame whose command byte is 0xff; nothing in this package sends it.
	cmdShutdown CommandKind = 0xff
)

func (k CommandKind) String() string {
	switch k {
	case CmdSetFrequency:
		return "SetFrequency"
	case CmdSetSampleRate:
		return "SetSampleRate"
	case CmdSetGainMode:
		return "SetGainMode"
	case CmdSetGain:
		return "SetGain"
	case CmdSetFreqCorrection:
		return "SetFreqCorrection"
	case CmdSetIfGain:
		return "SetIfGain"
	case CmdSetTestMode:
		return "SetTestMode"
	case CmdSetAgcMode:
		return "SetAgcMode"
	case CmdSetDirectSampling:
		return "SetDirectSampling"
	case CmdSetOffsetTuning:
		return "SetOffsetTuning"
	case CmdSetRtlXtal:
		return "SetRtlXtal"
	case CmdSetTunerXtal:
		return "SetTunerXtal"
	case CmdSetGainByIndex:
		return "SetGainByIndex"
	case CmdSetBiasTee:
		return "SetBiasTee"
	case cmdShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(k))
	}
}

// command is one parsed 5-byte client frame (or the internal shutdown
// sentinel).
type command struct {
	kind    CommandKind
	payload uint32
}

// frameLen is the fixed size of every client->server command.
const frameLen = 5

// readCommand reads and parses one 5-byte frame from r. io.EOF is
// returned verbatim so callers can treat it as a normal session close.
func readCommand(r io.Reader) (command, error) {
	var buf [frameLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return command{}, err
	}
	return command{
		kind:    CommandKind(buf[0]),
		payload: binary.BigEndian.Uint32(buf[1:]),
	}, nil
}

// handshake builds the 12-byte server->client greeting: ASCII "RTL0",
// the legacy tuner-type constant, and the gain-vector length.
func handshake(gainCount int) [12]byte {
	var buf [12]byte
	copy(buf[0:4], "RTL0")
	// tunerTypeR828D is the wire constant every rtl_tcp server advertises,
	// regardless of which tuner chip is actually attached.
	const tunerTypeR828D = 6
	binary.BigEndian.PutUint32(buf[4:8], tunerTypeR828D)
	binary.BigEndian.PutUint32(buf[8:12], uint32(gainCount))
	return buf
}
