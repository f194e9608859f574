package rtl

import (
	"context"
	"errors"
)

// controlCall records one control transfer for assertions in tests.
type controlCall struct {
	out     bool
	reqType byte
	value   uint16
	index   uint16
	data    []byte
}

// fakeTransport is a usbTransport stand-in that records every control
// transfer and stores each ControlOut payload in a map keyed by
// (value, index). ControlIn answers from the same map, or with zeros when
// the key is absent. Write indices carry the 0x10 write flag and read
// indices do not, so a ControlIn sees only values a test seeded directly
// under the read key, never an earlier ControlOut.
type fakeTransport struct {
	calls   []controlCall
	regs    map[uint32][]byte
	onWrite func(value, index uint16, data []byte)
	// failOn, when set, makes ControlOut return an error for any call it
	// matches, without recording into regs.
	failOn func(reqType byte, value, index uint16) bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{regs: make(map[uint32][]byte)}
}

func regKey(value, index uint16) uint32 {
	return uint32(index)<<16 | uint32(value)
}

func (f *fakeTransport) ControlOut(reqType, request uint8, value, index uint16, data []byte) (int, error) {
	cp := append([]byte(nil), data...)
	f.calls = append(f.calls, controlCall{out: true, reqType: reqType, value: value, index: index, data: cp})
	if f.failOn != nil && f.failOn(reqType, value, index) {
		return 0, errors.New("fake transport: simulated control-out failure")
	}
	f.regs[regKey(value, index)] = cp
	if f.onWrite != nil {
		f.onWrite(value, index, cp)
	}
	return len(data), nil
}

func (f *fakeTransport) ControlIn(reqType, request uint8, value, index uint16, length int) ([]byte, error) {
	f.calls = append(f.calls, controlCall{out: false, reqType: reqType, value: value, index: index})
	if got, ok := f.regs[regKey(value, index)]; ok {
		out := make([]byte, length)
		copy(out, got)
		return out, nil
	}
	return make([]byte, length), nil
}

func (f *fakeTransport) BulkIn(ctx context.Context, length int) ([]byte, error) {
	return make([]byte, length), nil
}

func (f *fakeTransport) Reset() error { return nil }
func (f *fakeTransport) Close() error { return nil }
