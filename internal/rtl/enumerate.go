package rtl

import "github.com/google/gousb"

// Selector picks a single device out of the attached rtl-sdr population.
// Exactly one of its fields is meaningful for a given selector; use the
// constructors below rather than building one by hand.
type Selector struct {
	kind   selectorKind
	index  int
	serial string
	fd     int
}

type selectorKind int

const (
	selectIndex selectorKind = iota
	selectSerial
	selectFd
)

// ByIndex selects the nth known device found during enumeration, in scan
// order, zero-based.
func ByIndex(i int) Selector { return Selector{kind: selectIndex, index: i} }

// BySerial selects the device whose USB iSerialNumber string descriptor
// equals serial.
func BySerial(serial string) Selector { return Selector{kind: selectSerial, serial: serial} }

// ByFd builds a selector for a device already opened by the caller,
// identified by an inherited file descriptor. Open does not support it on
// any platform: outside Windows it checks the descriptor with fstat and
// then returns a KindNotSupported error (see fd_unix.go); on Windows it
// returns KindNotSupported directly.
func ByFd(fd int) Selector { return Selector{kind: selectFd, fd: fd} }

// DeviceDescriptor describes one attached, recognized rtl-sdr dongle.
type DeviceDescriptor struct {
	Index        int
	VID, PID     uint16
	Description  string
	Manufacturer string
	Product      string
	Serial       string
}

// ListDevices enumerates all attached USB devices matching a known
// (VID, PID) pair, in scan order. It does not claim any interface.
func ListDevices() ([]DeviceDescriptor, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var out []DeviceDescriptor
	idx := 0
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !isKnownVidPid(uint16(desc.Vendor), uint16(desc.Product)) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, wrapErr(KindTransport, "enumerate usb devices", err)
	}
	defer func() {
		for _, d := range devices {
			d.Close()
		}
	}()

	for _, d := range devices {
		desc := descriptionFor(uint16(d.Desc.Vendor), uint16(d.Desc.Product))
		serial, _ := d.SerialNumber()
		manufacturer, _ := d.Manufacturer()
		product, _ := d.Product()
		out = append(out, DeviceDescriptor{
			Index:        idx,
			VID:          uint16(d.Desc.Vendor),
			PID:          uint16(d.Desc.Product),
			Description:  desc,
			Manufacturer: manufacturer,
			Product:      product,
			Serial:       serial,
		})
		idx++
	}
	return out, nil
}

func descriptionFor(vid, pid uint16) string {
	for _, d := range KnownDevices {
		if d.VID == vid && d.PID == pid {
			return d.Description
		}
	}
	return "Unknown RTL2832U device"
}
