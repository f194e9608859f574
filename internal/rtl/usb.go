package rtl

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// usbTransport is the minimal surface SDR needs from a USB device handle.
// Production code is backed by gousbDevice; tests substitute a fake.
type usbTransport interface {
	ControlOut(reqType, request uint8, value, index uint16, data []byte) (int, error)
	ControlIn(reqType, request uint8, value, index uint16, length int) ([]byte, error)
	BulkIn(ctx context.Context, length int) ([]byte, error)
	Reset() error
	Close() error
}

const (
	ctrlOut uint8 = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
	ctrlIn  uint8 = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
)

// gousbDevice wraps a claimed gousb device and its bulk IN endpoint.
type gousbDevice struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epIn   *gousb.InEndpoint
}

func openGousbDevice(ctx *gousb.Context, dev *gousb.Device) (*gousbDevice, error) {
	dev.ControlTimeout = ctrlTimeout
	if err := dev.SetAutoDetach(true); err != nil {
		ctx.Close()
		return nil, wrapErr(KindTransport, "set auto detach", err)
	}
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		return nil, wrapErr(KindTransport, "claim config 1", err)
	}
	intf, err := cfg.Interface(interfaceID, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, wrapErr(KindTransport, "claim interface", err)
	}
	epIn, err := intf.InEndpoint(bulkEndpoint & 0x0f)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		return nil, wrapErr(KindTransport, "open bulk in endpoint", err)
	}
	return &gousbDevice{ctx: ctx, dev: dev, config: cfg, intf: intf, epIn: epIn}, nil
}

func (g *gousbDevice) ControlOut(reqType, request uint8, value, index uint16, data []byte) (int, error) {
	n, err := g.dev.Control(reqType, request, value, index, data)
	if err != nil {
		return n, wrapErr(KindTransport, fmt.Sprintf("control out req=%#x val=%#x idx=%#x", request, value, index), err)
	}
	return n, nil
}

func (g *gousbDevice) ControlIn(reqType, request uint8, value, index uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := g.dev.Control(reqType, request, value, index, buf)
	if err != nil {
		return nil, wrapErr(KindTransport, fmt.Sprintf("control in req=%#x val=%#x idx=%#x", request, value, index), err)
	}
	return buf[:n], nil
}

func (g *gousbDevice) BulkIn(ctx context.Context, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := g.epIn.ReadContext(ctx, buf)
	if err != nil {
		return nil, wrapErr(KindTransport, "bulk read", err)
	}
	return buf[:n], nil
}

func (g *gousbDevice) Reset() error {
	if err := g.dev.Reset(); err != nil {
		return wrapErr(KindTransport, "reset device", err)
	}
	return nil
}

func (g *gousbDevice) Close() error {
	var firstErr error
	if g.intf != nil {
		g.intf.Close()
	}
	if g.config != nil {
		if err := g.config.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.dev != nil {
		if err := g.dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.ctx != nil {
		if err := g.ctx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return wrapErr(KindTransport, "close device", firstErr)
	}
	return nil
}

// openBySelector walks the gousb device list and opens the device matching
// sel, per the enumeration rules in enumerate.go.
func openBySelector(sel Selector) (*gousbDevice, error) {
	if sel.kind == selectFd {
		return openByFd(sel.fd)
	}

	ctx := gousb.NewContext()

	if sel.kind == selectIndex {
		idx := 0
		devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			if !isKnownVidPid(uint16(desc.Vendor), uint16(desc.Product)) {
				return false
			}
			keep := idx == sel.index
			idx++
			return keep
		})
		if err != nil {
			ctx.Close()
			return nil, wrapErr(KindTransport, "enumerate usb devices", err)
		}
		if len(devices) == 0 {
			ctx.Close()
			return nil, newErr(KindNotFound, "no device at that index")
		}
		for _, extra := range devices[1:] {
			extra.Close()
		}
		return openGousbDevice(ctx, devices[0])
	}

	// Serial matching needs the device opened first: the string descriptor
	// table isn't available from DeviceDesc alone.
	candidates, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isKnownVidPid(uint16(desc.Vendor), uint16(desc.Product))
	})
	if err != nil {
		ctx.Close()
		return nil, wrapErr(KindTransport, "enumerate usb devices", err)
	}
	var chosen *gousb.Device
	for _, d := range candidates {
		if chosen == nil {
			if s, err := d.SerialNumber(); err == nil && s == sel.serial {
				chosen = d
				continue
			}
		}
		d.Close()
	}
	if chosen == nil {
		ctx.Close()
		return nil, newErr(KindNotFound, "no device with that serial number")
	}
	return openGousbDevice(ctx, chosen)
}

func isKnownVidPid(vid, pid uint16) bool {
	for _, d := range KnownDevices {
		if d.VID == vid && d.PID == pid {
			return true
		}
	}
	return false
}
