package rtl

import "log"

// Device is the register plane: every read/write to the RTL2832U passes
// through here as a USB vendor control transfer. Register reads come back
// little-endian; register writes go out big-endian. This asymmetry is
// verbatim in the reference driver and is not a bug to "fix".
type Device struct {
	usb usbTransport
}

func newDevice(usb usbTransport) *Device {
	return &Device{usb: usb}
}

// ReadReg reads length bytes (1 or 2) from addr in block, little-endian.
func (d *Device) ReadReg(block uint16, addr uint16, length int) (uint16, error) {
	index := block << 8
	data, err := d.usb.ControlIn(ctrlIn, 0, addr, index, length)
	if err != nil {
		return 0, err
	}
	if length == 1 {
		return uint16(data[0]), nil
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

// WriteReg writes length bytes (1 or 2) of val to addr in block, big-endian.
func (d *Device) WriteReg(block uint16, addr uint16, val uint16, length int) error {
	index := block<<8 | 0x10
	data := make([]byte, length)
	if length == 1 {
		data[0] = byte(val)
	} else {
		data[0] = byte(val >> 8)
		data[1] = byte(val)
	}
	_, err := d.usb.ControlOut(ctrlOut, 0, addr, index, data)
	return err
}

// WriteArray writes a raw byte sequence to a block with no endian swap,
// used for I2C and EEPROM passthrough.
func (d *Device) WriteArray(block uint16, addr uint16, data []byte) error {
	index := block<<8 | 0x10
	_, err := d.usb.ControlOut(ctrlOut, 0, addr, index, data)
	return err
}

// ReadArray reads a raw byte sequence from a block with no endian swap.
func (d *Device) ReadArray(block uint16, addr uint16, length int) ([]byte, error) {
	index := block << 8
	return d.usb.ControlIn(ctrlIn, 0, addr, index, length)
}

// DemodReadReg reads a demodulator register on the given page. The chip
// always returns a single byte; the result is MSB-aligned in the u16
// (the byte read is returned shifted left by 8).
func (d *Device) DemodReadReg(page uint16, addr uint16) (uint16, error) {
	regAddr := addr<<8 | 0x20
	data, err := d.usb.ControlIn(ctrlIn, 0, regAddr, page, 1)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) << 8, nil
}

// DemodWriteReg writes a demodulator register on the given page, then
// issues the mandatory dummy read of page 0x0a addr 0x01. Skipping the
// dummy read corrupts the next write on real hardware, so it always runs
// even if the write itself failed. The write's own error is logged and
// swallowed, matching the reference driver: only the dummy read's error
// is ever returned to the caller.
func (d *Device) DemodWriteReg(page uint16, addr uint16, val uint16, length int) error {
	index := page | 0x10
	regAddr := addr<<8 | 0x20
	data := make([]byte, length)
	if length == 1 {
		data[0] = byte(val)
	} else {
		data[0] = byte(val >> 8)
		data[1] = byte(val)
	}
	if _, err := d.usb.ControlOut(ctrlOut, 0, regAddr, index, data); err != nil {
		log.Printf("rtl: demod write reg page=%#x addr=%#x failed: %v", page, addr, err)
	}
	_, err := d.DemodReadReg(0x0a, 0x01)
	return err
}

// I2CWriteReg writes a single register on an I2C device reachable through
// the demod's I2C bridge (the tuner's own register plane).
func (d *Device) I2CWriteReg(i2cAddr, reg, val byte) error {
	return d.WriteArray(BlockIIC, uint16(i2cAddr), []byte{reg, val})
}

// I2CReadReg reads a single register on an I2C device.
func (d *Device) I2CReadReg(i2cAddr, reg byte) (byte, error) {
	if err := d.WriteArray(BlockIIC, uint16(i2cAddr), []byte{reg}); err != nil {
		return 0, err
	}
	data, err := d.ReadArray(BlockIIC, uint16(i2cAddr), 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// I2CWriteArray writes a contiguous block starting at reg.
func (d *Device) I2CWriteArray(i2cAddr, reg byte, vals []byte) error {
	buf := make([]byte, len(vals)+1)
	buf[0] = reg
	copy(buf[1:], vals)
	return d.WriteArray(BlockIIC, uint16(i2cAddr), buf)
}

// I2CReadArray reads a contiguous block starting at reg.
func (d *Device) I2CReadArray(i2cAddr, reg byte, length int) ([]byte, error) {
	if err := d.WriteArray(BlockIIC, uint16(i2cAddr), []byte{reg}); err != nil {
		return nil, err
	}
	return d.ReadArray(BlockIIC, uint16(i2cAddr), length)
}

// SetI2CRepeater gates the demod's I2C repeater so bus traffic reaches the
// tuner. Every tuner I2C transaction must happen while the repeater is on.
func (d *Device) SetI2CRepeater(on bool) error {
	var val uint16
	if on {
		val = 0x18
	} else {
		val = 0x10
	}
	return d.DemodWriteReg(1, 0x01, val, 1)
}

// ReadEEPROM reads length bytes from the device's serial EEPROM starting
// at offset, one byte at a time via the I2C bridge. offset+length must not
// exceed the EEPROM's size; callers are expected to enforce this, so a
// violation panics rather than returning an error.
func (d *Device) ReadEEPROM(offset byte, length int) ([]byte, error) {
	if int(offset)+length > eepromSize {
		panic("rtl: eeprom read out of range")
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		off := offset + byte(i)
		if err := d.WriteArray(BlockIIC, eepromAddr, []byte{off}); err != nil {
			return nil, wrapErr(KindTransport, "eeprom write offset", err)
		}
		b, err := d.ReadArray(BlockIIC, eepromAddr, 1)
		if err != nil {
			return nil, wrapErr(KindTransport, "eeprom read byte", err)
		}
		out[i] = b[0]
	}
	return out, nil
}
