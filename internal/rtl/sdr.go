package rtl

import "context"

// DirectSamplingMode selects whether the ADC samples through the tuner's
// mixer path or bypasses it for direct HF reception.
type DirectSamplingMode int

const (
	DirectSamplingOff DirectSamplingMode = iota
	DirectSamplingOn
	DirectSamplingOnSwap
)

// SDR owns one open device handle and its tuner, and sequences every
// register operation needed to bring the radio up, tune it, and stream
// samples. All methods assume single-threaded use, matching the
// concurrency model: one goroutine owns an SDR at a time.
type SDR struct {
	usb *gousbDevice
	dev *Device
	tun Tuner

	freqHz         uint32
	sampleRateHz   uint32
	bandwidthHz    int
	direct         DirectSamplingMode
	rtlXtalHz      uint32
	ppmCorrection  int
	offsetFreqHz   uint32
	forceBiasTee   bool
	forceDirectSmp bool
	fir            [16]int32
	gainMode       GainMode
	manualGainDb   int
}

// Open enumerates and claims a device matching sel but does not yet bring
// up the baseband or tuner; call Init for that.
func Open(sel Selector) (*SDR, error) {
	usb, err := openBySelector(sel)
	if err != nil {
		return nil, err
	}
	return &SDR{
		usb:       usb,
		dev:       newDevice(usb),
		rtlXtalHz: defRTLXtalFreq,
		fir:       DefaultFIR,
		direct:    DirectSamplingOff,
	}, nil
}

// Close releases the USB device. Callers that called Init should call
// DeinitBaseband first.
func (s *SDR) Close() error {
	return s.usb.Close()
}

// Init runs the full bring-up sequence: USB sanity write, baseband init,
// tuner detection under the I2C repeater, EEPROM decode, and tuner init.
func (s *SDR) Init() error {
	if err := s.testWrite(); err != nil {
		return err
	}
	if err := s.initBaseband(); err != nil {
		return err
	}

	if err := s.dev.SetI2CRepeater(true); err != nil {
		return err
	}
	tun := newR820TTuner(s.dev, s.rtlXtalHz)
	check, err := tun.readReg1(0x00)
	if err != nil {
		s.dev.SetI2CRepeater(false)
		return wrapErr(KindProtocol, "probing tuner over i2c", err)
	}
	if check != 0x69 {
		s.dev.SetI2CRepeater(false)
		return newErr(KindProtocol, "no supported tuner found (only R820T is implemented)")
	}
	s.tun = tun

	if err := tun.SetXtalFreq(uint32(float64(s.rtlXtalHz) * (1 + float64(s.ppmCorrection)/1e6))); err != nil {
		s.dev.SetI2CRepeater(false)
		return err
	}

	if err := s.dev.DemodWriteReg(1, 0xb1, 0x1a, 1); err != nil { // disable Zero-IF
		s.dev.SetI2CRepeater(false)
		return err
	}
	if err := s.dev.DemodWriteReg(0, 0x08, 0x4d, 1); err != nil { // In-phase ADC only
		s.dev.SetI2CRepeater(false)
		return err
	}
	if err := s.SetIfFreq(r82xxIFFreq); err != nil {
		s.dev.SetI2CRepeater(false)
		return err
	}
	if err := s.dev.DemodWriteReg(1, 0x15, 0x01, 1); err != nil { // enable spectrum inversion
		s.dev.SetI2CRepeater(false)
		return err
	}

	eeprom, err := s.dev.ReadEEPROM(0, eepromSize)
	if err == nil && len(eeprom) > 7 {
		s.forceBiasTee = eeprom[7]&0x02 == 0
		s.forceDirectSmp = eeprom[7]&0x01 != 0
	}

	if err := tun.Init(); err != nil {
		s.dev.SetI2CRepeater(false)
		return err
	}
	return s.dev.SetI2CRepeater(false)
}

func (s *SDR) testWrite() error {
	n, err := s.usb.ControlOut(ctrlOut, 0, regUSBSysCtl, BlockUSB<<8|0x10, []byte{0x09})
	if err != nil {
		return err
	}
	if n == 0 {
		return s.usb.Reset()
	}
	return nil
}

// initBaseband runs the ~25-write USB/demod bring-up sequence.
func (s *SDR) initBaseband() error {
	writes1 := []struct {
		block, addr uint16
		val         uint16
		length      int
	}{
		{BlockUSB, regUSBSysCtl, 0x09, 1},
		{BlockUSB, regUSBEpaMaxPkt, 0x0002, 2},
		{BlockUSB, regUSBEpaCtl, 0x1002, 2},
		{BlockSys, regDemodCtl1, 0x22, 1},
		{BlockSys, regDemodCtl, 0xe8, 1},
	}
	for _, w := range writes1 {
		if err := s.dev.WriteReg(w.block, w.addr, w.val, w.length); err != nil {
			return err
		}
	}

	demodWrites1 := []struct {
		page, addr uint16
		val        uint16
		length     int
	}{
		{1, 0x01, 0x14, 1}, // soft reset assert
		{1, 0x01, 0x10, 1}, // soft reset release
		{1, 0x15, 0x00, 1}, // disable spectrum inversion
		{1, 0x16, 0x0000, 2},
	}
	for _, w := range demodWrites1 {
		if err := s.dev.DemodWriteReg(w.page, w.addr, w.val, w.length); err != nil {
			return err
		}
	}
	for i := uint16(0); i < 6; i++ {
		if err := s.dev.DemodWriteReg(1, 0x16+i, 0x00, 1); err != nil {
			return err
		}
	}

	if err := s.writeFIR(); err != nil {
		return err
	}

	tail := []struct {
		page, addr uint16
		val        uint16
		length     int
	}{
		{0, 0x19, 0x05, 1}, // SDR mode, disable DAGC
		{1, 0x93, 0xf0, 1}, // FSM state register
		{1, 0x9c, 0x3e, 1}, // FSM state register
		{1, 0x11, 0x00, 1}, // disable AGC loop
		{1, 0x04, 0x00, 1}, // disable RF/IF AGC loop
		{0, 0x61, 0x60, 1}, // disable PID filter
		{0, 0x06, 0x80, 1}, // default ADC I/Q datapath
		{1, 0xb1, 0x1b, 1}, // Zero-IF + DC cancellation + IQ compensation
		{0, 0x0d, 0x83, 1}, // disable 4.096 MHz clock output
	}
	for _, w := range tail {
		if err := s.dev.DemodWriteReg(w.page, w.addr, w.val, w.length); err != nil {
			return err
		}
	}
	return nil
}

// writeFIR packs the controller's current FIR coefficients and loads them
// into demod-1 registers 0x1c..0x2f, one register per byte.
func (s *SDR) writeFIR() error {
	packed, err := packFIR(s.fir)
	if err != nil {
		return err
	}
	for i, b := range packed {
		if err := s.dev.DemodWriteReg(1, 0x1c+uint16(i), uint16(b), 1); err != nil {
			return err
		}
	}
	return nil
}

// SetFIR replaces the decimation filter coefficients and reloads them.
func (s *SDR) SetFIR(coeffs [16]int32) error {
	s.fir = coeffs
	return s.writeFIR()
}

// SetIfFreq programs the demod's IF mixer to hz.
func (s *SDR) SetIfFreq(hz uint32) error {
	ifVal := -(int64(hz) << 22) / int64(s.rtlXtalHz)
	if err := s.dev.DemodWriteReg(1, 0x19, uint16((ifVal>>16)&0x3f), 1); err != nil {
		return err
	}
	if err := s.dev.DemodWriteReg(1, 0x1a, uint16((ifVal>>8)&0xff), 1); err != nil {
		return err
	}
	return s.dev.DemodWriteReg(1, 0x1b, uint16(ifVal&0xff), 1)
}

// SetSampleRate quantizes and programs the decimation ratio, per the rate
// math in the component design: rejects the dead band (300kHz, 900kHz]
// and anything outside (225kHz, 3.2MHz].
func (s *SDR) SetSampleRate(hz uint32) error {
	if hz <= 225_000 || hz > 3_200_000 || (hz > 300_000 && hz <= 900_000) {
		return newErr(KindInvalid, "sample rate outside the supported range")
	}

	rsampRatio := ((uint64(s.rtlXtalHz) << 22) / uint64(hz)) & 0x0ffffffc
	realRatio := rsampRatio | ((rsampRatio & 0x08000000) << 1)
	realRate := (uint64(s.rtlXtalHz) << 22) / realRatio
	s.sampleRateHz = uint32(realRate)

	if s.tun != nil {
		if err := s.tun.SetBandwidth(s.bandwidthHz, s.sampleRateHz); err != nil {
			return err
		}
		if err := s.SetIfFreq(s.tun.IFFreq()); err != nil {
			return err
		}
	}

	if err := s.dev.DemodWriteReg(1, 0x9f, uint16(rsampRatio>>16), 2); err != nil {
		return err
	}
	if err := s.dev.DemodWriteReg(1, 0xa1, uint16(rsampRatio&0xffff), 2); err != nil {
		return err
	}
	if err := s.applyFreqCorrection(); err != nil {
		return err
	}
	if err := s.dev.DemodWriteReg(1, 0x01, 0x14, 1); err != nil {
		return err
	}
	if err := s.dev.DemodWriteReg(1, 0x01, 0x10, 1); err != nil {
		return err
	}
	return nil
}

// SampleRate reports the last achieved (quantized) sample rate.
func (s *SDR) SampleRate() uint32 { return s.sampleRateHz }

func (s *SDR) applyFreqCorrection() error {
	offs := int16(-int64(s.ppmCorrection) * (1 << 24) / 1_000_000)
	if err := s.dev.DemodWriteReg(1, 0x3e, uint16(byte(offs)), 1); err != nil {
		return err
	}
	return s.dev.DemodWriteReg(1, 0x3f, uint16(byte(offs>>8)), 1)
}

// SetFreqCorrection stores ppm, reprograms the sample-frequency correction
// registers, and retunes at the current frequency.
func (s *SDR) SetFreqCorrection(ppm int) error {
	s.ppmCorrection = ppm
	if err := s.applyFreqCorrection(); err != nil {
		return err
	}
	if s.freqHz != 0 {
		return s.SetCenterFreq(s.freqHz)
	}
	return nil
}

// FreqCorrection reports the stored PPM correction.
func (s *SDR) FreqCorrection() int { return s.ppmCorrection }

// SetCenterFreq tunes the radio to hz, via the tuner unless direct
// sampling is active, in which case it reprograms the IF mixer instead.
func (s *SDR) SetCenterFreq(hz uint32) error {
	if s.direct != DirectSamplingOff {
		if err := s.SetIfFreq(hz); err != nil {
			return err
		}
		s.freqHz = hz
		return nil
	}
	if err := s.dev.SetI2CRepeater(true); err != nil {
		return err
	}
	err := s.tun.SetFreq(hz - s.offsetFreqHz)
	if rerr := s.dev.SetI2CRepeater(false); err == nil {
		err = rerr
	}
	if err != nil {
		s.freqHz = 0
		return err
	}
	s.freqHz = hz
	return nil
}

// CenterFreq reports the frequency set by the last SetCenterFreq call, or
// 0 if that call failed.
func (s *SDR) CenterFreq() uint32 { return s.freqHz }

// SetTunerGain sets automatic or manual gain, bracketed by the I2C
// repeater around the tuner access.
func (s *SDR) SetTunerGain(mode GainMode, tenthsDb int) error {
	if err := s.dev.SetI2CRepeater(true); err != nil {
		return err
	}
	err := s.tun.SetGain(mode, tenthsDb)
	if rerr := s.dev.SetI2CRepeater(false); err == nil {
		err = rerr
	}
	if err == nil {
		s.gainMode = mode
		s.manualGainDb = tenthsDb
	}
	return err
}

// TunerGains returns the tuner's fixed gain vector, in tenths of a dB.
func (s *SDR) TunerGains() []int {
	if s.tun == nil {
		return nil
	}
	return s.tun.Gains()
}

// SetTestMode toggles the demod's built-in counter test pattern.
func (s *SDR) SetTestMode(on bool) error {
	if on {
		return s.dev.DemodWriteReg(0, 0x19, 0x03, 1)
	}
	return s.dev.DemodWriteReg(0, 0x19, 0x05, 1)
}

// SetDirectSampling transitions between the tuner path and the direct
// HF-sampling bypass, always finishing by retuning at the stored
// frequency so the newly selected path is live.
func (s *SDR) SetDirectSampling(mode DirectSamplingMode) error {
	if mode != DirectSamplingOff {
		if s.tun != nil {
			if err := s.dev.SetI2CRepeater(true); err != nil {
				return err
			}
			if err := s.tun.Exit(); err != nil {
				s.dev.SetI2CRepeater(false)
				return err
			}
			if err := s.dev.SetI2CRepeater(false); err != nil {
				return err
			}
		}
		if err := s.dev.DemodWriteReg(1, 0xb1, 0x1a, 1); err != nil {
			return err
		}
		if err := s.dev.DemodWriteReg(1, 0x15, 0x00, 1); err != nil {
			return err
		}
		if err := s.dev.DemodWriteReg(0, 0x08, 0x4d, 1); err != nil {
			return err
		}
		swap := uint16(0x80)
		if mode == DirectSamplingOnSwap {
			swap = 0x90
		}
		if err := s.dev.DemodWriteReg(0, 0x06, swap, 1); err != nil {
			return err
		}
	} else {
		if s.tun != nil {
			if err := s.dev.SetI2CRepeater(true); err != nil {
				return err
			}
			if err := s.tun.Init(); err != nil {
				s.dev.SetI2CRepeater(false)
				return err
			}
			if err := s.dev.SetI2CRepeater(false); err != nil {
				return err
			}
		}
		if err := s.dev.DemodWriteReg(1, 0xb1, 0x1b, 1); err != nil {
			return err
		}
		if err := s.dev.DemodWriteReg(0, 0x08, 0xcd, 1); err != nil {
			return err
		}
	}
	s.direct = mode
	return s.SetCenterFreq(s.freqHz)
}

// SetGPIOOutput configures pin as an output. It does not change the pin's
// output level; SetGPIOBit drives it.
func (s *SDR) SetGPIOOutput(pin uint) error {
	bit := uint16(1) << pin
	gpo, err := s.dev.ReadReg(BlockSys, regGPD, 1)
	if err != nil {
		return err
	}
	if err := s.dev.WriteReg(BlockSys, regGPD, gpo&^bit, 1); err != nil {
		return err
	}
	dir, err := s.dev.ReadReg(BlockSys, regGPOE, 1)
	if err != nil {
		return err
	}
	return s.dev.WriteReg(BlockSys, regGPOE, dir|bit, 1)
}

// SetGPIOBit drives pin high or low.
func (s *SDR) SetGPIOBit(pin uint, on bool) error {
	bit := uint16(1) << pin
	cur, err := s.dev.ReadReg(BlockSys, regGPO, 1)
	if err != nil {
		return err
	}
	var val uint16
	if on {
		val = cur | bit
	} else {
		val = cur &^ bit
	}
	return s.dev.WriteReg(BlockSys, regGPO, val, 1)
}

// SetBiasTee drives the antenna bias-tee GPIO; forceBiasTee (from the
// EEPROM) overrides the caller's request to always-on.
func (s *SDR) SetBiasTee(on bool) error {
	if s.forceBiasTee {
		on = true
	}
	if err := s.SetGPIOOutput(0); err != nil {
		return err
	}
	return s.SetGPIOBit(0, on)
}

// ResetBuffer toggles the USB endpoint's buffer reset bit.
func (s *SDR) ResetBuffer() error {
	if err := s.dev.WriteReg(BlockUSB, regUSBEpaCtl, 0x1002, 2); err != nil {
		return err
	}
	return s.dev.WriteReg(BlockUSB, regUSBEpaCtl, 0x0000, 2)
}

// ReadSync performs one blocking bulk read of up to n bytes.
func (s *SDR) ReadSync(ctx context.Context, n int) ([]byte, error) {
	return s.usb.BulkIn(ctx, n)
}

// DeinitBaseband tears down the tuner (under the I2C repeater) and powers
// off the demodulator and ADCs.
func (s *SDR) DeinitBaseband() error {
	if s.tun != nil {
		if err := s.dev.SetI2CRepeater(true); err != nil {
			return err
		}
		err := s.tun.Exit()
		if rerr := s.dev.SetI2CRepeater(false); err == nil {
			err = rerr
		}
		if err != nil {
			return err
		}
	}
	return s.dev.WriteReg(BlockSys, regDemodCtl, 0x20, 1)
}
