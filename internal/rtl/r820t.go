package rtl

import "fmt"

// R820T tuner register addresses referenced by name below; the rest of the
// 32-register image is only ever touched through writeRegMask/writeRegs.
const (
	r820tRegVCOCurrent = 0x12
	r820tRegDivNum     = 0x10 // also carries refdiv2 (bit4) and xtal cap (bits1:0)
	r820tRegAutoTune   = 0x1a
	r820tRegFineTune   = 0x04
	r820tRegSDMCtl     = 0x12
	r820tRegNInt       = 0x14
	r820tRegSDMLSB     = 0x15
	r820tRegSDMMSB     = 0x16
	r820tRegPLLLock    = 0x02
	r820tRegOpenD      = 0x17
	r820tRegRFMuxPloy  = 0x1a
	r820tRegTFC        = 0x1b
	r820tRegBWLow      = 0x0a
	r820tRegBWHigh     = 0x0b
	r820tRegLNAGain    = 0x05
	r820tRegMixerGain  = 0x07
	r820tRegVGA        = 0x0c
	r820tRegCalClock   = 0x0f
	r820tRegCalTrigger = 0x0b
)

// r820tTuner implements Tuner against the register plane of an attached
// R820T chip reachable over the demod's I2C bridge.
type r820tTuner struct {
	dev *Device

	// cache mirrors the chip's writable registers (indices 5..31) so
	// write_reg_mask never needs a round-trip read.
	cache [32]byte

	freqHz     uint32
	ifFreqHz   uint32
	xtalFreqHz uint32
	capSel     xtalCapSel
	calCode    byte
	hasLock    bool
	initDone   bool
	predetect  bool
}

func newR820TTuner(dev *Device, xtalFreqHz uint32) *r820tTuner {
	return &r820tTuner{
		dev:        dev,
		ifFreqHz:   r82xxIFFreq,
		xtalFreqHz: xtalFreqHz,
		capSel:     xtalCapHigh0p,
	}
}

func (t *r820tTuner) IFFreq() uint32     { return t.ifFreqHz }
func (t *r820tTuner) XtalFreq() uint32   { return t.xtalFreqHz }
func (t *r820tTuner) Gains() []int       { return R820TGains }
func (t *r820tTuner) SetXtalFreq(hz uint32) error {
	t.xtalFreqHz = hz
	return nil
}

// writeRegs issues chunked I2C writes starting at reg, no more than 7 data
// bytes per transaction (1 register address byte + up to 7 data bytes),
// and mirrors every byte written into the cache.
func (t *r820tTuner) writeRegs(reg byte, data []byte) error {
	for off := 0; off < len(data); {
		n := len(data) - off
		if n > 7 {
			n = 7
		}
		if err := t.dev.I2CWriteArray(r820tI2CAddr, reg+byte(off), data[off:off+n]); err != nil {
			return wrapErr(KindTransport, "r820t write regs", err)
		}
		for i := 0; i < n; i++ {
			idx := int(reg) + off + i
			if idx >= 0 && idx < len(t.cache) {
				t.cache[idx] = data[off+i]
			}
		}
		off += n
	}
	return nil
}

// writeRegMask performs a cache-mirrored read-modify-write of a single
// register byte.
func (t *r820tTuner) writeRegMask(reg byte, val, mask byte) error {
	cur := t.cache[reg]
	newVal := (cur &^ mask) | (val & mask)
	if err := t.dev.I2CWriteReg(r820tI2CAddr, reg, newVal); err != nil {
		return wrapErr(KindTransport, fmt.Sprintf("r820t write reg %#x", reg), err)
	}
	t.cache[reg] = newVal
	return nil
}

// readReg reads length bytes starting at reg and bit-reverses each one;
// the chip's I2C readback is bit-order-swapped relative to its register
// layout.
func (t *r820tTuner) readReg(reg byte, length int) ([]byte, error) {
	raw, err := t.dev.I2CReadArray(r820tI2CAddr, reg, length)
	if err != nil {
		return nil, wrapErr(KindTransport, "r820t read reg", err)
	}
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = reverseByte(b)
	}
	return out, nil
}

func (t *r820tTuner) readReg1(reg byte) (byte, error) {
	b, err := t.readReg(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Init loads the default register image, runs the filter calibration loop
// and sysfreq selection for digital TV, matching the chip's power-up
// sequence.
func (t *r820tTuner) Init() error {
	if err := t.writeRegs(5, regInit[:]); err != nil {
		return err
	}
	if err := t.setTVStandard(); err != nil {
		return err
	}
	if err := t.sysfreqSel(); err != nil {
		return err
	}
	t.initDone = true
	return nil
}

func (t *r820tTuner) setTVStandard() error {
	var code byte = 0x0f
	for attempt := 0; attempt < 2; attempt++ {
		if err := t.writeRegMask(r820tRegBWHigh, t.calCode<<5, 0x60); err != nil {
			return err
		}
		if err := t.writeRegMask(r820tRegCalClock, 0x04, 0x04); err != nil {
			return err
		}
		if err := t.setPLL(56_000_000); err != nil {
			return err
		}
		if err := t.writeRegMask(r820tRegCalTrigger, 0x10, 0x10); err != nil {
			return err
		}
		if err := t.writeRegMask(r820tRegCalTrigger, 0x00, 0x10); err != nil {
			return err
		}
		b, err := t.readReg1(r820tRegFineTune)
		if err != nil {
			return err
		}
		code = b & 0x0f
		if code != 0x0f {
			break
		}
		t.calCode++
	}
	if err := t.writeRegMask(r820tRegCalClock, 0x00, 0x04); err != nil {
		return err
	}
	if code == 0x0f {
		return newErr(KindProtocol, "r820t filter calibration did not converge")
	}
	return nil
}

// sysfreqSel applies the fixed set of LNA/mixer top-level, discharge, AGC
// clock and cable-input writes the chip needs for digital-TV reception.
func (t *r820tTuner) sysfreqSel() error {
	writes := []struct {
		reg, val, mask byte
	}{
		{0x06, 0x00, 0x10}, // cable-2 input disabled
		{0x1d, 0x00, 0x38}, // LNA top
		{0x1c, 0x00, 0x04}, // LNA discharge current
		{0x0d, 0x00, 0x38}, // mixer top
		{0x0e, 0x00, 0x02}, // mixer discharge current
		{0x08, 0x00, 0x3f}, // IMR of image gain
		{0x09, 0x00, 0x3f}, // IMR of image phase
		{0x10, 0x00, 0x04}, // channel filter extra low
		{0x0a, 0x00, 0x40}, // filter current
		{0x1e, 0x00, 0x60}, // AGC clock
		{0x1a, 0x00, 0x0c}, // PLL filter
		{0x1d, 0x00, 0x06}, // cable input selection
	}
	for _, w := range writes {
		if err := t.writeRegMask(w.reg, w.val, w.mask); err != nil {
			return err
		}
	}
	return nil
}

// Exit puts the chip into standby if it was ever initialized.
func (t *r820tTuner) Exit() error {
	if !t.initDone {
		return nil
	}
	standby := []struct {
		reg, val, mask byte
	}{
		{0x06, 0xb1, 0xff},
		{0x05, 0xa0, 0xff},
		{0x07, 0x3a, 0xff},
		{0x08, 0x40, 0xff},
		{0x09, 0xc0, 0xff},
		{0x0a, 0x36, 0xff},
		{0x0c, 0x35, 0xff},
		{0x0f, 0x68, 0xff},
		{0x11, 0x03, 0xff},
		{0x17, 0xf4, 0xff},
		{0x19, 0x0c, 0xff},
	}
	for _, w := range standby {
		if err := t.writeRegMask(w.reg, w.val, w.mask); err != nil {
			return err
		}
	}
	t.initDone = false
	return nil
}

// setPLL synthesizes the local oscillator for freqHz, per the PLL
// algorithm in the tuner's component design.
func (t *r820tTuner) setPLL(freqHz uint32) error {
	freqKhz := (int64(freqHz) + 500) / 1000
	pllRefKhz := (int64(t.xtalFreqHz) + 500) / 1000

	if err := t.writeRegMask(r820tRegDivNum, 0x00, 0x10); err != nil { // clear refdiv2
		return err
	}
	if err := t.writeRegMask(r820tRegAutoTune, 0x00, 0x08); err != nil { // auto-tune 128 kHz
		return err
	}
	if err := t.writeRegMask(r820tRegVCOCurrent, 0x80, 0xe0); err != nil {
		return err
	}

	mixDivs := []int64{2, 4, 8, 16, 32, 64}
	var mixDiv int64 = 2
	divNum := 0
	for i, md := range mixDivs {
		if freqKhz*md >= 1_770_000 && freqKhz*md < 3_540_000 {
			mixDiv = md
			divNum = i
			break
		}
	}

	fineTuneByte, err := t.readReg1(r820tRegFineTune)
	if err != nil {
		return err
	}
	vcoFineTune := (fineTuneByte >> 4) & 0x03
	if vcoFineTune > 2 {
		divNum--
	} else if vcoFineTune < 2 {
		divNum++
	}
	if divNum < 0 {
		divNum = 0
	}
	if divNum > 5 {
		divNum = 5
	}
	if err := t.writeRegMask(r820tRegDivNum, byte(divNum)<<5, 0xe0); err != nil {
		return err
	}

	vcoFreq := freqKhz * mixDiv * 1000
	nint := vcoFreq / (2 * int64(t.xtalFreqHz))
	vcoFraKhz := (vcoFreq - 2*int64(t.xtalFreqHz)*nint) / 1000
	if nint > 63 {
		return newErr(KindInvalid, "no valid PLL values for requested frequency")
	}

	ni := (nint - 13) / 4
	si := nint - 4*ni - 13
	if err := t.writeRegMask(r820tRegNInt, byte(ni)+byte(si<<6), 0xff); err != nil {
		return err
	}

	sdmEnable := vcoFraKhz != 0
	if sdmEnable {
		if err := t.writeRegMask(r820tRegSDMCtl, 0x08, 0x08); err != nil {
			return err
		}
	} else {
		if err := t.writeRegMask(r820tRegSDMCtl, 0x00, 0x08); err != nil {
			return err
		}
	}

	sdm := 0
	nSdm := int64(2)
	vcoFra := vcoFraKhz
	for vcoFra > 1 {
		thresh := 2 * pllRefKhz / nSdm
		if vcoFra > thresh {
			sdm += int(32768 / (nSdm / 2))
			vcoFra -= thresh
			if nSdm >= 0x8000 {
				break
			}
		}
		nSdm <<= 1
	}
	if err := t.writeRegMask(r820tRegSDMLSB, byte(sdm&0xff), 0xff); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegSDMMSB, byte((sdm>>8)&0xff), 0xff); err != nil {
		return err
	}

	t.hasLock = false
	for poll := 0; poll < 2; poll++ {
		b, err := t.readReg1(r820tRegPLLLock)
		if err != nil {
			return err
		}
		if b&0x40 != 0 {
			t.hasLock = true
			break
		}
		if poll == 0 {
			if err := t.writeRegMask(r820tRegVCOCurrent, 0x60, 0xe0); err != nil {
				return err
			}
		}
	}
	if t.hasLock {
		if err := t.writeRegMask(r820tRegAutoTune, 0x08, 0x08); err != nil {
			return err
		}
	}
	return nil
}

// setMux selects the tracking filter row for freqHz and applies the
// matching xtal-cap selection.
func (t *r820tTuner) setMux(freqHz uint32) error {
	freqMHz := int(freqHz / 1_000_000)
	row := muxTable[0]
	for _, r := range muxTable {
		if r.freqMHz <= freqMHz {
			row = r
		} else {
			break
		}
	}
	if err := t.writeRegMask(r820tRegOpenD, row.openD, 0x08); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegRFMuxPloy, row.rfMuxPloy, 0xc3); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegTFC, row.tfC, 0xff); err != nil {
		return err
	}
	var capByte byte
	switch t.capSel {
	case xtalCapLow30p, xtalCapLow20p:
		capByte = row.xtalCap20p
	case xtalCapLow10p:
		capByte = row.xtalCap10p
	default:
		capByte = row.xtalCap0p
	}
	return t.writeRegMask(r820tRegDivNum, capByte, 0x03)
}

// SetFreq retunes the local oscillator: mux selection followed by PLL
// synthesis at freq + the tuner's current IF frequency.
func (t *r820tTuner) SetFreq(hz uint32) error {
	loFreq := hz + t.ifFreqHz
	if err := t.setMux(loFreq); err != nil {
		return err
	}
	if err := t.setPLL(loFreq); err != nil {
		return err
	}
	t.freqHz = hz
	return nil
}

// SetBandwidth implements the coarse/fine bandwidth-filter selection.
func (t *r820tTuner) SetBandwidth(bwHz int, sampleRateHz uint32) error {
	switch {
	case bwHz > 7_000_000:
		if err := t.writeRegMask(r820tRegBWLow, 0x10, 0x10); err != nil {
			return err
		}
		if err := t.writeRegMask(r820tRegBWHigh, 0x0b, 0xef); err != nil {
			return err
		}
		t.ifFreqHz = 4_570_000
	case bwHz > 6_000_000:
		if err := t.writeRegMask(r820tRegBWHigh, 0x2a, 0xef); err != nil {
			return err
		}
	case bwHz > 5_000_000:
		if err := t.writeRegMask(r820tRegBWHigh, 0x6b, 0xef); err != nil {
			return err
		}
		t.ifFreqHz = 3_570_000
	default:
		residualKhz := bwHz / 1000
		chosen := bwFineTable[len(bwFineTable)-1]
		idx := len(bwFineTable) - 1
		for i, kHz := range bwFineTable {
			if kHz < residualKhz {
				chosen = kHz
				idx = i
				break
			}
		}
		code := byte(0x0f - idx)
		if err := t.writeRegMask(r820tRegBWHigh, code, 0xef); err != nil {
			return err
		}
		t.ifFreqHz = uint32(chosen/2) * 1000
	}
	return t.SetFreq(t.freqHz)
}

// SetGain drives either the automatic gain registers or walks the manual
// LNA/mixer gain-step tables toward tenthsDb.
func (t *r820tTuner) SetGain(mode GainMode, tenthsDb int) error {
	if mode == GainAuto {
		if err := t.writeRegMask(r820tRegLNAGain, 0x00, 0x10); err != nil {
			return err
		}
		if err := t.writeRegMask(r820tRegMixerGain, 0x10, 0x10); err != nil {
			return err
		}
		return t.writeRegMask(r820tRegVGA, 0x0b, 0x9f)
	}

	if err := t.writeRegMask(r820tRegLNAGain, 0x10, 0x10); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegMixerGain, 0x00, 0x10); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegVGA, 0x08, 0x9f); err != nil {
		return err
	}

	var lnaIdx, mixIdx int
	total := 0
	for step := 0; step < 30 && total < tenthsDb; step++ {
		if step%2 == 0 && lnaIdx < 15 {
			lnaIdx++
			total += r82xxLNAGainSteps[lnaIdx]
		} else if mixIdx < 15 {
			mixIdx++
			total += r82xxMixerGainSteps[mixIdx]
		}
	}
	if err := t.writeRegMask(r820tRegLNAGain, byte(lnaIdx), 0x0f); err != nil {
		return err
	}
	if err := t.writeRegMask(r820tRegMixerGain, byte(mixIdx), 0x0f); err != nil {
		return err
	}
	return t.writeRegMask(r820tRegVGA, 0x0b, 0x9f)
}

// ReadGain reports the current cached gain-register total in tenths of dB.
func (t *r820tTuner) ReadGain() (int, error) {
	lna := t.cache[r820tRegLNAGain] & 0x0f
	mix := t.cache[r820tRegMixerGain] & 0x0f
	total := 0
	for i := 1; i <= int(lna) && i < len(r82xxLNAGainSteps); i++ {
		total += r82xxLNAGainSteps[i]
	}
	for i := 1; i <= int(mix) && i < len(r82xxMixerGainSteps); i++ {
		total += r82xxMixerGainSteps[i]
	}
	return total, nil
}
