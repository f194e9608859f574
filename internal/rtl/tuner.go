package rtl

// Tuner is the dispatch surface the SDR controller uses against whatever
// tuner chip is attached. Only R820T is implemented; the interface exists
// so other tuner families (R828D, E4000, ...) can be slotted in later
// without specializing the controller to one chip.
type Tuner interface {
	Init() error
	Exit() error
	SetFreq(hz uint32) error
	SetBandwidth(bwHz int, sampleRateHz uint32) error
	SetGain(mode GainMode, tenthsDb int) error
	ReadGain() (int, error)
	IFFreq() uint32
	XtalFreq() uint32
	SetXtalFreq(hz uint32) error
	Gains() []int
}

// GainMode selects automatic or manual gain control.
type GainMode int

const (
	GainAuto GainMode = iota
	GainManual
)

// R820TGains is the fixed vector of gain values the chip supports, in
// tenths of a dB, ordered as the chip's internal steps ascend.
var R820TGains = []int{
	0, 9, 14, 27, 37, 77, 87, 125, 144, 157, 166, 197, 207, 229, 254,
	280, 297, 328, 338, 364, 372, 386, 402, 421, 434, 439, 445, 480, 496,
}

// r82xxLNAGainSteps and r82xxMixerGainSteps are the chip's per-step gain
// contributions in tenths of a dB; the manual-gain pipeline walks these
// alternately, accumulating steps until the requested gain is reached.
var r82xxLNAGainSteps = [16]int{
	0, 9, 13, 40, 38, 13, 31, 22, 26, 31, 26, 14, 19, 5, 35, 13,
}

var r82xxMixerGainSteps = [16]int{
	0, 5, 10, 10, 19, 9, 10, 25, 17, 10, 8, 16, 13, 6, 3, -8,
}

// xtalCapSel selects the crystal load-capacitor bank.
type xtalCapSel int

const (
	xtalCapLow30p xtalCapSel = iota
	xtalCapLow20p
	xtalCapLow10p
	xtalCapLow0p
	xtalCapHigh0p
)

// freqRange is one row of the mux frequency table: the chip's tracking
// filter, RF mux and tuning configuration below a frequency threshold.
type freqRange struct {
	freqMHz      int
	openD        byte
	rfMuxPloy    byte
	tfC          byte
	xtalCap20p   byte
	xtalCap10p   byte
	xtalCap0p    byte
}

// muxTable is the 21-row tracking-filter selection table, ordered by
// ascending freqMHz; set_mux picks the last row not exceeding the target.
var muxTable = []freqRange{
	{0, 0x08, 0x02, 0xdf, 0x02, 0x01, 0x00},
	{50, 0x08, 0x02, 0xbe, 0x02, 0x01, 0x00},
	{55, 0x08, 0x02, 0x8b, 0x02, 0x01, 0x00},
	{60, 0x08, 0x02, 0x7b, 0x02, 0x01, 0x00},
	{65, 0x08, 0x02, 0x69, 0x02, 0x01, 0x00},
	{70, 0x08, 0x02, 0x58, 0x02, 0x01, 0x00},
	{75, 0x00, 0x02, 0x44, 0x02, 0x01, 0x00},
	{80, 0x00, 0x02, 0x44, 0x02, 0x01, 0x00},
	{90, 0x00, 0x02, 0x34, 0x01, 0x01, 0x00},
	{100, 0x00, 0x02, 0x34, 0x01, 0x01, 0x00},
	{110, 0x00, 0x02, 0x24, 0x01, 0x01, 0x00},
	{120, 0x00, 0x02, 0x24, 0x01, 0x01, 0x00},
	{140, 0x00, 0x02, 0x14, 0x01, 0x01, 0x00},
	{180, 0x00, 0x02, 0x13, 0x00, 0x00, 0x00},
	{220, 0x00, 0x02, 0x13, 0x00, 0x00, 0x00},
	{250, 0x00, 0x02, 0x11, 0x00, 0x00, 0x00},
	{280, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00},
	{310, 0x00, 0x41, 0x00, 0x00, 0x00, 0x00},
	{450, 0x00, 0x41, 0x00, 0x00, 0x00, 0x00},
	{588, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00},
	{650, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00},
}

// bwFineTable is the fine-grained bandwidth ladder in kHz, walked when the
// requested bandwidth falls below the coarse 5/6/7 MHz cases.
var bwFineTable = []int{1700, 1600, 1550, 1450, 1200, 900, 700, 550, 450, 350}

func nibbleReverseLUT() [16]byte {
	return [16]byte{
		0x0, 0x8, 0x4, 0xc, 0x2, 0xa, 0x6, 0xe,
		0x1, 0x9, 0x5, 0xd, 0x3, 0xb, 0x7, 0xf,
	}
}

func reverseByte(b byte) byte {
	lut := nibbleReverseLUT()
	return lut[b&0x0f]<<4 | lut[b>>4]
}
