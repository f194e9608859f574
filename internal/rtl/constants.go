package rtl

import "time"

// Register blocks, addressed through the high byte of the control
// transfer index.
const (
	BlockDemod uint16 = 0
	BlockUSB   uint16 = 1
	BlockSys   uint16 = 2
	BlockTun   uint16 = 3
	BlockROM   uint16 = 4
	BlockIRB   uint16 = 5
	BlockIIC   uint16 = 6
)

// Sys block registers.
const (
	regDemodCtl   uint16 = 0x3000
	regGPO        uint16 = 0x3001
	regGPOE       uint16 = 0x3003
	regGPD        uint16 = 0x3004
	regDemodCtl1  uint16 = 0x300b
)

// USB block registers.
const (
	regUSBSysCtl     uint16 = 0x2000
	regUSBEpaCtl     uint16 = 0x2148
	regUSBEpaMaxPkt  uint16 = 0x2158
)

const (
	eepromAddr uint16 = 0xa0
	eepromSize int    = 256
)

const ctrlTimeout = 300 * time.Millisecond

const interfaceID = 0

const bulkEndpoint = 0x81

// DefaultBufLength is the server's bulk-read size: 16 * 16384 bytes.
const DefaultBufLength = 16 * 16384

const defRTLXtalFreq uint32 = 28_800_000

const (
	minRTLXtalFreq = defRTLXtalFreq - 1000
	maxRTLXtalFreq = defRTLXtalFreq + 1000
)

// firLen is the number of FIR taps the decimation filter takes.
const firLen = 16

// DefaultFIR are the decimation filter coefficients written on baseband
// init: 8 int8 taps followed by 8 int12 taps.
var DefaultFIR = [firLen]int32{
	-54, -36, -41, -40, -32, -14, 14, 53,
	101, 156, 215, 273, 327, 372, 404, 421,
}

// regInit is the 27-byte R820T register image (indices 5..31) written on
// tuner init before TV-standard/sysfreq configuration.
var regInit = [27]byte{
	0x83, 0x32, 0x75, 0xc0, 0x40, 0xd6, 0x6c, 0xf5,
	0x63, 0x75, 0x68, 0x6c, 0x83, 0x80, 0x00, 0x0f,
	0x00, 0xc0, 0x30, 0x48, 0xcc, 0x60, 0x00, 0x54,
	0xae, 0x4a, 0xc0,
}

const r820tI2CAddr byte = 0x34

// r82xxIFFreq is the tuner's initial intermediate frequency in Hz;
// SetBandwidth moves the tuner's IF away from it for some filter choices.
const r82xxIFFreq = 3_570_000

// knownDevice pairs a USB vendor/product ID with a human description.
type knownDevice struct {
	VID, PID    uint16
	Description string
}

// KnownDevices is the 42-entry table of (VID, PID) signatures recognized
// as RTL2832U-based dongles.
var KnownDevices = []knownDevice{
	{0x0bda, 0x2832, "Generic RTL2832U"},
	{0x0bda, 0x2838, "Generic RTL2832U OEM"},
	{0x0413, 0x6680, "DigitalNow Quad DVB-T PCI-E card"},
	{0x0413, 0x6f0f, "Leadtek WinFast DTV Dongle mini D"},
	{0x0458, 0x707f, "Genius TVGo DVB-T03 USB dongle (Ver. B)"},
	{0x0ccd, 0x00a9, "Terratec Cinergy T Stick Black (rev 1)"},
	{0x0ccd, 0x00b3, "Terratec NOXON DAB/DAB+ USB dongle (rev 1)"},
	{0x0ccd, 0x00b4, "Terratec Deutschlandradio DAB Stick"},
	{0x0ccd, 0x00b5, "Terratec NOXON DAB Stick - Radio Energy"},
	{0x0ccd, 0x00b7, "Terratec Media Broadcast DAB Stick"},
	{0x0ccd, 0x00b8, "Terratec BR DAB Stick"},
	{0x0ccd, 0x00b9, "Terratec WDR DAB Stick"},
	{0x0ccd, 0x00c0, "Terratec MuellerVerlag DAB Stick"},
	{0x0ccd, 0x00c6, "Terratec Fraunhofer DAB Stick"},
	{0x0ccd, 0x00d3, "Terratec Cinergy T Stick RC (Rev.3)"},
	{0x0ccd, 0x00d7, "Terratec T Stick PLUS"},
	{0x0ccd, 0x00e0, "Terratec NOXON DAB/DAB+ USB dongle (rev 2)"},
	{0x1554, 0x5020, "PixelView PV-DT235U(RN)"},
	{0x15f4, 0x0131, "Astrometa DVB-T/DVB-T2"},
	{0x15f4, 0x0133, "HanfTek DAB+FM+DVB-T"},
	{0x185b, 0x0620, "Compro Videomate U620F"},
	{0x185b, 0x0650, "Compro Videomate U650F"},
	{0x185b, 0x0680, "Compro Videomate U680F"},
	{0x1b80, 0xd393, "GIGABYTE GT-U7300"},
	{0x1b80, 0xd394, "DIKOM USB-DVBT HD"},
	{0x1b80, 0xd395, "Peak 102569AGPK"},
	{0x1b80, 0xd397, "KWorld KW-UB450-T USB DVB-T Pico TV"},
	{0x1b80, 0xd398, "Zaapa ZT-MINDVBZP"},
	{0x1b80, 0xd39d, "SVEON STV20 DVB-T USB & FM"},
	{0x1b80, 0xd3a4, "Twintech UT-40"},
	{0x1b80, 0xd3a8, "ASUS U3100MINI_PLUS_V2"},
	{0x1b80, 0xd3af, "SVEON STV27 DVB-T USB & FM"},
	{0x1b80, 0xd3b0, "SVEON STV21 DVB-T USB & FM"},
	{0x1d19, 0x1101, "Dexatek DK DVB-T Dongle (Logilink VG0002A)"},
	{0x1d19, 0x1102, "Dexatek DK DVB-T Dongle (MSI DigiVox mini II V3.0)"},
	{0x1d19, 0x1103, "Dexatek Technology Ltd. DK 5217 DVB-T Dongle"},
	{0x1d19, 0x1104, "MSI DigiVox Micro HD"},
	{0x1f4d, 0xa803, "Sweex DVB-T USB"},
	{0x1f4d, 0xb803, "GTek T803"},
	{0x1f4d, 0xc803, "Lifeview LV5TDeluxe"},
	{0x1f4d, 0xd286, "MyGica TD312"},
	{0x1f4d, 0xd803, "PROlectrix DV107669"},
}
