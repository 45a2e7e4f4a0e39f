package core

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrUnknownMode = errors.New("unknown modulation/rate")

// ModulationClass groups modes by the PHY generation that defines them.
type ModulationClass int

const (
	ModulationDsss ModulationClass = iota
	ModulationOfdm
	ModulationErpOfdm
	ModulationHt
	ModulationVht
	ModulationHe
)

func (mc ModulationClass) String() string {
	switch mc {
	case ModulationDsss:
		return "DSSS"
	case ModulationOfdm:
		return "OFDM"
	case ModulationErpOfdm:
		return "ERP-OFDM"
	case ModulationHt:
		return "HT"
	case ModulationVht:
		return "VHT"
	case ModulationHe:
		return "HE"
	}
	return "UNKNOWN"
}

// Mode describes one modulation and coding scheme. It is an immutable value
// type; the catalogs below are the only constructors.
type Mode struct {
	Name          string
	Class         ModulationClass
	Mcs           uint8
	Constellation uint16 // constellation points: 2, 4, 16, 64, 256, 1024
	CodeNum       int    // coding rate numerator; 1/1 for DSSS
	CodeDen       int

	// legacyRateBps is the fixed data rate for DSSS and legacy OFDM modes,
	// which do not scale with channel width or spatial streams.
	legacyRateBps uint64
}

// IsZero reports whether m is the zero Mode (no mode selected).
func (m Mode) IsZero() bool { return m.Name == "" }

func (m Mode) String() string { return m.Name }

// bitsPerSubcarrier is log2 of the constellation size.
func (m Mode) bitsPerSubcarrier() float64 {
	return math.Log2(float64(m.Constellation))
}

// Per-width data subcarrier counts. HE numerology uses 78.125 kHz tones, so
// its counts differ from HT/VHT.
var (
	htVhtDataSubcarriers = map[uint16]float64{20: 52, 40: 108, 80: 234, 160: 468}
	heDataSubcarriers    = map[uint16]float64{20: 234, 40: 468, 80: 980, 160: 1960}
)

// DataRate returns the PHY data rate in bit/s for the given channel width,
// guard interval and number of spatial streams. HT modes encode the stream
// count in the MCS index; the nss argument is ignored for them.
func (m Mode) DataRate(widthMHz uint16, guardInterval time.Duration, nss uint8) uint64 {
	switch m.Class {
	case ModulationDsss, ModulationOfdm, ModulationErpOfdm:
		return m.legacyRateBps
	}

	streams := float64(nss)
	if m.Class == ModulationHt {
		streams = float64(m.Mcs/8 + 1)
	}
	if streams < 1 {
		streams = 1
	}

	var subcarriers float64
	var symbol time.Duration
	switch m.Class {
	case ModulationHe:
		subcarriers = heDataSubcarriers[widthMHz]
		symbol = 12800*time.Nanosecond + guardInterval
	default:
		subcarriers = htVhtDataSubcarriers[widthMHz]
		symbol = 3200*time.Nanosecond + guardInterval
	}
	if subcarriers == 0 {
		panic(fmt.Sprintf("core: no subcarrier count for %v at %d MHz", m.Class, widthMHz))
	}

	bitsPerSymbol := subcarriers * m.bitsPerSubcarrier() *
		float64(m.CodeNum) / float64(m.CodeDen) * streams
	return uint64(bitsPerSymbol / symbol.Seconds())
}

// mcsEntry is one row of the shared MCS definition table.
type mcsEntry struct {
	constellation uint16
	codeNum       int
	codeDen       int
}

// The base MCS ladder shared by HT (per 8 MCS), VHT and HE.
var mcsLadder = []mcsEntry{
	{2, 1, 2},    // BPSK 1/2
	{4, 1, 2},    // QPSK 1/2
	{4, 3, 4},    // QPSK 3/4
	{16, 1, 2},   // 16-QAM 1/2
	{16, 3, 4},   // 16-QAM 3/4
	{64, 2, 3},   // 64-QAM 2/3
	{64, 3, 4},   // 64-QAM 3/4
	{64, 5, 6},   // 64-QAM 5/6
	{256, 3, 4},  // 256-QAM 3/4
	{256, 5, 6},  // 256-QAM 5/6
	{1024, 3, 4}, // 1024-QAM 3/4
	{1024, 5, 6}, // 1024-QAM 5/6
}

// legacy OFDM catalog, indexed by rate in Mbit/s.
var ofdmRates = map[int]mcsEntry{
	6:  {2, 1, 2},
	9:  {2, 3, 4},
	12: {4, 1, 2},
	18: {4, 3, 4},
	24: {16, 1, 2},
	36: {16, 3, 4},
	48: {64, 2, 3},
	54: {64, 3, 4},
}

var dsssRatesKbps = map[int]bool{1000: true, 2000: true, 5500: true, 11000: true}

// ModeForMcs returns the mode for an MCS index of the given modulation
// class. It is the validating lookup used on configuration paths.
func ModeForMcs(class ModulationClass, mcs uint8) (Mode, error) {
	var max uint8
	switch class {
	case ModulationHt:
		max = 31
	case ModulationVht:
		max = 9
	case ModulationHe:
		max = 11
	default:
		return Mode{}, fmt.Errorf("%w: class %v has no MCS table", ErrUnknownMode, class)
	}
	if mcs > max {
		return Mode{}, fmt.Errorf("%w: %v MCS %d", ErrUnknownMode, class, mcs)
	}
	row := mcsLadder[mcs%uint8(len(mcsLadder))]
	if class == ModulationHt {
		row = mcsLadder[mcs%8]
	}
	return Mode{
		Name:          fmt.Sprintf("%sMcs%d", class, mcs),
		Class:         class,
		Mcs:           mcs,
		Constellation: row.constellation,
		CodeNum:       row.codeNum,
		CodeDen:       row.codeDen,
	}, nil
}

// HtMcs returns the HT mode for MCS 0-31. An out-of-range index is a
// programming error.
func HtMcs(mcs uint8) Mode {
	m, err := ModeForMcs(ModulationHt, mcs)
	if err != nil {
		panic(err)
	}
	return m
}

// VhtMcs returns the VHT mode for MCS 0-9.
func VhtMcs(mcs uint8) Mode {
	m, err := ModeForMcs(ModulationVht, mcs)
	if err != nil {
		panic(err)
	}
	return m
}

// HeMcs returns the HE mode for MCS 0-11.
func HeMcs(mcs uint8) Mode {
	m, err := ModeForMcs(ModulationHe, mcs)
	if err != nil {
		panic(err)
	}
	return m
}

// OfdmRate returns the legacy 20 MHz OFDM mode for the given rate in Mbit/s
// (6, 9, 12, 18, 24, 36, 48 or 54).
func OfdmRate(mbps int) Mode {
	row, ok := ofdmRates[mbps]
	if !ok {
		panic(fmt.Sprintf("core: no OFDM rate %d Mbit/s", mbps))
	}
	return Mode{
		Name:          fmt.Sprintf("OfdmRate%dMbps", mbps),
		Class:         ModulationOfdm,
		Constellation: row.constellation,
		CodeNum:       row.codeNum,
		CodeDen:       row.codeDen,
		legacyRateBps: uint64(mbps) * 1_000_000,
	}
}

// ErpOfdmRate returns the ERP-OFDM (2.4 GHz) mode for the given rate.
func ErpOfdmRate(mbps int) Mode {
	m := OfdmRate(mbps)
	m.Name = fmt.Sprintf("ErpOfdmRate%dMbps", mbps)
	m.Class = ModulationErpOfdm
	return m
}

// DsssRate returns the DSSS/HR-DSSS mode for the given rate in kbit/s
// (1000, 2000, 5500 or 11000).
func DsssRate(kbps int) Mode {
	if !dsssRatesKbps[kbps] {
		panic(fmt.Sprintf("core: no DSSS rate %d kbit/s", kbps))
	}
	constellation := uint16(2)
	if kbps > 2000 {
		constellation = 4 // CCK modes behave QPSK-like for error purposes
	}
	return Mode{
		Name:          fmt.Sprintf("DsssRate%dKbps", kbps),
		Class:         ModulationDsss,
		Constellation: constellation,
		CodeNum:       1,
		CodeDen:       1,
		legacyRateBps: uint64(kbps) * 1000,
	}
}
