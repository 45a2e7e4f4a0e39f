package core

import (
	"fmt"
	"time"
)

// Preamble selects the PHY header format of a transmission.
type Preamble int

const (
	PreambleLong Preamble = iota
	PreambleShort
	PreambleHt
	PreambleVht
	PreambleHe
)

func (p Preamble) String() string {
	switch p {
	case PreambleLong:
		return "LONG"
	case PreambleShort:
		return "SHORT"
	case PreambleHt:
		return "HT"
	case PreambleVht:
		return "VHT"
	case PreambleHe:
		return "HE"
	}
	return "UNKNOWN"
}

// TxVector carries the transmission parameters of one PPDU: the "transmission
// vector" handed from the MAC to the PHY and recovered by receivers from the
// PHY headers. It is immutable once the PPDU has been built.
type TxVector struct {
	Mode            Mode
	Preamble        Preamble
	ChannelWidthMHz uint16
	GuardInterval   time.Duration
	Nss             uint8
	TxPowerLevel    uint8
	BssColor        uint8
	Aggregation     bool
}

// Validate rejects incoherent parameter combinations before any state is
// touched (fail fast, no partial mutation).
func (v TxVector) Validate() error {
	if v.Mode.IsZero() {
		return fmt.Errorf("%w: tx vector has no mode", ErrUnknownMode)
	}
	if !validChannelWidth(v.ChannelWidthMHz) {
		return fmt.Errorf("invalid tx vector: channel width %d MHz", v.ChannelWidthMHz)
	}
	switch v.Mode.Class {
	case ModulationDsss, ModulationOfdm, ModulationErpOfdm:
		if v.ChannelWidthMHz != 20 {
			return fmt.Errorf("invalid tx vector: %v requires 20 MHz, got %d", v.Mode.Class, v.ChannelWidthMHz)
		}
	}
	if v.Nss == 0 {
		return fmt.Errorf("invalid tx vector: zero spatial streams")
	}
	return nil
}

// hasNonLegacyHeader reports whether the preamble carries an HT-SIG /
// SIG-A style header after the legacy header.
func (v TxVector) hasNonLegacyHeader() bool {
	switch v.Preamble {
	case PreambleHt, PreambleVht, PreambleHe:
		return true
	}
	return false
}

// PreambleDetectionDuration is the correlation time a receiver needs to
// detect the start of an incoming frame.
const PreambleDetectionDuration = 4 * time.Microsecond

// PreambleDuration returns the duration of the PLCP preamble (training
// fields before the first header symbol).
func (v TxVector) PreambleDuration() time.Duration {
	if v.Mode.Class == ModulationDsss {
		if v.Preamble == PreambleShort {
			return 72 * time.Microsecond
		}
		return 144 * time.Microsecond
	}
	return 16 * time.Microsecond
}

// LegacyHeaderDuration returns the duration of the legacy header field
// (L-SIG for OFDM-based formats, the PLCP header for DSSS).
func (v TxVector) LegacyHeaderDuration() time.Duration {
	if v.Mode.Class == ModulationDsss {
		if v.Preamble == PreambleShort {
			return 24 * time.Microsecond
		}
		return 48 * time.Microsecond
	}
	return 4 * time.Microsecond
}

// NonLegacyHeaderDuration returns the duration of the format-specific header
// and training fields between the legacy header and the payload.
func (v TxVector) NonLegacyHeaderDuration() time.Duration {
	nss := time.Duration(v.Nss)
	if nss == 0 {
		nss = 1
	}
	switch v.Preamble {
	case PreambleHt:
		// HT-SIG + HT-STF + one HT-LTF per stream.
		return 8*time.Microsecond + 4*time.Microsecond + nss*4*time.Microsecond
	case PreambleVht:
		// VHT-SIG-A + VHT-STF + VHT-LTFs + VHT-SIG-B.
		return 8*time.Microsecond + 4*time.Microsecond + nss*4*time.Microsecond + 4*time.Microsecond
	case PreambleHe:
		// RL-SIG + HE-SIG-A + HE-STF + HE-LTFs.
		return 4*time.Microsecond + 8*time.Microsecond + 4*time.Microsecond + nss*8*time.Microsecond
	}
	return 0
}

// PreambleAndHeaderDuration is the total time before the first payload
// symbol.
func (v TxVector) PreambleAndHeaderDuration() time.Duration {
	return v.PreambleDuration() + v.LegacyHeaderDuration() + v.NonLegacyHeaderDuration()
}

// LegacyHeaderMode returns the mode protecting the legacy header field. The
// L-SIG is always sent at the most robust legacy rate of the family.
func (v TxVector) LegacyHeaderMode() Mode {
	switch v.Mode.Class {
	case ModulationDsss:
		return DsssRate(1000)
	case ModulationErpOfdm:
		return ErpOfdmRate(6)
	default:
		return OfdmRate(6)
	}
}

// NonLegacyHeaderMode returns the mode protecting the HT-SIG/SIG-A fields.
// These are BPSK 1/2 protected like the L-SIG.
func (v TxVector) NonLegacyHeaderMode() Mode {
	return OfdmRate(6)
}
