package core

import (
	"fmt"
	"math"
	"time"
)

// Mpdu is one MAC frame carried in a PPDU payload. Size is the frame length
// in bytes including the MAC header and FCS.
type Mpdu struct {
	Size uint32
}

// Psdu is the payload of a PPDU: a single MPDU, or an A-MPDU when it holds
// more than one.
type Psdu struct {
	Mpdus []Mpdu
}

// IsAggregate reports whether the PSDU is an A-MPDU.
func (p Psdu) IsAggregate() bool { return len(p.Mpdus) > 1 }

// Size returns the total PSDU length in bytes.
func (p Psdu) Size() uint32 {
	var total uint32
	for _, m := range p.Mpdus {
		total += m.Size
	}
	return total
}

// Ppdu is one PHY frame on the air. The UID is assigned by the sender's
// scheduler and lets receivers tell retransmissions of the same reception
// attempt apart from distinct frames.
type Ppdu struct {
	Psdu     Psdu
	TxVector TxVector
	UID      uint64

	duration time.Duration
}

// NewPpdu builds a PPDU and fixes its on-air duration from the vector and
// payload size.
func NewPpdu(psdu Psdu, v TxVector, uid uint64) *Ppdu {
	return &Ppdu{
		Psdu:     psdu,
		TxVector: v,
		UID:      uid,
		duration: CalculateTxDuration(psdu.Size(), v),
	}
}

// Duration returns the total on-air time of the PPDU.
func (p *Ppdu) Duration() time.Duration { return p.duration }

func (p *Ppdu) String() string {
	return fmt.Sprintf("PPDU(uid=%d, %s, %d MHz, %dB, %s)",
		p.UID, p.TxVector.Mode, p.TxVector.ChannelWidthMHz, p.Psdu.Size(), p.duration)
}

const (
	serviceFieldBits = 16
	tailBits         = 6
)

// PayloadDuration returns the time spent on data symbols for a payload of
// the given size. The encoded stream is the 16-bit SERVICE field, the PSDU
// and 6 tail bits, rounded up to whole symbols.
func PayloadDuration(size uint32, v TxVector) time.Duration {
	rate := v.Mode.DataRate(v.ChannelWidthMHz, v.GuardInterval, v.Nss)
	bits := float64(serviceFieldBits + 8*size + tailBits)
	if v.Mode.Class == ModulationDsss {
		// DSSS has no tail bits and streams bits directly.
		bits = float64(8 * size)
		return time.Duration(math.Ceil(bits / float64(rate) * 1e9))
	}
	symbol := symbolDuration(v)
	bitsPerSymbol := float64(rate) * symbol.Seconds()
	symbols := math.Ceil(bits / bitsPerSymbol)
	return time.Duration(symbols) * symbol
}

func symbolDuration(v TxVector) time.Duration {
	if v.Mode.Class == ModulationHe {
		return 12800*time.Nanosecond + v.GuardInterval
	}
	return 3200*time.Nanosecond + v.GuardInterval
}

// CalculateTxDuration returns the full on-air duration of a frame: preamble,
// headers and payload.
func CalculateTxDuration(size uint32, v TxVector) time.Duration {
	return v.PreambleAndHeaderDuration() + PayloadDuration(size, v)
}

// MpduWindow is the on-air interval occupied by one MPDU of an A-MPDU,
// relative to the start of the payload.
type MpduWindow struct {
	Begin time.Duration
	End   time.Duration
}

// MpduWindows splits the payload duration across the MPDUs of the PSDU. The
// SERVICE field is charged to the first MPDU and the tail bits to the last,
// so the windows exactly tile PayloadDuration.
func (p *Ppdu) MpduWindows() []MpduWindow {
	v := p.TxVector
	n := len(p.Psdu.Mpdus)
	if n == 0 {
		return nil
	}
	total := PayloadDuration(p.Psdu.Size(), v)
	if n == 1 {
		return []MpduWindow{{0, total}}
	}

	rate := v.Mode.DataRate(v.ChannelWidthMHz, v.GuardInterval, v.Nss)
	windows := make([]MpduWindow, n)
	var at time.Duration
	for i, m := range p.Psdu.Mpdus {
		bits := float64(8 * m.Size)
		if i == 0 {
			bits += serviceFieldBits
		}
		d := time.Duration(bits / float64(rate) * 1e9)
		windows[i] = MpduWindow{Begin: at, End: at + d}
		at += d
	}
	// Padding and tail land in the last window so the tiling is exact.
	windows[n-1].End = total
	return windows
}
