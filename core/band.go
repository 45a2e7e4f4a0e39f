package core

import "fmt"

// subBandWidthMHz is the granularity at which interference and CCA are
// accounted. Bonded channels are unions of adjacent 20 MHz sub-bands.
const subBandWidthMHz = 20

// Band identifies one frequency slice as a (center frequency, width) pair in
// MHz. It is a comparable value type used as the structural key of the
// interference ledger: two receivers observing the same spectrum derive the
// same Band for the same physical frequencies.
type Band struct {
	CenterMHz uint16
	WidthMHz  uint16
}

func (b Band) String() string {
	return fmt.Sprintf("%d/%dMHz", b.CenterMHz, b.WidthMHz)
}

// LowMHz returns the lower edge of the band.
func (b Band) LowMHz() uint16 { return b.CenterMHz - b.WidthMHz/2 }

// HighMHz returns the upper edge of the band.
func (b Band) HighMHz() uint16 { return b.CenterMHz + b.WidthMHz/2 }

// Contains reports whether freqMHz falls inside the band. The upper edge is
// exclusive so adjacent sub-bands never both claim a boundary frequency.
func (b Band) Contains(freqMHz uint16) bool {
	return freqMHz >= b.LowMHz() && freqMHz < b.HighMHz()
}

// validChannelWidth reports whether w is a width this model understands.
func validChannelWidth(w uint16) bool {
	switch w {
	case 20, 40, 80, 160:
		return true
	}
	return false
}

// SubBands partitions a channel of the given total width centered at
// centerMHz into its 20 MHz sub-bands, ordered from the lowest frequency to
// the highest. An unsupported width is a programming error.
func SubBands(centerMHz, widthMHz uint16) []Band {
	if !validChannelWidth(widthMHz) {
		panic(fmt.Sprintf("core: unsupported channel width %d MHz", widthMHz))
	}
	n := int(widthMHz / subBandWidthMHz)
	low := centerMHz - widthMHz/2
	bands := make([]Band, n)
	for i := 0; i < n; i++ {
		bands[i] = Band{
			CenterMHz: low + subBandWidthMHz/2 + uint16(i)*subBandWidthMHz,
			WidthMHz:  subBandWidthMHz,
		}
	}
	return bands
}

// SubBand returns the i-th 20 MHz sub-band (lowest first) of a channel.
// An out-of-range index is a programming error.
func SubBand(centerMHz, widthMHz uint16, i int) Band {
	bands := SubBands(centerMHz, widthMHz)
	if i < 0 || i >= len(bands) {
		panic(fmt.Sprintf("core: sub-band index %d out of range for %d MHz", i, widthMHz))
	}
	return bands[i]
}

// BandContaining returns the 20 MHz sub-band of the (centerMHz, widthMHz)
// channel that contains freqMHz, and false if the frequency lies outside the
// channel entirely.
func BandContaining(centerMHz, widthMHz, freqMHz uint16) (Band, bool) {
	for _, b := range SubBands(centerMHz, widthMHz) {
		if b.Contains(freqMHz) {
			return b, true
		}
	}
	return Band{}, false
}

// SubChannel returns the sub-channel of targetWidth MHz, aligned within the
// (centerMHz, widthMHz) operating channel, that contains the primary 20 MHz
// channel centered at primaryMHz. This is how a receiver anchors narrower
// receptions (and the bonding policy anchors width expansion) around its
// primary.
func SubChannel(centerMHz, widthMHz, primaryMHz, targetWidth uint16) Band {
	if targetWidth > widthMHz {
		panic(fmt.Sprintf("core: sub-channel width %d exceeds channel width %d", targetWidth, widthMHz))
	}
	if !validChannelWidth(targetWidth) {
		panic(fmt.Sprintf("core: unsupported channel width %d MHz", targetWidth))
	}
	low := centerMHz - widthMHz/2
	n := int(widthMHz / targetWidth)
	for i := 0; i < n; i++ {
		b := Band{
			CenterMHz: low + targetWidth/2 + uint16(i)*targetWidth,
			WidthMHz:  targetWidth,
		}
		if primaryMHz >= b.LowMHz() && primaryMHz < b.HighMHz() {
			return b
		}
	}
	panic(fmt.Sprintf("core: primary %d MHz outside channel %d/%d MHz", primaryMHz, centerMHz, widthMHz))
}

// ChannelCenterMHz converts a 5 GHz channel number to its center frequency.
// Channel center frequency = 5000 + 5 * channel (IEEE Std 802.11, channel
// numbering for the 5 GHz band).
func ChannelCenterMHz(channelNumber uint8) uint16 {
	return 5000 + 5*uint16(channelNumber)
}
