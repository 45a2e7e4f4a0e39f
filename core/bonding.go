package core

import "time"

// ChannelBondingManager picks the transmission width for an outgoing frame.
// It sees the sender's view of per-band idle history and may return any
// width from 20 MHz up to maxWidthMHz.
type ChannelBondingManager interface {
	// SelectTxWidth returns the channel width to transmit at.
	// idleSince reports, per 20 MHz sub-band of the operating channel, the
	// time the band has been continuously idle as of now.
	SelectTxWidth(channel OperatingChannel, maxWidthMHz uint16, idleSince func(Band) time.Duration) uint16
}

// OperatingChannel is the channel a PHY is tuned to: total width, center
// frequency and the primary 20 MHz channel within it.
type OperatingChannel struct {
	CenterMHz  uint16
	WidthMHz   uint16
	PrimaryMHz uint16
}

// PrimaryBand returns the primary 20 MHz sub-band.
func (c OperatingChannel) PrimaryBand() Band {
	return SubChannel(c.CenterMHz, c.WidthMHz, c.PrimaryMHz, 20)
}

// Bands returns the channel's 20 MHz sub-bands, lowest first.
func (c OperatingChannel) Bands() []Band {
	return SubBands(c.CenterMHz, c.WidthMHz)
}

// SubChannelBands returns the sub-bands of the width-MHz sub-channel
// anchored at the primary.
func (c OperatingChannel) SubChannelBands(widthMHz uint16) []Band {
	sub := SubChannel(c.CenterMHz, c.WidthMHz, c.PrimaryMHz, widthMHz)
	return SubBands(sub.CenterMHz, sub.WidthMHz)
}

// ConstantThresholdBondingManager doubles the transmission width outward
// from the primary channel as long as every secondary sub-band the next
// step would add has been idle for at least a PIFS.
type ConstantThresholdBondingManager struct {
	// Pifs is the required idle time on each secondary before bonding it.
	Pifs time.Duration
}

// NewConstantThresholdBondingManager returns the manager with the standard
// 25 us PIFS (16 us SIFS plus a 9 us slot).
func NewConstantThresholdBondingManager() *ConstantThresholdBondingManager {
	return &ConstantThresholdBondingManager{Pifs: 25 * time.Microsecond}
}

func (m *ConstantThresholdBondingManager) SelectTxWidth(channel OperatingChannel, maxWidthMHz uint16, idleSince func(Band) time.Duration) uint16 {
	width := uint16(20)
	if maxWidthMHz > channel.WidthMHz {
		maxWidthMHz = channel.WidthMHz
	}
	for width < maxWidthMHz {
		next := width * 2
		have := SubChannel(channel.CenterMHz, channel.WidthMHz, channel.PrimaryMHz, width)
		if !m.secondariesIdle(channel, next, have, idleSince) {
			break
		}
		width = next
	}
	return width
}

// secondariesIdle checks every sub-band the step from have to next MHz would
// newly occupy.
func (m *ConstantThresholdBondingManager) secondariesIdle(channel OperatingChannel, next uint16, have Band, idleSince func(Band) time.Duration) bool {
	for _, b := range channel.SubChannelBands(next) {
		if b.LowMHz() >= have.LowMHz() && b.HighMHz() <= have.HighMHz() {
			continue
		}
		if idleSince(b) < m.Pifs {
			return false
		}
	}
	return true
}

// AlwaysMaxBondingManager always transmits at the widest configured width,
// regardless of secondary activity.
type AlwaysMaxBondingManager struct{}

func (AlwaysMaxBondingManager) SelectTxWidth(channel OperatingChannel, maxWidthMHz uint16, _ func(Band) time.Duration) uint16 {
	if maxWidthMHz > channel.WidthMHz {
		return channel.WidthMHz
	}
	return maxWidthMHz
}
