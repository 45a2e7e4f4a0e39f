package core

import (
	"time"

	"github.com/signalsfoundry/wifi-phy-simulator/internal/logging"
	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

// Channel is the shared medium. Every transmission is delivered to every
// other attached PHY with a fixed per-pair path loss; receivers decide for
// themselves whether the signal is decodable or mere interference.
type Channel struct {
	sched *sim.Scheduler
	log   logging.Logger

	phys          []*Phy
	defaultLossDb float64
	loss          map[pairKey]float64
	propDelay     time.Duration
}

type pairKey struct{ a, b string }

func orderedPair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// NewChannel creates a medium where every pair of PHYs is separated by
// defaultLossDb unless overridden with SetPathLoss.
func NewChannel(sched *sim.Scheduler, log logging.Logger, defaultLossDb float64) *Channel {
	if log == nil {
		log = logging.Noop()
	}
	return &Channel{
		sched:         sched,
		log:           log,
		defaultLossDb: defaultLossDb,
		loss:          make(map[pairKey]float64),
	}
}

// Attach connects a PHY to the medium.
func (c *Channel) Attach(p *Phy) {
	p.medium = c
	c.phys = append(c.phys, p)
}

// SetPathLoss fixes the loss between a pair of PHYs, in dB, symmetrically.
func (c *Channel) SetPathLoss(a, b string, lossDb float64) {
	c.loss[orderedPair(a, b)] = lossDb
}

// SetPropagationDelay sets the fixed signal propagation delay.
func (c *Channel) SetPropagationDelay(d time.Duration) { c.propDelay = d }

func (c *Channel) lossDb(a, b string) float64 {
	if l, ok := c.loss[orderedPair(a, b)]; ok {
		return l
	}
	return c.defaultLossDb
}

// Transmit fans a frame out to every other attached PHY. The transmit power
// is split evenly across the occupied 20 MHz sub-bands, attenuated by the
// pairwise path loss.
func (c *Channel) Transmit(tx *Phy, ppdu *Ppdu, txPowerDbm float64) {
	v := ppdu.TxVector
	txCh := tx.OperatingChannel()
	bands := SubBands(SubChannel(txCh.CenterMHz, txCh.WidthMHz, txCh.PrimaryMHz, v.ChannelWidthMHz).CenterMHz, v.ChannelWidthMHz)

	for _, rx := range c.phys {
		if rx == tx {
			continue
		}
		rxPowerDbm := txPowerDbm - c.lossDb(tx.ID, rx.ID)
		perBand := make(map[Band]float64, len(bands))
		split := DbmToW(rxPowerDbm) / float64(len(bands))
		for _, b := range bands {
			perBand[b] = split
		}
		rx := rx
		c.sched.ScheduleIn(c.propDelay, func() {
			rx.StartReceivePreamble(ppdu, perBand)
		})
	}
}

// InjectEnergy raises the interference floor at every attached PHY with a
// non-decodable constant emission: powerDbm spread evenly over bands for the
// given duration.
func (c *Channel) InjectEnergy(duration time.Duration, powerDbm float64, bands []Band) {
	for _, rx := range c.phys {
		perBand := make(map[Band]float64, len(bands))
		split := DbmToW(powerDbm) / float64(len(bands))
		for _, b := range bands {
			perBand[b] = split
		}
		rx.ReceiveForeignEnergy(duration, perBand)
	}
}
