package core

import (
	"math"
	"sort"
	"time"
)

// SignalEvent is one signal's stay on the medium as seen by a receiver: the
// frame (nil for foreign, undecodable energy), its on-air interval and the
// received power it contributes to each 20 MHz sub-band.
type SignalEvent struct {
	Ppdu     *Ppdu
	TxVector TxVector
	Start    time.Duration
	End      time.Duration

	rxPowerW map[Band]float64
}

// RxPowerW returns the received power this signal contributes to band, in
// watts. Zero for bands the signal does not touch.
func (e *SignalEvent) RxPowerW(band Band) float64 { return e.rxPowerW[band] }

// TotalRxPowerW returns the signal's received power summed over all its
// sub-bands.
func (e *SignalEvent) TotalRxPowerW() float64 {
	var total float64
	for _, p := range e.rxPowerW {
		total += p
	}
	return total
}

// Duration returns the signal's on-air time.
func (e *SignalEvent) Duration() time.Duration { return e.End - e.Start }

// niChange is one step of the piecewise-constant total power on a band. The
// power field is the running total in effect from at onward, so a point
// query is a single binary search.
type niChange struct {
	at    time.Duration
	power float64
	event *SignalEvent
}

// InterferenceTracker keeps a per-band ledger of everything currently or
// recently on the medium and derives noise-plus-interference, SNR and error
// probabilities from it. It is owned by one PHY and, like the rest of the
// simulation core, is not safe for concurrent use.
type InterferenceTracker struct {
	// ErrorModel converts per-chunk SNR into success probabilities.
	ErrorModel ErrorRateModel

	// noiseFigure is the receiver noise figure as a linear ratio.
	noiseFigure float64

	ledger     map[Band][]niChange
	firstPower map[Band]float64
	rxing      bool
}

// NewInterferenceTracker returns a tracker with the given receiver noise
// figure in dB, using the NIST error model.
func NewInterferenceTracker(noiseFigureDb float64) *InterferenceTracker {
	return &InterferenceTracker{
		ErrorModel:  NistErrorRateModel{},
		noiseFigure: DbToRatio(noiseFigureDb),
		ledger:      make(map[Band][]niChange),
		firstPower:  make(map[Band]float64),
	}
}

// Add records a frame arriving at the receiver with the given per-band
// received power and returns its event. The event is tracked until pruned;
// the energy it leaves in the ledger interferes with overlapping receptions
// either way.
func (t *InterferenceTracker) Add(ppdu *Ppdu, v TxVector, start time.Duration, rxPowerW map[Band]float64) *SignalEvent {
	ev := &SignalEvent{
		Ppdu:     ppdu,
		TxVector: v,
		Start:    start,
		End:      start + ppdu.Duration(),
		rxPowerW: rxPowerW,
	}
	t.appendEvent(ev)
	return ev
}

// AddForeignSignal records undecodable energy (a non-Wi-Fi emitter, or a
// frame on an incompatible channel) that still raises the interference
// floor.
func (t *InterferenceTracker) AddForeignSignal(start, duration time.Duration, rxPowerW map[Band]float64) *SignalEvent {
	ev := &SignalEvent{
		Start:    start,
		End:      start + duration,
		rxPowerW: rxPowerW,
	}
	t.appendEvent(ev)
	return ev
}

func (t *InterferenceTracker) appendEvent(ev *SignalEvent) {
	if !t.rxing {
		t.prune(ev.Start)
	}
	for band, pw := range ev.rxPowerW {
		l := t.ledger[band]

		// Start entry goes after any existing change at the same instant.
		i := sort.Search(len(l), func(k int) bool { return l[k].at > ev.Start })
		startTotal := t.powerAt(band, ev.Start) + pw
		l = append(l, niChange{})
		copy(l[i+1:], l[i:])
		l[i] = niChange{at: ev.Start, power: startTotal, event: ev}

		// Every change inside the signal's lifetime sees its power on top.
		j := i + 1
		for ; j < len(l) && l[j].at < ev.End; j++ {
			l[j].power += pw
		}

		// End entry restores the total without this signal. It precedes any
		// existing change at the same instant, which already excludes it.
		endTotal := l[j-1].power - pw
		l = append(l, niChange{})
		copy(l[j+1:], l[j:])
		l[j] = niChange{at: ev.End, power: endTotal}

		t.ledger[band] = l
	}
}

// powerAt returns the total power on band at time at, in watts.
func (t *InterferenceTracker) powerAt(band Band, at time.Duration) float64 {
	l := t.ledger[band]
	// Last change with at <= t rules.
	i := sort.Search(len(l), func(k int) bool { return l[k].at > at })
	if i == 0 {
		return t.firstPower[band]
	}
	return l[i-1].power
}

// PowerAt returns the total power on band at the given instant, in watts.
// This is the CCA measurement primitive.
func (t *InterferenceTracker) PowerAt(band Band, at time.Duration) float64 {
	return t.powerAt(band, at)
}

// EnergyDuration returns how long, starting from now, the total power on
// band stays at or above thresholdW. Zero when the band is already below the
// threshold.
func (t *InterferenceTracker) EnergyDuration(band Band, thresholdW float64, now time.Duration) time.Duration {
	power := t.powerAt(band, now)
	if power < thresholdW {
		return 0
	}
	l := t.ledger[band]
	i := sort.Search(len(l), func(k int) bool { return l[k].at > now })
	end := now
	for ; i < len(l); i++ {
		end = l[i].at
		if l[i].power < thresholdW {
			break
		}
	}
	return end - now
}

// NotifyRxStart tells the tracker a reception is in progress, which pins the
// ledger history the reception's error computations will need.
func (t *InterferenceTracker) NotifyRxStart() { t.rxing = true }

// NotifyRxEnd releases the history pin. now is the current simulation time.
func (t *InterferenceTracker) NotifyRxEnd(now time.Duration) {
	t.rxing = false
	t.prune(now)
}

// prune folds every change at or before now into the per-band baseline so
// the ledgers only grow with concurrently alive signals.
func (t *InterferenceTracker) prune(now time.Duration) {
	for band, l := range t.ledger {
		i := sort.Search(len(l), func(k int) bool { return l[k].at > now })
		if i == 0 {
			continue
		}
		t.firstPower[band] = l[i-1].power
		if i == len(l) {
			delete(t.ledger, band)
			continue
		}
		t.ledger[band] = append(l[:0], l[i:]...)
	}
}

// Reset drops all state, e.g. after a channel switch.
func (t *InterferenceTracker) Reset() {
	t.ledger = make(map[Band][]niChange)
	t.firstPower = make(map[Band]float64)
	t.rxing = false
}

// noiseFloorW returns the thermal noise floor of a band, in watts.
func (t *InterferenceTracker) noiseFloorW(band Band) float64 {
	return kT0 * float64(band.WidthMHz) * 1e6 * t.noiseFigure
}

// snrForBand returns the linear SNR of ev on one band at time at: the
// signal's own power over the noise floor plus everything else on the band.
func (t *InterferenceTracker) snrForBand(ev *SignalEvent, band Band, at time.Duration) float64 {
	signal := ev.RxPowerW(band)
	ni := t.powerAt(band, at) - signal
	if ni < 0 {
		ni = 0
	}
	return signal / (t.noiseFloorW(band) + ni)
}

// effectiveSnrBonus is the per-band combining gain coefficient: a frame
// spread over N sub-bands enjoys frequency diversity worth 15*ln(N) added to
// the weakest band's linear SNR.
const effectiveSnrBonus = 15.0

// effectiveSnr combines the per-band SNRs of ev at time at into the single
// linear SNR the error model sees.
func (t *InterferenceTracker) effectiveSnr(ev *SignalEvent, bands []Band, at time.Duration) float64 {
	minSnr := math.Inf(1)
	for _, band := range bands {
		if snr := t.snrForBand(ev, band, at); snr < minSnr {
			minSnr = snr
		}
	}
	if len(bands) <= 1 {
		return minSnr
	}
	return minSnr + effectiveSnrBonus*math.Log(float64(len(bands)))
}

// CalculateSnr returns the effective linear SNR of ev across bands at the
// given instant.
func (t *InterferenceTracker) CalculateSnr(ev *SignalEvent, bands []Band, at time.Duration) float64 {
	return t.effectiveSnr(ev, bands, at)
}

// chunkBoundaries collects the instants in (begin, end) at which the total
// power on any of the bands changes, plus the window edges, sorted.
func (t *InterferenceTracker) chunkBoundaries(bands []Band, begin, end time.Duration) []time.Duration {
	times := []time.Duration{begin}
	for _, band := range bands {
		for _, c := range t.ledger[band] {
			if c.at > begin && c.at < end {
				times = append(times, c.at)
			}
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	out := times[:1]
	for _, ts := range times[1:] {
		if ts != out[len(out)-1] {
			out = append(out, ts)
		}
	}
	return append(out, end)
}

// chunkSnrPer walks the window [begin, end) in chunks of constant
// interference and accumulates the success probability of every chunk at
// dataRate bit/s under mode. It returns the worst chunk's effective SNR and
// the error probability of the whole window.
func (t *InterferenceTracker) chunkSnrPer(ev *SignalEvent, bands []Band, mode Mode, v TxVector, dataRate uint64, begin, end time.Duration) (snr, per float64) {
	if end <= begin {
		return t.effectiveSnr(ev, bands, begin), 0
	}
	times := t.chunkBoundaries(bands, begin, end)
	psr := 1.0
	snr = math.Inf(1)
	for i := 0; i+1 < len(times); i++ {
		t0, t1 := times[i], times[i+1]
		eff := t.effectiveSnr(ev, bands, t0)
		if eff < snr {
			snr = eff
		}
		bits := uint64(math.Round(float64(dataRate) * (t1 - t0).Seconds()))
		psr *= t.ErrorModel.ChunkSuccessRate(mode, v, eff, bits)
	}
	return snr, 1 - psr
}

// CalculatePayloadSnrPer evaluates one MPDU window of ev's payload. bands
// are the 20 MHz sub-bands the receiver decodes over, and window is the
// MPDU's interval relative to the start of the payload. It returns the
// worst-chunk effective SNR and the MPDU error probability.
func (t *InterferenceTracker) CalculatePayloadSnrPer(ev *SignalEvent, bands []Band, window MpduWindow) (snr, per float64) {
	v := ev.TxVector
	begin := ev.Start + v.PreambleAndHeaderDuration() + window.Begin
	end := ev.Start + v.PreambleAndHeaderDuration() + window.End
	rate := v.Mode.DataRate(v.ChannelWidthMHz, v.GuardInterval, v.Nss)
	return t.chunkSnrPer(ev, bands, v.Mode, v, rate, begin, end)
}

// CalculateLegacyPhyHeaderSnrPer evaluates ev's legacy header field on the
// receiver's primary 20 MHz band.
func (t *InterferenceTracker) CalculateLegacyPhyHeaderSnrPer(ev *SignalEvent, primary Band) (snr, per float64) {
	v := ev.TxVector
	begin := ev.Start + v.PreambleDuration()
	end := begin + v.LegacyHeaderDuration()
	mode := v.LegacyHeaderMode()
	rate := mode.DataRate(20, 800*time.Nanosecond, 1)
	return t.chunkSnrPer(ev, []Band{primary}, mode, v, rate, begin, end)
}

// CalculateNonLegacyPhyHeaderSnrPer evaluates ev's format-specific header
// fields (HT-SIG, SIG-A and friends) on the primary 20 MHz band.
func (t *InterferenceTracker) CalculateNonLegacyPhyHeaderSnrPer(ev *SignalEvent, primary Band) (snr, per float64) {
	v := ev.TxVector
	begin := ev.Start + v.PreambleDuration() + v.LegacyHeaderDuration()
	end := begin + v.NonLegacyHeaderDuration()
	mode := v.NonLegacyHeaderMode()
	rate := mode.DataRate(20, 800*time.Nanosecond, 1)
	return t.chunkSnrPer(ev, []Band{primary}, mode, v, rate, begin, end)
}
