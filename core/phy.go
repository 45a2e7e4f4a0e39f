package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/signalsfoundry/wifi-phy-simulator/internal/logging"
	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

// DropReason says why a frame was dropped instead of delivered.
type DropReason int

const (
	DropUnknown DropReason = iota
	DropUnsupportedSettings
	DropNotAllowed
	DropErroneousFrame
	DropMpduWithoutPhyHeader
	DropPreambleDetectFailure
	DropLSigFailure
	DropSigAFailure
	DropPreambleDetectionPacketSwitch
	DropFrameCapturePacketSwitch
	DropObssPdCcaReset
	DropRxing
)

func (r DropReason) String() string {
	switch r {
	case DropUnsupportedSettings:
		return "UNSUPPORTED_SETTINGS"
	case DropNotAllowed:
		return "NOT_ALLOWED"
	case DropErroneousFrame:
		return "ERRONEOUS_FRAME"
	case DropMpduWithoutPhyHeader:
		return "MPDU_WITHOUT_PHY_HEADER"
	case DropPreambleDetectFailure:
		return "PREAMBLE_DETECT_FAILURE"
	case DropLSigFailure:
		return "L_SIG_FAILURE"
	case DropSigAFailure:
		return "SIG_A_FAILURE"
	case DropPreambleDetectionPacketSwitch:
		return "PREAMBLE_DETECTION_PACKET_SWITCH"
	case DropFrameCapturePacketSwitch:
		return "FRAME_CAPTURE_PACKET_SWITCH"
	case DropObssPdCcaReset:
		return "OBSS_PD_CCA_RESET"
	case DropRxing:
		return "RXING"
	}
	return "UNKNOWN"
}

// RxSignalInfo describes the signal quality of a completed reception. Snr is
// a linear ratio.
type RxSignalInfo struct {
	Snr     float64
	RssiDbm float64
}

// TraceRecorder observes frame-level PHY events. Implementations must not
// mutate the PPDU.
type TraceRecorder interface {
	TxBegin(ppdu *Ppdu, txPowerDbm float64)
	TxEnd(ppdu *Ppdu)
	RxBegin(ppdu *Ppdu)
	RxEnd(ppdu *Ppdu)
	RxDrop(ppdu *Ppdu, reason DropReason)
}

// NopTraceRecorder discards all trace events.
type NopTraceRecorder struct{}

func (NopTraceRecorder) TxBegin(*Ppdu, float64)   {}
func (NopTraceRecorder) TxEnd(*Ppdu)              {}
func (NopTraceRecorder) RxBegin(*Ppdu)            {}
func (NopTraceRecorder) RxEnd(*Ppdu)              {}
func (NopTraceRecorder) RxDrop(*Ppdu, DropReason) {}

var ErrTxNotAllowed = errors.New("phy: transmission not allowed in current state")

// PhyConfig collects the knobs of one PHY. Zero values select the defaults
// noted per field.
type PhyConfig struct {
	Channel OperatingChannel

	// MaxWidthMHz caps the reception and bonding width. Defaults to the
	// operating channel width.
	MaxWidthMHz uint16
	// TxPowerDbm defaults to 16 dBm.
	TxPowerDbm float64
	// NoiseFigureDb defaults to 7 dB.
	NoiseFigureDb float64
	// CcaEdThresholdDbm is the per-20 MHz energy detection threshold,
	// default -62 dBm.
	CcaEdThresholdDbm float64
	// RxSensitivityDbm is the weakest signal the PHY attempts to decode,
	// default -101 dBm.
	RxSensitivityDbm float64
	// ObssPdThresholdDbm defaults to -82 dBm; only consulted when BssColor
	// is nonzero.
	ObssPdThresholdDbm float64
	BssColor           uint8
	// MaxNss defaults to 8.
	MaxNss uint8
	// Pifs defaults to 25 us.
	Pifs time.Duration
	// ChannelSwitchDelay defaults to 250 us.
	ChannelSwitchDelay time.Duration
	// Seed feeds the PHY's private PER draw stream.
	Seed int64
}

func (cfg *PhyConfig) applyDefaults() {
	if cfg.MaxWidthMHz == 0 {
		cfg.MaxWidthMHz = cfg.Channel.WidthMHz
	}
	if cfg.TxPowerDbm == 0 {
		cfg.TxPowerDbm = 16
	}
	if cfg.NoiseFigureDb == 0 {
		cfg.NoiseFigureDb = 7
	}
	if cfg.CcaEdThresholdDbm == 0 {
		cfg.CcaEdThresholdDbm = -62
	}
	if cfg.RxSensitivityDbm == 0 {
		cfg.RxSensitivityDbm = -101
	}
	if cfg.ObssPdThresholdDbm == 0 {
		cfg.ObssPdThresholdDbm = -82
	}
	if cfg.MaxNss == 0 {
		cfg.MaxNss = 8
	}
	if cfg.Pifs == 0 {
		cfg.Pifs = 25 * time.Microsecond
	}
	if cfg.ChannelSwitchDelay == 0 {
		cfg.ChannelSwitchDelay = 250 * time.Microsecond
	}
}

// TxRequest is what the MAC hands to Send: everything in the transmit vector
// except the channel width, which the bonding policy picks.
type TxRequest struct {
	Mode          Mode
	Preamble      Preamble
	GuardInterval time.Duration
	Nss           uint8
	// MaxWidthMHz caps this frame's width below the PHY-wide cap when
	// nonzero.
	MaxWidthMHz uint16
}

// Phy is one 802.11 physical layer: it transmits frames onto an attached
// channel, tracks everything it hears in an interference ledger and runs the
// receive state machine from preamble detection to per-MPDU delivery.
//
// All methods must be called from scheduler callbacks (or before Run); the
// Phy is single-threaded like the rest of the simulation.
type Phy struct {
	ID string

	sched *sim.Scheduler
	log   logging.Logger
	cfg   PhyConfig
	rng   *rand.Rand

	medium       *Channel
	interference *InterferenceTracker
	state        *stateTracker

	PreambleDetection PreambleDetectionModel
	FrameCapture      FrameCaptureModel
	PostRxError       PostReceptionErrorModel
	Bonding           ChannelBondingManager

	rxOk  func(ppdu *Ppdu, info RxSignalInfo, statusPerMpdu []bool)
	rxErr func(ppdu *Ppdu, snr float64)
	trace TraceRecorder

	currentEvent          *SignalEvent
	currentPreambleEvents map[uint64]*SignalEvent
	endPreambleEvents     map[uint64]sim.EventID
	endRxEvents           []sim.EventID
	endOfMpduEvents       []sim.EventID

	rxBands       []Band
	rxWindows     []MpduWindow
	statusPerMpdu []bool
	rxSnr         float64

	busyUntil map[Band]time.Duration
}

// NewPhy builds a PHY on the given scheduler. It is inert until attached to
// a Channel.
func NewPhy(id string, sched *sim.Scheduler, log logging.Logger, cfg PhyConfig) *Phy {
	cfg.applyDefaults()
	if log == nil {
		log = logging.Noop()
	}
	return &Phy{
		ID:                    id,
		sched:                 sched,
		log:                   log.With(logging.String("phy", id)),
		cfg:                   cfg,
		rng:                   rand.New(rand.NewSource(cfg.Seed)),
		interference:          NewInterferenceTracker(cfg.NoiseFigureDb),
		state:                 newStateTracker(sched),
		PreambleDetection:     NewThresholdPreambleDetectionModel(),
		FrameCapture:          NewSimpleFrameCaptureModel(),
		Bonding:               &ConstantThresholdBondingManager{Pifs: cfg.Pifs},
		trace:                 NopTraceRecorder{},
		currentPreambleEvents: make(map[uint64]*SignalEvent),
		endPreambleEvents:     make(map[uint64]sim.EventID),
		busyUntil:             make(map[Band]time.Duration),
	}
}

// OperatingChannel returns the channel the PHY is tuned to.
func (p *Phy) OperatingChannel() OperatingChannel { return p.cfg.Channel }

// State returns the current PHY state.
func (p *Phy) State() State { return p.state.State() }

// IsIdle reports whether the PHY is idle.
func (p *Phy) IsIdle() bool { return p.state.State() == StateIdle }

// IsBusy reports whether the PHY is in any non-idle state.
func (p *Phy) IsBusy() bool { return p.state.State() != StateIdle }

// IsReceiving reports whether a reception is committed.
func (p *Phy) IsReceiving() bool { return p.state.IsReceiving() }

// IsTransmitting reports whether a transmission is on the air.
func (p *Phy) IsTransmitting() bool { return p.state.State() == StateTx }

// MaxWidthMHz returns the widest channel the PHY can transmit or decode.
func (p *Phy) MaxWidthMHz() uint16 { return p.cfg.MaxWidthMHz }

// MaxNss returns the largest number of spatial streams the PHY decodes.
func (p *Phy) MaxNss() uint8 { return p.cfg.MaxNss }

// DelayUntilIdle reports how long until all ongoing activity expires.
func (p *Phy) DelayUntilIdle() time.Duration { return p.state.DelayUntilIdle() }

// RegisterStateListener adds a state transition observer.
func (p *Phy) RegisterStateListener(l StateListener) { p.state.RegisterListener(l) }

// SetTraceRecorder replaces the frame trace sink.
func (p *Phy) SetTraceRecorder(t TraceRecorder) {
	if t == nil {
		t = NopTraceRecorder{}
	}
	p.trace = t
}

// SetErrorRateModel replaces the model converting SNR to error
// probabilities.
func (p *Phy) SetErrorRateModel(m ErrorRateModel) { p.interference.ErrorModel = m }

// SetReceiveCallbacks installs the delivery callbacks. ok runs for every
// PPDU with at least one correctly decoded MPDU; errCb runs for frames that
// were locked onto but failed decoding.
func (p *Phy) SetReceiveCallbacks(ok func(*Ppdu, RxSignalInfo, []bool), errCb func(*Ppdu, float64)) {
	p.rxOk = ok
	p.rxErr = errCb
}

func (p *Phy) ctx() context.Context { return context.Background() }

// idleSince reports how long band has been continuously free of energy
// above the CCA threshold.
func (p *Phy) idleSince(band Band) time.Duration {
	until, seen := p.busyUntil[band]
	if !seen {
		return time.Hour
	}
	d := p.sched.Now() - until
	if d < 0 {
		return 0
	}
	return d
}

// Send transmits a PSDU. The channel width is chosen by the bonding policy
// from the per-band idle history; an ongoing reception is abandoned in favor
// of the transmission.
func (p *Phy) Send(psdu Psdu, req TxRequest) (*Ppdu, error) {
	switch p.state.State() {
	case StateSleep, StateOff, StateSwitching, StateTx:
		return nil, fmt.Errorf("%w: state %v", ErrTxNotAllowed, p.state.State())
	}
	if p.medium == nil {
		return nil, errors.New("phy: not attached to a channel")
	}
	if p.state.IsReceiving() {
		p.AbortCurrentReception(DropNotAllowed)
	}

	maxWidth := p.cfg.MaxWidthMHz
	if req.MaxWidthMHz != 0 && req.MaxWidthMHz < maxWidth {
		maxWidth = req.MaxWidthMHz
	}
	width := p.Bonding.SelectTxWidth(p.cfg.Channel, maxWidth, p.idleSince)

	v := TxVector{
		Mode:            req.Mode,
		Preamble:        req.Preamble,
		ChannelWidthMHz: width,
		GuardInterval:   req.GuardInterval,
		Nss:             req.Nss,
		BssColor:        p.cfg.BssColor,
		Aggregation:     psdu.IsAggregate(),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	ppdu := NewPpdu(psdu, v, p.sched.NextPpduUID())
	p.log.Debug(p.ctx(), "tx begin",
		logging.Any("uid", ppdu.UID),
		logging.String("mode", v.Mode.Name),
		logging.Int("width_mhz", int(width)),
		logging.Any("duration", ppdu.Duration()))

	p.trace.TxBegin(ppdu, p.cfg.TxPowerDbm)
	p.state.SwitchToTx(ppdu.Duration())
	p.medium.Transmit(p, ppdu, p.cfg.TxPowerDbm)
	p.sched.ScheduleIn(ppdu.Duration(), func() { p.trace.TxEnd(ppdu) })
	return ppdu, nil
}

// StartReceivePreamble is the channel's entry point: a frame begins to
// arrive with the given per-band received power. The energy always lands in
// the interference ledger; whether a reception attempt starts depends on the
// PHY state and the preamble detection window.
func (p *Phy) StartReceivePreamble(ppdu *Ppdu, rxPowerW map[Band]float64) {
	now := p.sched.Now()
	ev := p.interference.Add(ppdu, ppdu.TxVector, now, rxPowerW)
	p.updateCcaBusy(now)

	switch p.state.State() {
	case StateOff, StateSleep, StateSwitching, StateTx:
		p.dropRx(ppdu, DropNotAllowed)
		return
	}

	primary := p.cfg.Channel.PrimaryBand()
	if ev.RxPowerW(primary) == 0 {
		// Energy outside our primary channel: interference only.
		p.log.Debug(p.ctx(), "signal off primary channel", logging.Any("uid", ppdu.UID))
		return
	}
	if WToDbm(ev.TotalRxPowerW()) < p.cfg.RxSensitivityDbm {
		p.dropRx(ppdu, DropPreambleDetectFailure)
		return
	}

	p.currentPreambleEvents[ppdu.UID] = ev
	p.endPreambleEvents[ppdu.UID] = p.sched.ScheduleIn(PreambleDetectionDuration, func() {
		p.endPreambleDetection(ev)
	})
}

// endPreambleDetection closes ev's 4 us detection window and decides whether
// the PHY locks onto it.
func (p *Phy) endPreambleDetection(ev *SignalEvent) {
	now := p.sched.Now()
	uid := ev.Ppdu.UID
	delete(p.endPreambleEvents, uid)

	switch p.state.State() {
	case StateOff, StateSleep, StateSwitching, StateTx:
		p.dropRx(ev.Ppdu, DropNotAllowed)
		delete(p.currentPreambleEvents, uid)
		return
	}

	// Among concurrent candidates only the strongest survives.
	strongest := ev
	for _, other := range p.currentPreambleEvents {
		if other.TotalRxPowerW() > strongest.TotalRxPowerW() {
			strongest = other
		}
	}
	if strongest != ev {
		p.dropRx(ev.Ppdu, DropPreambleDetectionPacketSwitch)
		delete(p.currentPreambleEvents, uid)
		return
	}

	primary := p.cfg.Channel.PrimaryBand()
	snr := p.interference.CalculateSnr(ev, []Band{primary}, now)
	if !p.PreambleDetection.IsDetected(ev.TotalRxPowerW(), snr) {
		p.dropRx(ev.Ppdu, DropPreambleDetectFailure)
		delete(p.currentPreambleEvents, uid)
		return
	}

	if p.currentEvent != nil {
		if p.FrameCapture == nil || !p.FrameCapture.CaptureNewFrame(p.currentEvent, ev, now) {
			p.dropRx(ev.Ppdu, DropRxing)
			delete(p.currentPreambleEvents, uid)
			return
		}
		p.AbortCurrentReception(DropFrameCapturePacketSwitch)
	}

	// Losing candidates are done for good.
	for otherUID, other := range p.currentPreambleEvents {
		if other == ev {
			continue
		}
		if id, ok := p.endPreambleEvents[otherUID]; ok {
			p.sched.Cancel(id)
			delete(p.endPreambleEvents, otherUID)
		}
		p.dropRx(other.Ppdu, DropPreambleDetectionPacketSwitch)
		delete(p.currentPreambleEvents, otherUID)
	}

	p.currentEvent = ev
	p.interference.NotifyRxStart()
	p.state.SwitchToRx(ev.End - now)
	p.trace.RxBegin(ev.Ppdu)
	p.log.Debug(p.ctx(), "preamble detected",
		logging.Any("uid", uid),
		logging.Any("snr_db", RatioToDb(snr)))

	headerEnd := ev.Start + ev.TxVector.PreambleDuration() + ev.TxVector.LegacyHeaderDuration()
	p.endRxEvents = append(p.endRxEvents, p.sched.Schedule(headerEnd, func() {
		p.endReceiveLegacyHeader(ev)
	}))
}

func (p *Phy) endReceiveLegacyHeader(ev *SignalEvent) {
	primary := p.cfg.Channel.PrimaryBand()
	snr, per := p.interference.CalculateLegacyPhyHeaderSnrPer(ev, primary)
	if p.rng.Float64() < per {
		p.failHeader(ev, DropLSigFailure, snr)
		return
	}
	if !ev.TxVector.hasNonLegacyHeader() {
		p.startReceivePayload(ev)
		return
	}
	sigEnd := p.sched.Now() + ev.TxVector.NonLegacyHeaderDuration()
	p.endRxEvents = append(p.endRxEvents, p.sched.Schedule(sigEnd, func() {
		p.endReceiveNonLegacyHeader(ev)
	}))
}

func (p *Phy) endReceiveNonLegacyHeader(ev *SignalEvent) {
	v := ev.TxVector

	// Inter-BSS HE frames below the OBSS-PD level do not hold the medium.
	if v.Preamble == PreambleHe && p.cfg.BssColor != 0 && v.BssColor != 0 &&
		v.BssColor != p.cfg.BssColor && WToDbm(ev.TotalRxPowerW()) < p.cfg.ObssPdThresholdDbm {
		p.resetReception(ev, DropObssPdCcaReset)
		p.resetCca()
		return
	}

	if v.ChannelWidthMHz > p.cfg.MaxWidthMHz || v.Nss > p.cfg.MaxNss {
		p.failHeader(ev, DropUnsupportedSettings, 0)
		return
	}

	primary := p.cfg.Channel.PrimaryBand()
	snr, per := p.interference.CalculateNonLegacyPhyHeaderSnrPer(ev, primary)
	if p.rng.Float64() < per {
		p.failHeader(ev, DropSigAFailure, snr)
		return
	}
	p.startReceivePayload(ev)
}

func (p *Phy) startReceivePayload(ev *SignalEvent) {
	if len(ev.Ppdu.Psdu.Mpdus) == 0 {
		p.failHeader(ev, DropMpduWithoutPhyHeader, 0)
		return
	}
	v := ev.TxVector
	width := v.ChannelWidthMHz
	if width > p.cfg.MaxWidthMHz {
		width = p.cfg.MaxWidthMHz
	}
	if width > p.cfg.Channel.WidthMHz {
		width = p.cfg.Channel.WidthMHz
	}
	p.rxBands = p.cfg.Channel.SubChannelBands(width)
	p.rxWindows = ev.Ppdu.MpduWindows()
	p.statusPerMpdu = p.statusPerMpdu[:0]
	p.rxSnr = math.Inf(1)

	payloadStart := ev.Start + v.PreambleAndHeaderDuration()
	for i := range p.rxWindows {
		i := i
		p.endOfMpduEvents = append(p.endOfMpduEvents,
			p.sched.Schedule(payloadStart+p.rxWindows[i].End, func() {
				p.endOfMpdu(ev, i)
			}))
	}
	p.endRxEvents = append(p.endRxEvents, p.sched.Schedule(ev.End, func() {
		p.endReceive(ev)
	}))
}

func (p *Phy) endOfMpdu(ev *SignalEvent, i int) {
	snr, per := p.interference.CalculatePayloadSnrPer(ev, p.rxBands, p.rxWindows[i])
	ok := p.rng.Float64() >= per
	p.statusPerMpdu = append(p.statusPerMpdu, ok)
	if snr < p.rxSnr {
		p.rxSnr = snr
	}
	p.log.Debug(p.ctx(), "end of mpdu",
		logging.Any("uid", ev.Ppdu.UID),
		logging.Int("mpdu", i),
		logging.Any("per", per),
		logging.Any("ok", ok))
}

func (p *Phy) endReceive(ev *SignalEvent) {
	ppdu := ev.Ppdu
	info := RxSignalInfo{Snr: p.rxSnr, RssiDbm: WToDbm(ev.TotalRxPowerW())}

	statuses := append([]bool(nil), p.statusPerMpdu...)
	if p.PostRxError != nil && p.PostRxError.IsCorrupted(ppdu) {
		for i := range statuses {
			statuses[i] = false
		}
	}
	anyOk := false
	for _, ok := range statuses {
		anyOk = anyOk || ok
	}

	if anyOk {
		p.state.SwitchFromRxEndOk()
		p.trace.RxEnd(ppdu)
		if p.rxOk != nil {
			p.rxOk(ppdu, info, statuses)
		}
	} else {
		p.state.SwitchFromRxEndError()
		p.trace.RxDrop(ppdu, DropErroneousFrame)
		if p.rxErr != nil {
			p.rxErr(ppdu, p.rxSnr)
		}
	}
	p.finishReception(ev)
}

// failHeader abandons the committed reception after a header decoding
// failure. The frame's remaining energy keeps the medium CCA busy.
func (p *Phy) failHeader(ev *SignalEvent, reason DropReason, snr float64) {
	p.log.Debug(p.ctx(), "header failed",
		logging.Any("uid", ev.Ppdu.UID),
		logging.String("reason", reason.String()),
		logging.Any("snr_db", RatioToDb(snr)))
	p.resetReception(ev, reason)
	p.state.MaybeCcaBusy(ev.End - p.sched.Now())
}

// resetReception drops the committed reception with the given reason.
func (p *Phy) resetReception(ev *SignalEvent, reason DropReason) {
	p.dropRx(ev.Ppdu, reason)
	p.state.SwitchFromRxEndError()
	p.finishReception(ev)
}

// finishReception clears the per-reception state after the RX outcome has
// been reported.
func (p *Phy) finishReception(ev *SignalEvent) {
	p.cancelRxEvents()
	delete(p.currentPreambleEvents, ev.Ppdu.UID)
	p.currentEvent = nil
	p.interference.NotifyRxEnd(p.sched.Now())
}

// AbortCurrentReception cancels the committed reception, if any, without an
// RX outcome.
func (p *Phy) AbortCurrentReception(reason DropReason) {
	p.cancelRxEvents()
	if p.currentEvent == nil {
		return
	}
	p.dropRx(p.currentEvent.Ppdu, reason)
	if p.state.IsReceiving() {
		p.state.SwitchFromRxAbort()
	}
	delete(p.currentPreambleEvents, p.currentEvent.Ppdu.UID)
	p.currentEvent = nil
	p.interference.NotifyRxEnd(p.sched.Now())
}

func (p *Phy) cancelRxEvents() {
	for _, id := range p.endRxEvents {
		p.sched.Cancel(id)
	}
	for _, id := range p.endOfMpduEvents {
		p.sched.Cancel(id)
	}
	p.endRxEvents = p.endRxEvents[:0]
	p.endOfMpduEvents = p.endOfMpduEvents[:0]
}

// cancelPreambleCandidates drops every frame still in its detection window.
func (p *Phy) cancelPreambleCandidates(reason DropReason) {
	for uid, ev := range p.currentPreambleEvents {
		if p.currentEvent != nil && ev == p.currentEvent {
			continue
		}
		if id, ok := p.endPreambleEvents[uid]; ok {
			p.sched.Cancel(id)
			delete(p.endPreambleEvents, uid)
		}
		p.dropRx(ev.Ppdu, reason)
		delete(p.currentPreambleEvents, uid)
	}
}

// SetSleepMode puts the PHY to sleep, abandoning any ongoing reception.
func (p *Phy) SetSleepMode() {
	if p.state.IsReceiving() {
		p.AbortCurrentReception(DropNotAllowed)
	}
	p.cancelPreambleCandidates(DropNotAllowed)
	p.state.SwitchToSleep()
}

// ResumeFromSleep wakes the PHY; it becomes CCA busy for any energy still on
// the primary channel.
func (p *Phy) ResumeFromSleep() {
	p.state.SwitchFromSleep()
	p.updateCcaBusy(p.sched.Now())
}

// SetOffMode powers the PHY down entirely.
func (p *Phy) SetOffMode() {
	if p.state.IsReceiving() {
		p.AbortCurrentReception(DropNotAllowed)
	}
	p.cancelPreambleCandidates(DropNotAllowed)
	p.state.SwitchToOff()
}

// ResumeFromOff powers the PHY back up.
func (p *Phy) ResumeFromOff() {
	p.state.SwitchFromOff()
	p.updateCcaBusy(p.sched.Now())
}

// ReceiveForeignEnergy records non-decodable energy arriving now: it raises
// the interference floor and the CCA busy horizon but never starts a
// reception attempt.
func (p *Phy) ReceiveForeignEnergy(duration time.Duration, rxPowerW map[Band]float64) {
	p.interference.AddForeignSignal(p.sched.Now(), duration, rxPowerW)
	p.updateCcaBusy(p.sched.Now())
}

// SetOperatingChannel retunes the PHY. Any reception in progress is lost,
// the interference ledger is cleared and the PHY stays in SWITCHING for the
// configured switch delay.
func (p *Phy) SetOperatingChannel(ch OperatingChannel) {
	if p.state.IsReceiving() {
		p.AbortCurrentReception(DropNotAllowed)
	}
	p.cancelPreambleCandidates(DropNotAllowed)
	p.cfg.Channel = ch
	if p.cfg.MaxWidthMHz > ch.WidthMHz {
		p.cfg.MaxWidthMHz = ch.WidthMHz
	}
	p.interference.Reset()
	p.busyUntil = make(map[Band]time.Duration)
	p.state.SwitchToChannelSwitching(p.cfg.ChannelSwitchDelay)
	p.log.Info(p.ctx(), "channel switch",
		logging.Int("center_mhz", int(ch.CenterMHz)),
		logging.Int("width_mhz", int(ch.WidthMHz)))
}

// updateCcaBusy refreshes the per-band busy horizon from the interference
// ledger and extends the state tracker's CCA busy period from the primary.
func (p *Phy) updateCcaBusy(now time.Duration) {
	thr := DbmToW(p.cfg.CcaEdThresholdDbm)
	for _, band := range p.cfg.Channel.Bands() {
		d := p.interference.EnergyDuration(band, thr, now)
		if d == 0 {
			continue
		}
		if until := now + d; until > p.busyUntil[band] {
			p.busyUntil[band] = until
		}
	}
	primary := p.cfg.Channel.PrimaryBand()
	if busy := p.busyUntil[primary] - now; busy > 0 {
		p.state.MaybeCcaBusy(busy)
	}
}

// resetCca forgets all CCA busy history, as mandated after an OBSS-PD based
// ignore decision.
func (p *Phy) resetCca() {
	now := p.sched.Now()
	for band := range p.busyUntil {
		if p.busyUntil[band] > now {
			p.busyUntil[band] = now
		}
	}
	p.state.ResetCca()
}

func (p *Phy) dropRx(ppdu *Ppdu, reason DropReason) {
	p.trace.RxDrop(ppdu, reason)
	p.log.Debug(p.ctx(), "rx drop",
		logging.Any("uid", ppdu.UID),
		logging.String("reason", reason.String()))
}
