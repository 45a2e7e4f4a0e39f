package core

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

// State is the coarse PHY state.
type State int

const (
	StateIdle State = iota
	StateCcaBusy
	StateRx
	StateTx
	StateSwitching
	StateSleep
	StateOff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCcaBusy:
		return "CCA_BUSY"
	case StateRx:
		return "RX"
	case StateTx:
		return "TX"
	case StateSwitching:
		return "SWITCHING"
	case StateSleep:
		return "SLEEP"
	case StateOff:
		return "OFF"
	}
	return "UNKNOWN"
}

// StateListener observes PHY state transitions. All callbacks run inline on
// the simulation thread.
type StateListener interface {
	RxStart(now, duration time.Duration)
	RxEndOk(now time.Duration)
	RxEndError(now time.Duration)
	TxStart(now, duration time.Duration)
	CcaBusyStart(now, duration time.Duration)
	SwitchingStart(now, duration time.Duration)
	Sleep(now time.Duration)
	Wakeup(now time.Duration)
}

// stateTracker derives the PHY state from the end times of the activities
// that force it out of idle, and fans transitions out to listeners.
type stateTracker struct {
	clock sim.Clock

	sleeping  bool
	off       bool
	rxing     bool
	endTx     time.Duration
	endRx     time.Duration
	endCca    time.Duration
	endSwitch time.Duration

	listeners []StateListener
}

func newStateTracker(clock sim.Clock) *stateTracker {
	return &stateTracker{clock: clock}
}

func (s *stateTracker) RegisterListener(l StateListener) {
	s.listeners = append(s.listeners, l)
}

// State returns the current PHY state. Activities shadow one another in a
// fixed priority: power state, then switching, then TX/RX, then CCA.
func (s *stateTracker) State() State {
	now := s.clock.Now()
	switch {
	case s.off:
		return StateOff
	case s.sleeping:
		return StateSleep
	case now < s.endSwitch:
		return StateSwitching
	case now < s.endTx:
		return StateTx
	case s.rxing:
		return StateRx
	case now < s.endCca:
		return StateCcaBusy
	}
	return StateIdle
}

func (s *stateTracker) IsIdle() bool { return s.State() == StateIdle }

// IsReceiving reports whether an RX is currently committed.
func (s *stateTracker) IsReceiving() bool { return s.rxing }

// DelayUntilIdle returns how long until every ongoing activity has run out.
// Zero when already idle; sleep and off never expire by themselves.
func (s *stateTracker) DelayUntilIdle() time.Duration {
	now := s.clock.Now()
	end := now
	for _, e := range []time.Duration{s.endTx, s.endRx, s.endCca, s.endSwitch} {
		if e > end {
			end = e
		}
	}
	return end - now
}

func (s *stateTracker) SwitchToTx(duration time.Duration) {
	now := s.clock.Now()
	if s.rxing {
		panic("phy: TX started while receiving")
	}
	s.endTx = now + duration
	for _, l := range s.listeners {
		l.TxStart(now, duration)
	}
}

func (s *stateTracker) SwitchToRx(duration time.Duration) {
	now := s.clock.Now()
	if s.rxing || now < s.endTx {
		panic(fmt.Sprintf("phy: RX started in state %v", s.State()))
	}
	s.rxing = true
	s.endRx = now + duration
	for _, l := range s.listeners {
		l.RxStart(now, duration)
	}
}

// SwitchFromRxEndOk ends the committed reception successfully.
func (s *stateTracker) SwitchFromRxEndOk() {
	s.doneRx()
	for _, l := range s.listeners {
		l.RxEndOk(s.clock.Now())
	}
}

// SwitchFromRxEndError ends the committed reception with a decoding failure.
func (s *stateTracker) SwitchFromRxEndError() {
	s.doneRx()
	for _, l := range s.listeners {
		l.RxEndError(s.clock.Now())
	}
}

// SwitchFromRxAbort drops the committed reception without an RX outcome, for
// packet switching and channel changes.
func (s *stateTracker) SwitchFromRxAbort() {
	s.doneRx()
}

func (s *stateTracker) doneRx() {
	if !s.rxing {
		panic("phy: RX ended but none in progress")
	}
	s.rxing = false
	s.endRx = s.clock.Now()
}

// MaybeCcaBusy extends the CCA busy period to now+duration if that is later
// than the current one. A zero or negative duration never shortens it.
func (s *stateTracker) MaybeCcaBusy(duration time.Duration) {
	now := s.clock.Now()
	if now+duration <= s.endCca {
		return
	}
	s.endCca = now + duration
	if duration <= 0 {
		return
	}
	for _, l := range s.listeners {
		l.CcaBusyStart(now, duration)
	}
}

// ResetCca cuts any ongoing CCA busy period short.
func (s *stateTracker) ResetCca() {
	now := s.clock.Now()
	if s.endCca > now {
		s.endCca = now
	}
}

func (s *stateTracker) SwitchToChannelSwitching(duration time.Duration) {
	now := s.clock.Now()
	if s.rxing {
		s.doneRx()
	}
	s.endSwitch = now + duration
	s.endCca = now
	for _, l := range s.listeners {
		l.SwitchingStart(now, duration)
	}
}

func (s *stateTracker) SwitchToSleep() {
	s.sleeping = true
	for _, l := range s.listeners {
		l.Sleep(s.clock.Now())
	}
}

func (s *stateTracker) SwitchFromSleep() {
	s.sleeping = false
	for _, l := range s.listeners {
		l.Wakeup(s.clock.Now())
	}
}

func (s *stateTracker) SwitchToOff()   { s.off = true }
func (s *stateTracker) SwitchFromOff() { s.off = false }
