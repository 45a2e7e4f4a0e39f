package sim

import (
	"sort"
	"time"
)

// EventID identifies a scheduled callback so it can be cancelled before it
// fires. The zero value never matches a live event.
type EventID uint64

// Clock is the read-only view of simulation time handed to components that
// must not schedule anything themselves (e.g. the interference ledger).
type Clock interface {
	// Now returns the current simulation time, expressed as the elapsed
	// duration since the start of the run.
	Now() time.Duration
}

// Scheduler is a single-threaded discrete-event scheduler. All simulation
// state transitions happen inside callbacks it invokes; there is no parallel
// execution, so no callback ever observes a half-applied mutation.
//
// Events scheduled for the same timestamp run in the order they were
// scheduled. Cancelled events never fire; cancelling an unknown or already
// executed ID is a no-op.
//
// The scheduler also owns the run-wide PPDU UID counter. Uplink multi-user
// transmissions reuse packet identifiers across logical PHYs, so every PPDU
// needs a UID that is unique for the whole simulation, not per device.
type Scheduler struct {
	now     time.Duration
	counter uint64
	uid     uint64

	events []*scheduledEvent
	index  map[EventID]*scheduledEvent
}

type scheduledEvent struct {
	id        EventID
	when      time.Duration
	seq       uint64
	f         func()
	cancelled bool
}

// NewScheduler creates a scheduler positioned at simulation time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		index: make(map[EventID]*scheduledEvent),
	}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// NextPpduUID returns a fresh PPDU UID. UIDs increase monotonically for the
// lifetime of the scheduler.
func (s *Scheduler) NextPpduUID() uint64 {
	s.uid++
	return s.uid
}

// Schedule registers f to run at the absolute simulation time at. Scheduling
// in the past is a programming error in a discrete-event system.
func (s *Scheduler) Schedule(at time.Duration, f func()) EventID {
	if at < s.now {
		panic("sim: scheduling an event in the past")
	}
	s.counter++
	ev := &scheduledEvent{
		id:   EventID(s.counter),
		when: at,
		seq:  s.counter,
		f:    f,
	}
	s.insert(ev)
	s.index[ev.id] = ev
	return ev.id
}

// ScheduleIn registers f to run d after the current simulation time.
func (s *Scheduler) ScheduleIn(d time.Duration, f func()) EventID {
	return s.Schedule(s.now+d, f)
}

// insert places ev into the time-ordered event list. Events with equal
// timestamps keep scheduling order (seq breaks the tie), which makes
// simultaneous arrivals deterministic.
func (s *Scheduler) insert(ev *scheduledEvent) {
	idx := sort.Search(len(s.events), func(i int) bool {
		e := s.events[i]
		if e.when != ev.when {
			return e.when > ev.when
		}
		return e.seq > ev.seq
	})
	s.events = append(s.events, nil)
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev
}

// Cancel prevents a previously scheduled event from firing. Removal from the
// ordered list is lazy; Run skips cancelled entries.
func (s *Scheduler) Cancel(id EventID) {
	ev, ok := s.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, id)
}

// Pending reports how many scheduled events have not yet run or been
// cancelled.
func (s *Scheduler) Pending() int {
	return len(s.index)
}

// Run executes every scheduled event in timestamp order, advancing the
// simulation clock to each event's time, until the queue is empty.
func (s *Scheduler) Run() {
	for s.step(0, false) {
	}
}

// RunUntil executes events in order until the queue is empty or the next
// event lies beyond t, then advances the clock to exactly t.
func (s *Scheduler) RunUntil(t time.Duration) {
	for s.step(t, true) {
	}
	if t > s.now {
		s.now = t
	}
}

// step pops and runs the earliest runnable event. It returns false when
// nothing is left to run (or, when bounded, when the next event is past the
// bound).
func (s *Scheduler) step(bound time.Duration, bounded bool) bool {
	for len(s.events) > 0 {
		ev := s.events[0]
		if ev.cancelled {
			s.events = s.events[1:]
			continue
		}
		if bounded && ev.when > bound {
			return false
		}
		s.events = s.events[1:]
		delete(s.index, ev.id)
		s.now = ev.when
		if ev.f != nil {
			ev.f()
		}
		return true
	}
	return false
}
