package sim

import (
	"testing"
	"time"
)

func TestSchedulerRunsEventsInTimeOrder(t *testing.T) {
	s := NewScheduler()

	var order []string
	s.Schedule(30*time.Microsecond, func() { order = append(order, "c") })
	s.Schedule(10*time.Microsecond, func() { order = append(order, "a") })
	s.Schedule(20*time.Microsecond, func() { order = append(order, "b") })

	s.Run()

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected events in time order [a b c], got %v", order)
	}
	if s.Now() != 30*time.Microsecond {
		t.Fatalf("expected clock at 30us after run, got %v", s.Now())
	}
}

func TestSchedulerSameTimestampKeepsSchedulingOrder(t *testing.T) {
	s := NewScheduler()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.Schedule(time.Millisecond, func() { order = append(order, i) })
	}
	s.Run()

	for i, got := range order {
		if got != i {
			t.Fatalf("expected FIFO order for simultaneous events, got %v", order)
		}
	}
}

func TestSchedulerCancelPreventsFiring(t *testing.T) {
	s := NewScheduler()

	fired := false
	id := s.Schedule(time.Second, func() { fired = true })
	s.Cancel(id)
	s.Run()

	if fired {
		t.Fatalf("cancelled event fired")
	}
	// Cancelling again (or an unknown ID) must be a no-op.
	s.Cancel(id)
	s.Cancel(EventID(9999))
}

func TestSchedulerCancelFromWithinCallback(t *testing.T) {
	s := NewScheduler()

	fired := false
	var victim EventID
	victim = s.Schedule(2*time.Second, func() { fired = true })
	s.Schedule(time.Second, func() { s.Cancel(victim) })
	s.Run()

	if fired {
		t.Fatalf("event cancelled from an earlier callback still fired")
	}
}

func TestSchedulerNestedScheduling(t *testing.T) {
	s := NewScheduler()

	var at time.Duration
	s.Schedule(time.Second, func() {
		s.ScheduleIn(500*time.Millisecond, func() { at = s.Now() })
	})
	s.Run()

	if at != 1500*time.Millisecond {
		t.Fatalf("expected nested event at 1.5s, got %v", at)
	}
}

func TestSchedulerRunUntilStopsAtBound(t *testing.T) {
	s := NewScheduler()

	ran := 0
	s.Schedule(time.Second, func() { ran++ })
	s.Schedule(3*time.Second, func() { ran++ })

	s.RunUntil(2 * time.Second)
	if ran != 1 {
		t.Fatalf("expected only the first event before the bound, ran=%d", ran)
	}
	if s.Now() != 2*time.Second {
		t.Fatalf("expected clock advanced exactly to bound, got %v", s.Now())
	}

	s.Run()
	if ran != 2 {
		t.Fatalf("expected remaining event to run, ran=%d", ran)
	}
}

func TestSchedulerPastSchedulingPanics(t *testing.T) {
	s := NewScheduler()
	s.Schedule(time.Second, func() {})
	s.Run()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when scheduling in the past")
		}
	}()
	s.Schedule(500*time.Millisecond, func() {})
}

func TestPpduUIDsAreUniqueAndMonotone(t *testing.T) {
	s := NewScheduler()
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		uid := s.NextPpduUID()
		if uid <= prev {
			t.Fatalf("UID %d not strictly greater than previous %d", uid, prev)
		}
		prev = uid
	}
}
