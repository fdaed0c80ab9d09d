package playback

import (
	"testing"
	"time"
)

func TestClockInitialState(t *testing.T) {
	c := NewClock()
	st := c.Snapshot()
	if st.Playing || st.Paused || st.Reset {
		t.Fatalf("new clock should be fully stopped, got %+v", st)
	}
	if st.Speed != 1.0 {
		t.Fatalf("new clock speed = %v, want 1.0", st.Speed)
	}
}

func TestClockPlayPauseStop(t *testing.T) {
	c := NewClock()

	c.Play()
	if st := c.Snapshot(); !st.Playing || st.Paused {
		t.Fatalf("after Play: %+v", st)
	}

	c.Pause()
	if st := c.Snapshot(); st.Playing || !st.Paused || st.Reset {
		t.Fatalf("after Pause: %+v", st)
	}

	c.Play()
	c.AddElapsed(3 * time.Second)
	c.Stop()
	st := c.Snapshot()
	if st.Playing || !st.Paused || !st.Reset {
		t.Fatalf("after Stop: %+v", st)
	}
	if st.Elapsed != 0 {
		t.Fatalf("Stop should zero elapsed time, got %v", st.Elapsed)
	}
}

func TestClockStopPreservesSpeed(t *testing.T) {
	c := NewClock()
	if err := c.SetSpeed(4); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	c.Stop()
	if st := c.Snapshot(); st.Speed != 4 {
		t.Fatalf("Stop should preserve speed, got %v", st.Speed)
	}
}

func TestClockSetSpeedRejectsNonPositive(t *testing.T) {
	c := NewClock()
	for _, v := range []float64{0, -1} {
		if err := c.SetSpeed(v); err != ErrInvalidSpeed {
			t.Fatalf("SetSpeed(%v) = %v, want ErrInvalidSpeed", v, err)
		}
	}
	if st := c.Snapshot(); st.Speed != 1.0 {
		t.Fatalf("rejected SetSpeed must not change speed, got %v", st.Speed)
	}
}

func TestClockPlayIdempotent(t *testing.T) {
	c := NewClock()
	notifications := 0
	c.Subscribe(func(State) { notifications++ })

	c.Play()
	c.Play()
	c.Play()
	if notifications != 1 {
		t.Fatalf("redundant Play calls notified %d times, want 1", notifications)
	}
}

func TestClockSubscribeNotifiesSynchronously(t *testing.T) {
	c := NewClock()
	var seen []State
	unsubscribe := c.Subscribe(func(st State) { seen = append(seen, st) })

	c.Play()
	c.Pause()
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if !seen[0].Playing || seen[1].Playing {
		t.Fatalf("notification order wrong: %+v", seen)
	}

	unsubscribe()
	c.Play()
	if len(seen) != 2 {
		t.Fatalf("unsubscribed callback still invoked, got %d notifications", len(seen))
	}
}

func TestClockAckResetClearsFlag(t *testing.T) {
	c := NewClock()
	c.Stop()
	if st := c.Snapshot(); !st.Reset {
		t.Fatalf("Stop should raise reset flag")
	}
	c.AckReset()
	if st := c.Snapshot(); st.Reset {
		t.Fatalf("AckReset should clear reset flag")
	}
}

func TestClockAckResetNotifies(t *testing.T) {
	c := NewClock()
	c.Stop()

	var seen []State
	c.Subscribe(func(st State) { seen = append(seen, st) })

	c.AckReset()
	if len(seen) != 1 {
		t.Fatalf("AckReset notified %d times, want 1", len(seen))
	}
	if seen[0].Reset {
		t.Fatalf("notification should carry the cleared flag: %+v", seen[0])
	}

	// With no reset pending there is nothing to acknowledge.
	c.AckReset()
	if len(seen) != 1 {
		t.Fatalf("redundant AckReset notified, got %d notifications", len(seen))
	}
}

func TestClockSubscriberMayMutateClock(t *testing.T) {
	// Notification happens outside the lock, so a subscriber reacting to a
	// state change may call back into the clock without deadlocking.
	c := NewClock()
	c.Subscribe(func(st State) {
		if st.Reset {
			c.AckReset()
		}
	})
	c.Stop()
	if st := c.Snapshot(); st.Reset {
		t.Fatalf("subscriber re-entrancy failed to clear reset")
	}
}
