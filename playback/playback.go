// Package playback holds the shared play/pause/speed/reset state that
// drives all actors' time integration. The Clock is a pure state
// container: it never schedules ticks itself, it only records playback
// intent and notifies subscribers when that intent changes.
package playback

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidSpeed indicates a non-positive speed multiplier was rejected.
var ErrInvalidSpeed = errors.New("speed multiplier must be positive")

// State is a snapshot of the clock.
type State struct {
	Playing bool
	Paused  bool
	// Reset is a transient flag raised by Stop. It instructs the engine to
	// reinitialize animation states; the engine clears it via AckReset.
	Reset bool
	// Elapsed accumulates played time via AddElapsed, which does not
	// notify subscribers. Poll it through Snapshot.
	Elapsed time.Duration
	Speed   float64
}

// Clock is a thread-safe playback state machine with an observer list.
// Mutators notify subscribers synchronously, outside the lock.
type Clock struct {
	mu    sync.RWMutex
	state State
	subs  []func(State)
}

// NewClock constructs a stopped clock at 1x speed.
func NewClock() *Clock {
	return &Clock{state: State{Speed: 1.0}}
}

// Snapshot returns the current state.
func (c *Clock) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Play starts or resumes playback. Idempotent: calling Play while
// already playing does not re-notify subscribers.
func (c *Clock) Play() {
	c.mu.Lock()
	if c.state.Playing && !c.state.Paused {
		c.mu.Unlock()
		return
	}
	c.state.Playing = true
	c.state.Paused = false
	c.notifyLocked()
}

// Pause suspends playback without touching elapsed time.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.state.Playing = false
	c.state.Paused = true
	c.state.Reset = false
	c.notifyLocked()
}

// Stop halts playback and raises the reset flag; elapsed time returns
// to zero while the speed multiplier is preserved.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.state.Playing = false
	c.state.Paused = true
	c.state.Reset = true
	c.state.Elapsed = 0
	c.notifyLocked()
}

// SetSpeed updates the speed multiplier. Non-positive values are rejected.
func (c *Clock) SetSpeed(multiplier float64) error {
	if multiplier <= 0 {
		return ErrInvalidSpeed
	}
	c.mu.Lock()
	c.state.Speed = multiplier
	c.notifyLocked()
	return nil
}

// AddElapsed accumulates playback time. Called by the engine's tick
// loop every frame; notifying per tick would swamp subscribers, so
// elapsed time is polled instead.
func (c *Clock) AddElapsed(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Elapsed += d
}

// AckReset clears the transient reset flag once the engine has
// reinitialized its animation states. Subscribers are notified of the
// cleared flag; calling AckReset when no reset is pending is a no-op.
func (c *Clock) AckReset() {
	c.mu.Lock()
	if !c.state.Reset {
		c.mu.Unlock()
		return
	}
	c.state.Reset = false
	c.notifyLocked()
}

// Subscribe registers a callback invoked after every state mutation.
// It returns an unsubscribe function.
func (c *Clock) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
	idx := len(c.subs) - 1

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < 0 || idx >= len(c.subs) {
			return
		}
		c.subs = append(c.subs[:idx], c.subs[idx+1:]...)
		idx = -1
	}
}

// notifyLocked snapshots state and subscribers, releases the lock, and
// invokes the callbacks. Callers must hold c.mu; it is released here.
func (c *Clock) notifyLocked() {
	state := c.state
	subs := append([]func(State){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
