package engine

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/actor-motion-sim/internal/logging"
	"github.com/signalsfoundry/actor-motion-sim/playback"
)

// defaultFrameInterval approximates one display frame.
const defaultFrameInterval = 16 * time.Millisecond

// LoopOption customises Loop construction.
type LoopOption func(*Loop)

// WithFrameInterval overrides the tick interval.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithAdapters registers rendering adapters notified after every step.
func WithAdapters(adapters ...Adapter) LoopOption {
	return func(l *Loop) {
		l.adapters = append(l.adapters, adapters...)
	}
}

// WithLoopLogger attaches a structured logger to the loop.
func WithLoopLogger(log logging.Logger) LoopOption {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// Loop is the engine's tick scheduler. It subscribes to the playback
// clock and keeps a ticker goroutine alive only while the clock is
// playing. Start is idempotent (at most one goroutine), cancellation is
// cooperative (a stop request takes effect at the next tick boundary),
// and every fresh run integrates a nominal frame for its first tick so
// time spent paused never turns into a position jump.
type Loop struct {
	engine   *Engine
	clock    *playback.Clock
	log      logging.Logger
	interval time.Duration
	adapters []Adapter

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

// NewLoop wires a loop to an engine and its clock. The loop reacts to
// clock changes: Play starts ticking, Pause/Stop winds the ticker down,
// and a raised reset flag reinitializes animation states.
func NewLoop(e *Engine, clock *playback.Clock, opts ...LoopOption) *Loop {
	l := &Loop{
		engine:   e,
		clock:    clock,
		log:      logging.Noop(),
		interval: defaultFrameInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.unsubscribe = clock.Subscribe(l.onClockChange)
	return l
}

// Close detaches the loop from the clock and cancels any running ticker.
func (l *Loop) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	l.requestStop()
}

// Done returns a channel closed when the current run winds down, or nil
// when no run is active. Mainly useful in tests and CLI shutdown.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loop) onClockChange(state playback.State) {
	if state.Reset {
		l.log.Info(context.Background(), "playback reset, reinitializing animation states")
		l.engine.Reinitialize()
		l.clock.AckReset()
		l.notifyAdapters()
	}
	if state.Playing && !state.Paused {
		l.start()
	} else {
		l.requestStop()
	}
}

// start launches the ticker goroutine unless one is already live.
func (l *Loop) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

// requestStop asks the current run to finish. It does not wait: the
// goroutine observes cancellation (or the paused clock) at its next
// tick boundary and exits without stepping again. Blocking here would
// deadlock the completion path, where Step itself pauses the clock.
// The registration is cleared right away so a prompt Play can launch a
// fresh run while the old one winds down.
func (l *Loop) requestStop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		if l.done == done {
			l.cancel = nil
			l.done = nil
		}
		l.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Zero until the first tick: a fresh run integrates one nominal
	// frame instead of wall-clock time accumulated before it started.
	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if st := l.clock.Snapshot(); !st.Playing || st.Paused {
				return
			}

			delta := l.interval
			if !last.IsZero() {
				delta = now.Sub(last)
			}
			last = now

			l.clock.AddElapsed(delta)
			l.engine.Step(float64(delta) / float64(time.Millisecond))
			l.notifyAdapters()
		}
	}
}

// notifyAdapters pushes a read-only state snapshot to every adapter.
func (l *Loop) notifyAdapters() {
	if len(l.adapters) == 0 {
		return
	}
	states := l.engine.States()
	for _, adapter := range l.adapters {
		for id, st := range states {
			adapter.UpdateActor(id, st)
		}
	}
}
