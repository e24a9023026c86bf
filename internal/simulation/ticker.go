package simulation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Actor is advanced once per tick.
type Actor interface {
	Tick(dt time.Duration)
}

// ActorFunc adapts a function into an Actor.
type ActorFunc func(dt time.Duration)

// Tick calls f.
func (f ActorFunc) Tick(dt time.Duration) { f(dt) }

// Frame describes a completed tick.
type Frame struct {
	Number uint64
	Now    time.Duration
}

type namedActor struct {
	name  string
	actor Actor
}

// Ticker advances the clock and its actors at a fixed interval.
// Actors run sequentially in registration order on the ticking goroutine.
//
// Invariant: every actor sees each frame exactly once and in order.
type Ticker struct {
	clock    *Clock
	interval time.Duration
	log      *zap.Logger

	mu          sync.Mutex
	actors      []namedActor
	subscribers map[chan<- Frame]struct{}
	frame       uint64
}

// NewTicker returns a stopped ticker.
//
// Precondition: clock must be non-nil; interval must be > 0.
func NewTicker(clock *Clock, interval time.Duration, logger *zap.Logger) *Ticker {
	if clock == nil {
		panic("simulation.NewTicker: clock must be non-nil")
	}
	if interval <= 0 {
		panic("simulation.NewTicker: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{
		clock:       clock,
		interval:    interval,
		log:         logger.Named("ticker"),
		subscribers: make(map[chan<- Frame]struct{}),
	}
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Add registers an actor. Actors added during a tick run from the next one.
//
// Precondition: name must be non-empty; a must be non-nil.
func (t *Ticker) Add(name string, a Actor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actors = append(t.actors, namedActor{name: name, actor: a})
}

// Remove unregisters every actor called name.
func (t *Ticker) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.actors[:0]
	for _, na := range t.actors {
		if na.name != name {
			kept = append(kept, na)
		}
	}
	t.actors = kept
}

// Subscribe registers ch to receive a Frame after each tick.
// If ch is full, the frame is dropped for that subscriber.
//
// Precondition: ch must not be nil.
func (t *Ticker) Subscribe(ch chan<- Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (t *Ticker) Unsubscribe(ch chan<- Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, ch)
}

// Step runs one tick: the clock advances by the interval, then every actor
// ticks. An actor that panics is logged and the remaining actors still run.
//
// Postcondition: the returned frame number is one more than the previous one.
func (t *Ticker) Step() Frame {
	now := t.clock.Advance(t.interval)

	t.mu.Lock()
	t.frame++
	frame := Frame{Number: t.frame, Now: now}
	actors := make([]namedActor, len(t.actors))
	copy(actors, t.actors)
	t.mu.Unlock()

	for _, na := range actors {
		t.tickActor(na, frame.Number)
	}

	t.mu.Lock()
	subs := make([]chan<- Frame, 0, len(t.subscribers))
	for ch := range t.subscribers {
		subs = append(subs, ch)
	}
	t.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- frame:
		default:
		}
	}
	return frame
}

func (t *Ticker) tickActor(na namedActor, frame uint64) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("actor panicked",
				zap.String("actor", na.name),
				zap.Any("panic", r),
				zap.Uint64("frame", frame),
			)
		}
	}()
	na.actor.Tick(t.interval)
}

// Run steps the ticker every interval until ctx is cancelled.
//
// Postcondition: returns nil once ctx is done.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	t.log.Info("ticker running", zap.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.log.Info("ticker stopped", zap.Uint64("frames", t.Frames()))
			return nil
		case <-ticker.C:
			t.Step()
		}
	}
}

// Frames returns the number of completed ticks.
func (t *Ticker) Frames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}
