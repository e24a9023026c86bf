package simulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/armory/internal/simulation"
)

func TestClock_Advance(t *testing.T) {
	c := simulation.NewClock(time.Second)
	assert.Equal(t, time.Second, c.Now())
	assert.Equal(t, 1500*time.Millisecond, c.Advance(500*time.Millisecond))
	c.Set(10 * time.Second)
	assert.Equal(t, 10*time.Second, c.Now())
}

func TestClock_NegativeAdvancePanics(t *testing.T) {
	c := simulation.NewClock(0)
	assert.Panics(t, func() { c.Advance(-time.Millisecond) })
}

func TestNewTicker_Preconditions(t *testing.T) {
	assert.Panics(t, func() { simulation.NewTicker(nil, time.Millisecond, nil) })
	assert.Panics(t, func() { simulation.NewTicker(simulation.NewClock(0), 0, nil) })
}

func TestStep_AdvancesClockThenActorsInOrder(t *testing.T) {
	clock := simulation.NewClock(0)
	tk := simulation.NewTicker(clock, 16*time.Millisecond, zaptest.NewLogger(t))

	var order []string
	var seen []time.Duration
	tk.Add("a", simulation.ActorFunc(func(dt time.Duration) {
		order = append(order, "a")
		seen = append(seen, clock.Now())
		assert.Equal(t, 16*time.Millisecond, dt)
	}))
	tk.Add("b", simulation.ActorFunc(func(time.Duration) { order = append(order, "b") }))

	f := tk.Step()
	assert.Equal(t, uint64(1), f.Number)
	assert.Equal(t, 16*time.Millisecond, f.Now)
	tk.Step()

	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
	assert.Equal(t, []time.Duration{16 * time.Millisecond, 32 * time.Millisecond}, seen)
	assert.Equal(t, uint64(2), tk.Frames())
}

func TestStep_RemoveActor(t *testing.T) {
	tk := simulation.NewTicker(simulation.NewClock(0), time.Millisecond, nil)
	calls := 0
	tk.Add("a", simulation.ActorFunc(func(time.Duration) { calls++ }))
	tk.Step()
	tk.Remove("a")
	tk.Step()
	assert.Equal(t, 1, calls)
}

func TestStep_PanickingActorDoesNotStopOthers(t *testing.T) {
	tk := simulation.NewTicker(simulation.NewClock(0), time.Millisecond, zaptest.NewLogger(t))
	ran := false
	tk.Add("bad", simulation.ActorFunc(func(time.Duration) { panic("boom") }))
	tk.Add("good", simulation.ActorFunc(func(time.Duration) { ran = true }))
	assert.NotPanics(t, func() { tk.Step() })
	assert.True(t, ran)
}

func TestSubscribe_NonBlocking(t *testing.T) {
	tk := simulation.NewTicker(simulation.NewClock(0), time.Millisecond, nil)
	ch := make(chan simulation.Frame, 1)
	tk.Subscribe(ch)

	tk.Step()
	tk.Step()
	require.Len(t, ch, 1)
	assert.Equal(t, uint64(1), (<-ch).Number, "the second frame is dropped while the channel is full")

	tk.Unsubscribe(ch)
	tk.Step()
	assert.Empty(t, ch)
}

func TestRun_StopsOnCancel(t *testing.T) {
	tk := simulation.NewTicker(simulation.NewClock(0), time.Millisecond, zaptest.NewLogger(t))
	frames := make(chan simulation.Frame, 64)
	tk.Subscribe(frames)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within 2s")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestProperty_ClockMatchesFrames(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		interval := time.Duration(rapid.IntRange(1, 100).Draw(rt, "interval_ms")) * time.Millisecond
		steps := rapid.IntRange(0, 50).Draw(rt, "steps")
		clock := simulation.NewClock(0)
		tk := simulation.NewTicker(clock, interval, nil)
		for i := 0; i < steps; i++ {
			tk.Step()
		}
		if clock.Now() != time.Duration(steps)*interval {
			rt.Fatalf("clock %v after %d steps of %v", clock.Now(), steps, interval)
		}
		if tk.Frames() != uint64(steps) {
			rt.Fatalf("frames %d, want %d", tk.Frames(), steps)
		}
	})
}
