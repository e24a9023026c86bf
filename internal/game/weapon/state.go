package weapon

import "fmt"

// State is the operating state of a weapon.
type State int

const (
	StateNone State = iota
	StateHolstered
	StateRising
	StateLowering
	StateIdle
	StateReload
	StateFire
	StateOutOfAmmo
	// StateReady is a transient request that Think normalizes to StateIdle.
	StateReady
)

var stateNames = [...]string{
	StateNone:      "NONE",
	StateHolstered: "HOLSTERED",
	StateRising:    "RISING",
	StateLowering:  "LOWERING",
	StateIdle:      "IDLE",
	StateReload:    "RELOAD",
	StateFire:      "FIRE",
	StateOutOfAmmo: "OUT_OF_AMMO",
	StateReady:     "READY",
}

// String returns the state name used in logs.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Optional holds a value that may be absent.
type Optional[T any] struct {
	v  T
	ok bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{v: v, ok: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.ok
}

// OrElse returns the value, or d when absent.
func (o Optional[T]) OrElse(d T) T {
	if o.ok {
		return o.v
	}
	return d
}

// UnknownClip is the equip-time clip count that asks Equip to fill the clip
// from the owner's inventory.
func UnknownClip() Optional[int] {
	return None[int]()
}
