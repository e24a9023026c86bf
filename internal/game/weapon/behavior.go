package weapon

import (
	"fmt"
	"sort"
	"time"
)

// Behavior drives one weapon class through the operating states. The
// controller calls exactly one state handler per tick, and only while the
// behavior is not waiting.
type Behavior interface {
	Raise()
	Idle()
	Lower()
	Reload()
	Fire()

	// ResetStates zeroes every sub-state and clears the wait deadline.
	ResetStates()
	// CanSwitchState reports whether the controller may commit a new state.
	CanSwitchState() bool
	// HasWaitSignal reports whether the behavior is waiting on a deadline.
	HasWaitSignal() bool
	IsRisen() bool
	IsHolstered() bool

	SubStates() SubStates
	SetSubStates(s SubStates)
}

// SubStates is the progress of a behavior inside each operating state.
type SubStates struct {
	Rising    int
	Idle      int
	Lowering  int
	Firing    int
	Reload    int
	Holstered bool
	Risen     bool
	// WaitUntil is the game time the behavior waits for.
	WaitUntil time.Duration
	// Mark is per-behavior bookkeeping, such as when a charge started.
	Mark time.Duration
}

// BehaviorBase carries the sub-states every behavior shares and implements
// the default raise, idle and lower sequences. Concrete behaviors embed it.
type BehaviorBase struct {
	w *Weapon
	s SubStates
}

// NewBehaviorBase returns a base bound to w.
//
// Precondition: w must be non-nil.
func NewBehaviorBase(w *Weapon) *BehaviorBase {
	if w == nil {
		panic("weapon: NewBehaviorBase: weapon must be non-nil")
	}
	return &BehaviorBase{w: w}
}

// Weapon returns the driven weapon.
func (b *BehaviorBase) Weapon() *Weapon { return b.w }

// States returns the mutable sub-states.
func (b *BehaviorBase) States() *SubStates { return &b.s }

// SubStates returns a copy of the sub-states for saving.
func (b *BehaviorBase) SubStates() SubStates { return b.s }

// SetSubStates replaces the sub-states with restored ones.
func (b *BehaviorBase) SetSubStates(s SubStates) { b.s = s }

// IsRisen reports whether the raise animation has completed.
func (b *BehaviorBase) IsRisen() bool { return b.s.Risen }

// IsHolstered reports whether the weapon is fully put away.
func (b *BehaviorBase) IsHolstered() bool { return b.s.Holstered }

// ResetStates clears every sub-state, including a pending wait.
func (b *BehaviorBase) ResetStates() {
	b.s = SubStates{}
}

// CanSwitchState refuses a switch while a shot or a reload is in progress.
func (b *BehaviorBase) CanSwitchState() bool {
	return b.s.Firing == 0 && b.s.Reload == 0
}

// HasWaitSignal reports whether a Wait is still running.
func (b *BehaviorBase) HasWaitSignal() bool {
	return b.s.WaitUntil > b.w.now()
}

// Wait suspends the behavior for d of game time.
func (b *BehaviorBase) Wait(d time.Duration) {
	b.s.WaitUntil = b.w.now() + d
}

// Done signals the weapon ready unless another state was requested meanwhile.
func (b *BehaviorBase) Done() {
	if b.w.idealState == b.w.state {
		b.w.WeaponReady()
	}
}

func (b *BehaviorBase) Raise() {
	switch b.s.Rising {
	case 0:
		b.s.Risen = false
		b.s.Holstered = false
		b.w.RaiseWeapon()
		b.Wait(b.w.PlayAnim(AnimRaise, b.w.animBlendFrames))
		b.s.Rising = 1
	default:
		b.s.Risen = true
		b.Done()
	}
}

func (b *BehaviorBase) Lower() {
	switch b.s.Lowering {
	case 0:
		b.s.Risen = false
		b.Wait(b.w.PlayAnim(AnimPutAway, b.w.animBlendFrames))
		b.s.Lowering = 1
	case 1:
		b.s.Holstered = true
		b.w.LowerWeapon()
		b.w.WeaponHolstered()
		b.s.Lowering = 2
	}
}

func (b *BehaviorBase) Idle() {
	if b.s.Idle == 0 {
		b.w.PlayCycle(AnimIdle, b.w.animBlendFrames)
		b.s.Idle = 1
	}
	if b.w.IsAttacking() && b.w.def.Behavior.Automatic {
		b.w.SetWeaponState(StateFire, 0)
	}
}

func (b *BehaviorBase) Reload() { b.Done() }
func (b *BehaviorBase) Fire()   { b.Done() }

// Weapon classes registered by DefaultBehaviors.
const (
	ClassMelee    = "melee"
	ClassFirearm  = "firearm"
	ClassLauncher = "launcher"
	ClassCharged  = "charged"
)

// BehaviorFactory builds a behavior around base.
type BehaviorFactory func(base *BehaviorBase) Behavior

// BehaviorRegistry maps weapon class names to behavior factories.
type BehaviorRegistry struct {
	factories map[string]BehaviorFactory
}

// NewBehaviorRegistry returns an empty registry.
func NewBehaviorRegistry() *BehaviorRegistry {
	return &BehaviorRegistry{factories: make(map[string]BehaviorFactory)}
}

// Register adds factory under class.
//
// Precondition: class must be non-empty and factory non-nil.
// Postcondition: returns an error if class is already registered.
func (r *BehaviorRegistry) Register(class string, factory BehaviorFactory) error {
	if class == "" || factory == nil {
		panic("weapon: BehaviorRegistry.Register: class and factory are required")
	}
	if _, ok := r.factories[class]; ok {
		return fmt.Errorf("weapon: BehaviorRegistry.Register: duplicate weapon_class %q", class)
	}
	r.factories[class] = factory
	return nil
}

// Has reports whether class is registered.
func (r *BehaviorRegistry) Has(class string) bool {
	_, ok := r.factories[class]
	return ok
}

// Classes returns the registered class names in sorted order.
func (r *BehaviorRegistry) Classes() []string {
	out := make([]string, 0, len(r.factories))
	for c := range r.factories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// New builds the behavior for class driving w.
//
// Postcondition: returns an error wrapping ErrUnknownWeaponClass when class is not registered.
func (r *BehaviorRegistry) New(class string, w *Weapon) (Behavior, error) {
	f, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownWeaponClass, class)
	}
	return f(NewBehaviorBase(w)), nil
}

// DefaultBehaviors returns a registry holding the built-in weapon classes.
func DefaultBehaviors() *BehaviorRegistry {
	r := NewBehaviorRegistry()
	for class, f := range map[string]BehaviorFactory{
		ClassMelee:    NewMeleeBehavior,
		ClassFirearm:  NewFirearmBehavior,
		ClassLauncher: NewLauncherBehavior,
		ClassCharged:  NewChargedBehavior,
	} {
		if err := r.Register(class, f); err != nil {
			panic(err)
		}
	}
	return r
}
