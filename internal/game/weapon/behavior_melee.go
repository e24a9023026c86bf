package weapon

import "time"

// Melee swings the weapon and resolves the strike halfway through the fire delay.
type Melee struct {
	*BehaviorBase
}

// NewMeleeBehavior returns the melee behavior.
func NewMeleeBehavior(base *BehaviorBase) Behavior {
	return &Melee{BehaviorBase: base}
}

func (m *Melee) Fire() {
	w := m.w
	switch m.s.Firing {
	case 0:
		m.swing()
	case 1:
		w.Melee()
		m.Wait(m.delay() - m.delay()/2)
		m.s.Firing = 2
	default:
		if w.def.Behavior.Automatic && w.IsAttacking() {
			m.swing()
			return
		}
		m.s.Firing = 0
		m.Done()
	}
}

// swing starts the attack animation and waits until the strike lands.
func (m *Melee) swing() {
	m.s.Mark = m.w.PlayAnim(AnimFire, 0)
	m.Wait(m.delay() / 2)
	m.s.Firing = 1
}

// delay is the swing duration: the fire delay, or the animation length without one.
func (m *Melee) delay() time.Duration {
	if d := m.w.def.Behavior.FireDelay.Duration(); d > 0 {
		return d
	}
	return m.s.Mark
}
