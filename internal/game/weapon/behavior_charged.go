package weapon

import "go.uber.org/zap"

// Charged builds power while the attack is held and releases one shot whose
// damage power scales with the charge.
type Charged struct {
	*BehaviorBase
}

// NewChargedBehavior returns the charged behavior.
func NewChargedBehavior(base *BehaviorBase) Behavior {
	return &Charged{BehaviorBase: base}
}

func (c *Charged) Fire() {
	w := c.w
	p := w.def.Behavior
	switch c.s.Firing {
	case 0:
		if !w.CanFire() {
			w.WeaponOutOfAmmo()
			return
		}
		c.s.Mark = w.now()
		w.PlayCycle(AnimCharge, 0)
		c.s.Firing = 1
	case 1:
		held := w.now() - c.s.Mark
		full := p.ChargeTime.Duration()
		if w.IsAttacking() && held < full {
			return
		}
		frac := 1.0
		if full > 0 && held < full {
			frac = float64(held) / float64(full)
		}
		if err := w.LaunchProjectiles(p.Projectiles, p.Spread, p.FuseOffset, p.LaunchPower, frac*p.DamagePower); err != nil {
			w.log.Error("launch failed", zap.Error(err))
		}
		w.StartSound(SoundChannelWeapon, w.def.FireSound)
		length := w.PlayAnim(AnimFire, 0)
		if d := p.FireDelay.Duration(); d > 0 {
			length = d
		}
		c.Wait(length)
		c.s.Firing = 2
	default:
		c.s.Firing = 0
		c.Done()
	}
}
