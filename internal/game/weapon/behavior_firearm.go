package weapon

import "go.uber.org/zap"

// reloadBlendFrames is the blend used when a behavior starts a reload on its own.
const reloadBlendFrames = 4

// Firearm fires projectiles from a clip and reloads from the owner's
// inventory, one reload_amount per step.
type Firearm struct {
	*BehaviorBase
}

// NewFirearmBehavior returns the firearm behavior.
func NewFirearmBehavior(base *BehaviorBase) Behavior {
	return &Firearm{BehaviorBase: base}
}

func (f *Firearm) Idle() {
	w := f.w
	if w.TakeNetReload() {
		w.WeaponReloading()
		return
	}
	if f.s.Idle == 0 {
		w.PlayCycle(AnimIdle, w.animBlendFrames)
		f.s.Idle = 1
	}
	if w.clipSize > 0 && w.ammoClip == 0 && !w.isClient() {
		if w.AmmoAvailable() > 0 {
			w.SetWeaponState(StateReload, reloadBlendFrames)
		} else {
			w.WeaponOutOfAmmo()
		}
		return
	}
	if w.IsAttacking() && w.def.Behavior.Automatic {
		w.SetWeaponState(StateFire, 0)
	}
}

func (f *Firearm) Fire() {
	w := f.w
	switch f.s.Firing {
	case 0:
		if !w.CanFire() {
			if w.AmmoAvailable() > 0 {
				w.SetWeaponState(StateReload, reloadBlendFrames)
			} else {
				w.WeaponOutOfAmmo()
			}
			return
		}
		f.shoot()
		f.s.Firing = 1
	default:
		if w.def.Behavior.Automatic && w.IsAttacking() && w.CanFire() {
			f.shoot()
			return
		}
		f.s.Firing = 0
		f.Done()
	}
}

func (f *Firearm) shoot() {
	w := f.w
	p := w.def.Behavior
	if err := w.LaunchProjectiles(p.Projectiles, p.Spread, p.FuseOffset, p.LaunchPower, p.DamagePower); err != nil {
		w.log.Error("launch failed", zap.Error(err))
	}
	f.fireEffects()
}

// fireEffects plays the shot sound and animation and waits out the fire delay.
func (f *Firearm) fireEffects() {
	w := f.w
	w.StartSound(SoundChannelWeapon, w.def.FireSound)
	length := w.PlayAnim(AnimFire, 0)
	if d := w.def.Behavior.FireDelay.Duration(); d > 0 {
		length = d
	}
	f.Wait(length)
}

func (f *Firearm) Reload() {
	w := f.w
	switch f.s.Reload {
	case 0:
		if w.clipSize == 0 || w.ammoClip >= w.clipSize || w.AmmoAvailable() <= w.ammoClip {
			f.Done()
			return
		}
		w.NetReload()
		length := w.PlayAnim(AnimReload, w.animBlendFrames)
		if d := w.def.Behavior.ReloadDelay.Duration(); d > 0 {
			length = d
		}
		f.Wait(length)
		f.s.Reload = 1
	default:
		amount := w.def.Behavior.ReloadAmount
		if amount <= 0 {
			amount = w.clipSize
		}
		w.AddToClip(amount)
		if w.def.Behavior.ReloadAmount > 0 && !w.IsAttacking() &&
			w.ammoClip < w.clipSize && w.AmmoAvailable() > w.ammoClip {
			f.s.Reload = 0
			return
		}
		w.NetEndReload()
		f.s.Reload = 0
		f.Done()
	}
}
