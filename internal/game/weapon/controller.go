package weapon

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/geom"
)

// blendFrameTime is the duration of one animation blend frame.
const blendFrameTime = time.Second / 60

// Think advances the state machine by one tick.
//
// A pending ideal state is committed once the behavior allows switching,
// except that RISING is not re-entered while the behavior is already risen.
// Committing resets every behavior sub-state. The handler for the current
// state then runs unless the behavior is waiting.
func (w *Weapon) Think() {
	if w.behavior == nil {
		return
	}
	if w.idealState == StateReady {
		w.idealState = StateIdle
	}

	if w.idealState != w.state && w.behavior.CanSwitchState() {
		if !(w.idealState == StateRising && w.behavior.IsRisen()) {
			w.log.Debug("weapon state change",
				zap.Stringer("from", w.state),
				zap.Stringer("to", w.idealState),
			)
			w.state = w.idealState
			w.behavior.ResetStates()
		}
	}

	if w.behavior.HasWaitSignal() {
		return
	}

	switch w.state {
	case StateRising:
		w.behavior.Raise()
	case StateIdle:
		w.behavior.Idle()
	case StateLowering:
		w.behavior.Lower()
	case StateReload:
		w.behavior.Reload()
	case StateFire:
		w.behavior.Fire()
	}
}

// State returns the committed operating state.
func (w *Weapon) State() State { return w.state }

// IdealState returns the requested operating state.
func (w *Weapon) IdealState() State { return w.idealState }

// Raise requests the weapon be brought up.
func (w *Weapon) Raise() {
	w.idealState = StateRising
}

// PutAway requests the weapon be lowered and holstered.
func (w *Weapon) PutAway() {
	w.hasBloodSplat = false
	w.idealState = StateLowering
}

// Reload requests a reload.
func (w *Weapon) Reload() {
	w.idealState = StateReload
}

// BeginAttack starts holding the attack input. A lowered or holstered weapon
// only records the input.
func (w *Weapon) BeginAttack() {
	w.isFiring = true
	switch w.state {
	case StateNone, StateHolstered, StateLowering:
		return
	}
	w.idealState = StateFire
}

// EndAttack releases the attack input.
func (w *Weapon) EndAttack() {
	w.isFiring = false
}

// IsAttacking reports whether the attack input is held.
func (w *Weapon) IsAttacking() bool { return w.isFiring }

// WeaponReady signals that the current action finished.
func (w *Weapon) WeaponReady() {
	w.idealState = StateReady
}

// WeaponOutOfAmmo signals that neither clip nor inventory can feed a shot.
func (w *Weapon) WeaponOutOfAmmo() {
	w.idealState = StateOutOfAmmo
}

// WeaponReloading requests the reload state.
func (w *Weapon) WeaponReloading() {
	w.idealState = StateReload
}

// WeaponHolstered signals that lowering completed.
func (w *Weapon) WeaponHolstered() {
	w.idealState = StateHolstered
}

// WeaponRising requests the rising state.
func (w *Weapon) WeaponRising() {
	w.idealState = StateRising
}

// WeaponLowering requests the lowering state.
func (w *Weapon) WeaponLowering() {
	w.idealState = StateLowering
}

// SetWeaponState requests state with the given animation blend.
// With the instant reload policy a RELOAD request refills the clip at once
// and requests IDLE instead.
func (w *Weapon) SetWeaponState(state State, blendFrames int) {
	w.animBlendFrames = blendFrames
	if state == StateReload && w.deps.Policy.InstantReload {
		w.idealState = StateIdle
		w.AddToClip(w.ClipSize())
		return
	}
	w.idealState = state
}

// IsReady reports whether the weapon is up and usable.
func (w *Weapon) IsReady() bool {
	if w.hide || w.hidden {
		return false
	}
	switch w.state {
	case StateReload, StateIdle, StateOutOfAmmo:
		return true
	}
	return false
}

// IsReloading reports whether the weapon is reloading.
func (w *Weapon) IsReloading() bool {
	return w.state == StateReload
}

// IsHolstered reports whether the weapon is put away.
func (w *Weapon) IsHolstered() bool {
	if w.state == StateHolstered {
		return true
	}
	return w.state == StateLowering && w.behavior != nil && w.behavior.IsHolstered()
}

// ShowCrosshair reports whether a crosshair should be drawn.
func (w *Weapon) ShowCrosshair() bool {
	switch w.state {
	case StateRising, StateLowering, StateHolstered:
		return false
	}
	return true
}

// IsHidden reports whether the weapon models are hidden.
func (w *Weapon) IsHidden() bool { return w.hidden }

// IsLinked reports whether a definition is bound.
func (w *Weapon) IsLinked() bool { return w.isLinked }

// PlayAnim plays anim once and records when it completes. It returns the
// animation length, 0 when the model has no such animation.
func (w *Weapon) PlayAnim(anim string, blendFrames int) time.Duration {
	return w.playAnim(anim, blendFrames, false)
}

// PlayCycle loops anim and records when one cycle completes.
func (w *Weapon) PlayCycle(anim string, blendFrames int) time.Duration {
	return w.playAnim(anim, blendFrames, true)
}

func (w *Weapon) playAnim(anim string, blendFrames int, cycle bool) time.Duration {
	length, ok := w.deps.Presenter.PlayAnim(AnimChannelAll, anim, blendFrames, cycle)
	if !ok {
		w.log.Warn("missing animation", zap.String("anim", anim))
		w.animDoneTime = 0
		length = 0
	} else {
		w.animDoneTime = w.now() + length
	}
	w.animBlendFrames = 0
	return length
}

// AnimDone reports whether the last animation is within blendFrames of completing.
func (w *Weapon) AnimDone(blendFrames int) bool {
	return w.animDoneTime-time.Duration(blendFrames)*blendFrameTime <= w.now()
}

// StartSound plays shader on channel. An empty shader is ignored.
func (w *Weapon) StartSound(channel SoundChannel, shader string) {
	if shader == "" {
		return
	}
	w.deps.Presenter.StartSound(channel, shader)
}

// LowerWeapon starts easing the weapon out of view.
func (w *Weapon) LowerWeapon() {
	if w.hide {
		return
	}
	w.hideStart = 0
	w.hideEnd = w.hideDistance
	w.restartHide()
	w.hide = true
}

// RaiseWeapon shows the weapon and starts easing it back into view.
func (w *Weapon) RaiseWeapon() {
	w.ShowWeapon()
	if !w.hide {
		return
	}
	w.hideStart = w.hideDistance
	w.hideEnd = 0
	w.restartHide()
	w.hide = false
}

// restartHide starts a new ease, mirroring an ease still in progress.
func (w *Weapon) restartHide() {
	now := w.now()
	if elapsed := now - w.hideStartTime; elapsed < w.hideTime {
		w.hideStartTime = now - (w.hideTime - elapsed)
	} else {
		w.hideStartTime = now
	}
}

// EnterCinematic lowers and disables the weapon.
func (w *Weapon) EnterCinematic() {
	w.disabled = true
	w.LowerWeapon()
}

// ExitCinematic re-enables and raises the weapon.
func (w *Weapon) ExitCinematic() {
	w.disabled = false
	w.RaiseWeapon()
}

// HideWeapon hides both models and puts out the muzzle flash.
func (w *Weapon) HideWeapon() {
	w.hidden = true
	w.deps.Presenter.SetVisible(ViewModel, false)
	w.deps.Presenter.SetVisible(WorldModel, false)
	if w.muzzleFlashEnd != 0 {
		w.muzzleFlashEnd = 0
		w.deps.Presenter.MuzzleFlash(w.muzzleOrigin, w.flashColor, false)
	}
}

// ShowWeapon shows both models and relights the light if it is on.
func (w *Weapon) ShowWeapon() {
	w.hidden = false
	w.deps.Presenter.SetVisible(ViewModel, true)
	w.deps.Presenter.SetVisible(WorldModel, true)
	if w.lightOn {
		w.muzzleFlashLight()
	}
}

// OwnerDied hides the weapon and releases the attack input.
func (w *Weapon) OwnerDied() {
	w.isFiring = false
	w.HideWeapon()
	if w.sndHum != "" {
		w.deps.Presenter.StopSound(SoundChannelBody)
	}
}

// WeaponStolen drops the pending projectile, requests HOLSTERED and hides
// the weapon. Clients wait for the server.
func (w *Weapon) WeaponStolen() {
	if w.isClient() {
		return
	}
	if w.pending != nil {
		w.pending.Remove()
		w.pending = nil
	}
	w.idealState = StateHolstered
	w.HideWeapon()
}

// Flashlight switches the weapon light.
func (w *Weapon) Flashlight(on bool) {
	w.lightOn = on
	if on {
		w.muzzleFlashLight()
		return
	}
	w.muzzleFlashEnd = 0
	w.deps.Presenter.MuzzleFlash(w.muzzleOrigin, w.flashColor, false)
}

// LightOn reports whether the weapon light is on.
func (w *Weapon) LightOn() bool { return w.lightOn }

func (w *Weapon) muzzleFlashLight() {
	w.muzzleFlashEnd = w.now() + w.flashTime
	origin := w.muzzleOrigin
	if h, ok := w.joints.FlashView.Get(); ok {
		if o, _, ok := w.deps.Presenter.JointTransform(ViewModel, h); ok {
			origin = o
		}
	}
	w.deps.Presenter.MuzzleFlash(origin, w.flashColor, true)
}

// SetSkin changes the weapon skin and tells clients when authoritative.
func (w *Weapon) SetSkin(skin string) {
	w.deps.Presenter.SetSkin(skin)
	if !w.isClient() {
		w.sendEvent(eventChangeSkin(skin, w.now()))
	}
}

// AllowDrop enables or disables dropping the weapon.
func (w *Weapon) AllowDrop(allow bool) { w.allowDrop = allow }

// CanDrop reports whether the weapon can be dropped as an item.
func (w *Weapon) CanDrop() bool {
	return w.def != nil && w.allowDrop && w.worldModel.IsSet() && w.def.DropItem != ""
}

// DropItem returns the item definition to spawn when dropping the weapon.
func (w *Weapon) DropItem() (string, bool) {
	if !w.CanDrop() {
		return "", false
	}
	return w.def.DropItem, true
}

// Present samples the owner's view, eases the hide offset, applies the
// muzzle kick and pushes the resulting transform to the presenter. It also
// expires the muzzle flash and ejects scheduled brass.
func (w *Weapon) Present() {
	now := w.now()
	if w.owner != nil {
		w.playerViewOrigin, w.playerViewAxis = w.owner.View()
		w.pushVelocity = w.owner.PushVelocity()
	}

	if elapsed := now - w.hideStartTime; elapsed < w.hideTime {
		frac := float64(elapsed) / float64(w.hideTime)
		if w.hideStart < w.hideEnd {
			frac = 1 - frac
			frac = 1 - frac*frac
		} else {
			frac = frac * frac
		}
		w.hideOffset = w.hideStart + (w.hideEnd-w.hideStart)*frac
	} else {
		w.hideOffset = w.hideEnd
		if w.hide && w.disabled && !w.hidden {
			w.HideWeapon()
		}
	}

	origin := w.playerViewOrigin.Add(geom.Up(w.playerViewAxis).Mul(w.hideOffset))
	w.viewWeaponOrigin, w.viewWeaponAxis = w.MuzzleRise(origin, w.playerViewAxis)
	w.deps.Presenter.SetTransform(w.viewWeaponOrigin, w.viewWeaponAxis)

	if w.muzzleFlashEnd != 0 && now >= w.muzzleFlashEnd && !w.lightOn {
		w.muzzleFlashEnd = 0
		w.deps.Presenter.MuzzleFlash(w.muzzleOrigin, w.flashColor, false)
	}

	if due, ok := w.brassDue.Get(); ok && now >= due {
		w.brassDue = None[time.Duration]()
		w.EjectBrass()
	}
}

// MuzzleRise offsets origin and axis by the muzzle kick, scaled by the
// fraction of kick time remaining.
func (w *Weapon) MuzzleRise(origin mgl64.Vec3, axis mgl64.Mat3) (mgl64.Vec3, mgl64.Mat3) {
	t := w.kickEndTime - w.now()
	if t <= 0 || w.muzzleKickMaxTime <= 0 {
		return origin, axis
	}
	if t > w.muzzleKickMaxTime {
		t = w.muzzleKickMaxTime
	}
	amount := float64(t) / float64(w.muzzleKickMaxTime)
	origin = origin.Sub(axis.Mul3x1(w.muzzleKickOffset.Mul(amount)))
	axis = geom.AnglesToAxis(w.muzzleKickAngles.Mul(amount)).Mul3(axis)
	return origin, axis
}
