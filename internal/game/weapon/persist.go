package weapon

import (
	"fmt"

	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/observability"
	"github.com/cory-johannsen/armory/internal/savegame"
)

// saveCompat is the trailing compatibility field. Older layouts may use it
// for fields that no longer exist.
const saveCompat = 0

// Save writes the weapon to sw as an ordered field sequence.
func (w *Weapon) Save(sw *savegame.Writer) {
	sw.WriteInt(int(w.state))
	sw.WriteInt(int(w.idealState))
	sw.WriteInt(w.animBlendFrames)
	sw.WriteDuration(w.animDoneTime)
	sw.WriteBool(w.isLinked)
	if w.owner != nil {
		sw.WriteObjectRef(w.owner.SpawnID(), true)
	} else {
		sw.WriteObjectRef(0, false)
	}
	model, hasModel := w.worldModel.Get()
	sw.WriteObjectRef(model, hasModel)

	sw.WriteDuration(w.hideTime)
	sw.WriteFloat(w.hideDistance)
	sw.WriteDuration(w.hideStartTime)
	sw.WriteFloat(w.hideStart)
	sw.WriteFloat(w.hideEnd)
	sw.WriteFloat(w.hideOffset)
	sw.WriteBool(w.hide)
	sw.WriteBool(w.disabled)
	sw.WriteInt(w.berserk)

	sw.WriteVec3(w.playerViewOrigin)
	sw.WriteMat3(w.playerViewAxis)
	sw.WriteVec3(w.viewWeaponOrigin)
	sw.WriteMat3(w.viewWeaponAxis)
	sw.WriteVec3(w.muzzleOrigin)
	sw.WriteMat3(w.muzzleAxis)
	sw.WriteVec3(w.pushVelocity)

	sw.WriteString(w.Name())
	sw.WriteFloat(w.meleeDistance)
	sw.WriteString(w.meleeDefName)
	sw.WriteDuration(w.brassDelay)
	sw.WriteString(w.icon)

	sw.WriteVec3(w.flashColor)
	sw.WriteDuration(w.muzzleFlashEnd)
	sw.WriteDuration(w.flashTime)
	sw.WriteBool(w.lightOn)
	sw.WriteBool(w.silentFire)

	sw.WriteDuration(w.kickEndTime)
	sw.WriteDuration(w.muzzleKickTime)
	sw.WriteDuration(w.muzzleKickMaxTime)
	sw.WriteVec3(w.muzzleKickAngles)
	sw.WriteVec3(w.muzzleKickOffset)

	sw.WriteInt(int(w.ammoType))
	sw.WriteInt(w.ammoRequired)
	sw.WriteInt(w.clipSize)
	sw.WriteInt(w.ammoClip)
	sw.WriteBool(w.clipUnknown)
	sw.WriteInt(w.lowAmmo)
	sw.WriteBool(w.powerAmmo)
	sw.WriteInt(w.zoomFov)

	for _, j := range w.joints.all() {
		h, ok := j.Get()
		sw.WriteObjectRef(int32(h), ok)
	}

	sw.WriteBool(w.hasBloodSplat)
	sw.WriteString(w.sndHum)
	sw.WriteDuration(w.weaponSmokeStartTime)
	sw.WriteBool(w.continuousSmoke)
	sw.WriteDuration(w.strikeSmokeStartTime)
	sw.WriteVec3(w.strikePos)
	sw.WriteMat3(w.strikeAxis)
	sw.WriteDuration(w.nextStrikeFx)
	sw.WriteBool(w.nozzleFx)
	sw.WriteInt(w.nozzleFxFade)
	sw.WriteDuration(w.lastAttack)

	sw.WriteInt(w.weaponAngleOffsetAverages)
	sw.WriteFloat(w.weaponAngleOffsetScale)
	sw.WriteFloat(w.weaponAngleOffsetMax)
	sw.WriteFloat(w.weaponOffsetTime)
	sw.WriteFloat(w.weaponOffsetScale)

	sw.WriteBool(w.allowDrop)
	if w.pending != nil {
		sw.WriteObjectRef(w.pending.SpawnID(), true)
	} else {
		sw.WriteObjectRef(0, false)
	}

	var sub SubStates
	if w.behavior != nil {
		sub = w.behavior.SubStates()
	}
	sw.WriteInt(sub.Rising)
	sw.WriteInt(sub.Idle)
	sw.WriteInt(sub.Lowering)
	sw.WriteInt(sub.Firing)
	sw.WriteInt(sub.Reload)
	sw.WriteBool(sub.Holstered)
	sw.WriteBool(sub.Risen)
	sw.WriteDuration(sub.WaitUntil)
	sw.WriteDuration(sub.Mark)

	sw.WriteInt(saveCompat)
}

// Restore reads a weapon written by Save. Definitions are looked up by name
// in the live registry: a missing weapon definition is an error wrapping
// ErrUnknownWeapon, while missing projectile, melee or brass definitions
// disable those features. Object references are resolved through res.
//
// Postcondition: on error the weapon is left cleared.
func (w *Weapon) Restore(sr *savegame.Reader, res Resolver) error {
	w.Clear()
	if err := w.restore(sr, res); err != nil {
		w.Clear()
		return err
	}
	return nil
}

func (w *Weapon) restore(sr *savegame.Reader, res Resolver) error {
	w.state = State(sr.ReadInt())
	w.idealState = State(sr.ReadInt())
	w.animBlendFrames = sr.ReadInt()
	w.animDoneTime = sr.ReadDuration()
	w.isLinked = sr.ReadBool()
	if id, ok := sr.ReadObjectRef(); ok && res != nil {
		if owner, found := res.Owner(id); found {
			w.owner = owner
		}
	}
	if id, ok := sr.ReadObjectRef(); ok {
		w.worldModel = Some(id)
	} else {
		w.worldModel = None[int32]()
	}

	w.hideTime = sr.ReadDuration()
	w.hideDistance = sr.ReadFloat()
	w.hideStartTime = sr.ReadDuration()
	w.hideStart = sr.ReadFloat()
	w.hideEnd = sr.ReadFloat()
	w.hideOffset = sr.ReadFloat()
	w.hide = sr.ReadBool()
	w.disabled = sr.ReadBool()
	w.berserk = sr.ReadInt()

	w.playerViewOrigin = sr.ReadVec3()
	w.playerViewAxis = sr.ReadMat3()
	w.viewWeaponOrigin = sr.ReadVec3()
	w.viewWeaponAxis = sr.ReadMat3()
	w.muzzleOrigin = sr.ReadVec3()
	w.muzzleAxis = sr.ReadMat3()
	w.pushVelocity = sr.ReadVec3()

	name := sr.ReadString()
	if err := sr.Err(); err != nil {
		return fmt.Errorf("weapon: Restore: %w", err)
	}
	if name != "" {
		def, ok := w.deps.Defs.Weapon(name)
		if !ok {
			return fmt.Errorf("weapon: Restore: %w %q", ErrUnknownWeapon, name)
		}
		w.def = def
		w.log = observability.WeaponLogger(w.deps.Logger, w.ownerName(), def.ID)
		if err := w.resolveDefs(false); err != nil {
			return err
		}
	}
	w.meleeDistance = sr.ReadFloat()
	w.meleeDefName = sr.ReadString()
	w.brassDelay = sr.ReadDuration()
	w.icon = sr.ReadString()

	w.flashColor = sr.ReadVec3()
	w.muzzleFlashEnd = sr.ReadDuration()
	w.flashTime = sr.ReadDuration()
	w.lightOn = sr.ReadBool()
	w.silentFire = sr.ReadBool()

	w.kickEndTime = sr.ReadDuration()
	w.muzzleKickTime = sr.ReadDuration()
	w.muzzleKickMaxTime = sr.ReadDuration()
	w.muzzleKickAngles = sr.ReadVec3()
	w.muzzleKickOffset = sr.ReadVec3()

	w.ammoType = inventory.AmmoType(sr.ReadInt())
	w.ammoRequired = sr.ReadInt()
	w.clipSize = sr.ReadInt()
	w.ammoClip = sr.ReadInt()
	w.clipUnknown = sr.ReadBool()
	w.lowAmmo = sr.ReadInt()
	w.powerAmmo = sr.ReadBool()
	w.zoomFov = sr.ReadInt()

	for _, j := range w.joints.all() {
		if h, ok := sr.ReadObjectRef(); ok {
			*j = Some(JointHandle(h))
		} else {
			*j = None[JointHandle]()
		}
	}

	w.hasBloodSplat = sr.ReadBool()
	w.sndHum = sr.ReadString()
	w.weaponSmokeStartTime = sr.ReadDuration()
	w.continuousSmoke = sr.ReadBool()
	w.strikeSmokeStartTime = sr.ReadDuration()
	w.strikePos = sr.ReadVec3()
	w.strikeAxis = sr.ReadMat3()
	w.nextStrikeFx = sr.ReadDuration()
	w.nozzleFx = sr.ReadBool()
	w.nozzleFxFade = sr.ReadInt()
	w.lastAttack = sr.ReadDuration()

	w.weaponAngleOffsetAverages = sr.ReadInt()
	w.weaponAngleOffsetScale = sr.ReadFloat()
	w.weaponAngleOffsetMax = sr.ReadFloat()
	w.weaponOffsetTime = sr.ReadFloat()
	w.weaponOffsetScale = sr.ReadFloat()

	w.allowDrop = sr.ReadBool()
	if id, ok := sr.ReadObjectRef(); ok && res != nil {
		if p, found := res.Projectile(id); found {
			w.pending = p
		}
	}

	var sub SubStates
	sub.Rising = sr.ReadInt()
	sub.Idle = sr.ReadInt()
	sub.Lowering = sr.ReadInt()
	sub.Firing = sr.ReadInt()
	sub.Reload = sr.ReadInt()
	sub.Holstered = sr.ReadBool()
	sub.Risen = sr.ReadBool()
	sub.WaitUntil = sr.ReadDuration()
	sub.Mark = sr.ReadDuration()

	_ = sr.ReadInt() // compatibility field
	if err := sr.Err(); err != nil {
		return fmt.Errorf("weapon: Restore: %w", err)
	}

	if w.def != nil {
		w.deps.Presenter.SetDefinition(w.def)
		behavior, err := w.newBehavior()
		if err != nil {
			return err
		}
		behavior.SetSubStates(sub)
		w.behavior = behavior
	}
	return nil
}
