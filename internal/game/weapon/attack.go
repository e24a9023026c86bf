package weapon

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/config"
	"github.com/cory-johannsen/armory/internal/game/geom"
)

const (
	// clientTraceRange is how far a client predicted shot is traced.
	clientTraceRange = 4096
	// muzzleForward pushes the launch point just past the view origin.
	muzzleForward = 2
	// strikeDecalDepth is the projection depth of melee strike decals.
	strikeDecalDepth = 8
	// brassSpeed scales the ejection velocity of brass.
	brassSpeed = 40
)

// LaunchProjectiles fires count projectiles spread within spreadDegrees.
//
// On the server the shot is a no-op when ammunition is missing or a clip
// weapon's clip is empty; otherwise ammunition is consumed before anything is
// spawned. Power ammo weapons raise damagePower to the next whole unit,
// capped at the clip, and consume that many units. Clients predict the
// impacts of instant-hit projectiles and spawn nothing.
//
// Postcondition: 0 <= AmmoInClip() <= ClipSize(); returns an error wrapping
// ErrNotProjectile when the projectile definition spawns something that
// cannot be launched.
func (w *Weapon) LaunchProjectiles(count int, spreadDegrees, fuseOffset, launchPower, damagePower float64) error {
	if w.hidden || w.owner == nil {
		return nil
	}
	if w.projectile == nil {
		w.log.Warn("no projectile defined")
		return nil
	}
	now := w.now()
	ctx := context.Background()

	if !w.isClient() {
		if w.AmmoAvailable() == 0 || (w.clipSize > 0 && w.ammoClip <= 0) {
			return nil
		}
		if w.powerAmmo {
			damagePower = float64(int(damagePower) + 1)
			if damagePower > float64(w.ammoClip) {
				damagePower = float64(w.ammoClip)
			}
		}
		shots := w.ammoRequired
		if w.powerAmmo {
			shots = int(damagePower)
		}
		inv := w.inventory()
		if shots > 0 && inv.UseAmmo(w.ammoType, shots) {
			w.deps.Metrics.AmmoConsumed(ctx, w.Name(), shots)
		}
		if w.clipSize > 0 && w.ammoRequired > 0 {
			if w.powerAmmo {
				w.ammoClip -= int(damagePower)
			} else {
				w.ammoClip--
			}
			if w.ammoClip < 0 {
				w.ammoClip = 0
			}
		}
	}

	if !w.silentFire {
		w.deps.World.AlertAI(w.owner)
	}

	w.muzzleOrigin, w.muzzleAxis = w.playerViewOrigin, w.playerViewAxis
	if h, ok := w.joints.BarrelView.Get(); ok && w.projectile.LaunchFromBarrel {
		if o, a, ok := w.deps.Presenter.JointTransform(ViewModel, h); ok {
			w.muzzleOrigin, w.muzzleAxis = o, a
		}
	}

	if w.kickEndTime < now {
		w.kickEndTime = now
	}
	w.kickEndTime += w.muzzleKickTime
	if limit := now + w.muzzleKickMaxTime; w.kickEndTime > limit {
		w.kickEndTime = limit
	}

	fwd := geom.Forward(w.playerViewAxis)
	if w.isClient() {
		if w.projectile.NetInstantHit {
			muzzlePos := w.muzzleOrigin.Add(fwd.Mul(muzzleForward))
			for i := 0; i < count; i++ {
				dir := w.spreadDirection(spreadDegrees)
				tr := w.deps.World.TracePoint(muzzlePos, muzzlePos.Add(dir.Mul(clientTraceRange)), MaskShotRenderModel, w.owner)
				if tr.Fraction < 1 {
					w.deps.World.PredictCollision(w.projectile, tr)
				}
			}
			w.deps.Metrics.ProjectilesLaunched(ctx, w.Name(), count, true)
		}
	} else {
		if err := w.spawnProjectiles(count, spreadDegrees, fuseOffset, launchPower, damagePower); err != nil {
			return err
		}
		w.deps.Metrics.ProjectilesLaunched(ctx, w.Name(), count, false)
		if w.brass != nil {
			w.brassDue = Some(now + w.brassDelay)
		}
	}

	if !w.lightOn {
		w.muzzleFlashLight()
	}
	w.owner.WeaponFireFeedback(w.def)
	w.weaponSmokeStartTime = now
	w.lastAttack = now
	return nil
}

func (w *Weapon) spawnProjectiles(count int, spreadDegrees, fuseOffset, launchPower, damagePower float64) error {
	ownerBounds := w.owner.AbsBounds()
	w.owner.AddProjectilesFired(count)

	fwd := geom.Forward(w.playerViewAxis)
	var muzzlePos mgl64.Vec3
	for i := 0; i < count; i++ {
		dir := w.spreadDirection(spreadDegrees)

		var ent Entity
		if w.pending != nil {
			ent = w.pending
			w.pending.Show()
			w.pending.Unbind()
			w.pending = nil
		} else {
			spawned, err := w.deps.World.SpawnEntity(w.projectile)
			if err != nil {
				return fmt.Errorf("weapon: LaunchProjectiles: spawning %q: %w", w.projectile.ID, err)
			}
			ent = spawned
		}

		proj, ok := ent.(Projectile)
		if !ok {
			if r, ok := ent.(interface{ Remove() }); ok {
				r.Remove()
			}
			w.log.Error("projectile definition does not spawn a projectile",
				zap.String("projectile", w.projectile.ID),
				zap.String("entity", ent.Name()),
			)
			return fmt.Errorf("weapon: LaunchProjectiles: %w: %q spawned %q", ErrNotProjectile, w.projectile.ID, ent.Name())
		}
		if w.projectile.NetInstantHit {
			proj.DisableNetworkSync()
		}
		proj.Create(w.owner, w.muzzleOrigin, dir)

		if i == 0 {
			projBounds := proj.Bounds()
			muzzlePos = w.muzzleOrigin.Add(fwd.Mul(muzzleForward))
			start := ownerBounds.Center()
			if s, ok := ownerBounds.Shrink(projBounds).RayIntersection(muzzlePos, fwd); ok {
				start = muzzlePos.Add(fwd.Mul(s))
			}
			tr := w.deps.World.Translation(start, muzzlePos, projBounds, MaskShotRenderModel, w.owner)
			muzzlePos = tr.EndPos
		}
		proj.Launch(muzzlePos, dir, w.pushVelocity, fuseOffset, launchPower, damagePower)
	}
	return nil
}

// CreateProjectile pre-spawns a hidden projectile that the next launch uses.
// Clients and weapons without a projectile do nothing.
//
// Postcondition: returns an error wrapping ErrNotProjectile when the spawned
// entity cannot be launched; the entity is removed in that case.
func (w *Weapon) CreateProjectile() (Projectile, error) {
	if w.isClient() || w.projectile == nil || w.owner == nil {
		return nil, nil
	}
	if w.pending != nil {
		w.pending.Remove()
		w.pending = nil
	}
	ent, err := w.deps.World.SpawnEntity(w.projectile)
	if err != nil {
		return nil, fmt.Errorf("weapon: CreateProjectile: spawning %q: %w", w.projectile.ID, err)
	}
	proj, ok := ent.(Projectile)
	if !ok {
		if r, ok := ent.(interface{ Remove() }); ok {
			r.Remove()
		}
		return nil, fmt.Errorf("weapon: CreateProjectile: %w: %q spawned %q", ErrNotProjectile, w.projectile.ID, ent.Name())
	}
	proj.BindTo(w.owner)
	proj.Hide()
	w.pending = proj
	return proj, nil
}

// Melee traces along the view for the melee distance and strikes what it
// hits. It returns whether the strike connected with something damageable.
// Clients only play feedback.
func (w *Weapon) Melee() bool {
	if w.melee == nil {
		w.log.Warn("no melee definition")
		return false
	}
	if w.owner == nil {
		return false
	}
	if w.isClient() {
		w.owner.WeaponFireFeedback(w.def)
		return false
	}
	now := w.now()
	ctx := context.Background()

	w.muzzleOrigin, w.muzzleAxis = w.playerViewOrigin, w.playerViewAxis
	fwd := geom.Forward(w.playerViewAxis)
	start := w.playerViewOrigin
	end := start.Add(fwd.Mul(w.meleeDistance * w.owner.Modifier(ModMeleeDistance)))
	tr := w.deps.World.TracePoint(start, end, MaskShotRenderModel, w.owner)

	var ent Entity
	if tr.Fraction < 1 {
		ent = tr.Entity
	}

	hit := false
	hitSound := w.melee.Sound("miss")
	if ent != nil {
		impulse := tr.Normal.Mul(-w.melee.Push * w.owner.Modifier(ModSpeed))

		if w.deps.Policy.NoWeapons && ent.IsActor() {
			return false
		}
		ent.ApplyImpulse(tr.EndPos, impulse)

		if w.mayStealFrom(ent) {
			w.owner.StealWeapon(ent.(Player))
		}

		if ent.CanTakeDamage() {
			dir := w.muzzleAxis.Mul3x1(w.melee.KickDir)
			ent.Damage(w.owner, dir, w.meleeDamage(), w.melee.ID)
			hit = true
		}

		if w.def.ImpactDamageEffect {
			if ent.Bleeds() {
				hitSound = w.melee.Sound("hit")
				if w.owner.Berserk() {
					hitSound = w.melee.Sound("hit_berserk")
				}
				ent.AddDamageEffect(tr.EndPos, impulse, w.melee.ID)
			} else {
				hitSound = w.melee.Sound(tr.Material)
				if hitSound == "" {
					hitSound = w.melee.Sound("metal")
				}
				if now > w.nextStrikeFx {
					if w.def.StrikeMaterial != "" {
						w.deps.Presenter.ProjectDecal(tr.EndPos, tr.Normal.Mul(-1), strikeDecalDepth, w.def.StrikeMaterial)
					}
					w.nextStrikeFx = now + w.deps.Policy.StrikeFxInterval
				} else {
					hitSound = ""
				}
				w.strikeSmokeStartTime = now
				w.strikePos = tr.EndPos
				w.strikeAxis = geom.AxisFromForward(tr.Normal.Mul(-1))
				w.deps.Presenter.EmitParticle("strike_smoke", w.strikePos, w.strikeAxis)
			}
		}
	}

	w.StartSound(SoundChannelBody2, hitSound)
	w.deps.Metrics.MeleeSwing(ctx, w.Name(), hit)
	w.lastAttack = now
	w.owner.WeaponFireFeedback(w.def)
	return hit
}

// mayStealFrom reports whether striking ent takes its weapon: only in
// multiplayer, with a stealing weapon, against a player, without berserk,
// and in team games only across teams unless team damage is on.
func (w *Weapon) mayStealFrom(ent Entity) bool {
	p := w.deps.Policy
	if !p.Multiplayer || !w.def.Stealing || w.owner.Berserk() {
		return false
	}
	victim, ok := ent.(Player)
	if !ok {
		return false
	}
	return p.GameType != config.GameTypeTeamDM || p.TeamDamage || w.owner.Team() != victim.Team()
}

func (w *Weapon) meleeDamage() int {
	res, err := w.deps.Roller.RollExpr(w.melee.DamageDice)
	if err != nil {
		w.log.Error("bad melee damage dice", zap.String("dice", w.melee.DamageDice), zap.Error(err))
		return 0
	}
	return int(math.Round(float64(res.Total()) * w.owner.Modifier(ModMeleeDamage)))
}

// EjectBrass spawns the brass of the last shot at the eject joint. It does
// nothing on clients, when brass is disabled, or without brass or an eject joint.
func (w *Weapon) EjectBrass() {
	if w.isClient() || !w.deps.Policy.ShowBrass || w.brass == nil {
		return
	}
	h, ok := w.joints.EjectView.Get()
	if !ok {
		return
	}
	origin, axis, ok := w.deps.Presenter.JointTransform(ViewModel, h)
	if !ok {
		return
	}
	velocity := geom.Forward(axis).Add(geom.Left(axis)).Add(geom.Up(axis)).Mul(brassSpeed)
	w.deps.World.SpawnBrass(w.brass, origin, axis, velocity)
}
