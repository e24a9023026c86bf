package weapon_test

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/armory/internal/config"
	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

func TestSpreadDirection_ZeroSpreadIsAimAxis(t *testing.T) {
	axis := geom.AnglesToAxis(mgl64.Vec3{10, 35, 0})
	dir := weapon.SpreadDirection(axis, 0, 0.7, 0.3)
	assert.Equal(t, geom.Forward(axis), dir)
}

func TestProperty_SpreadWithinCone(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		angles := mgl64.Vec3{
			rapid.Float64Range(-89, 89).Draw(rt, "pitch"),
			rapid.Float64Range(-180, 180).Draw(rt, "yaw"),
			rapid.Float64Range(-180, 180).Draw(rt, "roll"),
		}
		axis := geom.AnglesToAxis(angles)
		spread := rapid.Float64Range(0, 45).Draw(rt, "spread")
		u1 := rapid.Float64Range(0, 1).Draw(rt, "u1")
		u2 := rapid.Float64Range(0, 1).Draw(rt, "u2")

		dir := weapon.SpreadDirection(axis, spread, u1, u2)
		if math.Abs(dir.Len()-1) > 1e-9 {
			rt.Fatalf("direction not normalized: %v", dir)
		}
		cos := mgl64.Clamp(dir.Dot(geom.Forward(axis)), -1, 1)
		if deg := mgl64.RadToDeg(math.Acos(cos)); deg > spread+1e-6 {
			rt.Fatalf("direction %.4f degrees off axis, spread %.4f", deg, spread)
		}
	})
}

func TestLaunchProjectiles_ZeroSpreadFollowsView(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 20)
	h.w.Present()

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))

	require.Len(t, h.world.spawned, 1)
	p := h.world.spawned[0]
	require.Len(t, p.launches, 1)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, p.launches[0].dir)
	assert.True(t, p.created)
	assert.True(t, p.noSync, "instant hit projectiles are not network synced")
	assert.Equal(t, 1, h.owner.fired)
	assert.Equal(t, 1, h.world.alerts)
	assert.Equal(t, 1, h.owner.feedback)
	assert.Equal(t, h.clock.now, h.w.LastAttack())
}

func TestLaunchProjectiles_MultipleProjectilesOneRound(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_shotgun", shells, 20)

	require.NoError(t, h.w.LaunchProjectiles(8, 10, 0, 1, 1))
	assert.Len(t, h.world.spawned, 8)
	assert.Equal(t, 7, h.w.AmmoInClip())
	assert.Equal(t, 19, h.owner.pouch.Count(shells))
	assert.Equal(t, 8, h.owner.fired)
}

func TestLaunchProjectiles_EmptyClipIsNoop(t *testing.T) {
	h := newHarness(t)
	h.owner.pouch.Give(bullets, 20)
	require.NoError(t, h.w.Equip("weapon_pistol", weapon.Some(0)))

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	assert.Empty(t, h.world.spawned)
	assert.Equal(t, 20, h.owner.pouch.Count(bullets))
	assert.Zero(t, h.world.alerts)
}

func TestLaunchProjectiles_ConsumesBeforeSpawning(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 20)
	h.world.spawnErr = errSpawn

	err := h.w.LaunchProjectiles(1, 0, 0, 1, 1)
	assert.ErrorIs(t, err, errSpawn)
	assert.Equal(t, 9, h.w.AmmoInClip())
	assert.Equal(t, 19, h.owner.pouch.Count(bullets))
}

func TestLaunchProjectiles_NotAProjectile(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 20)
	h.world.spawnBad = true

	err := h.w.LaunchProjectiles(1, 0, 0, 1, 1)
	assert.ErrorIs(t, err, weapon.ErrNotProjectile)
	require.Len(t, h.world.bad, 1)
	assert.True(t, h.world.bad[0].removed, "stray entity is removed")
}

func TestLaunchProjectiles_SilentFireDoesNotAlert(t *testing.T) {
	h := newHarness(t)
	def, _ := h.defs.Weapon("weapon_pistol")
	def.SilentFire = true
	h.equip(t, "weapon_pistol", bullets, 20)

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	assert.Zero(t, h.world.alerts)
}

func TestLaunchProjectiles_PowerAmmo(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_bfg", cells, 40)
	require.Equal(t, 32, h.w.AmmoInClip())

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 2.5))

	require.Len(t, h.world.spawned, 1)
	assert.Equal(t, 3.0, h.world.spawned[0].launches[0].damagePower)
	assert.Equal(t, 29, h.w.AmmoInClip())
	assert.Equal(t, 37, h.owner.pouch.Count(cells))
}

func TestLaunchProjectiles_PowerCappedAtClip(t *testing.T) {
	h := newHarness(t)
	h.owner.pouch.Give(cells, 40)
	require.NoError(t, h.w.Equip("weapon_bfg", weapon.Some(2)))

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 4))

	assert.Equal(t, 2.0, h.world.spawned[0].launches[0].damagePower)
	assert.Equal(t, 0, h.w.AmmoInClip())
}

func TestLaunchProjectiles_ClientPredicts(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *weapon.Policy) { p.Client = true }))
	h.owner.pouch.Give(bullets, 20)
	require.NoError(t, h.w.Equip("weapon_pistol", weapon.Some(10)))
	wall := &fakeEntity{id: 5, name: "wall"}
	h.world.hit = &weapon.Trace{Fraction: 0.5, EndPos: mgl64.Vec3{100, 0, 64}, Entity: wall}

	require.NoError(t, h.w.LaunchProjectiles(3, 5, 0, 1, 1))

	assert.Empty(t, h.world.spawned, "clients never spawn")
	assert.Equal(t, 3, h.world.traces)
	assert.Equal(t, 3, h.world.predicted)
	assert.Equal(t, 10, h.w.AmmoInClip(), "clients never consume")
	assert.Equal(t, weapon.MaskShotRenderModel, h.world.lastMask)
}

func TestLaunchProjectiles_ClientPredictsFromBarrel(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *weapon.Policy) { p.Client = true }))
	proj, ok := h.defs.Projectile("projectile_bullet")
	require.True(t, ok)
	proj.LaunchFromBarrel = true
	h.presenter.jointPos = mgl64.Vec3{8, -3, 60}
	h.owner.pouch.Give(bullets, 20)
	require.NoError(t, h.w.Equip("weapon_pistol", weapon.Some(10)))
	h.w.Present()

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))

	assert.Equal(t, 1, h.world.traces)
	assert.Equal(t, mgl64.Vec3{10, -3, 60}, h.world.lastStart, "traced from the barrel, not the eye")
}

func TestLaunchProjectiles_ClientDoesNotPredictSlowProjectiles(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *weapon.Policy) { p.Client = true }))
	h.owner.pouch.Give(rockets, 10)
	require.NoError(t, h.w.Equip("weapon_rocketlauncher", weapon.Some(5)))

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	assert.Zero(t, h.world.traces)
	assert.Empty(t, h.world.spawned)
}

func TestLaunchProjectiles_KickClamped(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_machinegun", bullets, 100)

	for i := 0; i < 10; i++ {
		require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	}
	assert.Equal(t, h.clock.now+300*time.Millisecond, h.w.KickEndTime())
}

func TestLaunchProjectiles_EjectsBrassAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 20)
	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))

	h.w.Present()
	assert.Zero(t, h.world.brass)

	h.clock.advance(50 * time.Millisecond)
	h.w.Present()
	assert.Equal(t, 1, h.world.brass)

	h.clock.advance(time.Second)
	h.w.Present()
	assert.Equal(t, 1, h.world.brass, "brass is ejected once per shot")
}

func TestLaunchProjectiles_MuzzleFlash(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 20)
	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))

	require.NotZero(t, h.w.MuzzleFlashEnd())
	assert.Equal(t, []bool{true}, h.presenter.flashes)

	h.clock.advance(time.Second)
	h.w.Present()
	assert.Zero(t, h.w.MuzzleFlashEnd())
	assert.Equal(t, []bool{true, false}, h.presenter.flashes)
}

func TestLauncher_PreSpawnsAndReusesProjectile(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_rocketlauncher", rockets, 10)
	h.settle(20)

	pending := h.w.PendingProjectile()
	require.NotNil(t, pending)
	require.Len(t, h.world.spawned, 1)
	assert.True(t, h.world.spawned[0].hidden)
	assert.NotNil(t, h.world.spawned[0].bound)

	require.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	assert.Len(t, h.world.spawned, 1, "the pending projectile is launched")
	assert.False(t, h.world.spawned[0].hidden)
	assert.Nil(t, h.world.spawned[0].bound)
	assert.Len(t, h.world.spawned[0].launches, 1)
	assert.Nil(t, h.w.PendingProjectile())
}

func TestCreateProjectile_NotAProjectile(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_rocketlauncher", rockets, 10)
	h.world.spawnBad = true

	p, err := h.w.CreateProjectile()
	assert.ErrorIs(t, err, weapon.ErrNotProjectile)
	assert.Nil(t, p)
	assert.Nil(t, h.w.PendingProjectile())
	require.Len(t, h.world.bad, 1)
	assert.True(t, h.world.bad[0].removed)
}

func TestCharged_PowerScalesWithHold(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_bfg", cells, 40)
	h.settle(20)

	h.w.BeginAttack()
	h.tick(0)
	require.Equal(t, weapon.StateFire, h.w.State())
	assert.Equal(t, 1, h.presenter.played(weapon.AnimCharge))

	h.tick(500 * time.Millisecond)
	assert.Empty(t, h.world.spawned, "still charging")

	h.clock.advance(500 * time.Millisecond)
	h.w.EndAttack()
	h.w.Think()

	require.Len(t, h.world.spawned, 1)
	// half of full charge on damage_power 4 is 2, raised to 3 by power ammo
	assert.Equal(t, 3.0, h.world.spawned[0].launches[0].damagePower)

	h.settle(20)
	assert.Equal(t, weapon.StateIdle, h.w.State())
}

func TestMelee_HitDamages(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
	h.w.Present()
	target := &fakeEntity{id: 9, name: "imp", mortal: true, bleeds: true}
	h.world.hit = &weapon.Trace{Fraction: 0.5, EndPos: mgl64.Vec3{20, 0, 64}, Normal: mgl64.Vec3{-1, 0, 0}, Entity: target}

	assert.True(t, h.w.Melee())
	assert.Equal(t, weapon.MaskShotRenderModel, h.world.lastMask)

	require.Len(t, target.damage, 1)
	assert.GreaterOrEqual(t, target.damage[0], 2)
	assert.LessOrEqual(t, target.damage[0], 8)
	require.Len(t, target.impulses, 1)
	assert.Equal(t, mgl64.Vec3{100, 0, 0}, target.impulses[0])
	assert.Equal(t, 1, target.effects)
	assert.Equal(t, []string{"fists/flesh"}, h.presenter.sounds[weapon.SoundChannelBody2])
}

func TestMelee_Miss(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))

	assert.False(t, h.w.Melee())
	assert.Equal(t, []string{"fists/whoosh"}, h.presenter.sounds[weapon.SoundChannelBody2])
	assert.Equal(t, 1, h.owner.feedback)
}

func TestMelee_StrikeFxThrottled(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
	wall := &fakeEntity{id: 3, name: "wall"}
	h.world.hit = &weapon.Trace{Fraction: 0.5, Normal: mgl64.Vec3{-1, 0, 0}, Entity: wall}

	h.w.Melee()
	h.clock.advance(50 * time.Millisecond)
	h.w.Melee()
	h.clock.advance(time.Second)
	h.w.Melee()

	assert.Equal(t, []string{"decals/punch", "decals/punch"}, h.presenter.decals)
	assert.Equal(t, []string{"fists/metal", "fists/metal"}, h.presenter.sounds[weapon.SoundChannelBody2])
}

func TestMelee_Stealing(t *testing.T) {
	cases := []struct {
		name     string
		policy   func(*weapon.Policy)
		team     int
		berserk  bool
		wantTake bool
	}{
		{"single player", func(p *weapon.Policy) {}, 2, false, false},
		{"deathmatch", func(p *weapon.Policy) { p.Multiplayer = true; p.GameType = config.GameTypeDeathmatch }, 1, false, true},
		{"team mate", func(p *weapon.Policy) { p.Multiplayer = true; p.GameType = config.GameTypeTeamDM }, 1, false, false},
		{"opponent", func(p *weapon.Policy) { p.Multiplayer = true; p.GameType = config.GameTypeTeamDM }, 2, false, true},
		{"team damage", func(p *weapon.Policy) {
			p.Multiplayer = true
			p.GameType = config.GameTypeTeamDM
			p.TeamDamage = true
		}, 1, false, true},
		{"berserk", func(p *weapon.Policy) { p.Multiplayer = true; p.GameType = config.GameTypeDeathmatch }, 2, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, withPolicy(tc.policy))
			h.owner.team = 1
			h.owner.berserk = tc.berserk
			require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
			victim := &fakeEntity{id: 7, name: "player2", team: tc.team, mortal: true, actor: true}
			h.world.hit = &weapon.Trace{Fraction: 0.2, Entity: victim}

			h.w.Melee()
			if tc.wantTake {
				assert.Len(t, h.owner.stolen, 1)
			} else {
				assert.Empty(t, h.owner.stolen)
			}
		})
	}
}

func TestMelee_NoWeaponsSparesActors(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *weapon.Policy) { p.NoWeapons = true }))
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
	victim := &fakeEntity{id: 7, name: "player2", mortal: true, actor: true}
	h.world.hit = &weapon.Trace{Fraction: 0.2, Entity: victim}

	assert.False(t, h.w.Melee())
	assert.Empty(t, victim.damage)
}

func TestMelee_ClientOnlyFeedback(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *weapon.Policy) { p.Client = true }))
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
	target := &fakeEntity{id: 9, name: "imp", mortal: true}
	h.world.hit = &weapon.Trace{Fraction: 0.5, Entity: target}

	assert.False(t, h.w.Melee())
	assert.Zero(t, h.world.traces)
	assert.Equal(t, 1, h.owner.feedback)
}

func TestMelee_WithoutDefinition(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 10)
	assert.False(t, h.w.Melee())
}

func TestMeleeBehavior_StrikesMidSwing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.Equip("weapon_fists", weapon.UnknownClip()))
	h.settle(20)
	target := &fakeEntity{id: 9, name: "imp", mortal: true}
	h.world.hit = &weapon.Trace{Fraction: 0.5, Entity: target}

	h.w.BeginAttack()
	h.w.EndAttack()
	h.tick(0)
	assert.Empty(t, target.damage, "strike lands halfway")

	h.tick(200 * time.Millisecond)
	assert.Len(t, target.damage, 1)

	h.tick(200 * time.Millisecond)
	h.settle(5)
	assert.Equal(t, weapon.StateIdle, h.w.State())
	assert.Len(t, target.damage, 1)
}
