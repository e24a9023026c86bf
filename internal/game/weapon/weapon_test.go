package weapon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/savegame"
)

func TestNew_PanicsWithoutCollaborators(t *testing.T) {
	assert.Panics(t, func() { weapon.New(nil, weapon.Deps{Logger: zap.NewNop()}) })
}

func TestNew_StartsCleared(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, weapon.StateNone, h.w.State())
	assert.Equal(t, weapon.StateNone, h.w.IdealState())
	assert.Nil(t, h.w.Def())
	assert.Nil(t, h.w.Behavior())
	assert.Equal(t, "", h.w.Name())
}

func TestEquip_FillsClipFromAvailableAmmo(t *testing.T) {
	h := newHarness(t)
	h.owner.pouch.Give(bullets, 6)

	require.NoError(t, h.w.Equip("weapon_pistol", weapon.UnknownClip()))

	assert.Equal(t, 6, h.w.AmmoInClip())
	assert.Equal(t, 10, h.w.ClipSize())
	assert.Equal(t, weapon.StateRising, h.w.IdealState())
	assert.True(t, h.w.IsLinked())
	assert.Same(t, h.presenter.def, h.w.Def())
}

func TestEquip_CarriedClip(t *testing.T) {
	h := newHarness(t)
	h.owner.pouch.Give(bullets, 50)

	require.NoError(t, h.w.Equip("weapon_pistol", weapon.Some(4)))
	assert.Equal(t, 4, h.w.AmmoInClip())

	require.NoError(t, h.w.Equip("weapon_pistol", weapon.Some(11)))
	assert.Equal(t, 10, h.w.AmmoInClip(), "out of range clip refills")
}

func TestEquip_EmptyNameLeavesCleared(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.Equip("", weapon.UnknownClip()))
	assert.Nil(t, h.w.Def())
}

func TestEquip_ResolvesDefinitions(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 10)

	require.NotNil(t, h.w.ProjectileDef())
	assert.Equal(t, "projectile_bullet", h.w.ProjectileDef().ID)
	require.NotNil(t, h.w.BrassDef())
	assert.Nil(t, h.w.MeleeDef())
	assert.Equal(t, bullets, h.w.AmmoType())

	j := h.w.Joints()
	assert.True(t, j.BarrelView.IsSet())
	assert.True(t, j.EjectView.IsSet())
	assert.False(t, j.GUILightView.IsSet())
}

func TestEquip_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(def *inventory.WeaponDef)
		want   error
	}{
		{"missing weapon class", func(d *inventory.WeaponDef) { d.WeaponClass = "" }, weapon.ErrMissingWeaponClass},
		{"unknown weapon class", func(d *inventory.WeaponDef) { d.WeaponClass = "railgun" }, weapon.ErrUnknownWeaponClass},
		{"unknown melee", func(d *inventory.WeaponDef) { d.Melee = "melee_chainsaw" }, weapon.ErrUnknownMelee},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			def := inventory.NewWeaponDef()
			def.ID = "weapon_broken"
			def.WeaponClass = weapon.ClassFirearm
			tc.mutate(def)
			require.NoError(t, h.defs.RegisterWeapon(def))

			err := h.w.Equip("weapon_broken", weapon.UnknownClip())
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, h.w.Def(), "failed equip leaves the weapon cleared")
			assert.Equal(t, weapon.StateNone, h.w.State())
		})
	}
}

func TestEquip_UnknownWeapon(t *testing.T) {
	h := newHarness(t)
	err := h.w.Equip("weapon_bfg10k", weapon.UnknownClip())
	assert.ErrorIs(t, err, weapon.ErrUnknownWeapon)
	assert.Nil(t, h.w.Def())
}

func TestEquip_MissingProjectileDegrades(t *testing.T) {
	h := newHarness(t)
	def := inventory.NewWeaponDef()
	def.ID = "weapon_dud"
	def.WeaponClass = weapon.ClassFirearm
	def.Projectile = "projectile_missing"
	require.NoError(t, h.defs.RegisterWeapon(def))

	require.NoError(t, h.w.Equip("weapon_dud", weapon.UnknownClip()))
	assert.Nil(t, h.w.ProjectileDef())
	assert.NoError(t, h.w.LaunchProjectiles(1, 0, 0, 1, 1))
	assert.Empty(t, h.world.spawned)
}

func TestEquip_StartsAndClearStopsHum(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_bfg", cells, 40)
	assert.Equal(t, []string{"bfg/hum"}, h.presenter.sounds[weapon.SoundChannelBody])

	h.w.Clear()
	assert.Contains(t, h.presenter.stopped, weapon.SoundChannelBody)
	assert.Nil(t, h.presenter.def)
}

func saveBytes(w *weapon.Weapon) []byte {
	sw := savegame.NewWriter()
	w.Save(sw)
	return sw.Bytes()
}

func TestClear_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 30)
	h.settle(20)
	h.w.BeginAttack()
	h.tick(0)

	h.w.Clear()
	once := saveBytes(h.w)
	h.w.Clear()
	twice := saveBytes(h.w)

	assert.Equal(t, once, twice)
	assert.Equal(t, weapon.StateNone, h.w.State())
	assert.Equal(t, weapon.StateNone, h.w.IdealState())
	assert.False(t, h.w.IsAttacking())
}

func TestClear_RemovesPendingProjectile(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_rocketlauncher", rockets, 10)
	p, err := h.w.CreateProjectile()
	require.NoError(t, err)
	require.NotNil(t, p)

	h.w.Clear()
	assert.True(t, h.world.spawned[0].removed)
	assert.Nil(t, h.w.PendingProjectile())
}

func TestDropItem(t *testing.T) {
	h := newHarness(t)
	h.equip(t, "weapon_pistol", bullets, 10)

	_, ok := h.w.DropItem()
	assert.False(t, ok, "no world model attached")

	h.w.AttachWorldModel(7)
	item, ok := h.w.DropItem()
	require.True(t, ok)
	assert.Equal(t, "item_pistol", item)

	h.w.AllowDrop(false)
	assert.False(t, h.w.CanDrop())
}
