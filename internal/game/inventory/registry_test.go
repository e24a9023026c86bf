package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/armory/internal/game/inventory"
)

func pistolDef() *inventory.WeaponDef {
	def := inventory.NewWeaponDef()
	def.ID = "weapon_pistol"
	def.Name = "Pistol"
	def.WeaponClass = "firearm"
	def.AmmoType = "ammo_bullets"
	def.AmmoRequired = 1
	def.ClipSize = 12
	def.Projectile = "projectile_bullet"
	return def
}

func TestNewRegistry_PanicsOnNilAmmo(t *testing.T) {
	assert.Panics(t, func() { inventory.NewRegistry(nil) })
}

func TestRegistry_RegisterWeapon_Lookup(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	def := pistolDef()
	require.NoError(t, r.RegisterWeapon(def))

	got, ok := r.Weapon(def.ID)
	require.True(t, ok)
	assert.Same(t, def, got)

	_, ok = r.Weapon("weapon_bfg")
	assert.False(t, ok)
}

func TestRegistry_RegisterWeapon_CollisionError(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	require.NoError(t, r.RegisterWeapon(pistolDef()))
	assert.Error(t, r.RegisterWeapon(pistolDef()))
}

func TestRegistry_RegisterWeapon_UnknownAmmo(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	def := pistolDef()
	def.AmmoType = "ammo_plasma"
	err := r.RegisterWeapon(def)
	assert.ErrorIs(t, err, inventory.ErrUnknownAmmoType)
}

func TestRegistry_AmmoType(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	id, err := r.AmmoType("ammo_bullets")
	require.NoError(t, err)
	assert.Equal(t, inventory.AmmoType(1), id)
	assert.NotNil(t, r.Ammo())
}

func TestRegistry_AllWeaponsSorted(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	for _, id := range []string{"weapon_c", "weapon_a", "weapon_b"} {
		def := pistolDef()
		def.ID = id
		require.NoError(t, r.RegisterWeapon(def))
	}
	all := r.AllWeapons()
	require.Len(t, all, 3)
	assert.Equal(t, "weapon_a", all[0].ID)
	assert.Equal(t, "weapon_c", all[2].ID)
}

func TestRegistry_Dangling(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	def := pistolDef()
	def.Melee = "melee_missing"
	require.NoError(t, r.RegisterWeapon(def))
	require.NoError(t, r.RegisterProjectile(&inventory.ProjectileDef{ID: "projectile_bullet", SpawnClass: "projectile"}))

	dangling := r.Dangling()
	require.Len(t, dangling, 1)
	assert.Contains(t, dangling[0], "melee_missing")
}

func TestRegistry_RegisterDuplicates(t *testing.T) {
	r := inventory.NewRegistry(testAmmoTable(t))
	require.NoError(t, r.RegisterProjectile(&inventory.ProjectileDef{ID: "p"}))
	assert.Error(t, r.RegisterProjectile(&inventory.ProjectileDef{ID: "p"}))
	require.NoError(t, r.RegisterMelee(&inventory.MeleeDef{ID: "m"}))
	assert.Error(t, r.RegisterMelee(&inventory.MeleeDef{ID: "m"}))
	require.NoError(t, r.RegisterBrass(&inventory.BrassDef{ID: "b"}))
	assert.Error(t, r.RegisterBrass(&inventory.BrassDef{ID: "b"}))
}
