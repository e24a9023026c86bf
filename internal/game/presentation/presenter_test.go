package presentation_test

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/presentation"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

func testDef() *inventory.WeaponDef {
	def := inventory.NewWeaponDef()
	def.ID = "weapon_pistol"
	def.Animations = map[string]inventory.Seconds{weapon.AnimFire: 0.25}
	return def
}

func TestPlayAnim_UsesDefinitionLengths(t *testing.T) {
	p := presentation.NewLogPresenter(zaptest.NewLogger(t))

	_, ok := p.PlayAnim(weapon.AnimChannelAll, weapon.AnimFire, 0, false)
	assert.False(t, ok, "no definition attached")

	p.SetDefinition(testDef())
	length, ok := p.PlayAnim(weapon.AnimChannelAll, weapon.AnimFire, 0, false)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, length)

	_, ok = p.PlayAnim(weapon.AnimChannelAll, weapon.AnimReload, 0, false)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Stats().Anims)
}

func TestJoints(t *testing.T) {
	p := presentation.NewLogPresenter(zaptest.NewLogger(t))

	barrel, ok := p.Joint(weapon.ViewModel, "barrel")
	require.True(t, ok)
	muzzle, ok := p.Joint(weapon.WorldModel, "muzzle")
	require.True(t, ok)
	assert.NotEqual(t, barrel, muzzle)
	_, ok = p.Joint(weapon.WorldModel, "barrel")
	assert.False(t, ok, "world models have a muzzle, not a barrel")

	p.SetTransform(mgl64.Vec3{100, 0, 0}, mgl64.Ident3())
	origin, axis, ok := p.JointTransform(weapon.ViewModel, barrel)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{116, -4, -4}, origin)
	assert.Equal(t, mgl64.Ident3(), axis)

	_, _, ok = p.JointTransform(weapon.ViewModel, 999)
	assert.False(t, ok)
}

func TestJointHandlesAreStable(t *testing.T) {
	a := presentation.NewLogPresenter(zap.NewNop())
	b := presentation.NewLogPresenter(zap.NewNop())
	for _, name := range []string{"barrel", "flash", "eject", "guiLight", "ventLight"} {
		ha, _ := a.Joint(weapon.ViewModel, name)
		hb, _ := b.Joint(weapon.ViewModel, name)
		assert.Equal(t, ha, hb, name)
	}
}

func TestStateAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := presentation.NewLogPresenter(zap.New(core))

	p.SetVisible(weapon.ViewModel, true)
	p.SetSkin("skins/gold")
	p.StartSound(weapon.SoundChannelWeapon, "pistol/fire")
	p.MuzzleFlash(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, true)
	p.MuzzleFlash(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, false)
	p.ProjectDecal(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, 8, "textures/decals/punch")
	p.EmitParticle("strike_smoke", mgl64.Vec3{}, mgl64.Ident3())

	assert.True(t, p.Visible(weapon.ViewModel))
	assert.False(t, p.Visible(weapon.WorldModel))
	assert.Equal(t, "skins/gold", p.Skin())
	assert.Equal(t, presentation.Stats{Sounds: 1, Flashes: 1, Decals: 1, Particles: 1}, p.Stats())

	assert.Equal(t, 1, logs.FilterMessage("sound").Len())
	assert.Equal(t, 2, logs.FilterMessage("muzzle flash").Len())
	skin := logs.FilterMessage("skin").All()
	require.Len(t, skin, 1)
	assert.Equal(t, "skins/gold", skin[0].ContextMap()["skin"])
}
