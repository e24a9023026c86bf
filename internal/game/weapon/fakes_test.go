package weapon_test

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/netsync"
)

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now += d }

type animCall struct {
	anim  string
	cycle bool
}

type fakePresenter struct {
	def      *inventory.WeaponDef
	anims    []animCall
	sounds   map[weapon.SoundChannel][]string
	stopped  []weapon.SoundChannel
	flashes  []bool
	decals   []string
	skins    []string
	visible  map[weapon.ModelKind]bool
	joints   map[string]weapon.JointHandle
	jointPos mgl64.Vec3
	origin   mgl64.Vec3
	axis     mgl64.Mat3
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{
		sounds:  make(map[weapon.SoundChannel][]string),
		visible: make(map[weapon.ModelKind]bool),
		joints: map[string]weapon.JointHandle{
			"barrel": 1,
			"flash":  2,
			"eject":  3,
		},
	}
}

func (p *fakePresenter) SetDefinition(def *inventory.WeaponDef) { p.def = def }

func (p *fakePresenter) PlayAnim(_ weapon.AnimChannel, anim string, _ int, cycle bool) (time.Duration, bool) {
	p.anims = append(p.anims, animCall{anim: anim, cycle: cycle})
	if p.def == nil {
		return 0, false
	}
	return p.def.AnimLength(anim)
}

func (p *fakePresenter) StartSound(ch weapon.SoundChannel, shader string) {
	p.sounds[ch] = append(p.sounds[ch], shader)
}

func (p *fakePresenter) StopSound(ch weapon.SoundChannel) { p.stopped = append(p.stopped, ch) }

func (p *fakePresenter) SetTransform(origin mgl64.Vec3, axis mgl64.Mat3) {
	p.origin, p.axis = origin, axis
}

func (p *fakePresenter) MuzzleFlash(_, _ mgl64.Vec3, on bool) { p.flashes = append(p.flashes, on) }

func (p *fakePresenter) ProjectDecal(_, _ mgl64.Vec3, _ float64, material string) {
	p.decals = append(p.decals, material)
}

func (p *fakePresenter) EmitParticle(string, mgl64.Vec3, mgl64.Mat3) {}

func (p *fakePresenter) Joint(_ weapon.ModelKind, name string) (weapon.JointHandle, bool) {
	h, ok := p.joints[name]
	return h, ok
}

func (p *fakePresenter) JointTransform(weapon.ModelKind, weapon.JointHandle) (mgl64.Vec3, mgl64.Mat3, bool) {
	return p.jointPos, mgl64.Ident3(), true
}

func (p *fakePresenter) SetVisible(model weapon.ModelKind, visible bool) { p.visible[model] = visible }

func (p *fakePresenter) SetSkin(skin string) { p.skins = append(p.skins, skin) }

func (p *fakePresenter) played(anim string) int {
	n := 0
	for _, a := range p.anims {
		if a.anim == anim {
			n++
		}
	}
	return n
}

type fakeEntity struct {
	id       int32
	name     string
	bounds   geom.Bounds
	damage   []int
	impulses []mgl64.Vec3
	effects  int
	bleeds   bool
	actor    bool
	team     int
	mortal   bool
	removed  bool
}

func (e *fakeEntity) SpawnID() int32                     { return e.id }
func (e *fakeEntity) Name() string                       { return e.name }
func (e *fakeEntity) AbsBounds() geom.Bounds             { return e.bounds }
func (e *fakeEntity) ApplyImpulse(_, impulse mgl64.Vec3) { e.impulses = append(e.impulses, impulse) }
func (e *fakeEntity) CanTakeDamage() bool                { return e.mortal }
func (e *fakeEntity) Bleeds() bool                       { return e.bleeds }
func (e *fakeEntity) IsActor() bool                      { return e.actor }
func (e *fakeEntity) Team() int                          { return e.team }
func (e *fakeEntity) Remove()                            { e.removed = true }

func (e *fakeEntity) Damage(_ weapon.Entity, _ mgl64.Vec3, amount int, _ string) {
	e.damage = append(e.damage, amount)
}

func (e *fakeEntity) AddDamageEffect(_, _ mgl64.Vec3, _ string) { e.effects++ }

type launch struct {
	start, dir  mgl64.Vec3
	damagePower float64
}

type fakeProjectile struct {
	fakeEntity
	created  bool
	launches []launch
	bound    weapon.Entity
	hidden   bool
	noSync   bool
}

func (p *fakeProjectile) Create(weapon.Entity, mgl64.Vec3, mgl64.Vec3) { p.created = true }

func (p *fakeProjectile) Launch(start, dir, _ mgl64.Vec3, _, _, damagePower float64) {
	p.launches = append(p.launches, launch{start: start, dir: dir, damagePower: damagePower})
}

func (p *fakeProjectile) Bounds() geom.Bounds        { return geom.Cube(1) }
func (p *fakeProjectile) BindTo(owner weapon.Entity) { p.bound = owner }
func (p *fakeProjectile) Unbind()                    { p.bound = nil }
func (p *fakeProjectile) Show()                      { p.hidden = false }
func (p *fakeProjectile) Hide()                      { p.hidden = true }
func (p *fakeProjectile) DisableNetworkSync()        { p.noSync = true }

type fakeWorld struct {
	nextID    int32
	spawned   []*fakeProjectile
	spawnBad  bool
	spawnErr  error
	hit       *weapon.Trace
	traces    int
	lastStart mgl64.Vec3
	lastMask  weapon.ContentMask
	predicted int
	alerts    int
	brass     int
	bad       []*fakeEntity
}

func (w *fakeWorld) TracePoint(start, end mgl64.Vec3, mask weapon.ContentMask, _ weapon.Entity) weapon.Trace {
	w.traces++
	w.lastStart, w.lastMask = start, mask
	if w.hit != nil {
		return *w.hit
	}
	return weapon.Trace{Fraction: 1, EndPos: end}
}

func (w *fakeWorld) Translation(_, end mgl64.Vec3, _ geom.Bounds, _ weapon.ContentMask, _ weapon.Entity) weapon.Trace {
	return weapon.Trace{Fraction: 1, EndPos: end}
}

func (w *fakeWorld) SpawnEntity(def *inventory.ProjectileDef) (weapon.Entity, error) {
	if w.spawnErr != nil {
		return nil, w.spawnErr
	}
	w.nextID++
	if w.spawnBad {
		e := &fakeEntity{id: w.nextID, name: def.ID}
		w.bad = append(w.bad, e)
		return e, nil
	}
	p := &fakeProjectile{fakeEntity: fakeEntity{id: w.nextID, name: def.ID}}
	w.spawned = append(w.spawned, p)
	return p, nil
}

func (w *fakeWorld) PredictCollision(*inventory.ProjectileDef, weapon.Trace) { w.predicted++ }
func (w *fakeWorld) AlertAI(weapon.Entity)                                   { w.alerts++ }

func (w *fakeWorld) SpawnBrass(*inventory.BrassDef, mgl64.Vec3, mgl64.Mat3, mgl64.Vec3) { w.brass++ }

type fakeOwner struct {
	fakeEntity
	pouch    *inventory.AmmoPouch
	local    bool
	berserk  bool
	fired    int
	stolen   []weapon.Player
	feedback int
	mods     map[weapon.Modifier]float64
}

func newFakeOwner() *fakeOwner {
	return &fakeOwner{
		fakeEntity: fakeEntity{id: 100, name: "player1", bounds: geom.NewBounds(mgl64.Vec3{-16, -16, 0}, mgl64.Vec3{16, 16, 72})},
		pouch:      inventory.NewAmmoPouch(),
	}
}

func (o *fakeOwner) Inventory() weapon.Inventory {
	if o.pouch == nil {
		return nil
	}
	return o.pouch
}

func (o *fakeOwner) IsLocal() bool                           { return o.local }
func (o *fakeOwner) View() (mgl64.Vec3, mgl64.Mat3)          { return mgl64.Vec3{0, 0, 64}, mgl64.Ident3() }
func (o *fakeOwner) PushVelocity() mgl64.Vec3                { return mgl64.Vec3{} }
func (o *fakeOwner) Berserk() bool                           { return o.berserk }
func (o *fakeOwner) AddProjectilesFired(n int)               { o.fired += n }
func (o *fakeOwner) StealWeapon(victim weapon.Player)        { o.stolen = append(o.stolen, victim) }
func (o *fakeOwner) WeaponFireFeedback(*inventory.WeaponDef) { o.feedback++ }

func (o *fakeOwner) Modifier(m weapon.Modifier) float64 {
	if v, ok := o.mods[m]; ok {
		return v
	}
	return 1
}

type fakeEvents struct{ events []netsync.Event }

func (e *fakeEvents) SendEvent(ev netsync.Event) { e.events = append(e.events, ev) }

type fakeResolver struct {
	owners      map[int32]weapon.Owner
	projectiles map[int32]weapon.Projectile
}

func (r fakeResolver) Owner(id int32) (weapon.Owner, bool) {
	o, ok := r.owners[id]
	return o, ok
}

func (r fakeResolver) Projectile(id int32) (weapon.Projectile, bool) {
	p, ok := r.projectiles[id]
	return p, ok
}

const (
	bullets inventory.AmmoType = 1
	shells  inventory.AmmoType = 2
	rockets inventory.AmmoType = 3
	cells   inventory.AmmoType = 4
)

func testRegistry(t testing.TB) *inventory.Registry {
	t.Helper()
	table, err := inventory.NewAmmoTable([]inventory.AmmoTypeDef{
		{Name: "ammo_bullets", ID: bullets},
		{Name: "ammo_shells", ID: shells},
		{Name: "ammo_rockets", ID: rockets},
		{Name: "ammo_cells", ID: cells},
	})
	require.NoError(t, err)
	r := inventory.NewRegistry(table)

	anims := map[string]inventory.Seconds{
		weapon.AnimRaise: 0.5, weapon.AnimIdle: 2, weapon.AnimFire: 0.2,
		weapon.AnimReload: 1, weapon.AnimPutAway: 0.4, weapon.AnimCharge: 1,
	}

	pistol := inventory.NewWeaponDef()
	pistol.ID = "weapon_pistol"
	pistol.WeaponClass = weapon.ClassFirearm
	pistol.AmmoType = "ammo_bullets"
	pistol.AmmoRequired = 1
	pistol.ClipSize = 10
	pistol.LowAmmo = 3
	pistol.Projectile = "projectile_bullet"
	pistol.EjectBrass = "debris_brass"
	pistol.EjectBrassDelay = 0.05
	pistol.DropItem = "item_pistol"
	pistol.FireSound = "pistol/fire"
	pistol.MuzzleKickTime = 0.1
	pistol.MuzzleKickMaxTime = 0.3
	pistol.MuzzleKickAngles = mgl64.Vec3{-2, 0, 0}
	pistol.MuzzleKickOffset = mgl64.Vec3{1, 0, 0}
	pistol.Behavior.FireDelay = 0.3
	pistol.Animations = anims

	mg := inventory.NewWeaponDef()
	*mg = *pistol
	mg.ID = "weapon_machinegun"
	mg.ClipSize = 30
	mg.Behavior.Automatic = true
	mg.Behavior.FireDelay = 0.1

	shotgun := inventory.NewWeaponDef()
	*shotgun = *pistol
	shotgun.ID = "weapon_shotgun"
	shotgun.AmmoType = "ammo_shells"
	shotgun.ClipSize = 8
	shotgun.Projectile = "projectile_pellets"
	shotgun.Behavior.Projectiles = 8
	shotgun.Behavior.Spread = 10
	shotgun.Behavior.ReloadAmount = 1
	shotgun.Behavior.ReloadDelay = 0.5

	launcher := inventory.NewWeaponDef()
	*launcher = *pistol
	launcher.ID = "weapon_rocketlauncher"
	launcher.WeaponClass = weapon.ClassLauncher
	launcher.AmmoType = "ammo_rockets"
	launcher.ClipSize = 5
	launcher.Projectile = "projectile_rocket"
	launcher.EjectBrass = ""

	bfg := inventory.NewWeaponDef()
	*bfg = *pistol
	bfg.ID = "weapon_bfg"
	bfg.WeaponClass = weapon.ClassCharged
	bfg.AmmoType = "ammo_cells"
	bfg.ClipSize = 32
	bfg.PowerAmmo = true
	bfg.Projectile = "projectile_bfg"
	bfg.EjectBrass = ""
	bfg.HumSound = "bfg/hum"
	bfg.Behavior.ChargeTime = 2
	bfg.Behavior.DamagePower = 4

	fists := inventory.NewWeaponDef()
	fists.ID = "weapon_fists"
	fists.WeaponClass = weapon.ClassMelee
	fists.Melee = "melee_fists"
	fists.MeleeDistance = 42
	fists.Stealing = true
	fists.ImpactDamageEffect = true
	fists.StrikeMaterial = "decals/punch"
	fists.Behavior.FireDelay = 0.4
	fists.Animations = anims

	for _, d := range []*inventory.WeaponDef{pistol, mg, shotgun, launcher, bfg, fists} {
		require.NoError(t, r.RegisterWeapon(d))
	}
	for _, p := range []*inventory.ProjectileDef{
		{ID: "projectile_bullet", SpawnClass: inventory.SpawnClassProjectile, NetInstantHit: true},
		{ID: "projectile_pellets", SpawnClass: inventory.SpawnClassProjectile, NetInstantHit: true},
		{ID: "projectile_rocket", SpawnClass: inventory.SpawnClassProjectile},
		{ID: "projectile_bfg", SpawnClass: inventory.SpawnClassBFGProjectile},
	} {
		require.NoError(t, r.RegisterProjectile(p))
	}
	require.NoError(t, r.RegisterMelee(&inventory.MeleeDef{
		ID:         "melee_fists",
		Push:       100,
		KickDir:    mgl64.Vec3{1, 0, 0},
		DamageDice: "2d4",
		Sounds:     map[string]string{"miss": "fists/whoosh", "hit": "fists/flesh", "metal": "fists/metal"},
	}))
	require.NoError(t, r.RegisterBrass(&inventory.BrassDef{ID: "debris_brass", Model: "brass.lwo"}))
	return r
}

type harness struct {
	w         *weapon.Weapon
	clock     *fakeClock
	presenter *fakePresenter
	world     *fakeWorld
	owner     *fakeOwner
	events    *fakeEvents
	defs      *inventory.Registry
	deps      weapon.Deps
}

type harnessOption func(*weapon.Deps)

func withPolicy(fn func(*weapon.Policy)) harnessOption {
	return func(d *weapon.Deps) { fn(&d.Policy) }
}

func newHarness(t testing.TB, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		clock:     &fakeClock{now: 10 * time.Second},
		presenter: newFakePresenter(),
		world:     &fakeWorld{},
		owner:     newFakeOwner(),
		events:    &fakeEvents{},
		defs:      testRegistry(t),
	}
	src := dice.NewSeededSource(42)
	h.deps = weapon.Deps{
		Defs:      h.defs,
		World:     h.world,
		Presenter: h.presenter,
		Clock:     h.clock,
		Events:    h.events,
		Random:    src,
		Roller:    dice.NewLoggedRoller(src, zap.NewNop()),
		Logger:    zap.NewNop(),
		Policy:    weapon.DefaultPolicy(),
	}
	for _, o := range opts {
		o(&h.deps)
	}
	h.w = weapon.New(h.owner, h.deps)
	return h
}

// equip equips name with a full clip worth of ammo carried in the pouch.
func (h *harness) equip(t testing.TB, name string, ammo inventory.AmmoType, carried int) {
	t.Helper()
	h.owner.pouch.Give(ammo, carried)
	require.NoError(t, h.w.Equip(name, weapon.UnknownClip()))
}

// tick advances the clock by d and runs one Think.
func (h *harness) tick(d time.Duration) {
	h.clock.advance(d)
	h.w.Think()
}

// settle ticks until the weapon is idle or n ticks pass.
func (h *harness) settle(n int) {
	for i := 0; i < n && h.w.State() != weapon.StateIdle; i++ {
		h.tick(100 * time.Millisecond)
	}
}

var errSpawn = errors.New("spawn failed")
