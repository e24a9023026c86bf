package weapon

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/netsync"
)

// Inventory is the ammunition reservoir a weapon draws from. It belongs to
// the owner and may be queried by several weapons.
type Inventory interface {
	// HasAmmo returns how many uses of amountRequired units are available,
	// or inventory.Unlimited when none are needed.
	HasAmmo(t inventory.AmmoType, amountRequired int) int
	// UseAmmo removes amount units and reports whether they were available.
	UseAmmo(t inventory.AmmoType, amount int) bool
}

// Entity is anything in the world a weapon can trace against, damage or spawn.
type Entity interface {
	SpawnID() int32
	Name() string
	// AbsBounds returns the world space bounds of the entity.
	AbsBounds() geom.Bounds
	ApplyImpulse(point, impulse mgl64.Vec3)
	CanTakeDamage() bool
	Damage(attacker Entity, dir mgl64.Vec3, amount int, damageDef string)
	Bleeds() bool
	IsActor() bool
	AddDamageEffect(point, dir mgl64.Vec3, damageDef string)
}

// Player is an entity that belongs to a team.
type Player interface {
	Entity
	Team() int
}

// Modifier names an owner-side scaling factor, such as a power-up.
type Modifier int

const (
	ModMeleeDistance Modifier = iota
	ModMeleeDamage
	ModSpeed
)

// Owner is the actor holding a weapon.
type Owner interface {
	Player
	// Inventory returns the owner's ammunition reservoir, or nil.
	Inventory() Inventory
	// IsLocal reports whether this peer controls the owner.
	IsLocal() bool
	// View returns the first person view origin and axis.
	View() (mgl64.Vec3, mgl64.Mat3)
	// PushVelocity is the velocity the owner inherits from movers.
	PushVelocity() mgl64.Vec3
	Modifier(m Modifier) float64
	Berserk() bool
	AddProjectilesFired(n int)
	StealWeapon(victim Player)
	WeaponFireFeedback(def *inventory.WeaponDef)
}

// Projectile is an entity a weapon can launch.
type Projectile interface {
	Entity
	Create(owner Entity, start, dir mgl64.Vec3)
	Launch(start, dir, pushVelocity mgl64.Vec3, fuseOffset, launchPower, damagePower float64)
	// Bounds returns the local collision bounds.
	Bounds() geom.Bounds
	BindTo(owner Entity)
	Unbind()
	Show()
	Hide()
	DisableNetworkSync()
	Remove()
}

// ContentMask selects what a trace collides with.
type ContentMask uint32

const (
	ContentSolid ContentMask = 1 << iota
	ContentBody
	ContentRenderModel

	MaskShotRenderModel = ContentSolid | ContentRenderModel
	MaskShotBoundingBox = ContentSolid | ContentBody
)

// Trace is the result of a world trace.
type Trace struct {
	// Fraction is the completed part of the trace; 1 means nothing was hit.
	Fraction float64
	EndPos   mgl64.Vec3
	Normal   mgl64.Vec3
	Entity   Entity
	Material string
}

// World is the physics and spawning collaborator.
type World interface {
	TracePoint(start, end mgl64.Vec3, mask ContentMask, ignore Entity) Trace
	// Translation sweeps bounds from start to end.
	Translation(start, end mgl64.Vec3, bounds geom.Bounds, mask ContentMask, ignore Entity) Trace
	SpawnEntity(def *inventory.ProjectileDef) (Entity, error)
	// PredictCollision plays the local impact of a client predicted shot.
	PredictCollision(def *inventory.ProjectileDef, tr Trace)
	AlertAI(source Entity)
	SpawnBrass(def *inventory.BrassDef, origin mgl64.Vec3, axis mgl64.Mat3, velocity mgl64.Vec3)
}

// ModelKind selects the first person or third person model.
type ModelKind int

const (
	ViewModel ModelKind = iota
	WorldModel
)

// JointHandle identifies a joint of a model.
type JointHandle int

// AnimChannel and SoundChannel address presentation channels.
type (
	AnimChannel  int
	SoundChannel int
)

const (
	AnimChannelAll AnimChannel = iota
	AnimChannelBarrel
)

const (
	SoundChannelBody SoundChannel = iota
	SoundChannelBody2
	SoundChannelWeapon
	SoundChannelItem
)

// Animation names behaviors play.
const (
	AnimRaise   = "raise"
	AnimIdle    = "idle"
	AnimFire    = "fire"
	AnimReload  = "reload"
	AnimPutAway = "putaway"
	AnimCharge  = "charge"
)

// Presenter is the fire-and-forget presentation sink. The weapon consumes
// nothing from it except animation lengths and joint transforms.
type Presenter interface {
	// SetDefinition attaches the models of def; nil detaches them.
	SetDefinition(def *inventory.WeaponDef)
	// PlayAnim starts anim and returns its length, or false when the model has no such animation.
	PlayAnim(channel AnimChannel, anim string, blendFrames int, cycle bool) (time.Duration, bool)
	StartSound(channel SoundChannel, shader string)
	StopSound(channel SoundChannel)
	SetTransform(origin mgl64.Vec3, axis mgl64.Mat3)
	MuzzleFlash(origin, color mgl64.Vec3, on bool)
	ProjectDecal(origin, dir mgl64.Vec3, depth float64, material string)
	EmitParticle(name string, origin mgl64.Vec3, axis mgl64.Mat3)
	Joint(model ModelKind, name string) (JointHandle, bool)
	JointTransform(model ModelKind, joint JointHandle) (mgl64.Vec3, mgl64.Mat3, bool)
	SetVisible(model ModelKind, visible bool)
	SetSkin(skin string)
}

// Clock reports game time.
type Clock interface {
	Now() time.Duration
}

// EventSink receives reliable events a server weapon emits.
type EventSink interface {
	SendEvent(ev netsync.Event)
}

// Definitions resolves definitions by name. *inventory.Registry satisfies it.
type Definitions interface {
	Weapon(id string) (*inventory.WeaponDef, bool)
	Projectile(id string) (*inventory.ProjectileDef, bool)
	Melee(id string) (*inventory.MeleeDef, bool)
	Brass(id string) (*inventory.BrassDef, bool)
	AmmoType(name string) (inventory.AmmoType, error)
}

// Resolver finds live objects by spawn id while restoring a save.
type Resolver interface {
	Owner(spawnID int32) (Owner, bool)
	Projectile(spawnID int32) (Projectile, bool)
}

type discardEvents struct{}

func (discardEvents) SendEvent(netsync.Event) {}
