package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

// Projectile is a launched or pending shot. Its state is advanced by
// Arena.Tick on the simulation goroutine.
type Projectile struct {
	arena *Arena
	id    int32
	def   *inventory.ProjectileDef

	owner  weapon.Entity
	bound  weapon.Entity
	origin mgl64.Vec3
	dir    mgl64.Vec3

	velocity    mgl64.Vec3
	damagePower float64
	fuseAt      time.Duration

	launched bool
	hidden   bool
	netSync  bool
	removed  bool
}

func newProjectile(a *Arena, id int32, def *inventory.ProjectileDef) *Projectile {
	return &Projectile{arena: a, id: id, def: def, netSync: true, damagePower: 1}
}

func (p *Projectile) SpawnID() int32                { return p.id }
func (p *Projectile) Name() string                  { return p.def.ID }
func (p *Projectile) Def() *inventory.ProjectileDef { return p.def }

// AbsBounds returns the collision box around the current origin.
func (p *Projectile) AbsBounds() geom.Bounds { return p.Bounds().Translate(p.origin) }

// Bounds returns the local cubic collision box.
func (p *Projectile) Bounds() geom.Bounds { return geom.Cube(p.def.Size) }

func (p *Projectile) ApplyImpulse(_, _ mgl64.Vec3)                          {}
func (p *Projectile) CanTakeDamage() bool                                   { return false }
func (p *Projectile) Damage(_ weapon.Entity, _ mgl64.Vec3, _ int, _ string) {}
func (p *Projectile) Bleeds() bool                                          { return false }
func (p *Projectile) IsActor() bool                                         { return false }
func (p *Projectile) AddDamageEffect(_, _ mgl64.Vec3, _ string)             {}

// Create records the owner and the initial placement.
func (p *Projectile) Create(owner weapon.Entity, start, dir mgl64.Vec3) {
	p.owner = owner
	p.origin = start
	p.dir = dir
}

// Launch starts the projectile moving. launchPower scales the definition
// speed when positive; fuseOffset shortens the fuse by that many seconds.
func (p *Projectile) Launch(start, dir, pushVelocity mgl64.Vec3, fuseOffset, launchPower, damagePower float64) {
	speed := p.def.Speed
	if launchPower > 0 {
		speed *= launchPower
	}
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	p.origin = start
	p.dir = dir
	p.velocity = dir.Mul(speed).Add(pushVelocity)
	p.damagePower = 1
	if damagePower > 0 {
		p.damagePower = damagePower
	}
	p.fuseAt = 0
	if p.def.Fuse > 0 {
		now := p.arena.clock.Now()
		p.fuseAt = now + p.def.Fuse.Duration() - time.Duration(fuseOffset*float64(time.Second))
		if p.fuseAt < now {
			p.fuseAt = now
		}
	}
	p.launched = true
}

// BindTo attaches a pending projectile to an owner until it is launched.
func (p *Projectile) BindTo(owner weapon.Entity) {
	p.bound = owner
	if owner != nil {
		p.origin = owner.AbsBounds().Center()
	}
}

func (p *Projectile) Unbind() { p.bound = nil }
func (p *Projectile) Show()   { p.hidden = false }
func (p *Projectile) Hide()   { p.hidden = true }

// DisableNetworkSync keeps the projectile out of snapshots; clients predict it.
func (p *Projectile) DisableNetworkSync() { p.netSync = false }

// Remove takes the projectile out of the arena.
func (p *Projectile) Remove() {
	p.arena.Remove(p.id)
}

func (p *Projectile) Origin() mgl64.Vec3     { return p.origin }
func (p *Projectile) Velocity() mgl64.Vec3   { return p.velocity }
func (p *Projectile) DamagePower() float64   { return p.damagePower }
func (p *Projectile) Owner() weapon.Entity   { return p.owner }
func (p *Projectile) BoundTo() weapon.Entity { return p.bound }
func (p *Projectile) Launched() bool         { return p.launched }
func (p *Projectile) Hidden() bool           { return p.hidden }
func (p *Projectile) NetworkSynced() bool    { return p.netSync }

// FuseAt returns when the projectile detonates, 0 without a fuse.
func (p *Projectile) FuseAt() time.Duration { return p.fuseAt }
