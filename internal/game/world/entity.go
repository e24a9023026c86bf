package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

// Target is a static shootable entity placed by the layout.
type Target struct {
	id   int32
	spec TargetSpec

	health      int
	damageTaken int
	broken      bool
	impulse     mgl64.Vec3
	effects     int
	lastHitBy   int32
}

func newTarget(id int32, spec TargetSpec) *Target {
	return &Target{id: id, spec: spec, health: spec.Health}
}

// ID returns the layout ID of the target.
func (t *Target) ID() string { return t.spec.ID }

func (t *Target) SpawnID() int32         { return t.id }
func (t *Target) Name() string           { return t.spec.Name }
func (t *Target) AbsBounds() geom.Bounds { return t.spec.Bounds }
func (t *Target) Bleeds() bool           { return t.spec.Bleeds }
func (t *Target) IsActor() bool          { return false }
func (t *Target) Team() int              { return t.spec.Team }
func (t *Target) CanTakeDamage() bool    { return !t.broken }
func (t *Target) Broken() bool           { return t.broken }
func (t *Target) DamageTaken() int       { return t.damageTaken }
func (t *Target) Health() int            { return t.health }
func (t *Target) Impulse() mgl64.Vec3    { return t.impulse }
func (t *Target) DamageEffects() int     { return t.effects }
func (t *Target) LastAttacker() int32    { return t.lastHitBy }
func (t *Target) material() string       { return t.spec.Material }
func (t *Target) solid() bool            { return !t.broken }

// ApplyImpulse accumulates impulse. Targets do not move.
func (t *Target) ApplyImpulse(_, impulse mgl64.Vec3) {
	t.impulse = t.impulse.Add(impulse)
}

// Damage subtracts amount from the target's health. A target with no health
// limit records the damage and never breaks.
func (t *Target) Damage(attacker weapon.Entity, _ mgl64.Vec3, amount int, _ string) {
	if t.broken || amount <= 0 {
		return
	}
	t.damageTaken += amount
	if attacker != nil {
		t.lastHitBy = attacker.SpawnID()
	}
	if t.spec.Health == 0 {
		return
	}
	t.health -= amount
	if t.health <= 0 {
		t.health = 0
		t.broken = true
	}
}

func (t *Target) AddDamageEffect(_, _ mgl64.Vec3, _ string) {
	t.effects++
}

// Prop is an inert entity spawned from a definition whose spawn class cannot
// be launched.
type Prop struct {
	arena  *Arena
	id     int32
	class  string
	origin mgl64.Vec3
}

func (p *Prop) SpawnID() int32                                        { return p.id }
func (p *Prop) Name() string                                          { return p.class }
func (p *Prop) AbsBounds() geom.Bounds                                { return geom.Cube(0).Translate(p.origin) }
func (p *Prop) ApplyImpulse(_, _ mgl64.Vec3)                          {}
func (p *Prop) CanTakeDamage() bool                                   { return false }
func (p *Prop) Damage(_ weapon.Entity, _ mgl64.Vec3, _ int, _ string) {}
func (p *Prop) Bleeds() bool                                          { return false }
func (p *Prop) IsActor() bool                                         { return false }
func (p *Prop) AddDamageEffect(_, _ mgl64.Vec3, _ string)             {}

// Remove takes the prop out of the arena.
func (p *Prop) Remove() {
	p.arena.Remove(p.id)
}
