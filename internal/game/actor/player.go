// Package actor provides the player character that owns and drives a weapon.
package actor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/netsync"
	"github.com/cory-johannsen/armory/internal/savegame"
)

const (
	// EyeHeight is the view origin above the player's feet.
	EyeHeight = 64
	// DefaultHealth is the health a player spawns with when none is configured.
	DefaultHealth = 100
	mass          = 100
	friction      = 4
)

// ErrNotCarried is returned when switching to a weapon the player does not own.
var ErrNotCarried = errors.New("weapon not carried")

var playerBounds = geom.NewBounds(mgl64.Vec3{-16, -16, 0}, mgl64.Vec3{16, 16, 72})

// Config describes a player at spawn time.
type Config struct {
	// SpawnID is the arena-wide entity ID. Must be non-zero.
	SpawnID int32
	Name    string
	Team    int
	// Local marks the player this peer controls.
	Local  bool
	Health int
	Origin mgl64.Vec3
	// Angles are pitch, yaw and roll in degrees.
	Angles mgl64.Vec3
}

// Input is the per-tick control state of a player.
type Input struct {
	Attack  bool
	Reload  bool
	Holster bool
}

// Player is a weapon.Owner with an ammo pouch, an arsenal of carried weapons
// and the weapon currently in hand. A Player is driven from the simulation
// goroutine and is not safe for concurrent use.
type Player struct {
	id     int32
	name   string
	team   int
	local  bool
	log    *zap.Logger
	events *netsync.Queue

	origin   mgl64.Vec3
	angles   mgl64.Vec3
	velocity mgl64.Vec3
	push     mgl64.Vec3

	health    int
	maxHealth int
	berserk   bool
	mods      map[weapon.Modifier]float64

	pouch   *inventory.AmmoPouch
	arsenal map[string]weapon.Optional[int]
	current string
	pending string
	weapon  *weapon.Weapon

	input            Input
	projectilesFired int
	damageEffects    int
	lastFeedback     string
	stolen           int
}

// NewPlayer creates a player holding no weapon. The weapon receives deps;
// its event sink is replaced by the player's own queue.
//
// Precondition: cfg.SpawnID must be non-zero; deps must satisfy weapon.New.
// Postcondition: the weapon is cleared and the arsenal is empty.
func NewPlayer(cfg Config, deps weapon.Deps) *Player {
	if cfg.SpawnID == 0 {
		panic("actor: NewPlayer: SpawnID must be non-zero")
	}
	health := cfg.Health
	if health <= 0 {
		health = DefaultHealth
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Player{
		id:        cfg.SpawnID,
		name:      cfg.Name,
		team:      cfg.Team,
		local:     cfg.Local,
		log:       logger.Named("actor").With(zap.String("player", cfg.Name)),
		events:    &netsync.Queue{},
		origin:    cfg.Origin,
		angles:    cfg.Angles,
		health:    health,
		maxHealth: health,
		mods:      make(map[weapon.Modifier]float64),
		pouch:     inventory.NewAmmoPouch(),
		arsenal:   make(map[string]weapon.Optional[int]),
	}
	deps.Events = p.events
	p.weapon = weapon.New(p, deps)
	return p
}

// Weapon returns the weapon in hand.
func (p *Player) Weapon() *weapon.Weapon { return p.weapon }

// Pouch returns the player's ammunition.
func (p *Player) Pouch() *inventory.AmmoPouch { return p.pouch }

// Events drains the reliable events the player's weapon emitted.
func (p *Player) Events() []netsync.Event { return p.events.Drain() }

// Give adds a weapon to the arsenal. A weapon already carried keeps its clip.
func (p *Player) Give(name string) {
	if _, ok := p.arsenal[name]; ok {
		return
	}
	p.arsenal[name] = weapon.UnknownClip()
}

// Carries reports whether name is in the arsenal.
func (p *Player) Carries(name string) bool {
	_, ok := p.arsenal[name]
	return ok
}

// Arsenal returns the carried weapon names, sorted.
func (p *Player) Arsenal() []string {
	names := make([]string, 0, len(p.arsenal))
	for n := range p.arsenal {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Current returns the name of the weapon in hand, "" when unarmed.
func (p *Player) Current() string { return p.current }

// Equip puts name in hand at once, remembering the clip of the weapon it replaces.
//
// Postcondition: Returns an error wrapping ErrNotCarried if name is not in the
// arsenal, or the weapon's equip error.
func (p *Player) Equip(name string) error {
	clip, ok := p.arsenal[name]
	if !ok {
		return fmt.Errorf("actor: Equip %q: %w", name, ErrNotCarried)
	}
	p.stashClip()
	if err := p.weapon.Equip(name, clip); err != nil {
		p.current = ""
		return fmt.Errorf("actor: Equip %q: %w", name, err)
	}
	p.current = name
	p.pending = ""
	return nil
}

// Switch lowers the weapon in hand and equips name once it is holstered.
//
// Postcondition: Returns an error wrapping ErrNotCarried if name is not in the arsenal.
func (p *Player) Switch(name string) error {
	if !p.Carries(name) {
		return fmt.Errorf("actor: Switch %q: %w", name, ErrNotCarried)
	}
	if name == p.current {
		return nil
	}
	p.pending = name
	if p.current != "" {
		p.weapon.PutAway()
	}
	return nil
}

// PendingSwitch returns the weapon waiting to be equipped, "" for none.
func (p *Player) PendingSwitch() string { return p.pending }

func (p *Player) stashClip() {
	if p.current == "" {
		return
	}
	if _, ok := p.arsenal[p.current]; ok {
		p.arsenal[p.current] = p.weapon.ClipCount()
	}
}

// SetInput replaces the control state applied on the next Tick.
func (p *Player) SetInput(in Input) { p.input = in }

// Look sets the view angles.
func (p *Player) Look(angles mgl64.Vec3) { p.angles = angles }

// Tick applies input, moves the player and runs one weapon frame.
func (p *Player) Tick(dt time.Duration) {
	secs := dt.Seconds()
	p.origin = p.origin.Add(p.velocity.Mul(secs))
	p.velocity = p.velocity.Mul(max(0, 1-friction*secs))

	if p.pending != "" && (p.current == "" || p.weapon.IsHolstered()) {
		if err := p.Equip(p.pending); err != nil {
			p.log.Error("weapon switch failed", zap.String("weapon", p.pending), zap.Error(err))
			p.pending = ""
		}
	}

	if p.IsAlive() {
		in := p.input
		switch {
		case in.Attack && !p.weapon.IsAttacking():
			p.weapon.BeginAttack()
		case !in.Attack && p.weapon.IsAttacking():
			p.weapon.EndAttack()
		}
		if in.Reload {
			p.weapon.Reload()
			p.input.Reload = false
		}
		if in.Holster && p.current != "" && !p.weapon.IsHolstered() {
			p.weapon.PutAway()
			p.input.Holster = false
		}
	}

	p.weapon.Present()
	p.weapon.Think()
}

// IsAlive reports whether the player has health left.
func (p *Player) IsAlive() bool { return p.health > 0 }

// Health returns the current health.
func (p *Player) Health() int { return p.health }

// Respawn restores health, moves the player and raises the weapon in hand.
func (p *Player) Respawn(origin, angles mgl64.Vec3) {
	p.health = p.maxHealth
	p.origin = origin
	p.angles = angles
	p.velocity = mgl64.Vec3{}
	p.input = Input{}
	if p.current != "" {
		if err := p.Equip(p.current); err != nil {
			p.log.Error("re-equip on respawn failed", zap.Error(err))
		}
	}
}

// SetBerserk toggles the berserk power-up.
func (p *Player) SetBerserk(on bool) { p.berserk = on }

// SetModifier sets a power-up scale. 1 is neutral.
func (p *Player) SetModifier(m weapon.Modifier, v float64) { p.mods[m] = v }

// SetPushVelocity sets the velocity inherited from a mover.
func (p *Player) SetPushVelocity(v mgl64.Vec3) { p.push = v }

// Origin returns the player's feet position.
func (p *Player) Origin() mgl64.Vec3 { return p.origin }

// Velocity returns the player's own velocity.
func (p *Player) Velocity() mgl64.Vec3 { return p.velocity }

// ProjectilesFired returns the number of projectiles the player launched.
func (p *Player) ProjectilesFired() int { return p.projectilesFired }

// LastFeedback returns the definition ID of the last weapon fire feedback.
func (p *Player) LastFeedback() string { return p.lastFeedback }

// DamageEffects returns how many damage effects the player received.
func (p *Player) DamageEffects() int { return p.damageEffects }

// Stolen returns how many weapons the player took from others.
func (p *Player) Stolen() int { return p.stolen }

// SaveWeapon encodes the weapon in hand.
func (p *Player) SaveWeapon() []byte {
	sw := savegame.NewWriter()
	p.weapon.Save(sw)
	return sw.Bytes()
}

// RestoreWeapon decodes a weapon saved by SaveWeapon into the player's hand.
//
// Postcondition: on success the weapon in hand is carried and current.
func (p *Player) RestoreWeapon(data []byte, res weapon.Resolver) error {
	if err := p.weapon.Restore(savegame.NewReader(data), res); err != nil {
		p.current = ""
		return fmt.Errorf("actor: RestoreWeapon: %w", err)
	}
	p.weapon.SetOwner(p)
	p.current = ""
	if def := p.weapon.Def(); def != nil {
		p.current = def.ID
		p.Give(def.ID)
	}
	return nil
}

// weapon.Owner

func (p *Player) SpawnID() int32           { return p.id }
func (p *Player) Name() string             { return p.name }
func (p *Player) Team() int                { return p.team }
func (p *Player) IsLocal() bool            { return p.local }
func (p *Player) Bleeds() bool             { return true }
func (p *Player) IsActor() bool            { return true }
func (p *Player) Berserk() bool            { return p.berserk }
func (p *Player) CanTakeDamage() bool      { return p.IsAlive() }
func (p *Player) PushVelocity() mgl64.Vec3 { return p.push }

// AbsBounds returns the player's box around its origin.
func (p *Player) AbsBounds() geom.Bounds { return playerBounds.Translate(p.origin) }

// Inventory returns the player's ammo pouch.
func (p *Player) Inventory() weapon.Inventory { return p.pouch }

// View returns the eye position and the view axis.
func (p *Player) View() (mgl64.Vec3, mgl64.Mat3) {
	return p.origin.Add(mgl64.Vec3{0, 0, EyeHeight}), geom.AnglesToAxis(p.angles)
}

// Modifier returns the scale for m, 1 when none is set.
func (p *Player) Modifier(m weapon.Modifier) float64 {
	if v, ok := p.mods[m]; ok {
		return v
	}
	return 1
}

// ApplyImpulse knocks the player back.
func (p *Player) ApplyImpulse(_, impulse mgl64.Vec3) {
	p.velocity = p.velocity.Add(impulse.Mul(1.0 / mass))
}

// Damage subtracts amount from health. A player brought to zero releases
// and hides its weapon.
func (p *Player) Damage(attacker weapon.Entity, _ mgl64.Vec3, amount int, damageDef string) {
	if !p.IsAlive() || amount <= 0 {
		return
	}
	p.health -= amount
	if p.health > 0 {
		return
	}
	p.health = 0
	fields := []zap.Field{zap.String("damage_def", damageDef)}
	if attacker != nil {
		fields = append(fields, zap.String("attacker", attacker.Name()))
	}
	p.log.Info("player died", fields...)
	p.weapon.OwnerDied()
}

func (p *Player) AddDamageEffect(_, _ mgl64.Vec3, _ string) { p.damageEffects++ }

func (p *Player) AddProjectilesFired(n int) { p.projectilesFired += n }

// StealWeapon takes the victim's weapon in hand. The victim loses it from
// the arsenal; the thief gains it without switching.
func (p *Player) StealWeapon(victim weapon.Player) {
	v, ok := victim.(*Player)
	if !ok || v.current == "" {
		return
	}
	name := v.current
	v.weapon.WeaponStolen()
	delete(v.arsenal, name)
	v.current = ""
	p.Give(name)
	p.stolen++
	p.log.Info("weapon stolen", zap.String("weapon", name), zap.String("victim", v.name))
}

// WeaponFireFeedback records the weapon that just fired.
func (p *Player) WeaponFireFeedback(def *inventory.WeaponDef) {
	if def != nil {
		p.lastFeedback = def.ID
	}
}

var _ weapon.Owner = (*Player)(nil)
