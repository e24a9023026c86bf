package world

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
)

const (
	// instantHitRange is how far an instant-hit projectile travels in its first tick.
	instantHitRange = 8192
	// brassGravity pulls ejected brass down, in units per second squared.
	brassGravity = 800

	maxImpacts = 256
	maxAlerts  = 64
)

// Impact records where a projectile or predicted shot struck.
type Impact struct {
	Projectile string
	Pos        mgl64.Vec3
	Normal     mgl64.Vec3
	// Entity is the spawn ID of the entity hit, 0 for level geometry.
	Entity   int32
	Material string
	Damage   int
	// Predicted marks client side predictions; they deal no damage.
	Predicted bool
	// Detonated marks a fuse expiring in flight.
	Detonated bool
	At        time.Duration
}

// Alert records a noise AI may react to.
type Alert struct {
	Source int32
	At     time.Duration
}

// Debris is ejected brass falling through the arena.
type Debris struct {
	Def      *inventory.BrassDef
	Origin   mgl64.Vec3
	Axis     mgl64.Mat3
	Velocity mgl64.Vec3
	Expires  time.Duration
}

type projectileHit struct {
	p         *Projectile
	tr        weapon.Trace
	dir       mgl64.Vec3
	detonated bool
}

// Arena is the reference weapon.World. It also resolves spawn IDs for save
// restoration. All methods are safe for concurrent use; entity callbacks run
// outside the arena lock.
type Arena struct {
	mu     sync.Mutex
	layout *Layout
	clock  weapon.Clock
	roller *dice.Roller
	log    *zap.Logger

	nextID      int32
	byID        map[int32]weapon.Entity
	bodies      []weapon.Entity
	targets     map[string]*Target
	projectiles []*Projectile
	debris      []Debris
	impacts     []Impact
	alerts      []Alert
	damageHook  DamageHook
}

// DamageHit describes a damaging impact before it is applied.
type DamageHit struct {
	Projectile string
	Target     string
	Damage     int
}

// DamageHook may adjust the damage of an impact. It runs on the ticking
// goroutine without the arena lock.
type DamageHook func(hit DamageHit) int

// SetDamageHook installs h for every later impact. A nil h removes it.
func (a *Arena) SetDamageHook(h DamageHook) {
	a.mu.Lock()
	a.damageHook = h
	a.mu.Unlock()
}

// NewArena populates an arena from layout.
//
// Precondition: layout must be valid; clock and roller must be non-nil.
// Postcondition: every layout target is registered with a unique spawn ID.
func NewArena(layout *Layout, clock weapon.Clock, roller *dice.Roller, logger *zap.Logger) *Arena {
	if layout == nil || clock == nil || roller == nil {
		panic("world: NewArena: layout, clock and roller must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Arena{
		layout:  layout,
		clock:   clock,
		roller:  roller,
		log:     logger.Named("arena").With(zap.String("arena", layout.ID)),
		byID:    make(map[int32]weapon.Entity),
		targets: make(map[string]*Target, len(layout.Targets)),
	}
	for _, spec := range layout.Targets {
		t := newTarget(a.allocLocked(), spec)
		a.byID[t.id] = t
		a.bodies = append(a.bodies, t)
		a.targets[spec.ID] = t
	}
	return a
}

func (a *Arena) allocLocked() int32 {
	a.nextID++
	for a.byID[a.nextID] != nil {
		a.nextID++
	}
	return a.nextID
}

// Layout returns the static content of the arena.
func (a *Arena) Layout() *Layout { return a.layout }

// NextSpawnID reserves a spawn ID for an entity that will be added later.
func (a *Arena) NextSpawnID() int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocLocked()
}

// Add registers a solid entity such as an actor.
//
// Precondition: e must be non-nil.
// Postcondition: Returns an error if the spawn ID is already taken.
func (a *Arena) Add(e weapon.Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := e.SpawnID()
	if existing, ok := a.byID[id]; ok {
		return fmt.Errorf("world: Add: spawn ID %d already used by %q", id, existing.Name())
	}
	a.byID[id] = e
	a.bodies = append(a.bodies, e)
	if id > a.nextID {
		a.nextID = id
	}
	return nil
}

// Remove takes the entity with spawn ID id out of the arena. Unknown IDs are ignored.
func (a *Arena) Remove(id int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeLocked(id)
}

func (a *Arena) removeLocked(id int32) {
	e, ok := a.byID[id]
	if !ok {
		return
	}
	delete(a.byID, id)
	if p, ok := e.(*Projectile); ok {
		p.removed = true
		return
	}
	for i, b := range a.bodies {
		if b.SpawnID() == id {
			a.bodies = append(a.bodies[:i], a.bodies[i+1:]...)
			break
		}
	}
}

// Entity returns the entity with the given spawn ID.
func (a *Arena) Entity(id int32) (weapon.Entity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.byID[id]
	return e, ok
}

// Target returns the layout target with the given ID.
func (a *Arena) Target(id string) (*Target, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.targets[id]
	return t, ok
}

// Owner resolves a saved owner reference.
func (a *Arena) Owner(spawnID int32) (weapon.Owner, bool) {
	e, ok := a.Entity(spawnID)
	if !ok {
		return nil, false
	}
	o, ok := e.(weapon.Owner)
	return o, ok
}

// Projectile resolves a saved pending projectile reference.
func (a *Arena) Projectile(spawnID int32) (weapon.Projectile, bool) {
	e, ok := a.Entity(spawnID)
	if !ok {
		return nil, false
	}
	p, ok := e.(*Projectile)
	if !ok {
		return nil, false
	}
	return p, true
}

// TracePoint traces a point from start to end.
func (a *Arena) TracePoint(start, end mgl64.Vec3, mask weapon.ContentMask, ignore weapon.Entity) weapon.Trace {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.traceLocked(start, end, geom.Bounds{}, mask, ignore)
}

// Translation sweeps bounds from start to end.
func (a *Arena) Translation(start, end mgl64.Vec3, bounds geom.Bounds, mask weapon.ContentMask, ignore weapon.Entity) weapon.Trace {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.traceLocked(start, end, bounds, mask, ignore)
}

// traceLocked returns the first obstacle the box meets on its way from
// start to end. Obstacles are grown by the box so the sweep reduces to a
// segment test. A start inside an obstacle reports Fraction 0.
func (a *Arena) traceLocked(start, end mgl64.Vec3, box geom.Bounds, mask weapon.ContentMask, ignore weapon.Entity) weapon.Trace {
	best := weapon.Trace{Fraction: 1, EndPos: end}
	reflected := geom.NewBounds(box.Max.Mul(-1), box.Min.Mul(-1))
	delta := end.Sub(start)

	test := func(obstacle geom.Bounds) (float64, mgl64.Vec3, bool) {
		grown := obstacle.Grow(reflected)
		if grown.Contains(start) {
			n := mgl64.Vec3{0, 0, 1}
			if delta.Len() > 0 {
				n = delta.Normalize().Mul(-1)
			}
			return 0, n, true
		}
		return grown.SegmentIntersection(start, end)
	}
	consider := func(frac float64, normal mgl64.Vec3, ent weapon.Entity, material string) {
		if frac >= best.Fraction {
			return
		}
		best = weapon.Trace{
			Fraction: frac,
			EndPos:   start.Add(delta.Mul(frac)),
			Normal:   normal,
			Entity:   ent,
			Material: material,
		}
	}

	if mask&weapon.ContentSolid != 0 {
		for _, b := range a.layout.Brushes {
			if frac, n, ok := test(b.Bounds); ok {
				consider(frac, n, nil, b.Material)
			}
		}
	}
	if mask&(weapon.ContentBody|weapon.ContentRenderModel) != 0 {
		for _, e := range a.bodies {
			if ignore != nil && e.SpawnID() == ignore.SpawnID() {
				continue
			}
			material := ""
			if t, ok := e.(*Target); ok {
				if !t.solid() {
					continue
				}
				material = t.material()
			}
			if frac, n, ok := test(e.AbsBounds()); ok {
				consider(frac, n, e, material)
			}
		}
	}
	return best
}

// SpawnEntity creates an entity from def. Definitions whose spawn class is
// not launchable produce an inert Prop.
func (a *Arena) SpawnEntity(def *inventory.ProjectileDef) (weapon.Entity, error) {
	if def == nil {
		return nil, fmt.Errorf("world: SpawnEntity: nil projectile definition")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.allocLocked()
	if !def.IsProjectileClass() {
		prop := &Prop{arena: a, id: id, class: def.SpawnClass}
		a.byID[id] = prop
		return prop, nil
	}
	p := newProjectile(a, id, def)
	a.byID[id] = p
	a.projectiles = append(a.projectiles, p)
	return p, nil
}

// PredictCollision records a client predicted impact.
func (a *Arena) PredictCollision(def *inventory.ProjectileDef, tr weapon.Trace) {
	impact := Impact{
		Pos:       tr.EndPos,
		Normal:    tr.Normal,
		Material:  tr.Material,
		Predicted: true,
		At:        a.clock.Now(),
	}
	if def != nil {
		impact.Projectile = def.ID
	}
	if tr.Entity != nil {
		impact.Entity = tr.Entity.SpawnID()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordImpactLocked(impact)
}

// AlertAI records a noise made by source.
func (a *Arena) AlertAI(source weapon.Entity) {
	if source == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, Alert{Source: source.SpawnID(), At: a.clock.Now()})
	if len(a.alerts) > maxAlerts {
		a.alerts = a.alerts[len(a.alerts)-maxAlerts:]
	}
}

// SpawnBrass adds a piece of debris that expires after the definition lifetime.
func (a *Arena) SpawnBrass(def *inventory.BrassDef, origin mgl64.Vec3, axis mgl64.Mat3, velocity mgl64.Vec3) {
	if def == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.debris = append(a.debris, Debris{
		Def:      def,
		Origin:   origin,
		Axis:     axis,
		Velocity: velocity,
		Expires:  a.clock.Now() + def.Lifetime.Duration(),
	})
}

func (a *Arena) recordImpactLocked(impact Impact) {
	a.impacts = append(a.impacts, impact)
	if len(a.impacts) > maxImpacts {
		a.impacts = a.impacts[len(a.impacts)-maxImpacts:]
	}
}

// Tick advances launched projectiles and brass by dt and resolves what the
// projectiles hit. Instant-hit projectiles cross the arena in one tick.
func (a *Arena) Tick(dt time.Duration) {
	now := a.clock.Now()
	secs := dt.Seconds()

	a.mu.Lock()
	var hits []projectileHit
	live := a.projectiles[:0]
	for _, p := range a.projectiles {
		if p.removed {
			continue
		}
		if !p.launched || p.hidden || p.bound != nil {
			live = append(live, p)
			continue
		}
		if p.fuseAt > 0 && now >= p.fuseAt {
			hits = append(hits, projectileHit{p: p, tr: weapon.Trace{Fraction: 1, EndPos: p.origin}, detonated: true})
			a.removeLocked(p.id)
			continue
		}
		step := p.velocity.Mul(secs)
		if p.def.NetInstantHit && p.velocity.Len() > 0 {
			step = p.velocity.Normalize().Mul(instantHitRange)
		}
		end := p.origin.Add(step)
		tr := a.traceLocked(p.origin, end, p.Bounds(), weapon.MaskShotBoundingBox, p.owner)
		if tr.Fraction < 1 {
			hits = append(hits, projectileHit{p: p, tr: tr, dir: p.dir})
			a.removeLocked(p.id)
			continue
		}
		p.origin = end
		if !a.layout.Extent.Contains(p.origin) {
			a.removeLocked(p.id)
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(a.projectiles); i++ {
		a.projectiles[i] = nil
	}
	a.projectiles = live

	debris := a.debris[:0]
	for _, d := range a.debris {
		if now >= d.Expires {
			continue
		}
		d.Velocity = d.Velocity.Sub(mgl64.Vec3{0, 0, brassGravity * secs})
		d.Origin = d.Origin.Add(d.Velocity.Mul(secs))
		if d.Origin[2] < a.layout.Extent.Min[2] {
			d.Origin[2] = a.layout.Extent.Min[2]
			d.Velocity = mgl64.Vec3{}
		}
		debris = append(debris, d)
	}
	a.debris = debris
	a.mu.Unlock()

	for _, h := range hits {
		a.resolveHit(h, now)
	}
}

// resolveHit applies damage for a finished projectile. It runs without the
// arena lock because entities may call back into the world.
func (a *Arena) resolveHit(h projectileHit, now time.Duration) {
	impact := Impact{
		Projectile: h.p.def.ID,
		Pos:        h.tr.EndPos,
		Normal:     h.tr.Normal,
		Material:   h.tr.Material,
		Detonated:  h.detonated,
		At:         now,
	}
	if ent := h.tr.Entity; ent != nil {
		impact.Entity = ent.SpawnID()
		if ent.CanTakeDamage() {
			impact.Damage = a.rollDamage(h.p)
			a.mu.Lock()
			hook := a.damageHook
			a.mu.Unlock()
			if hook != nil {
				impact.Damage = hook(DamageHit{Projectile: h.p.def.ID, Target: ent.Name(), Damage: impact.Damage})
			}
			ent.Damage(h.p.owner, h.dir, impact.Damage, h.p.def.ID)
			if ent.Bleeds() {
				ent.AddDamageEffect(h.tr.EndPos, h.dir, h.p.def.ID)
			}
		}
	}
	a.log.Debug("projectile impact",
		zap.String("projectile", impact.Projectile),
		zap.Int32("entity", impact.Entity),
		zap.Int("damage", impact.Damage),
		zap.Bool("detonated", impact.Detonated),
	)
	a.mu.Lock()
	a.recordImpactLocked(impact)
	a.mu.Unlock()
}

func (a *Arena) rollDamage(p *Projectile) int {
	if p.def.Damage == "" {
		return 0
	}
	res, err := a.roller.RollExpr(p.def.Damage)
	if err != nil {
		a.log.Error("bad projectile damage dice", zap.String("projectile", p.def.ID), zap.Error(err))
		return 0
	}
	return int(math.Round(float64(res.Total()) * p.damagePower))
}

// Impacts returns the recorded impacts, oldest first.
func (a *Arena) Impacts() []Impact {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Impact(nil), a.impacts...)
}

// Alerts returns the recorded AI alerts, oldest first.
func (a *Arena) Alerts() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Alert(nil), a.alerts...)
}

// Debris returns the brass currently in the arena.
func (a *Arena) Debris() []Debris {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Debris(nil), a.debris...)
}

// Projectiles returns the live projectiles ordered by spawn ID.
func (a *Arena) Projectiles() []*Projectile {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Projectile, 0, len(a.projectiles))
	for _, p := range a.projectiles {
		if !p.removed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// EntityCount returns the number of registered entities.
func (a *Arena) EntityCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byID)
}

var (
	_ weapon.World      = (*Arena)(nil)
	_ weapon.Resolver   = (*Arena)(nil)
	_ weapon.Player     = (*Target)(nil)
	_ weapon.Projectile = (*Projectile)(nil)
)
