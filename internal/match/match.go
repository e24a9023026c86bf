// Package match runs armed players in an arena on one simulation ticker,
// publishing weapon snapshots and queuing weapon saves as it goes.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/actor"
	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/geom"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/presentation"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/game/world"
	"github.com/cory-johannsen/armory/internal/netsync"
	"github.com/cory-johannsen/armory/internal/observability"
	"github.com/cory-johannsen/armory/internal/simulation"
	"github.com/cory-johannsen/armory/internal/storage/postgres"
)

// saveQueueLen bounds the saves waiting for Persist. Further saves are dropped.
const saveQueueLen = 64

// ErrUnknownSpawn is returned when a spawn point is not in the arena layout.
var ErrUnknownSpawn = errors.New("unknown spawn point")

// Config describes a match.
type Config struct {
	Layout *world.Layout
	Defs   *inventory.Registry
	Policy weapon.Policy
	// Tick is the simulation step.
	Tick time.Duration
	// SnapshotEvery is how often weapon snapshots are encoded. Zero disables snapshots.
	SnapshotEvery time.Duration
	// AutosaveEvery is how often every weapon is queued for saving. Zero disables autosave.
	AutosaveEvery time.Duration
	// Random seeds the arena dice. Nil uses crypto randomness.
	Random dice.Source
	// DamageHook, when set, adjusts the damage of every impact in the arena.
	DamageHook world.DamageHook
}

// Loadout is what a player spawns carrying.
type Loadout struct {
	Weapons []string
	// Ammo maps ammo type names to counts.
	Ammo  map[string]int
	Equip string
}

// Save is one weapon queued for storage.
type Save struct {
	Owner    string
	WeaponID string
	Data     []byte
	GameTime time.Duration
}

// SaveStore writes and reads weapon saves.
type SaveStore interface {
	Put(ctx context.Context, s postgres.WeaponSave) (postgres.WeaponSave, error)
	Get(ctx context.Context, owner string, slot int) (postgres.WeaponSave, error)
}

// Stats summarizes a running match.
type Stats struct {
	Frames      uint64
	Snapshots   uint64
	Events      uint64
	SavesSent   uint64
	SavesDrop   uint64
	Projectiles int
	Impacts     int
}

// Match owns the arena, its players and the ticker that drives them. All
// game state is touched only on the ticking goroutine; Persist runs beside it
// and only sees copies.
type Match struct {
	cfg     Config
	log     *zap.Logger
	metrics *observability.WeaponMetrics
	clock   *simulation.Clock
	ticker  *simulation.Ticker
	arena   *world.Arena
	roller  *dice.Roller
	random  dice.Source

	players []*actor.Player
	byName  map[string]*actor.Player

	sinceSnapshot time.Duration
	sinceAutosave time.Duration
	snapshot      []byte
	reliable      []byte
	saves         chan Save
	stats         Stats
}

// New builds a match over cfg.Layout.
//
// Precondition: cfg.Layout and cfg.Defs must be non-nil; cfg.Tick must be > 0;
// logger must be non-nil. metrics may be nil.
// Postcondition: the arena ticks before every player on each frame.
func New(cfg Config, logger *zap.Logger, metrics *observability.WeaponMetrics) (*Match, error) {
	if cfg.Layout == nil || cfg.Defs == nil {
		return nil, errors.New("match: New: layout and definitions are required")
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("match: New: %w", err)
	}
	if cfg.Random == nil {
		cfg.Random = dice.NewCryptoSource()
	}
	if cfg.Policy.ClipBits == 0 {
		cfg.Policy.ClipBits = netsync.DefaultClipBits
	}
	log := logger.Named("match").With(zap.String("arena", cfg.Layout.ID))
	clock := simulation.NewClock(0)
	roller := dice.NewLoggedRoller(cfg.Random, logger)
	m := &Match{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		clock:   clock,
		ticker:  simulation.NewTicker(clock, cfg.Tick, logger),
		arena:   world.NewArena(cfg.Layout, clock, roller, logger),
		roller:  roller,
		random:  cfg.Random,
		byName:  make(map[string]*actor.Player),
		saves:   make(chan Save, saveQueueLen),
	}
	if cfg.DamageHook != nil {
		m.arena.SetDamageHook(cfg.DamageHook)
	}
	m.ticker.Add("arena", m.arena)
	m.ticker.Add("match", simulation.ActorFunc(m.tick))
	return m, nil
}

// Spawn places a new player at the named spawn point with loadout.
//
// Postcondition: Returns an error wrapping ErrUnknownSpawn, a duplicate name
// error, or the error of equipping loadout.Equip.
func (m *Match) Spawn(name, spawn string, team int, local bool, loadout Loadout) (*actor.Player, error) {
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("match: Spawn %q: name already in use", name)
	}
	sp, ok := m.cfg.Layout.Spawn(spawn)
	if !ok {
		return nil, fmt.Errorf("match: Spawn %q: %w %q", name, ErrUnknownSpawn, spawn)
	}

	p := actor.NewPlayer(actor.Config{
		SpawnID: m.arena.NextSpawnID(),
		Name:    name,
		Team:    team,
		Local:   local,
		Origin:  sp.Origin,
		Angles:  sp.Angles,
	}, m.weaponDeps())

	for ammoName, n := range loadout.Ammo {
		t, err := m.cfg.Defs.AmmoType(ammoName)
		if err != nil {
			return nil, fmt.Errorf("match: Spawn %q: %w", name, err)
		}
		p.Pouch().Give(t, n)
	}
	for _, w := range loadout.Weapons {
		p.Give(w)
	}
	if loadout.Equip != "" {
		p.Give(loadout.Equip)
		if err := p.Equip(loadout.Equip); err != nil {
			return nil, fmt.Errorf("match: Spawn %q: %w", name, err)
		}
	}
	if err := m.arena.Add(p); err != nil {
		return nil, fmt.Errorf("match: Spawn %q: %w", name, err)
	}

	m.players = append(m.players, p)
	m.byName[name] = p
	m.ticker.Add("player:"+name, p)
	m.log.Info("player spawned",
		zap.String("player", name),
		zap.String("spawn", spawn),
		zap.Int32("spawn_id", p.SpawnID()),
		zap.String("weapon", p.Current()),
	)
	return p, nil
}

func (m *Match) weaponDeps() weapon.Deps {
	return weapon.Deps{
		Defs:      m.cfg.Defs,
		World:     m.arena,
		Presenter: presentation.NewLogPresenter(m.log),
		Clock:     m.clock,
		Random:    m.random,
		Roller:    m.roller,
		Metrics:   m.metrics,
		Logger:    m.log,
		Policy:    m.cfg.Policy,
	}
}

// Player returns the player called name.
func (m *Match) Player(name string) (*actor.Player, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// Players returns the players in spawn order.
func (m *Match) Players() []*actor.Player {
	out := make([]*actor.Player, len(m.players))
	copy(out, m.players)
	return out
}

// Arena returns the arena the match is played in.
func (m *Match) Arena() *world.Arena { return m.arena }

// Ticker returns the ticker that drives the match.
func (m *Match) Ticker() *simulation.Ticker { return m.ticker }

// Clock returns the simulation clock.
func (m *Match) Clock() *simulation.Clock { return m.clock }

// Run ticks the match until ctx is cancelled.
func (m *Match) Run(ctx context.Context) error { return m.ticker.Run(ctx) }

// Snapshot returns the last encoded snapshot of every weapon, in spawn order.
func (m *Match) Snapshot() []byte { return m.snapshot }

// Reliable returns the reliable events the players' weapons sent during the
// last frame, encoded as a netsync envelope stream. It is nil when no event
// was sent.
func (m *Match) Reliable() []byte { return m.reliable }

// Stats returns the match counters.
func (m *Match) Stats() Stats {
	s := m.stats
	s.Frames = m.ticker.Frames()
	s.Projectiles = len(m.arena.Projectiles())
	s.Impacts = len(m.arena.Impacts())
	return s
}

// tick runs after the arena and before the players on every frame.
func (m *Match) tick(dt time.Duration) {
	m.reliable = nil
	for _, p := range m.players {
		for _, ev := range p.Events() {
			m.reliable = netsync.AppendEnvelope(m.reliable, netsync.Envelope{Owner: p.Name(), Event: ev})
			m.stats.Events++
		}
	}
	if m.cfg.SnapshotEvery > 0 {
		m.sinceSnapshot += dt
		if m.sinceSnapshot >= m.cfg.SnapshotEvery {
			m.sinceSnapshot = 0
			m.encodeSnapshot()
		}
	}
	if m.cfg.AutosaveEvery > 0 {
		m.sinceAutosave += dt
		if m.sinceAutosave >= m.cfg.AutosaveEvery {
			m.sinceAutosave = 0
			m.QueueSaves()
		}
	}
}

func (m *Match) encodeSnapshot() {
	enc := netsync.NewEncoder(m.cfg.Policy.ClipBits)
	for _, p := range m.players {
		p.Weapon().WriteSnapshot(enc)
	}
	data, err := enc.Bytes()
	if err != nil {
		m.log.Error("snapshot encoding failed", zap.Error(err))
		return
	}
	m.snapshot = data
	m.stats.Snapshots++
	m.log.Debug("snapshot", zap.Int("players", len(m.players)), zap.Int("bytes", len(data)))
}

// QueueSaves encodes every armed player's weapon and queues it for Persist.
// Saves that do not fit in the queue are dropped and counted.
func (m *Match) QueueSaves() {
	now := m.clock.Now()
	for _, p := range m.players {
		if p.Current() == "" {
			continue
		}
		s := Save{Owner: p.Name(), WeaponID: p.Current(), Data: p.SaveWeapon(), GameTime: now}
		select {
		case m.saves <- s:
			m.stats.SavesSent++
		default:
			m.stats.SavesDrop++
			m.log.Warn("save queue full, dropping save", zap.String("player", p.Name()))
		}
	}
}

// Persist writes queued saves to slot 0 of store until ctx is cancelled.
// A failed write is logged and the next save is attempted.
//
// Postcondition: returns nil once ctx is done.
func (m *Match) Persist(ctx context.Context, store SaveStore) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-m.saves:
			stored, err := store.Put(ctx, postgres.WeaponSave{
				Owner:    s.Owner,
				WeaponID: s.WeaponID,
				Data:     s.Data,
				GameTime: s.GameTime,
			})
			if err != nil {
				m.log.Error("weapon save failed", zap.String("player", s.Owner), zap.Error(err))
				continue
			}
			m.log.Debug("weapon saved",
				zap.String("player", s.Owner),
				zap.String("weapon", s.WeaponID),
				zap.Stringer("save_id", stored.ID),
			)
		}
	}
}

// Resume restores every player's weapon from slot 0 of store. Players
// without a save keep their loadout. It returns the number restored.
//
// Precondition: call before the ticker runs.
func (m *Match) Resume(ctx context.Context, store SaveStore) (int, error) {
	restored := 0
	for _, p := range m.players {
		s, err := store.Get(ctx, p.Name(), 0)
		if errors.Is(err, postgres.ErrSaveNotFound) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("match: Resume %q: %w", p.Name(), err)
		}
		if err := p.RestoreWeapon(s.Data, m.arena); err != nil {
			return restored, fmt.Errorf("match: Resume %q: %w", p.Name(), err)
		}
		if s.GameTime > m.clock.Now() {
			m.clock.Set(s.GameTime)
		}
		restored++
		m.log.Info("weapon restored", zap.String("player", p.Name()), zap.String("weapon", s.WeaponID))
	}
	return restored, nil
}

// SpawnNames returns the layout's spawn point IDs, sorted.
func SpawnNames(l *world.Layout) []string {
	names := make([]string, 0, len(l.Spawns))
	for _, s := range l.Spawns {
		names = append(names, s.ID)
	}
	sort.Strings(names)
	return names
}

// Face turns p to look at target from its eye.
func Face(p *actor.Player, target mgl64.Vec3) {
	eye, _ := p.View()
	if d := target.Sub(eye); d.Len() > 0 {
		p.Look(geom.DirToAngles(d))
	}
}

// AddDrill makes every non-local player fire at the nearest intact target
// once per interval. It ticks after every player spawned so far.
//
// Precondition: every must be > 0.
func (m *Match) AddDrill(every time.Duration) {
	if every <= 0 {
		panic("match: AddDrill: interval must be > 0")
	}
	var since time.Duration
	var firing []*actor.Player
	m.ticker.Add("drill", simulation.ActorFunc(func(dt time.Duration) {
		for _, p := range firing {
			p.SetInput(actor.Input{})
		}
		firing = firing[:0]
		since += dt
		if since < every {
			return
		}
		since = 0
		for _, p := range m.players {
			if p.IsLocal() || !p.IsAlive() {
				continue
			}
			t := m.nearestTarget(p.Origin())
			if t == nil {
				continue
			}
			Face(p, t.AbsBounds().Center())
			p.SetInput(actor.Input{Attack: true})
			firing = append(firing, p)
		}
	}))
}

func (m *Match) nearestTarget(from mgl64.Vec3) *world.Target {
	var best *world.Target
	bestDist := 0.0
	for _, spec := range m.cfg.Layout.Targets {
		t, ok := m.arena.Target(spec.ID)
		if !ok || t.Broken() {
			continue
		}
		d := t.AbsBounds().Center().Sub(from).Len()
		if best == nil || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// Entry is one player in a roster.
type Entry struct {
	Name  string
	Spawn string
	Team  int
}

// ParseRoster parses a comma separated roster of name:spawn[:team] entries.
//
// Postcondition: Returns at least one entry, or an error naming the bad entry.
func ParseRoster(s string) ([]Entry, error) {
	var out []Entry
	seen := make(map[string]bool)
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("match: roster entry %q: want name:spawn[:team]", raw)
		}
		e := Entry{Name: parts[0], Spawn: parts[1]}
		if len(parts) == 3 {
			team, err := strconv.Atoi(parts[2])
			if err != nil || team < 0 {
				return nil, fmt.Errorf("match: roster entry %q: team must be a non-negative integer", raw)
			}
			e.Team = team
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("match: roster entry %q: duplicate name", raw)
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errors.New("match: roster is empty")
	}
	return out, nil
}
