package weapon

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/config"
	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/netsync"
	"github.com/cory-johannsen/armory/internal/observability"
)

// Policy carries the game rules a weapon consults.
type Policy struct {
	// Client marks a non-authoritative peer. Clients never consume ammo or spawn entities.
	Client bool
	// InstantReload turns every reload request into an immediate full clip.
	InstantReload     bool
	StrikeFxInterval  time.Duration
	Multiplayer       bool
	GameType          string
	TeamDamage        bool
	NoWeapons         bool
	ShowBrass         bool
	ClipBits          int
	ReloadEventWindow time.Duration
}

// DefaultPolicy returns the single player server rules.
func DefaultPolicy() Policy {
	return Policy{
		StrikeFxInterval:  200 * time.Millisecond,
		GameType:          config.GameTypeSinglePlayer,
		ShowBrass:         true,
		ClipBits:          netsync.DefaultClipBits,
		ReloadEventWindow: time.Second,
	}
}

// PolicyFromConfig derives the weapon rules from cfg.
//
// Precondition: cfg must be valid.
func PolicyFromConfig(cfg config.Config) Policy {
	return Policy{
		Client:            !cfg.Simulation.IsServer(),
		InstantReload:     cfg.Weapons.InstantReload,
		StrikeFxInterval:  cfg.Weapons.StrikeFxInterval,
		Multiplayer:       cfg.Simulation.Multiplayer,
		GameType:          cfg.Simulation.GameType,
		TeamDamage:        cfg.Simulation.TeamDamage,
		NoWeapons:         cfg.Simulation.NoWeapons,
		ShowBrass:         cfg.Weapons.ShowBrass,
		ClipBits:          cfg.Network.ClipBits,
		ReloadEventWindow: cfg.Network.ReloadEventWindow,
	}
}

// Deps bundles the collaborators injected into every weapon.
type Deps struct {
	Defs      Definitions
	Behaviors *BehaviorRegistry
	World     World
	Presenter Presenter
	Clock     Clock
	Events    EventSink
	Random    dice.Source
	Roller    *dice.Roller
	Metrics   *observability.WeaponMetrics
	Logger    *zap.Logger
	Policy    Policy
}

// withDefaults fills optional collaborators.
//
// Precondition: Defs, World, Presenter and Clock must be non-nil (panics otherwise).
func (d Deps) withDefaults() Deps {
	if d.Defs == nil || d.World == nil || d.Presenter == nil || d.Clock == nil {
		panic("weapon: Deps: Defs, World, Presenter and Clock must be non-nil")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Behaviors == nil {
		d.Behaviors = DefaultBehaviors()
	}
	if d.Events == nil {
		d.Events = discardEvents{}
	}
	if d.Random == nil {
		d.Random = dice.NewCryptoSource()
	}
	if d.Roller == nil {
		d.Roller = dice.NewLoggedRoller(d.Random, d.Logger)
	}
	if d.Policy.StrikeFxInterval <= 0 {
		d.Policy.StrikeFxInterval = 200 * time.Millisecond
	}
	if d.Policy.ClipBits == 0 {
		d.Policy.ClipBits = netsync.DefaultClipBits
	}
	if d.Policy.ReloadEventWindow <= 0 {
		d.Policy.ReloadEventWindow = time.Second
	}
	return d
}
