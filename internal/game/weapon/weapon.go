// Package weapon implements the lifecycle of a player held weapon: its
// operating state machine, clip accounting against the owner's inventory,
// projectile and melee attack resolution, network snapshots and save/restore.
//
// A Weapon is driven from one simulation goroutine and is not safe for
// concurrent use.
package weapon

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/observability"
)

var (
	// ErrUnknownWeapon is returned when a weapon definition name is not registered.
	ErrUnknownWeapon = errors.New("unknown weapon definition")
	// ErrMissingWeaponClass is returned when a definition has no weapon_class.
	ErrMissingWeaponClass = errors.New("weapon definition has no weapon_class")
	// ErrUnknownWeaponClass is returned when no behavior is registered for a weapon_class.
	ErrUnknownWeaponClass = errors.New("unknown weapon_class")
	// ErrUnknownMelee is returned when a definition names an unregistered melee definition.
	ErrUnknownMelee = errors.New("unknown melee definition")
	// ErrNotProjectile is returned when a spawned entity cannot be launched.
	ErrNotProjectile = errors.New("spawned entity is not a projectile")
)

// Baseline values a cleared weapon carries.
const (
	defaultHideTime     = 300 * time.Millisecond
	defaultHideDistance = -15.0
	defaultFlashTime    = 250 * time.Millisecond
	defaultZoomFov      = 90
	defaultBerserk      = 2
	defaultNozzleFxFade = 1500
)

// Joints holds the joint handles resolved from the weapon models.
type Joints struct {
	BarrelView    Optional[JointHandle]
	FlashView     Optional[JointHandle]
	EjectView     Optional[JointHandle]
	GUILightView  Optional[JointHandle]
	VentLightView Optional[JointHandle]
	FlashWorld    Optional[JointHandle]
	BarrelWorld   Optional[JointHandle]
	EjectWorld    Optional[JointHandle]
}

func (j *Joints) all() []*Optional[JointHandle] {
	return []*Optional[JointHandle]{
		&j.BarrelView, &j.FlashView, &j.EjectView, &j.GUILightView,
		&j.VentLightView, &j.FlashWorld, &j.BarrelWorld, &j.EjectWorld,
	}
}

// Weapon is one weapon instance held by an owner.
//
// Invariant: 0 <= ammoClip <= clipSize.
// Invariant: state == idealState unless the behavior refuses the switch or
// the requested state is RISING while the behavior is already risen.
type Weapon struct {
	deps  Deps
	log   *zap.Logger
	owner Owner

	def        *inventory.WeaponDef
	projectile *inventory.ProjectileDef
	melee      *inventory.MeleeDef
	brass      *inventory.BrassDef
	behavior   Behavior

	state           State
	idealState      State
	animBlendFrames int
	animDoneTime    time.Duration
	isLinked        bool
	worldModel      Optional[int32]
	hidden          bool

	// transient input and network flags
	isFiring     bool
	netFiring    bool
	netReload    bool
	netEndReload bool
	brassDue     Optional[time.Duration]

	hideTime      time.Duration
	hideDistance  float64
	hideStartTime time.Duration
	hideStart     float64
	hideEnd       float64
	hideOffset    float64
	hide          bool
	disabled      bool
	berserk       int

	playerViewOrigin mgl64.Vec3
	playerViewAxis   mgl64.Mat3
	viewWeaponOrigin mgl64.Vec3
	viewWeaponAxis   mgl64.Mat3
	muzzleOrigin     mgl64.Vec3
	muzzleAxis       mgl64.Mat3
	pushVelocity     mgl64.Vec3

	meleeDistance float64
	meleeDefName  string
	brassDelay    time.Duration
	icon          string

	flashColor     mgl64.Vec3
	muzzleFlashEnd time.Duration
	flashTime      time.Duration
	lightOn        bool
	silentFire     bool

	kickEndTime       time.Duration
	muzzleKickTime    time.Duration
	muzzleKickMaxTime time.Duration
	muzzleKickAngles  mgl64.Vec3
	muzzleKickOffset  mgl64.Vec3

	ammoType     inventory.AmmoType
	ammoRequired int
	clipSize     int
	ammoClip     int
	clipUnknown  bool
	lowAmmo      int
	powerAmmo    bool
	zoomFov      int

	joints Joints

	hasBloodSplat        bool
	sndHum               string
	weaponSmokeStartTime time.Duration
	continuousSmoke      bool
	strikeSmokeStartTime time.Duration
	strikePos            mgl64.Vec3
	strikeAxis           mgl64.Mat3
	nextStrikeFx         time.Duration
	nozzleFx             bool
	nozzleFxFade         int
	lastAttack           time.Duration

	weaponAngleOffsetAverages int
	weaponAngleOffsetScale    float64
	weaponAngleOffsetMax      float64
	weaponOffsetTime          float64
	weaponOffsetScale         float64

	allowDrop bool
	pending   Projectile
}

// New returns a cleared weapon held by owner. owner may be nil for a weapon
// lying in the world; such a weapon reports no available ammunition.
//
// Precondition: deps.Defs, deps.World, deps.Presenter and deps.Clock must be non-nil.
// Postcondition: State() == StateNone.
func New(owner Owner, deps Deps) *Weapon {
	deps = deps.withDefaults()
	w := &Weapon{deps: deps, owner: owner}
	w.log = deps.Logger.Named("weapon")
	if owner != nil {
		w.log = w.log.With(zap.String("owner", owner.Name()))
	}
	w.Clear()
	return w
}

// Clear resets the weapon to the unequipped baseline. Calling it twice in a
// row leaves the same state as calling it once.
//
// Postcondition: State() == IdealState() == StateNone; Def() == nil; no pending projectile.
func (w *Weapon) Clear() {
	if w.pending != nil {
		w.pending.Remove()
	}
	if w.sndHum != "" {
		w.deps.Presenter.StopSound(SoundChannelBody)
	}
	if w.def != nil {
		w.deps.Presenter.SetDefinition(nil)
	}

	*w = Weapon{
		deps:       w.deps,
		log:        w.log,
		owner:      w.owner,
		worldModel: w.worldModel,
		hidden:     w.hidden,
	}

	w.hideTime = defaultHideTime
	w.hideDistance = defaultHideDistance
	w.hideStartTime = w.now() - w.hideTime
	w.flashTime = defaultFlashTime
	w.zoomFov = defaultZoomFov
	w.berserk = defaultBerserk
	w.nozzleFxFade = defaultNozzleFxFade
	w.allowDrop = true

	ident := mgl64.Ident3()
	w.playerViewAxis = ident
	w.viewWeaponAxis = ident
	w.muzzleAxis = ident
	w.strikeAxis = ident
}

// Equip binds the weapon to the definition called name. An empty name leaves
// the weapon cleared. clip is the carried-over clip count; UnknownClip or a
// value outside [0, clip_size] fills the clip from the owner's inventory.
// The clip is capped at what the inventory can back.
//
// Postcondition: on success the behavior is created and the weapon is rising.
// On error the weapon is left cleared and the error wraps ErrUnknownWeapon,
// inventory.ErrUnknownAmmoType, ErrMissingWeaponClass, ErrUnknownWeaponClass
// or ErrUnknownMelee.
func (w *Weapon) Equip(name string, clip Optional[int]) error {
	w.Clear()
	if name == "" {
		return nil
	}
	if err := w.equip(name, clip); err != nil {
		w.Clear()
		w.log.Error("equip failed", zap.String("weapon", name), zap.Error(err))
		return err
	}
	return nil
}

func (w *Weapon) equip(name string, clip Optional[int]) error {
	def, ok := w.deps.Defs.Weapon(name)
	if !ok {
		return fmt.Errorf("weapon: Equip: %w %q", ErrUnknownWeapon, name)
	}
	ammoType, err := w.deps.Defs.AmmoType(def.AmmoType)
	if err != nil {
		return fmt.Errorf("weapon: Equip: weapon %q: %w", name, err)
	}

	w.def = def
	w.applyDef(def)
	w.ammoType = ammoType
	w.log = observability.WeaponLogger(w.deps.Logger, w.ownerName(), def.ID)

	if err := w.resolveDefs(true); err != nil {
		return err
	}

	c, known := clip.Get()
	avail := w.AmmoAvailable()
	if !known || c < 0 || c > w.clipSize {
		c = min(w.clipSize, avail)
	}
	w.ammoClip = min(c, avail)

	w.deps.Presenter.SetDefinition(def)
	w.resolveJoints()

	behavior, err := w.newBehavior()
	if err != nil {
		return err
	}
	w.behavior = behavior
	w.behavior.ResetStates()
	w.WeaponRising()

	if w.sndHum != "" {
		w.deps.Presenter.StartSound(SoundChannelBody, w.sndHum)
	}
	w.isLinked = true
	return nil
}

// applyDef copies the tunables of def onto the weapon.
func (w *Weapon) applyDef(def *inventory.WeaponDef) {
	w.ammoRequired = def.AmmoRequired
	w.clipSize = def.ClipSize
	w.lowAmmo = def.LowAmmo
	w.powerAmmo = def.PowerAmmo
	w.meleeDistance = def.MeleeDistance
	w.meleeDefName = def.Melee
	w.brassDelay = def.EjectBrassDelay.Duration()
	w.icon = def.Icon
	w.silentFire = def.SilentFire

	w.hideTime = def.HideTime.Duration()
	w.hideDistance = def.HideDistance
	w.hideStartTime = w.now() - w.hideTime
	w.muzzleKickTime = def.MuzzleKickTime.Duration()
	w.muzzleKickMaxTime = def.MuzzleKickMaxTime.Duration()
	w.muzzleKickAngles = def.MuzzleKickAngles
	w.muzzleKickOffset = def.MuzzleKickOffset
	w.flashTime = def.FlashTime.Duration()
	w.flashColor = def.FlashColor

	w.zoomFov = def.ZoomFov
	w.berserk = def.Berserk
	w.weaponAngleOffsetAverages = def.WeaponAngleOffsetAverages
	w.weaponAngleOffsetScale = def.WeaponAngleOffsetScale
	w.weaponAngleOffsetMax = def.WeaponAngleOffsetMax
	w.weaponOffsetTime = def.WeaponOffsetTime
	w.weaponOffsetScale = def.WeaponOffsetScale
	w.continuousSmoke = def.ContinuousSmoke
	w.nozzleFx = def.NozzleFx
	w.nozzleFxFade = def.NozzleFxFade
	w.sndHum = def.HumSound
}

// resolveDefs looks up the projectile, melee and brass definitions named by
// w.def. Missing projectile and brass definitions disable those features.
// A missing melee definition is an error when strictMelee is set.
func (w *Weapon) resolveDefs(strictMelee bool) error {
	def := w.def
	w.projectile, w.melee, w.brass = nil, nil, nil

	if def.Projectile != "" {
		p, ok := w.deps.Defs.Projectile(def.Projectile)
		switch {
		case !ok:
			w.log.Warn("unknown projectile, projectile attacks disabled", zap.String("projectile", def.Projectile))
		case !p.IsProjectileClass():
			w.log.Warn("projectile spawn class cannot be launched, projectile attacks disabled",
				zap.String("projectile", def.Projectile),
				zap.String("spawn_class", p.SpawnClass),
			)
		default:
			w.projectile = p
		}
	}

	if def.Melee != "" {
		m, ok := w.deps.Defs.Melee(def.Melee)
		if !ok {
			if strictMelee {
				return fmt.Errorf("weapon: Equip: weapon %q: %w %q", def.ID, ErrUnknownMelee, def.Melee)
			}
			w.log.Warn("unknown melee, melee attacks disabled", zap.String("melee", def.Melee))
		}
		w.melee = m
	}

	if def.EjectBrass != "" {
		b, ok := w.deps.Defs.Brass(def.EjectBrass)
		if !ok {
			w.log.Warn("unknown brass", zap.String("brass", def.EjectBrass))
		}
		w.brass = b
	}
	return nil
}

func (w *Weapon) resolveJoints() {
	lookup := func(model ModelKind, name string) Optional[JointHandle] {
		if h, ok := w.deps.Presenter.Joint(model, name); ok {
			return Some(h)
		}
		return None[JointHandle]()
	}
	w.joints = Joints{
		BarrelView:    lookup(ViewModel, "barrel"),
		FlashView:     lookup(ViewModel, "flash"),
		EjectView:     lookup(ViewModel, "eject"),
		GUILightView:  lookup(ViewModel, "guiLight"),
		VentLightView: lookup(ViewModel, "ventLight"),
		FlashWorld:    lookup(WorldModel, "flash"),
		BarrelWorld:   lookup(WorldModel, "muzzle"),
		EjectWorld:    lookup(WorldModel, "eject"),
	}
}

func (w *Weapon) newBehavior() (Behavior, error) {
	if w.def.WeaponClass == "" {
		return nil, fmt.Errorf("weapon: Equip: weapon %q: %w", w.def.ID, ErrMissingWeaponClass)
	}
	b, err := w.deps.Behaviors.New(w.def.WeaponClass, w)
	if err != nil {
		return nil, fmt.Errorf("weapon: Equip: weapon %q: %w", w.def.ID, err)
	}
	return b, nil
}

func (w *Weapon) now() time.Duration {
	return w.deps.Clock.Now()
}

func (w *Weapon) isClient() bool {
	return w.deps.Policy.Client
}

func (w *Weapon) ownerName() string {
	if w.owner == nil {
		return ""
	}
	return w.owner.Name()
}

// Now returns the current game time.
func (w *Weapon) Now() time.Duration { return w.now() }

// Owner returns the weapon's owner, or nil.
func (w *Weapon) Owner() Owner { return w.owner }

// SetOwner changes the owner. The clip is kept.
func (w *Weapon) SetOwner(owner Owner) { w.owner = owner }

// Def returns the equipped definition, or nil.
func (w *Weapon) Def() *inventory.WeaponDef { return w.def }

// Name returns the equipped definition id, or "".
func (w *Weapon) Name() string {
	if w.def == nil {
		return ""
	}
	return w.def.ID
}

// Behavior returns the behavior driving the weapon, or nil when cleared.
func (w *Weapon) Behavior() Behavior { return w.behavior }

// ProjectileDef returns the resolved projectile definition, or nil.
func (w *Weapon) ProjectileDef() *inventory.ProjectileDef { return w.projectile }

// MeleeDef returns the resolved melee definition, or nil.
func (w *Weapon) MeleeDef() *inventory.MeleeDef { return w.melee }

// BrassDef returns the resolved brass definition, or nil.
func (w *Weapon) BrassDef() *inventory.BrassDef { return w.brass }

// Joints returns the resolved joint handles.
func (w *Weapon) Joints() Joints { return w.joints }

// PendingProjectile returns the pre-spawned projectile, or nil.
func (w *Weapon) PendingProjectile() Projectile { return w.pending }

// WorldModel returns the spawn id of the attached world model.
func (w *Weapon) WorldModel() Optional[int32] { return w.worldModel }

// AttachWorldModel records the spawn id of the third person model.
func (w *Weapon) AttachWorldModel(spawnID int32) { w.worldModel = Some(spawnID) }

// DetachWorldModel forgets the world model.
func (w *Weapon) DetachWorldModel() { w.worldModel = None[int32]() }

// LastAttack returns the game time of the most recent attack.
func (w *Weapon) LastAttack() time.Duration { return w.lastAttack }

// KickEndTime returns when the current muzzle kick expires.
func (w *Weapon) KickEndTime() time.Duration { return w.kickEndTime }

// HideOffset returns the current vertical offset applied while hiding.
func (w *Weapon) HideOffset() float64 { return w.hideOffset }

// ZoomFov returns the field of view used while zoomed.
func (w *Weapon) ZoomFov() int { return w.zoomFov }

// Icon returns the HUD icon name.
func (w *Weapon) Icon() string { return w.icon }

// MuzzleFlashEnd returns when the muzzle flash expires, 0 when none is lit.
func (w *Weapon) MuzzleFlashEnd() time.Duration { return w.muzzleFlashEnd }

// Logger returns the weapon's logger.
func (w *Weapon) Logger() *zap.Logger { return w.log }
