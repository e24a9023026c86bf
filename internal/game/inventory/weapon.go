// Package inventory provides the weapon, projectile, melee and ammunition
// definitions the weapon core consumes, and the YAML loaders that build them.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Seconds is a duration written in YAML as fractional seconds.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// BehaviorParams tunes the weapon class that drives a weapon.
type BehaviorParams struct {
	// FireDelay is the minimum time between two attacks.
	FireDelay Seconds `yaml:"fire_delay"`
	// Spread is the dispersion half-angle in degrees.
	Spread float64 `yaml:"spread"`
	// Projectiles is the number of projectiles per shot.
	Projectiles int     `yaml:"projectiles"`
	FuseOffset  float64 `yaml:"fuse_offset"`
	LaunchPower float64 `yaml:"launch_power"`
	DamagePower float64 `yaml:"damage_power"`
	// Automatic keeps firing while the attack is held.
	Automatic bool `yaml:"automatic"`
	// ReloadDelay is the time one reload step takes.
	ReloadDelay Seconds `yaml:"reload_delay"`
	// ReloadAmount is the number of rounds loaded per reload step; 0 loads a full clip.
	ReloadAmount int `yaml:"reload_amount"`
	// ChargeTime is the time a charged weapon needs to reach full power.
	ChargeTime Seconds `yaml:"charge_time"`
}

// WeaponDef defines the static properties of a weapon loaded from YAML.
// A WeaponDef is read-only once registered.
type WeaponDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// WeaponClass names the behavior that drives this weapon.
	WeaponClass string `yaml:"weapon_class"`
	Icon        string `yaml:"icon"`

	AmmoType     string `yaml:"ammo_type"`
	AmmoRequired int    `yaml:"ammo_required"`
	ClipSize     int    `yaml:"clip_size"`
	LowAmmo      int    `yaml:"low_ammo"`
	PowerAmmo    bool   `yaml:"power_ammo"`

	Projectile      string  `yaml:"def_projectile"`
	Melee           string  `yaml:"def_melee"`
	MeleeDistance   float64 `yaml:"melee_distance"`
	EjectBrass      string  `yaml:"def_eject_brass"`
	EjectBrassDelay Seconds `yaml:"eject_brass_delay"`
	DropItem        string  `yaml:"def_drop_item"`

	SilentFire         bool   `yaml:"silent_fire"`
	Stealing           bool   `yaml:"stealing"`
	ImpactDamageEffect bool   `yaml:"impact_damage_effect"`
	StrikeMaterial     string `yaml:"mtr_strike"`
	HumSound           string `yaml:"snd_hum"`
	FireSound          string `yaml:"snd_fire"`

	HideTime          Seconds    `yaml:"hide_time"`
	HideDistance      float64    `yaml:"hide_distance"`
	MuzzleKickTime    Seconds    `yaml:"muzzle_kick_time"`
	MuzzleKickMaxTime Seconds    `yaml:"muzzle_kick_max_time"`
	MuzzleKickAngles  mgl64.Vec3 `yaml:"muzzle_kick_angles"`
	MuzzleKickOffset  mgl64.Vec3 `yaml:"muzzle_kick_offset"`
	FlashTime         Seconds    `yaml:"flash_time"`
	FlashColor        mgl64.Vec3 `yaml:"flash_color"`

	ZoomFov                   int     `yaml:"zoom_fov"`
	Berserk                   int     `yaml:"berserk"`
	WeaponAngleOffsetAverages int     `yaml:"weapon_angle_offset_averages"`
	WeaponAngleOffsetScale    float64 `yaml:"weapon_angle_offset_scale"`
	WeaponAngleOffsetMax      float64 `yaml:"weapon_angle_offset_max"`
	WeaponOffsetTime          float64 `yaml:"weapon_offset_time"`
	WeaponOffsetScale         float64 `yaml:"weapon_offset_scale"`
	ContinuousSmoke           bool    `yaml:"continuous_smoke"`
	NozzleFx                  bool    `yaml:"nozzle_fx"`
	NozzleFxFade              int     `yaml:"nozzle_fx_fade"`

	Behavior BehaviorParams `yaml:"behavior"`
	// Animations maps animation names to their length in seconds.
	Animations map[string]Seconds `yaml:"animations"`
}

// NewWeaponDef returns a WeaponDef carrying the defaults applied to any
// field a YAML file leaves out.
//
// Postcondition: HideTime == 0.3s, HideDistance == -15, FlashTime == 0.25s,
// ZoomFov == 70, Berserk == 2.
func NewWeaponDef() *WeaponDef {
	return &WeaponDef{
		HideTime:                  0.3,
		HideDistance:              -15,
		FlashTime:                 0.25,
		ZoomFov:                   70,
		Berserk:                   2,
		WeaponAngleOffsetAverages: 10,
		WeaponAngleOffsetScale:    0.25,
		WeaponAngleOffsetMax:      10,
		WeaponOffsetTime:          400,
		WeaponOffsetScale:         0.005,
		NozzleFxFade:              1500,
		Behavior: BehaviorParams{
			Projectiles: 1,
			LaunchPower: 1,
			DamagePower: 1,
		},
	}
}

// IsMelee reports whether the weapon attacks with a melee trace.
func (w *WeaponDef) IsMelee() bool {
	return w.Melee != ""
}

// AnimLength returns the configured length of anim, or 0 when the weapon has no such animation.
func (w *WeaponDef) AnimLength(anim string) (time.Duration, bool) {
	s, ok := w.Animations[anim]
	return s.Duration(), ok
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if w.WeaponClass == "" {
		errs = append(errs, errors.New("WeaponClass must not be empty"))
	}
	if w.AmmoRequired < 0 {
		errs = append(errs, errors.New("AmmoRequired must be >= 0"))
	}
	if w.ClipSize < 0 {
		errs = append(errs, errors.New("ClipSize must be >= 0"))
	}
	if w.LowAmmo < 0 || (w.ClipSize > 0 && w.LowAmmo > w.ClipSize) {
		errs = append(errs, errors.New("LowAmmo must be in [0, ClipSize]"))
	}
	if w.MeleeDistance < 0 {
		errs = append(errs, errors.New("MeleeDistance must be >= 0"))
	}
	if w.HideTime < 0 || w.MuzzleKickTime < 0 || w.MuzzleKickMaxTime < 0 || w.FlashTime < 0 {
		errs = append(errs, errors.New("timing fields must be >= 0"))
	}
	if w.Behavior.Projectiles < 0 {
		errs = append(errs, errors.New("Behavior.Projectiles must be >= 0"))
	}
	if w.Behavior.Spread < 0 || w.Behavior.Spread > 180 {
		errs = append(errs, errors.New("Behavior.Spread must be in [0, 180]"))
	}
	for name, length := range w.Animations {
		if length < 0 {
			errs = append(errs, fmt.Errorf("animation %q has negative length", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon validation failed: %v", errs)
	}
	return nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice.
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	return loadDefs(dir, "LoadWeapons", NewWeaponDef, (*WeaponDef).Validate)
}
