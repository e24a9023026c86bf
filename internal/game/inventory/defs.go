package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/armory/internal/game/dice"
)

// Spawn classes a projectile definition may name. Only these produce
// entities that can be launched.
const (
	SpawnClassProjectile       = "projectile"
	SpawnClassGuidedProjectile = "guided_projectile"
	SpawnClassBFGProjectile    = "bfg_projectile"
)

// ProjectileDef describes what a weapon launches.
type ProjectileDef struct {
	ID         string `yaml:"id"`
	SpawnClass string `yaml:"spawn_class"`
	// NetInstantHit marks hitscan projectiles whose impact clients predict locally.
	NetInstantHit    bool    `yaml:"net_instant_hit"`
	LaunchFromBarrel bool    `yaml:"launch_from_barrel"`
	Speed            float64 `yaml:"speed"`
	Damage           string  `yaml:"damage"`
	Fuse             Seconds `yaml:"fuse"`
	// Size is the half extent of the projectile's cubic collision volume.
	Size float64 `yaml:"size"`
}

// IsProjectileClass reports whether SpawnClass produces a launchable entity.
func (p *ProjectileDef) IsProjectileClass() bool {
	switch p.SpawnClass {
	case SpawnClassProjectile, SpawnClassGuidedProjectile, SpawnClassBFGProjectile:
		return true
	}
	return false
}

// Validate checks that the ProjectileDef satisfies its invariants.
func (p *ProjectileDef) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if p.SpawnClass == "" {
		errs = append(errs, errors.New("SpawnClass must not be empty"))
	}
	if p.Size < 0 {
		errs = append(errs, errors.New("Size must be >= 0"))
	}
	if p.Damage != "" {
		if _, err := dice.Parse(p.Damage); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("projectile validation failed: %v", errs)
	}
	return nil
}

// MeleeDef describes a melee strike.
type MeleeDef struct {
	ID   string  `yaml:"id"`
	Push float64 `yaml:"push"`
	// KickDir is the damage direction in muzzle space.
	KickDir    mgl64.Vec3 `yaml:"kick_dir"`
	DamageDice string     `yaml:"damage_dice"`
	// Sounds maps "miss", "hit", "hit_berserk" and surface material names to sound shaders.
	Sounds map[string]string `yaml:"sounds"`
}

// Sound returns the sound registered under key, or "".
func (m *MeleeDef) Sound(key string) string {
	return m.Sounds[key]
}

// Validate checks that the MeleeDef satisfies its invariants.
func (m *MeleeDef) Validate() error {
	var errs []error
	if m.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if _, err := dice.Parse(m.DamageDice); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("melee validation failed: %v", errs)
	}
	return nil
}

// BrassDef describes the debris ejected after a shot.
type BrassDef struct {
	ID       string  `yaml:"id"`
	Model    string  `yaml:"model"`
	Lifetime Seconds `yaml:"lifetime"`
}

// Validate checks that the BrassDef satisfies its invariants.
func (b *BrassDef) Validate() error {
	if b.ID == "" {
		return errors.New("brass validation failed: ID must not be empty")
	}
	return nil
}

// LoadProjectiles reads every projectile YAML in dir.
func LoadProjectiles(dir string) ([]*ProjectileDef, error) {
	return loadDefs(dir, "LoadProjectiles", func() *ProjectileDef { return &ProjectileDef{SpawnClass: SpawnClassProjectile} }, (*ProjectileDef).Validate)
}

// LoadMelee reads every melee YAML in dir.
func LoadMelee(dir string) ([]*MeleeDef, error) {
	return loadDefs(dir, "LoadMelee", func() *MeleeDef { return &MeleeDef{} }, (*MeleeDef).Validate)
}

// LoadBrass reads every brass YAML in dir.
func LoadBrass(dir string) ([]*BrassDef, error) {
	return loadDefs(dir, "LoadBrass", func() *BrassDef { return &BrassDef{} }, (*BrassDef).Validate)
}

// loadDefs parses each *.yaml file of dir into a fresh value from newDef,
// in file name order, and validates it.
func loadDefs[T any](dir, op string, newDef func() *T, validate func(*T) error) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot read directory %q: %w", op, dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var defs []*T
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot read file %q: %w", op, path, err)
		}
		def := newDef()
		if err := yaml.Unmarshal(data, def); err != nil {
			return nil, fmt.Errorf("%s: cannot parse file %q: %w", op, path, err)
		}
		if err := validate(def); err != nil {
			return nil, fmt.Errorf("%s: invalid definition in %q: %w", op, path, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
