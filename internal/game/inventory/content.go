package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Content directory layout below a content root.
const (
	AmmoTableFile  = "ammo_types.yaml"
	WeaponsDir     = "weapons"
	ProjectilesDir = "projectiles"
	MeleeDir       = "melee"
	BrassDir       = "brass"
)

// LoadContent builds a Registry from the content tree rooted at root.
// The ammo table and weapons directory are required; projectile, melee and
// brass directories are optional.
//
// Precondition: root is a readable directory.
// Postcondition: returns a fully populated Registry or the first error.
func LoadContent(root string) (*Registry, error) {
	ammo, err := LoadAmmoTable(filepath.Join(root, AmmoTableFile))
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(ammo)

	weapons, err := LoadWeapons(filepath.Join(root, WeaponsDir))
	if err != nil {
		return nil, err
	}
	for _, w := range weapons {
		if err := reg.RegisterWeapon(w); err != nil {
			return nil, err
		}
	}

	projectiles, err := optional(LoadProjectiles(filepath.Join(root, ProjectilesDir)))
	if err != nil {
		return nil, err
	}
	for _, p := range projectiles {
		if err := reg.RegisterProjectile(p); err != nil {
			return nil, err
		}
	}

	melee, err := optional(LoadMelee(filepath.Join(root, MeleeDir)))
	if err != nil {
		return nil, err
	}
	for _, m := range melee {
		if err := reg.RegisterMelee(m); err != nil {
			return nil, err
		}
	}

	brass, err := optional(LoadBrass(filepath.Join(root, BrassDir)))
	if err != nil {
		return nil, err
	}
	for _, b := range brass {
		if err := reg.RegisterBrass(b); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// optional turns a missing directory into an empty result.
func optional[T any](defs []*T, err error) ([]*T, error) {
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadContent: %w", err)
	}
	return defs, nil
}

// ContentExists reports whether root looks like a content tree.
func ContentExists(root string) bool {
	_, err := os.Stat(filepath.Join(root, AmmoTableFile))
	return err == nil
}
