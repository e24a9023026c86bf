package inventory

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// AmmoType is the numeric ammunition kind a weapon draws from.
// AmmoNone (0) means the weapon needs no ammunition.
type AmmoType int

const (
	// AmmoNone marks weapons that never consume ammunition.
	AmmoNone AmmoType = 0
	// MaxAmmoTypes bounds the numeric range of ammo types.
	MaxAmmoTypes = 16
	// Unlimited is reported by HasAmmo when no ammunition is required.
	Unlimited = math.MaxInt32
)

// ErrUnknownAmmoType is returned when a weapon names an ammo type missing from the ammo table.
var ErrUnknownAmmoType = errors.New("unknown ammo type")

// AmmoTypeDef is one row of the ammo table.
type AmmoTypeDef struct {
	Name   string   `yaml:"name"`
	ID     AmmoType `yaml:"id"`
	Pickup string   `yaml:"pickup"`
}

// AmmoTable maps ammo type names to numeric ids and back.
//
// Invariant: every id is in [0, MaxAmmoTypes) and appears at most once.
type AmmoTable struct {
	byName map[string]AmmoTypeDef
	byID   map[AmmoType]AmmoTypeDef
}

// NewAmmoTable builds a table from defs.
//
// Postcondition: returns an error on duplicate names, duplicate ids or ids out of range.
func NewAmmoTable(defs []AmmoTypeDef) (*AmmoTable, error) {
	t := &AmmoTable{
		byName: make(map[string]AmmoTypeDef, len(defs)),
		byID:   make(map[AmmoType]AmmoTypeDef, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New("inventory: NewAmmoTable: ammo type name must not be empty")
		}
		if d.ID < 0 || d.ID >= MaxAmmoTypes {
			return nil, fmt.Errorf("inventory: NewAmmoTable: ammo type %q value %d out of range, maximum ammo types is %d", d.Name, d.ID, MaxAmmoTypes)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("inventory: NewAmmoTable: ammo type %q defined twice", d.Name)
		}
		if other, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("inventory: NewAmmoTable: ammo types %q and %q share id %d", other.Name, d.Name, d.ID)
		}
		t.byName[d.Name] = d
		t.byID[d.ID] = d
	}
	return t, nil
}

// Resolve returns the numeric id for name. The empty name resolves to AmmoNone.
//
// Postcondition: returns an error wrapping ErrUnknownAmmoType when name is not in the table.
func (t *AmmoTable) Resolve(name string) (AmmoType, error) {
	if name == "" {
		return AmmoNone, nil
	}
	d, ok := t.byName[name]
	if !ok {
		return AmmoNone, fmt.Errorf("%w %q", ErrUnknownAmmoType, name)
	}
	return d.ID, nil
}

// Name returns the table name for id, or "" when id is not defined.
func (t *AmmoTable) Name(id AmmoType) string {
	return t.byID[id].Name
}

// PickupName returns the display name for id, or "" when id is not defined.
func (t *AmmoTable) PickupName(id AmmoType) string {
	return t.byID[id].Pickup
}

type ammoFile struct {
	AmmoTypes []AmmoTypeDef `yaml:"ammo_types"`
}

// LoadAmmoTable reads the ammo table YAML at path.
//
// Precondition: path is a readable file.
// Postcondition: returns a valid table or an error naming path.
func LoadAmmoTable(path string) (*AmmoTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadAmmoTable: cannot read file %q: %w", path, err)
	}
	var f ammoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadAmmoTable: cannot parse file %q: %w", path, err)
	}
	t, err := NewAmmoTable(f.AmmoTypes)
	if err != nil {
		return nil, fmt.Errorf("LoadAmmoTable: %q: %w", path, err)
	}
	return t, nil
}
