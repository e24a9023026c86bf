package inventory

import (
	"fmt"
	"sort"
)

// Registry holds all loaded weapon-related definitions indexed by ID.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	ammo        *AmmoTable
	weapons     map[string]*WeaponDef
	projectiles map[string]*ProjectileDef
	melee       map[string]*MeleeDef
	brass       map[string]*BrassDef
}

// NewRegistry returns an empty Registry that resolves ammo names through ammo.
//
// Precondition: ammo must not be nil.
// Postcondition: all internal maps are initialised.
func NewRegistry(ammo *AmmoTable) *Registry {
	if ammo == nil {
		panic("inventory: NewRegistry: ammo table must not be nil")
	}
	return &Registry{
		ammo:        ammo,
		weapons:     make(map[string]*WeaponDef),
		projectiles: make(map[string]*ProjectileDef),
		melee:       make(map[string]*MeleeDef),
		brass:       make(map[string]*BrassDef),
	}
}

// RegisterWeapon adds w to the registry.
//
// Precondition:  w must not be nil.
// Postcondition: Weapon(w.ID) returns w; returns an error if w.ID is already
// registered or w.AmmoType is not in the ammo table.
func (r *Registry) RegisterWeapon(w *WeaponDef) error {
	if _, exists := r.weapons[w.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon ID %q already registered", w.ID)
	}
	if _, err := r.ammo.Resolve(w.AmmoType); err != nil {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon %q: %w", w.ID, err)
	}
	r.weapons[w.ID] = w
	return nil
}

// RegisterProjectile adds p to the registry.
//
// Postcondition: Projectile(p.ID) returns p; returns error if p.ID already registered.
func (r *Registry) RegisterProjectile(p *ProjectileDef) error {
	if _, exists := r.projectiles[p.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterProjectile: projectile ID %q already registered", p.ID)
	}
	r.projectiles[p.ID] = p
	return nil
}

// RegisterMelee adds m to the registry.
//
// Postcondition: Melee(m.ID) returns m; returns error if m.ID already registered.
func (r *Registry) RegisterMelee(m *MeleeDef) error {
	if _, exists := r.melee[m.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterMelee: melee ID %q already registered", m.ID)
	}
	r.melee[m.ID] = m
	return nil
}

// RegisterBrass adds b to the registry.
//
// Postcondition: Brass(b.ID) returns b; returns error if b.ID already registered.
func (r *Registry) RegisterBrass(b *BrassDef) error {
	if _, exists := r.brass[b.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterBrass: brass ID %q already registered", b.ID)
	}
	r.brass[b.ID] = b
	return nil
}

// Weapon returns the WeaponDef for id and whether it was found.
func (r *Registry) Weapon(id string) (*WeaponDef, bool) {
	w, ok := r.weapons[id]
	return w, ok
}

// Projectile returns the ProjectileDef for id and whether it was found.
func (r *Registry) Projectile(id string) (*ProjectileDef, bool) {
	p, ok := r.projectiles[id]
	return p, ok
}

// Melee returns the MeleeDef for id and whether it was found.
func (r *Registry) Melee(id string) (*MeleeDef, bool) {
	m, ok := r.melee[id]
	return m, ok
}

// Brass returns the BrassDef for id and whether it was found.
func (r *Registry) Brass(id string) (*BrassDef, bool) {
	b, ok := r.brass[id]
	return b, ok
}

// AmmoType resolves an ammo type name through the registry's ammo table.
func (r *Registry) AmmoType(name string) (AmmoType, error) {
	return r.ammo.Resolve(name)
}

// Ammo returns the registry's ammo table.
func (r *Registry) Ammo() *AmmoTable {
	return r.ammo
}

// AllWeapons returns all registered WeaponDefs sorted by ID.
//
// Postcondition: len(result) == number of registered weapons.
func (r *Registry) AllWeapons() []*WeaponDef {
	out := make([]*WeaponDef, 0, len(r.weapons))
	for _, w := range r.weapons {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dangling lists references from weapons to projectile, melee or brass
// definitions that are not registered. The weapon core tolerates missing
// projectile and brass definitions, so callers decide which entries are fatal.
func (r *Registry) Dangling() []string {
	var out []string
	for _, w := range r.AllWeapons() {
		if w.Projectile != "" {
			if _, ok := r.projectiles[w.Projectile]; !ok {
				out = append(out, fmt.Sprintf("weapon %q: unknown projectile %q", w.ID, w.Projectile))
			}
		}
		if w.Melee != "" {
			if _, ok := r.melee[w.Melee]; !ok {
				out = append(out, fmt.Sprintf("weapon %q: unknown melee %q", w.ID, w.Melee))
			}
		}
		if w.EjectBrass != "" {
			if _, ok := r.brass[w.EjectBrass]; !ok {
				out = append(out, fmt.Sprintf("weapon %q: unknown brass %q", w.ID, w.EjectBrass))
			}
		}
	}
	return out
}
