// Package world provides the reference physics and spawning collaborator for
// weapons: a static arena of solid brushes and shootable targets, plus the
// projectiles and brass that weapons put into it.
package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cory-johannsen/armory/internal/game/geom"
)

// Brush is a solid, static box of level geometry.
type Brush struct {
	// ID uniquely identifies this brush within the layout.
	ID string
	// Bounds is the world space extent of the brush.
	Bounds geom.Bounds
	// Material names the surface, used for impact sounds and decals.
	Material string
}

// TargetSpec describes a shootable entity placed in the arena at load time.
type TargetSpec struct {
	// ID uniquely identifies this target within the layout.
	ID string
	// Name is the display name used in logs.
	Name string
	// Bounds is the world space extent of the target.
	Bounds geom.Bounds
	// Health is the damage the target absorbs before it breaks. 0 means indestructible.
	Health int
	// Bleeds selects flesh impacts instead of material impacts.
	Bleeds bool
	// Team is the team the target belongs to, 0 for none.
	Team int
	// Material names the surface when the target does not bleed.
	Material string
}

// SpawnPoint is a location actors enter the arena from.
type SpawnPoint struct {
	ID     string
	Origin mgl64.Vec3
	// Angles are pitch, yaw and roll in degrees.
	Angles mgl64.Vec3
}

// Layout is the static content of an arena.
type Layout struct {
	// ID uniquely identifies this layout.
	ID string
	// Name is the display name of the layout.
	Name string
	// Extent bounds everything in the arena. Projectiles leaving it are removed.
	Extent  geom.Bounds
	Brushes []Brush
	Targets []TargetSpec
	Spawns  []SpawnPoint
}

// Spawn returns the spawn point with the given ID.
//
// Postcondition: Returns (spawn, true) if found, or (SpawnPoint{}, false) otherwise.
func (l *Layout) Spawn(id string) (SpawnPoint, bool) {
	for _, s := range l.Spawns {
		if s.ID == id {
			return s, true
		}
	}
	return SpawnPoint{}, false
}

// Validate checks layout invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (l *Layout) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("layout ID must not be empty")
	}
	if l.Name == "" {
		return fmt.Errorf("layout %q: name must not be empty", l.ID)
	}
	if l.Extent.IsEmpty() || l.Extent.Size() == (mgl64.Vec3{}) {
		return fmt.Errorf("layout %q: extent must not be empty", l.ID)
	}
	if len(l.Spawns) == 0 {
		return fmt.Errorf("layout %q: must contain at least one spawn point", l.ID)
	}
	ids := make(map[string]bool)
	for _, b := range l.Brushes {
		if b.ID == "" {
			return fmt.Errorf("layout %q: brush ID must not be empty", l.ID)
		}
		if ids[b.ID] {
			return fmt.Errorf("layout %q: duplicate ID %q", l.ID, b.ID)
		}
		ids[b.ID] = true
		if b.Bounds.IsEmpty() {
			return fmt.Errorf("layout %q: brush %q: bounds are inverted", l.ID, b.ID)
		}
	}
	for _, t := range l.Targets {
		if t.ID == "" {
			return fmt.Errorf("layout %q: target ID must not be empty", l.ID)
		}
		if ids[t.ID] {
			return fmt.Errorf("layout %q: duplicate ID %q", l.ID, t.ID)
		}
		ids[t.ID] = true
		if t.Bounds.IsEmpty() {
			return fmt.Errorf("layout %q: target %q: bounds are inverted", l.ID, t.ID)
		}
		if t.Health < 0 {
			return fmt.Errorf("layout %q: target %q: health must be >= 0", l.ID, t.ID)
		}
	}
	for _, s := range l.Spawns {
		if s.ID == "" {
			return fmt.Errorf("layout %q: spawn ID must not be empty", l.ID)
		}
		if ids[s.ID] {
			return fmt.Errorf("layout %q: duplicate ID %q", l.ID, s.ID)
		}
		ids[s.ID] = true
		if !l.Extent.Contains(s.Origin) {
			return fmt.Errorf("layout %q: spawn %q lies outside the extent", l.ID, s.ID)
		}
	}
	return nil
}
