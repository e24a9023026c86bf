package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/armory/internal/game/geom"
)

// yamlLayoutFile is the top-level YAML structure for arena files.
type yamlLayoutFile struct {
	Arena yamlLayout `yaml:"arena"`
}

// yamlLayout is the YAML representation of a layout.
type yamlLayout struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Extent  yamlBox      `yaml:"extent"`
	Brushes []yamlBrush  `yaml:"brushes"`
	Targets []yamlTarget `yaml:"targets"`
	Spawns  []yamlSpawn  `yaml:"spawns"`
}

type yamlBox struct {
	Min mgl64.Vec3 `yaml:"min"`
	Max mgl64.Vec3 `yaml:"max"`
}

type yamlBrush struct {
	ID       string  `yaml:"id"`
	Box      yamlBox `yaml:"box"`
	Material string  `yaml:"material"`
}

type yamlTarget struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Box      yamlBox `yaml:"box"`
	Health   int     `yaml:"health"`
	Bleeds   bool    `yaml:"bleeds"`
	Team     int     `yaml:"team"`
	Material string  `yaml:"material"`
}

type yamlSpawn struct {
	ID     string     `yaml:"id"`
	Origin mgl64.Vec3 `yaml:"origin"`
	Angles mgl64.Vec3 `yaml:"angles"`
}

func (b yamlBox) bounds() geom.Bounds {
	return geom.NewBounds(b.Min, b.Max)
}

// LoadLayoutFromFile reads and validates a single arena YAML file.
//
// Precondition: path must point to a valid YAML arena file.
// Postcondition: Returns a validated Layout or a non-nil error.
func LoadLayoutFromFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arena file %s: %w", path, err)
	}
	return LoadLayoutFromBytes(data)
}

// LoadLayoutFromBytes parses and validates a layout from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the arena schema.
// Postcondition: Returns a validated Layout or a non-nil error.
func LoadLayoutFromBytes(data []byte) (*Layout, error) {
	var file yamlLayoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing arena YAML: %w", err)
	}

	layout := convertYAMLLayout(file.Arena)
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("validating arena: %w", err)
	}
	return layout, nil
}

// LoadLayoutsFromDir loads all YAML files in a directory as layouts.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated layouts or the first error encountered.
func LoadLayoutsFromDir(dir string) ([]*Layout, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading arena directory %s: %w", dir, err)
	}

	var layouts []*Layout
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		layout, err := LoadLayoutFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading arena from %s: %w", name, err)
		}
		layouts = append(layouts, layout)
	}

	if len(layouts) == 0 {
		return nil, fmt.Errorf("no arena files found in %s", dir)
	}
	return layouts, nil
}

// convertYAMLLayout converts the parsed YAML structures into domain types.
func convertYAMLLayout(yl yamlLayout) *Layout {
	layout := &Layout{
		ID:     yl.ID,
		Name:   strings.TrimSpace(yl.Name),
		Extent: yl.Extent.bounds(),
	}
	for _, yb := range yl.Brushes {
		layout.Brushes = append(layout.Brushes, Brush{
			ID:       yb.ID,
			Bounds:   yb.Box.bounds(),
			Material: yb.Material,
		})
	}
	for _, yt := range yl.Targets {
		name := yt.Name
		if name == "" {
			name = yt.ID
		}
		layout.Targets = append(layout.Targets, TargetSpec{
			ID:       yt.ID,
			Name:     name,
			Bounds:   yt.Box.bounds(),
			Health:   yt.Health,
			Bleeds:   yt.Bleeds,
			Team:     yt.Team,
			Material: yt.Material,
		})
	}
	for _, ys := range yl.Spawns {
		layout.Spawns = append(layout.Spawns, SpawnPoint{
			ID:     ys.ID,
			Origin: ys.Origin,
			Angles: ys.Angles,
		})
	}
	return layout
}
