// Package main validates weapon content and arena layouts without running a match.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/game/world"
	"github.com/cory-johannsen/armory/internal/scripting"
)

func main() {
	contentDir := flag.String("content", "content", "path to the content root")
	strict := flag.Bool("strict", false, "treat dangling projectile and brass references as errors")
	flag.Parse()

	start := time.Now()
	defs, err := inventory.LoadContent(*contentDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	failed := false
	behaviors := weapon.DefaultBehaviors()
	for _, w := range defs.AllWeapons() {
		if !behaviors.Has(w.WeaponClass) {
			fmt.Fprintf(os.Stderr, "weapon %q: unknown weapon_class %q\n", w.ID, w.WeaponClass)
			failed = true
		}
		if w.AmmoType != "" {
			if _, err := defs.AmmoType(w.AmmoType); err != nil {
				fmt.Fprintf(os.Stderr, "weapon %q: %v\n", w.ID, err)
				failed = true
			}
		}
	}
	for _, d := range defs.Dangling() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
		if *strict {
			failed = true
		}
	}

	arenaDir := filepath.Join(*contentDir, "arenas")
	layouts, err := world.LoadLayoutsFromDir(arenaDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	scripts := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop()), zap.NewNop())
	defer scripts.Close()
	for _, l := range layouts {
		scripted := ""
		dir := filepath.Join(*contentDir, "scripts", "arenas", l.ID)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if err := scripts.LoadArena(l.ID, dir, 0); err != nil {
				fmt.Fprintf(os.Stderr, "arena %q: %v\n", l.ID, err)
				failed = true
			}
			scripted = ", scripted"
		}
		fmt.Printf("arena %s: %d brushes, %d targets, %d spawns%s\n", l.ID, len(l.Brushes), len(l.Targets), len(l.Spawns), scripted)
	}

	if failed {
		os.Exit(1)
	}
	fmt.Printf("content ok: %d weapons, %d arenas in %s\n",
		len(defs.AllWeapons()), len(layouts), time.Since(start).Round(time.Millisecond))
}
