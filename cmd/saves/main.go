// Package main provides a CLI tool for inspecting and clearing weapon save slots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/armory/internal/config"
	"github.com/cory-johannsen/armory/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	owner := flag.String("owner", "", "player whose save slots to act on (required)")
	action := flag.String("action", "list", "action: list or delete")
	slot := flag.Int("slot", 0, "save slot for delete")
	flag.Parse()

	if *owner == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewSaveRepository(pool.DB())

	switch *action {
	case "list":
		saves, err := repo.List(ctx, *owner)
		if err != nil {
			log.Fatalf("listing saves for %q: %v", *owner, err)
		}
		for _, s := range saves {
			fmt.Fprintf(os.Stdout, "slot %d: %s %d bytes game_time=%s saved_at=%s id=%s\n",
				s.Slot, s.WeaponID, len(s.Data), s.GameTime, s.SavedAt.Format(time.RFC3339), s.ID)
		}
		fmt.Fprintf(os.Stdout, "%d saves for %s [%s]\n", len(saves), *owner, time.Since(start))
	case "delete":
		if err := repo.Delete(ctx, *owner, *slot); err != nil {
			log.Fatalf("deleting slot %d for %q: %v", *slot, *owner, err)
		}
		fmt.Fprintf(os.Stdout, "deleted slot %d for %s [%s]\n", *slot, *owner, time.Since(start))
	default:
		log.Fatalf("invalid action %q: must be 'list' or 'delete'", *action)
	}
}
