// Package main provides the armory daemon: it runs an arena simulation with
// armed players, publishes weapon snapshots and autosaves weapon state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/armory/internal/config"
	"github.com/cory-johannsen/armory/internal/game/dice"
	"github.com/cory-johannsen/armory/internal/game/inventory"
	"github.com/cory-johannsen/armory/internal/game/weapon"
	"github.com/cory-johannsen/armory/internal/game/world"
	"github.com/cory-johannsen/armory/internal/match"
	"github.com/cory-johannsen/armory/internal/observability"
	"github.com/cory-johannsen/armory/internal/scripting"
	"github.com/cory-johannsen/armory/internal/server"
	"github.com/cory-johannsen/armory/internal/storage/postgres"
)

const matchService = "armory.match"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	arenaID := flag.String("arena", "proving_ground", "ID of the arena layout to run")
	rosterFlag := flag.String("roster", "ranger:start:1,grunt:flank:2", "players as name:spawn[:team], comma separated; the first is local")
	equip := flag.String("equip", "weapon_pistol", "weapon every player spawns holding")
	ammo := flag.Int("ammo", 100, "rounds of each ammo type given at spawn")
	scriptLimit := flag.Int("script-limit", scripting.DefaultInstructionLimit, "Lua opcode limit per arena hook call")
	drill := flag.Duration("drill", 0, "make remote players fire at targets this often; 0 disables")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Simulation.Role)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics, err := observability.NewWeaponMetrics(nil)
	if err != nil {
		logger.Fatal("creating weapon metrics", zap.Error(err))
	}

	logger.Info("starting armory",
		zap.String("role", cfg.Simulation.Role),
		zap.String("game_type", cfg.Simulation.GameType),
		zap.Duration("tick", cfg.Simulation.TickInterval),
	)

	contentStart := time.Now()
	defs, err := inventory.LoadContent(cfg.Weapons.ContentDir)
	if err != nil {
		logger.Fatal("loading weapon content", zap.Error(err))
	}
	for _, d := range defs.Dangling() {
		logger.Warn("dangling content reference", zap.String("ref", d))
	}
	logger.Info("weapon content loaded",
		zap.Int("weapons", len(defs.AllWeapons())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	layout, err := loadArena(filepath.Join(cfg.Weapons.ContentDir, "arenas"), *arenaID)
	if err != nil {
		logger.Fatal("loading arena", zap.Error(err))
	}

	roster, err := match.ParseRoster(*rosterFlag)
	if err != nil {
		logger.Fatal("parsing roster", zap.Error(err))
	}

	var damageHook world.DamageHook
	scriptDir := filepath.Join(cfg.Weapons.ContentDir, "scripts", "arenas", layout.ID)
	if info, err := os.Stat(scriptDir); err == nil && info.IsDir() {
		scripts := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
		defer scripts.Close()
		if err := scripts.LoadArena(layout.ID, scriptDir, *scriptLimit); err != nil {
			logger.Fatal("loading arena scripts", zap.String("dir", scriptDir), zap.Error(err))
		}
		damageHook = scripts.DamageHook(layout.ID)
	}

	m, err := match.New(match.Config{
		Layout:        layout,
		Defs:          defs,
		Policy:        weapon.PolicyFromConfig(cfg),
		Tick:          cfg.Simulation.TickInterval,
		SnapshotEvery: cfg.Simulation.SnapshotInterval,
		AutosaveEvery: autosaveInterval(cfg),
		DamageHook:    damageHook,
	}, logger, metrics)
	if err != nil {
		logger.Fatal("creating match", zap.Error(err))
	}

	loadout := spawnLoadout(defs, *equip, *ammo)
	for i, e := range roster {
		if _, err := m.Spawn(e.Name, e.Spawn, e.Team, i == 0, loadout); err != nil {
			logger.Fatal("spawning player", zap.String("player", e.Name), zap.Error(err))
		}
	}
	if *drill > 0 {
		m.AddDrill(*drill)
		logger.Info("target drill enabled", zap.Duration("every", *drill))
	}

	lifecycle := server.NewLifecycle(logger, server.DefaultStopTimeout)

	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		saves := postgres.NewSaveRepository(pool.DB())

		n, err := m.Resume(ctx, saves)
		if err != nil {
			logger.Fatal("resuming weapon saves", zap.Error(err))
		}
		logger.Info("weapon saves resumed", zap.Int("restored", n))

		lifecycle.Add("saves", &server.FuncService{
			StartFn: func(ctx context.Context) error { return m.Persist(ctx, saves) },
		})
	}

	lifecycle.Add("match", &server.FuncService{StartFn: m.Run})

	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	lifecycle.Add("admin", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.Admin.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Admin.Addr(), err)
			}
			healthSrv.SetServingStatus(matchService, healthpb.HealthCheckResponse_SERVING)
			logger.Info("admin gRPC listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func(context.Context) {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	logger.Info("armory initialized",
		zap.String("arena", layout.ID),
		zap.Int("players", len(roster)),
		zap.Bool("persistence", cfg.Database.Enabled),
		zap.Duration("startup", time.Since(start)),
	)

	runErr := lifecycle.Run(ctx)
	stats := m.Stats()
	logger.Info("armory stopped",
		zap.Uint64("frames", stats.Frames),
		zap.Uint64("snapshots", stats.Snapshots),
		zap.Uint64("events", stats.Events),
		zap.Uint64("saves_sent", stats.SavesSent),
		zap.Uint64("saves_dropped", stats.SavesDrop),
		zap.Int("impacts", stats.Impacts),
	)
	if runErr != nil {
		logger.Fatal("armory failed", zap.Error(runErr))
	}
}

// loadArena returns the layout with the given ID from dir.
func loadArena(dir, id string) (*world.Layout, error) {
	layouts, err := world.LoadLayoutsFromDir(dir)
	if err != nil {
		return nil, err
	}
	for _, l := range layouts {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("arena %q not found in %s", id, dir)
}

// spawnLoadout carries every registered weapon and perAmmo rounds of each
// ammo type those weapons use.
func spawnLoadout(defs *inventory.Registry, equip string, perAmmo int) match.Loadout {
	l := match.Loadout{Ammo: make(map[string]int), Equip: equip}
	for _, w := range defs.AllWeapons() {
		l.Weapons = append(l.Weapons, w.ID)
		if w.AmmoType != "" {
			l.Ammo[w.AmmoType] = perAmmo
		}
	}
	return l
}

// autosaveInterval disables autosave when there is nowhere to write saves.
func autosaveInterval(cfg config.Config) time.Duration {
	if !cfg.Database.Enabled {
		return 0
	}
	return cfg.Simulation.AutosaveInterval
}
