// Package config provides Viper-based configuration loading for the armory daemon.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Simulation roles.
const (
	RoleServer = "server"
	RoleClient = "client"
)

// Game types understood by the melee stealing rule.
const (
	GameTypeSinglePlayer = "sp"
	GameTypeDeathmatch   = "dm"
	GameTypeTeamDM       = "tdm"
)

// SimulationConfig holds the authoritative simulation settings.
type SimulationConfig struct {
	// Role is "server" for the authoritative simulation or "client" for a predicting peer.
	Role string `mapstructure:"role"`
	// TickInterval is the fixed simulation step.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// SnapshotInterval is how often weapon snapshots are encoded for peers.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	// AutosaveInterval is how often weapon state is written to save slots. Zero disables autosave.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	Multiplayer      bool          `mapstructure:"multiplayer"`
	// GameType is one of "sp", "dm", "tdm".
	GameType   string `mapstructure:"game_type"`
	TeamDamage bool   `mapstructure:"team_damage"`
	// NoWeapons mirrors a world flag that makes melee ignore actors.
	NoWeapons bool `mapstructure:"no_weapons"`
}

// IsServer reports whether the simulation runs with authority.
func (s SimulationConfig) IsServer() bool {
	return s.Role == RoleServer
}

// WeaponsConfig holds weapon content and policy settings.
type WeaponsConfig struct {
	// ContentDir is the root directory holding weapon, projectile, melee and ammo YAML.
	ContentDir string `mapstructure:"content_dir"`
	// InstantReload turns reload requests into an immediate full clip refill.
	InstantReload bool `mapstructure:"instant_reload"`
	// StrikeFxInterval is the minimum gap between two melee strike decals.
	StrikeFxInterval time.Duration `mapstructure:"strike_fx_interval"`
	// ShowBrass enables brass ejection.
	ShowBrass bool `mapstructure:"show_brass"`
}

// NetworkConfig holds snapshot encoding settings.
type NetworkConfig struct {
	// ClipBits is the fixed width of the clip field in a weapon snapshot.
	ClipBits int `mapstructure:"clip_bits"`
	// ReloadEventWindow bounds how old a reload event may be and still be applied.
	ReloadEventWindow time.Duration `mapstructure:"reload_event_window"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on save-slot persistence.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AdminConfig holds the gRPC health endpoint settings.
type AdminConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Weapons    WeaponsConfig    `mapstructure:"weapons"`
	Network    NetworkConfig    `mapstructure:"network"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateSimulation(c.Simulation),
		validateWeapons(c.Weapons),
		validateNetwork(c.Network),
		validateDatabase(c.Database),
		validateAdmin(c.Admin),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Role != RoleServer && s.Role != RoleClient {
		errs = append(errs, fmt.Sprintf("simulation.role must be one of [server, client], got %q", s.Role))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, "simulation.tick_interval must be positive")
	}
	if s.SnapshotInterval < 0 {
		errs = append(errs, "simulation.snapshot_interval must not be negative")
	}
	if s.AutosaveInterval < 0 {
		errs = append(errs, "simulation.autosave_interval must not be negative")
	}
	validTypes := map[string]bool{GameTypeSinglePlayer: true, GameTypeDeathmatch: true, GameTypeTeamDM: true}
	if !validTypes[s.GameType] {
		errs = append(errs, fmt.Sprintf("simulation.game_type must be one of [sp, dm, tdm], got %q", s.GameType))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWeapons(w WeaponsConfig) error {
	var errs []string
	if w.ContentDir == "" {
		errs = append(errs, "weapons.content_dir must not be empty")
	}
	if w.StrikeFxInterval < 0 {
		errs = append(errs, "weapons.strike_fx_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNetwork(n NetworkConfig) error {
	var errs []string
	if n.ClipBits < 1 || n.ClipBits > 31 {
		errs = append(errs, fmt.Sprintf("network.clip_bits must be 1-31, got %d", n.ClipBits))
	}
	if n.ReloadEventWindow < 0 {
		errs = append(errs, "network.reload_event_window must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAdmin(a AdminConfig) error {
	if a.Host == "" {
		return errors.New("admin.host must not be empty")
	}
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("admin.port must be 1-65535, got %d", a.Port)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// ARMORY_SIMULATION_ROLE overrides simulation.role, and so on.
	v.SetEnvPrefix("ARMORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance carrying every default value.
//
// Postcondition: LoadFromViper(NewViper()) yields a valid Config.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.role", RoleServer)
	v.SetDefault("simulation.tick_interval", "16ms")
	v.SetDefault("simulation.snapshot_interval", "50ms")
	v.SetDefault("simulation.autosave_interval", "30s")
	v.SetDefault("simulation.multiplayer", false)
	v.SetDefault("simulation.game_type", GameTypeSinglePlayer)
	v.SetDefault("simulation.team_damage", false)
	v.SetDefault("simulation.no_weapons", false)

	v.SetDefault("weapons.content_dir", "content")
	v.SetDefault("weapons.instant_reload", false)
	v.SetDefault("weapons.strike_fx_interval", "200ms")
	v.SetDefault("weapons.show_brass", true)

	v.SetDefault("network.clip_bits", 7)
	v.SetDefault("network.reload_event_window", "1s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "armory")
	v.SetDefault("database.password", "armory")
	v.SetDefault("database.name", "armory")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 50061)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
