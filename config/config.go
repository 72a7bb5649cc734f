package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata" // timezone lookups on minimal images

	"gopkg.in/yaml.v3"
)

// Store backends understood by the application.
const (
	BackendSQL    = "sql"
	BackendBadger = "badger"
	BackendFile   = "file"
	BackendRemote = "remote"
)

const maxStorePageSize = 1000

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Store      StoreConfig      `yaml:"store"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Roster     RosterConfig     `yaml:"roster"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Notifications are disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"` // Ignored by YAML parser
	// Timezone interprets date-only query ranges and formats report times.
	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration. The database
// always backs the operator roster and push subscriptions, and backs machine
// journeys when the store backend is "sql".
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// StoreConfig selects where machine journeys are persisted.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	BadgerDir  string `yaml:"badger_dir"`
	FilePath   string `yaml:"file_path"`
	RemoteURL  string `yaml:"remote_url"`
	HTTPProxy  string `yaml:"http_proxy"`
	PageSize   int    `yaml:"page_size"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// WorkflowConfig tunes the check-in engine.
type WorkflowConfig struct {
	WaitPerMachineMinutes int           `yaml:"wait_per_machine_minutes"`
	EnforceSequence       bool          `yaml:"enforce_sequence"`
	WaitPerMachine        time.Duration `yaml:"-"`
}

// RosterConfig lists the operators seeded into an empty roster.
type RosterConfig struct {
	Defaults []RosterEntry `yaml:"defaults"`
}

// RosterEntry is one seeded operator.
type RosterEntry struct {
	Name string `yaml:"name"`
	EPF  string `yaml:"epf"`
}

// DefaultRoster is the operator list used when the config provides none.
var DefaultRoster = []RosterEntry{
	{Name: "Ashoka", EPF: "2258"},
	{Name: "Shantha", EPF: "5338"},
	{Name: "Jude", EPF: "938"},
	{Name: "Suraj", EPF: "5397"},
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values and validates the backend selection.
func (cfg *Config) ApplyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Server.Timezone, err)
	}
	cfg.Server.Location = loc

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "machine-service.db"
	}

	switch cfg.Store.Backend {
	case "":
		cfg.Store.Backend = BackendSQL
	case BackendSQL, BackendBadger, BackendFile, BackendRemote:
	default:
		return fmt.Errorf("store.backend: unsupported value %q", cfg.Store.Backend)
	}
	if cfg.Store.BadgerDir == "" {
		cfg.Store.BadgerDir = "./data/badger"
	}
	if cfg.Store.FilePath == "" {
		cfg.Store.FilePath = "./data/machineServiceDB.json"
	}
	if cfg.Store.Backend == BackendRemote && cfg.Store.RemoteURL == "" {
		return fmt.Errorf("store.remote_url is required for the remote backend")
	}
	if cfg.Store.PageSize <= 0 {
		cfg.Store.PageSize = 100
	}
	// Servers never return more than 1000 journeys per page.
	if cfg.Store.PageSize > maxStorePageSize {
		log.Printf("store.page_size %d exceeds the server limit; using %d", cfg.Store.PageSize, maxStorePageSize)
		cfg.Store.PageSize = maxStorePageSize
	}
	if cfg.Store.TimeoutSec <= 0 {
		cfg.Store.TimeoutSec = 30
	}

	if cfg.Workflow.WaitPerMachineMinutes <= 0 {
		cfg.Workflow.WaitPerMachineMinutes = 15
	}
	cfg.Workflow.WaitPerMachine = time.Duration(cfg.Workflow.WaitPerMachineMinutes) * time.Minute

	if len(cfg.Roster.Defaults) == 0 {
		cfg.Roster.Defaults = append([]RosterEntry(nil), DefaultRoster...)
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
	return nil
}

// Default returns a configuration with every default applied, for use when
// no config file exists.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.ApplyDefaults()
	return cfg
}
