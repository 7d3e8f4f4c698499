package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Secrets (API key) come from the
// environment or the config file at runtime; never committed.
type Config struct {
	// OpenRouterAPIKey is set from env OPENROUTER_API_KEY or config file.
	OpenRouterAPIKey string `yaml:"open_router_api_key"`
	// Model is the OpenRouter model id used for planning and the tool loop.
	Model string `yaml:"model"`
	// ConfigDir is where config.yaml and the database live.
	ConfigDir string `yaml:"-"`
	// DBPath is the path to sage.db.
	DBPath string `yaml:"-"`
	// CycleInterval is how often the scheduled pipeline runs.
	CycleInterval time.Duration `yaml:"-"`
	// CycleIntervalMinutes configures CycleInterval from the file.
	CycleIntervalMinutes int `yaml:"cycle_interval_minutes"`
	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfigDir returns the default config directory (project-local
// .sage if present, else ~/.config/sage).
func DefaultConfigDir() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".sage")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sage")
}

// New builds config from env and optional config dir. Env is the base;
// config.yaml overwrites when present.
func New(configDir string) *Config {
	if configDir == "" {
		if d := os.Getenv("SAGE_CONFIG_DIR"); d != "" {
			configDir = d
		} else {
			configDir = DefaultConfigDir()
		}
	}
	cfg := &Config{
		OpenRouterAPIKey:     os.Getenv("OPENROUTER_API_KEY"),
		Model:                os.Getenv("SAGE_MODEL"),
		ConfigDir:            configDir,
		DBPath:               filepath.Join(configDir, "sage.db"),
		CycleIntervalMinutes: 5,
	}
	if v := os.Getenv("SAGE_CYCLE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CycleIntervalMinutes = n
		}
	}
	if os.Getenv("SAGE_DEBUG") == "1" {
		cfg.Debug = true
	}

	if data, err := os.ReadFile(filepath.Join(configDir, "config.yaml")); err == nil {
		_ = yaml.Unmarshal(data, cfg)
	}
	if cfg.CycleIntervalMinutes <= 0 {
		cfg.CycleIntervalMinutes = 5
	}
	cfg.CycleInterval = time.Duration(cfg.CycleIntervalMinutes) * time.Minute
	return cfg
}
