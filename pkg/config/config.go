package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	xdgAppName = "taskboard"
	configFile = "config.toml"

	// EnvConfig overrides the config file location.
	EnvConfig = "TASKBOARD_CONFIG"
)

// Duration is a time.Duration written as a string ("90s", "1m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Assistant configures the generative-model backend.
type Assistant struct {
	// Backend names the registered provider; only "gemini" ships.
	Backend           string   `toml:"backend"`
	APIKey            string   `toml:"api_key,omitempty"`
	BaseURL           string   `toml:"base_url,omitempty"`
	Model             string   `toml:"model"`
	FastModel         string   `toml:"fast_model"`
	SpeechModel       string   `toml:"speech_model"`
	Voice             string   `toml:"voice"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

type Config struct {
	// Calendar is the Google calendar tasks are pushed to.
	Calendar        string    `toml:"calendar"`
	LogLevel        string    `toml:"log_level"`
	SeedFile        string    `toml:"seed_file,omitempty"`
	ExportDir       string    `toml:"export_dir,omitempty"`
	OverdueInterval Duration  `toml:"overdue_interval"`
	MetricsAddr     string    `toml:"metrics_addr,omitempty"`
	Assistant       Assistant `toml:"assistant"`

	// fileKey is the api_key as read from disk; envKey is set when the
	// environment replaced it.
	fileKey string
	envKey  bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Calendar:        "Tasks",
		LogLevel:        "warn",
		OverdueInterval: Duration{time.Minute},
		Assistant: Assistant{
			Backend:           "gemini",
			Model:             "gemini-2.5-pro",
			FastModel:         "gemini-2.5-flash",
			SpeechModel:       "gemini-2.5-flash-preview-tts",
			Voice:             "Kore",
			Timeout:           Duration{60 * time.Second},
			RequestsPerMinute: 60,
		},
	}
}

// GetXdgHome returns ~/.config/taskboard, where every auxiliary file lives.
func GetXdgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// GetConfigPath returns the config file path, honouring TASKBOARD_CONFIG.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if cfg.Calendar == "" {
		cfg.Calendar = "Tasks"
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv lets GEMINI_API_KEY (or API_KEY) supply the key without
// writing it to disk.
func applyEnv(cfg *Config) {
	cfg.fileKey = cfg.Assistant.APIKey
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := os.Getenv(name); v != "" {
			cfg.Assistant.APIKey = v
			cfg.envKey = true
			return
		}
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.OverdueInterval.Duration <= 0 {
		return fmt.Errorf("overdue_interval must be positive, got %s", c.OverdueInterval)
	}
	if c.Assistant.Timeout.Duration <= 0 {
		return fmt.Errorf("assistant.timeout must be positive, got %s", c.Assistant.Timeout)
	}
	if c.Assistant.RequestsPerMinute <= 0 {
		return fmt.Errorf("assistant.requests_per_minute must be positive, got %d", c.Assistant.RequestsPerMinute)
	}
	return nil
}

// Save writes cfg to the default location.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path. A key taken from the environment is not
// written; the file keeps whatever key it had.
func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	out := *cfg
	if cfg.envKey {
		out.Assistant.APIKey = cfg.fileKey
	}
	if err := toml.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
