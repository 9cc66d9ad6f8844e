package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Environment overrides, applied after the file is parsed.
const (
	EnvAPIURL  = "POLARIFY_API_URL"
	EnvDataDir = "POLARIFY_DATA_DIR"
	EnvPort    = "POLARIFY_PORT"
)

type Config struct {
	API       API        `yaml:"api"`
	Analysis  Analysis   `yaml:"analysis"`
	Sources   Sources    `yaml:"sources"`
	Schedules []Schedule `yaml:"schedules"`
	Output    Output     `yaml:"output"`
	Server    Server     `yaml:"server"`
	Logging   Logging    `yaml:"logging"`
}

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Analysis struct {
	DateFrom string `yaml:"date_from"`
	DateTo   string `yaml:"date_to"`
	PageSize int    `yaml:"page_size"`
}

type Sources struct {
	MaxItems    int           `yaml:"max_items"`
	PageTimeout time.Duration `yaml:"page_timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// Schedule is a recurring import of a feed or page into a project.
type Schedule struct {
	Name      string `yaml:"name"`
	Cron      string `yaml:"cron"`
	ProjectID string `yaml:"project_id"`
	Feed      string `yaml:"feed"`
	URL       string `yaml:"url"`
	// Days is the width of the analysis window ending on the run date.
	Days int `yaml:"days"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for polarify.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "polarify")
}

// DataDir returns the XDG data directory for polarify.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "polarify")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/polarify/config.yaml > ./config.yaml.
// It returns "" without error when no file exists and none was requested.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// defaults. A .env file in the working directory is loaded first, and
// environment overrides are applied last.
func Load(path string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL: "http://127.0.0.1:54321",
			Timeout: 30 * time.Second,
		},
		Analysis: Analysis{PageSize: 10},
		Sources: Sources{
			MaxItems:    50,
			PageTimeout: 15 * time.Second,
			UserAgent:   "Polarify/1.0 (opinion importer)",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Schedules {
		if cfg.Schedules[i].Days <= 0 {
			cfg.Schedules[i].Days = 1
		}
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Output.DataDir = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	for _, d := range []struct{ name, value string }{
		{"analysis.date_from", c.Analysis.DateFrom},
		{"analysis.date_to", c.Analysis.DateTo},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD, got %q", d.name, d.value)
		}
	}
	for i, s := range c.Schedules {
		if s.Cron == "" || s.ProjectID == "" {
			return fmt.Errorf("schedules[%d]: cron and project_id are required", i)
		}
		if (s.Feed == "") == (s.URL == "") {
			return fmt.Errorf("schedules[%d]: set exactly one of feed or url", i)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DefaultWindow returns the configured analysis window, falling back to the
// calendar year containing now.
func (c *Config) DefaultWindow(now time.Time) (from, to string) {
	from, to = c.Analysis.DateFrom, c.Analysis.DateTo
	if from == "" {
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	}
	if to == "" {
		to = time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	}
	return from, to
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
