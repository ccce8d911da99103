package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/marcin-skalski/review-bridge/internal/board"
)

const (
	DefaultPath    = "review-bridge.yaml"
	DefaultEnvFile = ".env"
	DefaultPort    = 7431
)

type Config struct {
	// Source is the file the config was read from, empty when none was found.
	Source string `yaml:"-"`

	Trello         TrelloConfig      `yaml:"trello"`
	Lists          map[string]string `yaml:"lists"`
	Server         ServerConfig      `yaml:"server"`
	ResyncSchedule string            `yaml:"resync_schedule"`
	LogFile        string            `yaml:"log_file"`
	Log            LogConfig         `yaml:"log"`

	ListIDs map[board.Role]string `yaml:"-"`
}

type TrelloConfig struct {
	Key        string        `yaml:"key"`
	Token      string        `yaml:"token"`
	Board      string        `yaml:"board"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"-"`
	RawTimeout string        `yaml:"timeout"`
	Retries    *int          `yaml:"retries,omitempty"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	Secret      string `yaml:"secret"`
	ErrorStatus int    `yaml:"error_status"`
	UnknownDir  string `yaml:"unknown_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Overrides carries command line values. Zero values leave the loaded
// config untouched.
type Overrides struct {
	EnvFile  string
	Key      string
	Token    string
	Board    string
	Secret   string
	Port     int
	LogLevel string
}

// Load reads the YAML file at path, then applies the .env file, the process
// environment and finally o. An empty path means DefaultPath, which may be
// absent.
func Load(path string, o Overrides) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.Source = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	envFile := o.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	if err := cfg.applyEnv(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}); err != nil {
		return nil, err
	}
	cfg.apply(o)

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("TRELLO_KEY"); v != "" {
		c.Trello.Key = v
	}
	if v := getenv("TRELLO_TOKEN"); v != "" {
		c.Trello.Token = v
	}
	if v := getenv("TRELLO_BOARD"); v != "" {
		c.Trello.Board = v
	}
	if v := getenv("REVIEW_SECRET"); v != "" {
		c.Server.Secret = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) apply(o Overrides) {
	if o.Key != "" {
		c.Trello.Key = o.Key
	}
	if o.Token != "" {
		c.Trello.Token = o.Token
	}
	if o.Board != "" {
		c.Trello.Board = o.Board
	}
	if o.Secret != "" {
		c.Server.Secret = o.Secret
	}
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

func (c *Config) setDefaults() error {
	if c.Trello.RawTimeout == "" {
		c.Trello.RawTimeout = "10s"
	}
	d, err := time.ParseDuration(c.Trello.RawTimeout)
	if err != nil {
		return fmt.Errorf("parse trello.timeout %q: %w", c.Trello.RawTimeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("trello.timeout must be positive, got %s", c.Trello.RawTimeout)
	}
	c.Trello.Timeout = d

	if c.Trello.Retries == nil {
		retries := 2
		c.Trello.Retries = &retries
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ErrorStatus == 0 {
		c.Server.ErrorStatus = 500
	}
	if c.Server.UnknownDir == "" {
		c.Server.UnknownDir = "unknown"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	ids, err := board.ParseListIDs(c.Lists)
	if err != nil {
		return fmt.Errorf("lists: %w", err)
	}
	c.ListIDs = ids

	return nil
}

func (c *Config) validate() error {
	if c.Trello.Key == "" {
		return fmt.Errorf("trello.key required (TRELLO_KEY or --key)")
	}
	if c.Trello.Token == "" {
		return fmt.Errorf("trello.token required (TRELLO_TOKEN or --token)")
	}
	if c.Trello.Board == "" {
		return fmt.Errorf("trello.board required (TRELLO_BOARD or --board)")
	}
	if *c.Trello.Retries < 0 {
		return fmt.Errorf("trello.retries must not be negative, got %d", *c.Trello.Retries)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ErrorStatus < 400 || c.Server.ErrorStatus > 599 {
		return fmt.Errorf("server.error_status must be a 4xx or 5xx code, got %d", c.Server.ErrorStatus)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	if c.ResyncSchedule != "" {
		if _, err := cron.ParseStandard(c.ResyncSchedule); err != nil {
			return fmt.Errorf("resync_schedule %q: %w", c.ResyncSchedule, err)
		}
	}
	return nil
}

// RequireSecret reports an error when no webhook secret is configured. An
// empty secret would accept every request.
func (c *Config) RequireSecret() error {
	if c.Server.Secret == "" {
		return fmt.Errorf("server.secret required (REVIEW_SECRET or --secret)")
	}
	return nil
}
