package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/inbox-triage/triage/internal/triage"
)

const (
	defaultPort         = 8080
	defaultMaxBodyBytes = 64 << 10
	defaultRateLimit    = 30
	defaultDays         = 7
)

// Environment overrides, applied after the file is read
const (
	EnvIMAPEmail    = "TRIAGE_IMAP_EMAIL"
	EnvIMAPPassword = "TRIAGE_IMAP_PASSWORD"
	EnvLogLevel     = "TRIAGE_LOG_LEVEL"
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Inbox  InboxConfig  `yaml:"inbox,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// ServerConfig holds settings for the local web form
type ServerConfig struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"` // Largest accepted submission
	RateLimit    int   `yaml:"rate_limit"`     // Submissions per minute per client
}

// InboxConfig holds IMAP settings for analyzing a mailbox
type InboxConfig struct {
	Provider     string            `yaml:"provider"` // "gmail", "outlook", "imap"
	Server       string            `yaml:"server"`   // e.g., "imap.gmail.com"
	Port         int               `yaml:"port"`     // e.g., 993
	Email        string            `yaml:"email"`
	Password     string            `yaml:"password"` // App password (not main password)
	Folder       string            `yaml:"folder"`   // Folder to read (default: "INBOX")
	Days         int               `yaml:"days"`     // How far back to look
	RouteFolders map[string]string `yaml:"route_folders,omitempty"`
}

// FolderFor returns the folder configured for route, or "" if none
func (c InboxConfig) FolderFor(route triage.Route) string {
	return c.RouteFolders[string(route)]
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".triage", "config.yaml")
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults (plus environment
// overrides) when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadEnvFile reads KEY=value pairs from a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvIMAPEmail); v != "" {
		c.Inbox.Email = v
	}
	if v := os.Getenv(EnvIMAPPassword); v != "" {
		c.Inbox.Password = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = defaultRateLimit
	}

	// Set inbox defaults
	if c.Inbox.Folder == "" {
		c.Inbox.Folder = "INBOX"
	}
	if c.Inbox.Days == 0 {
		c.Inbox.Days = defaultDays
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: unknown format %q (console or json)", c.Log.Format)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server: max_body_bytes must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server: rate_limit must be positive")
	}
	return nil
}

// ValidateInbox validates inbox configuration (only called when a mailbox is read)
func (c *Config) ValidateInbox() error {
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	if c.Inbox.Days < 0 {
		return fmt.Errorf("inbox: days must be positive")
	}
	for route, folder := range c.Inbox.RouteFolders {
		if !triage.Route(route).Valid() {
			return fmt.Errorf("inbox.route_folders: unknown route %q", route)
		}
		if strings.TrimSpace(folder) == "" {
			return fmt.Errorf("inbox.route_folders: empty folder for route %q", route)
		}
	}
	return nil
}
