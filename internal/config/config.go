package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend modes.
const (
	BackendLocal  = "local"  // embedded storage + in-process realtime hub
	BackendRemote = "remote" // bmsync serve over HTTP + redis realtime
)

// Config holds application configuration.
type Config struct {
	Backend string `yaml:"backend"` // "local" | "remote"

	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`

	SignInTimeout time.Duration `yaml:"signInTimeout"` // how long the TUI waits for the browser sign-in
}

// StorageConfig selects the embedded storage driver.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "json"
	Path   string `yaml:"path"`
}

// ServerConfig is used by both `bmsync serve` and the remote client.
type ServerConfig struct {
	URL             string        `yaml:"url"`    // client side, ex: http://localhost:8080
	Listen          string        `yaml:"listen"` // server side, ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// RedisConfig configures realtime fan-out. An empty Addr disables redis.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	PoolSize       int           `yaml:"poolSize"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	RetryInterval  time.Duration `yaml:"retryInterval"`
	MaxWait        time.Duration `yaml:"maxWait"`
	PingTimeout    time.Duration `yaml:"pingTimeout"`
	WarnThreshold  int           `yaml:"warnThreshold"`
}

// AuthConfig configures sign-in.
type AuthConfig struct {
	Provider string `yaml:"provider"` // "local" | "oauth"

	LocalUserID string `yaml:"localUserId"`
	LocalEmail  string `yaml:"localEmail"`
	LocalToken  string `yaml:"localToken"` // bearer token for a hosted server

	Name         string   `yaml:"name"`   // sign-in label, ex: "google"
	Issuer       string   `yaml:"issuer"` // ex: https://accounts.google.com
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes"`
	RedirectPort int      `yaml:"redirectPort"`
	TokenFile    string   `yaml:"tokenFile"`

	// StaticTokens maps bearer token -> user ID for `serve` in development.
	StaticTokens map[string]string `yaml:"staticTokens"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration rooted at dir
// (normally ~/.config/bmsync).
func DefaultConfig(dir string) Config {
	return Config{
		Backend: BackendLocal,
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dir, "bookmarks.db"),
		},
		Server: ServerConfig{
			URL:             "http://localhost:8080",
			Listen:          ":8080",
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Redis: RedisConfig{
			DialTimeout:    5 * time.Second,
			ReadTimeout:    3 * time.Second,
			WriteTimeout:   3 * time.Second,
			PoolSize:       10,
			ConnectTimeout: 30 * time.Second,
			RetryInterval:  2 * time.Second,
			MaxWait:        10 * time.Second,
			PingTimeout:    5 * time.Second,
			WarnThreshold:  3,
		},
		Auth: AuthConfig{
			Provider:     "local",
			Name:         "oauth",
			LocalUserID:  "local",
			LocalEmail:   localEmail(),
			Scopes:       []string{"openid", "email", "profile"},
			RedirectPort: 8085,
			TokenFile:    filepath.Join(dir, "token.json"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "bmsync.log"),
		},
		SignInTimeout: 2 * time.Minute,
	}
}

// Load reads config from the YAML file, creating it with defaults if it
// doesn't exist, then applies BMSYNC_* environment overrides.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg := defaults
		// Non-fatal: defaults are usable even if the file can't be written.
		_ = Save(path, &cfg)
		applyEnv(&cfg)
		return &cfg, cfg.Validate()
	}

	// Start from defaults so missing keys keep their default values.
	cfg := defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return &cfg, cfg.Validate()
}

// Save writes config to the YAML file.
// Creates the directory if it doesn't exist.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendLocal, BackendRemote)
	}
	switch c.Storage.Driver {
	case "sqlite", "json":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Auth.Provider {
	case "local":
	case "oauth":
		if c.Auth.Issuer == "" || c.Auth.ClientID == "" {
			return errors.New("oauth provider requires auth.issuer and auth.clientId")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}
	if c.SignInTimeout <= 0 {
		return errors.New("signInTimeout must be > 0")
	}
	return nil
}

// DefaultPath returns the default config path: ~/.config/bmsync/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("BMSYNC_CONFIG"); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmsync", "config.yaml"), nil
}

func applyEnv(cfg *Config) {
	cfg.Backend = getenv("BMSYNC_BACKEND", cfg.Backend)

	cfg.Storage.Driver = getenv("BMSYNC_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getenv("BMSYNC_STORAGE_PATH", cfg.Storage.Path)

	cfg.Server.URL = getenv("BMSYNC_SERVER_URL", cfg.Server.URL)
	cfg.Server.Listen = getenv("BMSYNC_LISTEN", cfg.Server.Listen)
	cfg.Server.ShutdownTimeout = mustDuration("BMSYNC_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.RequestTimeout = mustDuration("BMSYNC_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)

	cfg.Redis.Addr = getenv("BMSYNC_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.User = getenv("BMSYNC_REDIS_USERNAME", cfg.Redis.User)
	cfg.Redis.Password = getenv("BMSYNC_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getenvInt("BMSYNC_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ConnectTimeout = mustDuration("BMSYNC_REDIS_CONNECT_TIMEOUT", cfg.Redis.ConnectTimeout)

	cfg.Auth.Provider = getenv("BMSYNC_AUTH_PROVIDER", cfg.Auth.Provider)
	cfg.Auth.LocalToken = getenv("BMSYNC_LOCAL_TOKEN", cfg.Auth.LocalToken)
	cfg.Auth.Name = getenv("BMSYNC_OAUTH_NAME", cfg.Auth.Name)
	cfg.Auth.Issuer = getenv("BMSYNC_OAUTH_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.ClientID = getenv("BMSYNC_OAUTH_CLIENT_ID", cfg.Auth.ClientID)
	cfg.Auth.ClientSecret = getenv("BMSYNC_OAUTH_CLIENT_SECRET", cfg.Auth.ClientSecret)
	if scopes := splitAndTrim(os.Getenv("BMSYNC_OAUTH_SCOPES")); len(scopes) > 0 {
		cfg.Auth.Scopes = scopes
	}

	cfg.Log.Level = getenv("BMSYNC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = mustBool("BMSYNC_PRETTY_LOG", cfg.Log.Pretty)
	cfg.Log.File = getenv("BMSYNC_LOG_FILE", cfg.Log.File)

	cfg.SignInTimeout = mustDuration("BMSYNC_SIGNIN_TIMEOUT", cfg.SignInTimeout)
}

func localEmail() string {
	name := os.Getenv("USER")
	if name == "" {
		name = "me"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return name + "@" + host
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
