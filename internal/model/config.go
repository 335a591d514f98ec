package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Remote driver names.
const (
	RemoteDriverNone     = "none"
	RemoteDriverMemory   = "memory"
	RemoteDriverPostgres = "postgres"
)

// DatabaseConfig locates the local SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RemoteConfig selects and configures the remote document store.
type RemoteConfig struct {
	// Driver is one of "none", "memory" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// PostgresDSN is the connection string used when Driver is "postgres".
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// ConnectivityConfig controls the background reachability probe.
type ConnectivityConfig struct {
	// ProbeURL is requested to decide whether the remote is reachable.
	// Empty disables probing; the app then assumes it is online.
	ProbeURL string `mapstructure:"probe_url" yaml:"probe_url"`

	// IntervalSec is how often (in seconds) to probe.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// AuthConfig holds settings for verifying identity-provider session tokens.
type AuthConfig struct {
	// JWTSecret verifies HS256 session tokens. Empty skips signature checks
	// and trusts the token the identity provider handed over.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// KeyringDir is used by the file keyring backend.
	KeyringDir string `mapstructure:"keyring_dir" yaml:"keyring_dir"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Remote       RemoteConfig       `mapstructure:"remote" yaml:"remote"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
	Auth         AuthConfig         `mapstructure:"auth" yaml:"auth"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
}

// DefaultConfigDir returns ~/.config/bingelog.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bingelog")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/bingelog/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := DefaultConfigDir()
	return &AppConfig{
		Database: DatabaseConfig{Path: filepath.Join(dir, "bingelog.db")},
		Remote:   RemoteConfig{Driver: RemoteDriverNone},
		Connectivity: ConnectivityConfig{
			IntervalSec: 30,
		},
		Auth: AuthConfig{KeyringDir: filepath.Join(dir, "credentials")},
		Log:  LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values can be overridden with BINGELOG_* environment variables
// (e.g. BINGELOG_REMOTE_POSTGRES_DSN). If the file does not exist, the
// defaults plus any environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BINGELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("remote.driver", def.Remote.Driver)
	v.SetDefault("remote.postgres_dsn", "")
	v.SetDefault("connectivity.probe_url", "")
	v.SetDefault("connectivity.interval_sec", def.Connectivity.IntervalSec)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.keyring_dir", def.Auth.KeyringDir)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Connectivity.IntervalSec <= 0 {
		cfg.Connectivity.IntervalSec = 30
	}
	switch cfg.Remote.Driver {
	case RemoteDriverNone, RemoteDriverMemory, RemoteDriverPostgres:
	case "":
		cfg.Remote.Driver = RemoteDriverNone
	default:
		return nil, fmt.Errorf("unsupported remote driver %q", cfg.Remote.Driver)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("remote", cfg.Remote)
	v.Set("connectivity", cfg.Connectivity)
	v.Set("auth", cfg.Auth)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
