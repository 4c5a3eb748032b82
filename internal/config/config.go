package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "GRIMOIRE_CONFIG"
	EnvAddr       = "GRIMOIRE_ADDR"
	EnvHTTPAddr   = "GRIMOIRE_HTTP_ADDR"
	EnvDataDir    = "GRIMOIRE_DATA_DIR"

	DefaultAddr = "127.0.0.1:60300"

	// DefaultMaxPayloadBytes matches the frame limit of the wire protocol.
	DefaultMaxPayloadBytes uint32 = 8 << 20
	minPayloadBytes        uint32 = 4 << 10
)

// Config represents the application configuration
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	HTTPAddr        string   `toml:"http_addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	MaxPayloadBytes uint32   `toml:"max_payload_bytes"`
}

type StoreConfig struct {
	DataDir        string   `toml:"data_dir"`
	RetryAttempts  int      `toml:"retry_attempts"`
	RetryBaseDelay Duration `toml:"retry_base_delay"`
	RetryMaxDelay  Duration `toml:"retry_max_delay"`
}

type ClientConfig struct {
	Addr            string   `toml:"addr"`
	Timeout         Duration `toml:"timeout"`
	MaxPayloadBytes uint32   `toml:"max_payload_bytes"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as "30s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// GetXDGDataHome returns XDG_DATA_HOME or default path
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetDataDir returns the default root holding one directory per user
func GetDataDir() string {
	return filepath.Join(GetXDGDataHome(), "grimoire", "collections")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(GetXDGConfigHome(), "grimoire", "config.toml")
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			MaxPayloadBytes: DefaultMaxPayloadBytes,
		},
		Store: StoreConfig{
			DataDir:        GetDataDir(),
			RetryAttempts:  3,
			RetryBaseDelay: Duration{25 * time.Millisecond},
			RetryMaxDelay:  Duration{250 * time.Millisecond},
		},
		Client: ClientConfig{
			Addr:            DefaultAddr,
			Timeout:         Duration{10 * time.Second},
			MaxPayloadBytes: DefaultMaxPayloadBytes,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads the config file, creating it with defaults when missing.
// A .env file in the working directory and GRIMOIRE_* variables override it;
// .env is read first so it may also name the config file.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return LoadOrCreateConfig(GetConfigFilePath())
}

// LoadOrCreateConfig loads path, writing the defaults there first when the
// file does not exist.
func LoadOrCreateConfig(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err := createDefaultConfig(configPath)
		if err != nil {
			return nil, err
		}
		return finish(cfg)
	}

	cfg, err := decodeFile(configPath)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadConfigFrom loads an explicit config file without creating it
func LoadConfigFrom(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func decodeFile(path string) (*Config, error) {
	config := Default()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
	}
	return &config, nil
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads .env from the working directory; a missing file is fine.
// Variables already set in the environment are not overwritten.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading .env: %w", err)
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Server.Addr = v
		cfg.Client.Addr = v
	}
	if v, ok := os.LookupEnv(EnvHTTPAddr); ok {
		cfg.Server.HTTPAddr = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Store.DataDir = v
	}
}

// Validate checks the values the server and client cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config missing server.addr")
	}
	if strings.TrimSpace(c.Client.Addr) == "" {
		return fmt.Errorf("config missing client.addr")
	}
	if strings.TrimSpace(c.Store.DataDir) == "" {
		return fmt.Errorf("config missing store.data_dir")
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be at least 1, got %d", c.Store.RetryAttempts)
	}
	if c.Server.ReadTimeout.Duration < 0 || c.Server.WriteTimeout.Duration < 0 || c.Client.Timeout.Duration < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Server.MaxPayloadBytes < minPayloadBytes || c.Client.MaxPayloadBytes < minPayloadBytes {
		return fmt.Errorf("max_payload_bytes must be at least %d", minPayloadBytes)
	}
	return nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(configPath string) (*Config, error) {
	config := Default()
	if err := writeConfig(configPath, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig writes cfg to the config file path
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(GetConfigFilePath(), cfg)
}

func SaveConfigTo(path string, cfg *Config) error {
	return writeConfig(path, cfg)
}

func writeConfig(configPath string, cfg *Config) error {
	// Ensure the config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}
