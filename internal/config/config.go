package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tramdash/internal/transport"
	"github.com/joho/godotenv"
)

const (
	EnvAddr            = "TRAMDASH_ADDR"
	EnvStatusAddr      = "TRAMDASH_STATUS_ADDR"
	EnvUI              = "TRAMDASH_UI"
	EnvRefreshInterval = "TRAMDASH_REFRESH_INTERVAL"
	EnvLogFile         = "TRAMDASH_LOG_FILE"
	EnvCORSOrigins     = "TRAMDASH_CORS_ORIGINS"
	EnvStatusToken     = "TRAMDASH_STATUS_TOKEN"
)

// UIMode selects the presenter that renders registry snapshots.
type UIMode string

const (
	UITUI   UIMode = "tui"
	UIPlain UIMode = "plain"
	UINone  UIMode = "none"
)

// Config is the resolved runtime configuration for tramdash.
type Config struct {
	Transport       transport.Config
	ReadBufferSize  int
	RefreshInterval time.Duration
	UI              UIMode
	StatusAddr      string
	CORSOrigins     []string
	StatusToken     string
	LogFile         string
}

func DefaultConfig() Config {
	return Config{
		Transport:       transport.DefaultConfig(),
		ReadBufferSize:  4096,
		RefreshInterval: time.Second,
		UI:              UITUI,
		StatusAddr:      "",
		LogFile:         "",
	}
}

type fileConfig struct {
	Addr            string   `toml:"addr"`
	ConnectTimeout  string   `toml:"connect_timeout"`
	ConnectAttempts int      `toml:"connect_attempts"`
	IdleTimeout     string   `toml:"idle_timeout"`
	ReadBufferSize  int      `toml:"read_buffer_size"`
	RefreshInterval string   `toml:"refresh_interval"`
	UI              string   `toml:"ui"`
	StatusAddr      string   `toml:"status_addr"`
	CORSOrigins     []string `toml:"cors_origins"`
	StatusToken     string   `toml:"status_token"`
	LogFile         string   `toml:"log_file"`
}

// Load resolves defaults, then the TOML file at path (skipped when empty),
// then TRAMDASH_* environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		if err := ApplyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config dotenv failed (%s): %w", path, err)
	}
	return nil
}

func ApplyFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Transport.Address = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("connect_timeout") {
		d, err := parseDuration("connect_timeout", raw.ConnectTimeout)
		if err != nil {
			return err
		}
		cfg.Transport.ConnectTimeout = d
	}
	if meta.IsDefined("connect_attempts") {
		cfg.Transport.ConnectAttempts = raw.ConnectAttempts
	}
	if meta.IsDefined("idle_timeout") {
		d, err := parseDuration("idle_timeout", raw.IdleTimeout)
		if err != nil {
			return err
		}
		cfg.Transport.IdleTimeout = d
	}
	if meta.IsDefined("read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("refresh_interval") {
		d, err := parseDuration("refresh_interval", raw.RefreshInterval)
		if err != nil {
			return err
		}
		cfg.RefreshInterval = d
	}
	if meta.IsDefined("ui") {
		cfg.UI = UIMode(strings.ToLower(strings.TrimSpace(raw.UI)))
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = cleanList(raw.CORSOrigins)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	return nil
}

func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvAddr); ok {
		cfg.Transport.Address = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvStatusAddr); ok {
		cfg.StatusAddr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvUI); ok {
		cfg.UI = UIMode(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := os.LookupEnv(EnvRefreshInterval); ok {
		d, err := parseDuration(EnvRefreshInterval, v)
		if err != nil {
			return err
		}
		cfg.RefreshInterval = d
	}
	if v, ok := os.LookupEnv(EnvCORSOrigins); ok {
		cfg.CORSOrigins = cleanList(strings.Split(v, ","))
	}
	if v, ok := os.LookupEnv(EnvStatusToken); ok {
		cfg.StatusToken = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.LogFile = strings.TrimSpace(v)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if c.Transport.ConnectAttempts < 0 {
		return fmt.Errorf("config connect_attempts must be >= 0")
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("config read_buffer_size must be > 0")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config refresh_interval must be > 0")
	}
	switch c.UI {
	case UITUI, UIPlain, UINone:
	default:
		return fmt.Errorf("config ui must be one of tui|plain|none, got %q", c.UI)
	}
	return nil
}

// PortAddr expands a bare port into a loopback address.
func PortAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return "127.0.0.1:" + port, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

// cleanList trims items and drops blanks. An empty result is nil.
func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
