package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ModeServe = "serve"
	ModeChat  = "chat"

	TransportHTTP      = "http"
	TransportWebSocket = "ws"
)

// Config holds application configuration
type Config struct {
	Mode  string `toml:"mode"`
	Debug bool   `toml:"debug"`

	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig configures the chat endpoint
type ServerConfig struct {
	Addr          string        `toml:"addr"`
	DBPath        string        `toml:"db_path"`        // empty disables the conversation log
	KnowledgeFile string        `toml:"knowledge_file"` // optional TOML override of the campus data
	CacheTTL      time.Duration `toml:"cache_ttl"`      // zero keeps cached replies forever
	Title         string        `toml:"title"`
}

// ClientConfig configures the terminal widget
type ClientConfig struct {
	URL       string        `toml:"url"`
	Transport string        `toml:"transport"` // http|ws
	Timeout   time.Duration `toml:"timeout"`   // zero waits indefinitely
}

// LogConfig configures logging and telemetry output
type LogConfig struct {
	Dir    string `toml:"dir"`
	Level  string `toml:"level"`
	Format string `toml:"format"` // json|text
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Mode: ModeServe,
		Server: ServerConfig{
			Addr:     ":5000",
			DBPath:   "campuschat.db",
			CacheTTL: 10 * time.Minute,
			Title:    "Campus Assistant",
		},
		Client: ClientConfig{
			URL:       "http://localhost:5000",
			Transport: TransportHTTP,
		},
		Log: LogConfig{
			Dir:    "logs",
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c Config) Validate() error {
	switch c.Mode {
	case ModeServe, ModeChat:
	default:
		return fmt.Errorf("unknown mode: %s", c.Mode)
	}
	switch c.Client.Transport {
	case TransportHTTP, TransportWebSocket:
	default:
		return fmt.Errorf("unknown transport: %s", c.Client.Transport)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("client timeout must not be negative")
	}
	return nil
}
