package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies" yaml:"trusted_proxies"` // proxies whose X-Forwarded-For is honored

	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Chat  ChatConfig  `mapstructure:"chat" yaml:"chat"`
	Relay RelayConfig `mapstructure:"relay" yaml:"relay"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	DatabaseURL  string `mapstructure:"database_url" yaml:"database_url"`
}

// ChatConfig tunes the realtime layer.
type ChatConfig struct {
	MaxMessageChars   int           `mapstructure:"max_message_chars" yaml:"max_message_chars"`
	ClientBuffer      int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	TypingIdleTimeout time.Duration `mapstructure:"typing_idle_timeout" yaml:"typing_idle_timeout"`
	InboundRate       float64       `mapstructure:"inbound_rate" yaml:"inbound_rate"` // frames per second, 0 disables
	InboundBurst      int           `mapstructure:"inbound_burst" yaml:"inbound_burst"`
	MaxFrameBytes     int64         `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
}

// RelayConfig enables cross-instance fan-out. An empty RedisAddr disables it.
type RelayConfig struct {
	RedisAddr      string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	Channel        string        `mapstructure:"channel" yaml:"channel"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		AllowedOrigins:    []string{"*"},
		Store: StoreConfig{
			Driver:       DriverSQLite,
			DatabasePath: "murmur.db",
		},
		Chat: ChatConfig{
			MaxMessageChars:   10000,
			ClientBuffer:      32,
			TypingIdleTimeout: 0,
			InboundRate:       10,
			InboundBurst:      20,
			MaxFrameBytes:     64 << 10,
		},
		Relay: RelayConfig{
			Channel:        "murmur:events",
			PublishTimeout: 2 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if len(other.TrustedProxies) > 0 {
		c.TrustedProxies = other.TrustedProxies
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.DatabasePath != "" {
		c.Store.DatabasePath = other.Store.DatabasePath
	}
	if other.Store.DatabaseURL != "" {
		c.Store.DatabaseURL = other.Store.DatabaseURL
	}
	if other.Relay.RedisAddr != "" {
		c.Relay.RedisAddr = other.Relay.RedisAddr
	}
}
