package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config file: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.Store.Driver != DriverSQLite || cfg.Chat.ClientBuffer != def.Chat.ClientBuffer {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ReadHeaderTimeout != def.ReadHeaderTimeout {
		t.Fatalf("duration did not round-trip: %v", cfg.ReadHeaderTimeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":9000"
log_level: debug
store:
  driver: sqlite
  database_path: /tmp/from-file.db
chat:
  client_buffer: 8
  typing_idle_timeout: 5s
relay:
  channel: file-channel
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MURMUR_ADDR", ":9100")
	t.Setenv("MURMUR_CHAT_CLIENT_BUFFER", "64")
	t.Setenv("MURMUR_RELAY_REDIS_ADDR", "localhost:6379")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "debug" || cfg.Store.DatabasePath != "/tmp/from-file.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Chat.ClientBuffer != 64 {
		t.Fatalf("env should override nested key, got %d", cfg.Chat.ClientBuffer)
	}
	if cfg.Chat.TypingIdleTimeout != 5*time.Second {
		t.Fatalf("unexpected typing timeout %v", cfg.Chat.TypingIdleTimeout)
	}
	if cfg.Relay.RedisAddr != "localhost:6379" || cfg.Relay.Channel != "file-channel" {
		t.Fatalf("unexpected relay config %+v", cfg.Relay)
	}
	if cfg.Chat.InboundBurst != Default().Chat.InboundBurst {
		t.Fatalf("unset key should keep default, got %d", cfg.Chat.InboundBurst)
	}

	cfg.UpdateFrom(Config{Addr: ":9200", LogLevel: "warn"})
	if cfg.Addr != ":9200" || cfg.LogLevel != "warn" || cfg.Chat.ClientBuffer != 64 {
		t.Fatalf("UpdateFrom applied unexpectedly: %+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected error for postgres without database_url")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Store.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
