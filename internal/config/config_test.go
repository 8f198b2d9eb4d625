package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/erilali/chatrelay/internal/message"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3005 || cfg.Host != "0.0.0.0" {
		t.Fatalf("unexpected listen settings %s", cfg.Addr())
	}
	if cfg.HistorySize != 20 {
		t.Fatalf("history_size = %d, want 20", cfg.HistorySize)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("default origin policy should be open, got %v", cfg.AllowedOrigins)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown_timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	body := `{
		"port": 4000,
		"allowed_origins": ["https://chat.example.com"],
		"nats_url": "nats://file:4222",
		"log": {"level": "debug", "json": true}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "")
	t.Setenv("CHAT_NATS_URL", "nats://env:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 4000 {
		t.Fatalf("port = %d, want 4000", cfg.Port)
	}
	if cfg.NatsURL != "nats://env:4222" {
		t.Fatalf("env should override file, got %q", cfg.NatsURL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://chat.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.LogToJSON {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestBarePortOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CHAT_PORT", "9000")
	t.Setenv("HOST", "devbox.local")
	t.Setenv("CHAT_HOST", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8081" {
		t.Fatalf("Addr = %s, the shell HOST must not change the bind address", cfg.Addr())
	}
}

func TestHostFromPrefixedEnv(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("HOST", "devbox.local")
	t.Setenv("CHAT_HOST", "127.0.0.1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:3005" {
		t.Fatalf("Addr = %s", cfg.Addr())
	}
}

func TestOriginsFromEnvAreSplit(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHAT_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for port 0")
	}

	t.Setenv("PORT", "")
	t.Setenv("CHAT_MAX_MESSAGE_LENGTH", strconv.Itoa(message.MaxTextLength+1))
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for a max_message_length no frame can carry")
	}

	t.Setenv("CHAT_MAX_MESSAGE_LENGTH", "20000")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxMessageLength != 20000 {
		t.Fatalf("max_message_length = %d", cfg.MaxMessageLength)
	}
}
