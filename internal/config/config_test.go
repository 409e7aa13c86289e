package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
telegram:
  token: "123:abc"
  chat_id: -1001234567890
github:
  webhook_secret: "topsecret"
  repositories:
    - kubernetes/website
    - prometheus/prometheus
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Telegram.ChatID != -1001234567890 {
		t.Fatalf("unexpected chat id %d", cfg.Telegram.ChatID)
	}
	if len(cfg.GitHub.Repositories) != 2 {
		t.Fatalf("expected 2 repositories, got %d", len(cfg.GitHub.Repositories))
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Notify.BatchSize != 3 {
		t.Fatalf("expected default batch size 3, got %d", cfg.Notify.BatchSize)
	}
	if cfg.Notify.SendDelay != time.Second {
		t.Fatalf("expected default send delay 1s, got %v", cfg.Notify.SendDelay)
	}
	if cfg.Notify.QueueSize != 100 {
		t.Fatalf("expected default queue size 100, got %d", cfg.Notify.QueueSize)
	}
	if cfg.Database.RetentionDays != 90 {
		t.Fatalf("expected default retention 90 days, got %d", cfg.Database.RetentionDays)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  chat_id: 42
github:
  repositories: ["a/b"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing telegram token")
	}
}

func TestLoad_MissingChatID(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
github:
  repositories: ["a/b"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing chat id")
	}
}

func TestLoad_NoRepositories(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  chat_id: 42
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty repository list")
	}
}

func TestLoad_MalformedRepository(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  chat_id: 42
github:
  repositories: ["not-a-full-name"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for repository without owner")
	}
}

func TestMonitoredSet(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	set := cfg.MonitoredSet()
	if _, ok := set["kubernetes/website"]; !ok {
		t.Fatalf("expected kubernetes/website in monitored set")
	}
	if _, ok := set["kubernetes/websit"]; ok {
		t.Fatalf("membership must be an exact match")
	}
}

func TestServerAddress(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Fatalf("unexpected address %q", cfg.ServerAddress())
	}
}
