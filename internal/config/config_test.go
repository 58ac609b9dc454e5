package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/neilotoole/slogt"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Cleanup(logger.SetLogger(slogt.New(t)))
	t.Setenv("APP_ENV", "production")
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	for _, key := range []string{
		"CONFIG_PATH", "API_BASE_URL", "EVENTS_URL", "RECONNECT_ATTEMPTS",
		"RECONNECT_DELAY_MS", "EVENTS_TRANSPORT", "CREDENTIAL_STORE", "TYPING_IDLE_MS",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	setup(t)
	cfg := Load()

	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.EventsURL != "ws://localhost:5000/ws" {
		t.Errorf("EventsURL = %q", cfg.EventsURL)
	}
	if cfg.ReconnectDelay != time.Second || cfg.ReconnectAttempts != 5 {
		t.Errorf("reconnect = %v x%d, want 1s x5", cfg.ReconnectDelay, cfg.ReconnectAttempts)
	}
	if cfg.TypingIdle != 2*time.Second {
		t.Errorf("TypingIdle = %v, want 2s", cfg.TypingIdle)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "client.yaml")
	yml := `
api_base_url: https://tasks.example.com/
reconnect_attempts: 3
reconnect_delay_ms: 250
transport: polling
credential_store: memory
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RECONNECT_ATTEMPTS", "7")

	cfg := Load()
	if cfg.APIBaseURL != "https://tasks.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.EventsURL != "wss://tasks.example.com/ws" {
		t.Errorf("EventsURL = %q", cfg.EventsURL)
	}
	if cfg.ReconnectAttempts != 7 {
		t.Errorf("ReconnectAttempts = %d, want env value 7", cfg.ReconnectAttempts)
	}
	if cfg.ReconnectDelay != 250*time.Millisecond {
		t.Errorf("ReconnectDelay = %v", cfg.ReconnectDelay)
	}
	if cfg.Transport != TransportPolling || cfg.CredentialStore != StoreMemory {
		t.Errorf("transport/store = %q/%q", cfg.Transport, cfg.CredentialStore)
	}
}

func TestLoad_BadYAMLFallsBack(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "client.yaml")
	if err := os.WriteFile(path, []byte("reconnect_attempts: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	if cfg := Load(); cfg.ReconnectAttempts != 5 {
		t.Errorf("ReconnectAttempts = %d, want default 5", cfg.ReconnectAttempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			APIBaseURL:        "http://localhost:5000",
			EventsURL:         "ws://localhost:5000/ws",
			Transport:         TransportAuto,
			CredentialStore:   StoreFile,
			ReconnectAttempts: 5,
			ReconnectDelay:    time.Second,
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"OK", func(*Config) {}, false},
		{"BadAPI", func(c *Config) { c.APIBaseURL = "ftp://x" }, true},
		{"BadEvents", func(c *Config) { c.EventsURL = "http://x/ws" }, true},
		{"PollingIgnoresEvents", func(c *Config) { c.Transport = TransportPolling; c.EventsURL = "" }, false},
		{"BadTransport", func(c *Config) { c.Transport = "carrier-pigeon" }, true},
		{"BadStore", func(c *Config) { c.CredentialStore = "etcd" }, true},
		{"NegativeAttempts", func(c *Config) { c.ReconnectAttempts = -1 }, true},
		{"ZeroDelay", func(c *Config) { c.ReconnectDelay = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
