package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"gopkg.in/yaml.v3"
)

// loadEnv reads the nearest .env (up to five directories up) outside production.
// Variables already set in the environment win.
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				logger.Errorf("config: .env %s: %v", path, err)
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

const (
	TransportAuto      = "auto"
	TransportWebSocket = "websocket"
	TransportPolling   = "polling"

	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// RedisConfig is used when credentials are kept in Redis.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Config holds the client settings.
// Precedence: environment variables > YAML file > defaults.
type Config struct {
	// Backend
	APIBaseURL        string
	EventsURL         string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	MaxUploadSize     int64

	// Live events
	Transport         string
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	PollInterval      time.Duration
	WSWriteTimeout    time.Duration
	WSPongTimeout     time.Duration
	WSMaxMessageSize  int64

	// Presentation
	TypingIdle time.Duration
	TypingTTL  time.Duration

	// Session
	Profile         string
	CredentialStore string
	CredentialDir   string
	Redis           RedisConfig

	LogLevel    string
	MetricsAddr string
}

// yamlConfig mirrors the YAML file; durations are plain numbers in the unit named by the key.
type yamlConfig struct {
	APIBaseURL        string      `yaml:"api_base_url"`
	EventsURL         string      `yaml:"events_url"`
	RequestTimeout    int         `yaml:"request_timeout"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	RequestBurst      int         `yaml:"request_burst"`
	MaxUploadSizeMB   int         `yaml:"max_upload_size_mb"`
	Transport         string      `yaml:"transport"`
	ReconnectDelayMS  int         `yaml:"reconnect_delay_ms"`
	ReconnectAttempts int         `yaml:"reconnect_attempts"`
	PollIntervalMS    int         `yaml:"poll_interval_ms"`
	WSWriteTimeout    int         `yaml:"ws_write_timeout"`
	WSPongTimeout     int         `yaml:"ws_pong_timeout"`
	WSMaxMessageSize  int         `yaml:"ws_max_message_size"`
	TypingIdleMS      int         `yaml:"typing_idle_ms"`
	TypingTTLMS       int         `yaml:"typing_ttl_ms"`
	Profile           string      `yaml:"profile"`
	CredentialStore   string      `yaml:"credential_store"`
	CredentialDir     string      `yaml:"credential_dir"`
	Redis             RedisConfig `yaml:"redis"`
	LogLevel          string      `yaml:"log_level"`
	MetricsAddr       string      `yaml:"metrics_addr"`
}

func defaults() yamlConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return yamlConfig{
		APIBaseURL:        "http://localhost:5000",
		RequestTimeout:    15,
		RequestBurst:      10,
		MaxUploadSizeMB:   10,
		Transport:         TransportAuto,
		ReconnectDelayMS:  1000,
		ReconnectAttempts: 5,
		PollIntervalMS:    2000,
		WSWriteTimeout:    10,
		WSPongTimeout:     60,
		WSMaxMessageSize:  1 << 20,
		TypingIdleMS:      2000,
		TypingTTLMS:       6000,
		Profile:           "default",
		CredentialStore:   StoreFile,
		CredentialDir:     filepath.Join(home, ".taskflow"),
		Redis:             RedisConfig{URL: "redis://localhost:6379"},
		LogLevel:          "info",
	}
}

// Load reads .env (outside production), then CONFIG_PATH or config/client.yaml,
// then environment overrides.
func Load() *Config {
	loadEnv()
	yc := defaults()

	paths := []string{os.Getenv("CONFIG_PATH"), "config/client.yaml"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			logger.Errorf("config: parse %s: %v (using defaults)", path, err)
			yc = defaults()
		} else {
			logger.Infof("config: loaded %s", path)
		}
		break
	}

	ms := func(key string, fallback int) time.Duration {
		return time.Duration(envInt(key, fallback)) * time.Millisecond
	}
	sec := func(key string, fallback int) time.Duration {
		return time.Duration(envInt(key, fallback)) * time.Second
	}

	cfg := &Config{
		APIBaseURL:        strings.TrimSuffix(envStr("API_BASE_URL", yc.APIBaseURL), "/"),
		EventsURL:         envStr("EVENTS_URL", yc.EventsURL),
		RequestTimeout:    sec("REQUEST_TIMEOUT", yc.RequestTimeout),
		RequestsPerSecond: envFloat("REQUESTS_PER_SECOND", yc.RequestsPerSecond),
		RequestBurst:      envInt("REQUEST_BURST", yc.RequestBurst),
		MaxUploadSize:     int64(envInt("MAX_UPLOAD_SIZE_MB", yc.MaxUploadSizeMB)) << 20,
		Transport:         strings.ToLower(envStr("EVENTS_TRANSPORT", yc.Transport)),
		ReconnectDelay:    ms("RECONNECT_DELAY_MS", yc.ReconnectDelayMS),
		ReconnectAttempts: envInt("RECONNECT_ATTEMPTS", yc.ReconnectAttempts),
		PollInterval:      ms("POLL_INTERVAL_MS", yc.PollIntervalMS),
		WSWriteTimeout:    sec("WS_WRITE_TIMEOUT", yc.WSWriteTimeout),
		WSPongTimeout:     sec("WS_PONG_TIMEOUT", yc.WSPongTimeout),
		WSMaxMessageSize:  int64(envInt("WS_MAX_MESSAGE_SIZE", yc.WSMaxMessageSize)),
		TypingIdle:        ms("TYPING_IDLE_MS", yc.TypingIdleMS),
		TypingTTL:         ms("TYPING_TTL_MS", yc.TypingTTLMS),
		Profile:           envStr("TASKFLOW_PROFILE", yc.Profile),
		CredentialStore:   strings.ToLower(envStr("CREDENTIAL_STORE", yc.CredentialStore)),
		CredentialDir:     envStr("CREDENTIAL_DIR", yc.CredentialDir),
		Redis:             RedisConfig{URL: envStr("REDIS_URL", yc.Redis.URL)},
		LogLevel:          envStr("LOG_LEVEL", yc.LogLevel),
		MetricsAddr:       envStr("METRICS_ADDR", yc.MetricsAddr),
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills derived settings after overrides (e.g. command-line flags) were applied.
func (c *Config) Normalize() {
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	c.Transport = strings.ToLower(c.Transport)
	if c.EventsURL == "" {
		c.EventsURL = deriveEventsURL(c.APIBaseURL)
	}
}

// deriveEventsURL maps http(s)://host/base to ws(s)://host/base/ws.
func deriveEventsURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// Validate reports the first setting the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api_base_url %q must be an http(s) URL", c.APIBaseURL)
	}
	switch c.Transport {
	case TransportAuto, TransportWebSocket, TransportPolling:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.Transport != TransportPolling {
		u, err := url.Parse(c.EventsURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("config: events_url %q must be a ws(s) URL", c.EventsURL)
		}
	}
	switch c.CredentialStore {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("config: unknown credential_store %q", c.CredentialStore)
	}
	if c.ReconnectAttempts < 0 {
		return errors.New("config: reconnect_attempts must not be negative")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("config: reconnect_delay_ms must be positive")
	}
	return nil
}

// envStr returns the environment variable or fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the numeric environment variable or fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
