package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/i474232898/agrorain/internal/rainfall"
	"github.com/i474232898/agrorain/internal/store"
)

const (
	defaultTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	defaultTileAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

type AppConfig struct {
	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote backend. An empty project id keeps the session on local storage.
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	RemoteInitTimeout        time.Duration
	BreakerFailures          int

	// LocalStorePath is the SQLite file, or ":memory:".
	LocalStorePath string

	// Calendar used by the dashboard windows.
	Location     *time.Location
	WeekStartsOn time.Weekday

	Tiles rainfall.MapTiles

	// ProbeInterval controls how often the remote backend is pinged.
	ProbeInterval time.Duration

	WatchBackoffInitial time.Duration
	WatchBackoffMax     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                     getenvDefault("PORT", "8080"),
		LogLevel:                 getenvDefault("LOG_LEVEL", "info"),
		LogFormat:                getenvDefault("LOG_FORMAT", "json"),
		FirestoreProjectID:       os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		BreakerFailures:          getenvInt("BREAKER_FAILURES", 3),
		LocalStorePath:           getenvDefault("LOCAL_STORE_PATH", "data/agrorain.db"),
		Tiles: rainfall.MapTiles{
			URL:         getenvDefault("TILE_URL", defaultTileURL),
			Attribution: getenvDefault("TILE_ATTRIBUTION", defaultTileAttribution),
		},
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"REMOTE_INIT_TIMEOUT", "10s", &cfg.RemoteInitTimeout},
		{"PROBE_INTERVAL", "1m", &cfg.ProbeInterval},
		{"WATCH_BACKOFF_INITIAL", "500ms", &cfg.WatchBackoffInitial},
		{"WATCH_BACKOFF_MAX", "30s", &cfg.WatchBackoffMax},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	loc, err := time.LoadLocation(getenvDefault("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	weekday, err := parseWeekday(getenvDefault("WEEK_START", "sunday"))
	if err != nil {
		return nil, err
	}
	cfg.WeekStartsOn = weekday

	return cfg, nil
}

// StoreConfig maps the settings onto backend selection.
func (c *AppConfig) StoreConfig() store.Config {
	return store.Config{
		Remote: store.RemoteConfig{
			ProjectID:       c.FirestoreProjectID,
			CredentialsFile: c.FirestoreCredentialsFile,
			Breaker:         store.BreakerConfig{ConsecutiveFailures: uint32(max(c.BreakerFailures, 0))},
		},
		RemoteInitTimeout: c.RemoteInitTimeout,
		LocalPath:         c.LocalStorePath,
	}
}

// ServiceOptions maps the settings onto the service.
func (c *AppConfig) ServiceOptions(offlineReason string) rainfall.Options {
	return rainfall.Options{
		Location:     c.Location,
		WeekStartsOn: c.WeekStartsOn,
		Tiles:        c.Tiles,
		Backoff: rainfall.BackoffConfig{
			InitialInterval: c.WatchBackoffInitial,
			MaxInterval:     c.WatchBackoffMax,
		},
		OfflineReason: offlineReason,
	}
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun", "0":
		return time.Sunday, nil
	case "monday", "mon", "1":
		return time.Monday, nil
	}
	return 0, fmt.Errorf("invalid WEEK_START %q: want sunday or monday", s)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
