package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppName names the per-user config and data directories.
const AppName = "TabTimer"

// Settings defines daemon and client options.
type Settings struct {
	ListenAddr   string
	DataPath     string
	TickInterval time.Duration

	SyncDelay         time.Duration
	SyncTimeout       time.Duration
	RemoteDSN         string
	SyncProfile       string
	QuotaBytesPerItem int

	SoundsDir   string
	Volume      float64
	PlayTimeout time.Duration
	Headless    bool
}

// DefaultSettings returns default settings for TabTimer. dataDir is the
// per-user directory holding the local database and sounds.
func DefaultSettings(listenAddr, dataDir string) Settings {
	return Settings{
		ListenAddr:        listenAddr,
		DataPath:          filepath.Join(dataDir, "tabtimer.db"),
		TickInterval:      time.Second,
		SyncDelay:         10 * time.Minute,
		SyncTimeout:       30 * time.Second,
		SyncProfile:       "default",
		QuotaBytesPerItem: 8192,
		SoundsDir:         dataDir,
		Volume:            1.0,
		PlayTimeout:       3 * time.Second,
	}
}

// SyncEnabled reports whether a remote store is configured.
func (settings Settings) SyncEnabled() bool {
	return strings.TrimSpace(settings.RemoteDSN) != ""
}

// LoadEnvFile loads a .env file into the environment when one exists.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides settings from TABTIMER_* environment variables.
func (settings Settings) ApplyEnv() Settings {
	settings.ListenAddr = getEnv("TABTIMER_LISTEN", settings.ListenAddr)
	settings.DataPath = getEnv("TABTIMER_DB", settings.DataPath)
	settings.RemoteDSN = getEnv("TABTIMER_REMOTE_DSN", settings.RemoteDSN)
	settings.SyncProfile = getEnv("TABTIMER_SYNC_PROFILE", settings.SyncProfile)
	settings.SoundsDir = getEnv("TABTIMER_SOUNDS_DIR", settings.SoundsDir)
	settings.SyncDelay = getEnvDuration("TABTIMER_SYNC_DELAY", settings.SyncDelay)
	settings.TickInterval = getEnvDuration("TABTIMER_TICK_INTERVAL", settings.TickInterval)
	settings.Volume = getEnvFloat("TABTIMER_VOLUME", settings.Volume)
	if value, ok := os.LookupEnv("TABTIMER_HEADLESS"); ok {
		settings.Headless = value == "1" || strings.EqualFold(value, "true")
	}
	return settings
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return fallback
	}
	return parsed
}
