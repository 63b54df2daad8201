package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tabtimer/internal/config"
)

const settingsFileName = "config.yaml"

type yamlSettings struct {
	Listen             string  `yaml:"listen"`
	Database           string  `yaml:"database"`
	TickIntervalMillis int     `yaml:"tick_interval_ms"`
	SyncDelayMinutes   int     `yaml:"sync_delay_minutes"`
	SyncTimeoutSeconds int     `yaml:"sync_timeout_seconds"`
	RemoteDSN          string  `yaml:"remote_dsn"`
	SyncProfile        string  `yaml:"sync_profile"`
	QuotaBytesPerItem  int     `yaml:"quota_bytes_per_item"`
	SoundsDir          string  `yaml:"sounds_dir"`
	Volume             float64 `yaml:"volume"`
	PlayTimeoutSeconds int     `yaml:"play_timeout_seconds"`
	Headless           bool    `yaml:"headless"`
}

// LoadSettings reads settings from YAML in the user config directory.
// If the config file does not exist, defaults are returned.
func LoadSettings(defaults config.Settings) (config.Settings, error) {
	configPath, err := SettingsPath()
	if err != nil {
		return defaults, err
	}
	return LoadSettingsFile(configPath, defaults)
}

// LoadSettingsFile reads settings from the given YAML file.
func LoadSettingsFile(configPath string, defaults config.Settings) (config.Settings, error) {
	settings := defaults
	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettingsFile writes settings to the given YAML file.
func SaveSettingsFile(configPath string, settings config.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		Listen:             settings.ListenAddr,
		Database:           settings.DataPath,
		TickIntervalMillis: int(settings.TickInterval / time.Millisecond),
		SyncDelayMinutes:   int(settings.SyncDelay / time.Minute),
		SyncTimeoutSeconds: int(settings.SyncTimeout / time.Second),
		RemoteDSN:          settings.RemoteDSN,
		SyncProfile:        settings.SyncProfile,
		QuotaBytesPerItem:  settings.QuotaBytesPerItem,
		SoundsDir:          settings.SoundsDir,
		Volume:             settings.Volume,
		PlayTimeoutSeconds: int(settings.PlayTimeout / time.Second),
		Headless:           settings.Headless,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// SettingsPath returns the settings file location.
func SettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, config.AppName, settingsFileName), nil
}

func applyYamlSettings(settings *config.Settings, fileData yamlSettings) {
	if fileData.Listen != "" {
		settings.ListenAddr = fileData.Listen
	}
	if fileData.Database != "" {
		settings.DataPath = fileData.Database
	}
	if fileData.TickIntervalMillis > 0 {
		settings.TickInterval = time.Duration(fileData.TickIntervalMillis) * time.Millisecond
	}
	if fileData.SyncDelayMinutes > 0 {
		settings.SyncDelay = time.Duration(fileData.SyncDelayMinutes) * time.Minute
	}
	if fileData.SyncTimeoutSeconds > 0 {
		settings.SyncTimeout = time.Duration(fileData.SyncTimeoutSeconds) * time.Second
	}
	if fileData.QuotaBytesPerItem > 0 {
		settings.QuotaBytesPerItem = fileData.QuotaBytesPerItem
	}
	if fileData.SoundsDir != "" {
		settings.SoundsDir = fileData.SoundsDir
	}
	if fileData.Volume > 0 && fileData.Volume <= 1 {
		settings.Volume = fileData.Volume
	}
	if fileData.PlayTimeoutSeconds > 0 {
		settings.PlayTimeout = time.Duration(fileData.PlayTimeoutSeconds) * time.Second
	}
	if fileData.SyncProfile != "" {
		settings.SyncProfile = fileData.SyncProfile
	}

	settings.RemoteDSN = fileData.RemoteDSN
	settings.Headless = fileData.Headless
}
