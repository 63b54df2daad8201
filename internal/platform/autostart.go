package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Service defines the OS-specific helpers the daemon needs.
type Service interface {
	DataDir(appName string) (string, error)
	EnableAutostart(appName string, command []string) error
	DisableAutostart(appName string) error
}

type platformService struct{}

// NewService returns the implementation for the running OS.
func NewService() Service {
	return &platformService{}
}

// DataDir returns the per-user directory holding the local database and
// sounds, creating it when missing.
func (service *platformService) DataDir(appName string) (string, error) {
	base, err := configDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err == nil && dir != "" {
		return dir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}
	return fallbackConfigDir(homeDir), nil
}

func slug(appName string) string {
	name := strings.ToLower(strings.TrimSpace(appName))
	if name == "" {
		name = "tabtimer"
	}
	return strings.ReplaceAll(name, " ", "-")
}

func validateAutostart(op, appName string, command []string) error {
	if appName == "" {
		return fmt.Errorf("%s autostart: app name is empty", op)
	}
	if command != nil && (len(command) == 0 || command[0] == "") {
		return fmt.Errorf("%s autostart: command is empty", op)
	}
	return nil
}
