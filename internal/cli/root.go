package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tabtimer/internal/bridge"
	"tabtimer/internal/config"
	"tabtimer/internal/platform"
	"tabtimer/internal/storage"
)

// App holds the global flags and the resolved settings.
type App struct {
	ConfigPath string
	EnvFile    string
	Addr       string

	Settings config.Settings
}

// NewRootCmd builds the tabtimer command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tabtimer",
		Short:        "Countdown timer daemon with tray icon, presets and sync",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the daemon (tray icon, bridge, sync)
  tabtimer run

  # Start a countdown from the command line
  tabtimer start 25m
  tabtimer start 00:05:00

  # Open the terminal popup
  tabtimer popup
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(app)
		if err != nil {
			return err
		}
		app.Settings = settings
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config.yaml (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", ".env", "Optional .env file with TABTIMER_* overrides")
	cmd.PersistentFlags().StringVar(&app.Addr, "addr", "", "Daemon bridge address (overrides config)")

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newStartCmd(app))
	cmd.AddCommand(newCancelCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newPresetsCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newPopupCmd(app))
	cmd.AddCommand(newAutostartCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func loadSettings(app *App) (config.Settings, error) {
	if err := config.LoadEnvFile(app.EnvFile); err != nil {
		return config.Settings{}, fmt.Errorf("load env file: %w", err)
	}

	dataDir, err := platform.NewService().DataDir(config.AppName)
	if err != nil {
		return config.Settings{}, err
	}
	defaults := config.DefaultSettings(platform.DefaultAddress(config.AppName), dataDir)

	var settings config.Settings
	if app.ConfigPath != "" {
		settings, err = storage.LoadSettingsFile(app.ConfigPath, defaults)
	} else {
		settings, err = storage.LoadSettings(defaults)
	}
	if err != nil {
		return config.Settings{}, err
	}

	settings = settings.ApplyEnv()
	if app.Addr != "" {
		settings.ListenAddr = app.Addr
	}
	return settings, nil
}

func (app *App) client() *bridge.Client {
	return bridge.NewClient(app.Settings.ListenAddr)
}
