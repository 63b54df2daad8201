package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tabtimer/internal/bridge"
	"tabtimer/internal/config"
	"tabtimer/internal/core/model"
	"tabtimer/internal/platform"
	"tabtimer/internal/storage"
	"tabtimer/internal/ui/popup"
)

var errInvalidDuration = errors.New("invalid duration")

func newStartCmd(app *App) *cobra.Command {
	var sound string
	cmd := &cobra.Command{
		Use:   "start <duration|preset-id>",
		Short: "Start a countdown",
		Long:  "Start a countdown for a duration (25m, 1h30m, 00:05:00) or for a stored preset id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := startRequest(args[0], sound)
			if err := app.client().Start(cmd.Context(), request); err != nil {
				return err
			}
			if request.TotalSeconds > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", formatSeconds(request.TotalSeconds))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Started preset %s\n", request.CurrentTimerID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sound, "sound", "", "Sound to play on completion (default: preset or default sound)")
	return cmd
}

func newCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client().Cancel(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the countdown status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			writeStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newPresetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage timer presets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List presets in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := app.client().Presets(cmd.Context())
			if err != nil {
				return err
			}
			writePresets(cmd.OutOrStdout(), presets)
			return nil
		},
	})

	var color, sound string
	add := &cobra.Command{
		Use:   "add <duration>",
		Short: "Add a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := parseDuration(args[0])
			if err != nil {
				return err
			}
			draft := model.TimerPreset{
				Hours:   total / 3600,
				Minutes: (total % 3600) / 60,
				Seconds: total % 60,
				Color:   color,
				Sound:   sound,
			}
			created, err := app.client().CreatePreset(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", created.ID, formatSeconds(created.TotalSeconds()))
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", model.Colors[0], "Preset color as #RRGGBB")
	add.Flags().StringVar(&sound, "sound", model.DefaultSound, "Completion sound ("+strings.Join(model.Sounds, ", ")+")")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client().DeletePreset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the preset display order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := app.client().ReorderPresets(cmd.Context(), args)
			if err != nil {
				return err
			}
			writePresets(cmd.OutOrStdout(), presets)
			return nil
		},
	})

	return cmd
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile presets with the remote store now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.client().Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sync: %s\n", outcome)
			return nil
		},
	}
}

func newPopupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "popup",
		Short: "Open the terminal popup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			events, err := client.Subscribe(cmd.Context(), bridge.RolePopup)
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			program := tea.NewProgram(popup.New(popup.Options{
				Context: cmd.Context(),
				Client:  client,
				Events:  events,
			}), tea.WithContext(cmd.Context()))
			_, err = program.Run()
			return err
		},
	}
}

func newAutostartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start the daemon at login",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Register the daemon to start at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			command := []string{executable, "run"}
			if app.ConfigPath != "" {
				command = append(command, "--config", app.ConfigPath)
			}
			if err := platform.NewService().EnableAutostart(config.AppName, command); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Autostart enabled")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Remove the login registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := platform.NewService().DisableAutostart(config.AppName); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled")
			return nil
		},
	})
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return err
			}
			if err := storage.SaveSettingsFile(path, app.Settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

func configPath(app *App) (string, error) {
	if app.ConfigPath != "" {
		return app.ConfigPath, nil
	}
	return storage.SettingsPath()
}

// startRequest treats arg as a duration when it parses as one and as a
// preset id otherwise.
func startRequest(arg, sound string) bridge.StartTimerRequest {
	if total, err := parseDuration(arg); err == nil {
		return bridge.StartTimerRequest{TotalSeconds: total, Sound: sound}
	}
	return bridge.StartTimerRequest{CurrentTimerID: arg, Sound: sound}
}

// parseDuration accepts Go durations (90s, 25m, 1h30m), HH:MM:SS, MM:SS or
// plain seconds and returns whole seconds.
func parseDuration(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", errInvalidDuration)
	}

	var total int
	switch {
	case strings.Contains(value, ":"):
		parts := strings.Split(value, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
		for _, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("%w: %q", errInvalidDuration, value)
			}
			total = total*60 + n
		}
	default:
		if n, err := strconv.Atoi(value); err == nil {
			total = n
			break
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
		total = int(parsed / time.Second)
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: %q must be at least one second", errInvalidDuration, value)
	}
	return total, nil
}

func formatSeconds(total int) string {
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func writeStatus(out io.Writer, status bridge.StatusReply) {
	if !status.IsCountingDown {
		fmt.Fprintln(out, "Idle")
		return
	}
	remaining := int(status.RemainingTime / 1000)
	fmt.Fprintf(out, "Counting down: %s of %s", formatSeconds(remaining), formatSeconds(status.TotalSeconds))
	if status.CurrentTimerID != "" {
		fmt.Fprintf(out, " (preset %s)", status.CurrentTimerID)
	}
	fmt.Fprintln(out)
}

func writePresets(out io.Writer, presets []model.TimerPreset) {
	if len(presets) == 0 {
		fmt.Fprintln(out, "No presets")
		return
	}
	for _, preset := range presets {
		fmt.Fprintf(out, "%s  %s  %s  %s\n", preset.ID, formatSeconds(preset.TotalSeconds()), preset.Color, preset.Sound)
	}
}
