package tray

import (
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"tabtimer/internal/core/icon"
	"tabtimer/internal/core/model"
	"tabtimer/resources"
)

// ErrTrayUnsupported indicates the fyne driver has no system tray.
var ErrTrayUnsupported = errors.New("system tray unsupported on this platform")

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnStartPreset func(id string)
	OnCancel      func()
	OnSync        func()
	OnQuit        func()
}

// Manager owns the tray icon and menu. It is the icon renderer, the text
// badge and the system notifier of the daemon.
type Manager struct {
	app       fyne.App
	desktop   desktop.App
	callbacks Callbacks

	mu          sync.Mutex
	statusLabel string
	badge       string
	presets     []model.TimerPreset
	syncEnabled bool
}

// New creates a tray manager and installs the idle icon and menu.
func New(app fyne.App, callbacks Callbacks, syncEnabled bool) (*Manager, error) {
	desktopApp, ok := app.(desktop.App)
	if !ok {
		return nil, ErrTrayUnsupported
	}

	manager := &Manager{
		app:         app,
		desktop:     desktopApp,
		callbacks:   callbacks,
		statusLabel: "idle",
		syncEnabled: syncEnabled,
	}
	// Not yet running: set directly rather than through fyne.Do.
	desktopApp.SetSystemTrayIcon(resources.DefaultIcon())
	desktopApp.SetSystemTrayMenu(manager.buildMenu())
	return manager, nil
}

// Render draws label onto the tray icon.
func (manager *Manager) Render(label string) error {
	resource, err := resources.CountdownIcon(label)
	if err != nil {
		return err
	}
	fyne.Do(func() {
		manager.desktop.SetSystemTrayIcon(resource)
	})
	manager.setStatus("running " + label)
	return nil
}

// Restore shows the idle icon.
func (manager *Manager) Restore() error {
	fyne.Do(func() {
		manager.desktop.SetSystemTrayIcon(resources.DefaultIcon())
	})
	manager.setStatus("idle")
	return nil
}

// SetBadge shows text in the status entry, used when the icon cannot be drawn.
func (manager *Manager) SetBadge(text string) error {
	manager.mu.Lock()
	manager.badge = text
	manager.mu.Unlock()
	manager.refreshMenu()
	return nil
}

// Notify shows a system notification.
func (manager *Manager) Notify(title, body string) error {
	fyne.Do(func() {
		manager.app.SendNotification(fyne.NewNotification(title, body))
	})
	return nil
}

// SetPresets replaces the entries of the start submenu.
func (manager *Manager) SetPresets(presets []model.TimerPreset) {
	manager.mu.Lock()
	manager.presets = model.ClonePresets(presets)
	manager.mu.Unlock()
	manager.refreshMenu()
}

func (manager *Manager) setStatus(status string) {
	manager.mu.Lock()
	changed := manager.statusLabel != status
	manager.statusLabel = status
	manager.mu.Unlock()
	if changed {
		manager.refreshMenu()
	}
}

func (manager *Manager) refreshMenu() {
	menu := manager.buildMenu()
	fyne.Do(func() {
		manager.desktop.SetSystemTrayMenu(menu)
	})
}

func (manager *Manager) buildMenu() *fyne.Menu {
	manager.mu.Lock()
	status := statusText(manager.statusLabel, manager.badge)
	presets := model.ClonePresets(manager.presets)
	syncEnabled := manager.syncEnabled
	manager.mu.Unlock()

	statusItem := fyne.NewMenuItem(status, nil)
	statusItem.Disabled = true

	start := fyne.NewMenuItem("Start preset", nil)
	if len(presets) == 0 {
		start.Disabled = true
	} else {
		items := make([]*fyne.MenuItem, 0, len(presets))
		for _, preset := range presets {
			id := preset.ID
			items = append(items, fyne.NewMenuItem(presetLabel(preset), func() {
				if manager.callbacks.OnStartPreset != nil {
					manager.callbacks.OnStartPreset(id)
				}
			}))
		}
		start.ChildMenu = fyne.NewMenu("", items...)
	}

	cancel := fyne.NewMenuItem("Cancel countdown", func() {
		if manager.callbacks.OnCancel != nil {
			manager.callbacks.OnCancel()
		}
	})

	items := []*fyne.MenuItem{statusItem, start, cancel}
	if syncEnabled {
		items = append(items, fyne.NewMenuItem("Sync now", func() {
			if manager.callbacks.OnSync != nil {
				manager.callbacks.OnSync()
			}
		}))
	}
	items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	}))

	return fyne.NewMenu("TabTimer", items...)
}

func statusText(status, badge string) string {
	if badge != "" {
		return fmt.Sprintf("Status: %s [%s]", status, badge)
	}
	return fmt.Sprintf("Status: %s", status)
}

func presetLabel(preset model.TimerPreset) string {
	return fmt.Sprintf("%02d:%02d:%02d", preset.Hours, preset.Minutes, preset.Seconds)
}

var (
	_ icon.Renderer = (*Manager)(nil)
	_ icon.Badge    = (*Manager)(nil)
)
