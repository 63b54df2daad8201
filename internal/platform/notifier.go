package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNotificationsUnsupported indicates no notification command exists here.
var ErrNotificationsUnsupported = errors.New("desktop notifications unsupported")

// CommandNotifier shows notifications through notify-send or osascript. The
// tray uses its own notifier; this one serves headless daemons.
type CommandNotifier struct {
	appName string
	goos    string
	run     func(name string, args ...string) error
}

// NewCommandNotifier creates a notifier for the running OS.
func NewCommandNotifier(appName string) *CommandNotifier {
	return &CommandNotifier{
		appName: appName,
		goos:    runtime.GOOS,
		run: func(name string, args ...string) error {
			output, err := exec.Command(name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
			}
			return nil
		},
	}
}

// Notify shows title and body.
func (notifier *CommandNotifier) Notify(title, body string) error {
	switch notifier.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return notifier.run("osascript", "-e", script)
	case "linux", "freebsd", "openbsd":
		return notifier.run("notify-send", "--app-name="+notifier.appName, "--urgency=normal", title, body)
	default:
		return ErrNotificationsUnsupported
	}
}
