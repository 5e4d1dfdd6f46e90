// Package notify sends desktop notifications about copy, save and source
// fallback outcomes.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appName = "sticky"

// notifyFunc is beeep.Notify, swapped out in tests.
var notifyFunc = beeep.Notify

// Notifier posts desktop notifications. A disabled Notifier only logs.
type Notifier struct {
	enabled bool
	logger  *slog.Logger
}

// New returns a notifier. When enabled is false notifications are dropped.
func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	beeep.AppName = appName
	return &Notifier{enabled: enabled, logger: logger}
}

// Send posts a notification. Failures are logged and returned.
func (n *Notifier) Send(title, message string) error {
	if n == nil || !n.enabled {
		return nil
	}
	if err := notifyFunc(title, message, ""); err != nil {
		n.logger.Warn("failed to send notification", "title", title, "error", err)
		return err
	}
	n.logger.Debug("notification sent", "title", title)
	return nil
}

// Saved reports a successful save.
func (n *Notifier) Saved(path string) error {
	return n.Send("Image saved", path)
}

// Copied reports that an image is now on the clipboard.
func (n *Notifier) Copied() error {
	return n.Send("Image copied", "The pinned image is on the clipboard")
}

// Failed reports a failed user action.
func (n *Notifier) Failed(action string, err error) error {
	return n.Send("Could not "+action, err.Error())
}

// FellBack reports that the requested file was not used and the clipboard
// image was pinned instead.
func (n *Notifier) FellBack(path, reason string) error {
	msg := "Pinned the clipboard image instead of " + path
	if reason != "" {
		msg += ": " + reason
	}
	return n.Send("Using clipboard image", msg)
}
