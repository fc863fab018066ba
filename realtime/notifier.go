package realtime

import (
	"github.com/foodiehq/storefront/utils"
)

// Notifier surfaces transient, fire-and-forget notifications (the toast
// of the web storefront). Failures to notify never affect order state.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier renders notifications to the console logger, optionally
// ringing a bell. Any sound failure is ignored.
type LogNotifier struct {
	// Sound, when set, is invoked after each notification. Errors are
	// swallowed: an unavailable audio device must not break tracking.
	Sound func() error
}

func (n *LogNotifier) Notify(title, message string) {
	if utils.InfoLogger != nil {
		utils.InfoLogger.Printf("[%s] %s", title, message)
	}
	if n.Sound != nil {
		_ = n.Sound()
	}
}
