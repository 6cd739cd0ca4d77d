package reconcile

import (
	"context"
	"time"
)

// DefaultCheckInterval is how often a Watcher re-checks the session.
const DefaultCheckInterval = time.Second

// Watcher re-checks a session on a fixed interval and whenever another tab
// changes the stored token.
type Watcher struct {
	session  *Session
	interval time.Duration
}

// NewWatcher creates a watcher. A non-positive interval uses DefaultCheckInterval.
func NewWatcher(session *Session, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Watcher{session: session, interval: interval}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	changes, err := w.session.storage.Watch(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.session.CheckValidity(ctx)
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if c.Key == KeyToken {
				w.session.CheckValidity(ctx)
			}
		}
	}
}
