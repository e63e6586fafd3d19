package googleid

import (
	"context"
	"log/slog"
	"time"
)

// KeyRefresher periodically refetches the Verifier's key set so sign-ins
// rarely pay for a fetch.
type KeyRefresher struct {
	Verifier *Verifier
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewKeyRefresher creates a refresher. A non-positive interval defaults to
// one hour.
func NewKeyRefresher(v *Verifier, logger *slog.Logger, interval time.Duration) *KeyRefresher {
	if interval <= 0 {
		interval = time.Hour
	}
	return &KeyRefresher{
		Verifier: v,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the refresh loop in the background, fetching once immediately.
func (r *KeyRefresher) Start() {
	go r.run()
	r.Logger.Info("google key refresher started", "interval", r.Interval)
}

// Stop ends the loop and waits for an in-flight fetch to finish.
func (r *KeyRefresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("google key refresher stopped")
}

func (r *KeyRefresher) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.refresh()
	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopCh:
			return
		}
	}
}

func (r *KeyRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := r.Verifier.Refresh(ctx); err != nil {
		r.Logger.Warn("google key refresh failed", "error", err)
		return
	}
	r.Logger.Debug("google keys refreshed", "keys", r.Verifier.keys.Len())
}
